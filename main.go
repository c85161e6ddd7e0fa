package main

import (
	"context"
	"log"
	"time"

	"github.com/BenyD/DineEasy-sub000/cache"
	"github.com/BenyD/DineEasy-sub000/config"
	"github.com/BenyD/DineEasy-sub000/controllers"
	"github.com/BenyD/DineEasy-sub000/database"
	"github.com/BenyD/DineEasy-sub000/events"
	qrkafka "github.com/BenyD/DineEasy-sub000/kafka"
	"github.com/BenyD/DineEasy-sub000/models"
	"github.com/BenyD/DineEasy-sub000/repository"
	"github.com/BenyD/DineEasy-sub000/routes"
	"github.com/BenyD/DineEasy-sub000/services"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := database.ConnectPostgres(cfg, logger,
		&models.Restaurant{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Subscription{},
	)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	orderRepo := repository.NewGormOrderRepository(db)
	paymentRepo := repository.NewGormPaymentRepo(db)
	restaurantRepo := repository.NewGormRestaurantRepo(db)
	menuRepo := repository.NewGormMenuItemRepo(db)
	subscriptionRepo := repository.NewGormSubscriptionRepo(db)

	stripeSvc := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookKey)

	// Optional integrations; each disables itself when unconfigured.
	var idemStore services.CheckoutStateStore
	if cfg.RedisAddr != "" {
		rdb := rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		idemStore = cache.NewIdempotencyStore(rdb, 24*time.Hour)
	}

	var snsPublisher events.SNSPublisher
	if cfg.PaymentSNSTopicARN != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			logger.Fatal("Failed to load AWS config", zap.Error(err))
		}
		snsPublisher = events.NewSNSClient(awsCfg)
	}

	var kitchenProducer services.OrderEventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := qrkafka.NewOrderEventProducer(cfg.KafkaBrokers, cfg.KitchenTopic, logger)
		defer producer.Close()
		kitchenProducer = producer
	}

	qrService := services.NewQRPaymentService(
		orderRepo,
		paymentRepo,
		restaurantRepo,
		menuRepo,
		stripeSvc,
		idemStore,
		snsPublisher,
		kitchenProducer,
		logger,
		cfg.FrontendURL,
		cfg.PaymentSNSTopicARN,
		cfg.PlatformFeeRate,
	)
	webhookService := services.NewWebhookService(qrService, subscriptionRepo, restaurantRepo, logger)

	r := gin.New()
	r.Use(gin.Recovery())

	qc := controllers.NewQRController(qrService, logger)
	wc := controllers.NewWebhookController(stripeSvc, webhookService, logger)
	routes.RegisterRoutes(r, qc, wc, cfg.StaffAPIKey)

	logger.Info("QR payment service running", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
