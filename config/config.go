package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	FrontendURL      string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string
	StripeSecretKey  string
	StripeWebhookKey string
	StaffAPIKey      string

	// Platform commission taken on card orders, as a fraction of the total.
	PlatformFeeRate float64

	// Best-effort integrations; empty values disable the integration.
	PaymentSNSTopicARN string
	KafkaBrokers       []string
	KitchenTopic       string
	RedisAddr          string
	RedisDB            int
}

func LoadConfig() (*Config, error) {
	// A missing .env just means the variables come from the environment.
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8087"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
		PostgresUser:       os.Getenv("POSTGRES_USER"),
		PostgresPassword:   os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:         os.Getenv("POSTGRES_DB"),
		PostgresHost:       os.Getenv("POSTGRES_HOST"),
		PostgresPort:       getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:    getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone:   getEnv("POSTGRES_TIMEZONE", "Europe/Zurich"),
		StripeSecretKey:    os.Getenv("STRIPE_API_KEY"),
		StripeWebhookKey:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StaffAPIKey:        os.Getenv("STAFF_API_KEY"),
		PlatformFeeRate:    0.02,
		PaymentSNSTopicARN: os.Getenv("PAYMENT_SNS_TOPIC_ARN"),
		KafkaBrokers:       splitCSV(os.Getenv("KAFKA_BROKERS")),
		KitchenTopic:       getEnv("KITCHEN_ORDER_TOPIC", "kitchen-orders"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
	}

	if v := os.Getenv("PLATFORM_FEE_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate < 0 || rate >= 1 {
			return nil, fmt.Errorf("invalid PLATFORM_FEE_RATE: %q", v)
		}
		cfg.PlatformFeeRate = rate
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %q", v)
		}
		cfg.RedisDB = db
	}

	if cfg.StripeSecretKey == "" || cfg.StripeWebhookKey == "" {
		return nil, fmt.Errorf("missing required environment variables STRIPE_API_KEY / STRIPE_WEBHOOK_SECRET")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
