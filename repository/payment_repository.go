package repository

import (
	"context"
	"time"

	"github.com/BenyD/DineEasy-sub000/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	CreatePayment(ctx context.Context, payment *models.Payment) error
	FindAllByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	FindByStripePaymentID(ctx context.Context, stripePaymentID string) (*models.Payment, error)
	UpdateByID(ctx context.Context, paymentID uuid.UUID, updates map[string]interface{}) error
	UpdateByOrderID(ctx context.Context, orderID uuid.UUID, updates map[string]interface{}) error
}

type gormPaymentRepo struct {
	db *gorm.DB
}

func NewGormPaymentRepo(db *gorm.DB) PaymentRepository {
	return &gormPaymentRepo{db: db}
}

func (r *gormPaymentRepo) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// FindAllByOrderID returns every payment row for the order, oldest first.
// More than one row can exist; callers decide how to treat the extras.
func (r *gormPaymentRepo) FindAllByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *gormPaymentRepo) FindByStripePaymentID(ctx context.Context, stripePaymentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Where("stripe_payment_id = ?", stripePaymentID).
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormPaymentRepo) UpdateByID(ctx context.Context, paymentID uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("payment_id = ?", paymentID).
		Updates(updates).Error
}

func (r *gormPaymentRepo) UpdateByOrderID(ctx context.Context, orderID uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Updates(updates).Error
}
