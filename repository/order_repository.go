package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/BenyD/DineEasy-sub000/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderRepository defines the data-service surface the order flow needs.
// CreateWithItems is the preferred atomic primitive; Create/CreateItems are
// the manual fallback used when it is unavailable or fails.
type OrderRepository interface {
	CreateWithItems(ctx context.Context, order *models.Order) error
	Create(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindPendingByTable(ctx context.Context, restaurantID uuid.UUID, tableID string, since time.Time) (*models.Order, error)
	FindByStripeSessionID(ctx context.Context, sessionID string) (*models.Order, error)
	FindByStripePaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateStatusIf(ctx context.Context, id uuid.UUID, fromStatus, toStatus string) (bool, error)
	DeleteItems(ctx context.Context, orderID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	NextOrderNumber(ctx context.Context, restaurantID uuid.UUID) (string, error)
}

type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

// CreateWithItems inserts the order and its items in one transaction.
func (r *GormOrderRepository) CreateWithItems(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
}

// Create inserts the order row only, without its associations.
func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("OrderItems").Create(order).Error
}

func (r *GormOrderRepository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("OrderItems").
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindPendingByTable returns the newest pending order on the table created
// at or after since, or nil when there is none. This backs the best-effort
// duplicate-submission guard; it is a read, not a lock.
func (r *GormOrderRepository) FindPendingByTable(ctx context.Context, restaurantID uuid.UUID, tableID string, since time.Time) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND table_id = ? AND status = ? AND created_at >= ?",
			restaurantID, tableID, models.OrderStatusPending, since).
		Order("created_at DESC").
		First(&order).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormOrderRepository) FindByStripeSessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("OrderItems").
		Where("stripe_session_id = ?", sessionID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormOrderRepository) FindByStripePaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("OrderItems").
		Where("stripe_payment_intent_id = ?", paymentIntentID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormOrderRepository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateStatusIf transitions status only when the current status matches
// fromStatus, and reports whether a row was changed. Status-guarded writes
// keep late webhook deliveries from clobbering a more authoritative state.
func (r *GormOrderRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, fromStatus, toStatus string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(map[string]interface{}{"status": toStatus, "updated_at": time.Now()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormOrderRepository) DeleteItems(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.OrderItem{}).Error
}

func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Order{}).Error
}

// NextOrderNumber increments the restaurant-scoped order counter and returns
// the new value formatted for receipts.
func (r *GormOrderRepository) NextOrderNumber(ctx context.Context, restaurantID uuid.UUID) (string, error) {
	var seq int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Restaurant{}).
			Where("id = ?", restaurantID).
			UpdateColumn("order_seq", gorm.Expr("order_seq + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.Restaurant{}).
			Where("id = ?", restaurantID).
			Pluck("order_seq", &seq).Error
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", seq), nil
}
