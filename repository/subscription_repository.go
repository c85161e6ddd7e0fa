package repository

import (
	"context"

	"github.com/BenyD/DineEasy-sub000/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubscriptionRepository interface {
	FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error)
	// UpsertByStripeID creates or replaces the row keyed by the gateway
	// subscription id, so webhook redelivery converges on the same state.
	UpsertByStripeID(ctx context.Context, sub *models.Subscription) error
	DeleteByStripeID(ctx context.Context, stripeSubscriptionID string) error
	// HasOtherActive reports whether the restaurant has another
	// active/trialing/past-due subscription besides the one given.
	HasOtherActive(ctx context.Context, restaurantID uuid.UUID, excludeStripeID string) (bool, error)
}

type gormSubscriptionRepo struct {
	db *gorm.DB
}

func NewGormSubscriptionRepo(db *gorm.DB) SubscriptionRepository {
	return &gormSubscriptionRepo{db: db}
}

func (r *gormSubscriptionRepo) FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		First(&sub).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormSubscriptionRepo) UpsertByStripeID(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Subscription
		err := tx.Where("stripe_subscription_id = ?", sub.StripeSubscriptionID).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			return tx.Create(sub).Error
		}
		if err != nil {
			return err
		}
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
		return tx.Save(sub).Error
	})
}

func (r *gormSubscriptionRepo) DeleteByStripeID(ctx context.Context, stripeSubscriptionID string) error {
	return r.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Delete(&models.Subscription{}).Error
}

func (r *gormSubscriptionRepo) HasOtherActive(ctx context.Context, restaurantID uuid.UUID, excludeStripeID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("restaurant_id = ? AND stripe_subscription_id <> ? AND status IN ?",
			restaurantID, excludeStripeID,
			[]string{models.SubscriptionStatusActive, models.SubscriptionStatusTrialing, models.SubscriptionStatusPastDue}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
