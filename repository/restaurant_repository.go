package repository

import (
	"context"
	"time"

	"github.com/BenyD/DineEasy-sub000/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RestaurantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Restaurant, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*models.Restaurant, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
}

type MenuItemRepository interface {
	PrepTimes(ctx context.Context, restaurantID uuid.UUID, menuItemIDs []string) (map[string]int, error)
}

type gormRestaurantRepo struct {
	db *gorm.DB
}

func NewGormRestaurantRepo(db *gorm.DB) RestaurantRepository {
	return &gormRestaurantRepo{db: db}
}

func (r *gormRestaurantRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&restaurant).Error; err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (r *gormRestaurantRepo) FindByStripeCustomerID(ctx context.Context, customerID string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := r.db.WithContext(ctx).
		Where("stripe_customer_id = ?", customerID).
		First(&restaurant).Error; err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (r *gormRestaurantRepo) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return r.db.WithContext(ctx).
		Model(&models.Restaurant{}).
		Where("id = ?", id).
		Updates(updates).Error
}

type gormMenuItemRepo struct {
	db *gorm.DB
}

func NewGormMenuItemRepo(db *gorm.DB) MenuItemRepository {
	return &gormMenuItemRepo{db: db}
}

// PrepTimes returns preparation minutes keyed by menu item id. Items missing
// from the result simply were not found; the caller falls back to a default.
func (r *gormMenuItemRepo) PrepTimes(ctx context.Context, restaurantID uuid.UUID, menuItemIDs []string) (map[string]int, error) {
	var items []models.MenuItem
	if err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND id IN ?", restaurantID, menuItemIDs).
		Find(&items).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(items))
	for _, item := range items {
		out[item.ID] = item.PrepTimeMinutes
	}
	return out, nil
}
