package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/BenyD/DineEasy-sub000/models"
	"github.com/BenyD/DineEasy-sub000/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newSubscription(restaurantID uuid.UUID, stripeID, status string) *models.Subscription {
	return &models.Subscription{
		ID:                   uuid.New(),
		RestaurantID:         restaurantID,
		StripeSubscriptionID: stripeID,
		Plan:                 "pro",
		Interval:             "month",
		Status:               status,
	}
}

func TestSubscriptionRepo_FindByStripeIDMissingIsNil(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewGormSubscriptionRepo(db)

	sub, err := repo.FindByStripeID(context.Background(), "sub_unknown")
	assert.NoError(t, err)
	assert.Nil(t, sub)
}

func TestSubscriptionRepo_UpsertCreatesThenReplaces(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewGormSubscriptionRepo(db)
	restaurant := seedRestaurant(t, db)

	sub := newSubscription(restaurant.ID, "sub_1", models.SubscriptionStatusTrialing)
	assert.NoError(t, repo.UpsertByStripeID(context.Background(), sub))

	// Redelivery with a new local id converges on the existing row.
	replay := newSubscription(restaurant.ID, "sub_1", models.SubscriptionStatusActive)
	trialEnd := time.Now().Add(14 * 24 * time.Hour)
	replay.TrialEnd = &trialEnd
	assert.NoError(t, repo.UpsertByStripeID(context.Background(), replay))

	found, err := repo.FindByStripeID(context.Background(), "sub_1")
	assert.NoError(t, err)
	assert.Equal(t, sub.ID, found.ID)
	assert.Equal(t, models.SubscriptionStatusActive, found.Status)
	assert.NotNil(t, found.TrialEnd)

	var count int64
	assert.NoError(t, db.Model(&models.Subscription{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSubscriptionRepo_DeleteByStripeID(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewGormSubscriptionRepo(db)
	restaurant := seedRestaurant(t, db)

	assert.NoError(t, repo.UpsertByStripeID(context.Background(),
		newSubscription(restaurant.ID, "sub_1", models.SubscriptionStatusActive)))
	assert.NoError(t, repo.DeleteByStripeID(context.Background(), "sub_1"))

	sub, err := repo.FindByStripeID(context.Background(), "sub_1")
	assert.NoError(t, err)
	assert.Nil(t, sub)
}

func TestSubscriptionRepo_HasOtherActive(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewGormSubscriptionRepo(db)
	restaurant := seedRestaurant(t, db)

	assert.NoError(t, repo.UpsertByStripeID(context.Background(),
		newSubscription(restaurant.ID, "sub_old", models.SubscriptionStatusActive)))

	// Only the old one exists: nothing supersedes it.
	other, err := repo.HasOtherActive(context.Background(), restaurant.ID, "sub_old")
	assert.NoError(t, err)
	assert.False(t, other)

	assert.NoError(t, repo.UpsertByStripeID(context.Background(),
		newSubscription(restaurant.ID, "sub_new", models.SubscriptionStatusTrialing)))

	other, err = repo.HasOtherActive(context.Background(), restaurant.ID, "sub_old")
	assert.NoError(t, err)
	assert.True(t, other)
}

func TestSubscriptionRepo_HasOtherActiveIgnoresCanceled(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewGormSubscriptionRepo(db)
	restaurant := seedRestaurant(t, db)

	assert.NoError(t, repo.UpsertByStripeID(context.Background(),
		newSubscription(restaurant.ID, "sub_dead", models.SubscriptionStatusCanceled)))

	other, err := repo.HasOtherActive(context.Background(), restaurant.ID, "sub_current")
	assert.NoError(t, err)
	assert.False(t, other)
}
