package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/BenyD/DineEasy-sub000/models"
	"github.com/BenyD/DineEasy-sub000/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(
		&models.Restaurant{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Subscription{},
	))
	return db
}

func seedRestaurant(t *testing.T, db *gorm.DB) *models.Restaurant {
	t.Helper()
	acct := "acct_123"
	restaurant := &models.Restaurant{
		ID:                   uuid.New(),
		Name:                 "Cafe Milano",
		Currency:             "chf",
		StripeAccountID:      &acct,
		StripeAccountEnabled: true,
	}
	assert.NoError(t, db.Create(restaurant).Error)
	return restaurant
}

func newOrder(restaurantID uuid.UUID) *models.Order {
	orderID := uuid.New()
	return &models.Order{
		ID:           orderID,
		RestaurantID: restaurantID,
		TableID:      "table-7",
		OrderNumber:  "0001",
		Status:       models.OrderStatusPending,
		Subtotal:     25.00,
		Tax:          2.00,
		Tip:          3.00,
		Total:        30.00,
		OrderItems: []models.OrderItem{
			{ID: uuid.New(), OrderID: orderID, MenuItemID: "item-1", Name: "Burger", Price: 12.50, Quantity: 2, LineTotal: 25.00},
		},
	}
}

func TestOrderRepo_CreateWithItemsAndFindByID(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewGormOrderRepository(db)
	restaurant := seedRestaurant(t, db)

	order := newOrder(restaurant.ID)
	assert.NoError(t, repo.CreateWithItems(context.Background(), order))

	found, err := repo.FindByID(context.Background(), order.ID)
	assert.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	assert.Len(t, found.OrderItems, 1)
	assert.Equal(t, "Burger", found.OrderItems[0].Name)
}

func TestOrderRepo_CreateWithItemsDuplicateID(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewGormOrderRepository(db)
	restaurant := seedRestaurant(t, db)

	order := newOrder(restaurant.ID)
	assert.NoError(t, repo.CreateWithItems(context.Background(), order))

	dup := newOrder(restaurant.ID)
	dup.ID = order.ID
	dup.OrderItems = nil
	err := repo.CreateWithItems(context.Background(), dup)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestOrderRepo_FindPendingByTable(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewGormOrderRepository(db)
	restaurant := seedRestaurant(t, db)

	order := newOrder(restaurant.ID)
	assert.NoError(t, repo.CreateWithItems(context.Background(), order))

	found, err := repo.FindPendingByTable(context.Background(), restaurant.ID, "table-7", time.Now().Add(-5*time.Minute))
	assert.NoError(t, err)
	assert.NotNil(t, found)
	assert.Equal(t, order.ID, found.ID)

	// Other tables and old windows come back empty, not erroring.
	none, err := repo.FindPendingByTable(context.Background(), restaurant.ID, "table-9", time.Now().Add(-5*time.Minute))
	assert.NoError(t, err)
	assert.Nil(t, none)

	none, err = repo.FindPendingByTable(context.Background(), restaurant.ID, "table-7", time.Now().Add(time.Minute))
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestOrderRepo_FindPendingByTableIgnoresNonPending(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewGormOrderRepository(db)
	restaurant := seedRestaurant(t, db)

	order := newOrder(restaurant.ID)
	order.Status = models.OrderStatusCompleted
	assert.NoError(t, repo.CreateWithItems(context.Background(), order))

	found, err := repo.FindPendingByTable(context.Background(), restaurant.ID, "table-7", time.Now().Add(-5*time.Minute))
	assert.NoError(t, err)
	assert.Nil(t, found)
}

func TestOrderRepo_UpdateStatusIf(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewGormOrderRepository(db)
	restaurant := seedRestaurant(t, db)

	order := newOrder(restaurant.ID)
	assert.NoError(t, repo.CreateWithItems(context.Background(), order))

	changed, err := repo.UpdateStatusIf(context.Background(), order.ID, models.OrderStatusPending, models.OrderStatusPreparing)
	assert.NoError(t, err)
	assert.True(t, changed)

	// Guard: the same transition does not apply twice.
	changed, err = repo.UpdateStatusIf(context.Background(), order.ID, models.OrderStatusPending, models.OrderStatusPreparing)
	assert.NoError(t, err)
	assert.False(t, changed)

	found, err := repo.FindByID(context.Background(), order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusPreparing, found.Status)
}

func TestOrderRepo_DeleteItemsThenOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewGormOrderRepository(db)
	restaurant := seedRestaurant(t, db)

	order := newOrder(restaurant.ID)
	assert.NoError(t, repo.CreateWithItems(context.Background(), order))

	assert.NoError(t, repo.DeleteItems(context.Background(), order.ID))
	assert.NoError(t, repo.Delete(context.Background(), order.ID))

	_, err := repo.FindByID(context.Background(), order.ID)
	assert.Error(t, err)

	var count int64
	assert.NoError(t, db.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOrderRepo_FindByStripeSessionID(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewGormOrderRepository(db)
	restaurant := seedRestaurant(t, db)

	order := newOrder(restaurant.ID)
	assert.NoError(t, repo.CreateWithItems(context.Background(), order))
	assert.NoError(t, repo.UpdateFields(context.Background(), order.ID, map[string]interface{}{
		"stripe_session_id": "cs_test_1",
	}))

	found, err := repo.FindByStripeSessionID(context.Background(), "cs_test_1")
	assert.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
}

func TestOrderRepo_NextOrderNumber(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewGormOrderRepository(db)
	restaurant := seedRestaurant(t, db)

	first, err := repo.NextOrderNumber(context.Background(), restaurant.ID)
	assert.NoError(t, err)
	assert.Equal(t, "0001", first)

	second, err := repo.NextOrderNumber(context.Background(), restaurant.ID)
	assert.NoError(t, err)
	assert.Equal(t, "0002", second)
}

func TestOrderRepo_NextOrderNumberUnknownRestaurant(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewGormOrderRepository(db)

	_, err := repo.NextOrderNumber(context.Background(), uuid.New())
	assert.Error(t, err)
}
