package models

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses. A pending order has not been confirmed by a payment yet
// and is the only state the failure-cleanup path is allowed to act on.
const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusServed    = "served"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

type Order struct {
	ID                    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RestaurantID          uuid.UUID `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	TableID               string    `gorm:"type:varchar(64);not null;index" json:"table_id"`
	OrderNumber           string    `gorm:"not null" json:"order_number"`
	Status                string    `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Subtotal              float64   `gorm:"not null" json:"subtotal"`
	Tax                   float64   `json:"tax"`
	Tip                   float64   `json:"tip"`
	Total                 float64   `gorm:"not null" json:"total"`
	CustomerName          *string   `gorm:"type:varchar(100)" json:"customer_name,omitempty"`
	CustomerEmail         *string   `gorm:"type:varchar(255)" json:"customer_email,omitempty"`
	Notes                 *string   `gorm:"type:varchar(500)" json:"notes,omitempty"`
	StripeSessionID       *string   `gorm:"index" json:"stripe_session_id,omitempty"`
	StripePaymentIntentID *string   `gorm:"index" json:"stripe_payment_intent_id,omitempty"`
	EstimatedMinutes      int       `gorm:"not null;default:15" json:"estimated_minutes"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	OrderItems []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items"`
}

// OrderItem is a frozen snapshot of a menu item at order time. It is created
// once with its order and never mutated afterwards.
type OrderItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	MenuItemID  string    `gorm:"type:varchar(64);not null" json:"menu_item_id"`
	Name        string    `gorm:"not null" json:"name"`
	Price       float64   `gorm:"not null" json:"price"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	Size        *string   `gorm:"type:varchar(32)" json:"size,omitempty"`
	Modifiers   *string   `gorm:"type:text" json:"modifiers,omitempty"`
	ComboMealID *string   `gorm:"type:varchar(64)" json:"combo_meal_id,omitempty"`
	LineTotal   float64   `gorm:"not null" json:"line_total"`
}
