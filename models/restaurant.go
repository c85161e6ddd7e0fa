package models

import (
	"time"

	"github.com/google/uuid"
)

// Restaurant carries the merchant payment profile used for eligibility
// checks plus the billing state the subscription webhooks maintain.
type Restaurant struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name                 string    `gorm:"not null" json:"name"`
	Currency             string    `gorm:"type:varchar(10);not null;default:'chf'" json:"currency"`
	StripeAccountID      *string   `gorm:"index" json:"stripe_account_id,omitempty"`
	StripeAccountEnabled bool      `gorm:"not null;default:false" json:"stripe_account_enabled"`
	StripeCustomerID     *string   `gorm:"index" json:"stripe_customer_id,omitempty"`
	PastDueRequirements  []string  `gorm:"serializer:json" json:"past_due_requirements,omitempty"`
	CommissionRate       float64   `gorm:"not null;default:0.02" json:"commission_rate"`
	BillingPlan          string    `gorm:"type:varchar(20)" json:"billing_plan"`
	BillingStatus        string    `gorm:"type:varchar(20)" json:"billing_status"`
	OrderSeq             int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// MenuItem holds the subset of the menu this service reads: preparation
// times for the estimate on new orders.
type MenuItem struct {
	ID              string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	RestaurantID    uuid.UUID `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	Name            string    `gorm:"not null" json:"name"`
	Price           float64   `gorm:"not null" json:"price"`
	PrepTimeMinutes int       `gorm:"not null;default:10" json:"prep_time_minutes"`
}
