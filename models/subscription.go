package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription statuses considered "alive" when deciding whether a deleted
// subscription was superseded by an upgrade.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

// Subscription mirrors the merchant's billing subscription at the gateway.
// Rows are upserted keyed by StripeSubscriptionID so webhook redelivery is a
// no-op write.
type Subscription struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RestaurantID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	StripeSubscriptionID string     `gorm:"uniqueIndex;not null" json:"stripe_subscription_id"`
	Plan                 string     `gorm:"type:varchar(20)" json:"plan"`
	Interval             string     `gorm:"type:varchar(10)" json:"interval"`
	Status               string     `gorm:"type:varchar(20);not null" json:"status"`
	CurrentPeriodStart   *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
	TrialStart           *time.Time `json:"trial_start,omitempty"`
	TrialEnd             *time.Time `json:"trial_end,omitempty"`
	CancelAt             *time.Time `json:"cancel_at,omitempty"`
	CanceledAt           *time.Time `json:"canceled_at,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
