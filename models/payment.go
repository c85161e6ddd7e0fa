package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
	PaymentStatusDisputed  = "disputed"
)

// Payment methods.
const (
	PaymentMethodCard  = "card"
	PaymentMethodCash  = "cash"
	PaymentMethodOther = "other"
)

// PaymentMetadata is the closed record carried in the payment metadata bag.
// Stripe metadata is string-keyed/string-valued, so every field stays a string.
type PaymentMetadata struct {
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	TableID        string `json:"table_id,omitempty"`
	Source         string `json:"source,omitempty"`
}

// Payment is the financial record for one order's settlement attempt.
// OrderID is deliberately a plain index, not a unique one: more than one row
// per order can exist transiently and callers tolerate that with a warning.
type Payment struct {
	Payment_ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"payment_id"`
	RestaurantID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	OrderID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	Amount             float64         `gorm:"not null" json:"amount"`
	Currency           string          `gorm:"type:varchar(10);not null" json:"currency"`
	Status             string          `gorm:"type:varchar(20);not null" json:"status"`
	Method             string          `gorm:"type:varchar(10);not null" json:"method"`
	StripePaymentID    *string         `gorm:"uniqueIndex" json:"stripe_payment_id,omitempty"`
	StripeRefundID     *string         `json:"stripe_refund_id,omitempty"`
	Metadata           PaymentMetadata `gorm:"serializer:json" json:"metadata"`
	StripeEventPayload *string         `gorm:"type:text" json:"-"`
	SucceededAt        *time.Time      `json:"succeeded_at,omitempty"`
	FailedAt           *time.Time      `json:"failed_at,omitempty"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
