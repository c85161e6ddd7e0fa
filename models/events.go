package models

import "time"

// PaymentEvent is the standardized payload published to SNS whenever a
// payment reaches a terminal state.
type PaymentEvent struct {
	Type         string    `json:"type"` // payment_succeeded, payment_failed, payment_refunded, payment_disputed
	RestaurantID string    `json:"restaurant_id"`
	OrderID      string    `json:"order_id"`
	PaymentID    string    `json:"payment_id,omitempty"`
	Amount       float64   `json:"amount"`
	Currency     string    `json:"currency"`
	Timestamp    time.Time `json:"timestamp"`
}

// OrderEvent is published to the kitchen topic on order lifecycle changes.
type OrderEvent struct {
	Type             string    `json:"type"` // order_created, order_paid, order_cancelled
	OrderID          string    `json:"order_id"`
	RestaurantID     string    `json:"restaurant_id"`
	TableID          string    `json:"table_id"`
	OrderNumber      string    `json:"order_number"`
	Total            float64   `json:"total"`
	EstimatedMinutes int       `json:"estimated_minutes,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// SubscriptionEvent is published when the reconciler changes a merchant's
// billing state and no newer subscription supersedes the change.
type SubscriptionEvent struct {
	Type         string    `json:"type"` // subscription_updated, subscription_canceled, subscription_refunded
	RestaurantID string    `json:"restaurant_id"`
	Plan         string    `json:"plan,omitempty"`
	Status       string    `json:"status,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
