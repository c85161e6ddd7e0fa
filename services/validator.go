package services

import (
	"fmt"
	"math"
	"regexp"
)

// Validation ceilings for a single QR order.
const (
	MaxItemPrice     = 10000.0
	MaxOrderTotal    = 10000.0
	MaxItemQuantity  = 100
	MaxOrderItems    = 50
	MaxCustomerName  = 100
	MaxNotesLength   = 500
	AmountEpsilon    = 0.01
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// CartItem is one line of the submitted cart, a client-side snapshot the
// validator re-checks against the declared totals.
type CartItem struct {
	ID          string  `json:"id" binding:"required"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Size        string  `json:"size,omitempty"`
	Modifiers   string  `json:"modifiers,omitempty"`
	ComboMealID string  `json:"combo_meal_id,omitempty"`
}

// QRPaymentPayload is the incoming cart/payment payload from a table's QR
// session.
type QRPaymentPayload struct {
	RestaurantID   string     `json:"restaurant_id"`
	TableID        string     `json:"table_id"`
	Items          []CartItem `json:"items"`
	Subtotal       float64    `json:"subtotal"`
	Tax            float64    `json:"tax"`
	Tip            float64    `json:"tip"`
	Total          float64    `json:"total"`
	CustomerName   string     `json:"customer_name,omitempty"`
	CustomerEmail  string     `json:"customer_email,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	IdempotencyKey string     `json:"idempotency_key,omitempty"`
}

type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors,omitempty"`
}

// ValidateOrderPayload checks the payload for structural and business-rule
// correctness. Pure, no I/O; every failing check is collected so the caller
// sees all problems at once.
func ValidateOrderPayload(p *QRPaymentPayload) ValidationResult {
	var errs []string

	if p.RestaurantID == "" {
		errs = append(errs, "Restaurant ID is required")
	}
	if p.TableID == "" {
		errs = append(errs, "Table ID is required")
	}
	if len(p.Items) == 0 {
		errs = append(errs, "Order must contain at least one item")
	}
	if len(p.Items) > MaxOrderItems {
		errs = append(errs, fmt.Sprintf("Order cannot contain more than %d items", MaxOrderItems))
	}

	if p.Total <= 0 {
		errs = append(errs, "Order total must be greater than zero")
	}
	if p.Subtotal <= 0 {
		errs = append(errs, "Order subtotal must be greater than zero")
	}
	if p.Tax < 0 {
		errs = append(errs, "Tax cannot be negative")
	}
	if p.Tip < 0 {
		errs = append(errs, "Tip cannot be negative")
	}
	if p.Total > MaxOrderTotal {
		errs = append(errs, fmt.Sprintf("Order total cannot exceed %.0f", MaxOrderTotal))
	}

	computedSubtotal := 0.0
	for i, item := range p.Items {
		pos := i + 1
		if item.ID == "" {
			errs = append(errs, fmt.Sprintf("Item %d: ID is required", pos))
		}
		if item.Name == "" {
			errs = append(errs, fmt.Sprintf("Item %d: name is required", pos))
		}
		if item.Price <= 0 {
			errs = append(errs, fmt.Sprintf("Item %d: price must be greater than zero", pos))
		}
		if item.Price > MaxItemPrice {
			errs = append(errs, fmt.Sprintf("Item %d: price exceeds the maximum of %.0f", pos, MaxItemPrice))
		}
		if item.Quantity < 1 || item.Quantity > MaxItemQuantity {
			errs = append(errs, fmt.Sprintf("Item %d: quantity must be between 1 and %d", pos, MaxItemQuantity))
		}
		computedSubtotal += item.Price * float64(item.Quantity)
	}

	// Recompute totals against the declared values; a stale or tampered
	// client cart must not be trusted.
	if len(p.Items) > 0 && math.Abs(computedSubtotal-p.Subtotal) > AmountEpsilon {
		errs = append(errs, fmt.Sprintf(
			"Subtotal calculation mismatch: expected %.2f, got %.2f", computedSubtotal, p.Subtotal))
	}
	if math.Abs((p.Subtotal+p.Tax+p.Tip)-p.Total) > AmountEpsilon {
		errs = append(errs, fmt.Sprintf(
			"Total calculation mismatch: expected %.2f, got %.2f", p.Subtotal+p.Tax+p.Tip, p.Total))
	}

	if p.CustomerEmail != "" && !emailPattern.MatchString(p.CustomerEmail) {
		errs = append(errs, "Customer email is invalid")
	}
	if len(p.CustomerName) > MaxCustomerName {
		errs = append(errs, fmt.Sprintf("Customer name must be %d characters or fewer", MaxCustomerName))
	}
	if len(p.Notes) > MaxNotesLength {
		errs = append(errs, fmt.Sprintf("Special instructions must be %d characters or fewer", MaxNotesLength))
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}
