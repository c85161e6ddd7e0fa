package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/BenyD/DineEasy-sub000/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Per-transaction bounds for card payments, in currency units.
const (
	MinCardAmount = 0.5
	MaxCardAmount = 1000.0
)

// Settlement currencies the platform supports for card payments.
var supportedCurrencies = map[string]bool{
	"chf": true,
	"eur": true,
	"usd": true,
	"gbp": true,
}

const payAtCounterDisabled = "Restaurant payment processing is temporarily disabled. Please pay at the counter."

type EligibilityResult struct {
	IsValid    bool
	Restaurant *models.Restaurant
	Error      string
}

// CheckEligibility verifies the restaurant can accept a card payment of the
// given amount. It fails closed on a missing or disabled payment profile and
// returns the restaurant on success so callers avoid a second fetch.
func (s *QRPaymentService) CheckEligibility(ctx context.Context, restaurantID string, amount float64) EligibilityResult {
	id, err := uuid.Parse(restaurantID)
	if err != nil {
		return EligibilityResult{Error: "Invalid restaurant ID"}
	}

	restaurant, err := s.restaurants.FindByID(ctx, id)
	if err != nil {
		return EligibilityResult{Error: payAtCounterDisabled}
	}

	if restaurant.StripeAccountID == nil || *restaurant.StripeAccountID == "" {
		return EligibilityResult{Error: payAtCounterDisabled}
	}
	if !restaurant.StripeAccountEnabled {
		return EligibilityResult{Error: payAtCounterDisabled}
	}

	// Hosted connected accounts are pre-approved; outstanding requirements
	// do not block, only a literal past-due list is worth a warning.
	if len(restaurant.PastDueRequirements) > 0 {
		s.logger.Warn("Connected account has past-due requirements",
			zap.String("restaurant_id", restaurantID),
			zap.Strings("requirements", restaurant.PastDueRequirements),
		)
	}

	if amount < MinCardAmount {
		return EligibilityResult{
			Error: fmt.Sprintf("Card payments require a minimum amount of %.2f", MinCardAmount),
		}
	}
	if amount > MaxCardAmount {
		return EligibilityResult{
			Error: fmt.Sprintf("The order exceeds the maximum of %.2f for card payments. Please pay at the counter.", MaxCardAmount),
		}
	}

	if !supportedCurrencies[strings.ToLower(restaurant.Currency)] {
		return EligibilityResult{
			Error: "Card payments are not available for this currency. Please pay at the counter.",
		}
	}

	return EligibilityResult{IsValid: true, Restaurant: restaurant}
}
