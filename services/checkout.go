package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/BenyD/DineEasy-sub000/models"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

const checkoutSessionAttempts = 3

// createCheckoutSession builds and submits the hosted-checkout request for
// an already-written order. The order total goes out as a single summarized
// line item so per-item detail never leaves the platform; the idempotency
// key is attached at the gateway-call level so a network retry of this exact
// call cannot create two sessions.
func (s *QRPaymentService) createCheckoutSession(ctx context.Context, payload *QRPaymentPayload, restaurant *models.Restaurant, orderID uuid.UUID) (*stripe.CheckoutSession, *ServiceError) {
	currency := strings.ToLower(restaurant.Currency)
	amountMinor := toMinorUnits(payload.Total)
	feeMinor := toMinorUnits(payload.Total * s.platformFeeRate)

	meta := models.CheckoutMetadata{
		RestaurantID:   payload.RestaurantID,
		OrderID:        orderID.String(),
		TableID:        payload.TableID,
		IdempotencyKey: payload.IdempotencyKey,
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Table order at %s", restaurant.Name)),
					},
					UnitAmount: stripe.Int64(amountMinor),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(fmt.Sprintf("%s/qr/order/%s?session_id={CHECKOUT_SESSION_ID}", s.frontendURL, orderID)),
		CancelURL:  stripe.String(fmt.Sprintf("%s/qr/order/%s/cancelled", s.frontendURL, orderID)),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(feeMinor),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(*restaurant.StripeAccountID),
			},
			Metadata: meta.ToMap(),
		},
	}
	params.Metadata = meta.ToMap()
	if payload.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(payload.CustomerEmail)
	}
	params.SetIdempotencyKey(payload.IdempotencyKey)

	var sess *stripe.CheckoutSession
	var lastInfo PaymentErrorInfo
	err := retryLinearIf(checkoutSessionAttempts, time.Second, func() error {
		var callErr error
		sess, callErr = s.stripe.CreateCheckoutSession(params)
		if callErr != nil {
			lastInfo = ClassifyPaymentError(callErr)
		}
		return callErr
	}, func(error) bool {
		return lastInfo.Type == PaymentErrRateLimit
	})

	if err != nil {
		s.logger.Error("Checkout session creation failed",
			zap.String("order_id", orderID.String()),
			zap.String("error_type", lastInfo.Type),
			zap.String("code", lastInfo.Code),
			zap.String("decline_code", lastInfo.DeclineCode),
			zap.Error(err),
		)
		switch lastInfo.Type {
		case PaymentErrRateLimit:
			return nil, serverError("Payment service is busy. Please try again in a moment.")
		case PaymentErrInvalidRequest, PaymentErrAuthentication:
			// Configuration-shaped failure (e.g. a bad transfer
			// destination); the customer cannot fix this by retrying.
			return nil, badRequest("Card payments are unavailable right now. Please pay at the counter.")
		case PaymentErrCard:
			return nil, badRequest(lastInfo.UserMessage)
		default:
			return nil, serverError("Payment could not be processed. Please try again.")
		}
	}

	return sess, nil
}

// toMinorUnits converts a decimal currency amount to gateway minor units.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
