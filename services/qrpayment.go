package services

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/BenyD/DineEasy-sub000/cache"
	"github.com/BenyD/DineEasy-sub000/events"
	"github.com/BenyD/DineEasy-sub000/models"
	"github.com/BenyD/DineEasy-sub000/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ServiceError carries an HTTP status and a human-readable sentence the UI
// displays verbatim. Expected failures are values, never panics.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func badRequest(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusBadRequest, Message: msg}
}

func serverError(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusInternalServerError, Message: msg}
}

// CheckoutStateStore is the best-effort request-state record per checkout
// idempotency key. Implemented by cache.IdempotencyStore; nil disables it.
type CheckoutStateStore interface {
	Get(ctx context.Context, restaurantID, idemKey string) (cache.CheckoutState, bool, error)
	Put(ctx context.Context, restaurantID string, state cache.CheckoutState) error
}

// OrderEventPublisher publishes kitchen-facing order events, best-effort.
type OrderEventPublisher interface {
	SendOrderEvent(event models.OrderEvent) error
}

// QRPaymentService implements the QR ordering checkout path: order creation,
// checkout-session creation, cash settlement and the post-checkout reads.
type QRPaymentService struct {
	orders      repository.OrderRepository
	payments    repository.PaymentRepository
	restaurants repository.RestaurantRepository
	menu        repository.MenuItemRepository
	stripe      StripeAPI
	idem        CheckoutStateStore
	sns         events.SNSPublisher
	kitchen     OrderEventPublisher
	logger      *zap.Logger

	frontendURL     string
	snsTopicArn     string
	platformFeeRate float64
}

func NewQRPaymentService(
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	restaurants repository.RestaurantRepository,
	menu repository.MenuItemRepository,
	stripeAPI StripeAPI,
	idem CheckoutStateStore,
	sns events.SNSPublisher,
	kitchen OrderEventPublisher,
	logger *zap.Logger,
	frontendURL string,
	snsTopicArn string,
	platformFeeRate float64,
) *QRPaymentService {
	return &QRPaymentService{
		orders:          orders,
		payments:        payments,
		restaurants:     restaurants,
		menu:            menu,
		stripe:          stripeAPI,
		idem:            idem,
		sns:             sns,
		kitchen:         kitchen,
		logger:          logger,
		frontendURL:     frontendURL,
		snsTopicArn:     snsTopicArn,
		platformFeeRate: platformFeeRate,
	}
}

// QRPaymentIntentResult is returned to the client which redirects the
// customer to the hosted checkout.
type QRPaymentIntentResult struct {
	CheckoutURL string `json:"checkout_url"`
	OrderID     string `json:"order_id"`
	SessionID   string `json:"session_id"`
}

type CashOrderResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id"`
}

type QROrderDetails struct {
	Order   *models.Order   `json:"order"`
	Payment *models.Payment `json:"payment,omitempty"`
}

// CreateQRPaymentIntent validates the cart, creates the order and a hosted
// checkout session bound to it. If session creation fails after the order
// was written, the order is deleted again (compensating action).
func (s *QRPaymentService) CreateQRPaymentIntent(ctx context.Context, payload *QRPaymentPayload) (*QRPaymentIntentResult, *ServiceError) {
	if result := ValidateOrderPayload(payload); !result.IsValid {
		return nil, badRequest(result.Errors[0])
	}

	elig := s.CheckEligibility(ctx, payload.RestaurantID, payload.Total)
	if !elig.IsValid {
		return nil, badRequest(elig.Error)
	}
	restaurant := elig.Restaurant

	if payload.IdempotencyKey == "" {
		payload.IdempotencyKey = uuid.New().String()
	}

	// Best-effort replay detection: a retried request with the same key
	// returns the session we already created. Read-then-write with no lock;
	// the gateway-level idempotency key is the real dedup.
	if s.idem != nil {
		state, found, err := s.idem.Get(ctx, payload.RestaurantID, payload.IdempotencyKey)
		if err != nil {
			s.logger.Warn("Idempotency state lookup failed", zap.Error(err))
		} else if found && state.Status == cache.StateSucceeded && state.SessionID != "" {
			sess, err := s.stripe.GetCheckoutSession(state.SessionID)
			if err == nil && sess.URL != "" {
				return &QRPaymentIntentResult{
					CheckoutURL: sess.URL,
					OrderID:     state.OrderID,
					SessionID:   state.SessionID,
				}, nil
			}
		}
	}

	orderID, svcErr := s.createOrder(ctx, payload, models.PaymentMethodCard, restaurant)
	if svcErr != nil {
		return nil, svcErr
	}

	sess, svcErr := s.createCheckoutSession(ctx, payload, restaurant, orderID)
	if svcErr != nil {
		// The order never represented real kitchen work; remove it so no
		// orphaned pending order survives a failed payment setup.
		s.compensateOrderCreation(ctx, orderID)
		s.putCheckoutState(ctx, payload, cache.CheckoutState{
			IdempotencyKey: payload.IdempotencyKey,
			Status:         cache.StateFailed,
			OrderID:        orderID.String(),
			Reason:         svcErr.Message,
		})
		return nil, svcErr
	}

	if err := s.orders.UpdateFields(ctx, orderID, map[string]interface{}{
		"stripe_session_id": sess.ID,
	}); err != nil {
		s.logger.Warn("Failed to record checkout session on order",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
	}

	s.putCheckoutState(ctx, payload, cache.CheckoutState{
		IdempotencyKey: payload.IdempotencyKey,
		Status:         cache.StateSucceeded,
		OrderID:        orderID.String(),
		SessionID:      sess.ID,
	})

	s.logger.Info("Checkout session created",
		zap.String("order_id", orderID.String()),
		zap.String("session_id", sess.ID),
	)

	return &QRPaymentIntentResult{
		CheckoutURL: sess.URL,
		OrderID:     orderID.String(),
		SessionID:   sess.ID,
	}, nil
}

// CreateCashOrder creates the order together with a pending cash payment
// row. No gateway involvement; staff settles it later.
func (s *QRPaymentService) CreateCashOrder(ctx context.Context, payload *QRPaymentPayload) (*CashOrderResult, *ServiceError) {
	if result := ValidateOrderPayload(payload); !result.IsValid {
		return nil, badRequest(result.Errors[0])
	}

	orderID, svcErr := s.createOrder(ctx, payload, models.PaymentMethodCash, nil)
	if svcErr != nil {
		return nil, svcErr
	}

	return &CashOrderResult{Success: true, OrderID: orderID.String()}, nil
}

// CompleteCashOrder flips a pending cash payment to completed, and the
// order to completed when the food has already been served.
func (s *QRPaymentService) CompleteCashOrder(ctx context.Context, orderID uuid.UUID) *ServiceError {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return &ServiceError{StatusCode: http.StatusNotFound, Message: "Order not found"}
	}

	payment := s.paymentForOrder(ctx, orderID)
	if payment == nil || payment.Method != models.PaymentMethodCash {
		return badRequest("No cash payment found for this order")
	}
	if payment.Status == models.PaymentStatusCompleted {
		return nil
	}

	now := time.Now()
	if err := s.payments.UpdateByID(ctx, payment.Payment_ID, map[string]interface{}{
		"status":       models.PaymentStatusCompleted,
		"succeeded_at": &now,
	}); err != nil {
		s.logger.Error("Failed to complete cash payment",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		return serverError("Failed to complete the payment")
	}

	if order.Status == models.OrderStatusServed {
		if _, err := s.orders.UpdateStatusIf(ctx, orderID, models.OrderStatusServed, models.OrderStatusCompleted); err != nil {
			s.logger.Warn("Failed to auto-complete served order", zap.Error(err))
		}
	} else if order.Status == models.OrderStatusPending {
		if _, err := s.orders.UpdateStatusIf(ctx, orderID, models.OrderStatusPending, models.OrderStatusPreparing); err != nil {
			s.logger.Warn("Failed to promote order after cash payment", zap.Error(err))
		}
	}

	s.publishPaymentEvent(ctx, models.PaymentEvent{
		Type:         "payment_succeeded",
		RestaurantID: order.RestaurantID.String(),
		OrderID:      orderID.String(),
		PaymentID:    payment.Payment_ID.String(),
		Amount:       payment.Amount,
		Currency:     payment.Currency,
		Timestamp:    now.UTC(),
	})

	return nil
}

// ConfirmQRPayment is the success-URL landing check: it retrieves the bound
// session from the gateway and, if paid, applies the same success path the
// webhook uses. Safe to call before or after the webhook arrives.
func (s *QRPaymentService) ConfirmQRPayment(ctx context.Context, orderID uuid.UUID) (string, *ServiceError) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return "", &ServiceError{StatusCode: http.StatusNotFound, Message: "Order not found"}
	}
	if order.StripeSessionID == nil || *order.StripeSessionID == "" {
		return "", badRequest("This order has no card payment to confirm")
	}

	sess, err := s.stripe.GetCheckoutSession(*order.StripeSessionID)
	if err != nil {
		info := ClassifyPaymentError(err)
		s.logger.Error("Failed to retrieve checkout session",
			zap.String("order_id", orderID.String()),
			zap.String("error_type", info.Type),
			zap.Error(err),
		)
		return "", serverError("Could not verify the payment status. Please try again.")
	}

	if sess.PaymentStatus != "paid" {
		return "Payment has not completed yet", nil
	}

	paymentIntentID := ""
	if sess.PaymentIntent != nil {
		paymentIntentID = sess.PaymentIntent.ID
	}
	if err := s.ApplyPaymentSuccess(ctx, order, paymentIntentID, order.Total, nil); err != nil {
		return "", serverError("Payment received but the order could not be updated. Staff has been notified.")
	}
	return "Payment confirmed", nil
}

// GetQROrderDetails returns the order, its items and the payment summary
// for the post-checkout status page.
func (s *QRPaymentService) GetQROrderDetails(ctx context.Context, orderID uuid.UUID) (*QROrderDetails, *ServiceError) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Order not found"}
	}
	return &QROrderDetails{
		Order:   order,
		Payment: s.paymentForOrder(ctx, orderID),
	}, nil
}

// paymentForOrder returns the first payment row for the order, logging a
// warning when more than one exists. Multiple rows are tolerated, not fixed.
func (s *QRPaymentService) paymentForOrder(ctx context.Context, orderID uuid.UUID) *models.Payment {
	payments, err := s.payments.FindAllByOrderID(ctx, orderID)
	if err != nil || len(payments) == 0 {
		return nil
	}
	if len(payments) > 1 {
		s.logger.Warn("Multiple payment rows exist for order",
			zap.String("order_id", orderID.String()),
			zap.Int("count", len(payments)),
		)
	}
	return &payments[0]
}

func (s *QRPaymentService) putCheckoutState(ctx context.Context, payload *QRPaymentPayload, state cache.CheckoutState) {
	if s.idem == nil {
		return
	}
	if err := s.idem.Put(ctx, payload.RestaurantID, state); err != nil {
		s.logger.Warn("Failed to record idempotency state", zap.Error(err))
	}
}

// publishPaymentEvent publishes to SNS, best-effort.
func (s *QRPaymentService) publishPaymentEvent(ctx context.Context, event models.PaymentEvent) {
	if s.sns == nil || s.snsTopicArn == "" {
		return
	}
	payload, _ := json.Marshal(event)
	if err := s.sns.Publish(ctx, s.snsTopicArn, payload); err != nil {
		s.logger.Error("Failed to publish payment event",
			zap.String("event_type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("Payment event published",
		zap.String("event_type", event.Type),
		zap.String("order_id", event.OrderID),
	)
}

// publishOrderEvent publishes to the kitchen topic, best-effort.
func (s *QRPaymentService) publishOrderEvent(event models.OrderEvent) {
	if s.kitchen == nil {
		return
	}
	if err := s.kitchen.SendOrderEvent(event); err != nil {
		s.logger.Warn("Failed to publish kitchen order event",
			zap.String("event_type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}
