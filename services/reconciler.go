package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/BenyD/DineEasy-sub000/models"
	"github.com/BenyD/DineEasy-sub000/repository"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// Orders pending longer than this are force-cleaned regardless of the
// failure message (abandoned-cart reaping). Evaluated lazily on next touch.
const abandonedOrderTimeout = 30 * time.Minute

// Failure messages containing any of these mean the payment definitively
// failed: the order never represented real kitchen work and is hard-deleted.
// Anything else is treated as transient and the order is merely cancelled.
var definitiveFailures = []string{
	"insufficient funds",
	"card declined",
	"expired card",
	"incorrect cvc",
	"processing error",
	"invalid request",
	"timeout",
}

// WebhookService reconciles asynchronous gateway events against locally
// created orders, payments and subscriptions. Delivery may be duplicated and
// out of order; every handler is idempotent and status-guarded.
type WebhookService struct {
	qr          *QRPaymentService
	subs        repository.SubscriptionRepository
	restaurants repository.RestaurantRepository
	logger      *zap.Logger
}

func NewWebhookService(qr *QRPaymentService, subs repository.SubscriptionRepository, restaurants repository.RestaurantRepository, logger *zap.Logger) *WebhookService {
	return &WebhookService{
		qr:          qr,
		subs:        subs,
		restaurants: restaurants,
		logger:      logger,
	}
}

// HandleEvent dispatches one verified gateway event.
func (w *WebhookService) HandleEvent(ctx context.Context, event stripe.Event) {
	w.logger.Info("Processing webhook event",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
	)

	rawPayload, _ := json.Marshal(event)

	switch event.Type {
	case "checkout.session.completed":
		w.handleCheckoutCompleted(ctx, event, rawPayload)
	case "checkout.session.expired":
		w.handleCheckoutExpired(ctx, event)
	case "payment_intent.succeeded":
		w.handlePaymentIntentSucceeded(ctx, event, rawPayload)
	case "payment_intent.payment_failed":
		w.handlePaymentIntentFailed(ctx, event)
	case "charge.refunded":
		w.handleChargeRefunded(ctx, event)
	case "charge.dispute.created":
		w.handleDisputeCreated(ctx, event)
	case "customer.subscription.created", "customer.subscription.updated":
		w.handleSubscriptionUpserted(ctx, event)
	case "customer.subscription.deleted":
		w.handleSubscriptionDeleted(ctx, event)
	default:
		w.logger.Info("Unhandled webhook event type", zap.String("event_type", string(event.Type)))
	}
}

func (w *WebhookService) handleCheckoutCompleted(ctx context.Context, event stripe.Event, rawPayload []byte) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		w.logger.Error("Failed to unmarshal checkout session", zap.Error(err))
		return
	}

	meta := models.CheckoutMetadataFromMap(sess.Metadata)
	if meta.IsSubscription() {
		w.applySubscriptionCheckout(ctx, &sess, meta)
		return
	}

	if meta.OrderID == "" {
		w.logger.Warn("Checkout session carries no order id",
			zap.String("session_id", sess.ID),
		)
		return
	}
	orderID, err := uuid.Parse(meta.OrderID)
	if err != nil {
		w.logger.Warn("Checkout session carries an invalid order id",
			zap.String("session_id", sess.ID),
			zap.String("order_id", meta.OrderID),
		)
		return
	}

	order, err := w.qr.orders.FindByID(ctx, orderID)
	if err != nil {
		w.logger.Error("Order not found for completed session",
			zap.String("session_id", sess.ID),
			zap.String("order_id", meta.OrderID),
			zap.Error(err),
		)
		return
	}

	if sess.PaymentStatus != "paid" {
		w.logger.Info("Session completed but not yet paid",
			zap.String("session_id", sess.ID),
			zap.String("payment_status", string(sess.PaymentStatus)),
		)
		return
	}

	paymentIntentID := ""
	if sess.PaymentIntent != nil {
		paymentIntentID = sess.PaymentIntent.ID
	}
	amount := order.Total
	if sess.AmountTotal > 0 {
		amount = float64(sess.AmountTotal) / 100
	}
	if err := w.qr.ApplyPaymentSuccess(ctx, order, paymentIntentID, amount, rawPayload); err != nil {
		w.logger.Error("Failed to apply payment success",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}

func (w *WebhookService) handleCheckoutExpired(ctx context.Context, event stripe.Event) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		w.logger.Error("Failed to unmarshal checkout session", zap.Error(err))
		return
	}
	meta := models.CheckoutMetadataFromMap(sess.Metadata)
	if meta.OrderID == "" {
		return
	}
	if orderID, err := uuid.Parse(meta.OrderID); err == nil {
		w.qr.CleanupFailedOrder(ctx, orderID, "checkout session expired")
	}
}

func (w *WebhookService) handlePaymentIntentSucceeded(ctx context.Context, event stripe.Event, rawPayload []byte) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		w.logger.Error("Failed to unmarshal payment intent", zap.Error(err))
		return
	}

	order := w.orderForPaymentIntent(ctx, &pi)
	if order == nil {
		w.logger.Warn("No order found for succeeded payment intent",
			zap.String("payment_intent_id", pi.ID),
		)
		return
	}

	if err := w.qr.ApplyPaymentSuccess(ctx, order, pi.ID, float64(pi.Amount)/100, rawPayload); err != nil {
		w.logger.Error("Failed to apply payment success",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}

func (w *WebhookService) handlePaymentIntentFailed(ctx context.Context, event stripe.Event) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		w.logger.Error("Failed to unmarshal payment intent", zap.Error(err))
		return
	}

	order := w.orderForPaymentIntent(ctx, &pi)
	if order == nil {
		w.logger.Warn("No order found for failed payment intent",
			zap.String("payment_intent_id", pi.ID),
		)
		return
	}

	message := "payment failed"
	if pi.LastPaymentError != nil {
		if pi.LastPaymentError.DeclineCode != "" {
			message = string(pi.LastPaymentError.DeclineCode)
		} else if pi.LastPaymentError.Code != "" {
			message = string(pi.LastPaymentError.Code)
		} else if pi.LastPaymentError.Msg != "" {
			message = pi.LastPaymentError.Msg
		}
	}

	w.qr.CleanupFailedOrder(ctx, order.ID, message)
}

// orderForPaymentIntent resolves the local order for a payment intent:
// metadata first, then the recorded intent id.
func (w *WebhookService) orderForPaymentIntent(ctx context.Context, pi *stripe.PaymentIntent) *models.Order {
	meta := models.CheckoutMetadataFromMap(pi.Metadata)
	if meta.OrderID != "" {
		if orderID, err := uuid.Parse(meta.OrderID); err == nil {
			if order, err := w.qr.orders.FindByID(ctx, orderID); err == nil {
				return order
			}
		}
	}
	if order, err := w.qr.orders.FindByStripePaymentIntentID(ctx, pi.ID); err == nil {
		return order
	}
	return nil
}

func (w *WebhookService) handleChargeRefunded(ctx context.Context, event stripe.Event) {
	var ch stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
		w.logger.Error("Failed to unmarshal charge", zap.Error(err))
		return
	}

	// An invoice-backed charge belongs to subscription billing, not to a
	// table order.
	if ch.Invoice != nil {
		w.applySubscriptionRefund(ctx, &ch)
		return
	}

	if ch.PaymentIntent == nil {
		w.logger.Warn("Refunded charge carries no payment intent", zap.String("charge_id", ch.ID))
		return
	}

	payment, err := w.qr.payments.FindByStripePaymentID(ctx, ch.PaymentIntent.ID)
	if err != nil {
		w.logger.Warn("No payment found for refunded charge",
			zap.String("payment_intent_id", ch.PaymentIntent.ID),
			zap.Error(err),
		)
		return
	}

	updates := map[string]interface{}{"status": models.PaymentStatusRefunded}
	if ch.Refunds != nil && len(ch.Refunds.Data) > 0 {
		updates["stripe_refund_id"] = ch.Refunds.Data[0].ID
	}
	if err := w.qr.payments.UpdateByID(ctx, payment.Payment_ID, updates); err != nil {
		w.logger.Error("Failed to mark payment refunded",
			zap.String("payment_id", payment.Payment_ID.String()),
			zap.Error(err),
		)
		return
	}

	// Order refunds always notify.
	w.qr.publishPaymentEvent(ctx, models.PaymentEvent{
		Type:         "payment_refunded",
		RestaurantID: payment.RestaurantID.String(),
		OrderID:      payment.OrderID.String(),
		PaymentID:    payment.Payment_ID.String(),
		Amount:       float64(ch.AmountRefunded) / 100,
		Currency:     payment.Currency,
		Timestamp:    time.Now().UTC(),
	})
}

func (w *WebhookService) handleDisputeCreated(ctx context.Context, event stripe.Event) {
	var dispute stripe.Dispute
	if err := json.Unmarshal(event.Data.Raw, &dispute); err != nil {
		w.logger.Error("Failed to unmarshal dispute", zap.Error(err))
		return
	}
	if dispute.PaymentIntent == nil {
		w.logger.Warn("Dispute carries no payment intent", zap.String("dispute_id", dispute.ID))
		return
	}

	payment, err := w.qr.payments.FindByStripePaymentID(ctx, dispute.PaymentIntent.ID)
	if err != nil {
		w.logger.Warn("No payment found for dispute",
			zap.String("payment_intent_id", dispute.PaymentIntent.ID),
			zap.Error(err),
		)
		return
	}

	// The order keeps its status; disputes are a staff/finance concern.
	if err := w.qr.payments.UpdateByID(ctx, payment.Payment_ID, map[string]interface{}{
		"status": models.PaymentStatusDisputed,
	}); err != nil {
		w.logger.Error("Failed to mark payment disputed",
			zap.String("payment_id", payment.Payment_ID.String()),
			zap.Error(err),
		)
		return
	}

	w.qr.publishPaymentEvent(ctx, models.PaymentEvent{
		Type:         "payment_disputed",
		RestaurantID: payment.RestaurantID.String(),
		OrderID:      payment.OrderID.String(),
		PaymentID:    payment.Payment_ID.String(),
		Amount:       payment.Amount,
		Currency:     payment.Currency,
		Timestamp:    time.Now().UTC(),
	})
}

// ApplyPaymentSuccess finalizes the payment record and promotes the order.
// Idempotent: a redelivered success event finds the payment already
// completed and becomes a no-op.
func (s *QRPaymentService) ApplyPaymentSuccess(ctx context.Context, order *models.Order, paymentIntentID string, amount float64, rawPayload []byte) error {
	now := time.Now()

	payment := s.paymentForOrder(ctx, order.ID)
	if payment == nil {
		// Card flow: the payment row is born here, when money moved.
		currency := "chf"
		if restaurant, err := s.restaurants.FindByID(ctx, order.RestaurantID); err == nil {
			currency = strings.ToLower(restaurant.Currency)
		}
		created := &models.Payment{
			Payment_ID:   uuid.New(),
			RestaurantID: order.RestaurantID,
			OrderID:      order.ID,
			Amount:       amount,
			Currency:     currency,
			Status:       models.PaymentStatusCompleted,
			Method:       models.PaymentMethodCard,
			SucceededAt:  &now,
		}
		if paymentIntentID != "" {
			created.StripePaymentID = &paymentIntentID
		}
		if rawPayload != nil {
			payloadStr := string(rawPayload)
			created.StripeEventPayload = &payloadStr
		}
		if err := s.payments.CreatePayment(ctx, created); err != nil {
			if !isDuplicateKey(err) {
				return err
			}
			// Redelivery raced us; the row exists, nothing to do.
		}
		payment = created
	} else if payment.Status == models.PaymentStatusCompleted {
		s.logger.Info("Skipping duplicate payment success",
			zap.String("payment_id", payment.Payment_ID.String()),
		)
		return nil
	} else {
		updates := map[string]interface{}{
			"status":       models.PaymentStatusCompleted,
			"succeeded_at": &now,
		}
		if paymentIntentID != "" {
			updates["stripe_payment_id"] = paymentIntentID
		}
		if rawPayload != nil {
			updates["stripe_event_payload"] = string(rawPayload)
		}
		if err := s.payments.UpdateByID(ctx, payment.Payment_ID, updates); err != nil {
			return err
		}
	}

	if paymentIntentID != "" {
		if err := s.orders.UpdateFields(ctx, order.ID, map[string]interface{}{
			"stripe_payment_intent_id": paymentIntentID,
		}); err != nil {
			s.logger.Warn("Failed to record payment intent on order", zap.Error(err))
		}
	}

	// Payment can arrive after the kitchen already served the food; in that
	// case the order jumps straight to completed.
	if order.Status == models.OrderStatusServed {
		if _, err := s.orders.UpdateStatusIf(ctx, order.ID, models.OrderStatusServed, models.OrderStatusCompleted); err != nil {
			return err
		}
	} else if order.Status == models.OrderStatusPending {
		if _, err := s.orders.UpdateStatusIf(ctx, order.ID, models.OrderStatusPending, models.OrderStatusPreparing); err != nil {
			return err
		}
		s.publishOrderEvent(models.OrderEvent{
			Type:             "order_paid",
			OrderID:          order.ID.String(),
			RestaurantID:     order.RestaurantID.String(),
			TableID:          order.TableID,
			OrderNumber:      order.OrderNumber,
			Total:            order.Total,
			EstimatedMinutes: order.EstimatedMinutes,
			Timestamp:        now.UTC(),
		})
	}

	s.publishPaymentEvent(ctx, models.PaymentEvent{
		Type:         "payment_succeeded",
		RestaurantID: order.RestaurantID.String(),
		OrderID:      order.ID.String(),
		PaymentID:    payment.Payment_ID.String(),
		Amount:       amount,
		Currency:     payment.Currency,
		Timestamp:    now.UTC(),
	})

	return nil
}

// CleanupFailedOrder is the failure-cleanup path shared by webhook failures
// and the direct entry point. Definitive failures hard-delete the order and
// its items; transient ones mark it cancelled, preserving history. Only
// pending orders are touched unless the 30-minute timeout has passed.
func (s *QRPaymentService) CleanupFailedOrder(ctx context.Context, orderID uuid.UUID, failureMessage string) *ServiceError {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		// Already cleaned up (or never existed); nothing to do.
		return nil
	}

	expired := time.Since(order.CreatedAt) > abandonedOrderTimeout
	if !expired && order.Status != models.OrderStatusPending {
		// A later, more authoritative state won; a stale failure
		// notification must not undo it.
		s.logger.Info("Skipping failure cleanup, order no longer pending",
			zap.String("order_id", orderID.String()),
			zap.String("status", order.Status),
		)
		return nil
	}

	now := time.Now()
	if err := s.payments.UpdateByOrderID(ctx, orderID, map[string]interface{}{
		"status":    models.PaymentStatusFailed,
		"failed_at": &now,
	}); err != nil {
		s.logger.Warn("Failed to mark payment rows failed", zap.Error(err))
	}

	if expired || isDefinitiveFailure(failureMessage) {
		s.logger.Info("Hard-deleting failed order",
			zap.String("order_id", orderID.String()),
			zap.String("failure", failureMessage),
			zap.Bool("expired", expired),
		)
		s.compensateOrderCreation(ctx, orderID)
	} else {
		if _, err := s.orders.UpdateStatusIf(ctx, orderID, models.OrderStatusPending, models.OrderStatusCancelled); err != nil {
			s.logger.Error("Failed to cancel order",
				zap.String("order_id", orderID.String()),
				zap.Error(err),
			)
			return serverError("Failed to update the order")
		}
		s.publishOrderEvent(models.OrderEvent{
			Type:         "order_cancelled",
			OrderID:      orderID.String(),
			RestaurantID: order.RestaurantID.String(),
			TableID:      order.TableID,
			OrderNumber:  order.OrderNumber,
			Total:        order.Total,
			Timestamp:    now.UTC(),
		})
	}

	s.publishPaymentEvent(ctx, models.PaymentEvent{
		Type:         "payment_failed",
		RestaurantID: order.RestaurantID.String(),
		OrderID:      orderID.String(),
		Amount:       order.Total,
		Timestamp:    now.UTC(),
	})

	return nil
}

// HandleFailedPayment is the direct (non-webhook) entry to the cleanup path.
func (s *QRPaymentService) HandleFailedPayment(ctx context.Context, orderID uuid.UUID, failureMessage string) *ServiceError {
	return s.CleanupFailedOrder(ctx, orderID, failureMessage)
}

// isDefinitiveFailure reports whether the failure message names a reason the
// payment can never succeed as submitted. Messages arrive both snake_cased
// (gateway codes) and spaced (human text); both are matched.
func isDefinitiveFailure(message string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(message, "_", " "))
	for _, marker := range definitiveFailures {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}
