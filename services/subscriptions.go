package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BenyD/DineEasy-sub000/models"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// Subscription reconciliation follows the same idempotent-upsert pattern as
// order payments: rows are keyed by the gateway subscription id, so
// redelivered events converge instead of double-applying.

func (w *WebhookService) handleSubscriptionUpserted(ctx context.Context, event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		w.logger.Error("Failed to unmarshal subscription", zap.Error(err))
		return
	}
	w.upsertSubscription(ctx, &sub)
}

func (w *WebhookService) applySubscriptionCheckout(ctx context.Context, sess *stripe.CheckoutSession, meta models.CheckoutMetadata) {
	if sess.Subscription == nil {
		w.logger.Warn("Billing checkout completed without a subscription",
			zap.String("session_id", sess.ID),
		)
		return
	}

	sub := sess.Subscription
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		// Expanded objects are not guaranteed on webhook payloads; the
		// subscription lifecycle events carry the full picture anyway.
		w.logger.Info("Subscription checkout recorded, awaiting lifecycle event",
			zap.String("subscription_id", sub.ID),
		)
	}
	w.upsertSubscription(ctx, sub)

	restaurant := w.restaurantForCustomer(ctx, sub)
	if restaurant == nil {
		return
	}
	updates := map[string]interface{}{
		"billing_status": string(sub.Status),
	}
	if meta.Plan != "" {
		updates["billing_plan"] = meta.Plan
	}
	if err := w.restaurants.UpdateFields(ctx, restaurant.ID, updates); err != nil {
		w.logger.Error("Failed to update restaurant billing state",
			zap.String("restaurant_id", restaurant.ID.String()),
			zap.Error(err),
		)
	}
}

func (w *WebhookService) upsertSubscription(ctx context.Context, sub *stripe.Subscription) {
	restaurant := w.restaurantForCustomer(ctx, sub)
	if restaurant == nil {
		return
	}

	record := &models.Subscription{
		ID:                   uuid.New(),
		RestaurantID:         restaurant.ID,
		StripeSubscriptionID: sub.ID,
		Status:               string(sub.Status),
		CurrentPeriodStart:   unixTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:     unixTime(sub.CurrentPeriodEnd),
		TrialStart:           unixTime(sub.TrialStart),
		TrialEnd:             unixTime(sub.TrialEnd),
		CancelAt:             unixTime(sub.CancelAt),
		CanceledAt:           unixTime(sub.CanceledAt),
	}

	meta := models.CheckoutMetadataFromMap(sub.Metadata)
	record.Plan = meta.Plan
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		price := sub.Items.Data[0].Price
		if record.Plan == "" {
			record.Plan = price.Nickname
		}
		if price.Recurring != nil {
			record.Interval = string(price.Recurring.Interval)
		}
	}
	if record.Interval == "" {
		record.Interval = meta.Interval
	}

	// An in-trial plan upgrade replaces the subscription but must not reset
	// the customer's trial clock; the original trial end is preserved.
	if existing, err := w.subs.FindByStripeID(ctx, sub.ID); err == nil && existing != nil {
		if existing.TrialEnd != nil && record.Status == models.SubscriptionStatusTrialing &&
			meta.IsUpgrade == "true" {
			record.TrialEnd = existing.TrialEnd
		}
	} else if meta.TrialPreserved == "true" && meta.OriginalTrialEnd != "" {
		if originalEnd, perr := time.Parse(time.RFC3339, meta.OriginalTrialEnd); perr == nil {
			record.TrialEnd = &originalEnd
		}
	}

	if err := w.subs.UpsertByStripeID(ctx, record); err != nil {
		w.logger.Error("Failed to upsert subscription",
			zap.String("subscription_id", sub.ID),
			zap.Error(err),
		)
		return
	}

	if err := w.restaurants.UpdateFields(ctx, restaurant.ID, map[string]interface{}{
		"billing_status": record.Status,
		"billing_plan":   record.Plan,
	}); err != nil {
		w.logger.Warn("Failed to update restaurant billing state", zap.Error(err))
	}

	w.publishSubscriptionEvent(ctx, models.SubscriptionEvent{
		Type:         "subscription_updated",
		RestaurantID: restaurant.ID.String(),
		Plan:         record.Plan,
		Status:       record.Status,
		Timestamp:    time.Now().UTC(),
	})
}

func (w *WebhookService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		w.logger.Error("Failed to unmarshal subscription", zap.Error(err))
		return
	}

	restaurant := w.restaurantForCustomer(ctx, &sub)
	if restaurant == nil {
		return
	}

	// Upgrade sequencing: deleting the old subscription during a plan
	// change must not read as a cancellation when a newer subscription
	// already supersedes it.
	superseded, err := w.subs.HasOtherActive(ctx, restaurant.ID, sub.ID)
	if err != nil {
		w.logger.Warn("Supersession check failed, treating deletion as cancellation", zap.Error(err))
	}

	if err := w.subs.DeleteByStripeID(ctx, sub.ID); err != nil {
		w.logger.Error("Failed to delete subscription row",
			zap.String("subscription_id", sub.ID),
			zap.Error(err),
		)
	}

	if superseded {
		w.logger.Info("Subscription deletion superseded by a newer subscription",
			zap.String("subscription_id", sub.ID),
			zap.String("restaurant_id", restaurant.ID.String()),
		)
		return
	}

	if err := w.restaurants.UpdateFields(ctx, restaurant.ID, map[string]interface{}{
		"billing_status": models.SubscriptionStatusCanceled,
	}); err != nil {
		w.logger.Error("Failed to mark restaurant billing canceled", zap.Error(err))
	}

	w.publishSubscriptionEvent(ctx, models.SubscriptionEvent{
		Type:         "subscription_canceled",
		RestaurantID: restaurant.ID.String(),
		Status:       models.SubscriptionStatusCanceled,
		Timestamp:    time.Now().UTC(),
	})
}

// applySubscriptionRefund handles a refund on an invoice-backed (billing)
// charge. The customer-facing notification is suppressed when another alive
// subscription supersedes the refunded one, i.e. the refund was part of an
// upgrade rather than a cancellation.
func (w *WebhookService) applySubscriptionRefund(ctx context.Context, ch *stripe.Charge) {
	if ch.Customer == nil {
		w.logger.Warn("Billing refund without a customer", zap.String("charge_id", ch.ID))
		return
	}
	restaurant, err := w.restaurants.FindByStripeCustomerID(ctx, ch.Customer.ID)
	if err != nil {
		w.logger.Warn("No restaurant for billing refund",
			zap.String("customer_id", ch.Customer.ID),
			zap.Error(err),
		)
		return
	}

	superseded, err := w.subs.HasOtherActive(ctx, restaurant.ID, "")
	if err != nil {
		w.logger.Warn("Supersession check failed on billing refund", zap.Error(err))
	}

	if !superseded {
		if err := w.restaurants.UpdateFields(ctx, restaurant.ID, map[string]interface{}{
			"billing_status": "refunded",
		}); err != nil {
			w.logger.Error("Failed to mark restaurant billing refunded", zap.Error(err))
		}
		w.publishSubscriptionEvent(ctx, models.SubscriptionEvent{
			Type:         "subscription_refunded",
			RestaurantID: restaurant.ID.String(),
			Timestamp:    time.Now().UTC(),
		})
		return
	}

	w.logger.Info("Billing refund superseded by an active subscription, notification suppressed",
		zap.String("restaurant_id", restaurant.ID.String()),
	)
}

func (w *WebhookService) restaurantForCustomer(ctx context.Context, sub *stripe.Subscription) *models.Restaurant {
	if sub.Customer == nil {
		w.logger.Warn("Subscription carries no customer", zap.String("subscription_id", sub.ID))
		return nil
	}
	restaurant, err := w.restaurants.FindByStripeCustomerID(ctx, sub.Customer.ID)
	if err != nil {
		w.logger.Warn("No restaurant for gateway customer",
			zap.String("customer_id", sub.Customer.ID),
			zap.Error(err),
		)
		return nil
	}
	return restaurant
}

func (w *WebhookService) publishSubscriptionEvent(ctx context.Context, event models.SubscriptionEvent) {
	if w.qr.sns == nil || w.qr.snsTopicArn == "" {
		return
	}
	payload, _ := json.Marshal(event)
	if err := w.qr.sns.Publish(ctx, w.qr.snsTopicArn, payload); err != nil {
		w.logger.Error("Failed to publish subscription event",
			zap.String("event_type", event.Type),
			zap.Error(err),
		)
	}
}

func unixTime(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
