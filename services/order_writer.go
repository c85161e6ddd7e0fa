package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/BenyD/DineEasy-sub000/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// Window of the best-effort duplicate-submission guard.
	duplicateOrderWindow = 5 * time.Minute
	// Attempts for the whole order-creation sequence.
	createOrderAttempts = 3

	defaultPrepMinutes = 15
	minPrepMinutes     = 10
	maxPrepMinutes     = 60
)

// createOrder is the single authoritative routine that writes an order, its
// items and (for cash) its pending payment row. The order id is generated
// here so card flows can bind a checkout session to it and compensating
// deletes can reference a known id.
func (s *QRPaymentService) createOrder(ctx context.Context, payload *QRPaymentPayload, method string, restaurant *models.Restaurant) (uuid.UUID, *ServiceError) {
	// Defense in depth: the caller may have skipped validation.
	if result := ValidateOrderPayload(payload); !result.IsValid {
		return uuid.Nil, badRequest(result.Errors[0])
	}

	restaurantID, err := uuid.Parse(payload.RestaurantID)
	if err != nil {
		return uuid.Nil, badRequest("Invalid restaurant ID")
	}

	if restaurant == nil {
		restaurant, err = s.restaurants.FindByID(ctx, restaurantID)
		if err != nil {
			return uuid.Nil, badRequest("Restaurant not found")
		}
	}

	// Best-effort duplicate guard: read-then-write over a 5-minute window,
	// no lock. Two near-simultaneous submissions can both pass; accepted.
	existing, err := s.orders.FindPendingByTable(ctx, restaurantID, payload.TableID, time.Now().Add(-duplicateOrderWindow))
	if err != nil {
		s.logger.Warn("Duplicate-order check failed", zap.Error(err))
	} else if existing != nil {
		return uuid.Nil, badRequest("You already have a pending order for this table. Please wait a few minutes or ask the staff.")
	}

	var orderID uuid.UUID
	createErr := retryLinearIf(createOrderAttempts, 100*time.Millisecond, func() error {
		orderID = uuid.New()
		return s.writeOrderOnce(ctx, payload, method, restaurant, restaurantID, orderID)
	}, func(err error) bool {
		// Retry only id collisions and the like; business rejections and
		// hard failures come back typed and are final.
		return errors.Is(err, gorm.ErrDuplicatedKey)
	})
	if createErr != nil {
		s.logger.Error("Order creation failed",
			zap.String("restaurant_id", payload.RestaurantID),
			zap.String("table_id", payload.TableID),
			zap.Error(createErr),
		)
		return uuid.Nil, serverError("Failed to create the order. Please try again.")
	}

	s.publishOrderEvent(models.OrderEvent{
		Type:         "order_created",
		OrderID:      orderID.String(),
		RestaurantID: payload.RestaurantID,
		TableID:      payload.TableID,
		Total:        payload.Total,
		Timestamp:    time.Now().UTC(),
	})

	return orderID, nil
}

// writeOrderOnce performs one attempt of the creation sequence: atomic
// create-with-items when the primitive works, otherwise the manual
// three-step fallback with compensating deletes.
func (s *QRPaymentService) writeOrderOnce(ctx context.Context, payload *QRPaymentPayload, method string, restaurant *models.Restaurant, restaurantID, orderID uuid.UUID) error {
	order := s.buildOrder(ctx, payload, restaurantID, orderID)

	atomicErr := s.orders.CreateWithItems(ctx, order)
	if atomicErr != nil {
		if errors.Is(atomicErr, gorm.ErrDuplicatedKey) {
			return atomicErr
		}
		s.logger.Warn("Atomic order creation unavailable, using manual fallback", zap.Error(atomicErr))
		if err := s.writeOrderManually(ctx, order); err != nil {
			return err
		}
	}

	if method != models.PaymentMethodCash {
		return nil
	}

	// Cash orders get their pending payment row at creation time. Card
	// orders deliberately do not: that row is created by the reconciler
	// once the gateway confirms money actually moved.
	payment := &models.Payment{
		Payment_ID:   uuid.New(),
		RestaurantID: restaurantID,
		OrderID:      orderID,
		Amount:       payload.Total,
		Currency:     strings.ToLower(restaurant.Currency),
		Status:       models.PaymentStatusPending,
		Method:       models.PaymentMethodCash,
		Metadata: models.PaymentMetadata{
			IdempotencyKey: payload.IdempotencyKey,
			TableID:        payload.TableID,
			Source:         "qr",
		},
	}
	if err := s.payments.CreatePayment(ctx, payment); err != nil {
		if isDuplicateKey(err) {
			// Another attempt already inserted it; already handled.
			s.logger.Info("Cash payment row already exists",
				zap.String("order_id", orderID.String()),
			)
			return nil
		}
		// The order must not survive without its payment row.
		s.compensateOrderCreation(ctx, orderID)
		return fmt.Errorf("create cash payment: %w", err)
	}

	return nil
}

// writeOrderManually is the fallback path: order row, then item rows, with
// compensating deletes so no orphaned row survives a failed creation.
func (s *QRPaymentService) writeOrderManually(ctx context.Context, order *models.Order) error {
	items := order.OrderItems
	order.OrderItems = nil
	if err := s.orders.Create(ctx, order); err != nil {
		return fmt.Errorf("create order row: %w", err)
	}
	if err := s.orders.CreateItems(ctx, items); err != nil {
		s.compensateOrderCreation(ctx, order.ID)
		return fmt.Errorf("create order items: %w", err)
	}
	order.OrderItems = items
	return nil
}

func (s *QRPaymentService) buildOrder(ctx context.Context, payload *QRPaymentPayload, restaurantID, orderID uuid.UUID) *models.Order {
	orderNumber, err := s.orders.NextOrderNumber(ctx, restaurantID)
	if err != nil {
		// Numbering is cosmetic; fall back to a timestamp-derived number
		// rather than failing the order.
		orderNumber = fmt.Sprintf("T%06d", time.Now().Unix()%1000000)
		s.logger.Warn("Order number sequence unavailable, using fallback",
			zap.String("order_number", orderNumber),
			zap.Error(err),
		)
	}

	order := &models.Order{
		ID:               orderID,
		RestaurantID:     restaurantID,
		TableID:          payload.TableID,
		OrderNumber:      orderNumber,
		Status:           models.OrderStatusPending,
		Subtotal:         payload.Subtotal,
		Tax:              payload.Tax,
		Tip:              payload.Tip,
		Total:            payload.Total,
		EstimatedMinutes: s.estimatePrepMinutes(ctx, restaurantID, payload.Items),
	}
	if payload.CustomerName != "" {
		order.CustomerName = &payload.CustomerName
	}
	if payload.CustomerEmail != "" {
		order.CustomerEmail = &payload.CustomerEmail
	}
	if payload.Notes != "" {
		order.Notes = &payload.Notes
	}

	order.OrderItems = make([]models.OrderItem, 0, len(payload.Items))
	for _, item := range payload.Items {
		oi := models.OrderItem{
			ID:         uuid.New(),
			OrderID:    orderID,
			MenuItemID: item.ID,
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   item.Quantity,
			LineTotal:  item.Price * float64(item.Quantity),
		}
		if item.Size != "" {
			size := item.Size
			oi.Size = &size
		}
		if item.Modifiers != "" {
			mods := item.Modifiers
			oi.Modifiers = &mods
		}
		if item.ComboMealID != "" {
			combo := item.ComboMealID
			oi.ComboMealID = &combo
		}
		order.OrderItems = append(order.OrderItems, oi)
	}

	return order
}

// estimatePrepMinutes computes the kitchen estimate: items cook in parallel
// so the longest one is the base, plus a 20% efficiency buffer, a fixed
// 5-minute plating allowance, and 10% of the quantity-weighted sum when more
// than one distinct item needs sequencing. Clamped to [10,60]; any lookup
// failure falls back to 15 minutes.
func (s *QRPaymentService) estimatePrepMinutes(ctx context.Context, restaurantID uuid.UUID, items []CartItem) int {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}

	prepTimes, err := s.menu.PrepTimes(ctx, restaurantID, ids)
	if err != nil || len(prepTimes) == 0 {
		return defaultPrepMinutes
	}

	maxPrep := 0.0
	weightedSum := 0.0
	for _, item := range items {
		prep, ok := prepTimes[item.ID]
		if !ok {
			return defaultPrepMinutes
		}
		if float64(prep) > maxPrep {
			maxPrep = float64(prep)
		}
		weightedSum += float64(prep) * float64(item.Quantity)
	}

	estimate := maxPrep*1.2 + 5
	if len(items) > 1 {
		estimate += weightedSum * 0.10
	}

	minutes := int(math.Round(estimate))
	if minutes < minPrepMinutes {
		minutes = minPrepMinutes
	}
	if minutes > maxPrepMinutes {
		minutes = maxPrepMinutes
	}
	return minutes
}

// compensateOrderCreation removes a just-created order and its items, items
// first to satisfy referential ordering. Each step retried with backoff.
func (s *QRPaymentService) compensateOrderCreation(ctx context.Context, orderID uuid.UUID) {
	if err := retryLinear(3, 200*time.Millisecond, func() error {
		return s.orders.DeleteItems(ctx, orderID)
	}); err != nil {
		s.logger.Error("Compensating delete of order items failed",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		return
	}
	if err := retryLinear(3, 200*time.Millisecond, func() error {
		return s.orders.Delete(ctx, orderID)
	}); err != nil {
		s.logger.Error("Compensating delete of order failed",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
	}
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(strings.ToLower(err.Error()), "duplicate key")
}
