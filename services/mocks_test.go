package services_test

import (
	"context"
	"net/http"
	"time"

	"github.com/BenyD/DineEasy-sub000/cache"
	"github.com/BenyD/DineEasy-sub000/models"
	"github.com/BenyD/DineEasy-sub000/services"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// ---- mock order repository ----

type mockOrderRepo struct {
	createWithItemsErr error
	createWithItemsFn  func(order *models.Order) error
	createErr          error
	createItemsErr     error

	findByIDOrder *models.Order
	findByIDErr   error

	pendingOrder *models.Order
	pendingErr   error

	byIntentOrder *models.Order
	byIntentErr   error

	updateFieldsErr error
	statusErr       error

	nextNumber    string
	nextNumberErr error

	deleteItemsErr error
	deleteErr      error

	createdOrders     []*models.Order
	updatedFields     []map[string]interface{}
	statusTransitions []string
	deletedItemsFor   []uuid.UUID
	deletedOrders     []uuid.UUID
}

func (m *mockOrderRepo) CreateWithItems(_ context.Context, order *models.Order) error {
	if m.createWithItemsFn != nil {
		if err := m.createWithItemsFn(order); err != nil {
			return err
		}
	} else if m.createWithItemsErr != nil {
		return m.createWithItemsErr
	}
	m.createdOrders = append(m.createdOrders, order)
	return nil
}
func (m *mockOrderRepo) Create(_ context.Context, order *models.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.createdOrders = append(m.createdOrders, order)
	return nil
}
func (m *mockOrderRepo) CreateItems(_ context.Context, _ []models.OrderItem) error {
	return m.createItemsErr
}
func (m *mockOrderRepo) FindByID(_ context.Context, _ uuid.UUID) (*models.Order, error) {
	return m.findByIDOrder, m.findByIDErr
}
func (m *mockOrderRepo) FindPendingByTable(_ context.Context, _ uuid.UUID, _ string, _ time.Time) (*models.Order, error) {
	return m.pendingOrder, m.pendingErr
}
func (m *mockOrderRepo) FindByStripeSessionID(_ context.Context, _ string) (*models.Order, error) {
	return nil, nil
}
func (m *mockOrderRepo) FindByStripePaymentIntentID(_ context.Context, _ string) (*models.Order, error) {
	return m.byIntentOrder, m.byIntentErr
}
func (m *mockOrderRepo) UpdateFields(_ context.Context, _ uuid.UUID, updates map[string]interface{}) error {
	if m.updateFieldsErr != nil {
		return m.updateFieldsErr
	}
	m.updatedFields = append(m.updatedFields, updates)
	return nil
}
func (m *mockOrderRepo) UpdateStatusIf(_ context.Context, _ uuid.UUID, fromStatus, toStatus string) (bool, error) {
	if m.statusErr != nil {
		return false, m.statusErr
	}
	m.statusTransitions = append(m.statusTransitions, fromStatus+"->"+toStatus)
	return true, nil
}
func (m *mockOrderRepo) DeleteItems(_ context.Context, orderID uuid.UUID) error {
	if m.deleteItemsErr != nil {
		return m.deleteItemsErr
	}
	m.deletedItemsFor = append(m.deletedItemsFor, orderID)
	return nil
}
func (m *mockOrderRepo) Delete(_ context.Context, id uuid.UUID) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedOrders = append(m.deletedOrders, id)
	return nil
}
func (m *mockOrderRepo) NextOrderNumber(_ context.Context, _ uuid.UUID) (string, error) {
	return m.nextNumber, m.nextNumberErr
}

// ---- mock payment repository ----

type mockPaymentRepo struct {
	createErr error
	createFn  func(payment *models.Payment) error

	payments   []models.Payment
	findAllErr error

	byStripePayment *models.Payment
	byStripeErr     error

	updateByIDErr    error
	updateByOrderErr error

	createdPayments []*models.Payment
	updatesByID     []map[string]interface{}
	updatesByOrder  []map[string]interface{}
}

func (m *mockPaymentRepo) CreatePayment(_ context.Context, payment *models.Payment) error {
	if m.createFn != nil {
		if err := m.createFn(payment); err != nil {
			return err
		}
	} else if m.createErr != nil {
		return m.createErr
	}
	m.createdPayments = append(m.createdPayments, payment)
	return nil
}
func (m *mockPaymentRepo) FindAllByOrderID(_ context.Context, _ uuid.UUID) ([]models.Payment, error) {
	return m.payments, m.findAllErr
}
func (m *mockPaymentRepo) FindByStripePaymentID(_ context.Context, _ string) (*models.Payment, error) {
	return m.byStripePayment, m.byStripeErr
}
func (m *mockPaymentRepo) UpdateByID(_ context.Context, _ uuid.UUID, updates map[string]interface{}) error {
	if m.updateByIDErr != nil {
		return m.updateByIDErr
	}
	m.updatesByID = append(m.updatesByID, updates)
	return nil
}
func (m *mockPaymentRepo) UpdateByOrderID(_ context.Context, _ uuid.UUID, updates map[string]interface{}) error {
	if m.updateByOrderErr != nil {
		return m.updateByOrderErr
	}
	m.updatesByOrder = append(m.updatesByOrder, updates)
	return nil
}

// ---- mock restaurant / menu repositories ----

type mockRestaurantRepo struct {
	restaurant *models.Restaurant
	findErr    error

	byCustomer    *models.Restaurant
	byCustomerErr error

	updateErr error
	updates   []map[string]interface{}
}

func (m *mockRestaurantRepo) FindByID(_ context.Context, _ uuid.UUID) (*models.Restaurant, error) {
	return m.restaurant, m.findErr
}
func (m *mockRestaurantRepo) FindByStripeCustomerID(_ context.Context, _ string) (*models.Restaurant, error) {
	return m.byCustomer, m.byCustomerErr
}
func (m *mockRestaurantRepo) UpdateFields(_ context.Context, _ uuid.UUID, updates map[string]interface{}) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates = append(m.updates, updates)
	return nil
}

type mockMenuRepo struct {
	prepTimes map[string]int
	err       error
}

func (m *mockMenuRepo) PrepTimes(_ context.Context, _ uuid.UUID, _ []string) (map[string]int, error) {
	return m.prepTimes, m.err
}

// ---- mock subscription repository ----

type mockSubscriptionRepo struct {
	existing    *models.Subscription
	findErr     error
	upsertErr   error
	deleteErr   error
	otherActive bool
	activeErr   error

	upserted []*models.Subscription
	deleted  []string
}

func (m *mockSubscriptionRepo) FindByStripeID(_ context.Context, _ string) (*models.Subscription, error) {
	return m.existing, m.findErr
}
func (m *mockSubscriptionRepo) UpsertByStripeID(_ context.Context, sub *models.Subscription) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, sub)
	return nil
}
func (m *mockSubscriptionRepo) DeleteByStripeID(_ context.Context, stripeSubscriptionID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, stripeSubscriptionID)
	return nil
}
func (m *mockSubscriptionRepo) HasOtherActive(_ context.Context, _ uuid.UUID, _ string) (bool, error) {
	return m.otherActive, m.activeErr
}

// ---- mock gateway ----

type mockStripe struct {
	session          *stripe.CheckoutSession
	createSessionErr error
	createSessionFn  func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	createCalls      int
	lastParams       *stripe.CheckoutSessionParams

	getSession    *stripe.CheckoutSession
	getSessionErr error
}

func (m *mockStripe) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	m.createCalls++
	m.lastParams = params
	if m.createSessionFn != nil {
		return m.createSessionFn(params)
	}
	return m.session, m.createSessionErr
}
func (m *mockStripe) GetCheckoutSession(_ string) (*stripe.CheckoutSession, error) {
	return m.getSession, m.getSessionErr
}
func (m *mockStripe) GetPaymentIntent(_ string) (*stripe.PaymentIntent, error) { return nil, nil }
func (m *mockStripe) GetSubscription(_ string) (*stripe.Subscription, error)  { return nil, nil }
func (m *mockStripe) GetCharge(_ string) (*stripe.Charge, error)              { return nil, nil }
func (m *mockStripe) ParseWebhook(_ *http.Request) (stripe.Event, error)      { return stripe.Event{}, nil }

// ---- mock idempotency store ----

type mockIdemStore struct {
	state  cache.CheckoutState
	found  bool
	getErr error
	putErr error
	puts   []cache.CheckoutState
}

func (m *mockIdemStore) Get(_ context.Context, _, _ string) (cache.CheckoutState, bool, error) {
	return m.state, m.found, m.getErr
}
func (m *mockIdemStore) Put(_ context.Context, _ string, state cache.CheckoutState) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.puts = append(m.puts, state)
	return nil
}

// ---- mock publishers ----

type mockSNS struct {
	publishErr error
	messages   [][]byte
}

func (m *mockSNS) Publish(_ context.Context, _ string, message []byte) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.messages = append(m.messages, message)
	return nil
}

type mockKitchen struct {
	sendErr error
	events  []models.OrderEvent
}

func (m *mockKitchen) SendOrderEvent(event models.OrderEvent) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.events = append(m.events, event)
	return nil
}

// ---- fixtures ----

type testDeps struct {
	orders      *mockOrderRepo
	payments    *mockPaymentRepo
	restaurants *mockRestaurantRepo
	menu        *mockMenuRepo
	stripe      *mockStripe
	idem        *mockIdemStore
	sns         *mockSNS
	kitchen     *mockKitchen
}

func strPtr(s string) *string { return &s }

func enabledRestaurant() *models.Restaurant {
	return &models.Restaurant{
		ID:                   uuid.New(),
		Name:                 "Cafe Milano",
		Currency:             "chf",
		StripeAccountID:      strPtr("acct_123"),
		StripeAccountEnabled: true,
	}
}

func newTestService(deps *testDeps) *services.QRPaymentService {
	return services.NewQRPaymentService(
		deps.orders,
		deps.payments,
		deps.restaurants,
		deps.menu,
		deps.stripe,
		deps.idem,
		deps.sns,
		deps.kitchen,
		zap.NewNop(),
		"http://localhost:3000",
		"arn:aws:sns:eu-central-1:000000000000:payments",
		0.02,
	)
}

func defaultDeps() *testDeps {
	return &testDeps{
		orders:      &mockOrderRepo{nextNumber: "0042"},
		payments:    &mockPaymentRepo{},
		restaurants: &mockRestaurantRepo{restaurant: enabledRestaurant()},
		menu:        &mockMenuRepo{},
		stripe:      &mockStripe{},
		idem:        &mockIdemStore{},
		sns:         &mockSNS{},
		kitchen:     &mockKitchen{},
	}
}

func validPayload(restaurantID string) *services.QRPaymentPayload {
	return &services.QRPaymentPayload{
		RestaurantID: restaurantID,
		TableID:      "table-7",
		Items: []services.CartItem{
			{ID: "item-1", Name: "Burger", Price: 12.50, Quantity: 2},
		},
		Subtotal:       25.00,
		Tax:            2.00,
		Tip:            3.00,
		Total:          30.00,
		IdempotencyKey: "idem-abc",
	}
}
