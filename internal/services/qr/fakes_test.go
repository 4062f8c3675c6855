package qr

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainQR "csy/internal/domain/qr"
	domainErrors "csy/internal/errors"
	"csy/internal/models"
	"csy/internal/services/lookup"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func strPtr(s string) *string { return &s }

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec(testSecret)
	require.NoError(t, err)
	return codec
}

// testClock is a settable clock shared by the components under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeOrders is an in-memory order domain. It counts every mutating call
// so tests can assert how often an action ran.
type fakeOrders struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	calls  atomic.Int64
	err    error
}

func newFakeOrders(orders ...*models.Order) *fakeOrders {
	f := &fakeOrders{orders: map[string]*models.Order{}}
	for _, o := range orders {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeOrders) GetByID(_ context.Context, id string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, domainErrors.ErrReferenceNotFound.WithDetail("order %s", id)
	}
	c := *o
	return &c, nil
}

func (f *fakeOrders) mutate(id string, fn func(o *models.Order) error) (*models.Order, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, domainErrors.ErrReferenceNotFound.WithDetail("order %s", id)
	}
	if err := fn(o); err != nil {
		return nil, err
	}
	c := *o
	return &c, nil
}

func (f *fakeOrders) ApplyDiscount(_ context.Context, id string, d models.Discount, tokenID string) (*models.Order, error) {
	return f.mutate(id, func(o *models.Order) error {
		if o.DiscountTokenID != nil {
			return domainErrors.ErrInvalidState.WithDetail("discount already applied")
		}
		o.DiscountAmount = d.AmountFor(o.Total)
		o.DiscountTokenID = &tokenID
		return nil
	})
}

func (f *fakeOrders) MarkPaid(_ context.Context, id, method string, at time.Time) (*models.Order, error) {
	return f.mutate(id, func(o *models.Order) error {
		if o.PaymentStatus != models.PaymentStatusUnpaid {
			return domainErrors.ErrInvalidState.WithDetail("order %s is %s", id, o.PaymentStatus)
		}
		o.PaymentStatus = models.PaymentStatusPaid
		o.PaymentMethod = &method
		o.PaidAt = &at
		return nil
	})
}

func (f *fakeOrders) CompleteHandoff(_ context.Context, id string, at time.Time) (*models.Order, error) {
	return f.mutate(id, func(o *models.Order) error {
		o.Status = models.OrderStatusCompleted
		o.CompletedAt = &at
		return nil
	})
}

func (f *fakeOrders) ConfirmDriverPickup(_ context.Context, id, driverID string, at time.Time) (*models.Order, error) {
	return f.mutate(id, func(o *models.Order) error {
		o.Status = models.OrderStatusOutForDelivery
		o.DriverID = &driverID
		o.PickedUpAt = &at
		return nil
	})
}

func (f *fakeOrders) order(id string) models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.orders[id]
}

type fakeReservations struct {
	mu           sync.Mutex
	reservations map[string]*models.Reservation
	calls        atomic.Int64
}

func newFakeReservations(rs ...*models.Reservation) *fakeReservations {
	f := &fakeReservations{reservations: map[string]*models.Reservation{}}
	for _, r := range rs {
		f.reservations[r.ID] = r
	}
	return f
}

func (f *fakeReservations) GetByID(_ context.Context, id string) (*models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok {
		return nil, domainErrors.ErrReferenceNotFound.WithDetail("reservation %s", id)
	}
	c := *r
	return &c, nil
}

func (f *fakeReservations) set(id, status string, at time.Time) (*models.Reservation, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.reservations[id]
	r.Status = status
	r.UpdatedAt = at
	c := *r
	return &c, nil
}

func (f *fakeReservations) CheckIn(_ context.Context, id string, at time.Time) (*models.Reservation, error) {
	return f.set(id, models.ReservationStatusCheckedIn, at)
}

func (f *fakeReservations) Complete(_ context.Context, id string, at time.Time) (*models.Reservation, error) {
	return f.set(id, models.ReservationStatusCompleted, at)
}

func testOrder(id string) *models.Order {
	return &models.Order{
		ID:            id,
		BusinessID:    "biz-1",
		CustomerID:    "cust-1",
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusUnpaid,
		Total:         decimal.RequireFromString("40.00"),
	}
}

func testReservation(id string) *models.Reservation {
	return &models.Reservation{
		ID:         id,
		BusinessID: "biz-1",
		CustomerID: "cust-1",
		Status:     models.ReservationStatusConfirmed,
		PartySize:  2,
	}
}

var (
	cashier  = domainQR.Actor{ID: "cashier-1", Role: domainQR.RoleCashier, BusinessID: strPtr("biz-1")}
	outsider = domainQR.Actor{ID: "cashier-9", Role: domainQR.RoleCashier, BusinessID: strPtr("biz-9")}
	customer = domainQR.Actor{ID: "cust-1", Role: domainQR.RoleCustomer}
	stranger = domainQR.Actor{ID: "cust-2", Role: domainQR.RoleCustomer}
	driver   = domainQR.Actor{ID: "driver-7", Role: domainQR.RoleDriver}
	admin    = domainQR.Actor{ID: "admin-1", Role: domainQR.RoleAdmin}
)

// fixture wires a full QR service over the given store and fake domains.
type fixture struct {
	svc          Service
	store        TokenStore
	clock        *testClock
	orders       *fakeOrders
	reservations *fakeReservations
}

func newFixture(t *testing.T, store TokenStore) *fixture {
	t.Helper()
	f := &fixture{
		store:        store,
		clock:        newTestClock(),
		orders:       newFakeOrders(testOrder("O1")),
		reservations: newFakeReservations(testReservation("R1")),
	}
	entities := lookup.NewService(f.orders, f.reservations)
	f.svc = NewService(Deps{
		Store:    store,
		Codec:    newTestCodec(t),
		Lookup:   entities,
		Handlers: NewHandlers(entities, f.orders, f.reservations),
		Clock:    f.clock.Now,
	})
	return f
}

func (f *fixture) issue(t *testing.T, qrType domainQR.QRType, ref string, actor domainQR.Actor, payload map[string]interface{}) *IssuedToken {
	t.Helper()
	issued, err := f.svc.Issue(context.Background(), domainQR.IssueRequest{
		Type:        string(qrType),
		ReferenceID: ref,
		Actor:       actor,
		Payload:     payload,
	})
	require.NoError(t, err)
	return issued
}

// MockStore is a testify mock of TokenStore.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, token *models.QRToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockStore) Get(ctx context.Context, id string) (*models.QRToken, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*models.QRToken)
	return rec, args.Error(1)
}

func (m *MockStore) Claim(ctx context.Context, id string, actor domainQR.Actor, now time.Time) (*models.QRToken, error) {
	args := m.Called(ctx, id, actor, now)
	rec, _ := args.Get(0).(*models.QRToken)
	return rec, args.Error(1)
}

func (m *MockStore) Revoke(ctx context.Context, id string, now time.Time) (*models.QRToken, error) {
	args := m.Called(ctx, id, now)
	rec, _ := args.Get(0).(*models.QRToken)
	return rec, args.Error(1)
}

func (m *MockStore) ListByReference(ctx context.Context, q ReferenceQuery) ([]models.QRToken, int64, error) {
	args := m.Called(ctx, q)
	recs, _ := args.Get(0).([]models.QRToken)
	return recs, args.Get(1).(int64), args.Error(2)
}

func (m *MockStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockCache is a testify mock of TokenCache.
type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetToken(ctx context.Context, id string) (*models.QRToken, bool, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*models.QRToken)
	return rec, args.Bool(1), args.Error(2)
}

func (m *MockCache) SetToken(ctx context.Context, token *models.QRToken, ttl time.Duration) error {
	args := m.Called(ctx, token, ttl)
	return args.Error(0)
}

func (m *MockCache) InvalidateToken(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockMetrics is a testify mock of MetricsCollector.
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordIssued(qrType domainQR.QRType) {
	m.Called(qrType)
}

func (m *MockMetrics) RecordRedemption(qrType domainQR.QRType, outcome string) {
	m.Called(qrType, outcome)
}

func (m *MockMetrics) RecordValidation(outcome string) {
	m.Called(outcome)
}

// countingHandler records how often Apply ran.
type countingHandler struct {
	calls atomic.Int64
	err   error
}

func (h *countingHandler) Apply(_ context.Context, req ActionRequest) (*EffectResult, error) {
	h.calls.Add(1)
	if h.err != nil {
		return nil, h.err
	}
	return &EffectResult{Entity: domainQR.EntityOrder, ReferenceID: req.Token.ReferenceID, State: "done"}, nil
}

func countingHandlers(h ActionHandler) Handlers {
	return Handlers{Discount: h, Payment: h, Reservation: h, Order: h, DriverPickup: h}
}
