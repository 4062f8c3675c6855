package routes

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csy/internal/datastore"
	domainQR "csy/internal/domain/qr"
	domainErrors "csy/internal/errors"
	"csy/internal/handlers"
	"csy/internal/middleware"
	"csy/internal/models"
	"csy/internal/services/lookup"
	"csy/internal/services/qr"
)

const testSecret = "routes-test-secret"

// stubDomain serves one order and rejects every transition.
type stubDomain struct {
	orders map[string]*models.Order
}

func (d *stubDomain) GetByID(_ context.Context, id string) (*models.Order, error) {
	o, ok := d.orders[id]
	if !ok {
		return nil, domainErrors.ErrReferenceNotFound
	}
	c := *o
	return &c, nil
}

func (d *stubDomain) ApplyDiscount(context.Context, string, models.Discount, string) (*models.Order, error) {
	return nil, domainErrors.ErrInvalidState
}

func (d *stubDomain) MarkPaid(context.Context, string, string, time.Time) (*models.Order, error) {
	return nil, domainErrors.ErrInvalidState
}

func (d *stubDomain) CompleteHandoff(context.Context, string, time.Time) (*models.Order, error) {
	return nil, domainErrors.ErrInvalidState
}

func (d *stubDomain) ConfirmDriverPickup(context.Context, string, string, time.Time) (*models.Order, error) {
	return nil, domainErrors.ErrInvalidState
}

type stubReservations struct{}

func (stubReservations) GetByID(context.Context, string) (*models.Reservation, error) {
	return nil, domainErrors.ErrReferenceNotFound
}

func (stubReservations) CheckIn(context.Context, string, time.Time) (*models.Reservation, error) {
	return nil, domainErrors.ErrInvalidState
}

func (stubReservations) Complete(context.Context, string, time.Time) (*models.Reservation, error) {
	return nil, domainErrors.ErrInvalidState
}

func strPtr(s string) *string { return &s }

func newTestApp(t *testing.T) (*fiber.App, qr.Service) {
	t.Helper()
	codec, err := qr.NewCodec([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	orders := &stubDomain{orders: map[string]*models.Order{
		"O1": {
			ID:            "O1",
			BusinessID:    "biz-1",
			CustomerID:    "cust-1",
			Status:        models.OrderStatusPending,
			PaymentStatus: models.PaymentStatusUnpaid,
			Total:         decimal.RequireFromString("40.00"),
		},
	}}
	entities := lookup.NewService(orders, stubReservations{})
	svc := qr.NewService(qr.Deps{
		Store:    datastore.NewMemoryStore(),
		Codec:    codec,
		Lookup:   entities,
		Handlers: qr.NewHandlers(entities, orders, stubReservations{}),
	})

	app := fiber.New()
	SetupRoutes(app, Handlers{
		QR:     handlers.NewQRHandler(svc, nil, nil),
		Health: handlers.NewHealthHandler("test", nil, nil),
		Auth:   middleware.NewAuthMiddleware(testSecret, nil),
	})
	return app, svc
}

func bearer(t *testing.T, id string, role domainQR.ActorRole, businessID *string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           id,
		Role:             string(role),
		BusinessID:       businessID,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func TestListByReferenceScoping(t *testing.T) {
	app, svc := newTestApp(t)
	ctx := context.Background()

	cashier := domainQR.Actor{ID: "cashier-1", Role: domainQR.RoleCashier, BusinessID: strPtr("biz-1")}
	admin := domainQR.Actor{ID: "admin-1", Role: domainQR.RoleAdmin}

	_, err := svc.Issue(ctx, domainQR.IssueRequest{Type: "payment", ReferenceID: "O1", Actor: cashier})
	require.NoError(t, err)
	_, err = svc.Issue(ctx, domainQR.IssueRequest{Type: "payment", ReferenceID: "O1", Actor: admin, BusinessID: strPtr("biz-2")})
	require.NoError(t, err)

	tests := []struct {
		name       string
		auth       string
		query      string
		wantStatus int
		wantTotal  float64
	}{
		{name: "admin sees every business", auth: bearer(t, "admin-1", domainQR.RoleAdmin, nil), wantStatus: fiber.StatusOK, wantTotal: 2},
		{name: "admin filters by business", auth: bearer(t, "admin-1", domainQR.RoleAdmin, nil), query: "?business_id=biz-2", wantStatus: fiber.StatusOK, wantTotal: 1},
		{name: "cashier sees own business", auth: bearer(t, "cashier-1", domainQR.RoleCashier, strPtr("biz-1")), wantStatus: fiber.StatusOK, wantTotal: 1},
		{name: "cashier cannot widen scope", auth: bearer(t, "cashier-1", domainQR.RoleCashier, strPtr("biz-1")), query: "?business_id=biz-2", wantStatus: fiber.StatusOK, wantTotal: 1},
		{name: "customer is forbidden", auth: bearer(t, "cust-1", domainQR.RoleCustomer, nil), wantStatus: fiber.StatusForbidden},
		{name: "unauthenticated", wantStatus: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/qr/reference/payment/O1"+tt.query, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus != fiber.StatusOK {
				return
			}
			var body struct {
				Data []map[string]interface{} `json:"data"`
				Meta map[string]interface{}   `json:"meta"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantTotal, body.Meta["total_items"])
			assert.Len(t, body.Data, int(tt.wantTotal))
		})
	}
}
