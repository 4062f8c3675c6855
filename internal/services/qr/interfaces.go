package qr

import (
	"context"
	"time"

	domainQR "csy/internal/domain/qr"
	"csy/internal/models"
)

// TokenStore persists QR token records. Claim is the only operation that
// sets the used fields and must be a single conditional write in the
// backing store.
type TokenStore interface {
	Create(ctx context.Context, token *models.QRToken) error
	Get(ctx context.Context, id string) (*models.QRToken, error)
	Claim(ctx context.Context, id string, actor domainQR.Actor, now time.Time) (*models.QRToken, error)
	Revoke(ctx context.Context, id string, now time.Time) (*models.QRToken, error)
	ListByReference(ctx context.Context, q ReferenceQuery) ([]models.QRToken, int64, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ReferenceQuery selects the tokens issued against one reference entity.
type ReferenceQuery = domainQR.ReferenceQuery

// TokenCache is the read-through cache in front of TokenStore.Get.
type TokenCache interface {
	GetToken(ctx context.Context, id string) (*models.QRToken, bool, error)
	SetToken(ctx context.Context, token *models.QRToken, ttl time.Duration) error
	InvalidateToken(ctx context.Context, id string) error
}

// EntityLookup reports whether a reference entity exists and its state.
type EntityLookup interface {
	ExistsAndState(ctx context.Context, entity domainQR.EntityType, referenceID string) (*domainQR.EntityState, error)
}

// OrderOperator performs the order transitions QR actions trigger.
type OrderOperator interface {
	ApplyDiscount(ctx context.Context, orderID string, discount models.Discount, tokenID string) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID, method string, at time.Time) (*models.Order, error)
	CompleteHandoff(ctx context.Context, orderID string, at time.Time) (*models.Order, error)
	ConfirmDriverPickup(ctx context.Context, orderID, driverID string, at time.Time) (*models.Order, error)
}

// ReservationOperator performs the reservation transitions QR actions trigger.
type ReservationOperator interface {
	CheckIn(ctx context.Context, reservationID string, at time.Time) (*models.Reservation, error)
	Complete(ctx context.Context, reservationID string, at time.Time) (*models.Reservation, error)
}

// MetricsCollector receives issuance and redemption outcomes.
type MetricsCollector interface {
	RecordIssued(qrType domainQR.QRType)
	RecordRedemption(qrType domainQR.QRType, outcome string)
	RecordValidation(outcome string)
}

// Service defines the QR token operations exposed to the HTTP layer.
type Service interface {
	Issue(ctx context.Context, req domainQR.IssueRequest) (*IssuedToken, error)
	Validate(ctx context.Context, token string) (*TokenStatus, error)
	Redeem(ctx context.Context, req RedeemRequest) (*RedemptionResult, error)
	Revoke(ctx context.Context, token string, actor domainQR.Actor) (*TokenStatus, error)
	ListByReference(ctx context.Context, q ReferenceQuery, actor domainQR.Actor) ([]TokenStatus, int64, error)
}
