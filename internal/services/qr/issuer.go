package qr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainQR "csy/internal/domain/qr"
	domainErrors "csy/internal/errors"
	"csy/internal/models"
	"csy/internal/validation"
)

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// IssuedToken is the result of a successful issuance.
type IssuedToken struct {
	Token     string
	Record    *models.QRToken
	ExpiresAt time.Time
}

type Issuer struct {
	store   TokenStore
	codec   *Codec
	lookup  EntityLookup
	now     Clock
	metrics MetricsCollector
	logger  *zap.Logger
}

func NewIssuer(store TokenStore, codec *Codec, lookup EntityLookup, now Clock, metrics MetricsCollector, logger *zap.Logger) *Issuer {
	if store == nil {
		panic("token store is required")
	}
	if codec == nil {
		panic("codec is required")
	}
	if lookup == nil {
		panic("entity lookup is required")
	}
	if now == nil {
		now = time.Now
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Issuer{store: store, codec: codec, lookup: lookup, now: now, metrics: metrics, logger: logger}
}

// Issue validates req against live entity state, persists a new record and
// returns its signed token string.
func (i *Issuer) Issue(ctx context.Context, req domainQR.IssueRequest) (*IssuedToken, error) {
	qrType, err := domainQR.ParseType(req.Type)
	if err != nil {
		return nil, domainErrors.ErrInvalidQRType.Wrap(err)
	}
	// The trimmed id is the one looked up, stored and signed.
	req.ReferenceID = strings.TrimSpace(req.ReferenceID)
	if err := validation.ValidateIssueRequest(req); err != nil {
		return nil, err
	}

	rule := domainQR.IssuanceRules[qrType]
	entity, err := i.lookup.ExistsAndState(ctx, rule.Entity, req.ReferenceID)
	if err != nil {
		return nil, err
	}
	if !rule.Allows(entity.State) {
		return nil, domainErrors.ErrInvalidState.WithDetail("%s %s is %s", rule.Entity, req.ReferenceID, entity.State)
	}

	businessID, err := authorizeIssue(rule, req, entity)
	if err != nil {
		return nil, err
	}

	issuedAt := i.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(domainQR.TTLPolicies[qrType].Resolve(req.TTL))

	id := uuid.NewString()
	token, err := i.codec.Encode(Fields{
		ID:          id,
		Type:        qrType,
		ReferenceID: req.ReferenceID,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return nil, err
	}

	rec := &models.QRToken{
		ID:                id,
		QRType:            string(qrType),
		ReferenceID:       req.ReferenceID,
		IssuingBusinessID: businessID,
		IssuedByID:        req.Actor.ID,
		IssuedByRole:      string(req.Actor.Role),
		Payload:           models.JSON(req.Payload).Clone(),
		IssuedAt:          issuedAt,
		ExpiresAt:         expiresAt,
		Signature:         Signature(token),
	}
	if err := i.store.Create(ctx, rec); err != nil {
		i.logger.Error("failed to persist qr token", zap.String("token_id", id), zap.Error(err))
		return nil, fmt.Errorf("create qr token: %w", err)
	}

	i.metrics.RecordIssued(qrType)
	i.logger.Info("qr token issued",
		zap.String("token_id", id),
		zap.String("qr_type", string(qrType)),
		zap.String("reference_id", req.ReferenceID),
		zap.String("issued_by", req.Actor.ID),
		zap.Time("expires_at", expiresAt),
	)

	return &IssuedToken{Token: token, Record: rec, ExpiresAt: expiresAt}, nil
}

// authorizeIssue checks the actor may mint this token and resolves the
// business the token is scoped to.
func authorizeIssue(rule domainQR.IssuanceRule, req domainQR.IssueRequest, entity *domainQR.EntityState) (*string, error) {
	actor := req.Actor
	businessID := entity.BusinessID

	if actor.Role == domainQR.RoleAdmin {
		if req.BusinessID != nil {
			businessID = req.BusinessID
		}
		return businessID, nil
	}

	if req.BusinessID != nil && (entity.BusinessID == nil || *req.BusinessID != *entity.BusinessID) {
		return nil, domainErrors.ErrUnauthorized.WithDetail("business_id does not match the %s", rule.Entity)
	}

	switch {
	case actor.IsStaffOf(entity.BusinessID):
		return businessID, nil
	case actor.Role == domainQR.RoleCustomer && !rule.StaffOnly && entity.OwnerID == actor.ID:
		return businessID, nil
	}
	return nil, domainErrors.ErrUnauthorized.WithDetail("%s %s cannot issue this token", actor.Role, actor.ID)
}
