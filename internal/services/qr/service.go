package qr

import (
	"context"
	"time"

	"go.uber.org/zap"

	domainQR "csy/internal/domain/qr"
	domainErrors "csy/internal/errors"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Deps collects the collaborators of the QR service. Store, Codec, Lookup
// and Handlers are required.
type Deps struct {
	Store    TokenStore
	Codec    *Codec
	Lookup   EntityLookup
	Handlers Handlers
	Clock    Clock
	Metrics  MetricsCollector
	Logger   *zap.Logger
}

type service struct {
	store       TokenStore
	codec       *Codec
	now         Clock
	logger      *zap.Logger
	issuer      *Issuer
	validator   *Validator
	coordinator *Coordinator
}

// NewService creates a new QR service instance
func NewService(deps Deps) Service {
	if deps.Store == nil {
		panic("token store is required")
	}
	if deps.Codec == nil {
		panic("codec is required")
	}
	if deps.Lookup == nil {
		panic("entity lookup is required")
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Metrics == nil {
		deps.Metrics = &NoopMetricsCollector{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	logger := deps.Logger.Named("qr")

	return &service{
		store:       deps.Store,
		codec:       deps.Codec,
		now:         deps.Clock,
		logger:      logger,
		issuer:      NewIssuer(deps.Store, deps.Codec, deps.Lookup, deps.Clock, deps.Metrics, logger),
		validator:   NewValidator(deps.Store, deps.Codec, deps.Clock, deps.Metrics),
		coordinator: NewCoordinator(deps.Store, deps.Codec, deps.Lookup, deps.Handlers, deps.Clock, deps.Metrics, logger),
	}
}

func (s *service) Issue(ctx context.Context, req domainQR.IssueRequest) (*IssuedToken, error) {
	return s.issuer.Issue(ctx, req)
}

func (s *service) Validate(ctx context.Context, token string) (*TokenStatus, error) {
	return s.validator.Peek(ctx, token)
}

func (s *service) Redeem(ctx context.Context, req RedeemRequest) (*RedemptionResult, error) {
	return s.coordinator.Redeem(ctx, req)
}

// Revoke withdraws an unused token. The issuer, staff of the issuing
// business and admins may revoke.
func (s *service) Revoke(ctx context.Context, token string, actor domainQR.Actor) (*TokenStatus, error) {
	_, rec, err := resolve(ctx, s.codec, s.store, token)
	if err != nil {
		return nil, err
	}
	allowed := actor.Role == domainQR.RoleAdmin ||
		(actor.ID != "" && rec.IssuedByID == actor.ID) ||
		actor.IsStaffOf(rec.IssuingBusinessID)
	if !allowed {
		return nil, domainErrors.ErrUnauthorized.WithDetail("%s %s may not revoke this token", actor.Role, actor.ID)
	}

	now := s.now().UTC()
	revoked, err := s.store.Revoke(ctx, rec.ID, now)
	if err != nil {
		return nil, err
	}
	s.logger.Info("qr token revoked", zap.String("token_id", rec.ID), zap.String("actor_id", actor.ID))

	status := NewTokenStatus(revoked, now)
	return &status, nil
}

// ListByReference returns the tokens issued against one entity. Staff only
// see tokens of their own business. Admins see every business unless
// q.BusinessID narrows the result.
func (s *service) ListByReference(ctx context.Context, q ReferenceQuery, actor domainQR.Actor) ([]TokenStatus, int64, error) {
	if !q.Type.Valid() {
		return nil, 0, domainErrors.ErrInvalidQRType.WithDetail("unknown qr type %q", q.Type)
	}
	if q.ReferenceID == "" {
		return nil, 0, domainErrors.ErrInvalidRequest.WithDetail("reference id is required")
	}
	switch {
	case actor.Role == domainQR.RoleAdmin:
	case actor.Role.IsStaff() && actor.BusinessID != nil:
		q.BusinessID = actor.BusinessID
	default:
		return nil, 0, domainErrors.ErrUnauthorized.WithDetail("only staff may list tokens")
	}
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	records, total, err := s.store.ListByReference(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	out := make([]TokenStatus, 0, len(records))
	for i := range records {
		out = append(out, NewTokenStatus(&records[i], now))
	}
	return out, total, nil
}
