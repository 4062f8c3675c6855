package qr

import (
	"context"
	"time"

	"go.uber.org/zap"

	domainQR "csy/internal/domain/qr"
	domainErrors "csy/internal/errors"
	"csy/internal/models"
	"csy/internal/validation"
)

const (
	OutcomeRedeemed     = "redeemed"
	OutcomeActionFailed = "action_failed"
)

type RedeemRequest struct {
	Token   string
	Actor   domainQR.Actor
	Action  string
	Context map[string]interface{}
}

// RedeemedBy identifies the actor whose claim won.
type RedeemedBy struct {
	ID   string             `json:"id"`
	Role domainQR.ActorRole `json:"role"`
}

// RedemptionResult is returned for every successful claim, including claims
// whose action then failed.
type RedemptionResult struct {
	TokenID           string          `json:"token_id"`
	Type              domainQR.QRType `json:"qr_type"`
	ReferenceID       string          `json:"reference_id"`
	IssuingBusinessID *string         `json:"issuing_business_id,omitempty"`
	IssuedBy          string          `json:"issued_by"`
	IssuedAt          time.Time       `json:"issued_at"`
	ExpiresAt         time.Time       `json:"expires_at"`
	RedeemedAt        time.Time       `json:"redeemed_at"`
	RedeemedBy        RedeemedBy      `json:"redeemed_by"`
	Effect            *EffectResult   `json:"effect_result,omitempty"`
}

// Coordinator is the only component that moves a token from unused to used.
type Coordinator struct {
	store    TokenStore
	codec    *Codec
	lookup   EntityLookup
	handlers Handlers
	now      Clock
	metrics  MetricsCollector
	logger   *zap.Logger
}

func NewCoordinator(store TokenStore, codec *Codec, lookup EntityLookup, handlers Handlers, now Clock, metrics MetricsCollector, logger *zap.Logger) *Coordinator {
	if store == nil {
		panic("token store is required")
	}
	if codec == nil {
		panic("codec is required")
	}
	if lookup == nil {
		panic("entity lookup is required")
	}
	handlers.mustBeComplete()
	if now == nil {
		now = time.Now
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:    store,
		codec:    codec,
		lookup:   lookup,
		handlers: handlers,
		now:      now,
		metrics:  metrics,
		logger:   logger,
	}
}

// Redeem decodes, authorizes, claims and then applies the token's action.
// Every rejection before the claim leaves the token untouched. When the
// action fails after a successful claim the result is returned together
// with an action_failed error and the token stays used.
func (c *Coordinator) Redeem(ctx context.Context, req RedeemRequest) (*RedemptionResult, error) {
	fields, rec, err := resolve(ctx, c.codec, c.store, req.Token)
	if err != nil {
		return nil, c.reject(fields.Type, err)
	}
	qrType := fields.Type

	if err := c.authorize(ctx, qrType, req.Actor, rec); err != nil {
		return nil, c.reject(qrType, err)
	}

	handler, err := c.handlers.For(qrType)
	if err != nil {
		return nil, c.reject(qrType, err)
	}

	now := c.now().UTC()
	action := ActionRequest{
		Token:   rec,
		Actor:   req.Actor,
		Action:  req.Action,
		Context: req.Context,
		At:      now,
	}
	if p, ok := handler.(preflighter); ok {
		if err := p.Preflight(ctx, action); err != nil {
			return nil, c.reject(qrType, err)
		}
	}

	claimed, err := c.store.Claim(ctx, rec.ID, req.Actor, now)
	if err != nil {
		return nil, c.reject(qrType, err)
	}
	action.Token = claimed

	result := &RedemptionResult{
		TokenID:           claimed.ID,
		Type:              qrType,
		ReferenceID:       claimed.ReferenceID,
		IssuingBusinessID: claimed.IssuingBusinessID,
		IssuedBy:          claimed.IssuedByID,
		IssuedAt:          claimed.IssuedAt,
		ExpiresAt:         claimed.ExpiresAt,
		RedeemedAt:        now,
		RedeemedBy:        RedeemedBy{ID: req.Actor.ID, Role: req.Actor.Role},
	}
	if claimed.UsedAt != nil {
		result.RedeemedAt = *claimed.UsedAt
	}

	effect, err := handler.Apply(ctx, action)
	if err != nil {
		c.metrics.RecordRedemption(qrType, OutcomeActionFailed)
		c.logger.Error("qr action failed after claim",
			zap.String("token_id", claimed.ID),
			zap.String("qr_type", string(qrType)),
			zap.String("reference_id", claimed.ReferenceID),
			zap.String("actor_id", req.Actor.ID),
			zap.Error(err),
		)
		return result, domainErrors.ErrActionFailed.Wrap(err)
	}
	result.Effect = effect

	c.metrics.RecordRedemption(qrType, OutcomeRedeemed)
	c.logger.Info("qr token redeemed",
		zap.String("token_id", claimed.ID),
		zap.String("qr_type", string(qrType)),
		zap.String("reference_id", claimed.ReferenceID),
		zap.String("actor_id", req.Actor.ID),
		zap.String("actor_role", string(req.Actor.Role)),
	)
	return result, nil
}

func (c *Coordinator) reject(qrType domainQR.QRType, err error) error {
	c.metrics.RecordRedemption(qrType, string(domainErrors.CodeOf(err)))
	c.logger.Debug("qr redemption rejected", zap.String("qr_type", string(qrType)), zap.Error(err))
	return err
}

// authorize decides whether actor may redeem rec. It never writes.
func (c *Coordinator) authorize(ctx context.Context, qrType domainQR.QRType, actor domainQR.Actor, rec *models.QRToken) error {
	if actor.ID == "" {
		return domainErrors.ErrUnauthorized.WithDetail("actor is required")
	}
	if actor.Role == domainQR.RoleAdmin || actor.IsStaffOf(rec.IssuingBusinessID) {
		return nil
	}

	switch qrType {
	case domainQR.TypeDiscount:
		if actor.Role == domainQR.RoleCustomer {
			order, err := c.lookup.ExistsAndState(ctx, domainQR.EntityOrder, rec.ReferenceID)
			if err != nil {
				return err
			}
			if order.OwnerID == actor.ID {
				return nil
			}
		}
	case domainQR.TypeDriverPickup:
		if actor.Role == domainQR.RoleDriver {
			if driverID, ok := rec.Payload.String(validation.PayloadDriverID); ok && driverID == actor.ID {
				return nil
			}
		}
	}
	return domainErrors.ErrUnauthorized.WithDetail("%s %s may not redeem this %s token", actor.Role, actor.ID, qrType)
}
