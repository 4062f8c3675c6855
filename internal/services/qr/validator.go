package qr

import (
	"context"
	"time"

	domainQR "csy/internal/domain/qr"
	domainErrors "csy/internal/errors"
	"csy/internal/models"
)

// TokenStatus is a read-only view of a token record at a point in time.
type TokenStatus struct {
	ID                string          `json:"id"`
	Type              domainQR.QRType `json:"qr_type"`
	ReferenceID       string          `json:"reference_id"`
	IssuingBusinessID *string         `json:"issuing_business_id,omitempty"`
	IssuedAt          time.Time       `json:"issued_at"`
	ExpiresAt         time.Time       `json:"expires_at"`
	IsUsed            bool            `json:"is_used"`
	IsRevoked         bool            `json:"is_revoked"`
	IsExpired         bool            `json:"is_expired"`
	Status            domainQR.Status `json:"status"`
	UsedAt            *time.Time      `json:"used_at,omitempty"`
}

// NewTokenStatus describes rec as observed at now.
func NewTokenStatus(rec *models.QRToken, now time.Time) TokenStatus {
	return TokenStatus{
		ID:                rec.ID,
		Type:              domainQR.QRType(rec.QRType),
		ReferenceID:       rec.ReferenceID,
		IssuingBusinessID: rec.IssuingBusinessID,
		IssuedAt:          rec.IssuedAt,
		ExpiresAt:         rec.ExpiresAt,
		IsUsed:            rec.IsUsed,
		IsRevoked:         rec.IsRevoked(),
		IsExpired:         rec.IsExpired(now),
		Status:            domainQR.StatusOf(rec, now),
		UsedAt:            rec.UsedAt,
	}
}

// Validator inspects tokens without ever changing them.
type Validator struct {
	store   TokenStore
	codec   *Codec
	now     Clock
	metrics MetricsCollector
}

func NewValidator(store TokenStore, codec *Codec, now Clock, metrics MetricsCollector) *Validator {
	if store == nil {
		panic("token store is required")
	}
	if codec == nil {
		panic("codec is required")
	}
	if now == nil {
		now = time.Now
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	return &Validator{store: store, codec: codec, now: now, metrics: metrics}
}

// Peek reports the current state of token. An expired token is a status,
// not an error.
func (v *Validator) Peek(ctx context.Context, token string) (*TokenStatus, error) {
	_, rec, err := resolve(ctx, v.codec, v.store, token)
	if err != nil {
		v.metrics.RecordValidation(string(domainErrors.CodeOf(err)))
		return nil, err
	}
	status := NewTokenStatus(rec, v.now())
	v.metrics.RecordValidation(string(status.Status))
	return &status, nil
}

// resolve decodes token and loads its record, rejecting strings whose signed
// fields disagree with the stored record.
func resolve(ctx context.Context, codec *Codec, store TokenStore, token string) (Fields, *models.QRToken, error) {
	fields, err := codec.Decode(token)
	if err != nil {
		return Fields{}, nil, err
	}
	rec, err := store.Get(ctx, fields.ID)
	if err != nil {
		return Fields{}, nil, err
	}
	stored := Fields{
		ID:          rec.ID,
		Type:        domainQR.QRType(rec.QRType),
		ReferenceID: rec.ReferenceID,
		ExpiresAt:   rec.ExpiresAt,
	}
	if !fields.Equal(stored) || rec.Signature != Signature(token) {
		return Fields{}, nil, domainErrors.ErrMalformedToken.WithDetail("token does not match its record")
	}
	return fields, rec, nil
}
