package qr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "csy/internal/errors"
	"csy/internal/models"
)

func strPtr(s string) *string { return &s }

func TestParseType(t *testing.T) {
	for _, want := range AllTypes {
		got, err := ParseType(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"", "refund", "Payment", "payment "} {
		_, err := ParseType(bad)
		assert.Error(t, err, bad)
	}
}

func TestEveryTypeHasPolicyAndRule(t *testing.T) {
	for _, qrType := range AllTypes {
		policy, ok := TTLPolicies[qrType]
		require.True(t, ok, qrType)
		assert.Greater(t, int64(policy.Default), int64(0))
		assert.LessOrEqual(t, int64(policy.Default), int64(policy.Max))

		rule, ok := IssuanceRules[qrType]
		require.True(t, ok, qrType)
		assert.NotEmpty(t, rule.States)
	}
}

func TestTTLPolicy_Resolve(t *testing.T) {
	p := TTLPolicy{Default: 15 * time.Minute, Max: time.Hour}

	assert.Equal(t, 15*time.Minute, p.Resolve(0))
	assert.Equal(t, 15*time.Minute, p.Resolve(-time.Second))
	assert.Equal(t, 5*time.Minute, p.Resolve(5*time.Minute))
	assert.Equal(t, time.Hour, p.Resolve(time.Hour))
	assert.Equal(t, time.Hour, p.Resolve(3*time.Hour))
}

func TestIssuanceRule_Allows(t *testing.T) {
	payment := IssuanceRules[TypePayment]
	assert.True(t, payment.Allows(models.PaymentStatusUnpaid))
	assert.False(t, payment.Allows(models.PaymentStatusPaid))
	assert.False(t, payment.Allows(models.OrderStatusCancelled))

	reservation := IssuanceRules[TypeReservation]
	assert.True(t, reservation.Allows(models.ReservationStatusConfirmed))
	assert.True(t, reservation.Allows(models.ReservationStatusCheckedIn))
	assert.False(t, reservation.Allows(models.ReservationStatusCompleted))

	order := IssuanceRules[TypeOrder]
	assert.True(t, order.Allows(models.OrderStatusReady))
	assert.False(t, order.Allows(models.OrderStatusCompleted))
}

func TestActor_IsStaffOf(t *testing.T) {
	biz := strPtr("biz-1")

	tests := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{name: "cashier of business", actor: Actor{Role: RoleCashier, BusinessID: strPtr("biz-1")}, want: true},
		{name: "business owner", actor: Actor{Role: RoleBusiness, BusinessID: strPtr("biz-1")}, want: true},
		{name: "cashier elsewhere", actor: Actor{Role: RoleCashier, BusinessID: strPtr("biz-2")}},
		{name: "cashier without business", actor: Actor{Role: RoleCashier}},
		{name: "customer with business id", actor: Actor{Role: RoleCustomer, BusinessID: strPtr("biz-1")}},
		{name: "admin", actor: Actor{Role: RoleAdmin, BusinessID: strPtr("biz-1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.actor.IsStaffOf(biz))
		})
	}

	assert.False(t, Actor{Role: RoleCashier, BusinessID: biz}.IsStaffOf(nil))
}

func TestStatusOf(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		rec  models.QRToken
		want Status
	}{
		{name: "active", rec: models.QRToken{ExpiresAt: future}, want: StatusActive},
		{name: "expired", rec: models.QRToken{ExpiresAt: past}, want: StatusExpired},
		{name: "expiry instant is expired", rec: models.QRToken{ExpiresAt: now}, want: StatusExpired},
		{name: "revoked beats expired", rec: models.QRToken{ExpiresAt: past, RevokedAt: &past}, want: StatusRevoked},
		{name: "used beats revoked", rec: models.QRToken{ExpiresAt: past, RevokedAt: &past, IsUsed: true}, want: StatusUsed},
		{name: "used", rec: models.QRToken{ExpiresAt: future, IsUsed: true}, want: StatusUsed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(&tt.rec, now))
			assert.Equal(t, tt.want == StatusActive, Claimable(&tt.rec, now))
		})
	}
}

func TestClaimFailure(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)

	assert.ErrorIs(t, ClaimFailure(nil, now), domainErrors.ErrTokenNotFound)
	assert.ErrorIs(t, ClaimFailure(&models.QRToken{IsUsed: true, ExpiresAt: past}, now), domainErrors.ErrQRAlreadyUsed)
	assert.ErrorIs(t, ClaimFailure(&models.QRToken{RevokedAt: &past, ExpiresAt: past}, now), domainErrors.ErrQRRevoked)
	assert.ErrorIs(t, ClaimFailure(&models.QRToken{ExpiresAt: past}, now), domainErrors.ErrQRExpired)
	assert.ErrorIs(t, ClaimFailure(&models.QRToken{ID: "t-1", ExpiresAt: now.Add(time.Hour)}, now), domainErrors.ErrTokenConflict)
}

func TestRevokeFailure(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.ErrorIs(t, RevokeFailure(nil), domainErrors.ErrTokenNotFound)
	assert.ErrorIs(t, RevokeFailure(&models.QRToken{IsUsed: true}), domainErrors.ErrQRAlreadyUsed)
	assert.ErrorIs(t, RevokeFailure(&models.QRToken{RevokedAt: &now}), domainErrors.ErrQRRevoked)
	assert.ErrorIs(t, RevokeFailure(&models.QRToken{ID: "t-1"}), domainErrors.ErrTokenConflict)

	assert.True(t, Revocable(&models.QRToken{ExpiresAt: now.Add(-time.Hour)}), "expired tokens can be revoked")
	assert.False(t, Revocable(&models.QRToken{IsUsed: true}))
}
