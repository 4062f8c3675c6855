package qr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csy/internal/datastore"
	domainQR "csy/internal/domain/qr"
	domainErrors "csy/internal/errors"
)

func TestValidator_PeekIsReadOnly(t *testing.T) {
	f := newFixture(t, datastore.NewMemoryStore())
	ctx := context.Background()
	issued := f.issue(t, domainQR.TypePayment, "O1", cashier, nil)

	first, err := f.svc.Validate(ctx, issued.Token)
	require.NoError(t, err)
	second, err := f.svc.Validate(ctx, issued.Token)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, domainQR.StatusActive, first.Status)
	assert.Equal(t, domainQR.TypePayment, first.Type)
	assert.Equal(t, "O1", first.ReferenceID)
	assert.False(t, first.IsUsed)

	// Validation never consumes the token.
	_, err = f.svc.Redeem(ctx, RedeemRequest{Token: issued.Token, Actor: cashier})
	assert.NoError(t, err)
}

func TestValidator_ReportsExpiryAsStatus(t *testing.T) {
	f := newFixture(t, datastore.NewMemoryStore())
	issued := f.issue(t, domainQR.TypePayment, "O1", cashier, nil)

	f.clock.Advance(time.Hour)
	status, err := f.svc.Validate(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.True(t, status.IsExpired)
	assert.Equal(t, domainQR.StatusExpired, status.Status)
}

func TestValidator_Errors(t *testing.T) {
	f := newFixture(t, datastore.NewMemoryStore())
	codec := newTestCodec(t)
	orphan, err := codec.Encode(sampleFields())
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "garbage", token: "garbage", wantErr: domainErrors.ErrMalformedToken},
		{name: "no record", token: orphan, wantErr: domainErrors.ErrTokenNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Validate(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidator_RecordsOutcome(t *testing.T) {
	metrics := new(MockMetrics)
	metrics.On("RecordValidation", string(domainErrors.CodeMalformed)).Return().Once()

	v := NewValidator(datastore.NewMemoryStore(), newTestCodec(t), nil, metrics)
	_, err := v.Peek(context.Background(), "x.y.z")
	assert.Error(t, err)
	metrics.AssertExpectations(t)
}
