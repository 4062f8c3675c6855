//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csy/internal/config"
	"csy/internal/models"
)

func testCache(t *testing.T) *CacheService {
	t.Helper()
	host := os.Getenv("TEST_REDIS_HOST")
	if host == "" {
		t.Skip("TEST_REDIS_HOST not set")
	}
	client, err := NewRedisClient(context.Background(), config.RedisConfig{
		Host: host,
		Port: config.GetEnv("TEST_REDIS_PORT", "6379"),
	})
	require.NoError(t, err)

	svc := NewCacheService(client, time.Minute)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestCacheService_TokenRoundTrip(t *testing.T) {
	svc := testCache(t)
	ctx := context.Background()

	tok := &models.QRToken{ID: uuid.NewString(), QRType: "order", ReferenceID: "O1", Payload: models.JSON{"k": "v"}}

	_, found, err := svc.GetToken(ctx, tok.ID)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, svc.SetToken(ctx, tok, time.Minute))
	got, found, err := svc.GetToken(ctx, tok.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, tok.ReferenceID, got.ReferenceID)
	assert.Equal(t, "v", got.Payload["k"])

	require.NoError(t, svc.InvalidateToken(ctx, tok.ID))
	_, found, err = svc.GetToken(ctx, tok.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheService_HealthCheck(t *testing.T) {
	svc := testCache(t)
	assert.NoError(t, svc.HealthCheck(context.Background()))
	assert.NotNil(t, svc.GetStats(context.Background()))
}
