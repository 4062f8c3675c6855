package qr

import (
	"context"
	"time"

	"go.uber.org/zap"

	"csy/internal/models"
)

// CachedStore fronts TokenStore.Get with a short-lived cache. Create and
// Claim go straight to the wrapped store, so the claim path never reads or
// writes the cache.
type CachedStore struct {
	TokenStore
	cache  TokenCache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedStore(store TokenStore, cache TokenCache, ttl time.Duration, logger *zap.Logger) *CachedStore {
	if store == nil {
		panic("token store is required")
	}
	if cache == nil {
		panic("token cache is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedStore{TokenStore: store, cache: cache, ttl: ttl, logger: logger}
}

// Get serves from cache when possible. Cache failures degrade to a store read.
func (s *CachedStore) Get(ctx context.Context, id string) (*models.QRToken, error) {
	if rec, ok, err := s.cache.GetToken(ctx, id); err != nil {
		s.logger.Warn("qr token cache read failed", zap.String("token_id", id), zap.Error(err))
	} else if ok {
		return rec, nil
	}

	rec, err := s.TokenStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetToken(ctx, rec, s.ttl); err != nil {
		s.logger.Warn("qr token cache write failed", zap.String("token_id", id), zap.Error(err))
	}
	return rec, nil
}

// Revoke drops the cached entry once the store has recorded the revocation.
func (s *CachedStore) Revoke(ctx context.Context, id string, now time.Time) (*models.QRToken, error) {
	rec, err := s.TokenStore.Revoke(ctx, id, now)
	if err != nil {
		return nil, err
	}
	if err := s.cache.InvalidateToken(ctx, id); err != nil {
		s.logger.Warn("qr token cache invalidation failed", zap.String("token_id", id), zap.Error(err))
	}
	return rec, nil
}
