package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"csy/internal/models"
	keys "csy/internal/utils/cache"
)

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// QR token caching
func (s *CacheService) GetToken(ctx context.Context, id string) (*models.QRToken, bool, error) {
	var token models.QRToken
	found, err := s.Get(ctx, keys.GenerateKey(keys.EntityQRToken, keys.KeyID, id), &token)
	if err != nil || !found {
		return nil, false, err
	}
	return &token, true, nil
}

func (s *CacheService) SetToken(ctx context.Context, token *models.QRToken, ttl time.Duration) error {
	if token == nil {
		return errors.New("cannot cache nil token")
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	return s.SetWithTTL(ctx, keys.GenerateKey(keys.EntityQRToken, keys.KeyID, token.ID), token, ttl)
}

func (s *CacheService) InvalidateToken(ctx context.Context, id string) error {
	return s.Delete(ctx, keys.GenerateKey(keys.EntityQRToken, keys.KeyID, id))
}

// HealthCheck pings redis.
func (s *CacheService) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

func (s *CacheService) GetStats(ctx context.Context) *redis.PoolStats {
	return s.client.PoolStats()
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
