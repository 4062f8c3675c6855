package datastore

import (
	"context"
	"sort"
	"sync"
	"time"

	domainQR "csy/internal/domain/qr"
	domainErrors "csy/internal/errors"
	"csy/internal/models"
)

// MemoryStore is an in-process token store for development and tests.
// Each method holds the mutex for its whole read-modify-write, which makes
// Claim a compare-and-swap exactly like the SQL stores' conditional update.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]*models.QRToken
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]*models.QRToken)}
}

func (s *MemoryStore) Create(_ context.Context, token *models.QRToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[token.ID]; exists {
		return domainErrors.ErrTokenConflict.WithDetail("id %s", token.ID)
	}
	rec := token.Clone()
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	s.tokens[rec.ID] = rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.QRToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.tokens[id]
	if !ok {
		return nil, domainErrors.ErrTokenNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Claim(_ context.Context, id string, actor domainQR.Actor, now time.Time) (*models.QRToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[id]
	if !ok {
		return nil, domainErrors.ErrTokenNotFound
	}
	if !domainQR.Claimable(rec, now) {
		return nil, domainQR.ClaimFailure(rec, now)
	}

	usedAt := now
	role := string(actor.Role)
	actorID := actor.ID
	rec.IsUsed = true
	rec.UsedAt = &usedAt
	rec.UsedByID = &actorID
	rec.UsedByRole = &role
	rec.UpdatedAt = now
	return rec.Clone(), nil
}

func (s *MemoryStore) Revoke(_ context.Context, id string, now time.Time) (*models.QRToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[id]
	if !ok {
		return nil, domainErrors.ErrTokenNotFound
	}
	if !domainQR.Revocable(rec) {
		return nil, domainQR.RevokeFailure(rec)
	}
	revokedAt := now
	rec.RevokedAt = &revokedAt
	rec.UpdatedAt = now
	return rec.Clone(), nil
}

func (s *MemoryStore) ListByReference(_ context.Context, q domainQR.ReferenceQuery) ([]models.QRToken, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.QRToken
	for _, rec := range s.tokens {
		if rec.QRType != string(q.Type) || rec.ReferenceID != q.ReferenceID {
			continue
		}
		if q.BusinessID != nil && (rec.IssuingBusinessID == nil || *rec.IssuingBusinessID != *q.BusinessID) {
			continue
		}
		matched = append(matched, *rec.Clone())
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].IssuedAt.Equal(matched[j].IssuedAt) {
			return matched[i].IssuedAt.After(matched[j].IssuedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	if q.Offset >= len(matched) {
		return []models.QRToken{}, total, nil
	}
	end := len(matched)
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return matched[q.Offset:end], total, nil
}

func (s *MemoryStore) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, rec := range s.tokens {
		if rec.ExpiresAt.Before(cutoff) {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}

// Close is a no-op for MemoryStore.
func (s *MemoryStore) Close() error {
	return nil
}
