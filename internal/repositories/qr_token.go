package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainQR "csy/internal/domain/qr"
	domainErrors "csy/internal/errors"
	"csy/internal/models"
)

// QRTokenRepository is the postgres-backed token store.
type QRTokenRepository struct {
	db *gorm.DB
}

func NewQRTokenRepository(db *gorm.DB) *QRTokenRepository {
	if db == nil {
		panic("db is required")
	}
	return &QRTokenRepository{db: db}
}

func (r *QRTokenRepository) Create(ctx context.Context, token *models.QRToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainErrors.ErrTokenConflict.WithDetail("id %s", token.ID)
		}
		return fmt.Errorf("failed to create qr token: %w", err)
	}
	return nil
}

func (r *QRTokenRepository) Get(ctx context.Context, id string) (*models.QRToken, error) {
	var token models.QRToken
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get qr token: %w", err)
	}
	return &token, nil
}

// Claim issues a single conditional UPDATE ... RETURNING. Postgres row
// locking lets exactly one concurrent statement match the unused row.
func (r *QRTokenRepository) Claim(ctx context.Context, id string, actor domainQR.Actor, now time.Time) (*models.QRToken, error) {
	var claimed models.QRToken
	result := r.db.WithContext(ctx).
		Model(&claimed).
		Clauses(clause.Returning{}).
		Where("id = ? AND is_used = ? AND revoked_at IS NULL AND expires_at > ?", id, false, now).
		Updates(map[string]interface{}{
			"is_used":      true,
			"used_at":      now,
			"used_by_id":   actor.ID,
			"used_by_role": string(actor.Role),
			"updated_at":   now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to claim qr token: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return &claimed, nil
	}
	return nil, r.classify(ctx, id, func(cur *models.QRToken) error {
		return domainQR.ClaimFailure(cur, now)
	})
}

func (r *QRTokenRepository) Revoke(ctx context.Context, id string, now time.Time) (*models.QRToken, error) {
	var revoked models.QRToken
	result := r.db.WithContext(ctx).
		Model(&revoked).
		Clauses(clause.Returning{}).
		Where("id = ? AND is_used = ? AND revoked_at IS NULL", id, false).
		Updates(map[string]interface{}{
			"revoked_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to revoke qr token: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return &revoked, nil
	}
	return nil, r.classify(ctx, id, domainQR.RevokeFailure)
}

func (r *QRTokenRepository) classify(ctx context.Context, id string, failure func(*models.QRToken) error) error {
	cur, err := r.Get(ctx, id)
	if errors.Is(err, domainErrors.ErrTokenNotFound) {
		return failure(nil)
	}
	if err != nil {
		return err
	}
	return failure(cur)
}

func (r *QRTokenRepository) ListByReference(ctx context.Context, q domainQR.ReferenceQuery) ([]models.QRToken, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.QRToken{}).
		Where("qr_type = ? AND reference_id = ?", string(q.Type), q.ReferenceID)
	if q.BusinessID != nil {
		query = query.Where("issuing_business_id = ?", *q.BusinessID)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count qr tokens: %w", err)
	}

	tokens := []models.QRToken{}
	page := query.Order("issued_at DESC, id ASC").Offset(q.Offset)
	if q.Limit > 0 {
		page = page.Limit(q.Limit)
	}
	if err := page.Find(&tokens).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list qr tokens: %w", err)
	}
	return tokens, total, nil
}

func (r *QRTokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at < ?", cutoff).Delete(&models.QRToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge qr tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
