package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainErrors "csy/internal/errors"
	"csy/internal/models"
)

// Service implements the reservation check-in and completion transitions.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	if db == nil {
		panic("db is required")
	}
	return &Service{db: db}
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	var r models.Reservation
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrReferenceNotFound.WithDetail("reservation %s", id)
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &r, nil
}

func (s *Service) CheckIn(ctx context.Context, reservationID string, at time.Time) (*models.Reservation, error) {
	return s.transition(ctx, reservationID,
		[]string{models.ReservationStatusPending, models.ReservationStatusConfirmed},
		map[string]interface{}{
			"status":        models.ReservationStatusCheckedIn,
			"checked_in_at": at,
		})
}

func (s *Service) Complete(ctx context.Context, reservationID string, at time.Time) (*models.Reservation, error) {
	return s.transition(ctx, reservationID,
		[]string{models.ReservationStatusCheckedIn},
		map[string]interface{}{
			"status":       models.ReservationStatusCompleted,
			"completed_at": at,
		})
}

func (s *Service) transition(ctx context.Context, id string, from []string, updates map[string]interface{}) (*models.Reservation, error) {
	var r models.Reservation
	result := s.db.WithContext(ctx).
		Model(&r).
		Clauses(clause.Returning{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update reservation: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return &r, nil
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, domainErrors.ErrInvalidState.WithDetail("reservation %s is %s", id, current.Status)
}
