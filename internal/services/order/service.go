package order

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

// Service implements the narrow order transitions triggered by QR actions.
// Each transition is a conditional write on the order's current state.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	if db == nil {
		panic("db is required")
	}
	return &Service{db: db}
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrReferenceNotFound.WithDetail("order %s", id)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

// ApplyDiscount applies discount once to a pending, unpaid order.
func (s *Service) ApplyDiscount(ctx context.Context, orderID string, discount models.Discount, tokenID string) (*models.Order, error) {
	var o models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", orderID).First(&o).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainErrors.ErrReferenceNotFound.WithDetail("order %s", orderID)
			}
			return err
		}
		switch {
		case o.Status != models.OrderStatusPending:
			return domainErrors.ErrInvalidState.WithDetail("order %s is %s", orderID, o.Status)
		case o.PaymentStatus != models.PaymentStatusUnpaid:
			return domainErrors.ErrInvalidState.WithDetail("order %s is already paid", orderID)
		case o.DiscountTokenID != nil:
			return domainErrors.ErrInvalidState.WithDetail("order %s already has a discount", orderID)
		}

		amount := discount.AmountFor(o.Total)
		if err := tx.Model(&o).Updates(map[string]interface{}{
			"discount_amount":   amount,
			"discount_token_id": tokenID,
		}).Error; err != nil {
			return err
		}
		o.DiscountAmount = amount
		o.DiscountTokenID = &tokenID
		return nil
	})
	if err != nil {
		return nil, wrap("apply discount", err)
	}
	return &o, nil
}

// MarkPaid records payment of an unpaid, non-cancelled order.
func (s *Service) MarkPaid(ctx context.Context, orderID, method string, at time.Time) (*models.Order, error) {
	return s.transition(ctx, orderID,
		map[string]interface{}{
			"payment_status": models.PaymentStatusPaid,
			"payment_method": method,
			"paid_at":        at,
		},
		"payment_status = ? AND status <> ?", models.PaymentStatusUnpaid, models.OrderStatusCancelled)
}

// CompleteHandoff moves a ready or in-delivery order to completed.
func (s *Service) CompleteHandoff(ctx context.Context, orderID string, at time.Time) (*models.Order, error) {
	return s.transition(ctx, orderID,
		map[string]interface{}{
			"status":       models.OrderStatusCompleted,
			"completed_at": at,
		},
		"status IN ?", []string{models.OrderStatusReady, models.OrderStatusOutForDelivery})
}

// ConfirmDriverPickup hands a ready order to driverID.
func (s *Service) ConfirmDriverPickup(ctx context.Context, orderID, driverID string, at time.Time) (*models.Order, error) {
	return s.transition(ctx, orderID,
		map[string]interface{}{
			"status":       models.OrderStatusOutForDelivery,
			"driver_id":    driverID,
			"picked_up_at": at,
		},
		"status = ? AND (driver_id IS NULL OR driver_id = ?)", models.OrderStatusReady, driverID)
}

// transition applies updates when the order matches the guard condition and
// reports the current state otherwise.
func (s *Service) transition(ctx context.Context, orderID string, updates map[string]interface{}, guard string, args ...interface{}) (*models.Order, error) {
	var o models.Order
	result := s.db.WithContext(ctx).
		Model(&o).
		Clauses(clause.Returning{}).
		Where("id = ?", orderID).
		Where(guard, args...).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update order: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return &o, nil
	}

	current, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return nil, domainErrors.ErrInvalidState.WithDetail("order %s is %s/%s", orderID, current.Status, current.PaymentStatus)
}

func wrap(op string, err error) error {
	if _, ok := domainErrors.As(err); ok {
		return err
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
