// Package lookup answers which state a reference entity is in, on behalf
// of the QR issuer and action handlers.
package lookup

import (
	"context"

	domainQR "csy/internal/domain/qr"
	domainErrors "csy/internal/errors"
	"csy/internal/models"
)

type OrderReader interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
}

type ReservationReader interface {
	GetByID(ctx context.Context, id string) (*models.Reservation, error)
}

type Service struct {
	orders       OrderReader
	reservations ReservationReader
}

func NewService(orders OrderReader, reservations ReservationReader) *Service {
	if orders == nil {
		panic("order reader is required")
	}
	if reservations == nil {
		panic("reservation reader is required")
	}
	return &Service{orders: orders, reservations: reservations}
}

// ExistsAndState reports the state of the referenced entity. A payment is
// the payment side of an order and is keyed by the order id.
func (s *Service) ExistsAndState(ctx context.Context, entity domainQR.EntityType, referenceID string) (*domainQR.EntityState, error) {
	switch entity {
	case domainQR.EntityOrder, domainQR.EntityPayment:
		o, err := s.orders.GetByID(ctx, referenceID)
		if err != nil {
			return nil, err
		}
		return OrderState(entity, o), nil
	case domainQR.EntityReservation:
		r, err := s.reservations.GetByID(ctx, referenceID)
		if err != nil {
			return nil, err
		}
		return ReservationState(r), nil
	}
	return nil, domainErrors.ErrInvalidRequest.WithDetail("unknown entity type %q", entity)
}

// OrderState projects an order as either the order or its payment.
func OrderState(entity domainQR.EntityType, o *models.Order) *domainQR.EntityState {
	businessID := o.BusinessID
	state := o.Status
	if entity == domainQR.EntityPayment && o.Status != models.OrderStatusCancelled {
		state = o.PaymentStatus
	}
	return &domainQR.EntityState{
		Type:        entity,
		ReferenceID: o.ID,
		State:       state,
		OwnerID:     o.CustomerID,
		BusinessID:  &businessID,
	}
}

func ReservationState(r *models.Reservation) *domainQR.EntityState {
	businessID := r.BusinessID
	return &domainQR.EntityState{
		Type:        domainQR.EntityReservation,
		ReferenceID: r.ID,
		State:       r.Status,
		OwnerID:     r.CustomerID,
		BusinessID:  &businessID,
	}
}
