package qr

import (
	"context"
	"time"

	domainQR "csy/internal/domain/qr"
	domainErrors "csy/internal/errors"
	"csy/internal/models"
	"csy/internal/validation"
)

const (
	ActionCheckIn  = "check_in"
	ActionComplete = "complete"

	DefaultPaymentMethod = "cash"
	maxMethodLength      = 32
)

// ActionRequest is what a handler receives once its token has been claimed.
type ActionRequest struct {
	Token   *models.QRToken
	Actor   domainQR.Actor
	Action  string
	Context map[string]interface{}
	At      time.Time
}

// EffectResult describes the change a handler made to its entity.
type EffectResult struct {
	Entity      domainQR.EntityType    `json:"entity"`
	ReferenceID string                 `json:"reference_id"`
	State       string                 `json:"state"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// ActionHandler applies the post-redemption effect of one token type.
type ActionHandler interface {
	Apply(ctx context.Context, req ActionRequest) (*EffectResult, error)
}

// preflighter is implemented by handlers that can reject a request before
// the token is claimed. Preflight only reads.
type preflighter interface {
	Preflight(ctx context.Context, req ActionRequest) error
}

// Handlers binds one handler to every QR type.
type Handlers struct {
	Discount     ActionHandler
	Payment      ActionHandler
	Reservation  ActionHandler
	Order        ActionHandler
	DriverPickup ActionHandler
}

// For returns the handler bound to t.
func (h Handlers) For(t domainQR.QRType) (ActionHandler, error) {
	switch t {
	case domainQR.TypeDiscount:
		return h.Discount, nil
	case domainQR.TypePayment:
		return h.Payment, nil
	case domainQR.TypeReservation:
		return h.Reservation, nil
	case domainQR.TypeOrder:
		return h.Order, nil
	case domainQR.TypeDriverPickup:
		return h.DriverPickup, nil
	}
	return nil, domainErrors.ErrInvalidQRType.WithDetail("no handler for %q", t)
}

func (h Handlers) mustBeComplete() {
	for _, t := range domainQR.AllTypes {
		if handler, _ := h.For(t); handler == nil {
			panic("no action handler bound for qr type " + t.String())
		}
	}
}

// NewHandlers builds the standard handler set over the order and
// reservation domains.
func NewHandlers(lookup EntityLookup, orders OrderOperator, reservations ReservationOperator) Handlers {
	if lookup == nil || orders == nil || reservations == nil {
		panic("lookup, order and reservation operators are required")
	}
	return Handlers{
		Discount:     &discountHandler{lookup: lookup, orders: orders},
		Payment:      &paymentHandler{lookup: lookup, orders: orders},
		Reservation:  &reservationHandler{lookup: lookup, reservations: reservations},
		Order:        &orderHandler{lookup: lookup, orders: orders},
		DriverPickup: &driverPickupHandler{lookup: lookup, orders: orders},
	}
}

// requireState re-reads the entity and checks it is in one of states.
func requireState(ctx context.Context, lookup EntityLookup, entity domainQR.EntityType, ref string, states ...string) error {
	current, err := lookup.ExistsAndState(ctx, entity, ref)
	if err != nil {
		return err
	}
	for _, s := range states {
		if current.State == s {
			return nil
		}
	}
	return domainErrors.ErrInvalidState.WithDetail("%s %s is %s", entity, ref, current.State)
}

func orderEffect(o *models.Order, data map[string]interface{}) *EffectResult {
	return &EffectResult{
		Entity:      domainQR.EntityOrder,
		ReferenceID: o.ID,
		State:       o.Status,
		Data:        data,
	}
}

type discountHandler struct {
	lookup EntityLookup
	orders OrderOperator
}

func (h *discountHandler) Apply(ctx context.Context, req ActionRequest) (*EffectResult, error) {
	ref := req.Token.ReferenceID
	if err := requireState(ctx, h.lookup, domainQR.EntityOrder, ref, models.OrderStatusPending); err != nil {
		return nil, err
	}
	discount, err := validation.DiscountFromPayload(req.Token.Payload)
	if err != nil {
		return nil, err
	}
	order, err := h.orders.ApplyDiscount(ctx, ref, discount, req.Token.ID)
	if err != nil {
		return nil, err
	}
	return orderEffect(order, map[string]interface{}{
		"discount_amount": order.DiscountAmount.StringFixed(2),
		"amount_due":      order.AmountDue().StringFixed(2),
	}), nil
}

type paymentHandler struct {
	lookup EntityLookup
	orders OrderOperator
}

func paymentMethod(ctx map[string]interface{}) string {
	if m, ok := models.JSON(ctx).String("method"); ok {
		return m
	}
	return DefaultPaymentMethod
}

func (h *paymentHandler) Preflight(_ context.Context, req ActionRequest) error {
	if len(paymentMethod(req.Context)) > maxMethodLength {
		return domainErrors.ErrInvalidRequest.WithDetail("payment method exceeds %d characters", maxMethodLength)
	}
	return nil
}

func (h *paymentHandler) Apply(ctx context.Context, req ActionRequest) (*EffectResult, error) {
	ref := req.Token.ReferenceID
	if err := requireState(ctx, h.lookup, domainQR.EntityPayment, ref, models.PaymentStatusUnpaid); err != nil {
		return nil, err
	}
	method := paymentMethod(req.Context)
	order, err := h.orders.MarkPaid(ctx, ref, method, req.At)
	if err != nil {
		return nil, err
	}
	return &EffectResult{
		Entity:      domainQR.EntityPayment,
		ReferenceID: order.ID,
		State:       order.PaymentStatus,
		Data: map[string]interface{}{
			"payment_method": method,
			"amount_paid":    order.AmountDue().StringFixed(2),
		},
	}, nil
}

type reservationHandler struct {
	lookup       EntityLookup
	reservations ReservationOperator
}

func reservationAction(action string) string {
	if action == "" {
		return ActionCheckIn
	}
	return action
}

// reservationSources lists the states each reservation action starts from.
var reservationSources = map[string][]string{
	ActionCheckIn:  {models.ReservationStatusPending, models.ReservationStatusConfirmed},
	ActionComplete: {models.ReservationStatusCheckedIn},
}

// Preflight rejects unknown actions and actions the reservation cannot take
// in its current state, so a check-in token is not spent on a completion.
func (h *reservationHandler) Preflight(ctx context.Context, req ActionRequest) error {
	from, ok := reservationSources[reservationAction(req.Action)]
	if !ok {
		return domainErrors.ErrInvalidRequest.WithDetail("unknown reservation action %q", req.Action)
	}
	return requireState(ctx, h.lookup, domainQR.EntityReservation, req.Token.ReferenceID, from...)
}

func (h *reservationHandler) Apply(ctx context.Context, req ActionRequest) (*EffectResult, error) {
	// The reservation may have moved between preflight and claim.
	if err := h.Preflight(ctx, req); err != nil {
		return nil, err
	}
	ref := req.Token.ReferenceID

	var (
		res *models.Reservation
		err error
	)
	switch reservationAction(req.Action) {
	case ActionComplete:
		res, err = h.reservations.Complete(ctx, ref, req.At)
	default:
		res, err = h.reservations.CheckIn(ctx, ref, req.At)
	}
	if err != nil {
		return nil, err
	}
	return &EffectResult{
		Entity:      domainQR.EntityReservation,
		ReferenceID: res.ID,
		State:       res.Status,
	}, nil
}

type orderHandler struct {
	lookup EntityLookup
	orders OrderOperator
}

func (h *orderHandler) Apply(ctx context.Context, req ActionRequest) (*EffectResult, error) {
	ref := req.Token.ReferenceID
	if err := requireState(ctx, h.lookup, domainQR.EntityOrder, ref,
		models.OrderStatusReady, models.OrderStatusOutForDelivery); err != nil {
		return nil, err
	}
	order, err := h.orders.CompleteHandoff(ctx, ref, req.At)
	if err != nil {
		return nil, err
	}
	return orderEffect(order, nil), nil
}

type driverPickupHandler struct {
	lookup EntityLookup
	orders OrderOperator
}

func (h *driverPickupHandler) Apply(ctx context.Context, req ActionRequest) (*EffectResult, error) {
	driverID, ok := req.Token.Payload.String(validation.PayloadDriverID)
	if !ok {
		return nil, domainErrors.ErrInvalidRequest.WithDetail("token payload has no driver_id")
	}
	ref := req.Token.ReferenceID
	if err := requireState(ctx, h.lookup, domainQR.EntityOrder, ref, models.OrderStatusReady); err != nil {
		return nil, err
	}
	order, err := h.orders.ConfirmDriverPickup(ctx, ref, driverID, req.At)
	if err != nil {
		return nil, err
	}
	return orderEffect(order, map[string]interface{}{"driver_id": driverID}), nil
}
