package qr

import (
	"fmt"
	"time"

	"csy/internal/models"
)

type QRType string
type ActorRole string
type EntityType string
type Status string

const (
	// QR Types
	TypeDiscount     QRType = "discount"
	TypePayment      QRType = "payment"
	TypeReservation  QRType = "reservation"
	TypeOrder        QRType = "order"
	TypeDriverPickup QRType = "driver_pickup"

	// Actor roles
	RoleCustomer ActorRole = "customer"
	RoleCashier  ActorRole = "cashier"
	RoleBusiness ActorRole = "business"
	RoleDriver   ActorRole = "driver"
	RoleAdmin    ActorRole = "admin"

	// Reference entities
	EntityOrder       EntityType = "order"
	EntityPayment     EntityType = "payment"
	EntityReservation EntityType = "reservation"

	// Derived token states
	StatusActive  Status = "active"
	StatusUsed    Status = "used"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

// AllTypes lists every QR type in a stable order.
var AllTypes = []QRType{TypeDiscount, TypePayment, TypeReservation, TypeOrder, TypeDriverPickup}

func (t QRType) String() string {
	return string(t)
}

func (t QRType) Valid() bool {
	switch t {
	case TypeDiscount, TypePayment, TypeReservation, TypeOrder, TypeDriverPickup:
		return true
	}
	return false
}

// ParseType converts s into a QRType, rejecting anything outside the closed set.
func ParseType(s string) (QRType, error) {
	t := QRType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown qr type %q", s)
	}
	return t, nil
}

func (r ActorRole) String() string {
	return string(r)
}

func (r ActorRole) Valid() bool {
	switch r {
	case RoleCustomer, RoleCashier, RoleBusiness, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role acts on behalf of a business.
func (r ActorRole) IsStaff() bool {
	return r == RoleCashier || r == RoleBusiness
}

// Actor is the authenticated caller, resolved by the auth layer and trusted as-is.
type Actor struct {
	ID         string
	Role       ActorRole
	BusinessID *string
}

// InBusiness reports whether the actor is scoped to businessID.
func (a Actor) InBusiness(businessID *string) bool {
	if a.BusinessID == nil || businessID == nil {
		return false
	}
	return *a.BusinessID == *businessID
}

// IsStaffOf reports whether the actor is cashier or business staff of businessID.
func (a Actor) IsStaffOf(businessID *string) bool {
	return a.Role.IsStaff() && a.InBusiness(businessID)
}

// EntityState is what the domain lookup reports about a reference entity.
type EntityState struct {
	Type        EntityType
	ReferenceID string
	State       string
	OwnerID     string
	BusinessID  *string
}

// TTLPolicy bounds the lifetime of tokens of one type.
type TTLPolicy struct {
	Default time.Duration
	Max     time.Duration
}

// Resolve applies the policy to a requested ttl.
func (p TTLPolicy) Resolve(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return p.Default
	}
	if ttl > p.Max {
		return p.Max
	}
	return ttl
}

var TTLPolicies = map[QRType]TTLPolicy{
	TypeDiscount:     {Default: 24 * time.Hour, Max: 7 * 24 * time.Hour},
	TypePayment:      {Default: 15 * time.Minute, Max: time.Hour},
	TypeReservation:  {Default: 2 * time.Hour, Max: 24 * time.Hour},
	TypeOrder:        {Default: time.Hour, Max: 24 * time.Hour},
	TypeDriverPickup: {Default: 30 * time.Minute, Max: 4 * time.Hour},
}

// IssuanceRule names the entity a token type claims against and the entity
// states that may receive one.
type IssuanceRule struct {
	Entity    EntityType
	States    []string
	StaffOnly bool
}

func (r IssuanceRule) Allows(state string) bool {
	for _, s := range r.States {
		if s == state {
			return true
		}
	}
	return false
}

var IssuanceRules = map[QRType]IssuanceRule{
	TypeDiscount: {
		Entity:    EntityOrder,
		States:    []string{models.OrderStatusPending},
		StaffOnly: true,
	},
	TypePayment: {
		Entity: EntityPayment,
		States: []string{models.PaymentStatusUnpaid},
	},
	TypeReservation: {
		Entity: EntityReservation,
		// A checked-in reservation gets a completion token.
		States: []string{models.ReservationStatusPending, models.ReservationStatusConfirmed, models.ReservationStatusCheckedIn},
	},
	TypeOrder: {
		Entity: EntityOrder,
		States: []string{
			models.OrderStatusPending,
			models.OrderStatusPreparing,
			models.OrderStatusReady,
			models.OrderStatusOutForDelivery,
		},
	},
	TypeDriverPickup: {
		Entity:    EntityOrder,
		States:    []string{models.OrderStatusPending, models.OrderStatusPreparing, models.OrderStatusReady},
		StaffOnly: true,
	},
}

// IssueRequest carries everything needed to mint one token.
type IssueRequest struct {
	Type        string
	ReferenceID string
	BusinessID  *string
	Actor       Actor
	Payload     map[string]interface{}
	TTL         time.Duration
}

// ReferenceQuery selects the tokens issued against one reference entity.
// A nil BusinessID matches every business.
type ReferenceQuery struct {
	Type        QRType
	ReferenceID string
	BusinessID  *string
	Limit       int
	Offset      int
}

// StatusOf derives the lifecycle state of rec at now. Used wins over revoked,
// revoked over expired.
func StatusOf(rec *models.QRToken, now time.Time) Status {
	switch {
	case rec.IsUsed:
		return StatusUsed
	case rec.IsRevoked():
		return StatusRevoked
	case rec.IsExpired(now):
		return StatusExpired
	default:
		return StatusActive
	}
}
