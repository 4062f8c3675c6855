package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending        = "pending"
	OrderStatusPreparing      = "preparing"
	OrderStatusReady          = "ready"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusCompleted      = "completed"
	OrderStatusCancelled      = "cancelled"

	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

// Order is the slice of the platform's order entity the QR actions touch.
type Order struct {
	ID              string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	BusinessID      string          `gorm:"type:varchar(64);not null;index" json:"business_id"`
	CustomerID      string          `gorm:"type:varchar(64);not null;index" json:"customer_id"`
	Status          string          `gorm:"type:varchar(32);not null;default:'pending'" json:"status"`
	PaymentStatus   string          `gorm:"type:varchar(16);not null;default:'unpaid'" json:"payment_status"`
	PaymentMethod   *string         `gorm:"type:varchar(32)" json:"payment_method,omitempty"`
	Total           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	DiscountAmount  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount_amount"`
	DiscountTokenID *string         `gorm:"type:varchar(36)" json:"discount_token_id,omitempty"`
	DriverID        *string         `gorm:"type:varchar(64);index" json:"driver_id,omitempty"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	PickedUpAt      *time.Time      `json:"picked_up_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// AmountDue is the order total after any applied discount.
func (o *Order) AmountDue() decimal.Decimal {
	due := o.Total.Sub(o.DiscountAmount)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// Discount describes a percentage or fixed adjustment to an order.
// Exactly one of Percentage or Amount is set.
type Discount struct {
	Percentage decimal.Decimal
	Amount     decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// AmountFor returns the discount value for total, capped at the total.
func (d Discount) AmountFor(total decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	if d.Percentage.IsPositive() {
		amount = total.Mul(d.Percentage).Div(hundred).Round(2)
	} else {
		amount = d.Amount.Round(2)
	}
	if amount.GreaterThan(total) {
		return total
	}
	return amount
}
