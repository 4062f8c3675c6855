package models

import "time"

const (
	ReservationStatusPending   = "pending"
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusCheckedIn = "checked_in"
	ReservationStatusCompleted = "completed"
	ReservationStatusCancelled = "cancelled"
)

type Reservation struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	BusinessID  string     `gorm:"type:varchar(64);not null;index" json:"business_id"`
	CustomerID  string     `gorm:"type:varchar(64);not null;index" json:"customer_id"`
	Status      string     `gorm:"type:varchar(32);not null;default:'pending'" json:"status"`
	PartySize   int        `gorm:"not null;default:1" json:"party_size"`
	ReservedFor time.Time  `gorm:"not null" json:"reserved_for"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
