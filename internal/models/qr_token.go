package models

import (
	"time"
)

// QRToken is the persisted record of an issued, single-use QR claim.
// IsUsed, UsedAt and UsedBy* only ever change together, once, through the
// token store's claim operation.
type QRToken struct {
	ID                string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	QRType            string     `gorm:"type:varchar(32);not null;index:idx_qr_tokens_reference,priority:1" json:"qr_type"`
	ReferenceID       string     `gorm:"type:varchar(64);not null;index:idx_qr_tokens_reference,priority:2" json:"reference_id"`
	IssuingBusinessID *string    `gorm:"type:varchar(64);index" json:"issuing_business_id,omitempty"`
	IssuedByID        string     `gorm:"type:varchar(64);not null" json:"issued_by_id"`
	IssuedByRole      string     `gorm:"type:varchar(32);not null" json:"issued_by_role"`
	Payload           JSON       `gorm:"type:jsonb" json:"payload,omitempty"`
	IssuedAt          time.Time  `gorm:"not null" json:"issued_at"`
	ExpiresAt         time.Time  `gorm:"not null;index" json:"expires_at"`
	IsUsed            bool       `gorm:"not null;default:false" json:"is_used"`
	UsedAt            *time.Time `json:"used_at,omitempty"`
	UsedByID          *string    `gorm:"type:varchar(64)" json:"used_by_id,omitempty"`
	UsedByRole        *string    `gorm:"type:varchar(32)" json:"used_by_role,omitempty"`
	RevokedAt         *time.Time `json:"revoked_at,omitempty"`
	Signature         string     `gorm:"type:varchar(128);not null" json:"signature"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (QRToken) TableName() string {
	return "qr_tokens"
}

// IsExpired reports whether the token is past its expiry at now.
func (t *QRToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *QRToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// Clone returns a copy that shares no mutable state with t.
func (t *QRToken) Clone() *QRToken {
	if t == nil {
		return nil
	}
	c := *t
	c.Payload = t.Payload.Clone()
	c.IssuingBusinessID = cloneString(t.IssuingBusinessID)
	c.UsedByID = cloneString(t.UsedByID)
	c.UsedByRole = cloneString(t.UsedByRole)
	c.UsedAt = cloneTime(t.UsedAt)
	c.RevokedAt = cloneTime(t.RevokedAt)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
