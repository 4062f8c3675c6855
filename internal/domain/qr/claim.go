package qr

import (
	"time"

	domainErrors "csy/internal/errors"
	"csy/internal/models"
)

// ClaimFailure classifies why a conditional claim on rec affected no row.
// A nil rec means the record does not exist.
func ClaimFailure(rec *models.QRToken, now time.Time) error {
	if rec == nil {
		return domainErrors.ErrTokenNotFound
	}
	switch StatusOf(rec, now) {
	case StatusUsed:
		return domainErrors.ErrQRAlreadyUsed
	case StatusRevoked:
		return domainErrors.ErrQRRevoked
	case StatusExpired:
		return domainErrors.ErrQRExpired
	}
	// The row was claimable on re-read, so another writer changed it
	// between the update and the read.
	return domainErrors.ErrTokenConflict.WithDetail("token %s changed during claim", rec.ID)
}

// Claimable reports whether rec may be claimed at now.
func Claimable(rec *models.QRToken, now time.Time) bool {
	return StatusOf(rec, now) == StatusActive
}

// RevokeFailure classifies why a conditional revoke on rec affected no row.
// Expired tokens can still be revoked.
func RevokeFailure(rec *models.QRToken) error {
	switch {
	case rec == nil:
		return domainErrors.ErrTokenNotFound
	case rec.IsUsed:
		return domainErrors.ErrQRAlreadyUsed
	case rec.IsRevoked():
		return domainErrors.ErrQRRevoked
	}
	return domainErrors.ErrTokenConflict.WithDetail("token %s changed during revoke", rec.ID)
}

// Revocable reports whether rec may be revoked.
func Revocable(rec *models.QRToken) bool {
	return !rec.IsUsed && !rec.IsRevoked()
}
