package validation

import (
	"strings"

	"github.com/shopspring/decimal"

	"csy/internal/domain/qr"
	"csy/internal/errors"
	"csy/internal/models"
)

var maxPercentage = decimal.NewFromInt(MaxDiscountPercentage)

// ValidateIssueRequest checks the request shape and the payload each type
// needs. It does not consult live entity state.
func ValidateIssueRequest(req qr.IssueRequest) error {
	ref := strings.TrimSpace(req.ReferenceID)
	if ref == "" {
		return errors.ErrInvalidRequest.WithDetail("reference_id is required")
	}
	if len(ref) > MaxReferenceIDLength {
		return errors.ErrInvalidRequest.WithDetail("reference_id exceeds %d characters", MaxReferenceIDLength)
	}
	if req.Actor.ID == "" || !req.Actor.Role.Valid() {
		return errors.ErrInvalidRequest.WithDetail("authenticated actor is required")
	}
	if req.BusinessID != nil && strings.TrimSpace(*req.BusinessID) == "" {
		return errors.ErrInvalidRequest.WithDetail("business_id must not be empty when set")
	}
	if len(req.Payload) > MaxPayloadKeys {
		return errors.ErrInvalidRequest.WithDetail("payload exceeds %d keys", MaxPayloadKeys)
	}

	switch qr.QRType(req.Type) {
	case qr.TypeDiscount:
		_, err := DiscountFromPayload(req.Payload)
		return err
	case qr.TypeDriverPickup:
		driverID, ok := models.JSON(req.Payload).String(PayloadDriverID)
		if !ok {
			return errors.ErrInvalidRequest.WithDetail("driver_pickup requires payload.driver_id")
		}
		if len(driverID) > MaxDriverIDLength {
			return errors.ErrInvalidRequest.WithDetail("driver_id exceeds %d characters", MaxDriverIDLength)
		}
	}
	return nil
}

// DiscountFromPayload reads a discount from a token payload. Exactly one of
// percentage in (0, 100] or a positive amount must be present.
func DiscountFromPayload(payload map[string]interface{}) (models.Discount, error) {
	p := models.JSON(payload)
	pct, hasPct, err := p.Decimal(PayloadPercentage)
	if err != nil {
		return models.Discount{}, errors.ErrInvalidRequest.WithDetail("percentage: %v", err)
	}
	amount, hasAmount, err := p.Decimal(PayloadAmount)
	if err != nil {
		return models.Discount{}, errors.ErrInvalidRequest.WithDetail("amount: %v", err)
	}

	switch {
	case hasPct && hasAmount:
		return models.Discount{}, errors.ErrInvalidRequest.WithDetail("discount takes either percentage or amount, not both")
	case hasPct:
		if !pct.IsPositive() || pct.GreaterThan(maxPercentage) {
			return models.Discount{}, errors.ErrInvalidRequest.WithDetail("percentage must be in (0, %d]", MaxDiscountPercentage)
		}
		return models.Discount{Percentage: pct}, nil
	case hasAmount:
		if !amount.IsPositive() {
			return models.Discount{}, errors.ErrInvalidRequest.WithDetail("amount must be positive")
		}
		return models.Discount{Amount: amount}, nil
	default:
		return models.Discount{}, errors.ErrInvalidRequest.WithDetail("discount requires payload.percentage or payload.amount")
	}
}
