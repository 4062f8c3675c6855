package handlers

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	domainQR "csy/internal/domain/qr"
	domainErrors "csy/internal/errors"
	"csy/internal/middleware"
	"csy/internal/services/notification"
	"csy/internal/services/qr"
	"csy/internal/utils/pagination"
	"csy/internal/utils/response"
	"csy/internal/utils/validation"
)

const (
	defaultImageSize = 256
	minImageSize     = 128
	maxImageSize     = 1024

	// Largest ttl_seconds that still fits a time.Duration.
	maxTTLSeconds = math.MaxInt64 / int64(time.Second)
)

// Notifier delivers redemption events to the token issuer.
type Notifier interface {
	Notify(ctx context.Context, recipient, eventType string, data map[string]interface{}) error
}

type QRHandler struct {
	qrService qr.Service
	notifier  Notifier
	logger    *zap.Logger
}

func NewQRHandler(qrService qr.Service, notifier Notifier, logger *zap.Logger) *QRHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QRHandler{
		qrService: qrService,
		notifier:  notifier,
		logger:    logger,
	}
}

type issueRequest struct {
	QRType      string                 `json:"qr_type"`
	ReferenceID string                 `json:"reference_id"`
	BusinessID  *string                `json:"business_id"`
	Payload     map[string]interface{} `json:"payload"`
	TTLSeconds  int                    `json:"ttl_seconds"`
}

type tokenRequest struct {
	TokenString string `json:"token_string"`
}

type redeemRequest struct {
	TokenString string                 `json:"token_string"`
	Action      string                 `json:"action"`
	Context     map[string]interface{} `json:"context"`
}

type issueResponse struct {
	ID          string    `json:"id"`
	TokenString string    `json:"token_string"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Issue mints a token for an eligible reference entity.
func (h *QRHandler) Issue(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "missing actor")
	}

	var req issueRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	v := validation.New()
	v.Required("qr_type", req.QRType)
	v.Required("reference_id", req.ReferenceID)
	v.Check(req.TTLSeconds >= 0, "ttl_seconds", "must not be negative")
	if err := v.Err(); err != nil {
		return writeError(c, err)
	}

	issued, err := h.qrService.Issue(c.UserContext(), domainQR.IssueRequest{
		Type:        req.QRType,
		ReferenceID: req.ReferenceID,
		BusinessID:  req.BusinessID,
		Actor:       actor,
		Payload:     req.Payload,
		TTL:         ttlFromSeconds(req.TTLSeconds),
	})
	if err != nil {
		return writeError(c, err)
	}

	return response.Created(c, "QR token issued", issueResponse{
		ID:          issued.Record.ID,
		TokenString: issued.Token,
		ExpiresAt:   issued.ExpiresAt,
	})
}

// ttlFromSeconds converts a requested ttl, saturating instead of overflowing.
// The service caps it to the type's policy maximum.
func ttlFromSeconds(seconds int) time.Duration {
	if int64(seconds) > maxTTLSeconds {
		return time.Duration(maxTTLSeconds) * time.Second
	}
	return time.Duration(seconds) * time.Second
}

// Validate reports a token's state without consuming it.
func (h *QRHandler) Validate(c *fiber.Ctx) error {
	var req tokenRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	v := validation.New()
	v.Required("token_string", req.TokenString)
	if err := v.Err(); err != nil {
		return writeError(c, err)
	}

	status, err := h.qrService.Validate(c.UserContext(), req.TokenString)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "QR token status", status)
}

// Redeem claims a token and applies its action. The issuer is notified of
// both outcomes once the claim has happened.
func (h *QRHandler) Redeem(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "missing actor")
	}

	var req redeemRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	v := validation.New()
	v.Required("token_string", req.TokenString)
	if err := v.Err(); err != nil {
		return writeError(c, err)
	}

	ctx := c.UserContext()
	result, err := h.qrService.Redeem(ctx, qr.RedeemRequest{
		Token:   req.TokenString,
		Actor:   actor,
		Action:  req.Action,
		Context: req.Context,
	})
	if result != nil {
		event := notification.EventQRRedeemed
		if err != nil {
			event = notification.EventQRRedeemFailed
		}
		h.notify(ctx, result, event)
	}
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "QR token redeemed", result)
}

// Revoke invalidates an unused token.
func (h *QRHandler) Revoke(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "missing actor")
	}

	var req tokenRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	v := validation.New()
	v.Required("token_string", req.TokenString)
	if err := v.Err(); err != nil {
		return writeError(c, err)
	}

	status, err := h.qrService.Revoke(c.UserContext(), req.TokenString, actor)
	if err != nil {
		return writeError(c, err)
	}
	return response.Success(c, "QR token revoked", status)
}

// ListByReference pages through the tokens issued for one entity.
func (h *QRHandler) ListByReference(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "missing actor")
	}

	p := pagination.ParseFromRequest(c)
	q := qr.ReferenceQuery{
		Type:        domainQR.QRType(c.Params("type")),
		ReferenceID: c.Params("id"),
		Limit:       p.Limit,
		Offset:      p.Offset,
	}
	if businessID := c.Query("business_id"); businessID != "" {
		q.BusinessID = &businessID
	}

	tokens, total, err := h.qrService.ListByReference(c.UserContext(), q, actor)
	if err != nil {
		return writeError(c, err)
	}
	p.Total = total
	return c.JSON(pagination.Response(p, tokens))
}

// RenderImage encodes an active token as a PNG QR code.
func (h *QRHandler) RenderImage(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return writeError(c, domainErrors.ErrInvalidRequest.WithDetail("token: is required"))
	}
	size, err := strconv.Atoi(c.Query("size", strconv.Itoa(defaultImageSize)))
	if err != nil || size < minImageSize || size > maxImageSize {
		return writeError(c, domainErrors.ErrInvalidRequest.WithDetail("size: must be between %d and %d", minImageSize, maxImageSize))
	}

	status, err := h.qrService.Validate(c.UserContext(), token)
	if err != nil {
		return writeError(c, err)
	}
	if err := inactiveError(status.Status); err != nil {
		return writeError(c, err)
	}

	png, err := qrcode.Encode(token, qrcode.Medium, size)
	if err != nil {
		h.logger.Error("qr image encoding failed", zap.String("token_id", status.ID), zap.Error(err))
		return response.ServerError(c, "failed to render QR code")
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(png)
}

func (h *QRHandler) notify(ctx context.Context, result *qr.RedemptionResult, event string) {
	if h.notifier == nil {
		return
	}
	data := map[string]interface{}{
		"token_id":     result.TokenID,
		"qr_type":      result.Type,
		"reference_id": result.ReferenceID,
		"redeemed_by":  result.RedeemedBy.ID,
		"redeemed_at":  result.RedeemedAt,
	}
	if err := h.notifier.Notify(ctx, result.IssuedBy, event, data); err != nil {
		h.logger.Warn("redemption notification failed",
			zap.String("token_id", result.TokenID),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

func inactiveError(s domainQR.Status) error {
	switch s {
	case domainQR.StatusUsed:
		return domainErrors.ErrQRAlreadyUsed
	case domainQR.StatusRevoked:
		return domainErrors.ErrQRRevoked
	case domainQR.StatusExpired:
		return domainErrors.ErrQRExpired
	}
	return nil
}
