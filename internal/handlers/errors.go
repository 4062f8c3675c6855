package handlers

import (
	"github.com/gofiber/fiber/v2"

	domainErrors "csy/internal/errors"
	"csy/internal/utils/response"
)

// StatusFor maps a domain error code to the HTTP status it is reported with.
func StatusFor(code domainErrors.Code) int {
	switch code {
	case domainErrors.CodeMalformed, domainErrors.CodeInvalidRequest, domainErrors.CodeInvalidType:
		return fiber.StatusBadRequest
	case domainErrors.CodeNotFound:
		return fiber.StatusNotFound
	case domainErrors.CodeInvalidState, domainErrors.CodeConflict, domainErrors.CodeAlreadyUsed:
		return fiber.StatusConflict
	case domainErrors.CodeExpired, domainErrors.CodeRevoked:
		return fiber.StatusGone
	case domainErrors.CodeUnauthorized:
		return fiber.StatusForbidden
	case domainErrors.CodeActionFailed:
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

// writeError reports err as {"error": {"kind", "detail"}}. Errors without a
// domain code are hidden behind a generic internal error.
func writeError(c *fiber.Ctx, err error) error {
	de, ok := domainErrors.As(err)
	if !ok {
		return response.ServerError(c, "internal server error")
	}
	detail := de.Detail
	if detail == "" {
		detail = de.Message
	}
	return response.Error(c, StatusFor(de.Code), string(de.Code), detail)
}
