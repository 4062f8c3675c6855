package response

import (
	"github.com/gofiber/fiber/v2"
)

// ErrorBody is the envelope for every failed request.
type ErrorBody struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, kind, detail string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": ErrorBody{Kind: kind, Detail: detail},
	})
}

func BadRequest(c *fiber.Ctx, detail string) error {
	return Error(c, fiber.StatusBadRequest, "invalid_request", detail)
}

func ServerError(c *fiber.Ctx, detail string) error {
	return Error(c, fiber.StatusInternalServerError, "internal", detail)
}

func Unauthorized(c *fiber.Ctx, detail string) error {
	return Error(c, fiber.StatusUnauthorized, "unauthenticated", detail)
}

func Forbidden(c *fiber.Ctx, detail string) error {
	return Error(c, fiber.StatusForbidden, "unauthorized", detail)
}
