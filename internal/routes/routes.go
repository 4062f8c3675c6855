// Package routes defines the API routing configuration.
package routes

import (
	"github.com/gofiber/fiber/v2"

	domainQR "csy/internal/domain/qr"
	"csy/internal/handlers"
	"csy/internal/middleware"
)

type Handlers struct {
	QR     *handlers.QRHandler
	Health *handlers.HealthHandler
	Auth   *middleware.AuthMiddleware
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, h Handlers) {
	app.Get("/health", h.Health.HealthCheck)

	api := app.Group("/api")
	api.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "QR token API",
			"status":  "online",
		})
	})

	protected := api.Group("", h.Auth.Handler)
	setupQRRoutes(protected, h.QR)

	admin := api.Group("/admin", h.Auth.Handler, middleware.RequireRole(domainQR.RoleAdmin))
	admin.Get("/cache/stats", h.Health.CacheStats)
}

func setupQRRoutes(router fiber.Router, qrHandler *handlers.QRHandler) {
	qr := router.Group("/qr")
	qr.Post("/issue", qrHandler.Issue)
	qr.Post("/validate", qrHandler.Validate)
	qr.Post("/redeem", qrHandler.Redeem)
	qr.Post("/revoke", qrHandler.Revoke)
	qr.Get("/image", qrHandler.RenderImage)
	// The route admits staff and admins. Business scoping is decided by
	// the QR service: admins see every business, staff only their own.
	qr.Get("/reference/:type/:id",
		middleware.RequireRole(domainQR.RoleCashier, domainQR.RoleBusiness),
		qrHandler.ListByReference,
	)
}
