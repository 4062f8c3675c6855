// Package middleware provides HTTP middleware components for the application.
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	domainQR "csy/internal/domain/qr"
	"csy/internal/models"
	"csy/internal/utils/response"
)

const (
	localsClaims = "claims"
	localsActor  = "actor"
)

// AuthMiddleware turns a bearer JWT into the trusted actor for the request.
type AuthMiddleware struct {
	secret []byte
	logger *zap.Logger
}

func NewAuthMiddleware(secret string, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{secret: []byte(secret), logger: logger}
}

// Handler validates the Authorization header and stores the claims and the
// derived actor in the request locals.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return response.Unauthorized(c, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return response.Unauthorized(c, "invalid authorization format")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	claims := &models.UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		m.logger.Debug("bearer token rejected", zap.Error(err))
		return response.Unauthorized(c, "invalid token")
	}

	role := domainQR.ActorRole(claims.Role)
	if claims.UserID == "" || !role.Valid() {
		return response.Unauthorized(c, "invalid claims")
	}

	c.Locals(localsClaims, claims)
	c.Locals(localsActor, domainQR.Actor{
		ID:         claims.UserID,
		Role:       role,
		BusinessID: claims.BusinessID,
	})
	return c.Next()
}

// ActorFrom returns the actor the auth middleware stored on c.
func ActorFrom(c *fiber.Ctx) (domainQR.Actor, bool) {
	actor, ok := c.Locals(localsActor).(domainQR.Actor)
	return actor, ok
}

// RequireRole rejects actors whose role is not listed. Admins always pass.
func RequireRole(roles ...domainQR.ActorRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFrom(c)
		if !ok {
			return response.Unauthorized(c, "missing actor")
		}
		if actor.Role == domainQR.RoleAdmin {
			return c.Next()
		}
		for _, r := range roles {
			if actor.Role == r {
				return c.Next()
			}
		}
		return response.Forbidden(c, "insufficient permissions")
	}
}
