package models

import "github.com/golang-jwt/jwt/v5"

// UserClaims is the bearer token payload issued by the platform's auth
// service. This service only verifies it.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID     string  `json:"user_id"`
	Role       string  `json:"role"`
	BusinessID *string `json:"business_id,omitempty"`
}
