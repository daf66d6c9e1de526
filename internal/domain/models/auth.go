package models

import "github.com/golang-jwt/jwt/v5"

// AuthClaims are the JWT claims accepted by the auth middleware.
// The subject claim carries the user ID used for ownership checks.
type AuthClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}
