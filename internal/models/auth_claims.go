package models

import "github.com/golang-jwt/jwt/v5"

// JwtCustomClaims carries the identity minted by the external auth
// provider. This service only verifies tokens; it never issues them.
type JwtCustomClaims struct {
	UserID string `json:"userID"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
