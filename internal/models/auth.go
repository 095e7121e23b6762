package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access token payload. Only the owner identity is consumed;
// tokens are minted by the identity provider.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// OwnerID returns the identity that owns series, falling back to the subject claim.
func (c *JWTClaims) OwnerID() string {
	if c == nil {
		return ""
	}
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}
