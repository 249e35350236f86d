package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrNoToken      = errors.New("no auth token held")
	ErrTokenExpired = errors.New("auth token expired")
)

// Claims mirrors the access token the auth service issues to a signed-in
// client. The client only reads them; signature verification is the
// backend's job, so the token is parsed unverified here.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	Phone  string    `json:"phone"`
	jwt.RegisteredClaims
}

// Decode extracts claims from the held token without verifying the
// signature. Returns ErrTokenExpired when the token is past its expiry so
// the caller can route to re-authentication before attempting checkout.
func Decode(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// DisplayName returns the name to stamp on orders, falling back to the
// subject when the token carries no name claim.
func (c *Claims) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Subject
}
