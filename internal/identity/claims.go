package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the ID token fields the client reads. Signatures are checked by the backend.
type Claims struct {
	jwt.RegisteredClaims

	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// UID prefers user_id and falls back to sub.
func (c *Claims) UID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// ParseClaims decodes an ID token without verifying its signature.
func ParseClaims(idToken string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		return nil, fmt.Errorf("malformed id token: %w", err)
	}
	return &claims, nil
}

// Expiry returns the exp claim, or the zero time.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
