package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the lifetime of a session token issued at login.
const DefaultSessionTTL = 24 * time.Hour

// Claims are the session-token claims. Subject carries the account id.
type Claims struct {
	jwt.RegisteredClaims

	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// NewSessionClaims builds minimally-correct claims for an account.
func NewSessionClaims(subject, email, name, issuer, jti string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
		Email: email,
		Name:  name,
	}
}

// ValidateExpiryAt ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiryAt(now time.Time) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
