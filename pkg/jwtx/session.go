package jwtx

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/studybuddy/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// SessionKeys signs and verifies session tokens with a single Ed25519 key.
type SessionKeys struct {
	key    ed25519.PrivateKey
	pub    ed25519.PublicKey
	issuer string
	ttl    time.Duration

	// Now is overridable for tests.
	Now func() time.Time
}

// NewSessionKeys wraps key. A zero ttl falls back to DefaultSessionTTL.
func NewSessionKeys(key ed25519.PrivateKey, issuer string, ttl time.Duration) (*SessionKeys, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.New("jwtx: invalid Ed25519 private key size")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionKeys{
		key:    key,
		pub:    key.Public().(ed25519.PublicKey),
		issuer: issuer,
		ttl:    ttl,
		Now:    time.Now,
	}, nil
}

// Issue signs a session token for the account and returns it with its expiry.
func (s *SessionKeys) Issue(subject, email, name string) (string, time.Time, error) {
	jti, err := cryptox.GenerateToken(cryptox.TokenSize160)
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.Now().UTC()
	claims := NewSessionClaims(subject, email, name, s.issuer, jti, s.ttl, now)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify validates the signature, issuer and lifetime of tokenStr.
func (s *SessionKeys) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithoutClaimsValidation(), // lifetime checked below against s.Now
	)

	var claims Claims
	token, err := parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return s.pub, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if !token.Valid {
		return Claims{}, ErrMalformed
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return Claims{}, ErrIssuer
	}
	if err := claims.ValidateExpiryAt(s.Now().UTC()); err != nil {
		return Claims{}, err
	}
	return claims, nil
}
