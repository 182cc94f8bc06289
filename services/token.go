package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lborres/technopark/core"
	"github.com/lborres/technopark/pkg/crypto"
)

const (
	tokenIssuer       = "technopark"
	sessionKeyPurpose = "technopark session token v1"
)

// TokenIssuer signs and parses stateless session tokens.
type TokenIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokenIssuer derives the signing key from secret. An empty secret yields
// an issuer whose every Issue call fails with ErrSigning.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	key, _ := crypto.DeriveKey(secret, sessionKeyPurpose)
	if ttl <= 0 {
		ttl = core.DefaultSessionConfig().MaxAge
	}
	return &TokenIssuer{key: key, ttl: ttl, now: time.Now}
}

// TTL returns how long issued tokens stay valid.
func (ti *TokenIssuer) TTL() time.Duration {
	return ti.ttl
}

// Issue signs a token for subject valid for the issuer TTL.
func (ti *TokenIssuer) Issue(subject string) (*core.IssuedToken, error) {
	if len(ti.key) == 0 {
		return nil, fmt.Errorf("%w: %w", core.ErrSigning, crypto.ErrEmptySecret)
	}
	if subject == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrSigning, core.ErrEmptySubject)
	}

	now := ti.now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSigning, err)
	}

	return &core.IssuedToken{
		Token:     signed,
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Parse verifies signature, issuer and expiry and returns the claims.
func (ti *TokenIssuer) Parse(token string) (*core.SessionClaims, error) {
	if token == "" {
		return nil, core.ErrInvalidToken
	}
	if len(ti.key) == 0 {
		return nil, fmt.Errorf("%w: %w", core.ErrSigning, crypto.ErrEmptySecret)
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(*jwt.Token) (interface{}, error) { return ti.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, core.ErrInvalidToken
	}

	// NumericDate decodes into the local zone.
	out := &core.SessionClaims{
		ID:        claims.ID,
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	return out, nil
}
