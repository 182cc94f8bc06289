package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/lborres/technopark/core"
	"github.com/lborres/technopark/pkg/crypto"
	"go.uber.org/zap"
)

// SessionManager issues, verifies and revokes session tokens.
type SessionManager struct {
	issuer   *TokenIssuer
	denylist core.Denylist // optional, can be nil if revocation is disabled
	logger   *zap.Logger
}

var _ core.TokenIntrospector = (*SessionManager)(nil)

func NewSessionManager(issuer *TokenIssuer, denylist core.Denylist, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{issuer: issuer, denylist: denylist, logger: logger}
}

// Issue mints a session token for subject.
func (sm *SessionManager) Issue(subject string) (*core.IssuedToken, error) {
	return sm.issuer.Issue(subject)
}

// Verify parses token and rejects it if it was revoked.
func (sm *SessionManager) Verify(token string) (*core.SessionClaims, error) {
	claims, err := sm.issuer.Parse(token)
	if err != nil {
		return nil, err
	}

	if sm.denylist != nil {
		revoked, err := sm.denylist.IsRevoked(crypto.HashToken(token))
		if err != nil {
			return nil, fmt.Errorf("failed to check denylist: %w", err)
		}
		if revoked {
			return nil, core.ErrSessionRevoked
		}
	}

	return claims, nil
}

// Revoke denies token until its natural expiry. Tokens that are already
// invalid or expired need no entry.
func (sm *SessionManager) Revoke(token string) error {
	if sm.denylist == nil {
		return nil
	}

	claims, err := sm.issuer.Parse(token)
	if err != nil {
		if errors.Is(err, core.ErrInvalidToken) || errors.Is(err, core.ErrSessionExpired) {
			return nil
		}
		return err
	}

	if err := sm.denylist.Revoke(crypto.HashToken(token), claims.ExpiresAt); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	sm.logger.Debug("session revoked", zap.String("jti", claims.ID))
	return nil
}

// IntrospectToken reports token validity as a typed result.
func (sm *SessionManager) IntrospectToken(_ context.Context, token string) (*core.TokenStatus, error) {
	claims, err := sm.Verify(token)
	if err != nil {
		if errors.Is(err, core.ErrInvalidToken) ||
			errors.Is(err, core.ErrSessionExpired) ||
			errors.Is(err, core.ErrSessionRevoked) {
			return &core.TokenStatus{Valid: false}, nil
		}
		return nil, err
	}
	return &core.TokenStatus{Valid: true, Subject: claims.Subject, ExpiresAt: claims.ExpiresAt}, nil
}
