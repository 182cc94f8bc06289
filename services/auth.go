package services

import (
	"context"
	"fmt"

	"github.com/lborres/technopark/core"
	"go.uber.org/zap"
)

// Login outcomes recorded in metrics.
const (
	loginSuccess    = "success"
	loginInvalid    = "invalid_input"
	loginRejected   = "rejected"
	loginUnverified = "unverified"
	loginError      = "error"
)

type AuthService struct {
	identity     core.IdentityProvider
	sessions     *SessionManager
	introspector core.TokenIntrospector
	caller       *caller
	metrics      core.Metrics
	logger       *zap.Logger
}

// NewAuthService wires the login flow. A nil introspector falls back to the
// session manager, which understands the tokens this service issues.
func NewAuthService(identity core.IdentityProvider, sessions *SessionManager, introspector core.TokenIntrospector, opts Options) *AuthService {
	opts = opts.withDefaults()
	if introspector == nil {
		introspector = sessions
	}
	return &AuthService{
		identity:     identity,
		sessions:     sessions,
		introspector: introspector,
		caller:       newCaller(opts),
		metrics:      opts.Metrics,
		logger:       opts.Logger.Named("auth"),
	}
}

// Login verifies credentials with the identity service and issues a session
// token only for identities with a verified email.
func (s *AuthService) Login(ctx context.Context, input core.LoginInput) (*core.LoginResult, error) {
	// Step 1: Validate input
	if err := core.ValidateLogin(input); err != nil {
		s.metrics.RecordLogin(loginInvalid)
		return nil, err
	}

	// Step 2: Verify credentials
	var identity *core.Identity
	err := s.caller.call(ctx, "identity.verifyCredentials", func(ctx context.Context) error {
		var err error
		identity, err = s.identity.VerifyCredentials(ctx, input.Email, input.Password)
		return err
	})
	if err != nil {
		s.metrics.RecordLogin(loginRejected)
		return nil, fmt.Errorf("failed to verify credentials: %w", err)
	}

	// Step 3: Email verification gate
	if identity == nil || !identity.EmailVerified {
		s.metrics.RecordLogin(loginUnverified)
		s.logger.Info("login blocked, email not verified", zap.String("email", input.Email))
		return nil, core.ErrEmailNotVerified
	}

	// Step 4: Issue the session token
	issued, err := s.sessions.Issue(identity.Email)
	if err != nil {
		s.metrics.RecordLogin(loginError)
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	s.metrics.RecordLogin(loginSuccess)
	s.logger.Info("session issued", zap.String("subject", identity.Email), zap.String("jti", issued.ID))

	return &core.LoginResult{
		Identity:  identity,
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
	}, nil
}

// Logout revokes token if one is present. It never fails.
func (s *AuthService) Logout(_ context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Revoke(token); err != nil {
		s.logger.Warn("failed to revoke session on logout", zap.Error(err))
	}
	return nil
}

// VerifyAuth reports whether token is a currently valid credential.
func (s *AuthService) VerifyAuth(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	var status *core.TokenStatus
	err := s.caller.call(ctx, "token.introspect", func(ctx context.Context) error {
		var err error
		status, err = s.introspector.IntrospectToken(ctx, token)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to introspect token: %w", err)
	}
	return status != nil && status.Valid, nil
}

// Authenticate verifies a session token presented on a protected request.
func (s *AuthService) Authenticate(_ context.Context, token string) (*core.SessionClaims, error) {
	if token == "" {
		return nil, core.ErrMissingToken
	}
	return s.sessions.Verify(token)
}
