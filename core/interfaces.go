package core

import (
	"context"
	"time"
)

// Ports define interfaces for external dependencies

// ============================================
// IDENTITY PORTS (credentials and verification state)
// ============================================

// IdentityProvider is the external system of record for credentials.
type IdentityProvider interface {
	VerifyCredentials(ctx context.Context, email, password string) (*Identity, error)
	RegisterAccount(ctx context.Context, email, password, displayName string) (*IdentityRef, error)
	SendEmailVerification(ctx context.Context, ref *IdentityRef) error
	ValidateEmailVerification(ctx context.Context, actionCode string) error
	SendEmailResetPassword(ctx context.Context, email string) error
	// ValidateResetPassword confirms a reset code and returns the account email.
	ValidateResetPassword(ctx context.Context, oobCode, password string) (string, error)
	DeleteAccount(ctx context.Context, ref *IdentityRef) error
}

// TokenIntrospector reports whether a token is currently valid.
//
// An invalid token is not an error: implementations return a TokenStatus with
// Valid set to false, and reserve errors for failures to decide.
type TokenIntrospector interface {
	IntrospectToken(ctx context.Context, token string) (*TokenStatus, error)
}

// ============================================
// STORAGE PORTS
// ============================================

// ObjectStore stores uploaded files.
type ObjectStore interface {
	// Upload stores the photo under key and returns its public URL.
	Upload(ctx context.Context, key string, photo *Photo) (string, error)
	Delete(ctx context.Context, key string) error
}

// CredentialStore persists profile documents. Persisting is the last
// registration step, so there is nothing to undo after it fails.
type CredentialStore interface {
	// PersistCredentials creates or replaces the record keyed by ref.UID.
	PersistCredentials(ctx context.Context, ref *IdentityRef, record *CredentialRecord) error
}

// ============================================
// DENYLIST PORT
// ============================================

// Denylist tracks revoked session tokens until their natural expiry.
type Denylist interface {
	Revoke(tokenHash string, until time.Time) error
	IsRevoked(tokenHash string) (bool, error)
}

// DenylistConfig configures denylist behavior
type DenylistConfig struct {
	MaxSize int
}

// DenylistStats tracks denylist counters
type DenylistStats struct {
	Revocations int64 `json:"revocations"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Expired     int64 `json:"expired"`
	Evictions   int64 `json:"evictions"`
	Size        int   `json:"size"`
}

// ============================================
// NOTIFICATION + OBSERVABILITY PORTS
// ============================================

// Mailer delivers notification emails.
type Mailer interface {
	Send(ctx context.Context, msg *MailMessage) error
}

// Metrics records service outcomes.
type Metrics interface {
	RecordLogin(outcome string)
	RecordRegistrationFailure(step string)
	ObserveExternalCall(operation, outcome string, d time.Duration)
}

// ============================================
// AUTH HANDLER (for HTTP adapters)
// ============================================

// AuthHandler provides the operations HTTP adapters expose
type AuthHandler interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Register(ctx context.Context, input RegisterInput) error
	Logout(ctx context.Context, token string) error
	VerifyAuth(ctx context.Context, token string) (bool, error)
	VerifyAction(ctx context.Context, input VerifyActionInput) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, oobCode, password string) error
	Authenticate(ctx context.Context, token string) (*SessionClaims, error)
}

// ============================================
// HTTP PORT
// ============================================

type HTTPAdapter interface {
	RegisterRoutes(handler AuthHandler, routes RouteConfig) error
}
