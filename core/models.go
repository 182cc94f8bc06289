package core

import "time"

// Identity represents a user account owned by the identity service
//
// This is the "who" - returned to clients as the public profile
type Identity struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoURL,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
}

// IdentityRef is the handle returned when an account is created.
type IdentityRef struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IDToken     string `json:"-"` // Identity service credential for follow-up calls; never expose in JSON
}

// SocialNetwork is one profile link.
type SocialNetwork struct {
	Type string `json:"type" form:"type"`
	URL  string `json:"url" form:"url"`
}

// CredentialRecord is the profile document persisted once per identity
type CredentialRecord struct {
	UID            string          `json:"uid"`
	Email          string          `json:"email"`
	Username       string          `json:"username"`
	Phone          string          `json:"phone"`
	Description    string          `json:"description"`
	SocialNetworks []SocialNetwork `json:"socialNetworks"`
	PhotoURL       string          `json:"photo"`
}

// Photo is an uploaded profile picture.
type Photo struct {
	Data        []byte
	ContentType string
}

// Empty reports whether no photo was supplied.
func (p *Photo) Empty() bool {
	return p == nil || len(p.Data) == 0
}

// LoginInput contains the credentials for authentication
type LoginInput struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// LoginResult contains the authenticated identity and its session token
type LoginResult struct {
	Identity  *Identity
	Token     string
	ExpiresAt time.Time
}

// RegisterInput contains the data needed to register a new user
type RegisterInput struct {
	Email          string
	Password       string
	Username       string
	Phone          string
	Description    string
	SocialNetworks []SocialNetwork
	Photo          *Photo
}

// VerificationMode selects which external validation a verify-action
// request is routed to.
type VerificationMode string

const (
	ModeVerifyEmail   VerificationMode = "verifyEmail"
	ModeResetPassword VerificationMode = "resetPassword"
)

// VerifyActionInput is a transient verification request.
//
// ActionCode is the out-of-band code carried by the action link query string
// and is only used for email verification. OobCode and Password come from the
// request body and are only used for password resets.
type VerifyActionInput struct {
	Mode       VerificationMode
	ActionCode string
	OobCode    string
	Password   string
}

// SessionClaims is the verified content of a session token.
type SessionClaims struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IssuedToken is a freshly signed session token.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// TokenStatus is a typed introspection result.
type TokenStatus struct {
	Valid     bool      `json:"valid"`
	Subject   string    `json:"subject,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// MailMessage is a plain notification email.
type MailMessage struct {
	To      string
	Subject string
	Body    string
}
