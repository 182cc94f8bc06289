// Package identitytoolkit adapts the Google Identity Toolkit REST API (the
// API behind Firebase Authentication) to core.IdentityProvider.
package identitytoolkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/lborres/technopark/core"
	"go.uber.org/zap"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

const (
	requestVerifyEmail   = "VERIFY_EMAIL"
	requestPasswordReset = "PASSWORD_RESET"
)

var ErrAPIKeyRequired = errors.New("identitytoolkit: api key is required")

// Client calls the identity toolkit relying party endpoints.
type Client struct {
	rp     *identitytoolkit.RelyingpartyService
	logger *zap.Logger
}

var (
	_ core.IdentityProvider  = (*Client)(nil)
	_ core.TokenIntrospector = (*Client)(nil)
)

// New builds a client authenticated with the project web API key. Extra
// options override the transport, e.g. the endpoint in tests.
func New(ctx context.Context, apiKey string, logger *zap.Logger, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := identitytoolkit.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("identitytoolkit: failed to create service: %w", err)
	}

	return &Client{rp: svc.Relyingparty, logger: logger.Named("identitytoolkit")}, nil
}

// VerifyCredentials signs in with email and password and reads the account's
// verification flag.
func (c *Client) VerifyCredentials(ctx context.Context, email, password string) (*core.Identity, error) {
	resp, err := c.rp.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}

	user, err := c.accountInfo(ctx, resp.IdToken)
	if err != nil {
		return nil, err
	}

	return &core.Identity{
		UID:           resp.LocalId,
		Email:         resp.Email,
		DisplayName:   resp.DisplayName,
		PhotoURL:      resp.PhotoUrl,
		EmailVerified: user.EmailVerified,
	}, nil
}

func (c *Client) accountInfo(ctx context.Context, idToken string) (*identitytoolkit.UserInfo, error) {
	resp, err := c.rp.GetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartyGetAccountInfoRequest{
		IdToken: idToken,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	if len(resp.Users) == 0 {
		return nil, codedError("USER_NOT_FOUND")
	}
	return resp.Users[0], nil
}

// RegisterAccount creates an email/password account with a display name.
func (c *Client) RegisterAccount(ctx context.Context, email, password, displayName string) (*core.IdentityRef, error) {
	resp, err := c.rp.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}

	ref := &core.IdentityRef{
		UID:         resp.LocalId,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		IDToken:     resp.IdToken,
	}
	if ref.Email == "" {
		ref.Email = email
	}
	if ref.DisplayName == "" {
		ref.DisplayName = displayName
	}

	// Older projects do not return a token on sign up.
	if ref.IDToken == "" {
		signin, err := c.rp.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
			Email:             email,
			Password:          password,
			ReturnSecureToken: true,
		}).Context(ctx).Do()
		if err != nil {
			return nil, mapError(err)
		}
		ref.IDToken = signin.IdToken
	}

	c.logger.Debug("account created", zap.String("uid", ref.UID))
	return ref, nil
}

// SendEmailVerification asks the identity service to mail a verification link.
func (c *Client) SendEmailVerification(ctx context.Context, ref *core.IdentityRef) error {
	_, err := c.rp.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: requestVerifyEmail,
		IdToken:     ref.IDToken,
	}).Context(ctx).Do()
	return mapError(err)
}

// ValidateEmailVerification applies the out-of-band code from a verification link.
func (c *Client) ValidateEmailVerification(ctx context.Context, actionCode string) error {
	_, err := c.rp.SetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartySetAccountInfoRequest{
		OobCode: actionCode,
	}).Context(ctx).Do()
	return mapError(err)
}

func (c *Client) SendEmailResetPassword(ctx context.Context, email string) error {
	_, err := c.rp.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: requestPasswordReset,
		Email:       email,
	}).Context(ctx).Do()
	return mapErrorWith(err, resetMappings)
}

// ValidateResetPassword confirms the reset code and returns the account email.
func (c *Client) ValidateResetPassword(ctx context.Context, oobCode, password string) (string, error) {
	resp, err := c.rp.ResetPassword(&identitytoolkit.IdentitytoolkitRelyingpartyResetPasswordRequest{
		OobCode:     oobCode,
		NewPassword: password,
	}).Context(ctx).Do()
	if err != nil {
		return "", mapError(err)
	}
	return resp.Email, nil
}

func (c *Client) DeleteAccount(ctx context.Context, ref *core.IdentityRef) error {
	_, err := c.rp.DeleteAccount(&identitytoolkit.IdentitytoolkitRelyingpartyDeleteAccountRequest{
		IdToken: ref.IDToken,
	}).Context(ctx).Do()
	return mapError(err)
}

// IntrospectToken checks an identity service ID token. Rejected or expired
// tokens are reported as invalid; only transport failures are errors.
func (c *Client) IntrospectToken(ctx context.Context, token string) (*core.TokenStatus, error) {
	user, err := c.accountInfo(ctx, token)
	if err != nil {
		var extErr *core.ExternalError
		if errors.As(err, &extErr) && extErr.Code != "" && extErr.Status < 500 {
			return &core.TokenStatus{Valid: false}, nil
		}
		return nil, err
	}
	if user.Disabled {
		return &core.TokenStatus{Valid: false}, nil
	}
	return &core.TokenStatus{Valid: true, Subject: user.Email}, nil
}
