package technopark

import (
	"context"
	"fmt"

	"github.com/lborres/technopark/core"
	"github.com/lborres/technopark/pkg/cache"
	"github.com/lborres/technopark/services"
	"go.uber.org/zap"
)

// interfaces
type (
	IdentityProvider  = core.IdentityProvider
	TokenIntrospector = core.TokenIntrospector
	ObjectStore       = core.ObjectStore
	CredentialStore   = core.CredentialStore
	Denylist          = core.Denylist
	Mailer            = core.Mailer
	Metrics           = core.Metrics

	HTTPAdapter = core.HTTPAdapter
	AuthHandler = core.AuthHandler
)

// structs
type (
	Config        = core.Config
	SessionConfig = core.SessionConfig
	Environment   = core.Environment
)

type (
	Identity          = core.Identity
	LoginInput        = core.LoginInput
	LoginResult       = core.LoginResult
	RegisterInput     = core.RegisterInput
	VerifyActionInput = core.VerifyActionInput
	SessionClaims     = core.SessionClaims
)

const (
	defaultBasePath     = "/api/auth"
	defaultSecretLen    = 32
	defaultDenylistSize = 10000
)

const (
	EnvProduction  = core.EnvProduction
	EnvDevelopment = core.EnvDevelopment
)

var (
	ErrEmailNotVerified   = core.ErrEmailNotVerified
	ErrInvalidCredentials = core.ErrInvalidCredentials
	ErrInvalidToken       = core.ErrInvalidToken
	ErrSessionExpired     = core.ErrSessionExpired
	ErrSessionRevoked     = core.ErrSessionRevoked
	ErrExternalTimeout    = core.ErrExternalTimeout
)

var (
	ErrIdentityRequired    = core.ErrIdentityRequired
	ErrObjectStoreRequired = core.ErrObjectStoreRequired
	ErrCredentialsRequired = core.ErrCredentialsRequired
	ErrHTTPAdapterRequired = core.ErrHTTPAdapterRequired
	ErrSecretRequired      = core.ErrSecretRequired
	ErrSecretTooShort      = core.ErrSecretTooShort
)

// Technopark wires the auth services together and serves them to the HTTP
// adapter as a core.AuthHandler.
type Technopark struct {
	auth         *services.AuthService
	registration *services.RegistrationService
	verification *services.VerificationService

	Sessions  *services.SessionManager
	Endpoints *services.EndpointRegistry
	BasePath  string
}

var _ core.AuthHandler = (*Technopark)(nil)

func New(config Config) (*Technopark, error) {
	if config.Secret == "" {
		return nil, ErrSecretRequired
	}
	if len(config.Secret) < defaultSecretLen {
		return nil, fmt.Errorf("%w - minimum of %d characters", ErrSecretTooShort, defaultSecretLen)
	}
	if config.Identity == nil {
		return nil, ErrIdentityRequired
	}
	if config.Objects == nil {
		return nil, ErrObjectStoreRequired
	}
	if config.Credentials == nil {
		return nil, ErrCredentialsRequired
	}
	if config.HTTP == nil {
		return nil, ErrHTTPAdapterRequired
	}

	// Set Defaults

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	denylist := config.Denylist
	if denylist == nil {
		denylist = cache.NewInMemoryDenylist(core.DenylistConfig{MaxSize: defaultDenylistSize})
	}

	sessionConfig := config.SessionConfig
	if sessionConfig == nil {
		defaults := core.DefaultSessionConfig()
		sessionConfig = &defaults
	}

	basePath := config.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}

	environment := config.Environment
	if environment == "" {
		environment = EnvDevelopment
	}

	opts := services.Options{
		Timeout: config.ExternalTimeout,
		Metrics: config.Metrics,
		Logger:  logger,
	}

	issuer := services.NewTokenIssuer(config.Secret, sessionConfig.MaxAge)
	sessions := services.NewSessionManager(issuer, denylist, logger.Named("session"))

	tp := &Technopark{
		auth:         services.NewAuthService(config.Identity, sessions, config.Introspector, opts),
		registration: services.NewRegistrationService(config.Identity, config.Objects, config.Credentials, config.CompensateRegistration, opts),
		verification: services.NewVerificationService(config.Identity, config.Mailer, opts),
		Sessions:     sessions,
		Endpoints:    services.NewEndpointRegistry(),
		BasePath:     basePath,
	}

	err := config.HTTP.RegisterRoutes(tp, core.RouteConfig{
		BasePath:      basePath,
		Environment:   environment,
		SessionMaxAge: sessionConfig.MaxAge,
		Endpoints:     tp.Endpoints,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("technopark auth initialized",
		zap.String("base_path", basePath),
		zap.String("environment", string(environment)),
		zap.Bool("compensate_registration", config.CompensateRegistration),
	)

	return tp, nil
}

func (tp *Technopark) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	return tp.auth.Login(ctx, input)
}

func (tp *Technopark) Register(ctx context.Context, input RegisterInput) error {
	return tp.registration.Register(ctx, input)
}

func (tp *Technopark) Logout(ctx context.Context, token string) error {
	return tp.auth.Logout(ctx, token)
}

func (tp *Technopark) VerifyAuth(ctx context.Context, token string) (bool, error) {
	return tp.auth.VerifyAuth(ctx, token)
}

func (tp *Technopark) VerifyAction(ctx context.Context, input VerifyActionInput) error {
	return tp.verification.VerifyAction(ctx, input)
}

func (tp *Technopark) ForgotPassword(ctx context.Context, email string) error {
	return tp.verification.ForgotPassword(ctx, email)
}

func (tp *Technopark) ResetPassword(ctx context.Context, oobCode, password string) error {
	return tp.verification.ResetPassword(ctx, oobCode, password)
}

func (tp *Technopark) Authenticate(ctx context.Context, token string) (*SessionClaims, error) {
	return tp.auth.Authenticate(ctx, token)
}
