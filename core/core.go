package core

import (
	"time"

	"go.uber.org/zap"
)

// Environment is the deployment environment flag.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvDevelopment Environment = "development"
)

// IsProduction reports whether transport attributes should be hardened.
func (e Environment) IsProduction() bool {
	return e == EnvProduction
}

type SessionConfig struct {
	MaxAge time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxAge: 24 * time.Hour,
	}
}

type Config struct {
	Secret      string
	Environment Environment

	Identity    IdentityProvider
	Objects     ObjectStore
	Credentials CredentialStore
	HTTP        HTTPAdapter

	// Optional config
	Mailer          Mailer
	Denylist        Denylist
	Introspector    TokenIntrospector
	Metrics         Metrics
	Logger          *zap.Logger
	SessionConfig   *SessionConfig
	ExternalTimeout time.Duration
	BasePath        string

	// CompensateRegistration undoes completed registration steps when a later
	// step fails. Off by default: completed steps are kept.
	CompensateRegistration bool
}
