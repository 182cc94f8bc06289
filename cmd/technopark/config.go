package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/lborres/technopark/core"
)

const (
	storageFS  = "fs"
	storageGCS = "gcs"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port        string           `env:"PORT"         envDefault:"3000"`
	Environment core.Environment `env:"APP_ENV"      envDefault:"development"`
	FrontendURL string           `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	BasePath    string           `env:"BASE_PATH"    envDefault:"/api/auth"`

	JWTSecret      string `env:"JWT_SECRET,required"`
	FirebaseAPIKey string `env:"FIREBASE_API_KEY,required"`
	DatabaseURL    string `env:"DATABASE_URL,required"`

	ExternalTimeout        time.Duration `env:"EXTERNAL_TIMEOUT"        envDefault:"10s"`
	CompensateRegistration bool          `env:"COMPENSATE_REGISTRATION" envDefault:"false"`

	Storage StorageConfig `envPrefix:"STORAGE_"`
	SMTP    SMTPConfig    `envPrefix:"SMTP_"`
}

type StorageConfig struct {
	Backend   string `env:"BACKEND"    envDefault:"fs"`
	Bucket    string `env:"BUCKET"`
	Dir       string `env:"DIR"        envDefault:"./uploads"`
	PublicURL string `env:"PUBLIC_URL" envDefault:"http://localhost:3000/uploads"`
}

// SMTPConfig is optional. Without a host no password change notices are sent.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
}

// loadConfig parses the environment. opts.Environment overrides the process
// environment, which tests use.
func loadConfig(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Environment {
	case core.EnvProduction, core.EnvDevelopment:
	default:
		return fmt.Errorf("config: unknown APP_ENV %q", c.Environment)
	}

	switch c.Storage.Backend {
	case storageFS:
	case storageGCS:
		if c.Storage.Bucket == "" {
			return errors.New("config: STORAGE_BUCKET is required for the gcs backend")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}

	if c.ExternalTimeout <= 0 {
		return errors.New("config: EXTERNAL_TIMEOUT must be positive")
	}
	return nil
}
