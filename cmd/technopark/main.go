package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/lborres/technopark"
	fiberadapter "github.com/lborres/technopark/adapters/fiber"
	"github.com/lborres/technopark/adapters/identitytoolkit"
	"github.com/lborres/technopark/adapters/objectstore"
	pgxadapter "github.com/lborres/technopark/adapters/pgx"
	"github.com/lborres/technopark/adapters/smtp"
	"github.com/lborres/technopark/core"
	"github.com/lborres/technopark/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := loadConfig(env.Options{})
	if err != nil {
		log.Fatalf("technopark: %v", err)
	}

	logger := newLogger(cfg.Environment)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("technopark exited", zap.Error(err))
	}
}

// newLogger returns a JSON logger in production and a console logger elsewhere.
func newLogger(environment core.Environment) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if environment.IsProduction() {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func run(ctx context.Context, cfg Config, logger *zap.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("pgxpool.New: %w", err)
	}
	defer pool.Close()

	credentials := pgxadapter.New(pool)
	if err := credentials.EnsureSchema(ctx); err != nil {
		return err
	}

	identity, err := identitytoolkit.New(ctx, cfg.FirebaseAPIKey, logger)
	if err != nil {
		return err
	}

	objects, closeObjects, err := newObjectStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeObjects()

	var mailer core.Mailer
	if cfg.SMTP.Host != "" {
		m, err := smtp.New(smtp.Config{
			From:     cfg.SMTP.From,
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
		}, logger)
		if err != nil {
			return err
		}
		mailer = m
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	app := fiber.New(fiber.Config{AppName: "technopark"})
	app.Use(recoverer.New())
	app.Use(requestid.New())
	app.Use(fiberadapter.RequestLogger(logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowCredentials: true,
	}))
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(registry)))
	if cfg.Storage.Backend == storageFS {
		app.Get("/uploads*", static.New(cfg.Storage.Dir))
	}

	_, err = technopark.New(technopark.Config{
		Secret:                 cfg.JWTSecret,
		Environment:            cfg.Environment,
		Identity:               identity,
		Objects:                objects,
		Credentials:            credentials,
		HTTP:                   fiberadapter.New(app, logger),
		Mailer:                 mailer,
		Metrics:                collector,
		Logger:                 logger,
		ExternalTimeout:        cfg.ExternalTimeout,
		BasePath:               cfg.BasePath,
		CompensateRegistration: cfg.CompensateRegistration,
	})
	if err != nil {
		return fmt.Errorf("could not create technopark instance: %w", err)
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("port", cfg.Port))
		errc <- app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newObjectStore(ctx context.Context, cfg StorageConfig) (core.ObjectStore, func(), error) {
	if cfg.Backend == storageGCS {
		store, err := objectstore.NewGCSStore(ctx, cfg.Bucket)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
	return objectstore.NewFSStore(cfg.Dir, cfg.PublicURL), func() {}, nil
}
