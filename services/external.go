package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lborres/technopark/core"
	"go.uber.org/zap"
)

const defaultExternalTimeout = 10 * time.Second

// Options carries the ambient dependencies shared by every service.
type Options struct {
	// Timeout bounds each external call. Zero means defaultExternalTimeout.
	Timeout time.Duration
	Metrics core.Metrics
	Logger  *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = defaultExternalTimeout
	}
	if o.Metrics == nil {
		o.Metrics = noopMetrics{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// caller runs external calls under an explicit deadline so that a slow
// collaborator surfaces as ErrExternalTimeout rather than a rejection.
type caller struct {
	timeout time.Duration
	metrics core.Metrics
}

func newCaller(o Options) *caller {
	return &caller{timeout: o.Timeout, metrics: o.Metrics}
}

func (c *caller) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
			err = fmt.Errorf("%w: %s: %w", core.ErrExternalTimeout, operation, err)
		}
	}
	c.metrics.ObserveExternalCall(operation, outcome, time.Since(start))
	return err
}

type noopMetrics struct{}

func (noopMetrics) RecordLogin(string) {}

func (noopMetrics) RecordRegistrationFailure(string) {}

func (noopMetrics) ObserveExternalCall(string, string, time.Duration) {}
