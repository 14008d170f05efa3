// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	// CompletionStore persists the single "setup complete" flag.
	CompletionStore interface {
		SetComplete(ctx context.Context, complete bool) error
		IsComplete(ctx context.Context) (bool, error)
	}

	// Service runs the registered checks and owns the completion commit.
	// Verification never writes anything; MarkComplete is the only side effect.
	Service struct {
		registry    *Registry
		store       CompletionStore
		settleDelay time.Duration
		tracer      trace.Tracer
	}
	ServiceOpt func(*Service)
)

const (
	DefaultSettleDelay = 500 * time.Millisecond
	tracerName         = "github.com/notewall/setupflow/pkg/verify"
)

func WithCompletionStore(store CompletionStore) ServiceOpt {
	return func(s *Service) {
		s.store = store
	}
}

// WithSettleDelay sets how long VerifyAsync waits before evaluating checks so
// that permission and filesystem changes made by the external app propagate.
func WithSettleDelay(d time.Duration) ServiceOpt {
	return func(s *Service) {
		if d >= 0 {
			s.settleDelay = d
		}
	}
}

func WithTracer(tracer trace.Tracer) ServiceOpt {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

func NewService(registry *Registry, options ...ServiceOpt) *Service {
	if registry == nil {
		registry, _ = NewRegistry()
	}
	s := &Service{
		registry:    registry,
		settleDelay: DefaultSettleDelay,
		tracer:      otel.Tracer(tracerName),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

func (s *Service) Registry() *Registry {
	return s.registry
}

// Verify evaluates every registered check, without short-circuiting, and
// returns the failed ones in registry order.
func (s *Service) Verify(ctx context.Context) Result {
	ctx, span := s.tracer.Start(ctx, "verify.run",
		trace.WithAttributes(attribute.Int("verify.checks", s.registry.Len())))
	defer span.End()

	var missing []Check
	var errs []string
	for _, c := range s.registry.checks {
		ok, err := s.evaluate(ctx, c)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %s", c.ID, err))
		}
		if !ok {
			missing = append(missing, c)
		}
	}

	result := NewResult(missing, strings.Join(errs, "; "))
	span.SetAttributes(
		attribute.Bool("verify.verified", result.Verified),
		attribute.StringSlice("verify.missing", result.MissingIDs()),
	)
	if !result.Verified {
		span.SetStatus(codes.Error, result.Summary())
		slog.Info("setup verification failed", "missing", result.MissingIDs(), "error", result.Error)
	} else {
		slog.Debug("setup verification passed", "checks", s.registry.Len())
	}
	return result
}

// VerifyAsync waits for the settle delay on a separate goroutine, runs Verify
// and hands the result to done on that goroutine. Callers marshal the result
// back to their own context.
func (s *Service) VerifyAsync(ctx context.Context, done func(Result)) {
	go func() {
		if s.settleDelay > 0 {
			timer := time.NewTimer(s.settleDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
		// A cancelled context makes every evaluator fail, which is the
		// intended fail-closed outcome.
		done(s.Verify(ctx))
	}()
}

// MarkComplete persists the completion flag. It is a one-time commit made by
// the success path only.
func (s *Service) MarkComplete(ctx context.Context) error {
	if s.store == nil {
		slog.Debug("no completion store configured; completion is not persisted")
		return nil
	}
	if err := s.store.SetComplete(ctx, true); err != nil {
		return fmt.Errorf("failed to persist setup completion: %w", err)
	}
	return nil
}

func (s *Service) IsComplete(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	return s.store.IsComplete(ctx)
}

func (s *Service) evaluate(ctx context.Context, c Check) (ok bool, err error) {
	ctx, span := s.tracer.Start(ctx, "verify.check",
		trace.WithAttributes(attribute.String("verify.check.id", c.ID)))
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("check panicked: %v", r)
		}
		if err != nil {
			ok = false
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Debug("setup check errored", "check", c.ID, "error", err)
		}
		span.SetAttributes(attribute.Bool("verify.check.passed", ok))
		span.End()
	}()

	if c.Evaluate == nil {
		return false, ErrNoEvaluator
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.Evaluate(ctx)
}
