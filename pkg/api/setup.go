// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/notewall/setupflow/internal/db"
	"github.com/notewall/setupflow/internal/events"
	"github.com/notewall/setupflow/internal/store"
	"github.com/notewall/setupflow/pkg/action"
	"github.com/notewall/setupflow/pkg/config"
	"github.com/notewall/setupflow/pkg/state"
	"github.com/notewall/setupflow/pkg/verify"
)

type (
	SetupOpts struct {
		Launcher       action.Launcher
		Store          verify.CompletionStore
		Clock          state.Clock
		Tracer         trace.Tracer
		Checks         []verify.Check
		Listeners      []state.Listener
		DisableJournal bool
		MarkComplete   bool
	}
	SetupOpt func(*SetupOpts)

	// Setup is one guided setup session bound to a configuration
	Setup struct {
		*state.Machine
		Service   *verify.Service
		SessionId string
	}
)

func WithLauncher(l action.Launcher) SetupOpt {
	return func(o *SetupOpts) {
		o.Launcher = l
	}
}

func WithCompletionStore(s verify.CompletionStore) SetupOpt {
	return func(o *SetupOpts) {
		o.Store = s
	}
}

func WithClock(c state.Clock) SetupOpt {
	return func(o *SetupOpts) {
		o.Clock = c
	}
}

func WithTracer(t trace.Tracer) SetupOpt {
	return func(o *SetupOpts) {
		o.Tracer = t
	}
}

// WithChecks replaces the checks derived from the configuration
func WithChecks(checks ...verify.Check) SetupOpt {
	return func(o *SetupOpts) {
		o.Checks = checks
	}
}

func WithListener(l state.Listener) SetupOpt {
	return func(o *SetupOpts) {
		o.Listeners = append(o.Listeners, l)
	}
}

// WithJournal turns recording of transitions into the events table on or off
func WithJournal(enabled bool) SetupOpt {
	return func(o *SetupOpts) {
		o.DisableJournal = !enabled
	}
}

// WithMarkComplete makes a successful Verify commit the completion flag
func WithMarkComplete(enabled bool) SetupOpt {
	return func(o *SetupOpts) {
		o.MarkComplete = enabled
	}
}

func getSetupOpts(options ...SetupOpt) *SetupOpts {
	opts := &SetupOpts{}
	for _, o := range options {
		o(opts)
	}
	return opts
}

// DefaultChecks returns the checks that must pass for the setup to count as
// complete: the wallpaper written by the shortcut, write access to the
// shortcut folder and, when configured, the shortcut manifest entry.
func DefaultChecks(cfg *config.Config) []verify.Check {
	checks := []verify.Check{
		{
			ID:          "wallpaper-file",
			Name:        "Wallpaper saved",
			Remediation: fmt.Sprintf("Run the %s shortcut once so it saves the wallpaper to %s.", cfg.GetShortcutName(), cfg.GetWallpaperFile()),
			Evaluate:    verify.FileExists(cfg.GetWallpaperFile()),
		},
		{
			ID:          "shortcut-folder",
			Name:        "Folder access",
			Remediation: fmt.Sprintf("Allow the %s shortcut to write to %s.", cfg.GetShortcutName(), cfg.GetShortcutFolder()),
			Evaluate:    verify.DirWritable(cfg.GetShortcutFolder()),
		},
	}
	if manifest := cfg.GetShortcutManifest(); manifest != "" {
		section, key := cfg.GetManifestKey()
		checks = append(checks, verify.Check{
			ID:          "shortcut-installed",
			Name:        "Shortcut installed",
			Remediation: fmt.Sprintf("Add the %s shortcut to your library, then come back.", cfg.GetShortcutName()),
			Evaluate:    verify.IniValue(manifest, section, key, ""),
		})
	}
	return checks
}

// NewService builds the verification service for the configured checks. The
// completion flag lives in the setup database unless another store is given.
func NewService(cfg *config.Config, options ...SetupOpt) (*verify.Service, error) {
	return newService(cfg, getSetupOpts(options...))
}

func newService(cfg *config.Config, opts *SetupOpts) (*verify.Service, error) {
	checks := opts.Checks
	if checks == nil {
		checks = DefaultChecks(cfg)
	}
	registry, err := verify.NewRegistry(checks...)
	if err != nil {
		return nil, fmt.Errorf("invalid verification checks: %w", err)
	}
	if opts.Store == nil || !opts.DisableJournal {
		if err := db.InitializeDatabase(cfg.GetDBPath()); err != nil {
			return nil, err
		}
	}
	completionStore := opts.Store
	if completionStore == nil {
		completionStore = store.NewSQLiteStore(cfg.GetDBPath())
	}
	return verify.NewService(registry,
		verify.WithCompletionStore(completionStore),
		verify.WithSettleDelay(cfg.GetVerifySettleDelay()),
		verify.WithTracer(opts.Tracer),
	), nil
}

// NewSetup creates a setup session. The machine starts in Complete if an
// earlier session already committed the setup.
func NewSetup(ctx context.Context, cfg *config.Config, options ...SetupOpt) (*Setup, error) {
	opts := getSetupOpts(options...)
	svc, err := newService(cfg, opts)
	if err != nil {
		return nil, err
	}
	launcher := opts.Launcher
	if launcher == nil {
		launcher = action.NewExecLauncher(cfg.GetOpener())
	}

	sessionId := uuid.New().String()
	machineOpts := []state.MachineOpt{
		state.WithContext(ctx),
		state.WithTargetParams(cfg.GetTargetParams()),
		state.WithForegroundSettleDelay(cfg.GetForegroundSettleDelay()),
		state.WithCompleteDisplayDelay(cfg.GetCompleteDisplayDelay()),
		state.WithClock(opts.Clock),
	}
	if !opts.DisableJournal {
		journal := events.NewJournal(cfg.GetDBPath())
		sessionId = journal.CorrelationId()
		machineOpts = append(machineOpts, state.WithListener(journal.Record))
	}
	for _, l := range opts.Listeners {
		machineOpts = append(machineOpts, state.WithListener(l))
	}

	return &Setup{
		Machine:   state.New(svc, launcher, cfg.GetActionURL(), machineOpts...),
		Service:   svc,
		SessionId: sessionId,
	}, nil
}
