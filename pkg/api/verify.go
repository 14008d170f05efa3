// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"context"
	"log/slog"

	"github.com/notewall/setupflow/pkg/config"
	"github.com/notewall/setupflow/pkg/verify"
)

// Verify runs all checks once, synchronously, without the settle delay
func Verify(ctx context.Context, cfg *config.Config, options ...SetupOpt) (*verify.Result, error) {
	opts := getSetupOpts(options...)
	opts.DisableJournal = true
	svc, err := newService(cfg, opts)
	if err != nil {
		return nil, err
	}
	result := svc.Verify(ctx)
	if result.Verified && opts.MarkComplete {
		if err := svc.MarkComplete(ctx); err != nil {
			return &result, err
		}
		slog.Info("setup marked complete")
	}
	return &result, nil
}
