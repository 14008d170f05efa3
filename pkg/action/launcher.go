// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package action

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
)

type (
	// Launcher opens the external handler. It reports only whether the handler
	// could be opened, never what the user did in it.
	Launcher interface {
		Launch(ctx context.Context, target Target) error
	}

	LauncherFunc func(ctx context.Context, target Target) error

	// ExecLauncher hands the target to a platform opener command.
	ExecLauncher struct {
		command []string
	}
)

func (f LauncherFunc) Launch(ctx context.Context, target Target) error {
	return f(ctx, target)
}

// DefaultOpener returns the URL opener command of the running platform.
func DefaultOpener() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"open"}
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler"}
	default:
		return []string{"xdg-open"}
	}
}

// NewExecLauncher creates a launcher for the given opener command line; an
// empty command selects DefaultOpener.
func NewExecLauncher(command string) *ExecLauncher {
	args := strings.Fields(command)
	if len(args) == 0 {
		args = DefaultOpener()
	}
	return &ExecLauncher{command: args}
}

func (l *ExecLauncher) Command() []string {
	return append([]string(nil), l.command...)
}

func (l *ExecLauncher) Launch(ctx context.Context, target Target) error {
	if target.IsZero() {
		return ErrInvalidTarget
	}
	args := append(l.command[1:len(l.command):len(l.command)], target.String())
	cmd := exec.CommandContext(ctx, l.command[0], args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	slog.Debug("opening external handler", "command", l.command[0], "target", target.String())
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(out.String()); msg != "" {
			return fmt.Errorf("failed to open %s: %w: %s", target.Scheme(), err, msg)
		}
		return fmt.Errorf("failed to open %s: %w", target.Scheme(), err)
	}
	return nil
}
