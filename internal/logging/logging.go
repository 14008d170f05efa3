// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/moby/term"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Configure sets the global log level and writes a console formatted log to
// stderr, colored when stderr is a terminal. Packages keep logging through
// slog; the default slog logger is routed into zerolog.
//
// Supported levels: debug, info, warn, error.
func Configure(level string) error {
	return ConfigureWriter(os.Stderr, level)
}

func ConfigureWriter(w io.Writer, level string) error {
	parsed, err := parseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(parsed)

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !term.IsTerminal(f.Fd())
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, NoColor: noColor})
	slog.SetDefault(slog.New(NewHandler(log.Logger)))
	return nil
}

func parseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", LevelInfo:
		return zerolog.InfoLevel, nil
	case LevelDebug:
		return zerolog.DebugLevel, nil
	case LevelWarn:
		return zerolog.WarnLevel, nil
	case LevelError:
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q", level)
	}
}
