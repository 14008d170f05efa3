// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package logging

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

type (
	// Handler is a slog.Handler writing through a zerolog.Logger
	Handler struct {
		logger zerolog.Logger
		attrs  []groupedAttr
		prefix string
	}

	groupedAttr struct {
		prefix string
		attr   slog.Attr
	}
)

func NewHandler(logger zerolog.Logger) *Handler {
	return &Handler{logger: logger}
}

func zerologLevel(l slog.Level) zerolog.Level {
	switch {
	case l >= slog.LevelError:
		return zerolog.ErrorLevel
	case l >= slog.LevelWarn:
		return zerolog.WarnLevel
	case l >= slog.LevelInfo:
		return zerolog.InfoLevel
	case l >= slog.LevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	lvl := zerologLevel(l)
	return lvl >= zerolog.GlobalLevel() && lvl >= h.logger.GetLevel()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	e := h.logger.WithLevel(zerologLevel(r.Level))
	if e == nil {
		return nil
	}
	for _, ga := range h.attrs {
		e = addAttr(e, ga.prefix, ga.attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		e = addAttr(e, h.prefix, a)
		return true
	})
	e.Msg(r.Message)
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	n := *h
	n.attrs = make([]groupedAttr, 0, len(h.attrs)+len(attrs))
	n.attrs = append(n.attrs, h.attrs...)
	for _, a := range attrs {
		n.attrs = append(n.attrs, groupedAttr{prefix: h.prefix, attr: a})
	}
	return &n
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	n := *h
	n.prefix = h.prefix + name + "."
	return &n
}

func addAttr(e *zerolog.Event, prefix string, a slog.Attr) *zerolog.Event {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return e
	}
	key := prefix + a.Key
	switch a.Value.Kind() {
	case slog.KindGroup:
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = key + "."
		}
		for _, ga := range a.Value.Group() {
			e = addAttr(e, groupPrefix, ga)
		}
		return e
	case slog.KindString:
		return e.Str(key, a.Value.String())
	case slog.KindInt64:
		return e.Int64(key, a.Value.Int64())
	case slog.KindUint64:
		return e.Uint64(key, a.Value.Uint64())
	case slog.KindFloat64:
		return e.Float64(key, a.Value.Float64())
	case slog.KindBool:
		return e.Bool(key, a.Value.Bool())
	case slog.KindDuration:
		return e.Dur(key, a.Value.Duration())
	case slog.KindTime:
		return e.Time(key, a.Value.Time())
	default:
		if err, ok := a.Value.Any().(error); ok {
			return e.AnErr(key, err)
		}
		return e.Interface(key, a.Value.Any())
	}
}
