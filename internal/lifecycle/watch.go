// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package lifecycle

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
)

type (
	WatchOpts struct {
		Signals []os.Signal
	}
	WatchOpt func(*WatchOpts)
)

// WithSignals replaces the signals that count as a return to the foreground
func WithSignals(sigs ...os.Signal) WatchOpt {
	return func(o *WatchOpts) {
		o.Signals = sigs
	}
}

// Watch calls notify every time the process receives one of the foreground
// signals, until ctx is done or the returned stop function is called.
// Duplicate signals are passed through as is.
func Watch(ctx context.Context, notify func(), options ...WatchOpt) (stop func()) {
	opts := &WatchOpts{Signals: foregroundSignals()}
	for _, o := range options {
		o(opts)
	}
	if len(opts.Signals) == 0 {
		// signal.Notify without signals would relay everything
		return func() {}
	}

	ch := make(chan os.Signal, 4)
	signal.Notify(ch, opts.Signals...)
	done := make(chan struct{})
	var once sync.Once
	stop = func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				stop()
				return
			case <-done:
				return
			case sig := <-ch:
				slog.Debug("foreground signal received", "signal", sig)
				notify()
			}
		}
	}()
	return stop
}

// ReadLines relays trimmed lines read from r until EOF or until ctx is done.
// The channel is closed afterwards.
func ReadLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			slog.Debug("stopped reading input", "error", err)
		}
	}()
	return lines
}
