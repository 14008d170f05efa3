// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package lifecycle

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadLines(t *testing.T) {
	var got []string
	for line := range ReadLines(context.Background(), strings.NewReader("\n r \nq\n")) {
		got = append(got, line)
	}
	assert.Equal(t, []string{"", "r", "q"}, got)
}

func TestReadLines_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lines := ReadLines(ctx, strings.NewReader("a\nb\nc\n"))
	assert.Equal(t, "a", <-lines)
	cancel()
	// Drain; the reader goroutine must close the channel
	for range lines {
	}
}

func TestWatch_NoSignals(t *testing.T) {
	stop := Watch(context.Background(), func() { t.Fatal("unexpected notify") }, WithSignals())
	stop()
	stop()
}
