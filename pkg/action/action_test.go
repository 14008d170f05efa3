// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package action

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTarget(t *testing.T) {
	target, err := NewTarget("shortcuts://import-shortcut", map[string]string{
		"name": "NoteWall",
		"url":  "https://www.icloud.com/shortcuts/abc",
		"":     "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, "shortcuts", target.Scheme())
	assert.Equal(t,
		"shortcuts://import-shortcut?name=NoteWall&url=https%3A%2F%2Fwww.icloud.com%2Fshortcuts%2Fabc",
		target.String())
	assert.False(t, target.IsZero())

	target, err = NewTarget("shortcuts://run-shortcut?name=Old", map[string]string{"name": "NoteWall"})
	require.NoError(t, err)
	assert.Equal(t, "shortcuts://run-shortcut?name=NoteWall", target.String())
}

func TestNewTarget_Invalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "no-scheme/path", "://broken", "%zz"} {
		_, err := NewTarget(raw, nil)
		assert.ErrorIs(t, err, ErrInvalidTarget, raw)
	}
	assert.True(t, Target{}.IsZero())
	assert.Empty(t, Target{}.String())
}

func TestNewExecLauncher(t *testing.T) {
	assert.Equal(t, DefaultOpener(), NewExecLauncher("").Command())
	assert.Equal(t, []string{"gio", "open"}, NewExecLauncher("  gio  open ").Command())
}

func TestExecLauncher_Launch(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not found")
	}
	dir := t.TempDir()
	record := filepath.Join(dir, "opened")
	script := filepath.Join(dir, "opener.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"$1\" > "+record+"\n"), 0o755))

	target, err := NewTarget("shortcuts://import-shortcut", map[string]string{"name": "NoteWall"})
	require.NoError(t, err)

	l := NewExecLauncher(sh + " " + script)
	require.NoError(t, l.Launch(context.Background(), target))
	b, err := os.ReadFile(record)
	require.NoError(t, err)
	assert.Equal(t, target.String()+"\n", string(b))

	failing := filepath.Join(dir, "fail.sh")
	require.NoError(t, os.WriteFile(failing, []byte("#!/bin/sh\necho 'no handler for scheme' >&2\nexit 3\n"), 0o755))
	err = NewExecLauncher(sh + " " + failing).Launch(context.Background(), target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no handler for scheme")

	err = NewExecLauncher(filepath.Join(dir, "does-not-exist")).Launch(context.Background(), target)
	assert.Error(t, err)

	assert.ErrorIs(t, l.Launch(context.Background(), Target{}), ErrInvalidTarget)
}

func TestLauncherFunc(t *testing.T) {
	var got string
	var l Launcher = LauncherFunc(func(_ context.Context, target Target) error {
		got = target.String()
		return nil
	})
	target, err := NewTarget("notewall://setup", nil)
	require.NoError(t, err)
	require.NoError(t, l.Launch(context.Background(), target))
	assert.Equal(t, "notewall://setup", got)
}
