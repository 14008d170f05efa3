// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package integration_tests

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/notewall/setupflow/pkg/api"
	cfg "github.com/notewall/setupflow/pkg/config"
	"github.com/notewall/setupflow/pkg/state"
	"github.com/stretchr/testify/require"
)

// The fake automation app. It receives the action URL as its only argument
// and performs the steps a user would perform in the Shortcuts app, as
// selected by the files in $tempDir/steps.
const shortcutScript = `#!/bin/sh
dir="%s"
echo "$1" >> "$dir/opened"
[ -f "$dir/steps/fail" ] && { echo "no handler for shortcuts://" >&2; exit 1; }
[ -f "$dir/steps/wallpaper" ] && echo jpg > "$dir/wallpaper.jpg"
[ -f "$dir/steps/folder" ] && mkdir -p "$dir/Shortcuts"
[ -f "$dir/steps/manifest" ] && printf '[shortcut]\nenabled = "yes"\n' > "$dir/manifest.ini"
exit 0
`

func createMockConfig(t *testing.T, tempDir string) *cfg.Config {
	if tempDir == "" {
		t.Fatal("tempDir not set")
	}
	script := filepath.Join(tempDir, "shortcuts.sh")
	if err := os.WriteFile(script, []byte(fmt.Sprintf(shortcutScript, tempDir)), 0755); err != nil {
		t.Fatal(err)
	}
	setup := fmt.Sprintf(`
[setup]
action_url = "shortcuts://import-shortcut"
shortcut_url = "https://www.icloud.com/shortcuts/abc"
opener = "sh %s"
foreground_settle_ms = "5"
verify_settle_ms = "5"
complete_display_ms = "5"

[storage]
path = "%s"

[checks]
shortcut_manifest = "%s/manifest.ini"
	`, script, tempDir, tempDir)
	if err := os.WriteFile(filepath.Join(tempDir, "setup.toml"), []byte(setup), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(tempDir, "steps"), 0755); err != nil {
		t.Fatal(err)
	}

	config, err := cfg.NewConfig([]string{tempDir})
	if err != nil {
		t.Fatalf("Unable to create config: %v", err)
	}
	return config
}

type integrationTest struct {
	t       *testing.T
	tempDir string
	config  *cfg.Config
	ctx     context.Context

	mu    sync.Mutex
	kinds []state.Kind
}

func newIntegrationTest(t *testing.T) *integrationTest {
	if runtime.GOOS == "windows" {
		t.Skip("the fake automation app needs a POSIX shell")
	}
	tempDir := t.TempDir()
	return &integrationTest{
		t:       t,
		tempDir: tempDir,
		config:  createMockConfig(t, tempDir),
		ctx:     context.Background(),
	}
}

func (it *integrationTest) refreshConfig() {
	config, err := cfg.NewConfig([]string{it.tempDir})
	if err != nil {
		it.t.Fatalf("Unable to create config: %v", err)
	}
	it.config = config
}

// setSteps selects what the fake automation app does on its next launch
func (it *integrationTest) setSteps(steps ...string) {
	dir := filepath.Join(it.tempDir, "steps")
	require.NoError(it.t, os.RemoveAll(dir))
	require.NoError(it.t, os.MkdirAll(dir, 0755))
	for _, s := range steps {
		require.NoError(it.t, os.WriteFile(filepath.Join(dir, s), nil, 0644))
	}
}

func (it *integrationTest) newSetup(options ...api.SetupOpt) *api.Setup {
	options = append(options, api.WithListener(func(tr state.Transition) {
		it.mu.Lock()
		defer it.mu.Unlock()
		it.kinds = append(it.kinds, tr.To.Kind)
	}))
	setup, err := api.NewSetup(it.ctx, it.config, options...)
	checkErr(it.t, err)
	it.t.Cleanup(setup.Close)
	return setup
}

func (it *integrationTest) transitions() []state.Kind {
	it.mu.Lock()
	defer it.mu.Unlock()
	return append([]state.Kind(nil), it.kinds...)
}

// waitFor blocks until setup is in kind and the listeners have seen it, so
// the journal row of that transition is written as well.
func (it *integrationTest) waitFor(setup *api.Setup, kind state.Kind) {
	it.t.Helper()
	require.Eventually(it.t, func() bool {
		if setup.State().Kind != kind {
			return false
		}
		kinds := it.transitions()
		return len(kinds) > 0 && kinds[len(kinds)-1] == kind
	}, 5*time.Second, 5*time.Millisecond, "waiting for %s", kind)
}

func (it *integrationTest) openedCount() int {
	b, err := os.ReadFile(filepath.Join(it.tempDir, "opened"))
	if os.IsNotExist(err) {
		return 0
	}
	checkErr(it.t, err)
	n := 0
	for _, c := range b {
		if c == '\n' {
			n++
		}
	}
	return n
}

func checkErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
