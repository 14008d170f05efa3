// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewall/setupflow/pkg/action"
	"github.com/notewall/setupflow/pkg/config"
	"github.com/notewall/setupflow/pkg/state"
	"github.com/notewall/setupflow/pkg/verify"
)

type recordingLauncher struct {
	mu      sync.Mutex
	targets []string
	err     error
}

func (l *recordingLauncher) Launch(_ context.Context, target action.Target) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.targets = append(l.targets, target.String())
	return l.err
}

func (l *recordingLauncher) Targets() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.targets...)
}

func newTestConfig(t *testing.T, extra map[string]string) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	tree, err := toml.TreeFromMap(nil)
	require.NoError(t, err)
	tree.Set(config.ActionURLKey, "shortcuts://import-shortcut")
	tree.Set(config.ShortcutURLKey, "https://www.icloud.com/shortcuts/abc")
	tree.Set(config.StorageDirKey, dir)
	tree.Set(config.ForegroundSettleKey, "1")
	tree.Set(config.VerifySettleKey, "0")
	tree.Set(config.CompleteDisplayKey, "1")
	for k, v := range extra {
		tree.Set(k, v)
	}
	b, err := toml.Marshal(tree)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "setup.toml"), b, 0644))

	cfg, err := config.NewConfig([]string{dir})
	require.NoError(t, err)
	return cfg, dir
}

func satisfyChecks(t *testing.T, cfg *config.Config) {
	t.Helper()
	require.NoError(t, os.WriteFile(cfg.GetWallpaperFile(), []byte("jpg"), 0644))
	require.NoError(t, os.MkdirAll(cfg.GetShortcutFolder(), 0755))
}

func TestDefaultChecks(t *testing.T) {
	cfg, dir := newTestConfig(t, nil)
	checks := DefaultChecks(cfg)
	require.Len(t, checks, 2)
	assert.Equal(t, "wallpaper-file", checks[0].ID)
	assert.Contains(t, checks[0].Remediation, filepath.Join(dir, config.WallpaperDefaultFilename))
	assert.Equal(t, "shortcut-folder", checks[1].ID)

	cfg, _ = newTestConfig(t, map[string]string{config.ShortcutManifestKey: filepath.Join(dir, "manifest.ini")})
	checks = DefaultChecks(cfg)
	require.Len(t, checks, 3)
	assert.Equal(t, "shortcut-installed", checks[2].ID)

	cfg, _ = newTestConfig(t, map[string]string{
		config.ShortcutManifestKey: filepath.Join(dir, "manifest.ini"),
		config.ManifestCheckKey:    "false",
	})
	assert.Len(t, DefaultChecks(cfg), 2)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	cfg, dir := newTestConfig(t, nil)

	result, err := Verify(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, result.Verified)
	assert.Equal(t, []string{"wallpaper-file", "shortcut-folder"}, result.MissingIDs())

	manifest := filepath.Join(dir, "manifest.ini")
	require.NoError(t, os.WriteFile(manifest, []byte("[shortcut]\nenabled = yes\n"), 0644))
	cfg, _ = newTestConfig(t, map[string]string{
		config.StorageDirKey:       dir,
		config.ShortcutManifestKey: manifest,
	})
	satisfyChecks(t, cfg)
	result, err = Verify(ctx, cfg)
	require.NoError(t, err)
	assert.True(t, result.Verified)

	s, err := Status(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, s.Complete, "plain verification must not commit")

	_, err = Verify(ctx, cfg, WithMarkComplete(true))
	require.NoError(t, err)
	s, err = Status(ctx, cfg)
	require.NoError(t, err)
	assert.True(t, s.Complete)
	require.NotNil(t, s.UpdatedAt)
	assert.Zero(t, s.EventsCount)
}

func TestVerify_InvalidChecks(t *testing.T) {
	cfg, _ := newTestConfig(t, nil)
	_, err := Verify(context.Background(), cfg, WithChecks(verify.Check{ID: "a"}, verify.Check{ID: "a"}))
	assert.ErrorIs(t, err, verify.ErrDuplicateCheckID)
}

func TestNewSetup_Flow(t *testing.T) {
	ctx := context.Background()
	cfg, _ := newTestConfig(t, nil)
	satisfyChecks(t, cfg)
	launcher := &recordingLauncher{}

	var mu sync.Mutex
	var kinds []state.Kind
	setup, err := NewSetup(ctx, cfg, WithLauncher(launcher), WithListener(func(tr state.Transition) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, tr.To.Kind)
	}))
	require.NoError(t, err)
	defer setup.Close()
	assert.NotEmpty(t, setup.SessionId)
	assert.NotNil(t, setup.Service)

	setup.StartAction()
	assert.Equal(t,
		[]string{"shortcuts://import-shortcut?name=NoteWall&url=https%3A%2F%2Fwww.icloud.com%2Fshortcuts%2Fabc"},
		launcher.Targets())
	setup.OnForegroundReturn()
	// Listeners run after the state changed; wait for the delivered Complete
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(kinds) > 0 && kinds[len(kinds)-1] == state.Complete
	}, 5*time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []state.Kind{state.ActionStarted, state.ReturnedFromAction, state.Verifying, state.Verified, state.Complete}, kinds)
	mu.Unlock()

	s, err := Status(ctx, cfg)
	require.NoError(t, err)
	assert.True(t, s.Complete)
	require.NotNil(t, s.LastEvent)
	assert.Equal(t, state.Complete, s.LastEvent.Event.To)
	assert.Equal(t, setup.SessionId, s.LastEvent.CorrelationId)

	evts, err := Events(cfg)
	require.NoError(t, err)
	require.Len(t, evts, 5)
	assert.Equal(t, state.ActionStarted, evts[0].Event.To)

	// A new session skips straight to Complete
	again, err := NewSetup(ctx, cfg, WithLauncher(launcher), WithJournal(false))
	require.NoError(t, err)
	assert.True(t, again.CanProceed())
	again.Close()

	require.NoError(t, Reset(ctx, cfg))
	fresh, err := NewSetup(ctx, cfg, WithLauncher(launcher))
	require.NoError(t, err)
	assert.Equal(t, state.Initial, fresh.State().Kind)
	fresh.Close()

	n, err := ClearEvents(cfg)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	n, err = ClearEvents(cfg)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewSetup_LaunchFailure(t *testing.T) {
	ctx := context.Background()
	cfg, _ := newTestConfig(t, map[string]string{config.ActionURLKey: ""})
	setup, err := NewSetup(ctx, cfg, WithLauncher(&recordingLauncher{}))
	require.NoError(t, err)
	defer setup.Close()

	setup.StartAction()
	s := setup.State()
	require.Equal(t, state.VerificationFailed, s.Kind)
	assert.Equal(t, []string{verify.LaunchFailedID}, s.Result.MissingIDs())

	launcher := &recordingLauncher{err: errors.New("no application knows how to open shortcuts://")}
	cfg, _ = newTestConfig(t, nil)
	setup, err = NewSetup(ctx, cfg, WithLauncher(launcher))
	require.NoError(t, err)
	defer setup.Close()
	setup.StartAction()
	assert.Contains(t, setup.UserFacingErrorMessage(), "no application knows how to open")
	assert.Len(t, launcher.Targets(), 1)

	evts, err := Events(cfg)
	require.NoError(t, err)
	require.Len(t, evts, 2)
	assert.Equal(t, []string{verify.LaunchFailedID}, evts[1].Event.Missing)
}

type memStore struct {
	mu       sync.Mutex
	complete bool
}

func (m *memStore) SetComplete(_ context.Context, complete bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.complete = complete
	return nil
}

func (m *memStore) IsComplete(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.complete, nil
}

func TestNewSetup_CustomStore(t *testing.T) {
	ctx := context.Background()
	cfg, _ := newTestConfig(t, nil)
	st := &memStore{}
	setup, err := NewSetup(ctx, cfg,
		WithLauncher(&recordingLauncher{}),
		WithCompletionStore(st),
		WithJournal(false),
		WithChecks(verify.Check{ID: "always", Evaluate: verify.Static(true)}))
	require.NoError(t, err)
	defer setup.Close()

	setup.Retry()
	require.Eventually(t, setup.CanProceed, 5*time.Second, 5*time.Millisecond)
	complete, err := st.IsComplete(ctx)
	require.NoError(t, err)
	assert.True(t, complete)

	_, err = os.Stat(cfg.GetDBPath())
	assert.True(t, os.IsNotExist(err), "no database expected without journal and sqlite store")
}

func TestStatus_WhileRecording(t *testing.T) {
	ctx := context.Background()
	cfg, _ := newTestConfig(t, nil)
	satisfyChecks(t, cfg)

	for i := 0; i < 10; i++ {
		require.NoError(t, Reset(ctx, cfg))
		done := make(chan struct{})
		setup, err := NewSetup(ctx, cfg, WithLauncher(&recordingLauncher{}), WithListener(func(tr state.Transition) {
			if tr.To.Kind == state.Complete {
				close(done)
			}
		}))
		require.NoError(t, err)

		// Readers poll while the session writes the journal and the flag
		errs := make(chan error, 1)
		stop := make(chan struct{})
		go func() {
			defer close(errs)
			for {
				select {
				case <-stop:
					return
				default:
				}
				if _, err := Status(ctx, cfg); err != nil {
					errs <- err
					return
				}
			}
		}()

		setup.StartAction()
		setup.OnForegroundReturn()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("run %d: setup did not complete, state %s", i, setup.State())
		}
		close(stop)
		require.NoError(t, <-errs, "run %d", i)
		setup.Close()

		s, err := Status(ctx, cfg)
		require.NoError(t, err, "run %d", i)
		assert.True(t, s.Complete)
		assert.Equal(t, state.Complete, s.LastEvent.Event.To)
	}

	evts, err := Events(cfg)
	require.NoError(t, err)
	assert.Len(t, evts, 50)
}
