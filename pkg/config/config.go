// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/foundriesio/fioconfig/sotatoml"
)

type (
	Config struct {
		tomlConfig       *sotatoml.AppConfig
		layers           tomlLayers
		manifestCheck    bool
		foregroundSettle time.Duration
		verifySettle     time.Duration
		completeDisplay  time.Duration
	}
)

const (
	ActionURLKey          = "setup.action_url"
	ShortcutNameKey       = "setup.shortcut_name"
	ShortcutURLKey        = "setup.shortcut_url"
	ForegroundSettleKey   = "setup.foreground_settle_ms"
	VerifySettleKey       = "setup.verify_settle_ms"
	CompleteDisplayKey    = "setup.complete_display_ms"
	OpenerKey             = "setup.opener"
	StorageDirKey         = "storage.path"
	DBPathKey             = "storage.sqldb_path"
	WallpaperFileKey      = "checks.wallpaper_file"
	ShortcutFolderKey     = "checks.shortcut_folder"
	ShortcutManifestKey   = "checks.shortcut_manifest"
	ManifestCheckKey      = "checks.manifest_check"
	ManifestSectionKey    = "checks.manifest_section"
	ManifestEnabledKeyKey = "checks.manifest_key"

	ShortcutNameDefault       = "NoteWall"
	StorageDefaultDir         = "/var/lib/setupflow"
	DBDefaultFilename         = "setup.db"
	WallpaperDefaultFilename  = "wallpaper.jpg"
	ShortcutFolderDefaultName = "Shortcuts"
	ManifestSectionDefault    = "shortcut"
	ManifestEnabledKeyDefault = "enabled"
	ForegroundSettleDefaultMs = 1000
	VerifySettleDefaultMs     = 500
	CompleteDisplayDefaultMs  = 1500
	MinDelayMs                = 0
	MaxDelayMs                = 10000
)

// DefaultConfigPaths is searched when no --cfg-dirs are given; later entries
// override earlier ones.
var DefaultConfigPaths = []string{"/usr/lib/setupflow/conf.d", "/etc/setupflow/conf.d"}

func NewConfig(tomlConfigPaths []string) (*Config, error) {
	var err error
	cfg := &Config{}

	if len(tomlConfigPaths) == 0 {
		return nil, fmt.Errorf("config: no TOML paths provided")
	}
	if cfg.tomlConfig, err = sotatoml.NewAppConfig(tomlConfigPaths); err != nil {
		return nil, fmt.Errorf("config: failed to load TOML from paths %q: %w",
			strings.Join(tomlConfigPaths, ", "), err)
	}
	if cfg.layers, err = loadLayers(tomlConfigPaths); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	// A missing action URL is reported when the action is started, so that a
	// half configured device still gets a recoverable failure state.
	if !cfg.tomlConfig.Has(ActionURLKey) {
		slog.Warn("no external action URL configured", "key", ActionURLKey)
	}
	cfg.foregroundSettle = cfg.delay(ForegroundSettleKey, ForegroundSettleDefaultMs)
	cfg.verifySettle = cfg.delay(VerifySettleKey, VerifySettleDefaultMs)
	cfg.completeDisplay = cfg.delay(CompleteDisplayKey, CompleteDisplayDefaultMs)
	cfg.manifestCheck = cfg.boolean(ManifestCheckKey, true)
	return cfg, nil
}

// delay accepts both `key = 1500` and `key = "1500"`
func (c *Config) delay(key string, def int) time.Duration {
	raw, ok := c.layers.lookup(key)
	if !ok {
		return time.Duration(def) * time.Millisecond
	}
	var value int64
	var err error
	switch v := raw.(type) {
	case int64:
		value = v
	case string:
		value, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		err = fmt.Errorf("unsupported type %T", v)
	}
	if err != nil {
		slog.Warn("invalid delay value; using default", "key", key, "value", raw, "default", def, "error", err)
		value = int64(def)
	} else if value < MinDelayMs || value > MaxDelayMs {
		slog.Warn("delay out of range; using default", "key", key, "value", value, "default", def)
		value = int64(def)
	}
	slog.Debug("delay set", "key", key, "ms", value)
	return time.Duration(value) * time.Millisecond
}

// boolean accepts TOML booleans and the strings understood by
// strconv.ParseBool
func (c *Config) boolean(key string, def bool) bool {
	raw, ok := c.layers.lookup(key)
	if !ok {
		return def
	}
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	slog.Warn("invalid boolean value; using default", "key", key, "value", raw, "default", def)
	return def
}

func (c *Config) GetActionURL() string {
	return strings.TrimSpace(c.tomlConfig.Get(ActionURLKey))
}

func (c *Config) GetShortcutName() string {
	return c.tomlConfig.GetDefault(ShortcutNameKey, ShortcutNameDefault)
}

// GetTargetParams returns the query parameters added to the action URL
func (c *Config) GetTargetParams() map[string]string {
	params := map[string]string{"name": c.GetShortcutName()}
	if u := strings.TrimSpace(c.tomlConfig.Get(ShortcutURLKey)); u != "" {
		params["url"] = u
	}
	return params
}

func (c *Config) GetForegroundSettleDelay() time.Duration {
	return c.foregroundSettle
}

func (c *Config) GetVerifySettleDelay() time.Duration {
	return c.verifySettle
}

func (c *Config) GetCompleteDisplayDelay() time.Duration {
	return c.completeDisplay
}

// GetOpener returns the opener command line; empty selects the platform default
func (c *Config) GetOpener() string {
	return strings.TrimSpace(c.tomlConfig.Get(OpenerKey))
}

func (c *Config) GetStorageDir() string {
	return c.tomlConfig.GetDefault(StorageDirKey, StorageDefaultDir)
}

func (c *Config) GetDBPath() string {
	p := c.tomlConfig.GetDefault(DBPathKey, DBDefaultFilename)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.GetStorageDir(), p)
}

func (c *Config) GetWallpaperFile() string {
	return c.tomlConfig.GetDefault(WallpaperFileKey, filepath.Join(c.GetStorageDir(), WallpaperDefaultFilename))
}

func (c *Config) GetShortcutFolder() string {
	return c.tomlConfig.GetDefault(ShortcutFolderKey, filepath.Join(c.GetStorageDir(), ShortcutFolderDefaultName))
}

// GetShortcutManifest returns the INI manifest written by the shortcut, or an
// empty string if the manifest check is disabled. A manifest set in one file
// can be switched off from a later one with `checks.manifest_check = false`.
func (c *Config) GetShortcutManifest() string {
	if !c.manifestCheck {
		return ""
	}
	return strings.TrimSpace(c.tomlConfig.Get(ShortcutManifestKey))
}

// GetManifestKey returns the section and key of the manifest entry that
// must be non-empty.
func (c *Config) GetManifestKey() (section, key string) {
	return c.tomlConfig.GetDefault(ManifestSectionKey, ManifestSectionDefault),
		c.tomlConfig.GetDefault(ManifestEnabledKeyKey, ManifestEnabledKeyDefault)
}

func (c *Config) TomlConfig() *sotatoml.AppConfig {
	return c.tomlConfig
}
