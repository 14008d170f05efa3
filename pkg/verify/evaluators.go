// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package verify

import (
	"context"
	"fmt"
	"os"
	"strings"

	ini "gopkg.in/ini.v1"
)

// Static reports the given ok for every run. Handy for configuration toggles
// and tests.
func Static(ok bool) EvaluateFunc {
	return func(context.Context) (bool, error) {
		return ok, nil
	}
}

// FileExists holds when path names an existing regular file.
func FileExists(path string) EvaluateFunc {
	return func(ctx context.Context) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		return info.Mode().IsRegular(), nil
	}
}

// DirWritable holds when path is a directory the current process may create
// files in. The check is done through access(2) where available so the
// directory is never touched.
func DirWritable(path string) EvaluateFunc {
	return func(ctx context.Context) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if !info.IsDir() {
			return false, nil
		}
		return canWrite(path, info)
	}
}

// IniValue holds when the INI file at path has key in section set to want.
// An empty want only requires the key to be present and non-empty. Values are
// compared with surrounding quotes stripped, as in os-release style files.
func IniValue(path, section, key, want string) EvaluateFunc {
	return func(ctx context.Context) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return false, nil
		}
		cfg, err := ini.Load(path)
		if err != nil {
			return false, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		sec, err := cfg.GetSection(section)
		if err != nil {
			return false, nil
		}
		if !sec.HasKey(key) {
			return false, nil
		}
		value := strings.Trim(strings.TrimSpace(sec.Key(key).String()), "\"")
		if want == "" {
			return value != "", nil
		}
		return value == want, nil
	}
}
