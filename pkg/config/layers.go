// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml"
)

// tomlLayers are the parsed configuration files, most significant first. The
// order is the one sotatoml resolves string keys in: files are keyed by base
// name, later search paths replace earlier files of the same name, and names
// sort in reverse.
//
// sotatoml only returns strings and panics on any other TOML type, so typed
// values such as delays and switches are read from here.
type tomlLayers []*toml.Tree

func loadLayers(paths []string) (tomlLayers, error) {
	files := make(map[string]string)
	for _, path := range paths {
		st, err := os.Stat(path)
		if err != nil {
			continue
		}
		if !st.IsDir() {
			files[st.Name()] = path
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if strings.HasSuffix(entry.Name(), ".toml") {
				files[entry.Name()] = filepath.Join(path, entry.Name())
			}
		}
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	layers := make(tomlLayers, 0, len(names))
	for _, name := range names {
		tree, err := toml.LoadFile(files[name])
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", files[name], err)
		}
		layers = append(layers, tree)
	}
	return layers, nil
}

// lookup returns the most significant value of key. Empty strings are
// skipped, as sotatoml does.
func (l tomlLayers) lookup(key string) (any, bool) {
	for _, tree := range l {
		v := tree.Get(key)
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}
