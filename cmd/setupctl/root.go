// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"github.com/spf13/cobra"

	"github.com/notewall/setupflow/internal/logging"
	cfg "github.com/notewall/setupflow/pkg/config"
)

var (
	verbose     bool
	configPaths []string
	config      *cfg.Config

	rootCmd = &cobra.Command{
		Use:   "setupctl",
		Short: "Guide the NoteWall shortcut setup and verify that it is complete",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logging.LevelInfo
			if verbose {
				level = logging.LevelDebug
			}
			cobra.CheckErr(logging.Configure(level))

			var err error
			config, err = cfg.NewConfig(configPaths)
			cobra.CheckErr(err)
		},
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose debug logging")
	rootCmd.PersistentFlags().StringSliceVarP(&configPaths, "cfg-dirs", "c",
		cfg.DefaultConfigPaths, "A comma-separated list of paths to search for .toml configuration files")
}
