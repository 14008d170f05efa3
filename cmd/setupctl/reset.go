// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notewall/setupflow/pkg/api"
)

func init() {
	var withEvents bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget that the setup was completed so the next run starts over",
		Run: func(cmd *cobra.Command, args []string) {
			DieNotNil(api.Reset(cmd.Context(), config), "failed to reset setup")
			if withEvents {
				_, err := api.ClearEvents(config)
				DieNotNil(err, "failed to clear setup events")
			}
			fmt.Println("Setup state cleared")
		},
		Args: cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&withEvents, "events", false, "Also delete the recorded transitions")
	rootCmd.AddCommand(cmd)
}
