// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notewall/setupflow/pkg/api"
)

type (
	eventsOptions struct {
		Format string
		Clear  bool
	}
)

func init() {
	opts := eventsOptions{}
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List the recorded setup transitions",
		Args:  cobra.NoArgs,
	}
	addFormatFlag(cmd, &opts.Format, formatText, formatJson)
	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "Delete the recorded transitions")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(opts.Format, formatText, formatJson); err != nil {
			return err
		}
		doEvents(&opts)
		return nil
	}
	rootCmd.AddCommand(cmd)
}

func doEvents(opts *eventsOptions) {
	if opts.Clear {
		n, err := api.ClearEvents(config)
		DieNotNil(err, "failed to clear setup events")
		fmt.Printf("Deleted %d events\n", n)
		return
	}

	evts, err := api.Events(config)
	DieNotNil(err, "failed to read setup events")
	if printStructured(opts.Format, evts) {
		return
	}
	for _, e := range evts {
		line := fmt.Sprintf("%s  %-18s -> %-18s %s", e.DeviceTime, e.Event.From, e.Event.To, e.Event.Reason)
		if len(e.Event.Missing) > 0 {
			line += "  missing: " + strings.Join(e.Event.Missing, ",")
		}
		fmt.Println(line)
	}
}
