// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/notewall/setupflow/pkg/api"
)

func init() {
	var format string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the setup is complete and its last recorded step",
		Args:  cobra.NoArgs,
	}
	addFormatFlag(cmd, &format, formatText, formatJson)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(format, formatText, formatJson); err != nil {
			return err
		}
		doStatus(cmd, format)
		return nil
	}
	rootCmd.AddCommand(cmd)
}

func doStatus(cmd *cobra.Command, format string) {
	s, err := api.Status(cmd.Context(), config)
	DieNotNil(err, "failed to get setup status")
	if printStructured(format, s) {
		return
	}

	if s.Complete {
		if s.UpdatedAt != nil {
			fmt.Printf("Setup:      complete since %s\n", s.UpdatedAt.Local().Format(time.DateTime))
		} else {
			fmt.Println("Setup:      complete")
		}
	} else {
		fmt.Println("Setup:      not complete")
	}
	if s.LastEvent != nil {
		fmt.Printf("Last step:  %s (%s) at %s\n", s.LastEvent.Event.To, s.LastEvent.Event.Reason, s.LastEvent.DeviceTime)
		fmt.Printf("Session:    %s\n", s.LastEvent.CorrelationId)
	}
	fmt.Printf("Events:     %d\n", s.EventsCount)
}
