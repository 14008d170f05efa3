// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJson = "json"
	formatYaml = "yaml"
)

func addFormatFlag(cmd *cobra.Command, format *string, formats ...string) {
	cmd.Flags().StringVar(format, "format", formatText,
		fmt.Sprintf("Format the output. Values: [%s]", strings.Join(formats, " | ")))
}

func checkFormat(format string, formats ...string) error {
	for _, f := range formats {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("invalid value for --format: %s (must be %s)", format, strings.Join(formats, " or "))
}

// printStructured prints v as json or yaml and reports whether it did
func printStructured(format string, v any) bool {
	switch format {
	case formatJson:
		b, err := json.MarshalIndent(v, "", "  ")
		DieNotNil(err, "failed to marshal result")
		fmt.Println(string(b))
	case formatYaml:
		b, err := yaml.Marshal(v)
		DieNotNil(err, "failed to marshal result")
		fmt.Print(string(b))
	default:
		return false
	}
	return true
}
