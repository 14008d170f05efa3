// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/notewall/setupflow/pkg/api"
	"github.com/notewall/setupflow/pkg/verify"
)

type (
	verifyOptions struct {
		Format string
		Mark   bool
	}
)

func init() {
	opts := verifyOptions{}
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run all setup checks once and list what is missing",
		Long: "Run all setup checks once and list what is missing.\n" +
			"Exits with code 2 if at least one check fails.",
		Args: cobra.NoArgs,
	}
	addFormatFlag(cmd, &opts.Format, formatText, formatJson, formatYaml)
	cmd.Flags().BoolVar(&opts.Mark, "mark", false, "Persist the setup as complete if all checks pass")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(opts.Format, formatText, formatJson, formatYaml); err != nil {
			return err
		}
		doVerify(cmd, &opts)
		return nil
	}
	rootCmd.AddCommand(cmd)
}

func doVerify(cmd *cobra.Command, opts *verifyOptions) {
	result, err := api.Verify(cmd.Context(), config, api.WithMarkComplete(opts.Mark))
	DieNotNil(err, "failed to verify setup")

	if !printStructured(opts.Format, result) {
		printVerifyText(result)
	}
	if code := verifyExitCode(result); code != 0 {
		os.Exit(code)
	}
}

// verifyExitCode is 2 when at least one check failed
func verifyExitCode(result *verify.Result) int {
	if result.Verified {
		return 0
	}
	return 2
}

func printVerifyText(result *verify.Result) {
	if result.Verified {
		fmt.Println("Status:  verified")
		return
	}
	fmt.Println("Status:  not verified")
	fmt.Println("Missing:")
	for _, c := range result.Missing {
		fmt.Printf(" - %-20s%s\n", c.ID, c.Name)
		if c.Remediation != "" {
			fmt.Printf("   %s\n", c.Remediation)
		}
	}
	if result.Error != "" {
		fmt.Println("Errors: ", result.Error)
	}
}
