// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/notewall/setupflow/internal/lifecycle"
	"github.com/notewall/setupflow/pkg/api"
	"github.com/notewall/setupflow/pkg/state"
)

type (
	runOptions struct {
		Force   bool
		Timeout time.Duration
	}
)

const failedPrompt = "[r]etry, [o]pen the Shortcuts app again or [q]uit: "

var (
	ErrSetupNotVerified = errors.New("setup could not be verified")
	ErrSetupAborted     = errors.New("setup aborted")

	stepNumbers = map[state.Kind]int{
		state.ActionStarted:      1,
		state.ReturnedFromAction: 2,
		state.Verifying:          3,
		state.Verified:           4,
		state.Complete:           5,
	}
)

func init() {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the automation app and guide the setup until it is verified",
		Long: "Open the automation app and guide the setup until it is verified.\n\n" +
			"Verification starts once the user comes back: press Enter, or send\n" +
			"SIGUSR1 or SIGCONT to this process. When a check fails, an interactive\n" +
			"session offers to retry or to open the automation app again; otherwise\n" +
			"the command exits with code 1.",
		Run: func(cmd *cobra.Command, args []string) {
			doRun(cmd, &opts)
		},
		Args: cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Run the setup again even if it was completed before")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Give up after this long; 0 waits for the user indefinitely")
	rootCmd.AddCommand(cmd)
}

func isInteractive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func printTransition(t state.Transition) {
	switch t.To.Kind {
	case state.Initial:
		return
	case state.VerificationFailed:
		fmt.Printf("[x/%d] %s: %s\n", len(stepNumbers), t.To.Kind, t.To.Result.Summary())
	default:
		fmt.Printf("[%d/%d] %s\n", stepNumbers[t.To.Kind], len(stepNumbers), t.To.Kind)
	}
}

func doRun(cmd *cobra.Command, opts *runOptions) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	interactive := isInteractive()
	transitions := make(chan state.Transition, 16)
	setup, err := api.NewSetup(ctx, config, api.WithListener(func(t state.Transition) {
		printTransition(t)
		select {
		case transitions <- t:
		case <-ctx.Done():
		}
	}))
	DieNotNil(err, "failed to create setup session")
	defer setup.Close()

	if setup.CanProceed() {
		if !opts.Force {
			fmt.Println("Setup is already complete")
			return
		}
		setup.Reset()
	}

	stopWatch := lifecycle.Watch(ctx, setup.OnForegroundReturn)
	defer stopWatch()
	lines := lifecycle.ReadLines(ctx, os.Stdin)

	setup.StartAction()
	if interactive && setup.State().Kind == state.ActionStarted {
		fmt.Println("Finish the steps in the Shortcuts app, then come back and press Enter.")
	}

	for {
		select {
		case <-ctx.Done():
			DieNotNil(ctx.Err(), ErrSetupAborted.Error())
		case t := <-transitions:
			done, err := onTransition(setup, t, interactive)
			DieNotNil(err)
			if done {
				return
			}
		case line, ok := <-lines:
			if !ok {
				// Nothing more to read; signals can still drive the flow
				lines = nil
				continue
			}
			DieNotNil(handleInput(setup, line))
		}
	}
}

// onTransition reports whether the run is over. A failed verification ends
// the run with ErrSetupNotVerified unless the user can be asked what to do.
func onTransition(setup *api.Setup, t state.Transition, interactive bool) (bool, error) {
	switch t.To.Kind {
	case state.Complete:
		fmt.Println("Setup complete")
		return true, nil
	case state.VerificationFailed:
		fmt.Println(setup.UserFacingErrorMessage())
		if !interactive {
			return true, ErrSetupNotVerified
		}
		fmt.Print(failedPrompt)
	}
	return false, nil
}

// handleInput treats any line as a return to the foreground while the action
// is open, and as a menu choice once verification failed.
func handleInput(setup *api.Setup, line string) error {
	switch setup.State().Kind {
	case state.ActionStarted, state.ReturnedFromAction:
		setup.OnForegroundReturn()
	case state.VerificationFailed:
		switch line {
		case "r", "retry":
			setup.Retry()
		case "o", "open":
			setup.ReopenAction()
		case "q", "quit":
			return ErrSetupAborted
		default:
			fmt.Print(failedPrompt)
		}
	}
	return nil
}
