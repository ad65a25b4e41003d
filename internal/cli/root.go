// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// IO carries the streams a command reads and writes. Tests swap them.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdIO returns the process streams.
func StdIO() IO {
	return IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// NewRootCommand builds the command tree. Running it with no subcommand
// starts the TUI.
func NewRootCommand(streams IO) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "parley",
		Short:         "Chat with a local or hosted model from the terminal",
		Long:          "parley keeps persistent conversations with an Ollama or OpenAI-compatible model.\nRun without arguments for the full-screen interface.",
		Version:       Version + " (" + GitCommit + ", " + BuildDate + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), flags, streams)
		},
	}
	root.SetIn(streams.In)
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default $PARLEY_HOME/config.toml)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "directory holding conversations")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	root.AddCommand(
		newTUICommand(flags, streams),
		newChatCommand(flags, streams),
		newAskCommand(flags, streams),
		newListCommand(flags, streams),
		newShowCommand(flags, streams),
		newExportCommand(flags, streams),
		newImportCommand(flags, streams),
		newRenameCommand(flags, streams),
		newArchiveCommand(flags, streams),
		newDeleteCommand(flags, streams),
		newStatusCommand(flags, streams),
		newConfigCommand(flags, streams),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, streams IO) int {
	root := NewRootCommand(streams)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		PrintError(streams.Err, err)
		return ExitCodeFor(err)
	}
	return ExitSuccess
}

// withApp opens the app for one command and closes it afterwards.
func withApp(flags *globalFlags, interactive bool, streams IO, fn func(*App) error) error {
	app, err := openApp(flags, interactive, streams.Err)
	if err != nil {
		return err
	}
	runErr := fn(app)
	if closeErr := app.Close(); runErr == nil {
		runErr = closeErr
	}
	return runErr
}
