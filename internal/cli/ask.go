// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	orchestrator "github.com/jeranaias/parley/internal/chat"
)

func newAskCommand(flags *globalFlags, streams IO) *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask one question in the current conversation",
		Long: `Ask one question in the current conversation and print the reply.

With no arguments the question is read from stdin, so output of other
tools can be piped in:

  git diff | parley ask --new`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if strings.TrimSpace(question) == "" && !isTerminalReader(streams.In) {
				data, err := io.ReadAll(streams.In)
				if err != nil {
					return fmt.Errorf("read question: %w", err)
				}
				question = string(data)
			}
			if strings.TrimSpace(question) == "" {
				return &UsageError{Reason: "a question is required"}
			}

			return withApp(flags, false, streams, func(app *App) error {
				orch, err := app.Orchestrator(orchestrator.NopObserver{})
				if err != nil {
					return err
				}
				id := ""
				if fresh {
					id = app.Store.Create().ID
				} else {
					id = app.Store.EnsureCurrent()
				}

				ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
				defer stop()

				res, err := orch.Send(ctx, id, question)
				if err != nil {
					return err
				}
				if res.Err != nil {
					// The error turn is already recorded in the conversation.
					return res.Err
				}
				fmt.Fprintln(streams.Out, newPrinter(streams.Out, app.Config.UI.Theme).content(res.Reply.Content))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&fresh, "new", "n", false, "start a new conversation")
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// isTerminalReader reports whether r is a terminal.
func isTerminalReader(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && isTerminal(f)
}
