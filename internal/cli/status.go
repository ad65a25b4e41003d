// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/parley/internal/config"
)

// statusTimeout bounds each health request.
const statusTimeout = 5 * time.Second

func newStatusCommand(flags *globalFlags, streams IO) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"s"},
		Short:   "Show the endpoint, installed models and stored conversations",
		Long: "Show the endpoint, installed models and stored conversations.\n" +
			"Exits with status 5 when the Ollama endpoint cannot be reached.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, false, streams, func(app *App) error {
				printStorageStatus(streams.Out, app)
				return printRemoteStatus(cmd.Context(), streams.Out, app.Config.Remote)
			})
		},
	}
}

func printStorageStatus(w io.Writer, app *App) {
	dir, _ := app.Config.DataDir()
	backend := app.Config.Storage.Backend
	if backend == "" {
		backend = "file"
	}

	convs := app.Store.Snapshot()
	archived, messages := 0, 0
	var lastActivity time.Time
	for _, c := range convs {
		if c.IsArchived {
			archived++
		}
		messages += c.MessageCount()
		if last, ok := c.LastMessage(); ok && last.Timestamp.After(lastActivity) {
			lastActivity = last.Timestamp
		}
	}

	fmt.Fprintln(w, "Storage")
	fmt.Fprintf(w, "  Backend:        %s\n", backend)
	fmt.Fprintf(w, "  Data dir:       %s\n", dir)
	fmt.Fprintf(w, "  Conversations:  %d (%d archived, %d messages)\n", len(convs), archived, messages)
	if !lastActivity.IsZero() {
		fmt.Fprintf(w, "  Last message:   %s\n", relativeTime(lastActivity, nowFunc()))
	}
	if conv, ok := app.Store.Current(); ok {
		fmt.Fprintf(w, "  Current:        %s %s\n", shortID(conv.ID), conv.DisplayTitle())
	}
	fmt.Fprintln(w)
}

func printRemoteStatus(ctx context.Context, w io.Writer, cfg config.RemoteConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Fprintln(w, "Remote")
	fmt.Fprintf(w, "  Backend:        %s\n", cfg.Backend)
	fmt.Fprintf(w, "  Endpoint:       %s\n", cfg.BaseURL)
	fmt.Fprintf(w, "  Model:          %s\n", cfg.Model)

	if cfg.Backend == config.BackendOpenAI {
		key := "missing"
		if cfg.APIKey != "" {
			key = "set"
		}
		fmt.Fprintf(w, "  API key:        %s\n", key)
		return nil
	}

	client := newOllamaClient(cfg)

	checkCtx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()
	if err := client.CheckRunning(checkCtx); err != nil {
		fmt.Fprintln(w, "  Ollama:         not running")
		return err
	}
	fmt.Fprintln(w, "  Ollama:         running")

	listCtx, cancelList := context.WithTimeout(ctx, statusTimeout)
	defer cancelList()
	models, err := client.ListModels(listCtx)
	if err != nil {
		fmt.Fprintf(w, "  Models:         unavailable (%v)\n", err)
		return nil
	}

	installed := false
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
		if modelMatches(m.Name, client.Model()) {
			installed = true
		}
	}
	if len(names) == 0 {
		fmt.Fprintln(w, "  Models:         none installed")
	} else {
		fmt.Fprintf(w, "  Models:         %s\n", strings.Join(names, ", "))
	}
	if !installed {
		fmt.Fprintf(w, "  Warning:        %s is not installed (ollama pull %s)\n", client.Model(), client.Model())
	}
	return nil
}

// modelMatches treats "llama3.2" and "llama3.2:latest" as the same model.
func modelMatches(installed, configured string) bool {
	if installed == configured {
		return true
	}
	return !strings.Contains(configured, ":") && installed == configured+":latest"
}
