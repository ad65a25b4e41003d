// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/parley/internal/storage"
	"github.com/jeranaias/parley/internal/ui/chat"
	"github.com/jeranaias/parley/internal/ui/styles"
)

func newTUICommand(flags *globalFlags, streams IO) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the full-screen chat interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), flags, streams)
		},
	}
}

// runTUI starts the Bubble Tea program on the alternate screen.
func runTUI(ctx context.Context, flags *globalFlags, streams IO) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return withApp(flags, true, streams, func(app *App) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		bridge := chat.NewBridge()
		unsubscribe := bridge.Attach(app.Store)
		defer unsubscribe()

		orch, err := app.Orchestrator(bridge)
		if err != nil {
			return err
		}
		app.Watch(ctx)

		// A theme chosen in the UI wins over the configured one.
		mode := app.Config.UI.Theme
		if saved, ok := app.Adapter.LoadString(storage.KeyTheme); ok {
			mode = saved
		}

		dataDir, err := app.Config.DataDir()
		if err != nil {
			return err
		}

		app.Store.EnsureCurrent()
		m := chat.New(chat.Deps{
			Store:        app.Store,
			Adapter:      app.Adapter,
			Orchestrator: orch,
			Bridge:       bridge,
			Theme:        styles.NewTheme(mode),
			SidebarWidth: app.Config.UI.SidebarWidth,
			ExportDir:    filepath.Join(dataDir, "exports"),
			Logger:       app.Log,
		})

		p := tea.NewProgram(m,
			tea.WithAltScreen(),
			tea.WithContext(ctx),
			tea.WithInput(streams.In),
			tea.WithOutput(streams.Out),
		)
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("tui: %w", err)
		}
		return nil
	})
}
