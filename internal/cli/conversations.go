// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/parley/internal/export"
)

// =============================================================================
// LIST
// =============================================================================

func newListCommand(flags *globalFlags, streams IO) *cobra.Command {
	var (
		all    bool
		search string
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations, most recently updated first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, false, streams, func(app *App) error {
				convs := app.Store.Search(search, all)
				printList(streams.Out, convs, app.Store.CurrentID(), nowFunc())
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include archived conversations")
	cmd.Flags().StringVarP(&search, "search", "s", "", "only conversations whose title or messages contain this text")
	return cmd
}

// =============================================================================
// SHOW
// =============================================================================

func newShowCommand(flags *globalFlags, streams IO) *cobra.Command {
	var (
		asHTML  bool
		asJSON  bool
		preview bool
	)
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a conversation",
		Long:  "Print a conversation. The id may be a full id, a unique prefix, or the number shown by 'list --all'.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if countTrue(asHTML, asJSON, preview) > 1 {
				return &UsageError{Reason: "--html, --json and --glamour cannot be combined"}
			}
			return withApp(flags, false, streams, func(app *App) error {
				conv, err := app.Resolve(args[0])
				if err != nil {
					return err
				}
				switch {
				case asJSON:
					data, err := app.Store.ExportRecord(conv.ID)
					if err != nil {
						return err
					}
					fmt.Fprintln(streams.Out, string(data))
					return nil
				case asHTML:
					data, err := export.NewHTMLExporter(&export.Options{
						IncludeMetadata:   true,
						IncludeTimestamps: true,
						Theme:             app.Config.UI.Theme,
					}).Export(conv)
					if err != nil {
						return err
					}
					_, err = streams.Out.Write(data)
					return err
				case preview:
					out, err := glamourPreview(conv, terminalWidth(streams.Out))
					if err != nil {
						return err
					}
					fmt.Fprint(streams.Out, out)
					return nil
				}
				fmt.Fprintf(streams.Out, "# %s\n\n", conv.DisplayTitle())
				newPrinter(streams.Out, app.Config.UI.Theme).transcript(conv)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "print the standalone HTML page")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the stored JSON record")
	cmd.Flags().BoolVar(&preview, "glamour", false, "preview the markdown export")
	return cmd
}

func countTrue(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

func newExportCommand(flags *globalFlags, streams IO) *cobra.Command {
	var (
		format string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a conversation to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exporter, err := export.ForFormat(format, nil)
			if err != nil {
				return &UsageError{Reason: err.Error()}
			}
			return withApp(flags, false, streams, func(app *App) error {
				conv, err := app.Resolve(args[0])
				if err != nil {
					return err
				}
				path, err := export.ExportToFile(app.Store, conv.ID, outDir, exporter)
				if err != nil {
					return err
				}
				fmt.Fprintf(streams.Out, "Exported to %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json, markdown or html")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}

func newImportCommand(flags *globalFlags, streams IO) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add a conversation from an exported JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, false, streams, func(app *App) error {
				conv, err := export.ImportFile(app.Store, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(streams.Out, "Imported %q as %s (%d messages)\n",
					conv.DisplayTitle(), conv.ID, len(conv.Messages))
				return nil
			})
		},
	}
}

// =============================================================================
// RENAME / ARCHIVE / DELETE
// =============================================================================

func newRenameCommand(flags *globalFlags, streams IO) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title...>",
		Short: "Set a conversation title",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, false, streams, func(app *App) error {
				conv, err := app.Resolve(args[0])
				if err != nil {
					return err
				}
				if err := app.Store.Rename(conv.ID, strings.Join(args[1:], " ")); err != nil {
					return err
				}
				renamed, _ := app.Store.Find(conv.ID)
				fmt.Fprintf(streams.Out, "Renamed to %q\n", renamed.DisplayTitle())
				return nil
			})
		},
	}
}

func newArchiveCommand(flags *globalFlags, streams IO) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive or unarchive a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, false, streams, func(app *App) error {
				conv, err := app.Resolve(args[0])
				if err != nil {
					return err
				}
				archived, err := app.Store.ToggleArchive(conv.ID)
				if err != nil {
					return err
				}
				if archived {
					fmt.Fprintln(streams.Out, "Conversation archived.")
				} else {
					fmt.Fprintln(streams.Out, "Conversation unarchived.")
				}
				return nil
			})
		},
	}
}

func newDeleteCommand(flags *globalFlags, streams IO) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Permanently delete a conversation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, false, streams, func(app *App) error {
				conv, err := app.Resolve(args[0])
				if err != nil {
					return err
				}
				if !force && !confirm(streams, fmt.Sprintf("Delete %q permanently?", conv.DisplayTitle())) {
					fmt.Fprintln(streams.Out, "Cancelled.")
					return nil
				}
				if _, err := app.Store.Delete(conv.ID); err != nil {
					return err
				}
				fmt.Fprintln(streams.Out, "Conversation deleted.")
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
