// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/jeranaias/parley/internal/config"
)

func newConfigCommand(flags *globalFlags, streams IO) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or initialise the configuration",
	}

	path := func() (string, error) {
		if flags.configPath != "" {
			return flags.configPath, nil
		}
		return config.ConfigPath()
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (API key redacted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			return toml.NewEncoder(streams.Out).Encode(cfg.Redacted())
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := path()
			if err != nil {
				return err
			}
			fmt.Fprintln(streams.Out, p)
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := path()
			if err != nil {
				return err
			}
			if _, err := os.Stat(p); err == nil && !force {
				return &UsageError{Reason: fmt.Sprintf("%s already exists (use --force to overwrite)", p)}
			}
			if err := config.SaveTOML(config.Default(), p); err != nil {
				return err
			}
			fmt.Fprintf(streams.Out, "Wrote %s\n", p)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	get := &cobra.Command{
		Use:   "get <section.key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			v, err := cfg.Redacted().Get(args[0])
			if err != nil {
				return &UsageError{Reason: err.Error()}
			}
			fmt.Fprintln(streams.Out, v)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <section.key> <value>",
		Short: "Change one setting in the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := path()
			if err != nil {
				return err
			}
			cfg, err := config.LoadFromPath(p)
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return &UsageError{Reason: err.Error()}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.SaveTOML(cfg, p); err != nil {
				return err
			}
			fmt.Fprintf(streams.Out, "%s = %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.AddCommand(show, pathCmd, initCmd, get, set)
	return cmd
}
