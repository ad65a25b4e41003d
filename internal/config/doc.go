// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads parley's TOML configuration.
//
// # Configuration Precedence
//
// Values are resolved in this order (later wins):
//   - Built-in defaults
//   - ~/.parley/config.toml (or $PARLEY_HOME/config.toml)
//   - Environment variables (PARLEY_*), including those from ./.env
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dir, _ := cfg.DataDir()
package config
