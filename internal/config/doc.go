// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management
// for reconrig.
//
// Supports both TOML and JSON configuration formats, with sensible
// defaults, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - InstallConfig: Tools directory, strict mode, rate limiting
//   - ToolchainConfig: Go release version and tarball checksums
//   - WordlistsConfig: Wordlist repositories and their mirrors
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (RECONRIG_*, legacy TOOLS_DIR)
//   - ~/.reconrig/config.toml
//   - ~/.reconrig/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//
// Access settings:
//
//	binDir, err := cfg.BinDir()
//	strict := cfg.Install.Strict
package config
