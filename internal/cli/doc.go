// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution for reconrig.
//
// This package implements all CLI commands for the reconrig workstation
// bootstrapper, covering both the interactive wizard and the scriptable
// non-interactive surface.
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Parsed command-line arguments with global and command-specific flags
//   - JSONResponse: Envelope for machine-readable output
//
// # Usage
//
// Parse and execute commands:
//
//	cmd, args := cli.Parse(os.Args[1:])
//	switch cmd {
//	case cli.CmdInstall:
//	    cli.HandleInstallCommand(args)
//	case cli.CmdStatus:
//	    cli.HandleStatusCommand(args)
//	// ... other commands
//	}
//
// # Commands Overview
//
// Provisioning:
//   - install: Run the bootstrap pipeline (directories, package manager,
//     toolchains, tools, wordlists, PATH wiring)
//   - wordlists: Sync wordlist repos on their own
//   - env: Inspect and apply shell PATH wiring
//
// Inspection:
//   - status: Live tool resolution and PATH wiring state
//   - doctor: Host health checks with optional fixes
//   - tools: The tool manifest for this platform
//   - history: Journal of past provisioning runs
//   - config: Configuration management
//   - guide: Post-install quickstart
//
// Every command supports a --json flag; envelopes go to stdout and
// progress chatter moves to stderr so pipelines stay parseable.
package cli
