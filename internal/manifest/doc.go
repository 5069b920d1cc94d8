// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package manifest defines the declarative table of recon tools that
// reconrig manages.
//
// Every command works from the same table: install walks it to deliver
// tools, status resolves each entry against PATH, and the end-of-run
// summary prints one line per entry. Adding a tool means adding one
// Tool value; no installer code changes.
//
// # Key Types
//
//   - Tool: name, installer kind, package identifier, expected binary
//   - Kind: go, pip, npm, apt, brew, snap, git
//
// # Usage
//
//	tools := manifest.Default()
//	subset, err := manifest.Filter(tools, []string{"ffuf", "nuclei"})
package manifest
