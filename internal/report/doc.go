// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package report collects per-step results and renders run summaries.
//
// The exit-code policy lives here: steps never abort the run, their
// results accumulate in a Run, and ExitCode decides once at the end.
// By default a run exits 0 even with missing tools; strict mode turns
// failures and missing binaries into exit 1. A fatal bootstrap error
// recorded on the Run always exits 1.
//
// # Key Types
//
//   - Result: one step's outcome (tool, status, path, error)
//   - Run: every result of one invocation plus timing and platform
//   - Status: installed, present, skipped, failed, missing
package report
