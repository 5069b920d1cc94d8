// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package env plans and reconciles the shell environment for installed
// tools.
//
// The model is declarative: BuildPlan computes which directories belong
// on PATH and which rc files should carry the export lines, then
// Reconcile appends exactly the lines that are missing. Running it
// twice changes nothing the second time, and user content in rc files
// is never rewritten, only appended to.
//
// # Usage
//
//	plan, err := env.BuildPlan(cfg, platform)
//	if err != nil {
//	    return err
//	}
//	changes, err := plan.Reconcile()
package env
