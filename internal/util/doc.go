// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions shared across reconrig.
//
// This package contains common helper functions used throughout the
// application for path handling, width-aware string formatting, and
// crash-safe file operations.
//
// # Key Functions
//
// Path Utilities:
//   - ExpandHome: Expand ~ and $HOME prefixes in config paths
//   - DirWritable: Probe whether a directory accepts new files
//
// String Utilities:
//   - TruncateWidth, PadWidth: Terminal-column aware formatting
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// # Usage
//
//	// Resolve a user-supplied tools directory
//	dir, err := util.ExpandHome("~/tools")
//
//	// Keep table columns aligned regardless of rune width
//	cell := util.PadWidth(name, 16)
//
//	// Write files atomically to prevent data loss
//	err := util.AtomicWriteFile(path, data, 0644)
package util
