// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history is the run journal: a local SQLite file recording
// every provisioning run and its per-tool results.
//
// The journal is strictly an observer. Recording failures are warnings,
// never install failures, and nothing in the pipeline reads it back.
// `reconrig history` lists recorded runs; `reconrig history show <id>`
// replays one run's results, accepting any unique id prefix.
//
// # Usage
//
//	path, _ := cfg.HistoryPath()
//	store, err := history.Open(path)
//	defer store.Close()
//	store.RecordRun(run, exitCode)
//	summaries, err := store.ListRuns(10)
package history
