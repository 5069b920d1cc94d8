// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package installer drives the provisioning pipeline: directories,
// package manager and language toolchains, the tool manifest, wordlist
// sync, and shell environment wiring.
//
// Bootstrap steps are fatal because nothing downstream works without
// them. Tool and wordlist steps record one result each and never stop
// the pipeline; the summary and exit code are decided at the end.
//
// # Key Types
//
//   - Engine: runs the pipeline for a config, platform, and tool table
//   - Runner: executes external commands; ExecRunner is real,
//     RecordingRunner is the test double
//   - Downloader: fetches toolchain tarballs; HTTPDownloader is real
//
// # Usage
//
//	eng := installer.New(cfg, platform, tools, installer.Options{})
//	run, err := eng.Run(ctx)
//	if err != nil {
//		// fatal bootstrap failure, run.Fatal carries the message
//	}
//	fmt.Print(report.SummaryTable(run, eng.Tools(), eng.Lookup()))
package installer
