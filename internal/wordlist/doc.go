// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package wordlist keeps wordlist repositories cloned and current.
//
// Each configured repo is shallow-cloned into the wordlist directory
// (default <tools_dir>/src) on first run and fast-forwarded on later
// runs. Clone URLs are tried in order, so a mirror can stand in when
// the primary host is down.
//
// # Usage
//
//	repos, err := wordlist.ReposFromConfig(cfg)
//	f := wordlist.NewFetcher(repos, nil, os.Stdout, false)
//	results := f.SyncAll(ctx)
package wordlist
