// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command: wordlists
// Short: clone or update the configured wordlist repos
// Aliases: wordlist
//
// Syncs every wordlist repo from config into the wordlist directory:
// absent repos are shallow-cloned, existing checkouts are
// fast-forwarded. A failing repo does not abort the sync; each repo
// reports its own result and the command exits 0 regardless, matching
// the best-effort tier of install.
//
// Flags:
//
//	--dry-run  print the git commands without running them
//	--yes      skip the confirmation prompt
//	--json     machine-readable results on stdout, git output on stderr
//
// Examples:
//
//	reconrig wordlists
//	reconrig wordlists --dry-run
//	reconrig wordlists --json --yes
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/reconrig/internal/config"
	"github.com/jeranaias/reconrig/internal/installer"
	"github.com/jeranaias/reconrig/internal/report"
	"github.com/jeranaias/reconrig/internal/util"
	"github.com/jeranaias/reconrig/internal/wordlist"
)

// HandleWordlists syncs the configured wordlist repos.
func HandleWordlists(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	repos, err := wordlist.ReposFromConfig(cfg)
	if err != nil {
		return WrapError(err, "resolving wordlist repos")
	}

	if len(repos) == 0 {
		if args.JSON {
			return NewJSONResponse("wordlists", []report.Result{}).Print()
		}
		fmt.Println("No wordlist repos configured.")
		fmt.Printf("The default config ships with OneListForAll; run %s to restore it.\n",
			HighlightStyle.Render("reconrig config reset"))
		return nil
	}

	baseDir, err := cfg.WordlistDir()
	if err != nil {
		return err
	}

	if !args.DryRun {
		action := fmt.Sprintf("sync %d wordlist repo(s) under %s", len(repos), baseDir)
		confirmed, err := RequireConfirmation(args.Yes, action, args.JSON)
		if err != nil {
			return err
		}
		if !confirmed {
			ShowCancellationMessage()
			return nil
		}
		if err := util.EnsureDir(baseDir, 0755); err != nil {
			return WrapError(err, "creating wordlist directory")
		}
	}

	// Git progress goes wherever humans are looking. In JSON mode the
	// envelope owns stdout, so command echo and git chatter move to
	// stderr.
	progressOut := io.Writer(os.Stdout)
	childOut := io.Writer(os.Stdout)
	if args.JSON {
		progressOut = os.Stderr
		childOut = os.Stderr
	}
	if args.Quiet {
		childOut = io.Discard
	}

	runner := &installer.ExecRunner{Stdout: childOut, Stderr: os.Stderr}
	fetcher := wordlist.NewFetcher(repos, runner, progressOut, args.DryRun)

	if !args.JSON {
		fmt.Println(TitleStyle.Render("reconrig wordlists"))
		if args.DryRun {
			fmt.Println(WarningStyle.Render("Dry run: no commands will be executed."))
		}
		fmt.Println()
	}

	results := fetcher.SyncAll(context.Background())

	if args.JSON {
		return NewJSONResponse("wordlists", results).Print()
	}

	renderWordlistResults(results)
	return nil
}

// renderWordlistResults prints one row per repo plus the tally line.
func renderWordlistResults(results []report.Result) {
	nameWidth := 0
	for _, r := range results {
		if w := util.StringWidth(r.Tool); w > nameWidth {
			nameWidth = w
		}
	}
	nameWidth += 2

	fmt.Println()
	for _, r := range results {
		fmt.Println(r.Render(nameWidth))
	}
	fmt.Println()
	fmt.Println(report.RenderCounts(report.CountResults(results)))
}
