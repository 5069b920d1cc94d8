// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// install.go - The install command: full provisioning pipeline.
//
// Command: install
// Short: Run the full install pipeline
// Aliases: i
//
// The pipeline is strictly linear: directories, package manager,
// toolchains, tools, wordlists, shell PATH wiring. Directory creation,
// package manager, and toolchains are fatal on error; tool, wordlist,
// and env steps record failures and continue.
//
// Flags:
//
//	--only NAMES     Install only the named tools (comma-separated)
//	--skip-wordlists Skip the wordlist sync step
//	--dry-run        Describe every action without executing anything
//	--strict         Exit 1 if any tool ends failed or missing
//	--json           JSON report envelope on stdout, progress on stderr
//	--yes            Skip the confirmation prompt
//
// Examples:
//
//	reconrig install
//	reconrig install --only ffuf,httpx --dry-run
//	reconrig install --strict --json --yes

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/reconrig/internal/config"
	"github.com/jeranaias/reconrig/internal/detect"
	"github.com/jeranaias/reconrig/internal/history"
	"github.com/jeranaias/reconrig/internal/installer"
	"github.com/jeranaias/reconrig/internal/manifest"
	"github.com/jeranaias/reconrig/internal/report"
	"github.com/jeranaias/reconrig/internal/wordlist"
)

// HandleInstall runs the provisioning pipeline and returns the run for
// exit-code evaluation. The returned error is non-nil for pre-run
// failures (config, flag validation, confirmation) and, in human mode,
// for a fatal bootstrap error. The bool is the effective strict mode
// (flag or config).
func HandleInstall(args Args) (*report.Run, bool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, false, err
	}

	if args.SkipWordlists {
		cfg.Install.SkipWordlists = true
	}
	strict := args.Strict || cfg.Install.Strict

	platform := detect.Detect()

	tools := manifest.DefaultFor(platform.OS)
	if len(args.Only) > 0 {
		tools, err = manifest.Filter(tools, args.Only)
		if err != nil {
			return nil, strict, NewValidationErrorWithExample(
				"--only",
				strings.Join(args.Only, ","),
				err.Error(),
				"reconrig install --only ffuf,httpx",
			)
		}
	}

	// A real run mutates the machine; a dry run never does.
	if !args.DryRun {
		action := fmt.Sprintf("install %d tool(s) and modify this machine", len(tools))
		confirmed, err := RequireConfirmation(args.Yes, action, args.JSON)
		if err != nil {
			return nil, strict, err
		}
		if !confirmed {
			ShowCancellationMessage()
			return nil, strict, nil
		}
	}

	opts, err := buildInstallOptions(cfg, args)
	if err != nil {
		return nil, strict, err
	}

	if !args.JSON && !args.Quiet {
		printInstallBanner(cfg, platform, tools, args.DryRun)
	}

	engine := installer.New(cfg, platform, tools, opts)
	run, runErr := engine.Run(context.Background())

	recordInstallHistory(cfg, run, strict)

	if args.JSON {
		if runErr != nil {
			resp := NewJSONErrorResponse("install", runErr)
			resp.Data = run
			resp.Print()
			// The envelope already carries the error; the caller exits
			// through the run's code.
			return run, strict, nil
		}
		return run, strict, NewJSONResponse("install", run).Print()
	}

	if runErr != nil {
		return run, strict, runErr
	}

	printInstallSummary(engine, run)
	return run, strict, nil
}

// buildInstallOptions wires the engine's runner, wordlist fetcher, and
// output streams for the requested mode. JSON mode keeps stdout clean
// for the envelope; quiet mode discards child command stdout.
func buildInstallOptions(cfg *config.Config, args Args) (installer.Options, error) {
	childOut := io.Writer(os.Stdout)
	if args.Quiet {
		childOut = io.Discard
	} else if args.JSON {
		childOut = os.Stderr
	}

	progressOut := io.Writer(os.Stdout)
	if args.JSON {
		progressOut = os.Stderr
	}

	runner := &installer.ExecRunner{Stdout: childOut, Stderr: os.Stderr}

	opts := installer.Options{
		Runner: runner,
		Out:    progressOut,
		DryRun: args.DryRun,
	}

	if !cfg.Install.SkipWordlists {
		repos, err := wordlist.ReposFromConfig(cfg)
		if err != nil {
			return installer.Options{}, err
		}
		opts.Wordlists = wordlist.NewFetcher(repos, runner, progressOut, args.DryRun)
	}

	return opts, nil
}

// printInstallBanner shows what the run is about to touch.
func printInstallBanner(cfg *config.Config, platform *detect.Platform, tools []manifest.Tool, dryRun bool) {
	fmt.Println(TitleStyle.Render("reconrig install"))

	toolsDir, err := cfg.ResolvedToolsDir()
	if err != nil {
		toolsDir = cfg.Install.ToolsDir
	}

	fmt.Printf("%s%s\n", RenderLabel("Platform:"), ValueStyle.Render(platform.String()))
	fmt.Printf("%s%s\n", RenderLabel("Tools dir:"), ValueStyle.Render(toolsDir))
	fmt.Printf("%s%s\n", RenderLabel("Manifest:"), ValueStyle.Render(fmt.Sprintf("%d tool(s)", len(tools))))

	if dryRun {
		fmt.Println()
		fmt.Println(WarningStyle.Render("Dry run: describing actions without executing them"))
	}
	fmt.Println()
}

// printInstallSummary renders the post-run table and counts.
func printInstallSummary(engine *installer.Engine, run *report.Run) {
	fmt.Println()
	fmt.Println(report.SummaryTable(engine.Tools(), run.Results, engine.Lookup()))

	if extra := report.ExtraResults(run.Results, engine.Tools()); extra != "" {
		fmt.Println(extra)
	}

	fmt.Println(report.RenderCounts(run.Counts()))
	fmt.Printf("%s\n", DimStyle.Render(fmt.Sprintf("Completed in %s", formatDurationShort(run.Duration()))))

	if !run.DryRun {
		fmt.Println()
		fmt.Println(DimStyle.Render("Open a new shell (or run: source ~/.bashrc) to pick up PATH changes."))
		fmt.Println(DimStyle.Render("Next: reconrig guide"))
	}
}

// recordInstallHistory persists the run. History is an observer: any
// failure here is a warning, never an exit.
func recordInstallHistory(cfg *config.Config, run *report.Run, strict bool) {
	if run == nil || !cfg.History.Enabled {
		return
	}

	path, err := cfg.HistoryPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not resolve history path: %v\n", err)
		return
	}

	store, err := history.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open run history: %v\n", err)
		return
	}
	defer store.Close()

	if err := store.RecordRun(run, run.ExitCode(strict)); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not record run history: %v\n", err)
	}
}
