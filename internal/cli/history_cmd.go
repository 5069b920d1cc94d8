// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command: history
// Short: list recorded provisioning runs
// Aliases: hist
//
// Subcommands:
//
//	(none)     list recent runs, newest first
//	show <id>  print one run's full per-tool results; a unique id
//	           prefix is enough
//
// Flags:
//
//	--limit N  number of runs to list (default 20)
//	--json     machine-readable output
//
// Runs are journaled by install unless history.enabled is false. The
// journal lives in a local SQLite file; it is never required for an
// install to succeed.
//
// Examples:
//
//	reconrig history
//	reconrig history --limit 5
//	reconrig history show a1b2c3d4
package cli

import (
	"errors"
	"fmt"

	"github.com/jeranaias/reconrig/internal/config"
	"github.com/jeranaias/reconrig/internal/history"
	"github.com/jeranaias/reconrig/internal/report"
	"github.com/jeranaias/reconrig/internal/util"
)

// HandleHistory lists journaled runs or shows one in full.
func HandleHistory(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		return err
	}

	parser := NewArgParser(args.Raw)
	sub := parser.Subcommand()

	switch sub {
	case "show":
		id := parser.Positional(1)
		if id == "" {
			return NewValidationErrorWithExample("run id", "",
				"history show needs a run id or unique prefix",
				"reconrig history show a1b2c3d4")
		}
		return historyShow(path, id, args)
	case "", "list":
		limit := parser.FlagIntOrDefault("limit", 20)
		return historyList(cfg, path, limit, args)
	default:
		return NewValidationErrorWithExample("subcommand", sub,
			"must be one of: list, show", "reconrig history show a1b2c3d4")
	}
}

// historyList prints the most recent runs.
func historyList(cfg *config.Config, path string, limit int, args Args) error {
	if !util.FileExists(path) {
		if args.JSON {
			return NewJSONResponse("history", []history.RunSummary{}).Print()
		}
		fmt.Println("No runs recorded yet.")
		if !cfg.History.Enabled {
			fmt.Println(DimStyle.Render("Run history is disabled (history.enabled = false)."))
		} else {
			fmt.Printf("Run %s to record one.\n", HighlightStyle.Render("reconrig install"))
		}
		return nil
	}

	store, err := history.Open(path)
	if err != nil {
		return WrapError(err, "opening run journal")
	}
	defer store.Close()

	summaries, err := store.ListRuns(limit)
	if err != nil {
		return WrapError(err, "listing runs")
	}

	if args.JSON {
		return NewJSONResponse("history", summaries).Print()
	}

	if len(summaries) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	fmt.Println(TitleStyle.Render("reconrig history"))
	fmt.Printf("%s %s\n\n", LabelStyle.Render("Journal:"), DimStyle.Render(path))

	for _, sum := range summaries {
		fmt.Println(renderRunSummary(sum))
	}
	fmt.Println()
	fmt.Printf("%d run(s). Use %s for per-tool results.\n",
		len(summaries), HighlightStyle.Render("reconrig history show <id>"))
	return nil
}

// renderRunSummary renders one journal row: short id, start time,
// duration, exit code, tallies, and any fatal step.
func renderRunSummary(sum history.RunSummary) string {
	exit := SuccessStyle.Render("exit 0")
	if sum.ExitCode != 0 {
		exit = ErrorStyle.Render(fmt.Sprintf("exit %d", sum.ExitCode))
	}

	row := fmt.Sprintf("  %s  %s  %-8s  %s  %s",
		HighlightStyle.Render(shortRunID(sum.ID)),
		formatTimestamp(sum.StartedAt),
		formatDurationShort(sum.FinishedAt.Sub(sum.StartedAt)),
		exit,
		report.RenderCounts(sum.Counts))

	if sum.DryRun {
		row += " " + DimStyle.Render("(dry run)")
	}
	if sum.Fatal != "" {
		row += " " + ErrorStyle.Render("(fatal: "+sum.Fatal+")")
	}
	return row
}

// historyShow prints one run in full.
func historyShow(path, id string, args Args) error {
	if !util.FileExists(path) {
		return NewNotFoundError("run", id)
	}

	store, err := history.Open(path)
	if err != nil {
		return WrapError(err, "opening run journal")
	}
	defer store.Close()

	run, exitCode, err := store.GetRun(id)
	if err != nil {
		switch {
		case errors.Is(err, history.ErrNotFound):
			return NewNotFoundError("run", id)
		case errors.Is(err, history.ErrAmbiguous):
			return NewValidationErrorWithExample("run id", id,
				"prefix matches more than one run; use more characters",
				"reconrig history show a1b2c3d4")
		default:
			return WrapError(err, "loading run")
		}
	}

	if args.JSON {
		return NewJSONResponse("history show", HistoryRunData{Run: run, ExitCode: exitCode}).Print()
	}

	fmt.Println(TitleStyle.Render("Run " + run.ID))
	fmt.Printf("%s %s\n", LabelStyle.Render("Platform:"), ValueStyle.Render(run.Platform))
	fmt.Printf("%s %s\n", LabelStyle.Render("Started:"), ValueStyle.Render(formatTimestamp(run.StartedAt)))
	fmt.Printf("%s %s\n", LabelStyle.Render("Duration:"), ValueStyle.Render(formatDurationShort(run.Duration())))
	if run.DryRun {
		fmt.Printf("%s %s\n", LabelStyle.Render("Mode:"), WarningStyle.Render("dry run"))
	}
	if exitCode == 0 {
		fmt.Printf("%s %s\n", LabelStyle.Render("Exit code:"), SuccessStyle.Render("0"))
	} else {
		fmt.Printf("%s %s\n", LabelStyle.Render("Exit code:"), ErrorStyle.Render(fmt.Sprintf("%d", exitCode)))
	}
	if run.Fatal != "" {
		fmt.Printf("%s %s\n", LabelStyle.Render("Fatal:"), ErrorStyle.Render(run.Fatal))
	}

	nameWidth := 0
	for _, r := range run.Results {
		if w := util.StringWidth(r.Tool); w > nameWidth {
			nameWidth = w
		}
	}
	nameWidth += 2

	fmt.Println()
	for _, r := range run.Results {
		fmt.Println(r.Render(nameWidth))
	}
	fmt.Println()
	fmt.Println(report.RenderCounts(run.Counts()))
	return nil
}

// shortRunID truncates a run id for list rows.
func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
