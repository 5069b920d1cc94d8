// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command: env
// Short: inspect and apply shell PATH wiring
//
// Subcommands:
//
//	show   print the export lines and rc files the plan manages (default)
//	apply  append missing export lines to the managed rc files
//	path   print the directories the plan puts on PATH, one per line
//
// The plan is computed fresh each invocation, so show always reflects
// the current config and host state. Apply is idempotent: lines already
// present in an rc file are never duplicated.
//
// Examples:
//
//	reconrig env
//	reconrig env apply --yes
//	reconrig env path
//	reconrig env show --json
package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/jeranaias/reconrig/internal/config"
	"github.com/jeranaias/reconrig/internal/detect"
	"github.com/jeranaias/reconrig/internal/env"
	"github.com/jeranaias/reconrig/internal/util"
)

// HandleEnv dispatches the env subcommands.
func HandleEnv(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	platform := detect.Detect()
	plan, err := env.BuildPlan(cfg, platform)
	if err != nil {
		return WrapError(err, "building environment plan")
	}

	switch args.Subcommand {
	case "show", "":
		return envShow(plan, args)
	case "apply":
		return envApply(plan, args)
	case "path":
		return envPath(plan, args)
	default:
		return NewValidationErrorWithExample("subcommand", args.Subcommand,
			"must be one of: show, apply, path", "reconrig env apply")
	}
}

// envShow prints the plan: export lines, managed rc files, and which
// lines are still missing from all of them.
func envShow(plan env.Plan, args Args) error {
	missing, err := plan.Missing()
	if err != nil {
		return WrapError(err, "checking rc files")
	}

	if args.JSON {
		data := EnvData{
			Lines:   plan.Lines(),
			RCFiles: plan.RCFiles,
			Missing: missing,
		}
		return NewJSONResponse("env show", data).Print()
	}

	fmt.Println(TitleStyle.Render("reconrig env"))

	fmt.Println(SectionStyle.Render("Export lines"))
	for _, line := range plan.Lines() {
		fmt.Printf("  %s\n", highlightShellLine(line))
	}

	fmt.Println(SectionStyle.Render("Managed rc files"))
	for _, rc := range plan.RCFiles {
		note := ""
		if !util.FileExists(rc) {
			note = DimStyle.Render(" (will be created)")
		}
		fmt.Printf("  %s%s\n", ValueStyle.Render(rc), note)
	}

	fmt.Println()
	if len(missing) == 0 {
		fmt.Printf("%s all export lines are wired\n", SuccessStyle.Render("[OK]"))
	} else {
		fmt.Printf("%s %d line(s) missing\n", WarningStyle.Render("[WARN]"), len(missing))
		for _, line := range missing {
			fmt.Printf("  %s\n", DimStyle.Render(line))
		}
		fmt.Printf("\nRun %s to wire them.\n", HighlightStyle.Render("reconrig env apply"))
	}
	return nil
}

// envApply reconciles the rc files with the plan.
func envApply(plan env.Plan, args Args) error {
	missing, err := plan.Missing()
	if err != nil {
		return WrapError(err, "checking rc files")
	}

	if len(missing) == 0 {
		if args.JSON {
			data := EnvData{Lines: plan.Lines(), RCFiles: plan.RCFiles}
			return NewJSONResponse("env apply", data).Print()
		}
		fmt.Printf("%s PATH wiring already up to date.\n", SuccessStyle.Render("[OK]"))
		return nil
	}

	details := map[string]string{
		"Lines to add": fmt.Sprintf("%d", len(missing)),
		"RC files":     strings.Join(plan.RCFiles, ", "),
	}
	confirmed, err := RequireConfirmationWithDetails(args.Yes,
		"append PATH export lines to your shell rc files", details, args.JSON)
	if err != nil {
		return err
	}
	if !confirmed {
		ShowCancellationMessage()
		return nil
	}

	changes, err := plan.Reconcile()
	if err != nil {
		return WrapError(err, "updating rc files")
	}

	if args.JSON {
		out := make([]EnvFileChange, 0, len(changes))
		for _, c := range changes {
			out = append(out, EnvFileChange{Path: c.Path, Added: c.Added, Created: c.Created})
		}
		return NewJSONResponse("env apply", out).Print()
	}

	for _, c := range changes {
		switch {
		case c.Created:
			fmt.Printf("%s created %s with %d line(s)\n",
				SuccessStyle.Render("[OK]"), c.Path, len(c.Added))
		case len(c.Added) > 0:
			fmt.Printf("%s appended %d line(s) to %s\n",
				SuccessStyle.Render("[OK]"), len(c.Added), c.Path)
		default:
			fmt.Printf("%s %s already up to date\n", DimStyle.Render("[--]"), c.Path)
		}
	}
	fmt.Printf("\nOpen a new shell (or run: %s) to pick up the changes.\n",
		HighlightStyle.Render("source "+firstRCFile(plan)))
	return nil
}

// envPath prints the plan's directories one per line so the output can
// feed scripts, e.g. PATH="$PATH:$(reconrig env path | paste -sd:)".
func envPath(plan env.Plan, args Args) error {
	if args.JSON {
		dirs := make([]string, 0, len(plan.Entries))
		for _, e := range plan.Entries {
			dirs = append(dirs, e.Dir)
		}
		return NewJSONResponse("env path", dirs).Print()
	}
	for _, e := range plan.Entries {
		fmt.Println(e.Dir)
	}
	return nil
}

// firstRCFile returns the first managed rc file for the source hint.
func firstRCFile(plan env.Plan) string {
	if len(plan.RCFiles) > 0 {
		return plan.RCFiles[0]
	}
	return "~/.bashrc"
}

// highlightShellLine syntax-highlights one shell line for the terminal.
// Returns the line unchanged when colors are off or highlighting fails.
func highlightShellLine(line string) string {
	if !ColorsEnabled() {
		return line
	}

	lexer := lexers.Get("bash")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return line
	}
	return strings.TrimRight(buf.String(), "\n")
}
