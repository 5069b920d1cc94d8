// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Tool presence display for reconrig.
//
// Command: status
// Short: Show which tools are present
// Aliases: s
//
// Resolves every manifest tool the same way the installer would (PATH
// first, then reconrig's bin directories) and reports presence without
// installing anything. Also shows whether the shell PATH wiring is in
// place.
//
// Flags:
//
//	--json   Machine-readable snapshot on stdout
//	--watch  Re-render when the bin directory changes (requires a TTY)
//
// Examples:
//
//	reconrig status
//	reconrig status --json | jq '.data.missing'
//	reconrig status --watch

package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/reconrig/internal/config"
	"github.com/jeranaias/reconrig/internal/detect"
	"github.com/jeranaias/reconrig/internal/installer"
	"github.com/jeranaias/reconrig/internal/manifest"
	"github.com/jeranaias/reconrig/internal/report"
)

// watchDebounce coalesces bursts of file events into one re-render.
const watchDebounce = 250 * time.Millisecond

// HandleStatus handles the "status" command.
func HandleStatus(args Args) error {
	if args.Watch && args.JSON {
		return NewValidationError("--watch", "", "cannot be combined with --json")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	platform := detect.Detect()
	tools := manifest.DefaultFor(platform.OS)

	if args.Watch {
		if err := RequiresTTY("watch status"); err != nil {
			return err
		}
		return watchStatus(cfg, platform, tools)
	}

	if args.JSON {
		return handleStatusJSON(cfg, platform, tools)
	}

	renderStatus(cfg, platform, tools)
	return nil
}

// snapshotStatus resolves every tool and the PATH wiring state without
// touching the machine.
func snapshotStatus(cfg *config.Config, platform *detect.Platform, tools []manifest.Tool) ([]report.Result, StatusEnvInfo) {
	engine := installer.New(cfg, platform, tools, installer.Options{Out: io.Discard})
	results := report.Snapshot(tools, engine.Lookup())

	envInfo := StatusEnvInfo{}
	if binDir, err := cfg.BinDir(); err == nil {
		envInfo.BinDir = binDir
	}
	if plan, err := engine.EnvPlan(); err == nil {
		if missing, err := plan.Missing(); err == nil {
			envInfo.Missing = missing
			envInfo.Wired = len(missing) == 0
		}
	}

	return results, envInfo
}

// handleStatusJSON outputs the snapshot in JSON format.
func handleStatusJSON(cfg *config.Config, platform *detect.Platform, tools []manifest.Tool) error {
	results, envInfo := snapshotStatus(cfg, platform, tools)

	present, missing := 0, 0
	for _, res := range results {
		if res.Status == report.StatusMissing {
			missing++
		} else {
			present++
		}
	}

	data := StatusData{
		Platform: StatusPlatformInfo{
			OS:         platform.OS,
			Arch:       platform.Arch,
			PkgManager: platform.PkgManager.String(),
			HasSnap:    platform.HasSnap,
			Privilege:  platform.Privilege.String(),
			Shell:      platform.Shell,
		},
		Tools:   results,
		Present: present,
		Missing: missing,
		Env:     envInfo,
	}

	return NewJSONResponse("status", data).Print()
}

// renderStatus prints the human-readable snapshot.
func renderStatus(cfg *config.Config, platform *detect.Platform, tools []manifest.Tool) {
	results, envInfo := snapshotStatus(cfg, platform, tools)

	fmt.Println(TitleStyle.Render("reconrig status"))

	fmt.Printf("%s%s\n", RenderLabel("Platform:"), ValueStyle.Render(platform.String()))
	if envInfo.BinDir != "" {
		fmt.Printf("%s%s\n", RenderLabel("Bin dir:"), ValueStyle.Render(envInfo.BinDir))
	}
	fmt.Printf("%s%s\n", RenderLabel("PATH wiring:"), renderWiring(envInfo))
	fmt.Println()

	engine := installer.New(cfg, platform, tools, installer.Options{Out: io.Discard})
	fmt.Println(report.SummaryTable(tools, results, engine.Lookup()))

	present, missing := 0, 0
	for _, res := range results {
		if res.Status == report.StatusMissing {
			missing++
		} else {
			present++
		}
	}

	counts := SuccessStyle.Render(fmt.Sprintf("%d present", present))
	if missing > 0 {
		counts += DimStyle.Render(" | ") + WarningStyle.Render(fmt.Sprintf("%d missing", missing))
	}
	fmt.Println(counts)

	if missing > 0 {
		fmt.Println()
		fmt.Println(DimStyle.Render("Run 'reconrig install' to provision missing tools."))
	}
}

// renderWiring summarizes the env plan reconciliation state.
func renderWiring(envInfo StatusEnvInfo) string {
	if envInfo.Wired {
		return SuccessStyle.Render("wired")
	}
	return WarningStyle.Render(fmt.Sprintf("%d line(s) missing", len(envInfo.Missing))) +
		DimStyle.Render(" (run: reconrig env apply)")
}

// watchStatus re-renders the snapshot whenever the bin directory
// changes. Useful in a second terminal while an install runs.
func watchStatus(cfg *config.Config, platform *detect.Platform, tools []manifest.Tool) error {
	binDir, err := cfg.BinDir()
	if err != nil {
		return err
	}
	// The watch target must exist before fsnotify can attach to it.
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("create bin dir for watching: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(binDir); err != nil {
		return fmt.Errorf("watch %s: %w", binDir, err)
	}

	render := func() {
		// Clear screen and home the cursor between renders.
		fmt.Print("\033[2J\033[H")
		renderStatus(cfg, platform, tools)
		fmt.Println()
		fmt.Println(RenderSeparatorAdaptive())
		fmt.Println(DimStyle.Render(fmt.Sprintf("Watching %s - press Ctrl-C to stop", binDir)))
	}
	render()

	var rerender <-chan time.Time
	for {
		select {
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			rerender = time.After(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			StderrPrint("warning: watch error: %v\n", err)

		case <-rerender:
			rerender = nil
			render()
		}
	}
}
