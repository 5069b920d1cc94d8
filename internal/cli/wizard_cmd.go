// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// wizard_cmd.go - The interactive setup wizard, reconrig's default
// command.
//
// Command: wizard (also the bare `reconrig` invocation)
//
// The wizard walks welcome, preflight checks, plan review, install,
// and summary screens. It needs an interactive terminal; pipes, CI,
// and --json invocations fall back to the help text so scripts never
// hang on a full-screen program.
//
// Examples:
//
//	reconrig
//	reconrig wizard

package cli

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/reconrig/internal/wizard"
)

// HandleWizard runs the interactive setup wizard.
func HandleWizard(args Args) error {
	if !IsTTY() || args.JSON {
		PrintUsage()
		return nil
	}

	p := tea.NewProgram(wizard.New(), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return WrapError(err, "running setup wizard")
	}

	// The wizard's run carries the same exit policy as `reconrig
	// install`: fatal bootstrap errors exit 1.
	if m, ok := final.(*wizard.Model); ok {
		if code := m.ExitCode(); code != 0 {
			os.Exit(code)
		}
	}
	return nil
}

// HandleWizardCommand handles the default wizard command.
func HandleWizardCommand(args Args) {
	if err := HandleWizard(args); err != nil {
		HandleErrorAndExit(err, args.JSON)
	}
}
