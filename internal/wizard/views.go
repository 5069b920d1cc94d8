// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package wizard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/reconrig/internal/report"
	"github.com/jeranaias/reconrig/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

// The palette matches the plain CLI commands so the wizard and the
// command output read as one program.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(1, 2)
)

// =============================================================================
// ASCII ART
// =============================================================================

const logo = `
    ██████╗ ███████╗ ██████╗ ██████╗ ███╗   ██╗██████╗ ██╗ ██████╗
    ██╔══██╗██╔════╝██╔════╝██╔═══██╗████╗  ██║██╔══██╗██║██╔════╝
    ██████╔╝█████╗  ██║     ██║   ██║██╔██╗ ██║██████╔╝██║██║  ███╗
    ██╔══██╗██╔══╝  ██║     ██║   ██║██║╚██╗██║██╔══██╗██║██║   ██║
    ██║  ██║███████╗╚██████╗╚██████╔╝██║ ╚████║██║  ██║██║╚██████╔╝
    ╚═╝  ╚═╝╚══════╝ ╚═════╝ ╚═════╝ ╚═╝  ╚═══╝╚═╝  ╚═╝╚═╝ ╚═════╝
`

const tagline = "From fresh VM to recon-ready in one run"

// =============================================================================
// VIEW
// =============================================================================

// View renders the current phase.
func (m *Model) View() string {
	switch m.phase {
	case PhaseWelcome:
		return m.viewWelcome()
	case PhaseChecks:
		return m.viewChecks()
	case PhasePlan:
		return m.viewPlan()
	case PhaseInstall:
		return m.viewInstall()
	case PhaseSummary:
		return m.viewSummary()
	}
	return ""
}

func (m *Model) viewWelcome() string {
	var s strings.Builder

	logoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	s.WriteString(logoStyle.Render(logo))
	s.WriteString("\n")
	s.WriteString(subtitleStyle.Render("    " + tagline))
	s.WriteString("\n\n")

	welcomeText := `
Welcome to the reconrig setup wizard!

This wizard will:

  * Check that this machine is provisionable
  * Show you the install plan before touching anything
  * Install the package baseline and the Go/Node toolchains
  * Deliver the recon tool set and wordlists
  * Wire the new directories into your shell PATH

Safe to re-run: tools already present are left alone.
`
	s.WriteString(boxStyle.Render(welcomeText))
	s.WriteString("\n\n")

	s.WriteString(highlightStyle.Render("  Press ENTER to begin"))
	s.WriteString(dimStyle.Render("  |  Press Q to quit"))

	return m.center(s.String())
}

func (m *Model) viewChecks() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("  Preflight checks"))
	s.WriteString("\n\n")

	for idx, check := range m.checks {
		var icon, status string
		var style lipgloss.Style

		switch check.Status {
		case "checking":
			if idx == m.currentCheck {
				icon = m.spinner.View()
			} else {
				icon = "[ ]"
			}
			status = "Checking..."
			style = dimStyle
		case "pass":
			icon = "[OK]"
			status = check.Message
			style = successStyle
		case "fail":
			icon = "[FAIL]"
			status = check.Message
			style = errorStyle
		case "warn":
			icon = "[!!]"
			status = check.Message
			style = warningStyle
		}

		s.WriteString(fmt.Sprintf("  %s %s", style.Render(icon), check.Name))
		s.WriteString(dimStyle.Render(fmt.Sprintf(" - %s", status)))
		s.WriteString("\n")

		if check.Fix != "" && check.Status != "checking" && check.Status != "pass" {
			s.WriteString(dimStyle.Render(fmt.Sprintf("      -> %s", check.Fix)))
			s.WriteString("\n")
		}
	}

	s.WriteString("\n")

	if m.currentCheck >= len(m.checks) {
		if m.hasFailedCheck() {
			s.WriteString(warningStyle.Render("  Some checks need attention"))
			s.WriteString("\n\n")
			s.WriteString(highlightStyle.Render("  Press ENTER to continue anyway"))
		} else {
			s.WriteString(successStyle.Render("  All checks passed!"))
			s.WriteString("\n\n")
			s.WriteString(highlightStyle.Render("  Press ENTER to review the plan"))
		}
		s.WriteString(dimStyle.Render("  |  Press Q to quit"))
	}

	return m.center(s.String())
}

func (m *Model) viewPlan() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("  Install plan"))
	s.WriteString("\n\n")

	if m.planErr != "" {
		s.WriteString(fmt.Sprintf("  %s %s\n", errorStyle.Render("[FAIL]"), m.planErr))
		s.WriteString("\n")
		s.WriteString(highlightStyle.Render("  Press ENTER or Q to quit"))
		return m.center(s.String())
	}

	toolsDir, err := m.cfg.ResolvedToolsDir()
	if err != nil {
		toolsDir = m.cfg.Install.ToolsDir
	}

	s.WriteString(fmt.Sprintf("  %s %s\n", dimStyle.Render("Platform: "), m.platform.String()))
	s.WriteString(fmt.Sprintf("  %s %s\n", dimStyle.Render("Tools dir:"), toolsDir))
	s.WriteString("\n")

	nameWidth := 0
	for _, t := range m.tools {
		if w := util.StringWidth(t.Name); w > nameWidth {
			nameWidth = w
		}
	}

	for _, t := range m.tools {
		s.WriteString(fmt.Sprintf("    %s  %s\n",
			util.PadWidth(t.Name, nameWidth),
			dimStyle.Render(fmt.Sprintf("%-4s %s", t.Kind, t.Package))))
	}
	s.WriteString("\n")

	if m.cfg.Install.SkipWordlists || len(m.repos) == 0 {
		s.WriteString(fmt.Sprintf("  %s %s\n", dimStyle.Render("Wordlists:"), "skipped"))
	} else {
		names := make([]string, 0, len(m.repos))
		for _, repo := range m.repos {
			names = append(names, repo.Name)
		}
		s.WriteString(fmt.Sprintf("  %s %s\n", dimStyle.Render("Wordlists:"), strings.Join(names, ", ")))
	}

	if m.cfg.Env.Manage {
		s.WriteString(fmt.Sprintf("  %s %d export line(s) across %d rc file(s)\n",
			dimStyle.Render("Shell PATH:"), len(m.plan.Entries), len(m.plan.RCFiles)))
	} else {
		s.WriteString(fmt.Sprintf("  %s %s\n", dimStyle.Render("Shell PATH:"), "unmanaged (env.manage = false)"))
	}

	s.WriteString("\n")
	s.WriteString(highlightStyle.Render("  Press ENTER to install"))
	s.WriteString(dimStyle.Render("  |  Press Q to quit"))

	return m.center(s.String())
}

func (m *Model) viewInstall() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("  Provisioning"))
	s.WriteString("\n\n")

	for _, st := range m.stages {
		var icon string
		var style lipgloss.Style

		switch st.status {
		case "pending":
			icon, style = "[ ]", dimStyle
		case "running":
			icon, style = m.spinner.View(), highlightStyle
		case "done":
			icon, style = "[OK]", successStyle
		case "warn":
			icon, style = "[!!]", warningStyle
		case "failed":
			icon, style = "[FAIL]", errorStyle
		case "skipped":
			icon, style = "[--]", dimStyle
		}

		s.WriteString(fmt.Sprintf("  %s %s", style.Render(icon), st.name))
		if st.detail != "" {
			s.WriteString(dimStyle.Render(" - " + st.detail))
		}
		s.WriteString("\n")
	}

	s.WriteString("\n  ")
	s.WriteString(m.progress.View())
	s.WriteString("\n\n")

	// Tail of the result log; the stage list above carries the totals.
	if m.run != nil && len(m.run.Results) > 0 {
		start := len(m.run.Results) - 6
		if start < 0 {
			start = 0
		}
		nameWidth := m.resultNameWidth()
		for _, res := range m.run.Results[start:] {
			s.WriteString("  " + res.Render(nameWidth) + "\n")
		}
	}

	return m.center(s.String())
}

func (m *Model) viewSummary() string {
	var s strings.Builder

	if m.run.Fatal != "" {
		s.WriteString(titleStyle.Render("  Install failed"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("  %s %s\n", errorStyle.Render("[FAIL]"), m.run.Fatal))
		s.WriteString("\n")
		s.WriteString(dimStyle.Render("  Fix the problem and run the wizard again, or try: reconrig doctor"))
		s.WriteString("\n\n")
		s.WriteString(highlightStyle.Render("  Press ENTER to close"))
		return m.center(s.String())
	}

	s.WriteString(titleStyle.Render("  Workstation ready"))
	s.WriteString("\n\n")

	s.WriteString("  " + report.RenderCounts(m.run.Counts()))
	s.WriteString("\n")
	s.WriteString(dimStyle.Render("  Completed in " + formatDuration(m.run.Duration())))
	s.WriteString("\n")

	if failed := m.run.FailedResults(); len(failed) > 0 {
		s.WriteString("\n")
		nameWidth := m.resultNameWidth()
		for _, res := range failed {
			s.WriteString("  " + res.Render(nameWidth) + "\n")
		}
		s.WriteString(dimStyle.Render("  Failed tools can be retried with: reconrig install --only <name>"))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	if m.journalID != "" {
		s.WriteString(dimStyle.Render(fmt.Sprintf("  Run recorded: %.8s (reconrig history show %.8s)", m.journalID, m.journalID)))
		s.WriteString("\n")
	} else if m.journalErr != "" {
		s.WriteString(warningStyle.Render("  [!!] run not journaled: " + m.journalErr))
		s.WriteString("\n")
	}

	nextText := `
Next steps:

  1. Open a new shell (or run: source ~/.bashrc)
  2. reconrig status   - confirm every tool resolves
  3. reconrig guide    - the post-install quickstart
`
	s.WriteString(boxStyle.Render(nextText))
	s.WriteString("\n\n")
	s.WriteString(highlightStyle.Render("  Press ENTER to close"))

	return m.center(s.String())
}

// formatDuration renders elapsed wall time for the summary screen.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", m, s)
}

// resultNameWidth sizes the result rows' name column. "shell
// environment" is the widest name a run can contain.
func (m *Model) resultNameWidth() int {
	width := len("shell environment")
	for _, t := range m.tools {
		if len(t.Name) > width {
			width = len(t.Name)
		}
	}
	return width + 2
}

// center pads content down the screen for a rough vertical centering.
func (m *Model) center(content string) string {
	if m.width == 0 || m.height == 0 {
		return content
	}

	lines := strings.Split(content, "\n")
	topPadding := (m.height - len(lines)) / 3
	if topPadding < 0 {
		topPadding = 0
	}

	var s strings.Builder
	for i := 0; i < topPadding; i++ {
		s.WriteString("\n")
	}
	s.WriteString(content)

	return s.String()
}
