// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/jeranaias/reconrig/internal/manifest"
	"github.com/jeranaias/reconrig/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	summaryTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")) // Blue

	statusOKStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")). // Green
			Bold(true)

	statusPresentStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")) // Green, not bold

	statusSkipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")) // Gray

	statusWarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Orange

	statusFailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")) // Light gray

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")) // Medium gray
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the outcome of one install step.
type Status int

const (
	// StatusInstalled means this run delivered the tool.
	StatusInstalled Status = iota
	// StatusPresent means the tool was already installed, so the step
	// was a no-op.
	StatusPresent
	// StatusSkipped means the step did not run (dry run, --only filter,
	// or skip flag).
	StatusSkipped
	// StatusFailed means the installer ran and returned an error.
	StatusFailed
	// StatusMissing means the binary is absent. Missing is a statement
	// about the workstation, not this run; by default it does not fail
	// the exit code.
	StatusMissing
)

// String returns the status name stored in JSON output and history.
func (s Status) String() string {
	switch s {
	case StatusInstalled:
		return "installed"
	case StatusPresent:
		return "present"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	case StatusMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// MarshalJSON emits the status name so JSON consumers see "installed"
// rather than an enum ordinal.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts a status name.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*s = ParseStatus(name)
	return nil
}

// ParseStatus converts a status name back to its Status, for rows read
// from history.
func ParseStatus(s string) Status {
	switch s {
	case "installed":
		return StatusInstalled
	case "present":
		return StatusPresent
	case "skipped":
		return StatusSkipped
	case "failed":
		return StatusFailed
	default:
		return StatusMissing
	}
}

// symbolWidth keeps the symbol column aligned; "[MISSING]" is the
// widest marker.
const symbolWidth = 9

// Symbol returns the color-coded status marker for terminal output.
func (s Status) Symbol() string {
	switch s {
	case StatusInstalled:
		return statusOKStyle.Render(util.PadWidth("[OK]", symbolWidth))
	case StatusPresent:
		return statusPresentStyle.Render(util.PadWidth("[OK]", symbolWidth))
	case StatusSkipped:
		return statusSkipStyle.Render(util.PadWidth("[--]", symbolWidth))
	case StatusFailed:
		return statusFailStyle.Render(util.PadWidth("[FAIL]", symbolWidth))
	case StatusMissing:
		return statusWarnStyle.Render(util.PadWidth("[MISSING]", symbolWidth))
	default:
		return util.PadWidth("[??]", symbolWidth)
	}
}

// =============================================================================
// RESULT
// =============================================================================

// MissingSentinel is printed in place of a path for absent binaries.
const MissingSentinel = "MISSING"

// Result records the outcome of one step: a tool install, a wordlist
// sync, or any other per-item action collected during a run.
type Result struct {
	Tool     string        `json:"tool"`
	Kind     string        `json:"kind"`
	Status   Status        `json:"status"`
	Path     string        `json:"path,omitempty"`
	Detail   string        `json:"detail,omitempty"`
	Err      string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// Failed reports whether this step errored.
func (r Result) Failed() bool {
	return r.Status == StatusFailed
}

// Render returns a one-line summary row for the result.
func (r Result) Render(nameWidth int) string {
	location := r.Path
	if location == "" {
		location = MissingSentinel
	}

	var styled string
	if r.Path != "" {
		styled = pathStyle.Render(location)
	} else {
		styled = statusWarnStyle.Render(location)
	}

	row := fmt.Sprintf("  %s %s %s", r.Status.Symbol(), util.PadWidth(r.Tool, nameWidth), styled)

	note := r.Detail
	if r.Err != "" {
		note = r.Err
	}
	if note != "" {
		row += " " + detailStyle.Render("("+util.TruncateRunes(note, 60)+")")
	}
	return row
}

// =============================================================================
// RUN
// =============================================================================

// Run collects every result of one reconrig invocation. The exit code
// is decided once, from the collected results, after all steps have had
// their chance to run.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Platform   string    `json:"platform"`
	DryRun     bool      `json:"dry_run,omitempty"`
	Results    []Result  `json:"results"`
	Fatal      string    `json:"fatal,omitempty"`
}

// NewRun starts a run record for the given platform description.
func NewRun(platform string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Platform:  platform,
	}
}

// Add appends a result to the run.
func (run *Run) Add(res Result) {
	run.Results = append(run.Results, res)
}

// Finish stamps the end time.
func (run *Run) Finish() {
	run.FinishedAt = time.Now().UTC()
}

// Duration returns the elapsed wall time of the run.
func (run *Run) Duration() time.Duration {
	end := run.FinishedAt
	if end.IsZero() {
		end = time.Now().UTC()
	}
	return end.Sub(run.StartedAt)
}

// Counts tallies results by status.
type Counts struct {
	Installed int `json:"installed"`
	Present   int `json:"present"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Missing   int `json:"missing"`
}

// Counts tallies the run's results by status.
func (run *Run) Counts() Counts {
	return CountResults(run.Results)
}

// CountResults tallies a result slice by status. Standalone syncs use
// this directly; runs go through Run.Counts.
func CountResults(results []Result) Counts {
	var c Counts
	for _, r := range results {
		switch r.Status {
		case StatusInstalled:
			c.Installed++
		case StatusPresent:
			c.Present++
		case StatusSkipped:
			c.Skipped++
		case StatusFailed:
			c.Failed++
		case StatusMissing:
			c.Missing++
		}
	}
	return c
}

// FailedResults returns the results that errored, for strict-mode
// reporting.
func (run *Run) FailedResults() []Result {
	var failed []Result
	for _, r := range run.Results {
		if r.Failed() {
			failed = append(failed, r)
		}
	}
	return failed
}

// ExitCode decides the process exit code from the collected results.
// A fatal bootstrap error always exits 1. Per-tool failures and missing
// binaries exit 0 by default so a mostly-working workstation is not
// reported as a failed provision; strict mode turns them into exit 1.
func (run *Run) ExitCode(strict bool) int {
	if run.Fatal != "" {
		return 1
	}
	if strict {
		c := run.Counts()
		if c.Failed > 0 || c.Missing > 0 {
			return 1
		}
	}
	return 0
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Lookup resolves a binary name to its path, reporting whether it was
// found. Injected so status checks are testable without a real PATH.
type Lookup func(binary string) (string, bool)

// Snapshot resolves every manifest tool against the lookup and returns
// one result per tool, present or missing, in table order.
func Snapshot(tools []manifest.Tool, lookup Lookup) []Result {
	results := make([]Result, 0, len(tools))
	for _, t := range tools {
		res := Result{Tool: t.Name, Kind: t.Kind.String()}
		if path, ok := lookup(t.Binary); ok {
			res.Status = StatusPresent
			res.Path = path
		} else {
			res.Status = StatusMissing
		}
		results = append(results, res)
	}
	return results
}

// =============================================================================
// SUMMARY RENDERING
// =============================================================================

// SummaryTable renders the end-of-run table with exactly one row per
// manifest tool, in manifest order. Tools without a result this run
// (filtered out by --only) are resolved live so the table always
// answers "what is on this box now".
func SummaryTable(tools []manifest.Tool, results []Result, lookup Lookup) string {
	byName := make(map[string]Result, len(results))
	for _, r := range results {
		byName[r.Tool] = r
	}

	nameWidth := 0
	for _, t := range tools {
		if w := util.StringWidth(t.Name); w > nameWidth {
			nameWidth = w
		}
	}
	nameWidth += 2

	var b strings.Builder
	b.WriteString(summaryTitleStyle.Render("Tool Summary"))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", 41))
	b.WriteString("\n")

	for _, t := range tools {
		res, ok := byName[t.Name]
		if !ok {
			// Not touched this run; report live state.
			res = Snapshot([]manifest.Tool{t}, lookup)[0]
		}
		b.WriteString(res.Render(nameWidth))
		b.WriteString("\n")
	}

	return b.String()
}

// ExtraResults renders rows for results outside the manifest table,
// such as wordlist syncs.
func ExtraResults(results []Result, tools []manifest.Tool) string {
	inTable := make(map[string]bool, len(tools))
	for _, t := range tools {
		inTable[t.Name] = true
	}

	nameWidth := 0
	var extras []Result
	for _, r := range results {
		if inTable[r.Tool] {
			continue
		}
		extras = append(extras, r)
		if w := util.StringWidth(r.Tool); w > nameWidth {
			nameWidth = w
		}
	}
	if len(extras) == 0 {
		return ""
	}
	nameWidth += 2

	var b strings.Builder
	for _, r := range extras {
		b.WriteString(r.Render(nameWidth))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderCounts renders the one-line tally shown under the summary
// table.
func RenderCounts(c Counts) string {
	parts := []string{
		statusOKStyle.Render(fmt.Sprintf("%d installed", c.Installed)),
		statusPresentStyle.Render(fmt.Sprintf("%d present", c.Present)),
	}
	if c.Skipped > 0 {
		parts = append(parts, statusSkipStyle.Render(fmt.Sprintf("%d skipped", c.Skipped)))
	}
	if c.Failed > 0 {
		parts = append(parts, statusFailStyle.Render(fmt.Sprintf("%d failed", c.Failed)))
	}
	if c.Missing > 0 {
		parts = append(parts, statusWarnStyle.Render(fmt.Sprintf("%d missing", c.Missing)))
	}
	return strings.Join(parts, detailStyle.Render(" | "))
}
