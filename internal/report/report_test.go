// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package report

import (
	"strings"
	"testing"

	"github.com/jeranaias/reconrig/internal/manifest"
)

func testLookup(present map[string]string) Lookup {
	return func(binary string) (string, bool) {
		path, ok := present[binary]
		return path, ok
	}
}

// =============================================================================
// STATUS TESTS
// =============================================================================

func TestStatus_StringRoundTrip(t *testing.T) {
	statuses := []Status{StatusInstalled, StatusPresent, StatusSkipped, StatusFailed, StatusMissing}
	for _, s := range statuses {
		if got := ParseStatus(s.String()); got != s {
			t.Errorf("ParseStatus(%q) = %v, want %v", s.String(), got, s)
		}
	}
}

func TestStatus_UnknownParsesAsMissing(t *testing.T) {
	if got := ParseStatus("exploded"); got != StatusMissing {
		t.Errorf("ParseStatus(unknown) = %v, want StatusMissing", got)
	}
}

// =============================================================================
// EXIT CODE POLICY TESTS
// =============================================================================

func TestExitCode_DefaultZeroDespiteFailures(t *testing.T) {
	run := NewRun("linux/amd64")
	run.Add(Result{Tool: "ffuf", Status: StatusInstalled})
	run.Add(Result{Tool: "wappalyzer", Status: StatusFailed, Err: "npm exploded"})
	run.Add(Result{Tool: "amass", Status: StatusMissing})

	if got := run.ExitCode(false); got != 0 {
		t.Errorf("ExitCode(strict=false) = %d, want 0: missing tools must not fail the run", got)
	}
}

func TestExitCode_StrictRaisesOnFailure(t *testing.T) {
	run := NewRun("linux/amd64")
	run.Add(Result{Tool: "ffuf", Status: StatusInstalled})
	run.Add(Result{Tool: "wappalyzer", Status: StatusFailed})

	if got := run.ExitCode(true); got != 1 {
		t.Errorf("ExitCode(strict=true) = %d, want 1", got)
	}
}

func TestExitCode_StrictRaisesOnMissing(t *testing.T) {
	run := NewRun("linux/amd64")
	run.Add(Result{Tool: "amass", Status: StatusMissing})

	if got := run.ExitCode(true); got != 1 {
		t.Errorf("ExitCode(strict=true) = %d, want 1 for missing tools", got)
	}
}

func TestExitCode_StrictCleanRunIsZero(t *testing.T) {
	run := NewRun("linux/amd64")
	run.Add(Result{Tool: "ffuf", Status: StatusInstalled})
	run.Add(Result{Tool: "anew", Status: StatusPresent})
	run.Add(Result{Tool: "shodan", Status: StatusSkipped})

	if got := run.ExitCode(true); got != 0 {
		t.Errorf("ExitCode(strict=true) = %d, want 0 for a clean run", got)
	}
}

func TestExitCode_FatalAlwaysOne(t *testing.T) {
	run := NewRun("linux/amd64")
	run.Fatal = "no package manager found"

	if got := run.ExitCode(false); got != 1 {
		t.Errorf("ExitCode with fatal = %d, want 1", got)
	}
	if got := run.ExitCode(true); got != 1 {
		t.Errorf("ExitCode with fatal (strict) = %d, want 1", got)
	}
}

// =============================================================================
// RUN TESTS
// =============================================================================

func TestNewRun_HasIdentity(t *testing.T) {
	run := NewRun("linux/amd64")
	if run.ID == "" {
		t.Error("run should get a generated ID")
	}
	if run.StartedAt.IsZero() {
		t.Error("run should get a start time")
	}
	if NewRun("linux/amd64").ID == run.ID {
		t.Error("two runs should not share an ID")
	}
}

func TestCounts(t *testing.T) {
	run := NewRun("linux/amd64")
	run.Add(Result{Status: StatusInstalled})
	run.Add(Result{Status: StatusInstalled})
	run.Add(Result{Status: StatusPresent})
	run.Add(Result{Status: StatusSkipped})
	run.Add(Result{Status: StatusFailed})
	run.Add(Result{Status: StatusMissing})

	c := run.Counts()
	if c.Installed != 2 || c.Present != 1 || c.Skipped != 1 || c.Failed != 1 || c.Missing != 1 {
		t.Errorf("Counts = %+v, want 2/1/1/1/1", c)
	}
}

func TestFailedResults(t *testing.T) {
	run := NewRun("linux/amd64")
	run.Add(Result{Tool: "a", Status: StatusInstalled})
	run.Add(Result{Tool: "b", Status: StatusFailed})
	run.Add(Result{Tool: "c", Status: StatusFailed})

	failed := run.FailedResults()
	if len(failed) != 2 {
		t.Fatalf("FailedResults = %d entries, want 2", len(failed))
	}
	if failed[0].Tool != "b" || failed[1].Tool != "c" {
		t.Errorf("FailedResults = %v, want b and c in order", failed)
	}
}

// =============================================================================
// SNAPSHOT TESTS
// =============================================================================

func TestSnapshot(t *testing.T) {
	tools := manifest.DefaultFor("linux")
	lookup := testLookup(map[string]string{
		"ffuf":   "/home/op/tools/bin/ffuf",
		"nuclei": "/home/op/tools/bin/nuclei",
	})

	results := Snapshot(tools, lookup)
	if len(results) != len(tools) {
		t.Fatalf("Snapshot = %d results, want one per tool (%d)", len(results), len(tools))
	}

	byName := make(map[string]Result)
	for _, r := range results {
		byName[r.Tool] = r
	}

	if byName["ffuf"].Status != StatusPresent || byName["ffuf"].Path == "" {
		t.Errorf("ffuf = %+v, want present with path", byName["ffuf"])
	}
	if byName["amass"].Status != StatusMissing {
		t.Errorf("amass = %+v, want missing", byName["amass"])
	}
}

// =============================================================================
// SUMMARY RENDERING TESTS
// =============================================================================

func TestSummaryTable_OneRowPerManifestTool(t *testing.T) {
	tools := manifest.DefaultFor("linux")

	// Results cover only two tools, as with --only; the table must
	// still show all eleven.
	results := []Result{
		{Tool: "ffuf", Status: StatusInstalled, Path: "/t/bin/ffuf"},
		{Tool: "nuclei", Status: StatusFailed, Err: "boom"},
	}

	out := SummaryTable(tools, results, testLookup(nil))
	for _, tool := range manifest.Names(tools) {
		if !strings.Contains(out, tool) {
			t.Errorf("summary missing row for %s", tool)
		}
	}
}

func TestSummaryTable_MissingSentinel(t *testing.T) {
	tools := manifest.DefaultFor("linux")
	out := SummaryTable(tools, nil, testLookup(nil))

	if !strings.Contains(out, MissingSentinel) {
		t.Errorf("summary with nothing installed should print %q", MissingSentinel)
	}
}

func TestSummaryTable_ShowsResolvedPaths(t *testing.T) {
	tools := manifest.DefaultFor("linux")
	lookup := testLookup(map[string]string{"anew": "/home/op/tools/bin/anew"})

	out := SummaryTable(tools, nil, lookup)
	if !strings.Contains(out, "/home/op/tools/bin/anew") {
		t.Error("summary should show the resolved path for present tools")
	}
}

func TestExtraResults_OnlyNonManifestRows(t *testing.T) {
	tools := manifest.DefaultFor("linux")
	results := []Result{
		{Tool: "ffuf", Status: StatusInstalled, Path: "/t/bin/ffuf"},
		{Tool: "OneListForAll", Kind: "git", Status: StatusInstalled, Path: "/t/src/OneListForAll"},
	}

	out := ExtraResults(results, tools)
	if strings.Contains(out, "ffuf") {
		t.Error("manifest tools should not repeat in extras")
	}
	if !strings.Contains(out, "OneListForAll") {
		t.Error("wordlist sync should appear in extras")
	}
}

func TestRenderCounts(t *testing.T) {
	out := RenderCounts(Counts{Installed: 3, Present: 7, Failed: 1})
	for _, want := range []string{"3 installed", "7 present", "1 failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderCounts = %q, want %q", out, want)
		}
	}
	if strings.Contains(out, "skipped") {
		t.Error("zero skipped should not render")
	}
}

func TestResult_Render(t *testing.T) {
	res := Result{Tool: "shodan", Kind: "pip", Status: StatusFailed, Err: "pip3 not found"}
	out := res.Render(12)

	if !strings.Contains(out, "shodan") {
		t.Error("row should name the tool")
	}
	if !strings.Contains(out, MissingSentinel) {
		t.Error("row without a path should carry the MISSING sentinel")
	}
	if !strings.Contains(out, "pip3 not found") {
		t.Error("row should carry the error detail")
	}
}
