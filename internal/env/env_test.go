// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package env

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeranaias/reconrig/internal/config"
	"github.com/jeranaias/reconrig/internal/detect"
)

func testPlan(rcFiles ...string) Plan {
	return Plan{
		Entries: []PathEntry{
			{Dir: "/home/op/tools/bin", Label: "recon tools"},
			{Dir: "/home/op/tools/npm/bin", Label: "npm tools"},
		},
		RCFiles: rcFiles,
	}
}

// =============================================================================
// RECONCILE TESTS
// =============================================================================

func TestReconcile_AppendsMissingLines(t *testing.T) {
	rc := filepath.Join(t.TempDir(), ".bashrc")
	if err := os.WriteFile(rc, []byte("# my dotfile\nalias ll='ls -la'\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	plan := testPlan(rc)
	changes, err := plan.Reconcile()
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("changes = %d, want 1", len(changes))
	}
	if len(changes[0].Added) != 2 {
		t.Errorf("Added = %v, want both export lines", changes[0].Added)
	}

	content, _ := os.ReadFile(rc)
	for _, line := range plan.Lines() {
		if !strings.Contains(string(content), line) {
			t.Errorf("rc file missing line %q", line)
		}
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	rc := filepath.Join(t.TempDir(), ".bashrc")
	plan := testPlan(rc)

	if _, err := plan.Reconcile(); err != nil {
		t.Fatalf("first Reconcile failed: %v", err)
	}
	first, _ := os.ReadFile(rc)

	changes, err := plan.Reconcile()
	if err != nil {
		t.Fatalf("second Reconcile failed: %v", err)
	}
	if len(changes[0].Added) != 0 {
		t.Errorf("second run appended %v, want nothing", changes[0].Added)
	}

	second, _ := os.ReadFile(rc)
	if string(first) != string(second) {
		t.Error("second Reconcile changed the file")
	}
}

func TestReconcile_PreservesUserContent(t *testing.T) {
	rc := filepath.Join(t.TempDir(), ".zshrc")
	userContent := "# precious settings\nexport EDITOR=vim\nsource ~/.aliases\n"
	if err := os.WriteFile(rc, []byte(userContent), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	plan := testPlan(rc)
	if _, err := plan.Reconcile(); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	content, _ := os.ReadFile(rc)
	if !strings.HasPrefix(string(content), userContent) {
		t.Error("user content was not preserved byte-for-byte at the top of the file")
	}
}

func TestReconcile_CreatesMissingFile(t *testing.T) {
	rc := filepath.Join(t.TempDir(), ".bashrc")

	plan := testPlan(rc)
	changes, err := plan.Reconcile()
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if !changes[0].Created {
		t.Error("change should report the file as created")
	}
	if _, err := os.Stat(rc); err != nil {
		t.Errorf("rc file was not created: %v", err)
	}
}

func TestReconcile_NoTrailingNewline(t *testing.T) {
	rc := filepath.Join(t.TempDir(), ".bashrc")
	if err := os.WriteFile(rc, []byte("export EDITOR=vim"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	plan := testPlan(rc)
	if _, err := plan.Reconcile(); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	content, _ := os.ReadFile(rc)
	// The user's last line and our first export must not merge.
	if strings.Contains(string(content), "vimexport") {
		t.Error("append merged with the user's unterminated last line")
	}
}

func TestReconcile_PartiallyWired(t *testing.T) {
	rc := filepath.Join(t.TempDir(), ".bashrc")
	plan := testPlan(rc)

	// Seed the file with only the first line.
	if err := os.WriteFile(rc, []byte(plan.Lines()[0]+"\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	changes, err := plan.Reconcile()
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(changes[0].Added) != 1 {
		t.Fatalf("Added = %v, want only the second line", changes[0].Added)
	}
	if changes[0].Added[0] != plan.Lines()[1] {
		t.Errorf("appended %q, want %q", changes[0].Added[0], plan.Lines()[1])
	}

	// The seeded line must not be duplicated.
	content, _ := os.ReadFile(rc)
	if strings.Count(string(content), plan.Lines()[0]) != 1 {
		t.Error("existing line was duplicated")
	}
}

func TestContainsLine(t *testing.T) {
	line := `export PATH="$PATH:/home/op/tools/bin" # reconrig: recon tools`
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{name: "exact", content: line + "\n", want: true},
		{name: "indented", content: "  " + line + "  \n", want: true},
		{name: "among others", content: "alias x=y\n" + line + "\nexport B=1\n", want: true},
		{name: "absent", content: "alias x=y\n", want: false},
		{name: "substring of longer line", content: line + " && true\n", want: false},
		{name: "empty", content: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsLine(tt.content, line); got != tt.want {
				t.Errorf("ContainsLine = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// PLAN TESTS
// =============================================================================

func TestAddDir_Deduplicates(t *testing.T) {
	var plan Plan
	plan.AddDir("/a/bin", "first")
	plan.AddDir("/a/bin", "second")
	plan.AddDir("/b/bin", "third")

	if len(plan.Entries) != 2 {
		t.Errorf("Entries = %d, want 2", len(plan.Entries))
	}
	if plan.Entries[0].Label != "first" {
		t.Error("first entry's label should win")
	}
}

func TestBuildPlan_CoreEntries(t *testing.T) {
	cfg := config.Default()
	cfg.Install.ToolsDir = "/srv/tools"
	cfg.Env.RCFiles = []string{filepath.Join(t.TempDir(), ".bashrc")}

	platform := &detect.Platform{OS: "linux", Arch: "amd64"}
	plan, err := BuildPlan(cfg, platform)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}

	var dirs []string
	for _, e := range plan.Entries {
		dirs = append(dirs, e.Dir)
	}
	joined := strings.Join(dirs, " ")
	if !strings.Contains(joined, "/srv/tools/bin") {
		t.Errorf("plan %v missing tools bin dir", dirs)
	}
	if !strings.Contains(joined, "/srv/tools/npm/bin") {
		t.Errorf("plan %v missing npm bin dir", dirs)
	}
	if len(plan.RCFiles) != 1 {
		t.Errorf("RCFiles = %v, want the configured override", plan.RCFiles)
	}
}

func TestBuildPlan_PipEntryLinuxOnly(t *testing.T) {
	cfg := config.Default()
	cfg.Env.RCFiles = []string{filepath.Join(t.TempDir(), ".rc")}

	linuxPlan, err := BuildPlan(cfg, &detect.Platform{OS: "linux"})
	if err != nil {
		t.Fatalf("BuildPlan(linux) failed: %v", err)
	}
	darwinPlan, err := BuildPlan(cfg, &detect.Platform{OS: "darwin"})
	if err != nil {
		t.Fatalf("BuildPlan(darwin) failed: %v", err)
	}

	hasLocalBin := func(p Plan) bool {
		for _, e := range p.Entries {
			if strings.HasSuffix(e.Dir, filepath.Join(".local", "bin")) {
				return true
			}
		}
		return false
	}

	if !hasLocalBin(linuxPlan) {
		t.Error("linux plan should wire ~/.local/bin for pip --user")
	}
	if hasLocalBin(darwinPlan) {
		t.Error("darwin plan should not wire ~/.local/bin")
	}
}

func TestDefaultRCFiles(t *testing.T) {
	home := t.TempDir()

	// Linux always manages .bashrc; .zshrc only when present.
	files := DefaultRCFiles("linux", home)
	if len(files) != 1 || filepath.Base(files[0]) != ".bashrc" {
		t.Errorf("linux default = %v, want just .bashrc", files)
	}

	if err := os.WriteFile(filepath.Join(home, ".zshrc"), []byte("# zsh\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	files = DefaultRCFiles("linux", home)
	if len(files) != 2 {
		t.Errorf("linux default with existing .zshrc = %v, want both", files)
	}

	// macOS leads with .zshrc.
	files = DefaultRCFiles("darwin", home)
	if filepath.Base(files[0]) != ".zshrc" {
		t.Errorf("darwin default = %v, want .zshrc first", files)
	}
}

func TestMissing(t *testing.T) {
	rc := filepath.Join(t.TempDir(), ".bashrc")
	plan := testPlan(rc)

	// Nothing wired yet: everything is missing.
	missing, err := plan.Missing()
	if err != nil {
		t.Fatalf("Missing failed: %v", err)
	}
	if len(missing) != 2 {
		t.Errorf("missing = %v, want both lines", missing)
	}

	if _, err := plan.Reconcile(); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	missing, err = plan.Missing()
	if err != nil {
		t.Fatalf("Missing failed: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("missing after reconcile = %v, want none", missing)
	}
}

// =============================================================================
// PROCESS PATH TESTS
// =============================================================================

func TestExtendProcessPath(t *testing.T) {
	t.Setenv("PATH", "/usr/bin")

	plan := testPlan()
	if err := plan.ExtendProcessPath(); err != nil {
		t.Fatalf("ExtendProcessPath failed: %v", err)
	}

	path := os.Getenv("PATH")
	if !strings.Contains(path, "/home/op/tools/bin") {
		t.Errorf("PATH = %q, want tools bin appended", path)
	}

	// A second call must not duplicate segments.
	if err := plan.ExtendProcessPath(); err != nil {
		t.Fatalf("second ExtendProcessPath failed: %v", err)
	}
	if strings.Count(os.Getenv("PATH"), "/home/op/tools/bin") != 1 {
		t.Errorf("PATH has duplicate segments: %q", os.Getenv("PATH"))
	}
}

func TestDirOnPath(t *testing.T) {
	t.Setenv("PATH", "/usr/bin"+string(os.PathListSeparator)+"/opt/tools/bin/")

	if !DirOnPath("/opt/tools/bin") {
		t.Error("DirOnPath should match despite trailing slash in PATH")
	}
	if DirOnPath("/opt/other") {
		t.Error("DirOnPath matched a dir not on PATH")
	}
}
