// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package env

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jeranaias/reconrig/internal/config"
	"github.com/jeranaias/reconrig/internal/detect"
	"github.com/jeranaias/reconrig/internal/util"
)

// =============================================================================
// PLAN
// =============================================================================

// PathEntry is one directory that must be reachable through PATH for
// the installed tools to work.
type PathEntry struct {
	Dir   string // absolute directory
	Label string // short reason, shown by `reconrig env show`
}

// Line renders the shell line that wires this entry. The format is
// stable because idempotency depends on finding this exact line again
// on the next run.
func (e PathEntry) Line() string {
	return fmt.Sprintf("export PATH=\"$PATH:%s\" # reconrig: %s", e.Dir, e.Label)
}

// Plan is the desired shell environment: which directories belong on
// PATH and which rc files carry the export lines. Reconcile applies it;
// everything else only inspects it.
type Plan struct {
	Entries []PathEntry
	RCFiles []string
}

// Lines returns the export lines for every entry, in plan order.
func (p Plan) Lines() []string {
	lines := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		lines[i] = e.Line()
	}
	return lines
}

// AddDir appends an entry unless the directory is already planned.
func (p *Plan) AddDir(dir, label string) {
	for _, e := range p.Entries {
		if e.Dir == dir {
			return
		}
	}
	p.Entries = append(p.Entries, PathEntry{Dir: dir, Label: label})
}

// =============================================================================
// PLAN CONSTRUCTION
// =============================================================================

// BuildPlan computes the environment plan for the given configuration
// and platform. The plan is deterministic for a given host state, so
// running it any number of times converges on the same rc content.
func BuildPlan(cfg *config.Config, platform *detect.Platform) (Plan, error) {
	var plan Plan

	binDir, err := cfg.BinDir()
	if err != nil {
		return plan, err
	}
	plan.AddDir(binDir, "recon tools")

	npmPrefix, err := cfg.NpmPrefix()
	if err != nil {
		return plan, err
	}
	plan.AddDir(filepath.Join(npmPrefix, "bin"), "npm tools")

	home, err := os.UserHomeDir()
	if err != nil {
		return plan, fmt.Errorf("failed to resolve home directory: %w", err)
	}

	// pip --user binaries land in ~/.local/bin on Linux. Homebrew's
	// python links scripts into the brew prefix, which is already on
	// PATH on macOS.
	if platform.OS == "linux" {
		plan.AddDir(filepath.Join(home, ".local", "bin"), "pip tools")
	}

	// A Go toolchain installed by bootstrap lives outside the default
	// PATH. Only wire the directory that actually exists, and only when
	// go does not already resolve.
	if _, err := exec.LookPath("go"); err != nil {
		toolsDir, err := cfg.ResolvedToolsDir()
		if err != nil {
			return plan, err
		}
		for _, goBin := range []string{"/usr/local/go/bin", filepath.Join(toolsDir, "go", "bin")} {
			if util.DirExists(goBin) {
				plan.AddDir(goBin, "go toolchain")
				break
			}
		}
	}

	rcFiles, err := resolveRCFiles(cfg, platform.OS, home)
	if err != nil {
		return plan, err
	}
	plan.RCFiles = rcFiles

	return plan, nil
}

// resolveRCFiles returns the rc files to manage: the config override
// when set, otherwise the platform default.
func resolveRCFiles(cfg *config.Config, goos, home string) ([]string, error) {
	if len(cfg.Env.RCFiles) > 0 {
		files := make([]string, 0, len(cfg.Env.RCFiles))
		for _, rc := range cfg.Env.RCFiles {
			expanded, err := util.ExpandHome(rc)
			if err != nil {
				return nil, err
			}
			files = append(files, expanded)
		}
		return files, nil
	}
	return DefaultRCFiles(goos, home), nil
}

// DefaultRCFiles returns the shell startup files for the OS: the
// conventional one always (created if absent), the other only when the
// user already has it.
func DefaultRCFiles(goos, home string) []string {
	bashrc := filepath.Join(home, ".bashrc")
	zshrc := filepath.Join(home, ".zshrc")

	if goos == "darwin" {
		files := []string{zshrc}
		if util.FileExists(bashrc) {
			files = append(files, bashrc)
		}
		return files
	}

	files := []string{bashrc}
	if util.FileExists(zshrc) {
		files = append(files, zshrc)
	}
	return files
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// FileChange reports what Reconcile did to one rc file.
type FileChange struct {
	Path    string   // rc file path
	Added   []string // lines appended this run, empty if none
	Created bool     // file did not exist before
}

// Reconcile appends each missing export line to each managed rc file.
// Lines already present, however the user got them there, are left
// alone; nothing is ever removed or reordered. Appending, not
// rewriting, keeps symlinked dotfiles intact.
func (p Plan) Reconcile() ([]FileChange, error) {
	changes := make([]FileChange, 0, len(p.RCFiles))

	for _, rcPath := range p.RCFiles {
		change, err := reconcileFile(rcPath, p.Lines())
		if err != nil {
			return changes, err
		}
		changes = append(changes, change)
	}
	return changes, nil
}

// reconcileFile appends the missing lines to a single rc file.
func reconcileFile(path string, lines []string) (FileChange, error) {
	change := FileChange{Path: path}

	content, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		change.Created = true
		content = nil
	case err != nil:
		return change, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var missing []string
	for _, line := range lines {
		if !ContainsLine(string(content), line) {
			missing = append(missing, line)
		}
	}
	if len(missing) == 0 {
		return change, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return change, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var buf strings.Builder
	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		buf.WriteString("\n")
	}
	for _, line := range missing {
		buf.WriteString(line)
		buf.WriteString("\n")
	}

	if _, err := f.WriteString(buf.String()); err != nil {
		return change, fmt.Errorf("failed to append to %s: %w", path, err)
	}

	change.Added = missing
	return change, nil
}

// ContainsLine reports whether content already carries the line,
// comparing whole lines with surrounding whitespace ignored.
func ContainsLine(content, line string) bool {
	want := strings.TrimSpace(line)
	for _, have := range strings.Split(content, "\n") {
		if strings.TrimSpace(have) == want {
			return true
		}
	}
	return false
}

// Missing returns the export lines absent from every managed rc file.
// Doctor uses this to report unwired PATH entries without touching
// anything.
func (p Plan) Missing() ([]string, error) {
	// A line present in any rc file counts as wired; shells differ but
	// the user clearly installed it.
	present := make(map[string]bool)
	for _, rcPath := range p.RCFiles {
		content, err := os.ReadFile(rcPath)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", rcPath, err)
		}
		for _, line := range p.Lines() {
			if ContainsLine(string(content), line) {
				present[line] = true
			}
		}
	}

	var missing []string
	for _, line := range p.Lines() {
		if !present[line] {
			missing = append(missing, line)
		}
	}
	return missing, nil
}

// =============================================================================
// PROCESS ENVIRONMENT
// =============================================================================

// ExtendProcessPath appends the plan's directories to this process's
// PATH so binaries installed moments ago resolve without a new shell.
func (p Plan) ExtendProcessPath() error {
	path := os.Getenv("PATH")
	segments := filepath.SplitList(path)

	onPath := make(map[string]bool, len(segments))
	for _, seg := range segments {
		onPath[filepath.Clean(seg)] = true
	}

	changed := false
	for _, e := range p.Entries {
		dir := filepath.Clean(e.Dir)
		if !onPath[dir] {
			path = path + string(os.PathListSeparator) + dir
			onPath[dir] = true
			changed = true
		}
	}

	if !changed {
		return nil
	}
	return os.Setenv("PATH", path)
}

// DirOnPath reports whether dir is already a PATH segment.
func DirOnPath(dir string) bool {
	want := filepath.Clean(dir)
	for _, seg := range filepath.SplitList(os.Getenv("PATH")) {
		if filepath.Clean(seg) == want {
			return true
		}
	}
	return false
}
