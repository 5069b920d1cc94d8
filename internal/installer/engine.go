// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/reconrig/internal/config"
	"github.com/jeranaias/reconrig/internal/detect"
	"github.com/jeranaias/reconrig/internal/env"
	"github.com/jeranaias/reconrig/internal/manifest"
	"github.com/jeranaias/reconrig/internal/report"
)

// =============================================================================
// ENGINE
// =============================================================================

// WordlistSyncer delivers wordlist repositories. Defined as an
// interface here so the engine can drive the step without depending on
// the wordlist package.
type WordlistSyncer interface {
	SyncAll(ctx context.Context) []report.Result
}

// Engine walks the provisioning pipeline: directories, package
// manager, toolchains, tools, wordlists, environment. Bootstrap steps
// are fatal when they fail; per-tool steps record a result and move on.
type Engine struct {
	cfg      *config.Config
	platform *detect.Platform
	tools    []manifest.Tool

	runner     Runner
	downloader Downloader
	wordlists  WordlistSyncer
	limiter    *rate.Limiter
	out        io.Writer
	dryRun     bool
	timeout    time.Duration
}

// Options configures an Engine. Zero values mean real execution with
// the process's stdio.
type Options struct {
	Runner     Runner
	Downloader Downloader
	Wordlists  WordlistSyncer
	Out        io.Writer
	DryRun     bool
}

// New builds an Engine for the given configuration, platform, and tool
// table.
func New(cfg *config.Config, platform *detect.Platform, tools []manifest.Tool, opts Options) *Engine {
	runner := opts.Runner
	if runner == nil {
		runner = NewExecRunner()
	}
	downloader := opts.Downloader
	if downloader == nil {
		downloader = NewHTTPDownloader()
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if ms := cfg.Install.RateLimitMS; ms > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Duration(ms)*time.Millisecond), 1)
	}

	return &Engine{
		cfg:        cfg,
		platform:   platform,
		tools:      tools,
		runner:     runner,
		downloader: downloader,
		wordlists:  opts.Wordlists,
		limiter:    limiter,
		out:        out,
		dryRun:     opts.DryRun,
		timeout:    time.Duration(cfg.Install.CommandTimeoutSecs) * time.Second,
	}
}

// Tools returns the engine's tool table in install order.
func (e *Engine) Tools() []manifest.Tool {
	return e.tools
}

// DryRun reports whether the engine only describes what it would do.
func (e *Engine) DryRun() bool {
	return e.dryRun
}

// =============================================================================
// PIPELINE
// =============================================================================

// Run executes the full pipeline and returns the collected results.
// The returned error is non-nil only for the fatal bootstrap tier; it
// is also recorded on the run so history and JSON output carry it.
func (e *Engine) Run(ctx context.Context) (*report.Run, error) {
	run := report.NewRun(e.platform.String())
	run.DryRun = e.dryRun
	defer run.Finish()

	fatal := func(err error) (*report.Run, error) {
		run.Fatal = err.Error()
		return run, err
	}

	if !e.platform.Supported() {
		return fatal(fmt.Errorf("unsupported operating system: %s", e.platform.OS))
	}

	if err := e.EnsureDirs(); err != nil {
		return fatal(err)
	}
	if err := e.BootstrapPackageManager(ctx); err != nil {
		return fatal(err)
	}
	if err := e.BootstrapToolchains(ctx); err != nil {
		return fatal(err)
	}

	// Binaries installed moments ago must resolve for the steps below.
	if err := e.ExtendProcessPath(); err != nil {
		fmt.Fprintf(e.out, "warning: could not extend PATH: %v\n", err)
	}

	for _, tool := range e.tools {
		run.Add(e.InstallTool(ctx, tool))
	}

	if e.wordlists != nil && !e.cfg.Install.SkipWordlists {
		if e.dryRun {
			fmt.Fprintln(e.out, "dry run: skipping wordlist sync")
		} else {
			for _, res := range e.wordlists.SyncAll(ctx) {
				run.Add(res)
			}
		}
	}

	if res, ok := e.ReconcileEnv(); ok {
		run.Add(res)
	}

	return run, nil
}

// ReconcileEnv applies the environment plan and reports it as a run
// result. The bool is false when env management is disabled. rc file
// trouble is never fatal; the export lines can always be added by hand
// from `reconrig env show`.
func (e *Engine) ReconcileEnv() (report.Result, bool) {
	if !e.cfg.Env.Manage {
		return report.Result{}, false
	}

	res := report.Result{Tool: "shell environment", Kind: "env"}

	if e.dryRun {
		res.Status = report.StatusSkipped
		res.Detail = "dry run"
		return res, true
	}

	plan, err := e.EnvPlan()
	if err != nil {
		res.Status = report.StatusFailed
		res.Err = err.Error()
		return res, true
	}

	changes, err := plan.Reconcile()
	if err != nil {
		res.Status = report.StatusFailed
		res.Err = err.Error()
		return res, true
	}

	added := 0
	for _, change := range changes {
		added += len(change.Added)
		for _, line := range change.Added {
			fmt.Fprintf(e.out, "  + %s -> %s\n", line, change.Path)
		}
	}

	if added == 0 {
		res.Status = report.StatusPresent
		res.Detail = "rc files already wired"
	} else {
		res.Status = report.StatusInstalled
		res.Detail = fmt.Sprintf("%d line(s) appended", added)
	}
	if len(plan.RCFiles) > 0 {
		res.Path = plan.RCFiles[0]
	}
	return res, true
}

// EnvPlan computes the environment plan for the engine's config and
// platform.
func (e *Engine) EnvPlan() (env.Plan, error) {
	return env.BuildPlan(e.cfg, e.platform)
}

// ExtendProcessPath wires the plan's directories into this process's
// PATH.
func (e *Engine) ExtendProcessPath() error {
	plan, err := e.EnvPlan()
	if err != nil {
		return err
	}
	return plan.ExtendProcessPath()
}

// =============================================================================
// TOOL INSTALLATION
// =============================================================================

// InstallTool delivers one tool and reports the outcome. It never
// returns an error: failures are results, and the next tool still gets
// its chance.
func (e *Engine) InstallTool(ctx context.Context, tool manifest.Tool) report.Result {
	start := time.Now()
	res := report.Result{Tool: tool.Name, Kind: tool.Kind.String()}

	// Skip work that is already done, whether by us or by hand.
	if path, ok := e.ResolveBinary(tool.Binary); ok {
		res.Status = report.StatusPresent
		res.Path = path
		res.Detail = "already installed"
		res.Duration = time.Since(start)
		return res
	}

	if e.dryRun {
		res.Status = report.StatusSkipped
		res.Detail = "dry run: would " + e.describeInstall(tool)
		res.Duration = time.Since(start)
		return res
	}

	fmt.Fprintf(e.out, "Installing %s (%s)\n", tool.Name, tool.Kind)

	var lastErr error
	for _, pkg := range tool.Candidates() {
		cmd, err := e.installCommand(tool.Kind, pkg)
		if err != nil {
			// A missing toolchain or privilege fails every candidate
			// the same way; stop early.
			lastErr = err
			break
		}

		if err := e.runCommand(ctx, cmd); err != nil {
			lastErr = fmt.Errorf("%s: %w", cmd.String(), err)
			continue
		}

		lastErr = nil
		if pkg != tool.Package {
			res.Detail = "via " + pkg
		}
		break
	}

	res.Duration = time.Since(start)

	if lastErr != nil {
		res.Status = report.StatusFailed
		res.Err = lastErr.Error()
		return res
	}

	// Trust the filesystem over the installer's exit code.
	if path, ok := e.ResolveBinary(tool.Binary); ok {
		res.Status = report.StatusInstalled
		res.Path = path
	} else {
		res.Status = report.StatusMissing
		res.Detail = "installer succeeded but binary not found"
	}
	return res
}

// describeInstall renders the install a dry run would perform.
func (e *Engine) describeInstall(tool manifest.Tool) string {
	cmd, err := e.installCommand(tool.Kind, tool.Package)
	if err != nil {
		return fmt.Sprintf("install %s via %s (blocked: %v)", tool.Package, tool.Kind, err)
	}
	return "run: " + cmd.String()
}

// installCommand builds the invocation that delivers pkg via kind.
func (e *Engine) installCommand(kind manifest.Kind, pkg string) (Command, error) {
	switch kind {
	case manifest.KindGo:
		if _, ok := e.runner.LookPath("go"); !ok {
			return Command{}, errors.New("go toolchain not available")
		}
		binDir, err := e.cfg.BinDir()
		if err != nil {
			return Command{}, err
		}
		return Cmd("go", "install", "-v", pkg+"@latest").WithEnv("GOBIN=" + binDir), nil

	case manifest.KindPip:
		pip, ok := e.runner.LookPath("pip3")
		if !ok {
			pip, ok = e.runner.LookPath("pip")
		}
		if !ok {
			return Command{}, errors.New("pip3 not available")
		}
		return Cmd(filepath.Base(pip), "install", "--user", pkg), nil

	case manifest.KindNpm:
		if _, ok := e.runner.LookPath("npm"); !ok {
			return Command{}, errors.New("npm not available")
		}
		prefix, err := e.cfg.NpmPrefix()
		if err != nil {
			return Command{}, err
		}
		return Cmd("npm", "install", "-g", "--prefix", prefix, pkg), nil

	case manifest.KindApt:
		if e.platform.PkgManager != detect.PkgManagerApt {
			return Command{}, errors.New("apt-get not available")
		}
		return e.sudoWrap("apt-get", "install", "-y", pkg)

	case manifest.KindBrew:
		if _, ok := e.runner.LookPath("brew"); !ok {
			return Command{}, errors.New("brew not available")
		}
		return Cmd("brew", "install", pkg), nil

	case manifest.KindSnap:
		if !e.platform.HasSnap {
			return Command{}, errors.New("snap not available")
		}
		return e.sudoWrap("snap", "install", pkg)

	default:
		return Command{}, fmt.Errorf("installer kind %s is not handled by the tool engine", kind)
	}
}

// sudoWrap returns the command, escalated if the process is not root.
func (e *Engine) sudoWrap(name string, args ...string) (Command, error) {
	switch e.platform.Privilege {
	case detect.PrivilegeRoot:
		return Cmd(name, args...), nil
	case detect.PrivilegeSudo:
		return Cmd("sudo", append([]string{name}, args...)...), nil
	default:
		return Command{}, fmt.Errorf("%s requires root and sudo is not available", name)
	}
}

// runCommand executes one invocation through the rate limiter, with
// the configured per-command timeout.
func (e *Engine) runCommand(ctx context.Context, cmd Command) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	fmt.Fprintf(e.out, "  $ %s\n", cmd.String())
	return e.runner.Run(ctx, cmd)
}

// =============================================================================
// BINARY RESOLUTION
// =============================================================================

// ResolveBinary finds a tool binary on PATH or in the directories
// reconrig installs into. The extra directories matter on first run,
// before the user's shell has picked up the new PATH entries.
func (e *Engine) ResolveBinary(binary string) (string, bool) {
	if path, ok := e.runner.LookPath(binary); ok {
		return path, true
	}

	for _, dir := range e.installBinDirs() {
		candidate := filepath.Join(dir, binary)
		if isExecutable(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// Lookup returns a report.Lookup backed by this engine's resolution.
func (e *Engine) Lookup() report.Lookup {
	return func(binary string) (string, bool) {
		return e.ResolveBinary(binary)
	}
}

// installBinDirs lists every directory reconrig delivers binaries to.
func (e *Engine) installBinDirs() []string {
	var dirs []string
	if binDir, err := e.cfg.BinDir(); err == nil {
		dirs = append(dirs, binDir)
	}
	if npmPrefix, err := e.cfg.NpmPrefix(); err == nil {
		dirs = append(dirs, filepath.Join(npmPrefix, "bin"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "bin"))
	}
	return dirs
}

// isExecutable reports whether path is a file with any execute bit.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return info.Mode().Perm()&0111 != 0
}
