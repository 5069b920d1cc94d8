// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package wizard implements the interactive setup flow that runs when
// reconrig is invoked with no command. It walks the same pipeline as
// `reconrig install` one stage at a time: preflight checks, a plan
// review, the install itself with per-tool progress, and a summary.
// The wizard drives the installer engine directly so its results,
// exit policy, and journal entry match a plain install run.
package wizard

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/reconrig/internal/config"
	"github.com/jeranaias/reconrig/internal/detect"
	"github.com/jeranaias/reconrig/internal/env"
	"github.com/jeranaias/reconrig/internal/history"
	"github.com/jeranaias/reconrig/internal/installer"
	"github.com/jeranaias/reconrig/internal/manifest"
	"github.com/jeranaias/reconrig/internal/report"
	"github.com/jeranaias/reconrig/internal/util"
	"github.com/jeranaias/reconrig/internal/wordlist"
)

// =============================================================================
// PHASES
// =============================================================================

// Phase is the wizard screen currently shown.
type Phase int

const (
	PhaseWelcome Phase = iota
	PhaseChecks
	PhasePlan
	PhaseInstall
	PhaseSummary
)

// Pipeline stage indexes for the install phase, in run order. The
// order mirrors the install command's pipeline exactly.
const (
	stageDirs = iota
	stagePkgManager
	stageToolchains
	stageTools
	stageWordlists
	stageEnv
)

// CheckResult is one preflight check outcome.
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warn", "checking"
	Message string
	Fix     string
}

// stage tracks one pipeline step on the install screen.
type stage struct {
	name   string
	status string // "pending", "running", "done", "warn", "failed", "skipped"
	detail string
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the wizard's bubbletea model.
type Model struct {
	phase  Phase
	width  int
	height int

	spinner  spinner.Model
	progress progress.Model

	checks       []CheckResult
	currentCheck int

	cfg      *config.Config
	platform *detect.Platform
	tools    []manifest.Tool
	engine   *installer.Engine
	plan     env.Plan
	repos    []wordlist.Repo
	planErr  string

	run        *report.Run
	stages     []stage
	toolIndex  int
	unitsDone  int
	unitsTotal int

	journalID  string
	journalErr string
}

// New creates the wizard model on its welcome screen.
func New() *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	p := progress.New(progress.WithDefaultGradient())

	return &Model{
		phase:    PhaseWelcome,
		spinner:  s,
		progress: p,
		checks: []CheckResult{
			{Name: "Operating system", Status: "checking"},
			{Name: "Package manager", Status: "checking"},
			{Name: "Privileges", Status: "checking"},
			{Name: "Disk space", Status: "checking"},
			{Name: "Configuration", Status: "checking"},
		},
	}
}

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// ExitCode returns the exit status the finished wizard maps to, using
// the same policy as the install command.
func (m *Model) ExitCode() int {
	if m.run == nil {
		return 0
	}
	strict := false
	if m.cfg != nil {
		strict = m.cfg.Install.Strict
	}
	return m.run.ExitCode(strict)
}

// =============================================================================
// MESSAGES
// =============================================================================

// checkCompleteMsg signals one preflight check finished.
type checkCompleteMsg struct {
	index  int
	result CheckResult
}

// stageDoneMsg signals a fatal-tier pipeline stage finished.
type stageDoneMsg struct {
	index int
	err   error
}

// toolDoneMsg signals one tool install finished.
type toolDoneMsg struct {
	index  int
	result report.Result
}

// wordlistsDoneMsg carries the wordlist sync results.
type wordlistsDoneMsg struct {
	results []report.Result
}

// envDoneMsg carries the shell PATH reconcile result. ok is false when
// env management is disabled in config.
type envDoneMsg struct {
	result report.Result
	ok     bool
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		progressWidth := msg.Width - 20
		if progressWidth < 20 {
			progressWidth = 20
		}
		if progressWidth > 80 {
			progressWidth = 80
		}
		m.progress.Width = progressWidth

		boxWidth := msg.Width - 16
		if boxWidth < 40 {
			boxWidth = 40
		}
		if boxWidth > 72 {
			boxWidth = 72
		}
		boxStyle = boxStyle.Width(boxWidth)

		// Return a spinner tick to force a redraw.
		return m, m.spinner.Tick

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case checkCompleteMsg:
		m.checks[msg.index] = msg.result
		m.currentCheck++
		if m.currentCheck < len(m.checks) {
			return m, m.runCheck(m.currentCheck)
		}
		return m, nil

	case stageDoneMsg:
		return m.handleStageDone(msg)

	case toolDoneMsg:
		return m.handleToolDone(msg)

	case wordlistsDoneMsg:
		return m.handleWordlistsDone(msg)

	case envDoneMsg:
		return m.handleEnvDone(msg)
	}

	return m, nil
}

// handleKey processes key presses.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "enter", " ":
		return m.handleSelect()
	}

	return m, nil
}

// handleSelect advances the wizard when the current screen is ready.
func (m *Model) handleSelect() (tea.Model, tea.Cmd) {
	switch m.phase {
	case PhaseWelcome:
		m.phase = PhaseChecks
		return m, m.runCheck(0)

	case PhaseChecks:
		if m.currentCheck < len(m.checks) {
			return m, nil
		}
		m.preparePlan()
		m.phase = PhasePlan
		return m, nil

	case PhasePlan:
		if m.planErr != "" {
			return m, tea.Quit
		}
		return m, m.startInstall()

	case PhaseInstall:
		// The pipeline advances itself.
		return m, nil

	case PhaseSummary:
		return m, tea.Quit
	}

	return m, nil
}

// =============================================================================
// PREFLIGHT CHECKS
// =============================================================================

// runCheck runs one preflight check off the UI loop.
func (m *Model) runCheck(index int) tea.Cmd {
	return func() tea.Msg {
		var result CheckResult

		switch index {
		case 0:
			result = checkPlatform()
		case 1:
			result = checkPackageManager()
		case 2:
			result = checkPrivileges()
		case 3:
			result = checkDisk()
		case 4:
			result = checkConfig()
		}

		// The checks are near-instant; pace them so each row lands
		// visibly instead of the list appearing all at once.
		time.Sleep(250 * time.Millisecond)
		return checkCompleteMsg{index: index, result: result}
	}
}

// hasFailedCheck reports whether any completed check failed outright.
func (m *Model) hasFailedCheck() bool {
	for _, check := range m.checks {
		if check.Status == "fail" {
			return true
		}
	}
	return false
}

func checkPlatform() CheckResult {
	platform := detect.Detect()
	if !platform.Supported() {
		return CheckResult{
			Name:    "Operating system",
			Status:  "fail",
			Message: fmt.Sprintf("%s is not supported", platform.OS),
			Fix:     "reconrig provisions linux (apt) and darwin (brew)",
		}
	}
	return CheckResult{
		Name:    "Operating system",
		Status:  "pass",
		Message: fmt.Sprintf("%s/%s", platform.OS, platform.Arch),
	}
}

func checkPackageManager() CheckResult {
	platform := detect.Detect()
	if platform.PkgManager == detect.PkgManagerNone {
		if platform.OS == "darwin" {
			return CheckResult{
				Name:    "Package manager",
				Status:  "warn",
				Message: "Homebrew not found",
				Fix:     "the install step will bootstrap it",
			}
		}
		return CheckResult{
			Name:    "Package manager",
			Status:  "fail",
			Message: "no apt-get on PATH",
			Fix:     "Debian-derived Linux (apt) is the supported baseline",
		}
	}

	message := platform.PkgManager.String() + " available"
	if platform.HasSnap {
		message += " (snap present)"
	}
	return CheckResult{Name: "Package manager", Status: "pass", Message: message}
}

func checkPrivileges() CheckResult {
	platform := detect.Detect()
	switch platform.Privilege {
	case detect.PrivilegeRoot:
		return CheckResult{Name: "Privileges", Status: "pass", Message: "running as root"}
	case detect.PrivilegeSudo:
		return CheckResult{Name: "Privileges", Status: "pass", Message: "sudo available (may prompt for a password)"}
	default:
		if platform.PkgManager == detect.PkgManagerBrew {
			return CheckResult{Name: "Privileges", Status: "pass", Message: "unprivileged (fine for brew)"}
		}
		return CheckResult{
			Name:    "Privileges",
			Status:  "warn",
			Message: "no root or sudo",
			Fix:     "apt and snap installs will fail; go, pip, and npm tools still work",
		}
	}
}

// Disk thresholds match the doctor command: toolchains plus wordlists
// want a few GB free.
const (
	diskFailBytes = 1 << 30 // 1 GB
	diskWarnBytes = 5 << 30 // 5 GB
)

func checkDisk() CheckResult {
	home, err := os.UserHomeDir()
	if err != nil {
		return CheckResult{Name: "Disk space", Status: "warn", Message: err.Error()}
	}

	free, err := detect.DiskFree(home)
	if err != nil {
		return CheckResult{
			Name:    "Disk space",
			Status:  "warn",
			Message: fmt.Sprintf("could not read free space: %v", err),
		}
	}

	switch {
	case free < diskFailBytes:
		return CheckResult{
			Name:    "Disk space",
			Status:  "fail",
			Message: fmt.Sprintf("only %s free", formatGB(free)),
			Fix:     "free at least 1 GB before installing",
		}
	case free < diskWarnBytes:
		return CheckResult{
			Name:    "Disk space",
			Status:  "warn",
			Message: fmt.Sprintf("%s free (wordlists are large)", formatGB(free)),
		}
	default:
		return CheckResult{Name: "Disk space", Status: "pass", Message: formatGB(free) + " free"}
	}
}

func checkConfig() CheckResult {
	if _, err := config.Load(); err != nil {
		return CheckResult{
			Name:    "Configuration",
			Status:  "fail",
			Message: err.Error(),
			Fix:     "run: reconrig config reset",
		}
	}

	if path, err := config.ConfigPathTOML(); err == nil && util.FileExists(path) {
		return CheckResult{Name: "Configuration", Status: "pass", Message: path}
	}
	return CheckResult{Name: "Configuration", Status: "pass", Message: "defaults (no file written yet)"}
}

// formatGB renders a byte count in gigabytes for the check rows.
func formatGB(b uint64) string {
	gb := float64(b) / (1 << 30)
	if gb >= 10 {
		return fmt.Sprintf("%.0f GB", gb)
	}
	return fmt.Sprintf("%.1f GB", gb)
}

// =============================================================================
// PLAN
// =============================================================================

// preparePlan loads everything the plan screen and the install phase
// need: config, platform, tool table, engine, wordlist repos, and the
// environment plan. Errors land in planErr for the plan screen.
func (m *Model) preparePlan() {
	cfg, err := config.Load()
	if err != nil {
		m.planErr = err.Error()
		return
	}
	m.cfg = cfg
	m.platform = detect.Detect()
	m.tools = manifest.DefaultFor(m.platform.OS)

	if !cfg.Install.SkipWordlists {
		repos, err := wordlist.ReposFromConfig(cfg)
		if err != nil {
			m.planErr = err.Error()
			return
		}
		m.repos = repos
	}

	// Child command output has nowhere to go in the alt screen, so the
	// engine and runner both write to io.Discard.
	m.engine = installer.New(cfg, m.platform, m.tools, installer.Options{
		Runner: &installer.ExecRunner{Stdout: io.Discard, Stderr: io.Discard},
		Out:    io.Discard,
	})

	plan, err := m.engine.EnvPlan()
	if err != nil {
		m.planErr = err.Error()
		return
	}
	m.plan = plan
}

// =============================================================================
// INSTALL PIPELINE
// =============================================================================

// startInstall switches to the install phase and kicks off the first
// pipeline stage.
func (m *Model) startInstall() tea.Cmd {
	m.phase = PhaseInstall
	m.run = report.NewRun(m.platform.String())
	m.stages = []stage{
		{name: "Directories", status: "running"},
		{name: "Package manager", status: "pending"},
		{name: "Toolchains", status: "pending"},
		{name: "Recon tools", status: "pending"},
		{name: "Wordlists", status: "pending"},
		{name: "Shell PATH", status: "pending"},
	}
	m.unitsTotal = 3 + len(m.tools) + 2
	return m.runStage(stageDirs)
}

// runStage executes one fatal-tier stage off the UI loop.
func (m *Model) runStage(index int) tea.Cmd {
	engine := m.engine
	platform := m.platform

	return func() tea.Msg {
		var err error
		switch index {
		case stageDirs:
			if !platform.Supported() {
				err = fmt.Errorf("unsupported operating system: %s", platform.OS)
			} else {
				err = engine.EnsureDirs()
			}
		case stagePkgManager:
			err = engine.BootstrapPackageManager(context.Background())
		case stageToolchains:
			err = engine.BootstrapToolchains(context.Background())
		}
		return stageDoneMsg{index: index, err: err}
	}
}

// handleStageDone records a fatal-tier stage outcome and advances.
func (m *Model) handleStageDone(msg stageDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.stages[msg.index].status = "failed"
		m.stages[msg.index].detail = msg.err.Error()
		m.run.Fatal = msg.err.Error()
		m.finishRun()
		return m, nil
	}

	m.stages[msg.index].status = "done"
	m.unitsDone++

	switch msg.index {
	case stageDirs:
		m.stages[stagePkgManager].status = "running"
		return m, tea.Batch(m.setPercent(), m.runStage(stagePkgManager))

	case stagePkgManager:
		m.stages[stageToolchains].status = "running"
		return m, tea.Batch(m.setPercent(), m.runStage(stageToolchains))

	case stageToolchains:
		// Binaries installed moments ago must resolve for the tool loop.
		if err := m.engine.ExtendProcessPath(); err != nil {
			m.stages[stageToolchains].detail = fmt.Sprintf("PATH warning: %v", err)
		}
		if len(m.tools) == 0 {
			m.stages[stageTools].status = "skipped"
			m.unitsDone += len(m.tools)
			return m, tea.Batch(m.setPercent(), m.nextAfterTools())
		}
		m.stages[stageTools].status = "running"
		m.stages[stageTools].detail = fmt.Sprintf("0 of %d", len(m.tools))
		return m, tea.Batch(m.setPercent(), m.installTool(0))
	}

	return m, m.setPercent()
}

// installTool delivers one manifest tool off the UI loop.
func (m *Model) installTool(index int) tea.Cmd {
	engine := m.engine
	tool := m.tools[index]

	return func() tea.Msg {
		return toolDoneMsg{index: index, result: engine.InstallTool(context.Background(), tool)}
	}
}

// handleToolDone records one tool result and starts the next tool, or
// moves on to the wordlist stage.
func (m *Model) handleToolDone(msg toolDoneMsg) (tea.Model, tea.Cmd) {
	m.run.Add(msg.result)
	m.toolIndex++
	m.unitsDone++
	m.stages[stageTools].detail = fmt.Sprintf("%d of %d", m.toolIndex, len(m.tools))

	if m.toolIndex < len(m.tools) {
		return m, tea.Batch(m.setPercent(), m.installTool(m.toolIndex))
	}

	m.stages[stageTools].status = "done"
	if c := report.CountResults(m.run.Results); c.Failed > 0 {
		m.stages[stageTools].status = "warn"
		m.stages[stageTools].detail = fmt.Sprintf("%d of %d, %d failed", m.toolIndex, len(m.tools), c.Failed)
	}
	return m, tea.Batch(m.setPercent(), m.nextAfterTools())
}

// nextAfterTools moves the pipeline past the tool loop.
func (m *Model) nextAfterTools() tea.Cmd {
	if m.cfg.Install.SkipWordlists || len(m.repos) == 0 {
		m.stages[stageWordlists].status = "skipped"
		m.unitsDone++
		return tea.Batch(m.setPercent(), m.nextAfterWordlists())
	}
	m.stages[stageWordlists].status = "running"
	m.stages[stageWordlists].detail = fmt.Sprintf("%d repo(s)", len(m.repos))
	return m.syncWordlists()
}

// syncWordlists clones or updates the wordlist repos off the UI loop.
func (m *Model) syncWordlists() tea.Cmd {
	repos := m.repos

	return func() tea.Msg {
		runner := &installer.ExecRunner{Stdout: io.Discard, Stderr: io.Discard}
		fetcher := wordlist.NewFetcher(repos, runner, io.Discard, false)
		return wordlistsDoneMsg{results: fetcher.SyncAll(context.Background())}
	}
}

// handleWordlistsDone records the sync results and moves on.
func (m *Model) handleWordlistsDone(msg wordlistsDoneMsg) (tea.Model, tea.Cmd) {
	for _, res := range msg.results {
		m.run.Add(res)
	}
	m.unitsDone++

	m.stages[stageWordlists].status = "done"
	if c := report.CountResults(msg.results); c.Failed > 0 {
		m.stages[stageWordlists].status = "warn"
		m.stages[stageWordlists].detail = fmt.Sprintf("%d of %d failed", c.Failed, len(msg.results))
	}

	return m, tea.Batch(m.setPercent(), m.nextAfterWordlists())
}

// nextAfterWordlists moves the pipeline into the env stage, or straight
// to the summary when env management is off.
func (m *Model) nextAfterWordlists() tea.Cmd {
	if !m.cfg.Env.Manage {
		m.stages[stageEnv].status = "skipped"
		m.unitsDone++
		m.finishRun()
		return m.setPercent()
	}
	m.stages[stageEnv].status = "running"
	return m.reconcileEnv()
}

// reconcileEnv wires the rc files off the UI loop.
func (m *Model) reconcileEnv() tea.Cmd {
	engine := m.engine

	return func() tea.Msg {
		res, ok := engine.ReconcileEnv()
		return envDoneMsg{result: res, ok: ok}
	}
}

// handleEnvDone records the env result and finishes the run.
func (m *Model) handleEnvDone(msg envDoneMsg) (tea.Model, tea.Cmd) {
	if msg.ok {
		m.run.Add(msg.result)
	}
	m.unitsDone++

	if msg.result.Status == report.StatusFailed {
		m.stages[stageEnv].status = "warn"
		m.stages[stageEnv].detail = msg.result.Err
	} else {
		m.stages[stageEnv].status = "done"
		m.stages[stageEnv].detail = msg.result.Detail
	}

	m.finishRun()
	return m, m.setPercent()
}

// setPercent animates the progress bar to the pipeline's position.
func (m *Model) setPercent() tea.Cmd {
	if m.unitsTotal == 0 {
		return nil
	}
	return m.progress.SetPercent(float64(m.unitsDone) / float64(m.unitsTotal))
}

// finishRun stamps the run, journals it, and shows the summary.
func (m *Model) finishRun() {
	m.run.Finish()
	m.recordJournal()
	m.phase = PhaseSummary
}

// recordJournal persists the run. Journal trouble shows on the summary
// screen; it never fails the wizard.
func (m *Model) recordJournal() {
	if m.cfg == nil || !m.cfg.History.Enabled {
		return
	}

	path, err := m.cfg.HistoryPath()
	if err != nil {
		m.journalErr = err.Error()
		return
	}

	store, err := history.Open(path)
	if err != nil {
		m.journalErr = err.Error()
		return
	}
	defer store.Close()

	if err := store.RecordRun(m.run, m.run.ExitCode(m.cfg.Install.Strict)); err != nil {
		m.journalErr = err.Error()
		return
	}
	m.journalID = m.run.ID
}
