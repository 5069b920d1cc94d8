// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package installer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeranaias/reconrig/internal/config"
	"github.com/jeranaias/reconrig/internal/detect"
	"github.com/jeranaias/reconrig/internal/manifest"
	"github.com/jeranaias/reconrig/internal/report"
)

// =============================================================================
// FIXTURES
// =============================================================================

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Install.ToolsDir = t.TempDir()
	cfg.Install.RateLimitMS = 0
	cfg.Install.SkipWordlists = true
	cfg.Env.Manage = false
	return cfg
}

func aptPlatform() *detect.Platform {
	return &detect.Platform{
		OS:         "linux",
		Arch:       "amd64",
		PkgManager: detect.PkgManagerApt,
		HasSnap:    true,
		Privilege:  detect.PrivilegeSudo,
		Shell:      "bash",
	}
}

func brewPlatform() *detect.Platform {
	return &detect.Platform{
		OS:         "darwin",
		Arch:       "arm64",
		PkgManager: detect.PkgManagerBrew,
		Privilege:  detect.PrivilegeSudo,
		Shell:      "zsh",
	}
}

// newTestEngine wires a RecordingRunner and keeps PATH mutations from
// leaking out of the test.
func newTestEngine(t *testing.T, platform *detect.Platform, tools []manifest.Tool, opts Options) (*Engine, *RecordingRunner) {
	t.Helper()
	t.Setenv("PATH", os.Getenv("PATH"))

	rr := NewRecordingRunner()
	opts.Runner = rr
	if opts.Out == nil {
		opts.Out = &bytes.Buffer{}
	}
	if opts.Downloader == nil {
		opts.Downloader = &fakeDownloader{}
	}
	return New(testConfig(t), platform, tools, opts), rr
}

// setToolchains makes go, npm, python3, and pip3 resolve so bootstrap
// has nothing to install.
func setToolchains(rr *RecordingRunner) {
	rr.SetBinary("go", "/usr/bin/go")
	rr.SetBinary("npm", "/usr/bin/npm")
	rr.SetBinary("python3", "/usr/bin/python3")
	rr.SetBinary("pip3", "/usr/bin/pip3")
}

func findResult(t *testing.T, run *report.Run, tool string) report.Result {
	t.Helper()
	for _, res := range run.Results {
		if res.Tool == tool {
			return res
		}
	}
	t.Fatalf("no result for tool %q in %+v", tool, run.Results)
	return report.Result{}
}

// =============================================================================
// PIPELINE
// =============================================================================

func TestRunAptPipeline(t *testing.T) {
	tools := []manifest.Tool{
		{Name: "ffuf", Kind: manifest.KindGo, Package: "github.com/ffuf/ffuf/v2", Binary: "ffuf"},
		{Name: "shodan", Kind: manifest.KindPip, Package: "shodan", Binary: "shodan"},
	}
	eng, rr := newTestEngine(t, aptPlatform(), tools, Options{})
	setToolchains(rr)

	rr.OnRun = func(c Command) {
		switch {
		case strings.HasPrefix(c.String(), "go install"):
			rr.SetBinary("ffuf", "/tools/bin/ffuf")
		case strings.HasPrefix(c.String(), "pip3 install"):
			rr.SetBinary("shodan", "/home/op/.local/bin/shodan")
		}
	}

	run, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.Fatal != "" {
		t.Fatalf("Run() fatal = %q", run.Fatal)
	}

	for _, want := range []string{
		"sudo apt-get update",
		"sudo apt-get install -y git",
		"go install -v github.com/ffuf/ffuf/v2@latest",
		"pip3 install --user shodan",
	} {
		if !rr.Ran(want) {
			t.Errorf("expected a command starting with %q, got %v", want, rr.CommandStrings())
		}
	}

	counts := run.Counts()
	if counts.Installed != 2 {
		t.Errorf("Installed = %d, want 2 (results: %+v)", counts.Installed, run.Results)
	}
	if run.ExitCode(false) != 0 {
		t.Errorf("ExitCode(false) = %d, want 0", run.ExitCode(false))
	}
}

func TestRunSetsGOBIN(t *testing.T) {
	tools := []manifest.Tool{
		{Name: "ffuf", Kind: manifest.KindGo, Package: "github.com/ffuf/ffuf/v2", Binary: "ffuf"},
	}
	eng, rr := newTestEngine(t, aptPlatform(), tools, Options{})
	setToolchains(rr)

	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	binDir, err := eng.cfg.BinDir()
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, c := range rr.Commands {
		if c.Name != "go" {
			continue
		}
		found = true
		want := "GOBIN=" + binDir
		got := strings.Join(c.Env, " ")
		if !strings.Contains(got, want) {
			t.Errorf("go install env = %q, want it to contain %q", got, want)
		}
	}
	if !found {
		t.Fatalf("no go command recorded: %v", rr.CommandStrings())
	}
}

func TestRunFatalWithoutPackageManager(t *testing.T) {
	platform := aptPlatform()
	platform.PkgManager = detect.PkgManagerNone

	eng, rr := newTestEngine(t, platform, manifest.DefaultFor("linux"), Options{})
	setToolchains(rr)

	run, err := eng.Run(context.Background())
	if err == nil {
		t.Fatal("Run() error = nil, want package manager failure")
	}
	if run.Fatal == "" {
		t.Error("run.Fatal is empty, want the bootstrap error")
	}
	if len(run.Results) != 0 {
		t.Errorf("got %d tool results after fatal bootstrap, want 0", len(run.Results))
	}
	if run.ExitCode(false) != 1 {
		t.Errorf("ExitCode(false) = %d, want 1 for fatal run", run.ExitCode(false))
	}
}

func TestRunFatalOnUnsupportedOS(t *testing.T) {
	platform := aptPlatform()
	platform.OS = "windows"

	eng, _ := newTestEngine(t, platform, nil, Options{})

	_, err := eng.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("Run() error = %v, want unsupported OS", err)
	}
}

func TestRunToolFailureDoesNotStopPipeline(t *testing.T) {
	tools := []manifest.Tool{
		{Name: "ffuf", Kind: manifest.KindGo, Package: "github.com/ffuf/ffuf/v2", Binary: "ffuf"},
		{Name: "anew", Kind: manifest.KindGo, Package: "github.com/tomnomnom/anew", Binary: "anew"},
	}
	eng, rr := newTestEngine(t, aptPlatform(), tools, Options{})
	setToolchains(rr)

	rr.Fail["go install -v github.com/ffuf/ffuf/v2@latest"] = errors.New("exit status 1")
	rr.OnRun = func(c Command) {
		if strings.Contains(c.String(), "anew") {
			rr.SetBinary("anew", "/tools/bin/anew")
		}
	}

	run, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, per-tool failures must not be fatal", err)
	}

	ffuf := findResult(t, run, "ffuf")
	if ffuf.Status != report.StatusFailed {
		t.Errorf("ffuf status = %s, want failed", ffuf.Status)
	}
	if !strings.Contains(ffuf.Err, "exit status 1") {
		t.Errorf("ffuf error = %q, want the installer error", ffuf.Err)
	}

	anew := findResult(t, run, "anew")
	if anew.Status != report.StatusInstalled {
		t.Errorf("anew status = %s, want installed", anew.Status)
	}

	if run.ExitCode(false) != 0 {
		t.Errorf("ExitCode(false) = %d, want 0: failures stay informational", run.ExitCode(false))
	}
	if run.ExitCode(true) != 1 {
		t.Errorf("ExitCode(true) = %d, want 1 under strict", run.ExitCode(true))
	}
}

func TestRunDryRunExecutesNothing(t *testing.T) {
	tools := []manifest.Tool{
		{Name: "ffuf", Kind: manifest.KindGo, Package: "github.com/ffuf/ffuf/v2", Binary: "ffuf"},
	}
	eng, rr := newTestEngine(t, aptPlatform(), tools, Options{DryRun: true})
	rr.SetBinary("go", "/usr/bin/go")

	run, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(rr.Commands) != 0 {
		t.Fatalf("dry run executed commands: %v", rr.CommandStrings())
	}
	if !run.DryRun {
		t.Error("run.DryRun = false")
	}

	res := findResult(t, run, "ffuf")
	if res.Status != report.StatusSkipped {
		t.Errorf("status = %s, want skipped", res.Status)
	}
	if !strings.Contains(res.Detail, "go install -v github.com/ffuf/ffuf/v2@latest") {
		t.Errorf("detail = %q, want the would-be command", res.Detail)
	}
}

// =============================================================================
// TOOL INSTALLATION
// =============================================================================

func TestInstallToolSkipsPresent(t *testing.T) {
	eng, rr := newTestEngine(t, aptPlatform(), nil, Options{})
	rr.SetBinary("ffuf", "/usr/local/bin/ffuf")

	tool := manifest.Tool{Name: "ffuf", Kind: manifest.KindGo, Package: "github.com/ffuf/ffuf/v2", Binary: "ffuf"}
	res := eng.InstallTool(context.Background(), tool)

	if res.Status != report.StatusPresent {
		t.Errorf("status = %s, want present", res.Status)
	}
	if res.Path != "/usr/local/bin/ffuf" {
		t.Errorf("path = %q", res.Path)
	}
	if len(rr.Commands) != 0 {
		t.Errorf("present tool triggered commands: %v", rr.CommandStrings())
	}
}

func TestInstallToolFallbackPackage(t *testing.T) {
	eng, rr := newTestEngine(t, aptPlatform(), nil, Options{})
	rr.SetBinary("npm", "/usr/bin/npm")

	prefix, err := eng.cfg.NpmPrefix()
	if err != nil {
		t.Fatal(err)
	}

	rr.Fail["npm install -g --prefix "+prefix+" alpha"] = errors.New("404 not found")
	rr.OnRun = func(c Command) {
		if strings.HasSuffix(c.String(), " beta") {
			rr.SetBinary("scanner", "/tools/npm/bin/scanner")
		}
	}

	tool := manifest.Tool{
		Name:      "scanner",
		Kind:      manifest.KindNpm,
		Package:   "alpha",
		Fallbacks: []string{"beta"},
		Binary:    "scanner",
	}
	res := eng.InstallTool(context.Background(), tool)

	if res.Status != report.StatusInstalled {
		t.Fatalf("status = %s (err %q), want installed via fallback", res.Status, res.Err)
	}
	if res.Detail != "via beta" {
		t.Errorf("detail = %q, want fallback package noted", res.Detail)
	}
	if !rr.Ran("npm install -g --prefix " + prefix + " alpha") {
		t.Error("primary package was never tried")
	}
}

func TestInstallToolSnapNeedsPrivilege(t *testing.T) {
	platform := aptPlatform()
	platform.Privilege = detect.PrivilegeNone

	eng, _ := newTestEngine(t, platform, nil, Options{})

	tool := manifest.Tool{Name: "amass", Kind: manifest.KindSnap, Package: "amass", Binary: "amass"}
	res := eng.InstallTool(context.Background(), tool)

	if res.Status != report.StatusFailed {
		t.Fatalf("status = %s, want failed", res.Status)
	}
	if !strings.Contains(res.Err, "requires root") {
		t.Errorf("error = %q, want privilege explanation", res.Err)
	}
}

func TestInstallToolMissingAfterInstall(t *testing.T) {
	eng, rr := newTestEngine(t, aptPlatform(), nil, Options{})
	rr.SetBinary("go", "/usr/bin/go")

	tool := manifest.Tool{Name: "ffuf", Kind: manifest.KindGo, Package: "github.com/ffuf/ffuf/v2", Binary: "ffuf"}
	res := eng.InstallTool(context.Background(), tool)

	if res.Status != report.StatusMissing {
		t.Fatalf("status = %s, want missing when the binary never appears", res.Status)
	}
	if !strings.Contains(res.Detail, "binary not found") {
		t.Errorf("detail = %q", res.Detail)
	}
}

func TestInstallCommandPerKind(t *testing.T) {
	eng, rr := newTestEngine(t, aptPlatform(), nil, Options{})
	setToolchains(rr)
	rr.SetBinary("brew", "/opt/homebrew/bin/brew")

	binDir, err := eng.cfg.BinDir()
	if err != nil {
		t.Fatal(err)
	}
	prefix, err := eng.cfg.NpmPrefix()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		kind manifest.Kind
		pkg  string
		want string
	}{
		{manifest.KindGo, "github.com/tomnomnom/anew", "go install -v github.com/tomnomnom/anew@latest"},
		{manifest.KindPip, "shodan", "pip3 install --user shodan"},
		{manifest.KindNpm, "wappalyzer", "npm install -g --prefix " + prefix + " wappalyzer"},
		{manifest.KindApt, "masscan", "sudo apt-get install -y masscan"},
		{manifest.KindBrew, "amass", "brew install amass"},
		{manifest.KindSnap, "amass", "sudo snap install amass"},
	}

	for _, tt := range tests {
		cmd, err := eng.installCommand(tt.kind, tt.pkg)
		if err != nil {
			t.Errorf("installCommand(%s, %s) error = %v", tt.kind, tt.pkg, err)
			continue
		}
		if cmd.String() != tt.want {
			t.Errorf("installCommand(%s, %s) = %q, want %q", tt.kind, tt.pkg, cmd.String(), tt.want)
		}
		if tt.kind == manifest.KindGo {
			joined := strings.Join(cmd.Env, " ")
			if !strings.Contains(joined, "GOBIN="+binDir) {
				t.Errorf("go command env = %q, want GOBIN", joined)
			}
		}
	}
}

func TestInstallCommandRootSkipsSudo(t *testing.T) {
	platform := aptPlatform()
	platform.Privilege = detect.PrivilegeRoot

	eng, _ := newTestEngine(t, platform, nil, Options{})

	cmd, err := eng.installCommand(manifest.KindApt, "masscan")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Name != "apt-get" {
		t.Errorf("root install starts with %q, want apt-get unwrapped", cmd.Name)
	}
}

// =============================================================================
// BOOTSTRAP
// =============================================================================

func TestBootstrapBasePackagesBrew(t *testing.T) {
	eng, rr := newTestEngine(t, brewPlatform(), nil, Options{})

	if err := eng.BootstrapPackageManager(context.Background()); err != nil {
		t.Fatalf("BootstrapPackageManager() error = %v", err)
	}
	if !rr.Ran("brew install git") {
		t.Errorf("commands = %v, want one brew install for the base packages", rr.CommandStrings())
	}
	if rr.Ran("sudo") {
		t.Errorf("brew bootstrap used sudo: %v", rr.CommandStrings())
	}
}

func TestBootstrapBasePackagesOverride(t *testing.T) {
	eng, rr := newTestEngine(t, aptPlatform(), nil, Options{})
	eng.cfg.Install.BasePackages = []string{"git", "jq"}

	if err := eng.BootstrapPackageManager(context.Background()); err != nil {
		t.Fatalf("BootstrapPackageManager() error = %v", err)
	}
	if !rr.Ran("sudo apt-get install -y git jq") {
		t.Errorf("commands = %v, want the override list verbatim", rr.CommandStrings())
	}
}

func TestBootstrapToolchainsAllPresent(t *testing.T) {
	eng, rr := newTestEngine(t, aptPlatform(), nil, Options{})
	setToolchains(rr)

	if err := eng.BootstrapToolchains(context.Background()); err != nil {
		t.Fatalf("BootstrapToolchains() error = %v", err)
	}
	if len(rr.Commands) != 0 {
		t.Errorf("toolchains present but commands ran: %v", rr.CommandStrings())
	}
}

func TestBootstrapToolchainsInstallsNode(t *testing.T) {
	eng, rr := newTestEngine(t, aptPlatform(), nil, Options{})
	rr.SetBinary("go", "/usr/bin/go")
	rr.SetBinary("python3", "/usr/bin/python3")
	rr.SetBinary("pip3", "/usr/bin/pip3")

	if err := eng.BootstrapToolchains(context.Background()); err != nil {
		t.Fatalf("BootstrapToolchains() error = %v", err)
	}
	if !rr.Ran("sudo apt-get install -y nodejs npm") {
		t.Errorf("commands = %v, want node installed via apt", rr.CommandStrings())
	}
}

func TestEnsureDirsCreatesTree(t *testing.T) {
	eng, _ := newTestEngine(t, aptPlatform(), nil, Options{})

	if err := eng.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs() error = %v", err)
	}

	for _, f := range []func() (string, error){eng.cfg.BinDir, eng.cfg.SrcDir, eng.cfg.NpmPrefix} {
		dir, err := f()
		if err != nil {
			t.Fatal(err)
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("%s missing after EnsureDirs (err %v)", dir, err)
		}
	}
}

func TestEnsureDirsDryRunCreatesNothing(t *testing.T) {
	eng, _ := newTestEngine(t, aptPlatform(), nil, Options{DryRun: true})

	if err := eng.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs() error = %v", err)
	}

	binDir, err := eng.cfg.BinDir()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(binDir); !os.IsNotExist(err) {
		t.Errorf("dry run created %s", binDir)
	}
}

// =============================================================================
// WORDLISTS AND ENVIRONMENT
// =============================================================================

type fakeSyncer struct {
	results []report.Result
	called  bool
}

func (f *fakeSyncer) SyncAll(ctx context.Context) []report.Result {
	f.called = true
	return f.results
}

func TestRunCollectsWordlistResults(t *testing.T) {
	syncer := &fakeSyncer{results: []report.Result{
		{Tool: "OneListForAll", Kind: "git", Status: report.StatusInstalled},
	}}

	eng, rr := newTestEngine(t, aptPlatform(), nil, Options{Wordlists: syncer})
	eng.cfg.Install.SkipWordlists = false
	setToolchains(rr)

	run, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !syncer.called {
		t.Fatal("wordlist syncer never ran")
	}
	res := findResult(t, run, "OneListForAll")
	if res.Status != report.StatusInstalled {
		t.Errorf("wordlist result status = %s", res.Status)
	}
}

func TestRunSkipWordlists(t *testing.T) {
	syncer := &fakeSyncer{}
	eng, rr := newTestEngine(t, aptPlatform(), nil, Options{Wordlists: syncer})
	eng.cfg.Install.SkipWordlists = true
	setToolchains(rr)

	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if syncer.called {
		t.Error("wordlist syncer ran despite skip_wordlists")
	}
}

func TestRunReconcilesEnvironment(t *testing.T) {
	rcPath := filepath.Join(t.TempDir(), ".bashrc")

	eng, rr := newTestEngine(t, aptPlatform(), nil, Options{})
	eng.cfg.Env.Manage = true
	eng.cfg.Env.RCFiles = []string{rcPath}
	setToolchains(rr)

	run, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	res := findResult(t, run, "shell environment")
	if res.Status != report.StatusInstalled {
		t.Fatalf("env result status = %s (detail %q)", res.Status, res.Detail)
	}

	content, err := os.ReadFile(rcPath)
	if err != nil {
		t.Fatal(err)
	}
	binDir, err := eng.cfg.BinDir()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), binDir) {
		t.Errorf("rc file lacks the bin dir export:\n%s", content)
	}

	// Second run converges: nothing added, status present.
	run2, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	res2 := findResult(t, run2, "shell environment")
	if res2.Status != report.StatusPresent {
		t.Errorf("second env result status = %s, want present", res2.Status)
	}

	content2, err := os.ReadFile(rcPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(content2) != string(content) {
		t.Errorf("rc file changed on second run:\n%s\nvs\n%s", content, content2)
	}
}

// =============================================================================
// BINARY RESOLUTION
// =============================================================================

func TestResolveBinaryChecksInstallDirs(t *testing.T) {
	eng, _ := newTestEngine(t, aptPlatform(), nil, Options{})

	binDir, err := eng.cfg.BinDir()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(binDir, 0755); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(binDir, "httpx")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}

	got, ok := eng.ResolveBinary("httpx")
	if !ok || got != path {
		t.Errorf("ResolveBinary(httpx) = %q, %v; want %q", got, ok, path)
	}

	if _, ok := eng.ResolveBinary("no-such-binary-xyz"); ok {
		t.Error("ResolveBinary found a binary that does not exist")
	}
}

func TestResolveBinaryIgnoresNonExecutable(t *testing.T) {
	eng, _ := newTestEngine(t, aptPlatform(), nil, Options{})

	binDir, err := eng.cfg.BinDir()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(binDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(binDir, "notes"), []byte("text"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, ok := eng.ResolveBinary("notes"); ok {
		t.Error("ResolveBinary returned a non-executable file")
	}
}
