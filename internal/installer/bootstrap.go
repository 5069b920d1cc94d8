// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeranaias/reconrig/internal/detect"
	"github.com/jeranaias/reconrig/internal/util"
)

// =============================================================================
// BASE PACKAGES
// =============================================================================

// Built-in base package lists, used when install.base_packages is not
// set. libpcap-dev is what naabu and masscan link against; the rest are
// the usual fetch-and-build plumbing.
var (
	basePackagesApt = []string{
		"git", "curl", "wget", "unzip", "jq",
		"build-essential", "libpcap-dev",
		"python3", "python3-pip",
	}
	basePackagesBrew = []string{
		"git", "curl", "wget", "jq",
	}
)

// BasePackages returns the packages the bootstrap step installs for
// this engine's platform.
func (e *Engine) BasePackages() []string {
	if len(e.cfg.Install.BasePackages) > 0 {
		return e.cfg.Install.BasePackages
	}
	switch e.platform.PkgManager {
	case detect.PkgManagerApt:
		return basePackagesApt
	case detect.PkgManagerBrew:
		return basePackagesBrew
	default:
		return nil
	}
}

// =============================================================================
// DIRECTORIES
// =============================================================================

// EnsureDirs creates the tools directory tree. Fatal when the tree
// cannot be created or written: nothing later in the pipeline has
// anywhere to put its output.
func (e *Engine) EnsureDirs() error {
	toolsDir, err := e.cfg.ResolvedToolsDir()
	if err != nil {
		return err
	}

	dirs := []string{toolsDir}
	for _, f := range []func() (string, error){e.cfg.BinDir, e.cfg.SrcDir, e.cfg.NpmPrefix, e.cfg.WordlistDir} {
		dir, err := f()
		if err != nil {
			return err
		}
		dirs = append(dirs, dir)
	}

	if e.dryRun {
		for _, dir := range dirs {
			if !util.DirExists(dir) {
				fmt.Fprintf(e.out, "dry run: would create %s\n", dir)
			}
		}
		return nil
	}

	for _, dir := range dirs {
		if err := util.EnsureDir(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	if !util.DirWritable(toolsDir) {
		return fmt.Errorf("tools directory %s is not writable", toolsDir)
	}
	return nil
}

// =============================================================================
// PACKAGE MANAGER
// =============================================================================

// BootstrapPackageManager makes sure a package manager exists and the
// base packages are installed. On macOS a missing Homebrew is installed
// first; on Linux a missing apt-get is fatal, we do not replace the
// distribution's package manager.
func (e *Engine) BootstrapPackageManager(ctx context.Context) error {
	if e.platform.PkgManager == detect.PkgManagerNone {
		if e.platform.OS != "darwin" {
			return errors.New("no supported package manager found (need apt-get or brew)")
		}
		if err := e.installHomebrew(ctx); err != nil {
			return fmt.Errorf("failed to install Homebrew: %w", err)
		}
	}

	packages := e.BasePackages()

	if e.dryRun {
		fmt.Fprintf(e.out, "dry run: would install base packages via %s: %v\n", e.platform.PkgManager, packages)
		return nil
	}

	switch e.platform.PkgManager {
	case detect.PkgManagerApt:
		update, err := e.sudoWrap("apt-get", "update")
		if err != nil {
			return err
		}
		if err := e.runCommand(ctx, update); err != nil {
			return fmt.Errorf("apt-get update failed: %w", err)
		}

		install, err := e.sudoWrap("apt-get", append([]string{"install", "-y"}, packages...)...)
		if err != nil {
			return err
		}
		if err := e.runCommand(ctx, install); err != nil {
			return fmt.Errorf("base package install failed: %w", err)
		}

	case detect.PkgManagerBrew:
		args := append([]string{"install"}, packages...)
		if err := e.runCommand(ctx, Cmd("brew", args...)); err != nil {
			return fmt.Errorf("base package install failed: %w", err)
		}

	default:
		return fmt.Errorf("package manager %s cannot install base packages", e.platform.PkgManager)
	}

	return nil
}

// installHomebrew runs the upstream Homebrew installer script. The
// script itself handles sudo for /opt/homebrew; NONINTERACTIVE keeps it
// from waiting on a confirmation we cannot type.
func (e *Engine) installHomebrew(ctx context.Context) error {
	if e.dryRun {
		fmt.Fprintln(e.out, "dry run: would install Homebrew")
		return nil
	}

	fmt.Fprintln(e.out, "Installing Homebrew")
	cmd := Cmd("/bin/bash", "-c",
		`curl -fsSL https://raw.githubusercontent.com/Homebrew/install/HEAD/install.sh | /bin/bash`,
	).WithEnv("NONINTERACTIVE=1")
	if err := e.runner.Run(ctx, cmd); err != nil {
		return err
	}

	// A fresh brew lives outside the login PATH until the user's next
	// shell. Wire it into this process so the rest of the run can use it.
	for _, dir := range []string{"/opt/homebrew/bin", "/usr/local/bin", "/home/linuxbrew/.linuxbrew/bin"} {
		if util.DirExists(dir) && !isOnProcessPath(dir) {
			os.Setenv("PATH", os.Getenv("PATH")+string(os.PathListSeparator)+dir)
		}
	}

	e.platform.PkgManager = detect.PkgManagerBrew
	detect.ClearCache()
	return nil
}

// isOnProcessPath reports whether dir is already a PATH segment.
func isOnProcessPath(dir string) bool {
	want := filepath.Clean(dir)
	for _, seg := range filepath.SplitList(os.Getenv("PATH")) {
		if filepath.Clean(seg) == want {
			return true
		}
	}
	return false
}

// =============================================================================
// LANGUAGE TOOLCHAINS
// =============================================================================

// BootstrapToolchains ensures the go, node, and python toolchains the
// manifest's installer kinds depend on. Failures here are fatal: a tool
// loop without its toolchains would fail every single entry anyway.
func (e *Engine) BootstrapToolchains(ctx context.Context) error {
	if e.dryRun {
		fmt.Fprintln(e.out, "dry run: would ensure go, node, and python toolchains")
		return nil
	}

	if err := e.ensureGo(ctx); err != nil {
		return fmt.Errorf("go toolchain: %w", err)
	}
	if err := e.ensureNode(ctx); err != nil {
		return fmt.Errorf("node toolchain: %w", err)
	}
	if err := e.ensurePython(ctx); err != nil {
		return fmt.Errorf("python toolchain: %w", err)
	}
	return nil
}

// ensureGo installs the Go toolchain when missing. macOS goes through
// Homebrew; Linux downloads the upstream tarball so the version is not
// at the mercy of the distribution's packaging lag.
func (e *Engine) ensureGo(ctx context.Context) error {
	if path, ok := e.runner.LookPath("go"); ok {
		fmt.Fprintf(e.out, "  go: %s\n", path)
		return nil
	}

	if e.platform.OS == "darwin" {
		return e.runCommand(ctx, Cmd("brew", "install", "go"))
	}
	return e.installGoToolchain(ctx)
}

// ensureNode installs node/npm when npm is missing. wappalyzer is the
// only npm tool, but the toolchain tier stays all-or-nothing.
func (e *Engine) ensureNode(ctx context.Context) error {
	if path, ok := e.runner.LookPath("npm"); ok {
		fmt.Fprintf(e.out, "  npm: %s\n", path)
		return nil
	}

	switch e.platform.PkgManager {
	case detect.PkgManagerApt:
		cmd, err := e.sudoWrap("apt-get", "install", "-y", "nodejs", "npm")
		if err != nil {
			return err
		}
		return e.runCommand(ctx, cmd)
	case detect.PkgManagerBrew:
		return e.runCommand(ctx, Cmd("brew", "install", "node"))
	default:
		return errors.New("npm is missing and no package manager can provide it")
	}
}

// ensurePython installs python3/pip3 when missing. The apt base
// packages already cover this on Debian; this is the net for hosts
// where the base install was trimmed.
func (e *Engine) ensurePython(ctx context.Context) error {
	pipOK := false
	if _, ok := e.runner.LookPath("pip3"); ok {
		pipOK = true
	} else if _, ok := e.runner.LookPath("pip"); ok {
		pipOK = true
	}
	if path, ok := e.runner.LookPath("python3"); ok && pipOK {
		fmt.Fprintf(e.out, "  python3: %s\n", path)
		return nil
	}

	switch e.platform.PkgManager {
	case detect.PkgManagerApt:
		cmd, err := e.sudoWrap("apt-get", "install", "-y", "python3", "python3-pip")
		if err != nil {
			return err
		}
		return e.runCommand(ctx, cmd)
	case detect.PkgManagerBrew:
		return e.runCommand(ctx, Cmd("brew", "install", "python3"))
	default:
		return errors.New("python3/pip3 is missing and no package manager can provide it")
	}
}
