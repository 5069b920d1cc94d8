// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// =============================================================================
// PACKAGE MANAGER
// =============================================================================

// PkgManager identifies the OS-native package manager used for base
// packages and system-kind tools.
type PkgManager int

const (
	// PkgManagerNone means no supported package manager was found.
	PkgManagerNone PkgManager = iota
	// PkgManagerApt is apt-get on Debian-derived Linux.
	PkgManagerApt
	// PkgManagerBrew is Homebrew on macOS.
	PkgManagerBrew
)

// String returns the package manager name for display.
func (p PkgManager) String() string {
	switch p {
	case PkgManagerApt:
		return "apt"
	case PkgManagerBrew:
		return "brew"
	default:
		return "none"
	}
}

// =============================================================================
// PRIVILEGE
// =============================================================================

// Privilege describes how the current process can reach root for
// package manager operations.
type Privilege int

const (
	// PrivilegeNone means neither root nor sudo is available.
	PrivilegeNone Privilege = iota
	// PrivilegeRoot means the process already runs as root.
	PrivilegeRoot
	// PrivilegeSudo means sudo is on PATH and may prompt for a password.
	PrivilegeSudo
)

// String returns the privilege mode for display.
func (p Privilege) String() string {
	switch p {
	case PrivilegeRoot:
		return "root"
	case PrivilegeSudo:
		return "sudo"
	default:
		return "none"
	}
}

// =============================================================================
// PLATFORM
// =============================================================================

// Platform describes the host reconrig is provisioning: operating
// system, CPU architecture, package manager, and privilege mode. One
// Platform value flows through bootstrap, install, and doctor so every
// step sees the same answers.
type Platform struct {
	OS         string     // runtime.GOOS
	Arch       string     // runtime.GOARCH
	PkgManager PkgManager // apt or brew
	HasSnap    bool       // snapd present (Linux only)
	Privilege  Privilege  // root, sudo, or none
	Shell      string     // basename of $SHELL, empty if unset
}

// String returns a compact description, e.g. "linux/amd64 (apt, sudo)".
func (p *Platform) String() string {
	return fmt.Sprintf("%s/%s (%s, %s)", p.OS, p.Arch, p.PkgManager, p.Privilege)
}

// Supported reports whether reconrig can provision this OS.
func (p *Platform) Supported() bool {
	return p.OS == "linux" || p.OS == "darwin"
}

// CanEscalate reports whether root-requiring installers are usable.
func (p *Platform) CanEscalate() bool {
	return p.Privilege != PrivilegeNone
}

// =============================================================================
// DETECTION (with caching)
// =============================================================================

// PERFORMANCE: Cache detection results to avoid repeated PATH walks.
// The answers do not change during a run except when bootstrap installs
// a missing package manager, which calls ClearCache.
var (
	cachedPlatform *Platform
	cacheTime      time.Time
	cacheMutex     sync.RWMutex
	cacheTTL       = 5 * time.Minute
)

// Detect returns the host platform, using a cached result when fresh.
func Detect() *Platform {
	cacheMutex.RLock()
	if cachedPlatform != nil && time.Since(cacheTime) < cacheTTL {
		defer cacheMutex.RUnlock()
		return cachedPlatform
	}
	cacheMutex.RUnlock()

	platform := &Platform{
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		PkgManager: detectPkgManager(runtime.GOOS),
		HasSnap:    commandExists("snap"),
		Privilege:  detectPrivilege(),
		Shell:      detectShell(),
	}

	cacheMutex.Lock()
	cachedPlatform = platform
	cacheTime = time.Now()
	cacheMutex.Unlock()

	return platform
}

// ClearCache resets the cached platform. Used by tests and after
// bootstrap installs a package manager that was previously missing.
func ClearCache() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	cachedPlatform = nil
	cacheTime = time.Time{}
}

// detectPkgManager probes for the native package manager, preferring
// the conventional one for the OS.
func detectPkgManager(goos string) PkgManager {
	if goos == "darwin" {
		if commandExists("brew") {
			return PkgManagerBrew
		}
		return PkgManagerNone
	}
	if commandExists("apt-get") {
		return PkgManagerApt
	}
	// Linuxbrew is rare but serviceable for user-space installs.
	if commandExists("brew") {
		return PkgManagerBrew
	}
	return PkgManagerNone
}

// detectPrivilege determines how root can be reached. sudo presence is
// enough; the password prompt, if any, happens when a command runs.
func detectPrivilege() Privilege {
	if os.Geteuid() == 0 {
		return PrivilegeRoot
	}
	if commandExists("sudo") {
		return PrivilegeSudo
	}
	return PrivilegeNone
}

// detectShell returns the basename of $SHELL ("bash", "zsh"), or empty.
func detectShell() string {
	shell := os.Getenv("SHELL")
	if shell == "" {
		return ""
	}
	return filepath.Base(shell)
}

// commandExists checks if a command is available on PATH.
func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// =============================================================================
// GO TOOLCHAIN DOWNLOADS
// =============================================================================

// GoTarballArch maps a GOARCH value to the architecture token used in
// upstream Go release tarball names. Architectures without an upstream
// tarball are an error so the download path fails before any network
// traffic.
func GoTarballArch(goarch string) (string, error) {
	switch goarch {
	case "amd64", "arm64", "386":
		return goarch, nil
	case "arm":
		return "armv6l", nil
	default:
		return "", fmt.Errorf("no Go toolchain tarball for architecture %q", goarch)
	}
}

// GoTarballURL builds the upstream download URL for a Go release, e.g.
// https://go.dev/dl/go1.22.5.linux-amd64.tar.gz
func GoTarballURL(version, goos, tarArch string) string {
	return fmt.Sprintf("https://go.dev/dl/go%s.%s-%s.tar.gz", version, goos, tarArch)
}
