// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// doctor.go - Environment health checks for reconrig.
//
// Command: doctor
// Short: Run environment health checks
// Aliases: diag
// Subcommands: fix (same as --fix)
//
// Checks the host the way the installer will find it: platform
// support, package manager, privileges, toolchains on the current
// PATH, tools directory, shell PATH wiring, disk space, and the
// config file. Checks never modify anything; --fix attempts the
// small allowlisted repairs.
//
// Flags:
//
//	--json  Machine-readable check results on stdout
//	--fix   Attempt allowlisted auto-fixes for failed checks
//
// Examples:
//
//	reconrig doctor
//	reconrig doctor --fix
//	reconrig doctor --json | jq '.data.summary'

package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jeranaias/reconrig/internal/config"
	"github.com/jeranaias/reconrig/internal/detect"
	"github.com/jeranaias/reconrig/internal/env"
	"github.com/jeranaias/reconrig/internal/util"
)

// =============================================================================
// CHECK MODEL
// =============================================================================

// CheckStatus is the outcome of a single health check.
type CheckStatus int

const (
	// CheckPass means the check found nothing wrong.
	CheckPass CheckStatus = iota
	// CheckWarn means the check found something degraded but workable.
	CheckWarn
	// CheckFail means the check found a blocker for provisioning.
	CheckFail
)

// String returns the lowercase name used in JSON output.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarn:
		return "warn"
	default:
		return "fail"
	}
}

// Symbol returns the styled status tag for human output.
func (s CheckStatus) Symbol() string {
	switch s {
	case CheckPass:
		return SuccessStyle.Render("[OK]  ")
	case CheckWarn:
		return WarningStyle.Render("[WARN]")
	default:
		return ErrorStyle.Render("[FAIL]")
	}
}

// HealthCheck is one named check result.
type HealthCheck struct {
	Name    string      // short check name
	Status  CheckStatus // pass, warn, or fail
	Message string      // what was found
	Fix     string      // suggested fix; "Run: ..." prefix marks it executable
}

// Render formats the check for human output.
func (c HealthCheck) Render() string {
	line := fmt.Sprintf("%s %-22s %s", c.Status.Symbol(), c.Name, c.Message)
	if c.Status != CheckPass && c.Fix != "" {
		line += "\n" + DimStyle.Render(fmt.Sprintf("       fix: %s", c.Fix))
	}
	return line
}

// =============================================================================
// FIX ALLOWLIST
// =============================================================================

// allowedFixCommands are the exact fix invocations TryFix may execute.
// Anything else, hand-edited fix strings included, is refused.
var allowedFixCommands = map[string]bool{
	"reconrig env apply --yes": true,
}

// isAllowedFixCommand reports whether a fix command may run. Exact
// allowlist matches pass; the only dynamic form is mkdir -p under the
// user's home directory.
func isAllowedFixCommand(cmdStr string) bool {
	if allowedFixCommands[cmdStr] {
		return true
	}

	parts := strings.Fields(cmdStr)
	if len(parts) == 3 && parts[0] == "mkdir" && parts[1] == "-p" {
		home, err := os.UserHomeDir()
		if err != nil {
			return false
		}
		dir := filepath.Clean(parts[2])
		return dir == home || strings.HasPrefix(dir, home+string(filepath.Separator))
	}

	return false
}

// TryFix executes the check's fix command if it is runnable and
// allowlisted. Fix strings without the "Run: " prefix are hints for
// the user, never executed.
func (c HealthCheck) TryFix() error {
	if !strings.HasPrefix(c.Fix, "Run: ") {
		return fmt.Errorf("no runnable fix for %s", c.Name)
	}

	cmdStr := strings.TrimPrefix(c.Fix, "Run: ")
	if !isAllowedFixCommand(cmdStr) {
		return fmt.Errorf("fix command not in allowlist: %s", cmdStr)
	}

	parts := strings.Fields(cmdStr)
	name, cmdArgs := parts[0], parts[1:]

	// Self-invocations must work before PATH wiring exists.
	if name == "reconrig" {
		if exe, err := os.Executable(); err == nil {
			name = exe
		}
	}

	cmd := exec.Command(name, cmdArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// =============================================================================
// COMMAND HANDLER
// =============================================================================

// HandleDoctor handles the "doctor" command.
func HandleDoctor(args Args) error {
	checks := runAllChecks()
	passed, warned, failed := countChecks(checks)

	if args.JSON {
		return handleDoctorJSON(checks, passed, warned, failed)
	}

	fmt.Println(TitleStyle.Render("reconrig doctor"))
	fmt.Println(RenderSeparator(41))

	for _, check := range checks {
		fmt.Println(check.Render())
	}

	fmt.Println(SeparatorStyle.Render(strings.Repeat("-", 41)))
	fmt.Printf("%d passed, %d warning, %d failed\n", passed, warned, failed)

	if args.Fix {
		fmt.Println()
		if runFixes(checks) > 0 {
			// Re-run so the summary reflects the repairs.
			checks = runAllChecks()
			passed, warned, failed = countChecks(checks)
			fmt.Println()
			fmt.Printf("After fixes: %d passed, %d warning, %d failed\n", passed, warned, failed)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d health check(s) failed", failed)
	}
	return nil
}

// handleDoctorJSON outputs check results in JSON format. The envelope's
// success field reflects health; the exit code stays 0 so pipelines can
// read the body.
func handleDoctorJSON(checks []HealthCheck, passed, warned, failed int) error {
	data := DoctorData{
		Checks: make([]DoctorCheck, 0, len(checks)),
		Summary: DoctorSummary{
			Passed:  passed,
			Warned:  warned,
			Failed:  failed,
			Healthy: failed == 0,
		},
	}

	for _, check := range checks {
		data.Checks = append(data.Checks, DoctorCheck{
			Name:    check.Name,
			Status:  check.Status.String(),
			Message: check.Message,
			Fix:     check.Fix,
		})
	}

	resp := NewJSONResponse("doctor", data)
	if failed > 0 {
		resp.Success = false
	}
	return resp.Print()
}

// countChecks tallies check outcomes.
func countChecks(checks []HealthCheck) (passed, warned, failed int) {
	for _, check := range checks {
		switch check.Status {
		case CheckPass:
			passed++
		case CheckWarn:
			warned++
		default:
			failed++
		}
	}
	return passed, warned, failed
}

// runFixes attempts every runnable fix and reports each outcome.
// Returns the number of fixes that succeeded.
func runFixes(checks []HealthCheck) int {
	attempted, fixed := 0, 0

	for _, check := range checks {
		if check.Status == CheckPass || !strings.HasPrefix(check.Fix, "Run: ") {
			continue
		}
		attempted++

		fmt.Printf("%s %s\n", InfoStyle.Render("fixing:"), check.Name)
		if err := check.TryFix(); err != nil {
			fmt.Printf("  %s %v\n", ErrorStyle.Render("[FAIL]"), err)
			continue
		}
		fmt.Printf("  %s %s\n", SuccessStyle.Render("[OK]"), strings.TrimPrefix(check.Fix, "Run: "))
		fixed++
	}

	if attempted == 0 {
		fmt.Println(DimStyle.Render("No auto-fixable checks."))
	}
	return fixed
}

// =============================================================================
// CHECKS
// =============================================================================

// runAllChecks executes every health check. Checks only observe; the
// config check reports a broken file instead of aborting the run.
func runAllChecks() []HealthCheck {
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		cfg = config.Default()
	}
	platform := detect.Detect()

	checks := []HealthCheck{
		checkPlatform(platform),
		checkPackageManager(platform),
		checkPrivileges(platform),
		checkConfigFile(cfgErr),
	}

	for _, bin := range []struct {
		name   string
		binary string
	}{
		{"go toolchain", "go"},
		{"node toolchain", "node"},
		{"npm", "npm"},
		{"python3", "python3"},
		{"pip3", "pip3"},
		{"git", "git"},
	} {
		checks = append(checks, checkBinary(bin.name, bin.binary))
	}

	checks = append(checks,
		checkToolsDir(cfg),
		checkPathWiring(cfg, platform),
		checkDiskSpace(cfg),
	)

	return checks
}

// checkPlatform verifies the operating system is provisionable.
func checkPlatform(platform *detect.Platform) HealthCheck {
	check := HealthCheck{Name: "operating system"}
	if !platform.Supported() {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("%s is not supported (linux and darwin only)", platform.OS)
		return check
	}
	check.Status = CheckPass
	check.Message = fmt.Sprintf("%s/%s supported", platform.OS, platform.Arch)
	return check
}

// checkPackageManager verifies apt or brew is available.
func checkPackageManager(platform *detect.Platform) HealthCheck {
	check := HealthCheck{Name: "package manager"}
	if platform.PkgManager == detect.PkgManagerNone {
		check.Status = CheckFail
		check.Message = "no supported package manager found"
		if platform.OS == "darwin" {
			check.Fix = "Install Homebrew from https://brew.sh"
		}
		return check
	}
	check.Status = CheckPass
	check.Message = platform.PkgManager.String() + " available"
	if platform.HasSnap {
		check.Message += " (snap present)"
	}
	return check
}

// checkPrivileges verifies root-requiring installers can run.
func checkPrivileges(platform *detect.Platform) HealthCheck {
	check := HealthCheck{Name: "privileges"}
	switch platform.Privilege {
	case detect.PrivilegeRoot:
		check.Status = CheckPass
		check.Message = "running as root"
	case detect.PrivilegeSudo:
		check.Status = CheckPass
		check.Message = "sudo available"
	default:
		check.Status = CheckWarn
		check.Message = "no root or sudo; package manager installs will fail"
		if platform.PkgManager == detect.PkgManagerBrew {
			check.Status = CheckPass
			check.Message = "unprivileged (fine for brew)"
		}
	}
	return check
}

// checkConfigFile reports on the config file's health.
func checkConfigFile(cfgErr error) HealthCheck {
	check := HealthCheck{Name: "configuration"}
	if cfgErr != nil {
		check.Status = CheckFail
		check.Message = cfgErr.Error()
		check.Fix = "Edit or remove the file shown by 'reconrig config path'"
		return check
	}
	check.Status = CheckPass
	check.Message = "config loads and validates"
	return check
}

// checkBinary reports whether a toolchain binary resolves on the
// current PATH. Missing toolchains are warnings: an install run
// provisions them.
func checkBinary(name, binary string) HealthCheck {
	check := HealthCheck{Name: name}
	if path, err := exec.LookPath(binary); err == nil {
		check.Status = CheckPass
		check.Message = path
		return check
	}
	check.Status = CheckWarn
	check.Message = "not on PATH in this shell"
	check.Fix = "Run 'reconrig install', then open a new shell"
	return check
}

// checkToolsDir verifies the tools directory exists and is writable.
func checkToolsDir(cfg *config.Config) HealthCheck {
	check := HealthCheck{Name: "tools directory"}

	toolsDir, err := cfg.ResolvedToolsDir()
	if err != nil {
		check.Status = CheckFail
		check.Message = err.Error()
		return check
	}

	info, err := os.Stat(toolsDir)
	if os.IsNotExist(err) {
		check.Status = CheckWarn
		check.Message = fmt.Sprintf("%s does not exist yet", toolsDir)
		check.Fix = fmt.Sprintf("Run: mkdir -p %s", toolsDir)
		return check
	}
	if err != nil {
		check.Status = CheckFail
		check.Message = err.Error()
		return check
	}
	if !info.IsDir() {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("%s exists but is not a directory", toolsDir)
		return check
	}

	// Writability is what installs actually need.
	if !util.DirWritable(toolsDir) {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("%s is not writable", toolsDir)
		return check
	}

	check.Status = CheckPass
	check.Message = toolsDir
	return check
}

// checkPathWiring verifies the rc files carry every export line.
func checkPathWiring(cfg *config.Config, platform *detect.Platform) HealthCheck {
	check := HealthCheck{Name: "shell PATH wiring"}

	plan, err := env.BuildPlan(cfg, platform)
	if err != nil {
		check.Status = CheckFail
		check.Message = err.Error()
		return check
	}

	missing, err := plan.Missing()
	if err != nil {
		check.Status = CheckFail
		check.Message = err.Error()
		return check
	}

	if len(missing) > 0 {
		check.Status = CheckWarn
		check.Message = fmt.Sprintf("%d export line(s) missing from rc files", len(missing))
		check.Fix = "Run: reconrig env apply --yes"
		return check
	}

	check.Status = CheckPass
	check.Message = "rc files carry all export lines"
	return check
}

// Disk thresholds for provisioning: toolchains plus wordlists want a
// few GB free.
const (
	diskFailBytes = 1 << 30 // 1 GB
	diskWarnBytes = 5 << 30 // 5 GB
)

// checkDiskSpace verifies the tools directory's filesystem has room.
func checkDiskSpace(cfg *config.Config) HealthCheck {
	check := HealthCheck{Name: "disk space"}

	toolsDir, err := cfg.ResolvedToolsDir()
	if err != nil {
		check.Status = CheckWarn
		check.Message = err.Error()
		return check
	}

	// Walk up to the nearest existing directory so a fresh machine
	// still gets a reading.
	probe := toolsDir
	for {
		if _, err := os.Stat(probe); err == nil {
			break
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			break
		}
		probe = parent
	}

	free, err := detect.DiskFree(probe)
	if err != nil {
		check.Status = CheckWarn
		check.Message = fmt.Sprintf("could not read free space: %v", err)
		return check
	}

	switch {
	case free < diskFailBytes:
		check.Status = CheckFail
		check.Message = fmt.Sprintf("only %s free at %s", formatBytes(int64(free)), probe)
	case free < diskWarnBytes:
		check.Status = CheckWarn
		check.Message = fmt.Sprintf("%s free at %s (wordlists are large)", formatBytes(int64(free)), probe)
	default:
		check.Status = CheckPass
		check.Message = fmt.Sprintf("%s free at %s", formatBytes(int64(free)), probe)
	}
	return check
}
