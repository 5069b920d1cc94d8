// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Tests for the doctor command's check model and the fix allowlist.
// The checks themselves probe the host, so coverage here sticks to the
// pure pieces: status rendering, tallying, and fix gating.
package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckStatusString(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{CheckPass, "pass"},
		{CheckWarn, "warn"},
		{CheckFail, "fail"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("CheckStatus(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestCheckStatusSymbol(t *testing.T) {
	if !strings.Contains(CheckPass.Symbol(), "[OK]") {
		t.Error("pass symbol should contain [OK]")
	}
	if !strings.Contains(CheckWarn.Symbol(), "[WARN]") {
		t.Error("warn symbol should contain [WARN]")
	}
	if !strings.Contains(CheckFail.Symbol(), "[FAIL]") {
		t.Error("fail symbol should contain [FAIL]")
	}
}

func TestHealthCheckRender(t *testing.T) {
	pass := HealthCheck{
		Name:    "git",
		Status:  CheckPass,
		Message: "/usr/bin/git",
		Fix:     "should never show",
	}
	out := pass.Render()
	if !strings.Contains(out, "git") || !strings.Contains(out, "/usr/bin/git") {
		t.Errorf("Render() = %q, want name and message", out)
	}
	if strings.Contains(out, "fix:") {
		t.Error("passing checks must not render a fix line")
	}

	fail := HealthCheck{
		Name:    "shell PATH wiring",
		Status:  CheckFail,
		Message: "2 export line(s) missing",
		Fix:     "Run: reconrig env apply --yes",
	}
	out = fail.Render()
	if !strings.Contains(out, "fix: Run: reconrig env apply --yes") {
		t.Errorf("Render() = %q, want fix line", out)
	}
}

func TestCountChecks(t *testing.T) {
	checks := []HealthCheck{
		{Status: CheckPass},
		{Status: CheckPass},
		{Status: CheckWarn},
		{Status: CheckFail},
		{Status: CheckPass},
	}

	passed, warned, failed := countChecks(checks)
	if passed != 3 || warned != 1 || failed != 1 {
		t.Errorf("countChecks = (%d, %d, %d), want (3, 1, 1)", passed, warned, failed)
	}

	passed, warned, failed = countChecks(nil)
	if passed != 0 || warned != 0 || failed != 0 {
		t.Errorf("countChecks(nil) = (%d, %d, %d), want zeros", passed, warned, failed)
	}
}

// =============================================================================
// FIX ALLOWLIST
// =============================================================================

func TestIsAllowedFixCommand(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir: %v", err)
	}

	tests := []struct {
		name string
		cmd  string
		want bool
	}{
		{"env apply allowlisted", "reconrig env apply --yes", true},
		{"env apply without yes", "reconrig env apply", false},
		{"arbitrary command", "rm -rf /", false},
		{"mkdir under home", "mkdir -p " + filepath.Join(home, "recon-tools"), true},
		{"mkdir home itself", "mkdir -p " + home, true},
		{"mkdir wrong arity", "mkdir -p", false},
		{"mkdir extra args", "mkdir -p a b", false},
		{"mkdir traversal out of home", "mkdir -p " + home + "/../escape-probe", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isAllowedFixCommand(tt.cmd); got != tt.want {
				t.Errorf("isAllowedFixCommand(%q) = %v, want %v", tt.cmd, got, tt.want)
			}
		})
	}
}

func TestTryFix_RefusesNonRunnable(t *testing.T) {
	check := HealthCheck{
		Name:   "package manager",
		Status: CheckFail,
		Fix:    "Install Homebrew from https://brew.sh",
	}
	if err := check.TryFix(); err == nil {
		t.Error("TryFix should refuse fixes without the Run: prefix")
	}
}

func TestTryFix_RefusesUnlisted(t *testing.T) {
	check := HealthCheck{
		Name:   "tools directory",
		Status: CheckFail,
		Fix:    "Run: rm -rf /",
	}
	err := check.TryFix()
	if err == nil {
		t.Fatal("TryFix should refuse commands outside the allowlist")
	}
	if !strings.Contains(err.Error(), "not in allowlist") {
		t.Errorf("error = %v, want allowlist refusal", err)
	}
}
