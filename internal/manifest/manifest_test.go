// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// =============================================================================
// TABLE TESTS
// =============================================================================

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
	require.NoError(t, Validate(DefaultFor("linux")))
	require.NoError(t, Validate(DefaultFor("darwin")))
}

func TestDefault_ExpectedToolSet(t *testing.T) {
	want := []string{
		"ffuf", "subfinder", "nuclei", "httpx", "naabu",
		"assetfinder", "anew", "waybackurls", "amass", "shodan", "wappalyzer",
	}
	require.Equal(t, want, Names(DefaultFor("linux")))
	require.Equal(t, want, Names(DefaultFor("darwin")))
}

func TestDefaultFor_AmassInstallerPerPlatform(t *testing.T) {
	linux, ok := Find(DefaultFor("linux"), "amass")
	require.True(t, ok)
	require.Equal(t, KindSnap, linux.Kind)

	darwin, ok := Find(DefaultFor("darwin"), "amass")
	require.True(t, ok)
	require.Equal(t, KindBrew, darwin.Kind)
}

func TestDefault_GoToolsUseModulePaths(t *testing.T) {
	for _, tool := range DefaultFor("linux") {
		if tool.Kind != KindGo {
			continue
		}
		require.Contains(t, tool.Package, "github.com/", "tool %s", tool.Name)
		require.NotContains(t, tool.Package, "@", "version suffix belongs to the installer, tool %s", tool.Name)
	}
}

func TestTool_Candidates(t *testing.T) {
	wapp, ok := Find(Default(), "wappalyzer")
	require.True(t, ok)
	require.Equal(t, []string{"wappalyzer", "wappalyzer-cli"}, wapp.Candidates())

	ffuf, ok := Find(Default(), "ffuf")
	require.True(t, ok)
	require.Equal(t, []string{"github.com/ffuf/ffuf/v2"}, ffuf.Candidates())
}

// =============================================================================
// KIND TESTS
// =============================================================================

func TestKind_StringRoundTrip(t *testing.T) {
	kinds := []Kind{KindGo, KindPip, KindNpm, KindApt, KindBrew, KindSnap, KindGit}
	for _, k := range kinds {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		require.Equal(t, k, parsed)
	}
}

func TestParseKind_Unknown(t *testing.T) {
	_, err := ParseKind("cargo")
	require.Error(t, err)
}

func TestKind_NeedsRoot(t *testing.T) {
	require.True(t, KindApt.NeedsRoot())
	require.True(t, KindSnap.NeedsRoot())
	require.False(t, KindGo.NeedsRoot())
	require.False(t, KindPip.NeedsRoot())
	require.False(t, KindNpm.NeedsRoot())
	require.False(t, KindBrew.NeedsRoot())
}

// =============================================================================
// LOOKUP TESTS
// =============================================================================

func TestFind_CaseInsensitive(t *testing.T) {
	tool, ok := Find(Default(), "FFUF")
	require.True(t, ok)
	require.Equal(t, "ffuf", tool.Name)

	tool, ok = Find(Default(), "  Subfinder ")
	require.True(t, ok)
	require.Equal(t, "subfinder", tool.Name)
}

func TestFind_Unknown(t *testing.T) {
	_, ok := Find(Default(), "metasploit")
	require.False(t, ok)
}

func TestFilter_PreservesTableOrder(t *testing.T) {
	// Request in reverse order; output must follow the table.
	subset, err := Filter(Default(), []string{"nuclei", "ffuf"})
	require.NoError(t, err)
	require.Equal(t, []string{"ffuf", "nuclei"}, Names(subset))
}

func TestFilter_UnknownNameFails(t *testing.T) {
	_, err := Filter(Default(), []string{"ffuf", "nmap"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "nmap")
}

func TestFilter_EmptyReturnsAll(t *testing.T) {
	subset, err := Filter(Default(), nil)
	require.NoError(t, err)
	require.Len(t, subset, len(Default()))
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate_RejectsBadTables(t *testing.T) {
	tests := []struct {
		name  string
		tools []Tool
	}{
		{name: "empty table", tools: nil},
		{name: "missing name", tools: []Tool{{Kind: KindGo, Package: "p", Binary: "b"}}},
		{name: "missing package", tools: []Tool{{Name: "x", Kind: KindGo, Binary: "b"}}},
		{name: "missing binary", tools: []Tool{{Name: "x", Kind: KindGo, Package: "p"}}},
		{
			name: "duplicate name",
			tools: []Tool{
				{Name: "x", Kind: KindGo, Package: "p", Binary: "b"},
				{Name: "X", Kind: KindPip, Package: "q", Binary: "c"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, Validate(tt.tools))
		})
	}
}
