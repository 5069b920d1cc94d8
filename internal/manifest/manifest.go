// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package manifest

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// INSTALLER KINDS
// =============================================================================

// Kind identifies which installer a tool is delivered through.
type Kind int

const (
	// KindGo installs with "go install <package>@latest" into the
	// workstation bin directory.
	KindGo Kind = iota
	// KindPip installs with "pip3 install --user <package>".
	KindPip
	// KindNpm installs with "npm install -g" under the workstation npm
	// prefix, keeping global packages out of system paths.
	KindNpm
	// KindApt installs with "apt-get install -y <package>".
	KindApt
	// KindBrew installs with "brew install <package>".
	KindBrew
	// KindSnap installs with "snap install <package>".
	KindSnap
	// KindGit clones a repository, used for wordlist collections.
	KindGit
)

// String returns the installer name as shown in summaries and stored in
// run history.
func (k Kind) String() string {
	switch k {
	case KindGo:
		return "go"
	case KindPip:
		return "pip"
	case KindNpm:
		return "npm"
	case KindApt:
		return "apt"
	case KindBrew:
		return "brew"
	case KindSnap:
		return "snap"
	case KindGit:
		return "git"
	default:
		return "unknown"
	}
}

// NeedsRoot reports whether the installer writes to system paths and
// therefore must run as root or through sudo.
func (k Kind) NeedsRoot() bool {
	return k == KindApt || k == KindSnap
}

// ParseKind converts an installer name back to its Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "go":
		return KindGo, nil
	case "pip":
		return KindPip, nil
	case "npm":
		return KindNpm, nil
	case "apt":
		return KindApt, nil
	case "brew":
		return KindBrew, nil
	case "snap":
		return KindSnap, nil
	case "git":
		return KindGit, nil
	default:
		return KindGo, fmt.Errorf("unknown installer kind: %q", s)
	}
}

// =============================================================================
// TOOL TABLE
// =============================================================================

// Tool describes one entry in the recon tool set: how it is installed
// and which binary proves it is present. The table is the single source
// of truth for install, status, and summary output.
type Tool struct {
	Name      string   // canonical tool name, used in summaries and --only
	Kind      Kind     // installer that delivers the tool
	Package   string   // package identifier for that installer
	Binary    string   // binary expected on PATH after install
	Fallbacks []string // alternative package identifiers, tried in order
	Note      string   // one-line description for listings
}

// Candidates returns the package identifiers to try, primary first.
func (t Tool) Candidates() []string {
	return append([]string{t.Package}, t.Fallbacks...)
}

// Default returns the tool table for the current platform.
func Default() []Tool {
	return DefaultFor(runtime.GOOS)
}

// DefaultFor returns the tool table for the given GOOS. Most tools
// install identically everywhere; the exceptions are the system-package
// entries, which go through snap on Linux and Homebrew on macOS.
func DefaultFor(goos string) []Tool {
	amass := Tool{
		Name:    "amass",
		Kind:    KindSnap,
		Package: "amass",
		Binary:  "amass",
		Note:    "attack surface mapping and asset discovery",
	}
	if goos == "darwin" {
		amass.Kind = KindBrew
	}

	return []Tool{
		{
			Name:    "ffuf",
			Kind:    KindGo,
			Package: "github.com/ffuf/ffuf/v2",
			Binary:  "ffuf",
			Note:    "fast web fuzzer",
		},
		{
			Name:    "subfinder",
			Kind:    KindGo,
			Package: "github.com/projectdiscovery/subfinder/v2/cmd/subfinder",
			Binary:  "subfinder",
			Note:    "passive subdomain discovery",
		},
		{
			Name:    "nuclei",
			Kind:    KindGo,
			Package: "github.com/projectdiscovery/nuclei/v3/cmd/nuclei",
			Binary:  "nuclei",
			Note:    "template-based vulnerability scanner",
		},
		{
			Name:    "httpx",
			Kind:    KindGo,
			Package: "github.com/projectdiscovery/httpx/cmd/httpx",
			Binary:  "httpx",
			Note:    "HTTP probing toolkit",
		},
		{
			Name:    "naabu",
			Kind:    KindGo,
			Package: "github.com/projectdiscovery/naabu/v2/cmd/naabu",
			Binary:  "naabu",
			Note:    "fast port scanner (needs libpcap)",
		},
		{
			Name:    "assetfinder",
			Kind:    KindGo,
			Package: "github.com/tomnomnom/assetfinder",
			Binary:  "assetfinder",
			Note:    "related domain and subdomain finder",
		},
		{
			Name:    "anew",
			Kind:    KindGo,
			Package: "github.com/tomnomnom/anew",
			Binary:  "anew",
			Note:    "append lines to files only if new",
		},
		{
			Name:    "waybackurls",
			Kind:    KindGo,
			Package: "github.com/tomnomnom/waybackurls",
			Binary:  "waybackurls",
			Note:    "fetch known URLs from the Wayback Machine",
		},
		amass,
		{
			Name:    "shodan",
			Kind:    KindPip,
			Package: "shodan",
			Binary:  "shodan",
			Note:    "Shodan search engine CLI",
		},
		{
			Name:      "wappalyzer",
			Kind:      KindNpm,
			Package:   "wappalyzer",
			Binary:    "wappalyzer",
			Fallbacks: []string{"wappalyzer-cli"},
			Note:      "website technology fingerprinting",
		},
	}
}

// Names returns the tool names in table order.
func Names(tools []Tool) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}

// NormalizeName canonicalizes a user-supplied tool name for matching.
// Input from flags may arrive in any Unicode normalization form; NFC
// plus case folding makes --only robust to both.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(name)))
}

// Find returns the tool with the given name, matching case-insensitively
// on either the tool name or its binary.
func Find(tools []Tool, name string) (Tool, bool) {
	want := NormalizeName(name)
	for _, t := range tools {
		if NormalizeName(t.Name) == want || NormalizeName(t.Binary) == want {
			return t, true
		}
	}
	return Tool{}, false
}

// Filter returns the subset of tools named in only, preserving table
// order. An unknown name is an error so a typo in --only cannot silently
// install nothing.
func Filter(tools []Tool, only []string) ([]Tool, error) {
	if len(only) == 0 {
		return tools, nil
	}

	wanted := make(map[string]bool, len(only))
	for _, name := range only {
		if _, ok := Find(tools, name); !ok {
			return nil, fmt.Errorf("unknown tool: %q (run 'reconrig tools' to list available tools)", name)
		}
		wanted[NormalizeName(name)] = true
	}

	var filtered []Tool
	for _, t := range tools {
		if wanted[NormalizeName(t.Name)] || wanted[NormalizeName(t.Binary)] {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// Validate checks the table for internal consistency. The compiled-in
// table is validated in tests; config-supplied extensions are validated
// at load time.
func Validate(tools []Tool) error {
	if len(tools) == 0 {
		return fmt.Errorf("tool table is empty")
	}

	seen := make(map[string]bool, len(tools))
	for i, t := range tools {
		if t.Name == "" {
			return fmt.Errorf("tool %d: name is empty", i)
		}
		if t.Package == "" {
			return fmt.Errorf("tool %q: package is empty", t.Name)
		}
		if t.Binary == "" {
			return fmt.Errorf("tool %q: binary is empty", t.Name)
		}
		if t.Kind < KindGo || t.Kind > KindGit {
			return fmt.Errorf("tool %q: invalid installer kind %d", t.Name, t.Kind)
		}
		key := NormalizeName(t.Name)
		if seen[key] {
			return fmt.Errorf("tool %q: duplicate name", t.Name)
		}
		seen[key] = true
	}
	return nil
}
