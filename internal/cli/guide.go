// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command: guide
// Short: render the post-install quickstart
// Aliases: quickstart
//
// Prints an embedded markdown walkthrough: where the tools live, how
// to wire PATH, and one starter invocation per installed tool. Useful
// right after a first install, or any time the layout is forgotten.
//
// Examples:
//
//	reconrig guide
//	reconrig guide --json
package cli

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// guideMarkdown is the embedded quickstart. Paths show defaults; a
// changed install.tools_dir moves everything accordingly.
const guideMarkdown = `# reconrig quickstart

## Layout

| Path | Contents |
|------|----------|
| ` + "`~/tools/bin`" + ` | installed binaries (go, pip script shims excluded) |
| ` + "`~/tools/src/OneListForAll`" + ` | wordlist checkout |
| ` + "`~/tools/npm`" + ` | npm prefix for global packages |
| ` + "`~/.reconrig/config.toml`" + ` | configuration |
| ` + "`~/.reconrig/history.db`" + ` | run journal |

## First steps

` + "```bash" + `
reconrig install        # provision everything
reconrig env apply      # wire PATH into your shell rc
source ~/.bashrc        # or open a new shell
reconrig status         # confirm every binary resolves
` + "```" + `

## The toolkit

` + "```bash" + `
# Subdomain enumeration
subfinder -d example.com -silent | anew subs.txt
assetfinder --subs-only example.com | anew subs.txt
amass enum -passive -d example.com

# Liveness and fingerprinting
cat subs.txt | httpx -title -status-code -tech-detect
wappalyzer https://example.com

# Port scanning
naabu -host example.com -top-ports 1000

# Content discovery
ffuf -u https://example.com/FUZZ -w ~/tools/src/OneListForAll/onelistforallshort.txt

# Historical URLs
waybackurls example.com | anew urls.txt

# Vulnerability scanning
nuclei -l urls.txt -severity medium,high,critical

# API reconnaissance
shodan init <api-key>
shodan host 8.8.8.8
` + "```" + `

## Keeping it healthy

` + "```bash" + `
reconrig doctor         # diagnose PATH, privileges, disk
reconrig wordlists      # refresh the wordlist checkout
reconrig history        # review past provisioning runs
reconrig install --only nuclei,httpx   # reinstall selected tools
` + "```" + `

Configuration lives in ` + "`~/.reconrig/config.toml`" + `; inspect and
edit it with ` + "`reconrig config`" + `.
`

// HandleGuide renders the quickstart for the terminal.
func HandleGuide(args Args) error {
	if args.JSON {
		return NewJSONResponse("guide", map[string]string{"markdown": guideMarkdown}).Print()
	}
	fmt.Print(renderGuideMarkdown(guideMarkdown))
	return nil
}

// renderGuideMarkdown renders markdown for terminal display, falling
// back to the raw text when the renderer cannot be built.
func renderGuideMarkdown(md string) string {
	width := GetTerminalWidth()
	if width > 100 {
		width = 100
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}

	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
