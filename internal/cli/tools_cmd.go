// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command: tools
// Short: list the tool manifest for this platform
// Aliases: manifest
//
// Prints every tool reconrig knows how to install on the detected
// platform, with the installer kind, package identifier, and expected
// binary. The same table drives install and status, so what is listed
// here is exactly what those commands act on.
//
// Examples:
//
//	reconrig tools
//	reconrig tools --json
package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jeranaias/reconrig/internal/detect"
	"github.com/jeranaias/reconrig/internal/manifest"
	"github.com/jeranaias/reconrig/internal/util"
)

// HandleTools lists the tool manifest for the detected platform.
func HandleTools(args Args) error {
	platform := detect.Detect()

	tools := manifest.DefaultFor(platform.OS)

	if args.JSON {
		infos := make([]ToolInfo, 0, len(tools))
		for _, t := range tools {
			infos = append(infos, ToolInfo{
				Name:      t.Name,
				Kind:      t.Kind.String(),
				Package:   t.Package,
				Binary:    t.Binary,
				Fallbacks: t.Fallbacks,
				Note:      t.Note,
			})
		}
		return NewJSONResponse("tools", infos).Print()
	}

	renderToolTable(platform, tools)
	return nil
}

// renderToolTable prints the manifest as an aligned table with a
// per-kind count line at the bottom.
func renderToolTable(platform *detect.Platform, tools []manifest.Tool) {
	fmt.Println(TitleStyle.Render("reconrig tools"))
	fmt.Printf("%s %s\n\n", LabelStyle.Render("Platform:"), ValueStyle.Render(platform.String()))

	nameWidth := len("NAME")
	kindWidth := len("KIND")
	pkgWidth := len("PACKAGE")
	for _, t := range tools {
		if w := util.StringWidth(t.Name); w > nameWidth {
			nameWidth = w
		}
		if w := util.StringWidth(t.Kind.String()); w > kindWidth {
			kindWidth = w
		}
		if w := util.StringWidth(t.Package); w > pkgWidth {
			pkgWidth = w
		}
	}

	header := fmt.Sprintf("%s  %s  %s  %s",
		util.PadWidth("NAME", nameWidth),
		util.PadWidth("KIND", kindWidth),
		util.PadWidth("PACKAGE", pkgWidth),
		"NOTE")
	fmt.Println(SectionStyle.Render(header))
	fmt.Println(RenderSeparator(util.StringWidth(header)))

	for _, t := range tools {
		note := t.Note
		if len(t.Fallbacks) > 0 {
			note = fmt.Sprintf("%s (fallback: %s)", note, t.Fallbacks[0])
		}
		fmt.Printf("%s  %s  %s  %s\n",
			ValueStyle.Render(util.PadWidth(t.Name, nameWidth)),
			DimStyle.Render(util.PadWidth(t.Kind.String(), kindWidth)),
			util.PadWidth(t.Package, pkgWidth),
			DimStyle.Render(util.TruncateRunes(note, 48)))
	}

	fmt.Println()
	fmt.Printf("%d tool(s): %s\n", len(tools), DimStyle.Render(kindBreakdown(tools)))
}

// kindBreakdown summarises the manifest by installer kind, e.g.
// "7 go, 2 snap, 1 pip, 1 apt".
func kindBreakdown(tools []manifest.Tool) string {
	counts := make(map[string]int)
	for _, t := range tools {
		counts[t.Kind.String()]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if counts[kinds[i]] != counts[kinds[j]] {
			return counts[kinds[i]] > counts[kinds[j]]
		}
		return kinds[i] < kinds[j]
	})
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%d %s", counts[k], k))
	}
	return strings.Join(parts, ", ")
}
