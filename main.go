// reconrig - Recon workstation bootstrap in one command.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"github.com/jeranaias/reconrig/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	// Parse CLI arguments
	cmd, args := cli.Parse()

	// Route to appropriate handler
	switch cmd {
	case cli.CmdWizard:
		cli.HandleWizardCommand(args)
	case cli.CmdInstall:
		cli.HandleInstallCommand(args)
	case cli.CmdStatus:
		cli.HandleStatusCommand(args)
	case cli.CmdDoctor:
		cli.HandleDoctorCommand(args)
	case cli.CmdTools:
		cli.HandleToolsCommand(args)
	case cli.CmdEnv:
		cli.HandleEnvCommand(args)
	case cli.CmdWordlists:
		cli.HandleWordlistsCommand(args)
	case cli.CmdHistory:
		cli.HandleHistoryCommand(args)
	case cli.CmdConfig:
		cli.HandleConfigCommand(args)
	case cli.CmdGuide:
		cli.HandleGuideCommand(args)
	case cli.CmdVersion:
		cli.HandleVersionCommand(args)
	case cli.CmdHelp:
		cli.HandleHelpCommand(args)
	default:
		cli.HandleWizardCommand(args) // Default to wizard
	}
}
