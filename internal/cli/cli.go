// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for reconrig.
//
// Parsing is hand-rolled: global flags first, then the command word,
// then command-specific flags. Every command accepts --json.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdWizard Command = iota // interactive setup wizard (default)
	CmdInstall
	CmdStatus
	CmdDoctor
	CmdTools
	CmdEnv
	CmdWordlists
	CmdHistory
	CmdConfig
	CmdGuide
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	JSON  bool // machine-readable output on stdout
	Quiet bool // suppress child command output
	Yes   bool // answer yes to confirmation prompts

	// install
	Only          []string // restrict the run to these manifest tools
	DryRun        bool
	Strict        bool
	SkipWordlists bool

	// status
	Watch bool

	// doctor
	Fix bool

	// Subcommand is the first positional after the command word
	// (env show, config set).
	Subcommand string

	// config set
	ConfigKey string
	ConfigVal string

	// Unknown holds an unrecognized command word so help can report it.
	Unknown string

	// Raw args (remaining after flag parsing) for handlers that run
	// their own ArgParser.
	Raw []string
}

const usageText = `reconrig - recon workstation bootstrap

Provisions a machine for reconnaissance work: package manager baseline,
Go and Node toolchains, the recon tool set, wordlists, and shell PATH
wiring. Safe to re-run; tools already present are left alone.

Usage:
  reconrig                   Interactive setup wizard (default)
  reconrig install, i        Run the full install pipeline
  reconrig status, s         Show which tools are present
  reconrig doctor [--fix]    Environment health checks
  reconrig tools             Print the tool manifest
  reconrig env [show|apply|path]
                             Shell PATH wiring
  reconrig wordlists         Clone or update wordlist repositories
  reconrig history [show <id>]
                             List recorded install runs
  reconrig config [show|set|reset|path]
                             View or modify configuration
  reconrig guide             Post-install quickstart
  reconrig version           Version information
  reconrig help              This help text

Install Flags:
  --only NAMES     Install only the named tools (comma-separated)
  --skip-wordlists Skip the wordlist sync step
  --dry-run        Print the plan without executing anything
  --strict         Exit 1 if any tool ends failed or missing

Other Flags:
  --watch          status: re-render when the bin directory changes
  --fix            doctor: attempt safe auto-fixes
  --limit N        history: number of runs to list (default: 20)

Global Flags:
  --json           Output in JSON format
  -q, --quiet      Suppress child command output
  -y, --yes        Skip confirmation prompts

Examples:
  # Provisioning
  reconrig                            Launch the setup wizard
  reconrig install                    Provision everything
  reconrig install --only ffuf,httpx  Install two tools
  reconrig install --dry-run          Preview without changes
  reconrig install --strict --json    CI mode: strict exit, JSON report

  # Inspection
  reconrig status                     Tool presence table
  reconrig status --json              Tool presence for scripts
  reconrig status --watch             Live view while installing
  reconrig doctor --fix               Check and repair the environment
  reconrig tools                      Show the manifest

  # Environment and wordlists
  reconrig env show                   Print the planned PATH lines
  reconrig env apply                  Write PATH lines to rc files
  reconrig wordlists                  Sync wordlist repositories

  # Records and configuration
  reconrig history                    Recent install runs
  reconrig history show 3f2a          Itemize one recorded run
  reconrig config show                Current configuration
  reconrig config set install.tools_dir ~/recon

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("reconrig version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	args := os.Args[1:]

	// Parse global flags first
	remaining, parsedArgs := parseGlobalFlags(args)

	// If no remaining args, default to the wizard
	if len(remaining) == 0 {
		return CmdWizard, parsedArgs
	}

	// Check first argument for command
	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "wizard":
		return CmdWizard, parsedArgs

	case "install", "i":
		parseInstallArgs(&parsedArgs, remaining)
		return CmdInstall, parsedArgs

	case "status", "s":
		parseStatusArgs(&parsedArgs, remaining)
		return CmdStatus, parsedArgs

	case "doctor", "diag":
		parseDoctorArgs(&parsedArgs, remaining)
		return CmdDoctor, parsedArgs

	case "tools", "manifest":
		return CmdTools, parsedArgs

	case "env":
		parseEnvArgs(&parsedArgs, remaining)
		return CmdEnv, parsedArgs

	case "wordlists", "wordlist":
		parseWordlistsArgs(&parsedArgs, remaining)
		return CmdWordlists, parsedArgs

	case "history", "hist":
		// Argument parsing is done in history_cmd.go HandleHistory
		if len(remaining) > 0 && !strings.HasPrefix(remaining[0], "-") {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdHistory, parsedArgs

	case "config", "cfg":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "guide", "quickstart":
		return CmdGuide, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown command: report it through help with a usage error.
		parsedArgs.Unknown = cmd
		return CmdHelp, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	parsedArgs := Args{}

	for _, arg := range args {
		switch arg {
		case "--json":
			parsedArgs.JSON = true
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-y", "--yes":
			parsedArgs.Yes = true
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, parsedArgs
}

// parseInstallArgs parses install command specific arguments.
func parseInstallArgs(args *Args, remaining []string) {
	i := 0
	for i < len(remaining) {
		arg := remaining[i]

		switch arg {
		case "--only":
			if i+1 < len(remaining) {
				i++
				args.Only = splitToolList(remaining[i])
			}
		case "--skip-wordlists":
			args.SkipWordlists = true
		case "--dry-run":
			args.DryRun = true
		case "--strict":
			args.Strict = true
		default:
			// Check for --only=value format
			if strings.HasPrefix(arg, "--only=") {
				args.Only = splitToolList(strings.TrimPrefix(arg, "--only="))
			}
		}
		i++
	}
}

// parseStatusArgs parses status command specific arguments.
func parseStatusArgs(args *Args, remaining []string) {
	for _, arg := range remaining {
		if arg == "--watch" || arg == "-w" {
			args.Watch = true
		}
	}
}

// parseWordlistsArgs parses wordlists command specific arguments.
func parseWordlistsArgs(args *Args, remaining []string) {
	for _, arg := range remaining {
		if arg == "--dry-run" {
			args.DryRun = true
		}
	}
}

// parseDoctorArgs parses doctor command specific arguments.
// "doctor fix" and "doctor --fix" are equivalent.
func parseDoctorArgs(args *Args, remaining []string) {
	for _, arg := range remaining {
		if arg == "--fix" || arg == "fix" {
			args.Fix = true
			args.Subcommand = "fix"
		}
	}
}

// parseEnvArgs parses the env subcommand. "show" is the default.
func parseEnvArgs(args *Args, remaining []string) {
	args.Subcommand = "show"
	for _, arg := range remaining {
		if !strings.HasPrefix(arg, "-") {
			args.Subcommand = strings.ToLower(arg)
			break
		}
	}
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	var positional []string
	for _, arg := range remaining {
		if !strings.HasPrefix(arg, "-") {
			positional = append(positional, arg)
		}
	}

	if len(positional) == 0 {
		args.Subcommand = "show"
		return
	}

	args.Subcommand = strings.ToLower(positional[0])
	if len(positional) > 1 {
		args.ConfigKey = positional[1]
	}
	if len(positional) > 2 {
		args.ConfigVal = positional[2]
	}
}

// splitToolList splits a comma-separated tool list, dropping empties.
func splitToolList(s string) []string {
	var names []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

// =============================================================================
// COMMAND DISPATCH
// =============================================================================

// One wrapper per command: run the handler, display the error once, and
// exit with the mapped code. main stays a plain dispatch switch.

// HandleInstallCommand runs the install pipeline and applies the run's
// exit policy: a fatal bootstrap error exits 1, strict mode turns
// failed/missing tools into exit 1, everything else exits 0.
func HandleInstallCommand(args Args) {
	run, strict, err := HandleInstall(args)
	if err != nil {
		DisplayError(err, args.JSON)
		if run != nil {
			// A run exists, so the pipeline started; its exit policy wins.
			os.Exit(run.ExitCode(strict))
		}
		os.Exit(GetExitCode(err))
	}
	if run != nil {
		if code := run.ExitCode(strict); code != 0 {
			os.Exit(code)
		}
	}
}

// HandleStatusCommand handles the "status" command.
func HandleStatusCommand(args Args) {
	if err := HandleStatus(args); err != nil {
		HandleErrorAndExit(err, args.JSON)
	}
}

// HandleDoctorCommand handles the "doctor" command.
func HandleDoctorCommand(args Args) {
	if err := HandleDoctor(args); err != nil {
		HandleErrorAndExit(err, args.JSON)
	}
}

// HandleToolsCommand handles the "tools" command.
func HandleToolsCommand(args Args) {
	if err := HandleTools(args); err != nil {
		HandleErrorAndExit(err, args.JSON)
	}
}

// HandleEnvCommand handles the "env" command.
func HandleEnvCommand(args Args) {
	if err := HandleEnv(args); err != nil {
		HandleErrorAndExit(err, args.JSON)
	}
}

// HandleWordlistsCommand handles the "wordlists" command.
func HandleWordlistsCommand(args Args) {
	if err := HandleWordlists(args); err != nil {
		HandleErrorAndExit(err, args.JSON)
	}
}

// HandleHistoryCommand handles the "history" command.
func HandleHistoryCommand(args Args) {
	if err := HandleHistory(args); err != nil {
		HandleErrorAndExit(err, args.JSON)
	}
}

// HandleConfigCommand handles the "config" command.
func HandleConfigCommand(args Args) {
	if err := HandleConfig(args); err != nil {
		HandleErrorAndExit(err, args.JSON)
	}
}

// HandleGuideCommand handles the "guide" command.
func HandleGuideCommand(args Args) {
	if err := HandleGuide(args); err != nil {
		HandleErrorAndExit(err, args.JSON)
	}
}

// HandleVersionCommand handles the "version" command.
func HandleVersionCommand(args Args) {
	if args.JSON {
		data := VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}
		resp := NewJSONResponse("version", data)
		if err := resp.Print(); err != nil {
			HandleErrorAndExit(err, true)
		}
		return
	}
	PrintVersion()
}

// HandleHelpCommand handles the "help" command. An unknown command word
// is a usage error.
func HandleHelpCommand(args Args) {
	if args.Unknown != "" {
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", args.Unknown)
		PrintUsage()
		os.Exit(ExitUsageError)
	}
	PrintUsage()
}
