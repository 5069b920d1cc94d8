// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Unified confirmation handling for all CLI commands in reconrig.
//
// Single pattern for every command that changes the machine:
//   1. If --yes flag is present, proceed without prompting
//   2. If --json mode, require --yes flag (no interactive prompts in JSON mode)
//   3. If stdin is not a TTY, require --yes flag (can't prompt)
//   4. Otherwise, show interactive prompt for confirmation

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// =============================================================================
// UNIFIED CONFIRMATION HANDLING
// =============================================================================

// RequireConfirmation checks if the user has confirmed an action that
// modifies the machine.
//
// Confirmation flow:
//  1. If yesFlag is true (--yes), return true immediately
//  2. If jsonMode is true, return error (JSON mode requires --yes flag)
//  3. If stdin is not a TTY, return error (can't prompt)
//  4. Otherwise, show interactive prompt and wait for user input
//
// Parameters:
//
//	yesFlag  - true if --yes flag was passed
//	action   - description of the action (e.g., "modify 2 shell rc files")
//	jsonMode - true if --json flag was passed
//
// Returns:
//
//	bool  - true if confirmed, false if cancelled
//	error - non-nil if confirmation is required but not provided
//
// Example:
//
//	confirmed, err := RequireConfirmation(args.Yes, "reset configuration to defaults", args.JSON)
//	if err != nil {
//	    return err
//	}
//	if !confirmed {
//	    ShowCancellationMessage()
//	    return nil
//	}
func RequireConfirmation(yesFlag bool, action string, jsonMode bool) (bool, error) {
	// If --yes flag is present, proceed without prompting
	if yesFlag {
		return true, nil
	}

	// In JSON mode, --yes flag is required (no interactive prompts)
	if jsonMode {
		return false, fmt.Errorf("confirmation required: use --yes flag in JSON mode")
	}

	// Can't prompt if stdin is not a TTY (piped input, cron jobs, CI)
	if !IsTTY() {
		return false, fmt.Errorf("confirmation required but stdin is not a terminal; use --yes flag")
	}

	// Show interactive prompt
	fmt.Println()
	fmt.Printf("Are you sure you want to %s? [y/N]: ", action)

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	// Parse response
	response := strings.ToLower(strings.TrimSpace(input))
	confirmed := response == "y" || response == "yes"

	return confirmed, nil
}

// RequireConfirmationWithDetails is like RequireConfirmation but shows
// additional details before prompting.
//
// Parameters:
//
//	yesFlag  - true if --yes flag was passed
//	action   - description of the action (e.g., "modify these rc files")
//	details  - map of detail labels to values (e.g., {"Files": "~/.bashrc"})
//	jsonMode - true if --json flag was passed
func RequireConfirmationWithDetails(yesFlag bool, action string, details map[string]string, jsonMode bool) (bool, error) {
	// If --yes flag is present, proceed without prompting
	if yesFlag {
		return true, nil
	}

	// In JSON mode, --yes flag is required
	if jsonMode {
		return false, fmt.Errorf("confirmation required: use --yes flag in JSON mode")
	}

	// Can't prompt if stdin is not a TTY (piped input, cron jobs, CI)
	if !IsTTY() {
		return false, fmt.Errorf("confirmation required but stdin is not a terminal; use --yes flag")
	}

	// Show details
	fmt.Println()
	fmt.Println(WarningStyle.Render("This will modify your machine"))
	fmt.Println(RenderSeparator(50))
	fmt.Println()

	for label, value := range details {
		fmt.Printf("  %s%s\n", RenderLabel(label+":", 20), value)
	}

	fmt.Println()
	fmt.Printf("Are you sure you want to %s? [y/N]: ", action)

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	// Parse response
	response := strings.ToLower(strings.TrimSpace(input))
	confirmed := response == "y" || response == "yes"

	return confirmed, nil
}

// =============================================================================
// HELPER FUNCTIONS FOR COMMON CONFIRMATION PATTERNS
// =============================================================================

// ShowCancellationMessage displays a standard cancellation message.
// Use this after RequireConfirmation returns false.
func ShowCancellationMessage() {
	fmt.Println()
	fmt.Println(DimStyle.Render("Cancelled."))
	fmt.Println()
}

// PromptYesNo prompts the user with a yes/no question.
// Returns true for yes, false for no.
// Returns false if stdin is not a TTY (cannot prompt).
// This is for simple yes/no prompts that are not modification confirmations.
//
// Example:
//
//	if PromptYesNo("Sync wordlists now?") {
//	    // Sync them
//	}
func PromptYesNo(question string) bool {
	if !IsTTY() {
		return false
	}

	fmt.Printf("%s [y/N]: ", question)

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes"
}
