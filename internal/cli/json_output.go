// json_output.go - JSON output support for scripting and CI integration.
//
// Provides a standardized JSON output format for all CLI commands so
// pipelines can consume install reports without scraping tables.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/reconrig/internal/report"
)

// JSONResponse is the standardized response format for all CLI commands.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the ISO8601 timestamp when the response was generated
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Error:     nil,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Data:      nil,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponseStr creates a new error JSON response from a string.
func NewJSONErrorResponseStr(command string, errMsg string) *JSONResponse {
	return &JSONResponse{
		Success:   false,
		Data:      nil,
		Error:     &errMsg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print outputs the JSON response to stdout.
// Human-readable messages should go to stderr when JSON mode is enabled.
func (r *JSONResponse) Print() error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// PrintCompact outputs the JSON response without indentation.
// Useful for piping to other tools or log aggregation.
func (r *JSONResponse) PrintCompact() error {
	return json.NewEncoder(os.Stdout).Encode(r)
}

// String returns the JSON response as a string.
func (r *JSONResponse) String() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":"failed to marshal response: %s","timestamp":"%s"}`,
			err.Error(), time.Now().UTC().Format(time.RFC3339))
	}
	return string(data)
}

// OutputJSON is a helper function that outputs either JSON or runs a normal handler.
// If jsonMode is true, it outputs JSON and handles errors. Otherwise it runs the handler.
func OutputJSON(jsonMode bool, command string, handler func() (interface{}, error)) error {
	if !jsonMode {
		_, err := handler()
		return err
	}

	data, err := handler()
	if err != nil {
		resp := NewJSONErrorResponse(command, err)
		resp.Print()
		return err
	}

	resp := NewJSONResponse(command, data)
	return resp.Print()
}

// StderrPrint prints a message to stderr (for human-readable output in JSON mode).
func StderrPrint(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

// StderrPrintln prints a line to stderr (for human-readable output in JSON mode).
func StderrPrintln(msg string) {
	fmt.Fprintln(os.Stderr, msg)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// StatusData represents the data returned by the status command.
type StatusData struct {
	Platform StatusPlatformInfo `json:"platform"`
	Tools    []report.Result    `json:"tools"`
	Present  int                `json:"present"`
	Missing  int                `json:"missing"`
	Env      StatusEnvInfo      `json:"env"`
}

// StatusPlatformInfo describes the detected host.
type StatusPlatformInfo struct {
	OS         string `json:"os"`
	Arch       string `json:"arch"`
	PkgManager string `json:"pkg_manager"`
	HasSnap    bool   `json:"has_snap"`
	Privilege  string `json:"privilege"`
	Shell      string `json:"shell,omitempty"`
}

// StatusEnvInfo reports shell PATH wiring state.
type StatusEnvInfo struct {
	BinDir  string   `json:"bin_dir"`
	Wired   bool     `json:"wired"`
	Missing []string `json:"missing_lines,omitempty"`
}

// DoctorData represents the data returned by the doctor command.
type DoctorData struct {
	Checks  []DoctorCheck `json:"checks"`
	Summary DoctorSummary `json:"summary"`
}

// DoctorCheck represents a single health check result.
type DoctorCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "pass", "warn", "fail"
	Message string `json:"message"`
	Fix     string `json:"fix,omitempty"`
}

// DoctorSummary contains the summary of health checks.
type DoctorSummary struct {
	Passed  int  `json:"passed"`
	Warned  int  `json:"warned"`
	Failed  int  `json:"failed"`
	Healthy bool `json:"healthy"`
}

// ToolInfo represents one manifest entry in the tools command output.
type ToolInfo struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Package   string   `json:"package"`
	Binary    string   `json:"binary"`
	Fallbacks []string `json:"fallbacks,omitempty"`
	Note      string   `json:"note,omitempty"`
}

// EnvData represents the data returned by env show and env path.
type EnvData struct {
	Lines   []string `json:"lines"`
	RCFiles []string `json:"rc_files"`
	Missing []string `json:"missing,omitempty"`
}

// EnvFileChange represents one rc file touched by env apply.
type EnvFileChange struct {
	Path    string   `json:"path"`
	Added   []string `json:"added"`
	Created bool     `json:"created"`
}

// ConfigKeyData represents a single key/value in config output.
type ConfigKeyData struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// HistoryRunData represents one journaled run with its exit code.
type HistoryRunData struct {
	Run      *report.Run `json:"run"`
	ExitCode int         `json:"exit_code"`
}

// VersionData represents the data returned by the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}
