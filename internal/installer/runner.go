// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package installer

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// =============================================================================
// COMMAND
// =============================================================================

// Command is one external invocation the engine wants to run. Keeping
// it a value type makes runs recordable and assertable in tests.
type Command struct {
	Name string   // binary to invoke
	Args []string // arguments, already split
	Env  []string // extra KEY=VALUE entries appended to the environment
	Dir  string   // working directory, empty for inherited
}

// Cmd builds a Command.
func Cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// WithEnv returns a copy of the command with extra environment entries.
func (c Command) WithEnv(kv ...string) Command {
	c.Env = append(append([]string(nil), c.Env...), kv...)
	return c
}

// String renders the command the way a user would type it.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// =============================================================================
// RUNNER
// =============================================================================

// Runner executes external commands and resolves binaries. The engine
// talks to the system only through this interface, so tests swap in a
// recorder and never spawn processes.
type Runner interface {
	// Run executes the command, streaming its output to the user.
	Run(ctx context.Context, cmd Command) error
	// LookPath resolves a binary on PATH.
	LookPath(binary string) (string, bool)
}

// ExecRunner runs commands for real, streaming child output so users
// watch installs happen rather than staring at a silent prompt. Stdin
// is passed through because sudo may need to prompt for a password.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns a runner wired to the process's stdio.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return cmd.Run()
}

// LookPath implements Runner.
func (r *ExecRunner) LookPath(binary string) (string, bool) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", false
	}
	return path, true
}

// =============================================================================
// RECORDING RUNNER (for tests)
// =============================================================================

// RecordingRunner records every command instead of executing it. Only
// for tests: failures are scripted by command prefix and binary
// resolution is a plain map.
type RecordingRunner struct {
	mu sync.Mutex

	// Commands holds every Run invocation in order.
	Commands []Command
	// Fail maps a command-string prefix to the error Run returns for
	// matching commands.
	Fail map[string]error
	// Binaries maps binary names to fake paths for LookPath.
	Binaries map[string]string
	// OnRun, when set, observes each successful command. Tests use it
	// to make a fake install "appear" in Binaries.
	OnRun func(Command)
}

// NewRecordingRunner returns an empty recorder.
func NewRecordingRunner() *RecordingRunner {
	return &RecordingRunner{
		Fail:     make(map[string]error),
		Binaries: make(map[string]string),
	}
}

// Run implements Runner.
func (r *RecordingRunner) Run(ctx context.Context, c Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.Commands = append(r.Commands, c)
	var failErr error
	for prefix, err := range r.Fail {
		if strings.HasPrefix(c.String(), prefix) {
			failErr = err
			break
		}
	}
	onRun := r.OnRun
	r.mu.Unlock()

	if failErr != nil {
		return failErr
	}
	if onRun != nil {
		onRun(c)
	}
	return nil
}

// LookPath implements Runner.
func (r *RecordingRunner) LookPath(binary string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	path, ok := r.Binaries[binary]
	return path, ok
}

// SetBinary registers a fake binary path.
func (r *RecordingRunner) SetBinary(binary, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Binaries[binary] = path
}

// Ran reports whether any recorded command starts with prefix.
func (r *RecordingRunner) Ran(prefix string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.Commands {
		if strings.HasPrefix(c.String(), prefix) {
			return true
		}
	}
	return false
}

// CommandStrings returns every recorded command as a string.
func (r *RecordingRunner) CommandStrings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Commands))
	for i, c := range r.Commands {
		out[i] = c.String()
	}
	return out
}
