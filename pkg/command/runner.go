// Package command wraps external command execution behind a small
// interface so every stage that shells out (probes, privilege
// renewal, package managers, source builds) can be tested against a
// scripted fake without touching the host.
package command

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/masmide/setup/pkg/logging"
)

// Result captures the outcome of an external command invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Output returns combined stdout and stderr, trimmed. Used when a
// failure needs its raw tool output surfaced in the run summary.
func (r Result) Output() string {
	return strings.TrimSpace(r.Stdout + r.Stderr)
}

// Runner executes external commands.
type Runner interface {
	// Run executes the command, capturing output. A non-zero exit
	// status is returned as an error alongside the captured Result.
	Run(ctx context.Context, name string, args ...string) (Result, error)

	// RunInDir is Run with a working directory.
	RunInDir(ctx context.Context, dir, name string, args ...string) (Result, error)

	// RunInteractive executes the command attached to the caller's
	// stdio. Used for anything that may prompt (sudo) or stream
	// progress (package managers).
	RunInteractive(ctx context.Context, name string, args ...string) error

	// LookPath reports the absolute path of an executable on PATH.
	LookPath(name string) (string, error)
}

// execRunner implements Runner using os/exec.
type execRunner struct{}

// NewExec returns the production Runner.
func NewExec() Runner {
	return &execRunner{}
}

func (e *execRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return e.RunInDir(ctx, "", name, args...)
}

func (e *execRunner) RunInDir(ctx context.Context, dir, name string, args ...string) (Result, error) {
	logging.LogCommand(name, args)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	return result, err
}

func (e *execRunner) RunInteractive(ctx context.Context, name string, args ...string) error {
	logging.LogCommand(name, args)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func (e *execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
