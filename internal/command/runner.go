// Package command runs external processes synchronously for the pipeline's collaborators
// (git, cargo). Output is captured so failures can be logged with their diagnostics.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Spec describes one invocation.
type Spec struct {
	Dir  string
	Name string
	Args []string
	Env  []string // appended to the inherited environment
}

func (s Spec) String() string {
	return strings.TrimSpace(s.Name + " " + strings.Join(s.Args, " "))
}

// Output is the captured result of an invocation.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes a Spec to completion. A non-zero exit is reported as an *ExitError
// alongside the captured Output.
type Runner interface {
	Run(ctx context.Context, spec Spec) (Output, error)
}

// ExitError reports a process that ran but exited non-zero.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// ExecRunner runs processes with os/exec.
type ExecRunner struct {
	// Stream forwards child stderr to the logger at debug level after completion.
	Stream bool
}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() *ExecRunner { return &ExecRunner{} }

func (r *ExecRunner) Run(ctx context.Context, spec Spec) (Output, error) {
	if _, err := exec.LookPath(spec.Name); err != nil {
		return Output{ExitCode: -1}, fmt.Errorf("%s not found on PATH: %w", spec.Name, err)
	}

	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(cmd.Environ(), spec.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Running command", "command", spec.String(), "dir", spec.Dir)
	err := cmd.Run()

	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if r.Stream && stderr.Len() > 0 {
		slog.Debug("command stderr", "command", spec.Name, "output", stderr.String())
	}
	if err == nil {
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, &ExitError{
			Command:  spec.String(),
			ExitCode: out.ExitCode,
			Stderr:   lastLines(stderr.String(), 5),
		}
	}
	out.ExitCode = -1
	return out, fmt.Errorf("run %s: %w", spec.String(), err)
}

// lastLines keeps the tail of noisy tool output for error messages.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
