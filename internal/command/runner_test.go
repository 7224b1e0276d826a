package command

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunnerCapturesOutput(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()

	out, err := NewExecRunner().Run(context.Background(), Spec{
		Dir:  dir,
		Name: "sh",
		Args: []string{"-c", "pwd; echo warn >&2"},
	})

	require.NoError(t, err)
	assert.Contains(t, string(out.Stdout), dir)
	assert.Equal(t, "warn\n", string(out.Stderr))
	assert.Equal(t, 0, out.ExitCode)
}

func TestExecRunnerNonZeroExit(t *testing.T) {
	requireShell(t)

	out, err := NewExecRunner().Run(context.Background(), Spec{
		Name: "sh",
		Args: []string{"-c", "echo one >&2; echo two >&2; exit 101"},
	})

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 101, exitErr.ExitCode)
	assert.Equal(t, 101, out.ExitCode)
	assert.Equal(t, "one\ntwo", exitErr.Stderr)
}

func TestExecRunnerMissingBinary(t *testing.T) {
	_, err := NewExecRunner().Run(context.Background(), Spec{Name: "definitely-not-a-binary-docfleet"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found on PATH")
}

func TestLastLines(t *testing.T) {
	assert.Equal(t, "c\nd", lastLines("a\nb\nc\nd\n", 2))
	assert.Equal(t, "a", lastLines("a", 3))
}
