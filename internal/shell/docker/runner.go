package docker

import (
	"bytes"
	"context"
	"os"
	"os/exec"
)

// =============================================================================
// Command Runner
// =============================================================================

// Runner executes an external command with extra environment variables and returns
// its combined output.
type Runner interface {
	Run(ctx context.Context, env []string, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner. The child inherits the process environment with env appended,
// so later entries override inherited ones.
func (ExecRunner) Run(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}
