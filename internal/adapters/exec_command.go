package adapters

import (
	"context"
	"os/exec"

	"pipkit/internal/ports"
)

// ExecCommandAdapter runs external tools such as hg or python3.
type ExecCommandAdapter struct {
	Env []string
}

func NewExecCommandAdapter() ExecCommandAdapter {
	return ExecCommandAdapter{}
}

func (a ExecCommandAdapter) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run returns combined stdout and stderr.
func (a ExecCommandAdapter) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // callers pass fixed tool names
	cmd.Dir = dir
	if len(a.Env) > 0 {
		cmd.Env = append(cmd.Environ(), a.Env...)
	}
	return cmd.CombinedOutput()
}

var _ ports.CommandExecutorPort = ExecCommandAdapter{}
