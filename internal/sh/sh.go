package sh

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

type DirectoryPath string

// Runner runs an external program. Tests substitute it to avoid spawning processes.
type Runner interface {
	Run(ctx context.Context, cwd DirectoryPath, name string, args ...string) (string, error)
}

type ExecRunner struct {
	// Redact is applied to the command line and output before they end up in an error.
	Redact func(string) string
}

// Run executes name directly, without a shell, and returns its trimmed stdout.
func (r ExecRunner) Run(ctx context.Context, cwd DirectoryPath, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = string(cwd)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		commandLine := r.redact(name + " " + strings.Join(args, " "))
		return "", fmt.Errorf("%s failed: %w: %s", commandLine, err, r.redact(strings.TrimSpace(stderr.String())))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (r ExecRunner) redact(s string) string {
	if r.Redact == nil {
		return s
	}
	return r.Redact(s)
}
