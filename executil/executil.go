// Package executil provides command execution for the subject adapter.
package executil

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
)

// CommandRunner abstracts subject process execution. Stdout and stderr come
// back separately: stdout carries the split-perft wire format and stderr is
// diagnostic text that only surfaces in error detail.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, env map[string]string) (stdout, stderr []byte, err error)
}

// OSRunner executes commands on the host.
type OSRunner struct{}

// Run executes argv with env merged over the inherited environment. A
// non-zero exit or launch failure is returned as the error together with
// whatever output was captured before the failure.
func (OSRunner) Run(ctx context.Context, argv []string, env map[string]string) ([]byte, []byte, error) {
	if len(argv) == 0 {
		return nil, nil, fmt.Errorf("empty argv")
	}
	// #nosec G204 -- argv is the operator-supplied subject command line.
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if len(env) != 0 {
		keys := make([]string, 0, len(env))
		for k := range env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		merged := cmd.Environ()
		for _, k := range keys {
			merged = append(merged, fmt.Sprintf("%s=%s", k, env[k]))
		}
		cmd.Env = merged
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("run %q failed: %w", argv, err)
	}
	return stdout.Bytes(), stderr.Bytes(), nil
}
