package executil_test

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dannyhammer/autoperft/executil"
)

func TestRunSeparatesStreams(t *testing.T) {
	stdout, stderr, err := executil.OSRunner{}.Run(context.Background(),
		[]string{"sh", "-c", "printf out; printf err >&2"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "out", string(stdout))
	assert.Equal(t, "err", string(stderr))
}

func TestRunMergesEnv(t *testing.T) {
	stdout, _, err := executil.OSRunner{}.Run(context.Background(),
		[]string{"sh", "-c", `printf "%s" "$AUTOPERFT_TEST_VAR"`},
		map[string]string{"AUTOPERFT_TEST_VAR": "injected"})
	require.NoError(t, err)
	assert.Equal(t, "injected", string(stdout))
}

func TestRunNonZeroExit(t *testing.T) {
	stdout, stderr, err := executil.OSRunner{}.Run(context.Background(),
		[]string{"sh", "-c", "printf partial; printf diag >&2; exit 3"}, nil)
	require.Error(t, err)

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.ExitCode())
	// Output captured before the failure still comes back.
	assert.Equal(t, "partial", string(stdout))
	assert.Equal(t, "diag", string(stderr))
}

func TestRunEmptyArgv(t *testing.T) {
	_, _, err := executil.OSRunner{}.Run(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty argv")
}

func TestRunMissingBinary(t *testing.T) {
	_, _, err := executil.OSRunner{}.Run(context.Background(),
		[]string{"/nonexistent/autoperft-binary"}, nil)
	require.Error(t, err)
}
