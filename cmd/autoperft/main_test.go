package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dannyhammer/autoperft/suite"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// writeScript materializes a throwaway subject. Depth-0 queries expect no
// move lines and total 1, so a fixed-output script can play a correct or a
// broken subject without implementing any chess.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subject.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestRunUsageErrors(t *testing.T) {
	script := writeScript(t, `echo ""; echo 1`)
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"no subject", []string{}, "subject command is required"},
		{"unknown option", []string{"-x", script}, "unknown option"},
		{"missing value", []string{"-d"}, "requires a value"},
		{"fen without depth", []string{"-fen", startFEN, script}, "-fen requires -d"},
		{"depth without fen", []string{"-d", "3", script}, "-d requires -fen"},
		{"fen and suite", []string{"-e", "x.epd", "-fen", startFEN, "-d", "1", script}, "mutually exclusive"},
		{"slice with fen", []string{"-s", "1", "-fen", startFEN, "-d", "1", script}, "apply to suites"},
		{"depth not numeric", []string{"-d", "deep", script}, "not an integer"},
		{"negative depth", []string{"-fen", startFEN, "-d", "-1", script}, "cannot be negative"},
		{"bad env", []string{"-env", "NOVALUE", script}, "not KEY=VALUE"},
		{"zero workers", []string{"-j", "0", script}, "-j must be at least 1"},
		{"negative skip", []string{"-s", "-2", script}, "cannot be negative"},
		{"invalid fen", []string{"-fen", "not a position", "-d", "1", script}, "invalid -fen"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tc.args...)
			assert.Equal(t, exitUsage, code)
			assert.Contains(t, stderr, tc.want)
		})
	}
}

func TestRunHelp(t *testing.T) {
	code, stdout, stderr := runCLI(t, "-h")
	assert.Equal(t, exitSuccess, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "usage: autoperft")
	assert.Contains(t, stderr, "exit codes")
}

func TestRunSuiteFileMissing(t *testing.T) {
	script := writeScript(t, `echo ""; echo 1`)
	code, _, stderr := runCLI(t, "-e", filepath.Join(t.TempDir(), "absent.epd"), script)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "error:")
}

func TestRunSliceLeavesNoCases(t *testing.T) {
	script := writeScript(t, `echo ""; echo 1`)
	path := filepath.Join(t.TempDir(), "one.epd")
	require.NoError(t, os.WriteFile(path, []byte(startFEN+" ;D1 20\n"), 0o600))

	code, _, stderr := runCLI(t, "-e", path, "-s", "5", script)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "no cases")
}

func TestRunSingleCasePass(t *testing.T) {
	script := writeScript(t, `echo ""; echo 1`)
	code, stdout, _ := runCLI(t, "-fen", startFEN, "-d", "0", script)
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, stdout, "case 0 pass")
	assert.Contains(t, stdout, "1 cases: 1 passed, 0 failed, 0 errored")
}

func TestRunSingleCaseTotalMismatch(t *testing.T) {
	script := writeScript(t, `echo ""; echo 2`)
	code, stdout, _ := runCLI(t, "-fen", startFEN, "-d", "0", script)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "FAIL")
	assert.Contains(t, stdout, "path: (root)")
	assert.Contains(t, stdout, "totals differ: oracle 1, subject 2")
	assert.Contains(t, stdout, "1 cases: 0 passed, 1 failed, 0 errored")
}

func TestRunSubjectCrash(t *testing.T) {
	script := writeScript(t, `echo "boom" >&2; exit 7`)
	code, stdout, _ := runCLI(t, "-fen", startFEN, "-d", "0", script)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "ERROR")
	assert.Contains(t, stdout, "ADAPTER_PROCESS")
	assert.Contains(t, stdout, "boom")
	assert.Contains(t, stdout, "0 passed, 0 failed, 1 errored")
}

func TestRunSubjectGarbage(t *testing.T) {
	script := writeScript(t, `echo "malformed output"`)
	code, stdout, _ := runCLI(t, "-fen", startFEN, "-d", "0", script)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "ERROR")
	assert.Contains(t, stdout, "ADAPTER_PROTOCOL")
}

func TestRunQuietSuppressesPassLines(t *testing.T) {
	script := writeScript(t, `echo ""; echo 1`)
	code, stdout, _ := runCLI(t, "-q", "-fen", startFEN, "-d", "0", script)
	assert.Equal(t, exitSuccess, code)
	assert.NotContains(t, stdout, "case 0 pass")
	assert.Contains(t, stdout, "1 cases: 1 passed")
}

func TestRunEnvInjection(t *testing.T) {
	script := writeScript(t, `echo ""; echo "${T_TOTAL:-1}"`)

	code, _, _ := runCLI(t, "-fen", startFEN, "-d", "0", script)
	assert.Equal(t, exitSuccess, code)

	code, stdout, _ := runCLI(t, "-env", "T_TOTAL=2", "-fen", startFEN, "-d", "0", script)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "totals differ: oracle 1, subject 2")
}

func TestRunSubjectAfterDoubleDash(t *testing.T) {
	script := writeScript(t, `echo ""; echo 1`)
	code, stdout, _ := runCLI(t, "-fen", startFEN, "-d", "0", "--", script, "-q")
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, stdout, "case 0 pass")
}

func TestRunWritesReport(t *testing.T) {
	script := writeScript(t, `echo ""; echo 1`)
	reportPath := filepath.Join(t.TempDir(), "report.json")

	code, _, _ := runCLI(t, "-report", reportPath, "-fen", startFEN, "-d", "0", script)
	assert.Equal(t, exitSuccess, code)

	report, err := suite.LoadReport(reportPath)
	require.NoError(t, err)
	require.NoError(t, suite.ValidateReport(report))
	assert.Equal(t, "adhoc", report.Suite)
	assert.Equal(t, []string{script}, report.SubjectCommand)
	require.Len(t, report.Cases, 1)
	assert.Equal(t, "pass", report.Cases[0].Verdict)
}

func TestRunFailureReportCarriesSignature(t *testing.T) {
	script := writeScript(t, `echo ""; echo 2`)
	reportPath := filepath.Join(t.TempDir(), "report.json")

	code, _, _ := runCLI(t, "-report", reportPath, "-fen", startFEN, "-d", "0", script)
	assert.Equal(t, 1, code)

	report, err := suite.LoadReport(reportPath)
	require.NoError(t, err)
	require.NoError(t, suite.ValidateReport(report))
	require.Len(t, report.Cases, 1)
	failure := report.Cases[0].Failure
	require.NotNil(t, failure)
	assert.Equal(t, "TOTAL_MISMATCH", failure.Kind)
	assert.Len(t, failure.Signature, 64)
}

func TestParseArgsSubjectCapture(t *testing.T) {
	opts, err := parseArgs([]string{"-j", "4", "./engine", "-d", "9"})
	require.NoError(t, err)
	assert.Equal(t, 4, opts.workers)
	// Everything from the first positional on belongs to the subject, even
	// tokens that look like our own options.
	assert.Equal(t, []string{"./engine", "-d", "9"}, opts.subject)
}
