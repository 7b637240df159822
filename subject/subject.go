// Package subject adapts an external move generator to the split-perft
// comparison. Each query spawns one subject process whose argv names the
// depth, the root FEN, and the move path, and whose stdout must speak the
// wire format parsed by splitperft.ParseResult.
package subject

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dannyhammer/autoperft/bisect"
	"github.com/dannyhammer/autoperft/executil"
	"github.com/dannyhammer/autoperft/perfterr"
	"github.com/dannyhammer/autoperft/splitperft"
)

const opInvoke = "invoke subject"

// Adapter implements bisect.Generator by running a subject command. The
// command line is a fixed prefix; depth, FEN, and path moves are appended
// per query, each as its own argument.
type Adapter struct {
	argv   []string
	env    map[string]string
	runner executil.CommandRunner
}

// NewAdapter builds an adapter around the subject command argv. env entries
// are added to the subject's inherited environment on every invocation. A
// nil runner uses the host OS.
func NewAdapter(argv []string, env map[string]string, r executil.CommandRunner) *Adapter {
	if r == nil {
		r = executil.OSRunner{}
	}
	return &Adapter{
		argv:   append([]string(nil), argv...),
		env:    env,
		runner: r,
	}
}

// SplitPerft runs the subject once and parses its stdout. A launch failure
// or non-zero exit is an AdapterProcess error carrying trimmed stderr;
// malformed stdout surfaces as the parser's AdapterProtocol error. Both are
// case-level: they fail the current test case without aborting the run.
func (a *Adapter) SplitPerft(ctx context.Context, pos bisect.Position, depth int) (splitperft.Result, error) {
	argv := make([]string, 0, len(a.argv)+2+len(pos.Path()))
	argv = append(argv, a.argv...)
	argv = append(argv, strconv.Itoa(depth), pos.FEN())
	argv = append(argv, bisect.PathStrings(pos.Path())...)

	stdout, stderr, err := a.runner.Run(ctx, argv, a.env)
	if err != nil {
		// Cancellation kills the child; report the cancellation itself, not
		// the induced subject death.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return splitperft.Result{}, ctxErr
		}
		detail := strings.TrimSpace(string(stderr))
		if detail != "" {
			return splitperft.Result{}, perfterr.Wrap(perfterr.AdapterProcess, opInvoke,
				fmt.Sprintf("subject failed (stderr: %s)", detail), err)
		}
		return splitperft.Result{}, perfterr.Wrap(perfterr.AdapterProcess, opInvoke, "subject failed", err)
	}
	return splitperft.ParseResult(stdout)
}
