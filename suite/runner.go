package suite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dannyhammer/autoperft/bisect"
	"github.com/dannyhammer/autoperft/perfterr"
)

const opRun = "run suite"

// Verdict is the per-case outcome.
type Verdict string

const (
	// VerdictPass: oracle and subject agreed at full depth.
	VerdictPass Verdict = "pass"
	// VerdictFail: a divergence was isolated.
	VerdictFail Verdict = "fail"
	// VerdictError: the subject could not be queried for this case.
	VerdictError Verdict = "error"
)

// CaseResult is one completed case. Bisection is meaningful for pass and
// fail; Err is set only for error.
type CaseResult struct {
	Index     int
	Case      Case
	Verdict   Verdict
	Bisection bisect.Result
	Err       error
	Elapsed   time.Duration
}

// Summary aggregates case verdicts.
type Summary struct {
	Cases   int
	Passed  int
	Failed  int
	Errored int
}

// ExitCode maps the summary to the process exit code: 0 when every case
// passed, 1 when any case failed or errored.
func (s Summary) ExitCode() int {
	if s.Failed > 0 || s.Errored > 0 {
		return 1
	}
	return 0
}

// Runner bisects every case in a suite. Workers bounds parallelism; values
// below 1 run sequentially. Cases are independent, so each gets its own
// bisector walk, and results land in suite order regardless of which worker
// finishes first.
type Runner struct {
	Oracle  bisect.Generator
	Subject bisect.Generator
	Workers int
	Log     zerolog.Logger
}

// Run executes all cases and returns their results in suite order. Adapter
// failures are case-level: the case is recorded as errored and the run
// continues. Any other failure aborts the whole run, carrying its failure
// class out through the wrapped error.
func (r *Runner) Run(ctx context.Context, cases []Case) ([]CaseResult, Summary, error) {
	if r.Oracle == nil || r.Subject == nil {
		return nil, Summary{}, perfterr.New(perfterr.InternalError, opRun, "oracle and subject are required")
	}
	if len(cases) == 0 {
		return nil, Summary{}, perfterr.New(perfterr.SuiteMalformed, opRun, "suite has no cases")
	}
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]CaseResult, len(cases))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range cases {
		i, c := i, c
		g.Go(func() error {
			res, err := r.runCase(gctx, i, c)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Summary{}, err
	}
	return results, summarize(results), nil
}

func (r *Runner) runCase(ctx context.Context, index int, c Case) (CaseResult, error) {
	start := time.Now()
	b := &bisect.Bisector{Oracle: r.Oracle, Subject: r.Subject, Log: r.Log}
	res, err := b.Run(ctx, bisect.NewPosition(c.FEN), c.Depth)
	cr := CaseResult{Index: index, Case: c, Elapsed: time.Since(start)}
	switch {
	case err != nil && perfterr.IsCaseLevel(err):
		cr.Verdict = VerdictError
		cr.Err = err
		r.Log.Warn().
			Int("case", index).
			Str("fen", c.FEN).
			Str("class", string(perfterr.ClassOf(err))).
			Err(err).
			Msg("case errored")
	case err != nil:
		return CaseResult{}, fmt.Errorf("case %d (%s): %w", index, c.FEN, err)
	default:
		// A suite annotation at the run depth is ground truth from the
		// literature. If the trusted side disagrees with it, the oracle
		// build itself is broken and no verdict can be believed.
		if want, ok := c.Expected[c.Depth]; ok && res.OracleTotal != want {
			return CaseResult{}, perfterr.Newf(perfterr.OracleInternal, opRun,
				"case %d (%s): oracle perft(%d) is %d, suite annotation says %d",
				index, c.FEN, c.Depth, res.OracleTotal, want)
		}
		cr.Bisection = res
		if res.FullAgreement {
			cr.Verdict = VerdictPass
		} else {
			cr.Verdict = VerdictFail
		}
	}
	r.Log.Info().
		Int("case", index).
		Str("fen", c.FEN).
		Int("depth", c.Depth).
		Str("verdict", string(cr.Verdict)).
		Dur("elapsed", cr.Elapsed).
		Msg("case complete")
	return cr, nil
}

func summarize(results []CaseResult) Summary {
	s := Summary{Cases: len(results)}
	for _, r := range results {
		switch r.Verdict {
		case VerdictPass:
			s.Passed++
		case VerdictFail:
			s.Failed++
		case VerdictError:
			s.Errored++
		}
	}
	return s
}
