// Command autoperft compares a chess move generator against a trusted
// oracle with split perft, bisecting every disagreement down to a minimal
// failing position and move path.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/dannyhammer/autoperft/bisect"
	"github.com/dannyhammer/autoperft/oracle"
	"github.com/dannyhammer/autoperft/perfterr"
	"github.com/dannyhammer/autoperft/subject"
	"github.com/dannyhammer/autoperft/suite"
)

const (
	exitSuccess  = 0
	exitUsage    = 2
	exitInternal = 10
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	suitePath string
	fen       string
	depth     int
	depthSet  bool
	skip      int
	first     int
	workers   int
	env       map[string]string
	report    string
	quiet     bool
	verbose   bool
	help      bool
	subject   []string
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) int {
	opts, err := parseArgs(args)
	if err != nil {
		return writeErrorAndReturn(stderr, exitUsage, "error: %v\n", err)
	}
	if opts.help {
		if err := writeHelp(stderr); err != nil {
			return exitInternal
		}
		return exitSuccess
	}
	if err := validateOptions(opts); err != nil {
		return writeErrorAndReturn(stderr, exitUsage, "error: %v\n", err)
	}

	cases, suiteName, err := resolveCases(opts)
	if err != nil {
		return writeErrorAndReturn(stderr, perfterr.ClassOf(err).ExitCode(), "error: %v\n", err)
	}

	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: true}).
		Level(level).With().Timestamp().Logger()

	runner := &suite.Runner{
		Oracle:  oracle.New(),
		Subject: subject.NewAdapter(opts.subject, opts.env, nil),
		Workers: opts.workers,
		Log:     log,
	}
	results, summary, err := runner.Run(ctx, cases)
	if err != nil {
		return writeErrorAndReturn(stderr, perfterr.ClassOf(err).ExitCode(), "error: %v\n", err)
	}

	if err := printResults(stdout, results, opts.quiet); err != nil {
		return exitInternal
	}
	if err := writef(stdout, "%d cases: %d passed, %d failed, %d errored\n",
		summary.Cases, summary.Passed, summary.Failed, summary.Errored); err != nil {
		return exitInternal
	}

	if opts.report != "" {
		report, err := suite.BuildReport(suiteName, opts.subject, results, summary, nil)
		if err != nil {
			return writeErrorAndReturn(stderr, exitInternal, "error: build report: %v\n", err)
		}
		if err := suite.WriteReport(opts.report, report); err != nil {
			return writeErrorAndReturn(stderr, exitInternal, "error: %v\n", err)
		}
	}
	return summary.ExitCode()
}

func parseArgs(args []string) (*options, error) {
	opts := &options{workers: 1, depth: -1}
	needValue := func(name string, i int) (string, error) {
		if i >= len(args) {
			return "", fmt.Errorf("option %s requires a value", name)
		}
		return args[i], nil
	}
	needInt := func(name string, i int) (int, error) {
		raw, err := needValue(name, i)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("option %s: %q is not an integer", name, raw)
		}
		return n, nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		var err error
		switch arg {
		case "-e", "--suite":
			i++
			opts.suitePath, err = needValue(arg, i)
		case "-fen", "--fen":
			i++
			opts.fen, err = needValue(arg, i)
		case "-d", "--depth":
			i++
			opts.depth, err = needInt(arg, i)
			opts.depthSet = true
		case "-s", "--skip":
			i++
			opts.skip, err = needInt(arg, i)
		case "-f", "--first":
			i++
			opts.first, err = needInt(arg, i)
		case "-j", "--workers":
			i++
			opts.workers, err = needInt(arg, i)
		case "-env", "--env":
			i++
			var raw string
			if raw, err = needValue(arg, i); err == nil {
				key, value, ok := strings.Cut(raw, "=")
				if !ok || key == "" {
					return nil, fmt.Errorf("option %s: %q is not KEY=VALUE", arg, raw)
				}
				if opts.env == nil {
					opts.env = make(map[string]string)
				}
				opts.env[key] = value
			}
		case "-report", "--report":
			i++
			opts.report, err = needValue(arg, i)
		case "-q", "--quiet":
			opts.quiet = true
		case "-v", "--verbose":
			opts.verbose = true
		case "-h", "--help":
			opts.help = true
		case "--":
			opts.subject = append([]string(nil), args[i+1:]...)
			i = len(args)
		default:
			if strings.HasPrefix(arg, "-") {
				return nil, fmt.Errorf("unknown option: %s", arg)
			}
			// The first positional argument starts the subject command.
			opts.subject = append([]string(nil), args[i:]...)
			i = len(args)
		}
		if err != nil {
			return nil, err
		}
	}
	return opts, nil
}

func validateOptions(opts *options) error {
	if len(opts.subject) == 0 {
		return fmt.Errorf("subject command is required (see -h)")
	}
	if opts.fen != "" {
		if opts.suitePath != "" {
			return fmt.Errorf("-fen and -e are mutually exclusive")
		}
		if !opts.depthSet {
			return fmt.Errorf("-fen requires -d <depth>")
		}
		if opts.skip != 0 || opts.first != 0 {
			return fmt.Errorf("-s and -f apply to suites, not -fen")
		}
		if err := oracle.ValidateFEN(opts.fen); err != nil {
			return fmt.Errorf("invalid -fen: %v", err)
		}
	} else if opts.depthSet {
		return fmt.Errorf("-d requires -fen")
	}
	if opts.depthSet && opts.depth < 0 {
		return fmt.Errorf("depth cannot be negative")
	}
	if opts.skip < 0 || opts.first < 0 {
		return fmt.Errorf("-s and -f cannot be negative")
	}
	if opts.workers < 1 {
		return fmt.Errorf("-j must be at least 1")
	}
	return nil
}

func resolveCases(opts *options) ([]suite.Case, string, error) {
	if opts.fen != "" {
		return []suite.Case{{FEN: opts.fen, Depth: opts.depth}}, "adhoc", nil
	}
	if opts.suitePath != "" {
		cases, err := suite.Load(opts.suitePath)
		if err != nil {
			return nil, "", err
		}
		return suite.Slice(cases, opts.skip, opts.first), opts.suitePath, nil
	}
	return suite.Slice(suite.Default(), opts.skip, opts.first), "builtin", nil
}

func printResults(stdout io.Writer, results []suite.CaseResult, quiet bool) error {
	for _, res := range results {
		switch res.Verdict {
		case suite.VerdictPass:
			if quiet {
				continue
			}
			if err := writef(stdout, "case %d pass %s depth %d\n", res.Index, res.Case.FEN, res.Case.Depth); err != nil {
				return err
			}
		case suite.VerdictFail:
			if err := writef(stdout, "case %d FAIL %s depth %d\n", res.Index, res.Case.FEN, res.Case.Depth); err != nil {
				return err
			}
			path := "(root)"
			if len(res.Bisection.Path) > 0 {
				path = strings.Join(bisect.PathStrings(res.Bisection.Path), " ")
			}
			if err := writef(stdout, "  path: %s\n", path); err != nil {
				return err
			}
			if err := writef(stdout, "  at depth %d: %s\n", res.Bisection.Depth, res.Bisection.Divergence); err != nil {
				return err
			}
		case suite.VerdictError:
			if err := writef(stdout, "case %d ERROR %s: %v\n", res.Index, res.Case.FEN, res.Err); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeHelp(stderr io.Writer) error {
	lines := []string{
		"usage: autoperft [options] [--] <subject-command> [subject-args...]",
		"",
		"Compares the subject move generator against a trusted oracle with",
		"split perft and bisects any disagreement to a minimal failing",
		"position. The subject is invoked as:",
		"",
		"  <subject-command> <depth> <fen> [move...]",
		"",
		"and must print `<move> <count>` lines, a blank line, and the total.",
		"",
		"options:",
		"  -e <path>       EPD suite file (default: built-in standard suite)",
		"  -fen <fen>      run a single position instead of a suite",
		"  -d <depth>      comparison depth for -fen",
		"  -s <n>          skip the first n suite cases",
		"  -f <n>          run only the first n remaining cases",
		"  -j <n>          run up to n cases in parallel (default 1)",
		"  -env KEY=VALUE  extra environment for the subject (repeatable)",
		"  -report <path>  write a JSON report artifact",
		"  -q              only print failures, errors, and the summary",
		"  -v              verbose bisection logging on stderr",
		"  -h              show this help",
		"",
		"exit codes: 0 all cases pass, 1 divergence or case error, 2 usage",
		"or suite error, 10 internal error.",
	}
	for _, line := range lines {
		if err := writeLine(stderr, line); err != nil {
			return err
		}
	}
	return nil
}

func writeErrorAndReturn(stderr io.Writer, code int, format string, args ...any) int {
	if err := writef(stderr, format, args...); err != nil {
		return exitInternal
	}
	return code
}

func writeLine(w io.Writer, msg string) error {
	return writef(w, "%s\n", msg)
}

func writef(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("write stream: %w", err)
	}
	return nil
}
