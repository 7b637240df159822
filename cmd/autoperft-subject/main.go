// Command autoperft-subject is a self-contained move generator speaking the
// split-perft text protocol, used to exercise autoperft end to end.
//
// Usage:
//
//	autoperft-subject <depth> <fen> [move...]
//
// The position is the FEN with the given moves applied in order. The program
// prints one "<move> <count>" line per legal move (count is the perft of the
// position after that move to depth-1), then a blank line, then the total.
// At depth 0 it prints no move lines and a total of 1.
//
// Left alone it is a correct generator. Faults are injected through the
// environment so a test harness can turn one binary into a whole family of
// broken subjects:
//
//	AUTOPERFT_SUBJECT_DROP_MOVE=<move>    omit that move's line (and its count
//	                                      from the total) when it is legal at
//	                                      the queried root
//	AUTOPERFT_SUBJECT_EXTRA_MOVE=<move>   emit a bogus extra line for that move
//	                                      with count 1
//	AUTOPERFT_SUBJECT_MISCOUNT=<move>     never count leaf edges played by that
//	                                      move, a consistent undercount at every
//	                                      depth
//	AUTOPERFT_SUBJECT_VANISH=<move>       subtract 1 from that move's count in
//	                                      the root listing only, an inconsistent
//	                                      undercount that disappears one ply down
//	AUTOPERFT_SUBJECT_SKEW_TOTAL=<n>      add n to the reported total only
//	AUTOPERFT_SUBJECT_MALFORMED=<mode>    break the protocol; one of
//	                                      no-blank-line, bad-total, bad-move
//	AUTOPERFT_SUBJECT_EXIT=<code>         exit with that code before any output
//
// Faults tamper with reporting, never with path application: path moves are
// always applied honestly.
//
// Exit codes:
//
//	0  success
//	2  usage, FEN, path, or fault-variable value error
//	10 output write failure
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/notnil/chess"

	"github.com/dannyhammer/autoperft/splitperft"
)

const (
	exitSuccess  = 0
	exitInvalid  = 2
	exitInternal = 10
)

func main() {
	os.Exit(run(os.Args[1:], os.Getenv, os.Stdout, os.Stderr))
}

func run(args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	flt, err := parseFaults(getenv)
	if err != nil {
		return writeErrorAndReturn(stderr, exitInvalid, "error: %v\n", err)
	}
	if flt.exitCode >= 0 {
		_ = writef(stderr, "injected failure: exit %d\n", flt.exitCode)
		return flt.exitCode
	}

	if len(args) < 2 {
		_ = writeLine(stderr, "usage: autoperft-subject <depth> <fen> [move...]")
		return exitInvalid
	}
	depth, err := strconv.Atoi(args[0])
	if err != nil || depth < 0 {
		return writeErrorAndReturn(stderr, exitInvalid, "error: depth %q is not a non-negative integer\n", args[0])
	}
	fenOpt, err := chess.FEN(args[1])
	if err != nil {
		return writeErrorAndReturn(stderr, exitInvalid, "error: invalid FEN %q: %v\n", args[1], err)
	}
	pos := chess.NewGame(fenOpt).Position()
	for _, token := range args[2:] {
		next, ok := applyToken(pos, token)
		if !ok {
			return writeErrorAndReturn(stderr, exitInvalid, "error: move %s is not legal at %s\n", token, pos.String())
		}
		pos = next
	}

	res := flt.split(pos, depth)
	if flt.malformed != "" {
		return writeMalformed(stdout, res, flt.malformed)
	}
	if err := splitperft.WriteResult(stdout, res); err != nil {
		return writeErrorAndReturn(stderr, exitInternal, "error: %v\n", err)
	}
	return exitSuccess
}

// applyToken plays the move named by its coordinate rendering, or reports
// that no legal move renders that way.
func applyToken(pos *chess.Position, token string) (*chess.Position, bool) {
	for _, mv := range pos.ValidMoves() {
		if mv.String() == token {
			return pos.Update(mv), true
		}
	}
	return nil, false
}

// faults is the injected misbehavior for one invocation. No move fields set
// and exitCode -1 means an honest generator.
type faults struct {
	dropMove  string
	extraMove string
	miscount  string
	vanish    string
	skewTotal int64
	malformed string
	exitCode  int
}

func parseFaults(getenv func(string) string) (faults, error) {
	f := faults{exitCode: -1}
	moveVars := []struct {
		name string
		dst  *string
	}{
		{"AUTOPERFT_SUBJECT_DROP_MOVE", &f.dropMove},
		{"AUTOPERFT_SUBJECT_EXTRA_MOVE", &f.extraMove},
		{"AUTOPERFT_SUBJECT_MISCOUNT", &f.miscount},
		{"AUTOPERFT_SUBJECT_VANISH", &f.vanish},
	}
	for _, mv := range moveVars {
		v := getenv(mv.name)
		if v == "" {
			continue
		}
		if !splitperft.Move(v).Valid() {
			return f, fmt.Errorf("%s: %q is not a coordinate move", mv.name, v)
		}
		*mv.dst = v
	}
	if v := getenv("AUTOPERFT_SUBJECT_SKEW_TOTAL"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, fmt.Errorf("AUTOPERFT_SUBJECT_SKEW_TOTAL: %q is not an integer", v)
		}
		f.skewTotal = n
	}
	if v := getenv("AUTOPERFT_SUBJECT_MALFORMED"); v != "" {
		switch v {
		case "no-blank-line", "bad-total", "bad-move":
			f.malformed = v
		default:
			return f, fmt.Errorf("AUTOPERFT_SUBJECT_MALFORMED: unknown mode %q", v)
		}
	}
	if v := getenv("AUTOPERFT_SUBJECT_EXIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 255 {
			return f, fmt.Errorf("AUTOPERFT_SUBJECT_EXIT: %q is not an exit code in 1..255", v)
		}
		f.exitCode = n
	}
	return f, nil
}

// split computes the per-move subtree counts for the position, then applies
// the listing-level faults to the finished split.
func (f faults) split(pos *chess.Position, depth int) splitperft.Result {
	counts := make(map[splitperft.Move]uint64)
	var total uint64
	if depth == 0 {
		total = 1
	} else {
		for _, mv := range pos.ValidMoves() {
			var nodes uint64
			if depth == 1 {
				nodes = f.leaf(mv)
			} else {
				nodes = f.perft(pos.Update(mv), depth-1)
			}
			counts[splitperft.Move(mv.String())] = nodes
			total += nodes
		}
	}
	f.tamper(counts, &total)
	return splitperft.Result{Counts: counts, Total: total}
}

func (f faults) perft(pos *chess.Position, depth int) uint64 {
	var nodes uint64
	for _, mv := range pos.ValidMoves() {
		if depth == 1 {
			nodes += f.leaf(mv)
			continue
		}
		nodes += f.perft(pos.Update(mv), depth-1)
	}
	return nodes
}

// leaf counts one legal move at the last ply, unless the miscount fault
// silently loses it.
func (f faults) leaf(mv *chess.Move) uint64 {
	if f.miscount != "" && mv.String() == f.miscount {
		return 0
	}
	return 1
}

// tamper applies the listing-level faults to a finished split. Counts are
// tampered before the total-only skew so the skew is always visible as a
// sum/total disagreement.
func (f faults) tamper(counts map[splitperft.Move]uint64, total *uint64) {
	if f.dropMove != "" {
		mv := splitperft.Move(f.dropMove)
		if c, ok := counts[mv]; ok {
			delete(counts, mv)
			*total -= c
		}
	}
	if f.vanish != "" {
		mv := splitperft.Move(f.vanish)
		if c, ok := counts[mv]; ok && c > 0 {
			counts[mv] = c - 1
			*total--
		}
	}
	if f.extraMove != "" {
		counts[splitperft.Move(f.extraMove)] = 1
		*total++
	}
	if f.skewTotal != 0 {
		skewed := int64(*total) + f.skewTotal
		if skewed < 0 {
			skewed = 0
		}
		*total = uint64(skewed)
	}
}

// writeMalformed prints a protocol-breaking rendition of the split.
func writeMalformed(stdout io.Writer, res splitperft.Result, mode string) int {
	var out strings.Builder
	switch mode {
	case "no-blank-line":
		for _, mv := range res.Moves() {
			fmt.Fprintf(&out, "%s %d\n", mv, res.Counts[mv])
		}
		fmt.Fprintf(&out, "%d\n", res.Total)
	case "bad-total":
		for _, mv := range res.Moves() {
			fmt.Fprintf(&out, "%s %d\n", mv, res.Counts[mv])
		}
		out.WriteString("\nnot-a-number\n")
	case "bad-move":
		out.WriteString("z9z9 1\n")
		for _, mv := range res.Moves() {
			fmt.Fprintf(&out, "%s %d\n", mv, res.Counts[mv])
		}
		fmt.Fprintf(&out, "\n%d\n", res.Total)
	}
	if err := writef(stdout, "%s", out.String()); err != nil {
		return exitInternal
	}
	return exitSuccess
}

func writeErrorAndReturn(w io.Writer, code int, format string, args ...any) int {
	if err := writef(w, format, args...); err != nil {
		return exitInternal
	}
	return code
}

func writeLine(w io.Writer, s string) error {
	_, err := io.WriteString(w, s+"\n")
	return err
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
