// Package suite loads perft test suites, runs them case by case through the
// bisector, and renders the outcome as a machine-readable report.
package suite

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dannyhammer/autoperft/oracle"
	"github.com/dannyhammer/autoperft/perfterr"
)

const opLoad = "load suite"

//go:embed standard.epd
var standardEPD []byte

// Case is one suite entry: a position and the depth to compare at. Expected
// holds the suite's published node counts per depth. The subject is compared
// against the oracle, never against these counts directly; the runner uses
// the run-depth count to verify the oracle itself before trusting a verdict.
type Case struct {
	FEN      string
	Depth    int
	Expected map[int]uint64
}

// Parse reads EPD perft records: one position per line, the FEN followed by
// `;D<k> <count>` annotations. The case depth is the highest annotated
// depth. Blank lines and `#` comments are skipped; anything else malformed
// fails the whole load with a line-numbered SuiteMalformed error.
func Parse(r io.Reader) ([]Case, error) {
	var cases []Case
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c, err := parseRecord(line, lineno)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, perfterr.Wrap(perfterr.SuiteMalformed, opLoad, "read suite", err)
	}
	return cases, nil
}

func parseRecord(line string, lineno int) (Case, error) {
	fields := strings.Split(line, ";")
	fen := strings.TrimSpace(fields[0])
	if fen == "" {
		return Case{}, perfterr.Newf(perfterr.SuiteMalformed, opLoad, "line %d: missing FEN", lineno)
	}
	if err := oracle.ValidateFEN(fen); err != nil {
		return Case{}, perfterr.Newf(perfterr.SuiteMalformed, opLoad, "line %d: invalid FEN %q: %v", lineno, fen, err)
	}
	if len(fields) == 1 {
		return Case{}, perfterr.Newf(perfterr.SuiteMalformed, opLoad, "line %d: no depth annotations", lineno)
	}

	expected := make(map[int]uint64, len(fields)-1)
	depth := 0
	for _, field := range fields[1:] {
		field = strings.TrimSpace(field)
		if field == "" {
			return Case{}, perfterr.Newf(perfterr.SuiteMalformed, opLoad, "line %d: empty annotation", lineno)
		}
		parts := strings.Fields(field)
		if len(parts) != 2 || !strings.HasPrefix(parts[0], "D") {
			return Case{}, perfterr.Newf(perfterr.SuiteMalformed, opLoad, "line %d: annotation %q is not `D<k> <count>`", lineno, field)
		}
		k, err := strconv.Atoi(parts[0][1:])
		if err != nil || k < 1 {
			return Case{}, perfterr.Newf(perfterr.SuiteMalformed, opLoad, "line %d: bad depth in annotation %q", lineno, field)
		}
		if _, dup := expected[k]; dup {
			return Case{}, perfterr.Newf(perfterr.SuiteMalformed, opLoad, "line %d: duplicate annotation for depth %d", lineno, k)
		}
		count, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return Case{}, perfterr.Newf(perfterr.SuiteMalformed, opLoad, "line %d: bad count in annotation %q", lineno, field)
		}
		expected[k] = count
		if k > depth {
			depth = k
		}
	}
	return Case{FEN: fen, Depth: depth, Expected: expected}, nil
}

// Load reads a suite file from disk.
//
//nolint:gosec // suite path is explicit operator input.
func Load(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, perfterr.Wrap(perfterr.SuiteMalformed, opLoad, "read suite "+path, err)
	}
	return Parse(bytes.NewReader(data))
}

// Default returns the built-in suite: the standard move-generator validation
// positions with their published node counts.
func Default() []Case {
	cases, err := Parse(bytes.NewReader(standardEPD))
	if err != nil {
		panic(fmt.Sprintf("embedded suite: %v", err))
	}
	return cases
}

// Slice drops the first skip cases and then keeps at most first of the
// remainder. Non-positive values disable the corresponding bound.
func Slice(cases []Case, skip, first int) []Case {
	if skip > 0 {
		if skip >= len(cases) {
			return nil
		}
		cases = cases[skip:]
	}
	if first > 0 && first < len(cases) {
		cases = cases[:first]
	}
	return cases
}

// Depths returns a case's annotated depths in ascending order.
func (c Case) Depths() []int {
	depths := make([]int, 0, len(c.Expected))
	for k := range c.Expected {
		depths = append(depths, k)
	}
	sort.Ints(depths)
	return depths
}
