package splitperft

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dannyhammer/autoperft/perfterr"
)

const opParse = "parse split output"

// ParseResult decodes the subject wire form:
//
//	zero or more lines of "<move> <count>", in any order, with any run of
//	spaces or tabs between token and count; then exactly one blank line;
//	then one line holding the unsigned decimal total.
//
// Blank lines after the total are tolerated; anything else trailing is an
// error. Every violation (missing separator, missing or non-numeric total,
// malformed move token, duplicate move) returns an ADAPTER_PROTOCOL error,
// never a silently zeroed result.
//
// ParseResult does not know the queried depth. A depth-0 subject emits no
// move lines and a total of 1, which is already well-formed here; whether
// the counts are right is the comparator's business.
func ParseResult(data []byte) (Result, error) {
	lines := strings.Split(string(data), "\n")
	res := Result{Counts: make(map[Move]uint64)}

	i := 0
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			break
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return Result{}, perfterr.Newf(perfterr.AdapterProtocol, opParse,
				"line %d: want \"<move> <count>\", got %q", i+1, line)
		}
		mv := Move(fields[0])
		if !mv.Valid() {
			return Result{}, perfterr.Newf(perfterr.AdapterProtocol, opParse,
				"line %d: malformed move token %q", i+1, fields[0])
		}
		count, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return Result{}, perfterr.Newf(perfterr.AdapterProtocol, opParse,
				"line %d: non-numeric count %q for move %s", i+1, fields[1], mv)
		}
		if _, dup := res.Counts[mv]; dup {
			return Result{}, perfterr.Newf(perfterr.AdapterProtocol, opParse,
				"line %d: duplicate move %s", i+1, mv)
		}
		res.Counts[mv] = count
	}

	if i == len(lines) {
		return Result{}, perfterr.New(perfterr.AdapterProtocol, opParse,
			"missing blank separator before total")
	}
	i++

	if i == len(lines) {
		return Result{}, perfterr.New(perfterr.AdapterProtocol, opParse,
			"missing total line")
	}
	totalFields := strings.Fields(lines[i])
	if len(totalFields) == 0 {
		return Result{}, perfterr.Newf(perfterr.AdapterProtocol, opParse,
			"line %d: expected total, got blank line", i+1)
	}
	if len(totalFields) != 1 {
		return Result{}, perfterr.Newf(perfterr.AdapterProtocol, opParse,
			"line %d: malformed total line %q", i+1, lines[i])
	}
	total, err := strconv.ParseUint(totalFields[0], 10, 64)
	if err != nil {
		return Result{}, perfterr.Newf(perfterr.AdapterProtocol, opParse,
			"line %d: non-numeric total %q", i+1, totalFields[0])
	}
	res.Total = total

	for i++; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			return Result{}, perfterr.Newf(perfterr.AdapterProtocol, opParse,
				"line %d: unexpected content after total: %q", i+1, lines[i])
		}
	}
	return res, nil
}

// WriteResult renders r in the wire form: per-move lines in lexicographic
// order, one blank separator, then the total. The protocol permits any move
// order; sorting makes the output reproducible byte for byte.
func WriteResult(w io.Writer, r Result) error {
	for _, mv := range r.Moves() {
		if _, err := fmt.Fprintf(w, "%s %d\n", mv, r.Counts[mv]); err != nil {
			return fmt.Errorf("write split line: %w", err)
		}
	}
	if _, err := fmt.Fprintf(w, "\n%d\n", r.Total); err != nil {
		return fmt.Errorf("write total line: %w", err)
	}
	return nil
}
