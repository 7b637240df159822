// Package splitperft defines the split-perft data model shared by the oracle
// and the subject adapter: the node count contributed by each legal first
// move plus a reported grand total, the textual wire form those results
// travel in, and the structural comparator that classifies disagreements
// between two results.
package splitperft

import (
	"fmt"
	"regexp"
	"sort"
)

// Move is one legal transition in coordinate notation: origin square,
// destination square, optional promotion letter (e2e4, e7e8q). Equality and
// ordering are plain string equality and ordering; results from different
// generators are matched by this textual identity, never by board-state
// equivalence.
type Move string

var moveTokenRE = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][nbrq]?$`)

// Valid reports whether m is a well-formed coordinate-notation token.
func (m Move) Valid() bool {
	return moveTokenRE.MatchString(string(m))
}

// Result is one split-perft measurement. Counts maps each legal first move
// to the number of leaf nodes reachable through it; Total is the reported
// full perft of the position. Total is authoritative data from the producer
// and is never re-derived from Counts, so a producer can be caught
// misreporting either one independently.
type Result struct {
	Counts map[Move]uint64
	Total  uint64
}

// Moves returns the move set in lexicographic order.
func (r Result) Moves() []Move {
	moves := make([]Move, 0, len(r.Counts))
	for mv := range r.Counts {
		moves = append(moves, mv)
	}
	sort.Slice(moves, func(i, j int) bool { return moves[i] < moves[j] })
	return moves
}

// DivergenceKind is a stable category of disagreement between two results.
type DivergenceKind string

const (
	// MoveMissingInSubject: the oracle lists a legal move the subject's
	// mapping does not contain.
	MoveMissingInSubject DivergenceKind = "MOVE_MISSING_IN_SUBJECT"
	// MoveExtraInSubject: the subject lists a move absent from the oracle's
	// legal set.
	MoveExtraInSubject DivergenceKind = "MOVE_EXTRA_IN_SUBJECT"
	// MoveCountMismatch: both sides list the move but with differing counts.
	MoveCountMismatch DivergenceKind = "MOVE_COUNT_MISMATCH"
	// TotalMismatch: the per-move mappings agree exactly but the reported
	// totals differ.
	TotalMismatch DivergenceKind = "TOTAL_MISMATCH"
)

// Divergence describes one representative disagreement between an oracle
// result and a subject result. A nil *Divergence means the results agree.
// Move is empty for TotalMismatch; for the two enumeration kinds only the
// listing side's count is meaningful.
type Divergence struct {
	Kind         DivergenceKind
	Move         Move
	OracleCount  uint64
	SubjectCount uint64
}

// String renders the divergence for diagnostics.
func (d *Divergence) String() string {
	switch d.Kind {
	case MoveMissingInSubject:
		return fmt.Sprintf("move %s missing in subject (oracle %d)", d.Move, d.OracleCount)
	case MoveExtraInSubject:
		return fmt.Sprintf("move %s not legal but reported by subject (%d)", d.Move, d.SubjectCount)
	case MoveCountMismatch:
		return fmt.Sprintf("move %s: oracle %d, subject %d", d.Move, d.OracleCount, d.SubjectCount)
	case TotalMismatch:
		return fmt.Sprintf("totals differ: oracle %d, subject %d", d.OracleCount, d.SubjectCount)
	default:
		return fmt.Sprintf("unknown divergence %q", string(d.Kind))
	}
}
