// Package bisect narrows a split-perft disagreement to the shortest move
// path that still exhibits it.
//
// The bisector queries an oracle and a subject for the same position at the
// same depth, compares the two results, and, when the representative
// divergence is a count mismatch on a single move, descends into that move at
// one less depth. Structural divergences (missing or extra moves, total
// skew) and depth 1 stop the walk, because there is no deeper subtree that
// could explain them. Depth decreases strictly on every descent, so the walk
// always terminates.
package bisect

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dannyhammer/autoperft/perfterr"
	"github.com/dannyhammer/autoperft/splitperft"
)

const opBisect = "bisect"

// Position is a board position reached by playing a move path from a root
// FEN. The zero value is not meaningful; construct with NewPosition and
// derive children with Child. Values are immutable: Child and Path copy the
// move slice, so positions can be shared across goroutines.
type Position struct {
	fen  string
	path []splitperft.Move
}

// NewPosition returns the position described by fen with an empty path.
func NewPosition(fen string) Position {
	return Position{fen: fen}
}

// FEN returns the root FEN the path starts from.
func (p Position) FEN() string { return p.fen }

// Path returns a copy of the moves played from the root FEN.
func (p Position) Path() []splitperft.Move {
	if len(p.path) == 0 {
		return nil
	}
	return append([]splitperft.Move(nil), p.path...)
}

// Child returns the position reached by playing mv from p.
func (p Position) Child(mv splitperft.Move) Position {
	path := make([]splitperft.Move, 0, len(p.path)+1)
	path = append(path, p.path...)
	path = append(path, mv)
	return Position{fen: p.fen, path: path}
}

// String renders the position as its root FEN, followed by the move path
// when one exists.
func (p Position) String() string {
	if len(p.path) == 0 {
		return p.fen
	}
	return p.fen + " moves " + strings.Join(PathStrings(p.path), " ")
}

// PathStrings converts a move path to plain strings for logging and reports.
func PathStrings(path []splitperft.Move) []string {
	out := make([]string, len(path))
	for i, mv := range path {
		out[i] = string(mv)
	}
	return out
}

// Generator produces a split-perft result for a position at a depth. Both
// the trusted oracle and the subject adapter satisfy it; the bisector treats
// the two sides identically except for which one it believes.
type Generator interface {
	SplitPerft(ctx context.Context, pos Position, depth int) (splitperft.Result, error)
}

// Result is the terminal outcome of one bisection. OracleTotal is the
// oracle's reported total for the root position at the starting depth, kept
// so callers can cross-check the trusted side against published perft
// numbers. Either FullAgreement is true and the locating fields are zero, or
// Divergence is non-nil and Path and Depth locate the position at which it
// was isolated.
type Result struct {
	FullAgreement bool
	OracleTotal   uint64
	Path          []splitperft.Move
	Depth         int
	Divergence    *splitperft.Divergence
}

// Bisector drives the narrowing walk. Oracle and Subject must be set; the
// zero-value Log discards everything.
type Bisector struct {
	Oracle  Generator
	Subject Generator
	Log     zerolog.Logger
}

// Run bisects the disagreement between Oracle and Subject at root, starting
// from depth and descending one ply at a time. It returns FullAgreement when
// the two sides match at the starting depth, and otherwise the shortest path
// at which a divergence was isolated. Errors from either side abort the walk
// unchanged apart from positional context, so their failure class survives.
func (b *Bisector) Run(ctx context.Context, root Position, depth int) (Result, error) {
	if b.Oracle == nil || b.Subject == nil {
		return Result{}, perfterr.New(perfterr.InternalError, opBisect, "oracle and subject are required")
	}
	if depth < 0 {
		return Result{}, perfterr.Newf(perfterr.InternalError, opBisect, "negative depth %d", depth)
	}

	pos := root
	var rootTotal uint64
	for current := depth; ; current-- {
		oracleRes, err := b.Oracle.SplitPerft(ctx, pos, current)
		if err != nil {
			return Result{}, fmt.Errorf("oracle at %s depth %d: %w", pos, current, err)
		}
		if current == depth {
			rootTotal = oracleRes.Total
		}
		subjectRes, err := b.Subject.SplitPerft(ctx, pos, current)
		if err != nil {
			return Result{}, fmt.Errorf("subject at %s depth %d: %w", pos, current, err)
		}

		div := splitperft.Compare(oracleRes, subjectRes)
		if div == nil {
			if current != depth {
				// Reaching agreement below a diverging ply means the subject
				// answered inconsistently between depths; the walk cannot
				// isolate anything deeper.
				b.Log.Warn().
					Str("fen", pos.FEN()).
					Strs("path", PathStrings(pos.Path())).
					Int("depth", current).
					Msg("divergence vanished mid-bisection; subject is inconsistent across plies")
			}
			return Result{FullAgreement: true, OracleTotal: rootTotal}, nil
		}

		b.Log.Debug().
			Str("fen", pos.FEN()).
			Strs("path", PathStrings(pos.Path())).
			Int("depth", current).
			Str("kind", string(div.Kind)).
			Str("move", string(div.Move)).
			Uint64("oracle", div.OracleCount).
			Uint64("subject", div.SubjectCount).
			Msg("ply divergence")

		// Only a count mismatch names a single deeper subtree to descend
		// into, and descending below depth 1 would compare leaves that no
		// longer exist.
		if current <= 1 || div.Kind != splitperft.MoveCountMismatch {
			return Result{OracleTotal: rootTotal, Path: pos.Path(), Depth: current, Divergence: div}, nil
		}
		pos = pos.Child(div.Move)
	}
}
