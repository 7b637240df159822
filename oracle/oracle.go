// Package oracle is the trusted side of the differential comparison. It
// produces split-perft results with dragontoothmg's magic-bitboard move
// generator, which is treated as ground truth: whatever it reports as legal
// and countable defines correctness for the subject under test.
package oracle

import (
	"context"

	"github.com/dylhunn/dragontoothmg"
	"github.com/notnil/chess"

	"github.com/dannyhammer/autoperft/bisect"
	"github.com/dannyhammer/autoperft/perfterr"
	"github.com/dannyhammer/autoperft/splitperft"
)

const opSplit = "oracle split"

// Generator implements bisect.Generator on top of dragontoothmg. The zero
// value is ready to use and safe for concurrent calls; every call builds its
// own board state.
type Generator struct{}

// New returns a ready Generator.
func New() *Generator {
	return &Generator{}
}

// ValidateFEN reports whether fen is a structurally valid position
// descriptor. Suite loading and flag parsing reject bad FENs up front with
// their own failure classes, so a FEN reaching SplitPerft is expected to
// pass.
func ValidateFEN(fen string) error {
	if _, err := chess.FEN(fen); err != nil {
		return err
	}
	return nil
}

// SplitPerft walks pos's move path from its root FEN and returns the
// per-move leaf counts at the requested depth. An invalid FEN or a path move
// that is not legal where it is played is an OracleInternal error: the
// bisector only descends into moves this generator itself reported, so
// either means a bug on the trusted side, not in the subject.
func (g *Generator) SplitPerft(ctx context.Context, pos bisect.Position, depth int) (splitperft.Result, error) {
	if depth < 0 {
		return splitperft.Result{}, perfterr.Newf(perfterr.OracleInternal, opSplit, "negative depth %d", depth)
	}
	if err := ValidateFEN(pos.FEN()); err != nil {
		return splitperft.Result{}, perfterr.Wrap(perfterr.OracleInternal, opSplit, "invalid FEN "+pos.FEN(), err)
	}
	board, err := parseBoard(pos.FEN())
	if err != nil {
		return splitperft.Result{}, err
	}

	for _, mv := range pos.Path() {
		if !applyByName(&board, mv) {
			return splitperft.Result{}, perfterr.Newf(perfterr.OracleInternal, opSplit,
				"path move %s is not legal at %s", mv, board.ToFen())
		}
	}

	counts := make(map[splitperft.Move]uint64)
	var total uint64
	if depth == 0 {
		return splitperft.Result{Counts: counts, Total: 1}, nil
	}
	for _, legal := range board.GenerateLegalMoves() {
		if err := ctx.Err(); err != nil {
			return splitperft.Result{}, err
		}
		unapply := board.Apply(legal)
		nodes := uint64(dragontoothmg.Perft(&board, depth-1))
		unapply()
		counts[splitperft.Move(legal.String())] = nodes
		total += nodes
	}
	return splitperft.Result{Counts: counts, Total: total}, nil
}

// parseBoard converts a pre-validated FEN into a dragontoothmg board.
// ParseFen indexes the string without validating it, so a descriptor that
// slipped past validation panics instead of erroring.
func parseBoard(fen string) (board dragontoothmg.Board, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = perfterr.Newf(perfterr.OracleInternal, opSplit, "trusted generator rejected FEN %q: %v", fen, r)
		}
	}()
	board = dragontoothmg.ParseFen(fen)
	return board, nil
}

// applyByName plays the legal move whose coordinate notation matches mv and
// reports whether one existed. Matching is textual: path moves travel as
// strings, and the legal set's own rendering is the identity they are
// matched by.
func applyByName(board *dragontoothmg.Board, mv splitperft.Move) bool {
	for _, legal := range board.GenerateLegalMoves() {
		if legal.String() == string(mv) {
			board.Apply(legal)
			return true
		}
	}
	return false
}
