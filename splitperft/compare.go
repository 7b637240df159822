package splitperft

// Compare structurally diffs a subject result against an oracle result and
// returns the single representative divergence chosen by a deterministic
// priority, or nil when the results agree exactly: same move set, same count
// for every move, same reported total.
//
// Priority, ties broken by the lexicographically smallest move:
//
//  1. an oracle move with nonzero count absent from the subject
//  2. a subject move absent from the oracle's legal set
//  3. a shared move with differing counts
//  4. an oracle move with zero count absent from the subject
//  5. totals differing while the per-move mappings agree
//
// Zero-count omissions rank below count mismatches so that bisection prefers
// a real counting bug over a vacuous enumeration gap; they still diverge,
// because the move sets are required to be equal.
//
// Compare never consults depth and never recurses. It is a pure diff over
// one ply with no side effects.
func Compare(oracle, subject Result) *Divergence {
	oracleMoves := oracle.Moves()

	for _, mv := range oracleMoves {
		if _, ok := subject.Counts[mv]; !ok && oracle.Counts[mv] != 0 {
			return &Divergence{Kind: MoveMissingInSubject, Move: mv, OracleCount: oracle.Counts[mv]}
		}
	}

	for _, mv := range subject.Moves() {
		if _, ok := oracle.Counts[mv]; !ok {
			return &Divergence{Kind: MoveExtraInSubject, Move: mv, SubjectCount: subject.Counts[mv]}
		}
	}

	for _, mv := range oracleMoves {
		sc, ok := subject.Counts[mv]
		if !ok {
			continue
		}
		if oc := oracle.Counts[mv]; sc != oc {
			return &Divergence{Kind: MoveCountMismatch, Move: mv, OracleCount: oc, SubjectCount: sc}
		}
	}

	for _, mv := range oracleMoves {
		if _, ok := subject.Counts[mv]; !ok {
			return &Divergence{Kind: MoveMissingInSubject, Move: mv}
		}
	}

	if oracle.Total != subject.Total {
		return &Divergence{Kind: TotalMismatch, OracleCount: oracle.Total, SubjectCount: subject.Total}
	}
	return nil
}
