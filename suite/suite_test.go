package suite_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dannyhammer/autoperft/perfterr"
	"github.com/dannyhammer/autoperft/suite"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestParseValid(t *testing.T) {
	input := `# standard openings
` + startFEN + ` ;D1 20 ;D2 400

8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1 ;D3 2812 ;D1 14
`
	cases, err := suite.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, cases, 2)

	assert.Equal(t, startFEN, cases[0].FEN)
	assert.Equal(t, 2, cases[0].Depth)
	assert.Equal(t, map[int]uint64{1: 20, 2: 400}, cases[0].Expected)

	// Depth is the highest annotation, not the last one.
	assert.Equal(t, 3, cases[1].Depth)
	assert.Equal(t, []int{1, 3}, cases[1].Depths())
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"missing fen", ";D1 20", "line 1: missing FEN"},
		{"invalid fen", "this is not chess ;D1 20", "invalid FEN"},
		{"no annotations", startFEN, "no depth annotations"},
		{"empty annotation", startFEN + " ;D1 20 ;", "empty annotation"},
		{"annotation shape", startFEN + " ;D1", "not `D<k> <count>`"},
		{"annotation prefix", startFEN + " ;X1 20", "not `D<k> <count>`"},
		{"depth zero", startFEN + " ;D0 1", "bad depth"},
		{"depth not numeric", startFEN + " ;Dx 20", "bad depth"},
		{"duplicate depth", startFEN + " ;D1 20 ;D1 20", "duplicate annotation for depth 1"},
		{"negative count", startFEN + " ;D1 -3", "bad count"},
		{"count not numeric", startFEN + " ;D1 many", "bad count"},
		{"line number counts comments", "# header\n\n" + startFEN + " ;D1", "line 3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := suite.Parse(strings.NewReader(tc.input))
			require.Error(t, err)
			assert.Equal(t, perfterr.SuiteMalformed, perfterr.ClassOf(err))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.epd")
	content := startFEN + " ;D1 20 ;D2 400\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cases, err := suite.Load(path)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, 2, cases[0].Depth)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := suite.Load(filepath.Join(t.TempDir(), "absent.epd"))
	require.Error(t, err)
	assert.Equal(t, perfterr.SuiteMalformed, perfterr.ClassOf(err))
}

func TestDefaultSuite(t *testing.T) {
	cases := suite.Default()
	require.Len(t, cases, 6)

	assert.Equal(t, startFEN, cases[0].FEN)
	assert.Equal(t, 4, cases[0].Depth)
	assert.Equal(t, uint64(197281), cases[0].Expected[4])

	for i, c := range cases {
		assert.NotEmpty(t, c.FEN, "case %d", i)
		assert.GreaterOrEqual(t, c.Depth, 3, "case %d", i)
		assert.NotEmpty(t, c.Expected, "case %d", i)
	}
}

func TestSlice(t *testing.T) {
	cases := suite.Default()
	all := len(cases)

	assert.Len(t, suite.Slice(cases, 0, 0), all)
	assert.Len(t, suite.Slice(cases, -1, -1), all)
	assert.Len(t, suite.Slice(cases, 2, 0), all-2)
	assert.Len(t, suite.Slice(cases, 0, 2), 2)
	assert.Len(t, suite.Slice(cases, all, 0), 0)
	assert.Len(t, suite.Slice(cases, 0, all+5), all)

	sliced := suite.Slice(cases, 1, 2)
	require.Len(t, sliced, 2)
	assert.Equal(t, cases[1].FEN, sliced[0].FEN)
	assert.Equal(t, cases[2].FEN, sliced[1].FEN)
}
