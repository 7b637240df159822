package splitperft_test

import (
	"bytes"
	"testing"

	"github.com/dannyhammer/autoperft/splitperft"
)

// FuzzParseResultRoundTrip: parse → write → parse stability for every input
// the parser accepts, and no panics for anything it rejects.
func FuzzParseResultRoundTrip(f *testing.F) {
	seeds := [][]byte{
		[]byte("e2e4 20\nd2d4 20\n\n40\n"),
		[]byte("\n1\n"),
		[]byte("e7e8q 1\n\n1"),
		[]byte("e2e4\t20\r\n\r\n20\r\n"),
		[]byte("e2e4 20\n400\n"),
		[]byte("e2e4 18446744073709551615\n\n18446744073709551615\n"),
		[]byte(""),
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, in []byte) {
		if len(in) > 1<<20 {
			return
		}

		res, err := splitperft.ParseResult(in)
		if err != nil {
			return
		}

		var buf bytes.Buffer
		if err := splitperft.WriteResult(&buf, res); err != nil {
			t.Fatalf("write parsed result: %v", err)
		}
		back, err := splitperft.ParseResult(buf.Bytes())
		if err != nil {
			t.Fatalf("reparse written result: %v", err)
		}
		if back.Total != res.Total || len(back.Counts) != len(res.Counts) {
			t.Fatalf("round trip mismatch: %+v vs %+v", back, res)
		}
		for mv, count := range res.Counts {
			if back.Counts[mv] != count {
				t.Fatalf("round trip count[%s] = %d, want %d", mv, back.Counts[mv], count)
			}
		}
	})
}
