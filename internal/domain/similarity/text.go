package similarity

import (
	"github.com/pmezard/go-difflib/difflib"
)

// TextSimilarity returns 2*M/T where M is the size of the matching blocks
// found by the difflib sequence matcher over the code points of a and b, and
// T is their combined length. Two empty strings score 1, empty against
// non-empty scores 0.
func TextSimilarity(a, b string) float64 {
	return textRatio(splitRunes(a), splitRunes(b), a, b)
}

// textRatio scores two pre-split strings. The raw strings decide argument
// order: the matcher's longest-match search is not symmetric, so the
// lexically smaller string always goes first.
func textRatio(ra, rb []string, a, b string) float64 {
	if a == b {
		return 1
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	if a > b {
		ra, rb = rb, ra
	}
	return difflib.NewMatcher(ra, rb).Ratio()
}

// splitRunes turns s into one element per code point.
func splitRunes(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
