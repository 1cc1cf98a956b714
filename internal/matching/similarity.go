package matching

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Similarity returns the case-insensitive Ratcliff/Obershelp ratio of a and b, 2·M/T where M is
// the number of runes in matching blocks and T the total rune count. Two empty strings score 1.
//
// The matcher's block search is not symmetric, so both directions are computed and the larger kept.
func Similarity(a, b string) float64 {
	x, y := runes(strings.ToLower(a)), runes(strings.ToLower(b))
	if len(x) == 0 && len(y) == 0 {
		return 1
	}

	forward := difflib.NewMatcher(x, y).Ratio()
	backward := difflib.NewMatcher(y, x).Ratio()
	return max(forward, backward)
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
