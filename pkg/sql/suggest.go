package sql

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// nearestIdentifier returns the candidate closest to target by edit
// distance, for "did you mean" hints on unknown identifiers. A match must be
// within two edits and strictly closer than the length of the target, so
// short names do not produce absurd suggestions.
func nearestIdentifier(target string, candidates []string) (string, bool) {
	t := []rune(strings.ToLower(target))
	best := ""
	bestDist := -1
	for _, c := range candidates {
		d := levenshtein.DistanceForStrings(t, []rune(strings.ToLower(c)), levenshtein.DefaultOptions)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	if bestDist < 0 || bestDist > 2 || bestDist >= len(t) {
		return "", false
	}
	return best, true
}
