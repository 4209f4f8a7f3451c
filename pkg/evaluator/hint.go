package evaluator

import (
	"fmt"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

const maxHintDistance = 2

// closestName suggests a visible name for a misspelled one. names must be sorted.
func closestName(name string, names []string) string {
	best, bestDist := "", -1
	for _, cand := range names {
		if cand == name {
			continue
		}
		d := fuzzy.LevenshteinDistance(name, cand)
		if d > maxHintDistance && !fuzzy.MatchFold(name, cand) {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = cand, d
		}
	}
	if best == "" {
		return ""
	}
	return fmt.Sprintf("did you mean '%s'?", best)
}
