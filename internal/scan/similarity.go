package scan

import "strings"

// DefaultChangeThreshold is the similarity below which two answers to the
// same prompt are considered materially different.
const DefaultChangeThreshold = 0.7

// Similarity is the Jaccard index of the lower-cased whitespace tokens of a
// and b, rounded to 2 decimals. It is 0 when either text is empty.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	wordsA := tokenSet(a)
	wordsB := tokenSet(b)

	intersection := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	if union == 0 {
		return 1
	}
	return Round2(float64(intersection) / float64(union))
}

// SignificantChange reports whether sim falls under threshold.
func SignificantChange(sim, threshold float64) bool {
	return sim < threshold
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}
