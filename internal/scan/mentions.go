package scan

import "regexp"

// Mentions holds literal occurrence counts for a brand and its competitors.
type Mentions struct {
	BrandMentioned   bool
	BrandCount       int
	CompetitorCounts map[string]int
}

// DetectMentions counts case-insensitive literal occurrences of the brand
// name and each competitor name. Names embedded in longer words still count.
func DetectMentions(text, brandName string, competitors []string) Mentions {
	m := Mentions{
		BrandCount:       countOccurrences(text, brandName),
		CompetitorCounts: make(map[string]int, len(competitors)),
	}
	for _, c := range competitors {
		m.CompetitorCounts[c] = countOccurrences(text, c)
	}
	m.BrandMentioned = m.BrandCount > 0
	return m
}

func countOccurrences(text, term string) int {
	if term == "" || text == "" {
		return 0
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(term))
	return len(re.FindAllStringIndex(text, -1))
}
