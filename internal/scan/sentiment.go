package scan

import (
	"math"
	"strings"
)

// Sentiment labels.
const (
	LabelPositive = "positive"
	LabelNeutral  = "neutral"
	LabelNegative = "negative"
)

const (
	positiveWeight = 0.1
	negativeWeight = -0.15
	labelThreshold = 0.1
)

var positiveTerms = []string{
	"excellent", "great", "best", "recommended", "trusted",
	"reliable", "popular", "leading", "award", "top",
}

// "lawsuit" appears in riskTerms only. "Dior is great and trusted, no lawsuit
// found" scores +0.2 positive and carries the lawsuit flag; a negative entry
// here would drop it to neutral.
var negativeTerms = []string{
	"scam", "fraud", "unsafe", "unreliable", "problematic",
	"dangerous", "recall", "complaint",
}

var riskTerms = []string{
	"scam", "fraud", "lawsuit", "unsafe", "recall",
	"complaint", "false", "misleading", "dangerous",
}

// Sentiment is the lexicon verdict for one response.
type Sentiment struct {
	Label     string
	Score     float64
	RiskFlags []string
}

// AnalyzeSentiment scores text against the fixed lexicons. Each lexicon term
// counts once no matter how often it appears. There is no negation handling:
// "no lawsuit" still raises the lawsuit flag.
func AnalyzeSentiment(text string) Sentiment {
	lower := strings.ToLower(text)

	score := 0.0
	for _, w := range positiveTerms {
		if strings.Contains(lower, w) {
			score += positiveWeight
		}
	}
	for _, w := range negativeTerms {
		if strings.Contains(lower, w) {
			score += negativeWeight
		}
	}
	score = Round2(math.Max(-1, math.Min(1, score)))

	label := LabelNeutral
	switch {
	case score > labelThreshold:
		label = LabelPositive
	case score < -labelThreshold:
		label = LabelNegative
	}

	flags := []string{}
	for _, p := range riskTerms {
		if strings.Contains(lower, p) {
			flags = append(flags, p)
		}
	}

	return Sentiment{Label: label, Score: score, RiskFlags: flags}
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
