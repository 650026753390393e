// Package score turns scanner output into the persisted per-run metrics.
package score

import (
	"fmt"
	"strings"

	"github.com/TobiSchelling/GEOMonitor/internal/scan"
)

// Profile is the brand snapshot a response is scored against.
type Profile struct {
	BrandName   string
	Domain      string
	Competitors []string
	Country     string
	Language    string
}

// Snapshot returns a copy of p that shares no memory with it.
func (p Profile) Snapshot() Profile {
	p.Competitors = append([]string(nil), p.Competitors...)
	return p
}

// Score is the structured result of scoring one raw output.
type Score struct {
	MentionScore     int
	CitationScore    int
	SentimentScore   float64
	SentimentLabel   string
	ShareOfVoice     float64
	RiskFlags        []string
	Citations        []string
	BrandCount       int
	CompetitorCounts map[string]int
}

// ScoringError reports a profile that cannot be scored against.
type ScoringError struct {
	Reason string
	Err    error
}

func (e *ScoringError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scoring: %s: %v", e.Reason, e.Err)
	}
	return "scoring: " + e.Reason
}

func (e *ScoringError) Unwrap() error { return e.Err }

// Compute scores text against profile. Every text, including the empty
// string, yields a Score; only an unusable profile is an error.
func Compute(text string, profile Profile) (Score, error) {
	if strings.TrimSpace(profile.BrandName) == "" {
		return Score{}, &ScoringError{Reason: "brand name is required"}
	}

	mentions := scan.DetectMentions(text, profile.BrandName, profile.Competitors)
	citations := scan.ExtractCitations(text)
	sentiment := scan.AnalyzeSentiment(text)
	sov := ShareOfVoice(mentions.BrandCount, mentions.CompetitorCounts)
	citScore := CitationScore(citations, profile.Domain)

	urls := make([]string, len(citations))
	for i, c := range citations {
		urls[i] = c.URL
	}

	mention := 0
	if mentions.BrandMentioned {
		mention = 1
	}

	return Score{
		MentionScore:     mention,
		CitationScore:    citScore,
		SentimentScore:   sentiment.Score,
		SentimentLabel:   sentiment.Label,
		ShareOfVoice:     sov,
		RiskFlags:        sentiment.RiskFlags,
		Citations:        urls,
		BrandCount:       mentions.BrandCount,
		CompetitorCounts: mentions.CompetitorCounts,
	}, nil
}

// ShareOfVoice is the brand's fraction of all brand and competitor
// mentions, rounded to 2 decimals. It is 0 when nothing was mentioned.
func ShareOfVoice(brandCount int, competitorCounts map[string]int) float64 {
	total := brandCount
	for _, n := range competitorCounts {
		total += n
	}
	if total == 0 {
		return 0
	}
	return scan.Round2(float64(brandCount) / float64(total))
}

// CitationScore is 1 when any citation's domain contains the brand domain
// (leading "www." ignored), else 0. An empty brand domain never matches.
func CitationScore(citations []scan.Citation, brandDomain string) int {
	domain := strings.TrimPrefix(brandDomain, "www.")
	if domain == "" {
		return 0
	}
	for _, c := range citations {
		if strings.Contains(c.Domain, domain) {
			return 1
		}
	}
	return 0
}
