// Package report aggregates scored runs into visibility KPIs, cited sources
// and answer drift.
package report

import (
	"math"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/TobiSchelling/GEOMonitor/internal/database"
	"github.com/TobiSchelling/GEOMonitor/internal/scan"
)

const (
	// KPIRunLimit is how many recent done runs feed the KPIs and trend.
	KPIRunLimit = 90
	// SourceRunLimit is how many recent done runs feed the sources view.
	SourceRunLimit = 300
	// TrendDays is the length of the daily trend.
	TrendDays = 14
)

var schemePrefix = regexp.MustCompile(`^https?://(www\.)?`)

// KPIs are percentages over a set of done runs.
type KPIs struct {
	MentionRate     int `json:"mention_rate"`
	CitationRate    int `json:"citation_rate"`
	PositiveRate    int `json:"positive_rate"`
	SafetyRate      int `json:"safety_rate"`
	AvgShareOfVoice int `json:"avg_share_of_voice"`
	TotalRuns       int `json:"total_runs"`
}

// TrendPoint is one day of the trend. Rates are nil on days without runs.
type TrendPoint struct {
	Date      string `json:"date"`
	Runs      int    `json:"runs"`
	Mention   *int   `json:"mention"`
	Citation  *int   `json:"citation"`
	Sentiment *int   `json:"sentiment"`
}

// CitationRow aggregates one cited URL.
type CitationRow struct {
	URL           string `json:"url"`
	Domain        string `json:"domain"`
	Title         string `json:"title"`
	PromptCount   int    `json:"prompt_count"`
	Frequency     int    `json:"frequency"`
	InfluenceRank int    `json:"influence_rank"`
	Impact        string `json:"impact"`
}

// SourceRow aggregates one cited domain.
type SourceRow struct {
	Domain        string `json:"domain"`
	SourceType    string `json:"source_type"`
	CitedPages    int    `json:"cited_pages"`
	Frequency     int    `json:"frequency"`
	InfluenceRank int    `json:"influence_rank"`
}

// DriftRow compares the two latest answers for a prompt and provider.
type DriftRow struct {
	PromptID      string  `json:"prompt_id"`
	PromptText    string  `json:"prompt_text"`
	Provider      string  `json:"provider"`
	PreviousRunID string  `json:"previous_run_id"`
	LatestRunID   string  `json:"latest_run_id"`
	Similarity    float64 `json:"similarity"`
	Changed       bool    `json:"changed"`
}

// ComputeKPIs summarizes done runs. Runs without a score count toward the
// total but toward no rate, except safety.
func ComputeKPIs(runs []database.RunDetail) KPIs {
	k := KPIs{TotalRuns: len(runs)}
	if len(runs) == 0 {
		return k
	}

	var mention, citation, positive, safe int
	var sov float64
	for _, r := range runs {
		s := r.Score
		if s == nil {
			safe++
			continue
		}
		if s.MentionScore > 0 {
			mention++
		}
		if s.CitationScore > 0 {
			citation++
		}
		if s.SentimentLabel == scan.LabelPositive {
			positive++
		}
		if len(s.RiskFlags) == 0 {
			safe++
		}
		sov += s.ShareOfVoice
	}

	n := float64(len(runs))
	k.MentionRate = percent(float64(mention), n)
	k.CitationRate = percent(float64(citation), n)
	k.PositiveRate = percent(float64(positive), n)
	k.SafetyRate = percent(float64(safe), n)
	k.AvgShareOfVoice = percent(sov, n)
	return k
}

// Trend returns one point per day for the days ending at now (UTC).
func Trend(runs []database.RunDetail, now time.Time, days int) []TrendPoint {
	byDay := make(map[string][]database.RunDetail)
	for _, r := range runs {
		if r.CreatedAt == nil || len(*r.CreatedAt) < 10 {
			continue
		}
		day := (*r.CreatedAt)[:10]
		byDay[day] = append(byDay[day], r)
	}

	now = now.UTC()
	points := make([]TrendPoint, days)
	for i := range points {
		day := now.AddDate(0, 0, -(days - 1 - i)).Format("2006-01-02")
		dayRuns := byDay[day]
		points[i] = TrendPoint{Date: day, Runs: len(dayRuns)}
		if len(dayRuns) == 0 {
			continue
		}
		k := ComputeKPIs(dayRuns)
		points[i].Mention = &k.MentionRate
		points[i].Citation = &k.CitationRate
		points[i].Sentiment = &k.PositiveRate
	}
	return points
}

type citedURL struct {
	url, domain, prompt string
}

func collectCitations(runs []database.RunDetail) []citedURL {
	var cited []citedURL
	for _, r := range runs {
		if r.Score == nil {
			continue
		}
		for _, raw := range r.Score.Citations {
			u, err := url.Parse(raw)
			if err != nil || u.Hostname() == "" {
				continue
			}
			cited = append(cited, citedURL{
				url:    raw,
				domain: strings.TrimPrefix(u.Hostname(), "www."),
				prompt: r.PromptText,
			})
		}
	}
	return cited
}

// Citations aggregates cited URLs, most frequent first.
func Citations(runs []database.RunDetail) []CitationRow {
	cited := collectCitations(runs)
	total := max(len(cited), 1)

	var rows []*CitationRow
	byURL := make(map[string]*CitationRow)
	prompts := make(map[string]map[string]bool)
	for _, c := range cited {
		row, ok := byURL[c.url]
		if !ok {
			row = &CitationRow{
				URL:    c.url,
				Domain: c.domain,
				Title:  strings.TrimSuffix(schemePrefix.ReplaceAllString(c.url, ""), "/"),
			}
			byURL[c.url] = row
			prompts[c.url] = make(map[string]bool)
			rows = append(rows, row)
		}
		row.Frequency++
		prompts[c.url][c.prompt] = true
	}

	out := make([]CitationRow, len(rows))
	for i, row := range rows {
		row.PromptCount = len(prompts[row.URL])
		row.InfluenceRank = influence(row.Frequency, total)
		row.Impact = impact(row.Frequency)
		out[i] = *row
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Frequency > out[j].Frequency })
	return out
}

// Sources aggregates cited domains, most frequent first.
func Sources(runs []database.RunDetail) []SourceRow {
	cited := collectCitations(runs)
	total := max(len(cited), 1)

	var rows []*SourceRow
	byDomain := make(map[string]*SourceRow)
	pages := make(map[string]map[string]bool)
	for _, c := range cited {
		row, ok := byDomain[c.domain]
		if !ok {
			row = &SourceRow{Domain: c.domain, SourceType: scan.SourceType(c.domain)}
			byDomain[c.domain] = row
			pages[c.domain] = make(map[string]bool)
			rows = append(rows, row)
		}
		row.Frequency++
		pages[c.domain][c.url] = true
	}

	out := make([]SourceRow, len(rows))
	for i, row := range rows {
		row.CitedPages = len(pages[row.Domain])
		row.InfluenceRank = influence(row.Frequency, total)
		out[i] = *row
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Frequency > out[j].Frequency })
	return out
}

// Drift compares the two latest answers of every prompt and provider pair.
// answers must be grouped by prompt and provider, oldest first, as returned
// by the store.
func Drift(answers []database.AnswerRecord, promptTexts map[string]string, threshold float64) []DriftRow {
	var rows []DriftRow
	for i := 0; i < len(answers); {
		j := i
		for j < len(answers) && answers[j].PromptID == answers[i].PromptID && answers[j].Provider == answers[i].Provider {
			j++
		}
		if j-i >= 2 {
			prev, latest := answers[j-2], answers[j-1]
			sim := scan.Similarity(prev.RawText, latest.RawText)
			rows = append(rows, DriftRow{
				PromptID:      latest.PromptID,
				PromptText:    promptTexts[latest.PromptID],
				Provider:      latest.Provider,
				PreviousRunID: prev.RunID,
				LatestRunID:   latest.RunID,
				Similarity:    sim,
				Changed:       scan.SignificantChange(sim, threshold),
			})
		}
		i = j
	}
	return rows
}

func percent(part, total float64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(part / total * 100))
}

func influence(count, total int) int {
	return min(99, int(math.Round(float64(count)/float64(total)*1000)))
}

func impact(count int) string {
	switch {
	case count >= 5:
		return "High"
	case count >= 2:
		return "Medium"
	default:
		return "Low"
	}
}
