package report

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/GEOMonitor/internal/database"
)

func ptr(s string) *string { return &s }

func run(created string, s *database.Score) database.RunDetail {
	return database.RunDetail{
		Run:        database.Run{ID: created, Status: database.RunDone, CreatedAt: ptr(created)},
		PromptText: "Is Dior good?",
		Score:      s,
	}
}

func TestComputeKPIs(t *testing.T) {
	runs := []database.RunDetail{
		run("2026-03-01 10:00:00", &database.Score{MentionScore: 1, CitationScore: 1, SentimentLabel: "positive", ShareOfVoice: 1}),
		run("2026-03-01 11:00:00", &database.Score{MentionScore: 1, SentimentLabel: "neutral", ShareOfVoice: 0.5, RiskFlags: []string{"scam"}}),
		run("2026-03-02 10:00:00", &database.Score{SentimentLabel: "negative"}),
	}
	k := ComputeKPIs(runs)
	if k.TotalRuns != 3 {
		t.Errorf("expected 3 runs, got %d", k.TotalRuns)
	}
	if k.MentionRate != 67 || k.CitationRate != 33 || k.PositiveRate != 33 {
		t.Errorf("unexpected rates %+v", k)
	}
	if k.SafetyRate != 67 {
		t.Errorf("expected safety 67, got %d", k.SafetyRate)
	}
	if k.AvgShareOfVoice != 50 {
		t.Errorf("expected share of voice 50, got %d", k.AvgShareOfVoice)
	}
}

func TestComputeKPIsEmpty(t *testing.T) {
	if k := ComputeKPIs(nil); k != (KPIs{}) {
		t.Errorf("expected zero KPIs, got %+v", k)
	}
}

func TestTrend(t *testing.T) {
	runs := []database.RunDetail{
		run("2026-03-13 10:00:00", &database.Score{MentionScore: 1}),
		run("2026-03-14 09:00:00", &database.Score{MentionScore: 1, SentimentLabel: "positive"}),
		run("2026-03-14 10:00:00", &database.Score{}),
		run("2026-02-01 10:00:00", &database.Score{MentionScore: 1}),
	}
	now := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	points := Trend(runs, now, 14)
	if len(points) != 14 {
		t.Fatalf("expected 14 points, got %d", len(points))
	}
	if points[0].Date != "2026-03-01" || points[13].Date != "2026-03-14" {
		t.Errorf("unexpected range %s..%s", points[0].Date, points[13].Date)
	}
	last := points[13]
	if last.Runs != 2 || *last.Mention != 50 || *last.Sentiment != 50 {
		t.Errorf("unexpected last point %+v", last)
	}
	if points[12].Runs != 1 || *points[12].Mention != 100 {
		t.Errorf("unexpected point for 03-13: %+v", points[12])
	}
	if points[0].Mention != nil {
		t.Error("expected nil rate on a day without runs")
	}
}

func TestCitationsAndSources(t *testing.T) {
	runs := []database.RunDetail{
		{PromptText: "a", Score: &database.Score{Citations: []string{"https://www.vogue.com/dior/", "https://dior.com/about"}}},
		{PromptText: "b", Score: &database.Score{Citations: []string{"https://www.vogue.com/dior/", "https://vogue.com/other"}}},
		{PromptText: "b", Score: &database.Score{Citations: []string{"https://www.vogue.com/dior/", "not a url"}}},
		{PromptText: "c"},
	}

	cits := Citations(runs)
	if len(cits) != 3 {
		t.Fatalf("expected 3 cited urls, got %d", len(cits))
	}
	top := cits[0]
	if top.URL != "https://www.vogue.com/dior/" || top.Frequency != 3 || top.PromptCount != 2 {
		t.Errorf("unexpected top citation %+v", top)
	}
	if top.Title != "vogue.com/dior" || top.Domain != "vogue.com" {
		t.Errorf("unexpected title/domain %q %q", top.Title, top.Domain)
	}
	if top.Impact != "Medium" {
		t.Errorf("expected Medium impact, got %q", top.Impact)
	}
	// 3 of 5 citations: round(0.6 * 1000) capped at 99.
	if top.InfluenceRank != 99 {
		t.Errorf("expected capped influence 99, got %d", top.InfluenceRank)
	}
	if cits[1].URL != "https://dior.com/about" {
		t.Errorf("expected ties in first-seen order, got %s", cits[1].URL)
	}

	sources := Sources(runs)
	if len(sources) != 2 {
		t.Fatalf("expected 2 domains, got %d", len(sources))
	}
	if sources[0].Domain != "vogue.com" || sources[0].Frequency != 4 || sources[0].CitedPages != 2 {
		t.Errorf("unexpected top source %+v", sources[0])
	}
	if sources[1].SourceType != "Web" {
		t.Errorf("expected Web for dior.com, got %q", sources[1].SourceType)
	}
}

func TestInfluenceAndImpact(t *testing.T) {
	if got := influence(1, 200); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
	if impact(5) != "High" || impact(2) != "Medium" || impact(1) != "Low" {
		t.Error("unexpected impact thresholds")
	}
}

func TestDrift(t *testing.T) {
	answers := []database.AnswerRecord{
		{RunID: "r1", PromptID: "p1", Provider: "openai", RawText: "Dior is great"},
		{RunID: "r2", PromptID: "p1", Provider: "openai", RawText: "Dior is great"},
		{RunID: "r3", PromptID: "p1", Provider: "openai", RawText: "Chanel leads the market today"},
		{RunID: "r4", PromptID: "p1", Provider: "anthropic", RawText: "only once"},
		{RunID: "r5", PromptID: "p2", Provider: "openai", RawText: "same words here"},
		{RunID: "r6", PromptID: "p2", Provider: "openai", RawText: "same words here"},
	}
	rows := Drift(answers, map[string]string{"p1": "Is Dior good?"}, 0.7)
	if len(rows) != 2 {
		t.Fatalf("expected 2 drift rows, got %d", len(rows))
	}
	if rows[0].PreviousRunID != "r2" || rows[0].LatestRunID != "r3" || !rows[0].Changed {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if rows[0].PromptText != "Is Dior good?" {
		t.Errorf("expected prompt text, got %q", rows[0].PromptText)
	}
	if rows[1].Similarity != 1 || rows[1].Changed {
		t.Errorf("expected identical answers to be unchanged, got %+v", rows[1])
	}
}

func TestBuildAndMarkdown(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	defer db.Close()

	projectID, _ := db.InsertProject("Dior", "dior.com", nil, nil, []string{"Chanel"})
	promptID, _ := db.InsertPrompt(projectID, "Is Dior good?", database.SourceUser)
	for _, text := range []string{"Dior is great", "Chanel is | better"} {
		runID, _ := db.CreateRun(projectID, promptID, "openai", "", nil)
		db.InsertRawOutput(database.RawOutput{RunID: runID, Provider: "openai", RawText: text})
		db.CompleteRun(runID, database.Score{
			MentionScore:   1,
			SentimentLabel: "positive",
			ShareOfVoice:   1,
			Citations:      []string{"https://dior.com/about"},
		})
	}

	r, err := Build(db, projectID, time.Now())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.KPIs.TotalRuns != 2 || r.KPIs.MentionRate != 100 {
		t.Errorf("unexpected KPIs %+v", r.KPIs)
	}
	if len(r.Drift) != 1 || !r.Drift[0].Changed {
		t.Errorf("expected one changed drift row, got %+v", r.Drift)
	}

	md := r.Markdown()
	for _, want := range []string{"# Dior visibility report", "**Mention rate:** 100%", "[dior.com/about](https://dior.com/about)", "**changed**", "Is Dior good?"} {
		if !strings.Contains(md, want) {
			t.Errorf("expected %q in markdown:\n%s", want, md)
		}
	}

	missing, err := Build(db, "nope", time.Now())
	if err != nil || missing != nil {
		t.Errorf("expected nil report for unknown project, got %v, %v", missing, err)
	}
}

func TestMarkdownEmpty(t *testing.T) {
	r := &Report{Project: database.Project{BrandName: "Acme", Domain: "acme.com"}, GeneratedAt: time.Now()}
	md := r.Markdown()
	for _, want := range []string{"No completed runs yet.", "No citations found.", "Not enough repeated runs"} {
		if !strings.Contains(md, want) {
			t.Errorf("expected %q in markdown", want)
		}
	}
}
