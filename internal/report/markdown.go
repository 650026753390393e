package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/TobiSchelling/GEOMonitor/internal/database"
	"github.com/TobiSchelling/GEOMonitor/internal/scan"
)

const maxTableRows = 20

// Store reads the records a report is built from.
type Store interface {
	GetProject(projectID string) (*database.Project, error)
	GetProjectPrompts(projectID string) ([]database.Prompt, error)
	GetDoneRunsForProject(projectID string, limit int) ([]database.RunDetail, error)
	GetDoneAnswers(projectID string) ([]database.AnswerRecord, error)
}

// Report is the full visibility report of a project.
type Report struct {
	Project     database.Project `json:"-"`
	GeneratedAt time.Time        `json:"generated_at"`
	KPIs        KPIs             `json:"kpis"`
	Trend       []TrendPoint     `json:"trend"`
	Citations   []CitationRow    `json:"citations"`
	Sources     []SourceRow      `json:"sources"`
	Drift       []DriftRow       `json:"drift"`
}

// Build assembles the report for a project. It returns nil when the
// project does not exist.
func Build(store Store, projectID string, now time.Time) (*Report, error) {
	project, err := store.GetProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	if project == nil {
		return nil, nil
	}

	recent, err := store.GetDoneRunsForProject(projectID, KPIRunLimit)
	if err != nil {
		return nil, fmt.Errorf("loading runs: %w", err)
	}
	cited, err := store.GetDoneRunsForProject(projectID, SourceRunLimit)
	if err != nil {
		return nil, fmt.Errorf("loading runs: %w", err)
	}
	answers, err := store.GetDoneAnswers(projectID)
	if err != nil {
		return nil, fmt.Errorf("loading answers: %w", err)
	}
	prompts, err := store.GetProjectPrompts(projectID)
	if err != nil {
		return nil, fmt.Errorf("loading prompts: %w", err)
	}
	texts := make(map[string]string, len(prompts))
	for _, p := range prompts {
		texts[p.ID] = p.PromptText
	}

	return &Report{
		Project:     *project,
		GeneratedAt: now,
		KPIs:        ComputeKPIs(recent),
		Trend:       Trend(recent, now, TrendDays),
		Citations:   Citations(cited),
		Sources:     Sources(cited),
		Drift:       Drift(answers, texts, scan.DefaultChangeThreshold),
	}, nil
}

// Markdown renders the report as a markdown document.
func (r *Report) Markdown() string {
	sections := []string{
		fmt.Sprintf("# %s visibility report\n\n*%s, generated %s*",
			r.Project.BrandName, r.Project.Domain, r.GeneratedAt.UTC().Format("2006-01-02 15:04 MST")),
		r.kpiSection(),
		r.trendSection(),
		r.citationSection(),
		r.sourceSection(),
		r.driftSection(),
	}
	return strings.Join(sections, "\n\n---\n\n") + "\n"
}

func (r *Report) kpiSection() string {
	k := r.KPIs
	if k.TotalRuns == 0 {
		return "## KPIs\n\nNo completed runs yet."
	}
	lines := []string{
		"## KPIs",
		"",
		fmt.Sprintf("Over the last %d completed runs:", k.TotalRuns),
		"",
		fmt.Sprintf("- **Mention rate:** %d%%", k.MentionRate),
		fmt.Sprintf("- **Citation rate:** %d%%", k.CitationRate),
		fmt.Sprintf("- **Positive rate:** %d%%", k.PositiveRate),
		fmt.Sprintf("- **Safety rate:** %d%%", k.SafetyRate),
		fmt.Sprintf("- **Share of voice:** %d%%", k.AvgShareOfVoice),
	}
	return strings.Join(lines, "\n")
}

func (r *Report) trendSection() string {
	lines := []string{
		fmt.Sprintf("## Last %d days", len(r.Trend)),
		"",
		"| Date | Runs | Mention | Citation | Positive |",
		"|---|---|---|---|---|",
	}
	for _, p := range r.Trend {
		lines = append(lines, fmt.Sprintf("| %s | %d | %s | %s | %s |",
			p.Date, p.Runs, rate(p.Mention), rate(p.Citation), rate(p.Sentiment)))
	}
	return strings.Join(lines, "\n")
}

func (r *Report) citationSection() string {
	if len(r.Citations) == 0 {
		return "## Top citations\n\nNo citations found."
	}
	lines := []string{
		"## Top citations",
		"",
		"| Page | Prompts | Frequency | Influence | Impact |",
		"|---|---|---|---|---|",
	}
	for i, c := range r.Citations {
		if i >= maxTableRows {
			break
		}
		lines = append(lines, fmt.Sprintf("| [%s](%s) | %d | %d | %d | %s |",
			escapeCell(c.Title), c.URL, c.PromptCount, c.Frequency, c.InfluenceRank, c.Impact))
	}
	return strings.Join(lines, "\n")
}

func (r *Report) sourceSection() string {
	if len(r.Sources) == 0 {
		return "## Sources\n\nNo cited domains."
	}
	lines := []string{
		"## Sources",
		"",
		"| Domain | Type | Pages | Frequency | Influence |",
		"|---|---|---|---|---|",
	}
	for i, s := range r.Sources {
		if i >= maxTableRows {
			break
		}
		lines = append(lines, fmt.Sprintf("| %s | %s | %d | %d | %d |",
			s.Domain, s.SourceType, s.CitedPages, s.Frequency, s.InfluenceRank))
	}
	return strings.Join(lines, "\n")
}

func (r *Report) driftSection() string {
	if len(r.Drift) == 0 {
		return "## Answer drift\n\nNot enough repeated runs to compare."
	}
	lines := []string{
		"## Answer drift",
		"",
		"| Prompt | Provider | Similarity | |",
		"|---|---|---|---|",
	}
	for _, d := range r.Drift {
		flag := ""
		if d.Changed {
			flag = "**changed**"
		}
		lines = append(lines, fmt.Sprintf("| %s | %s | %.2f | %s |",
			escapeCell(d.PromptText), d.Provider, d.Similarity, flag))
	}
	return strings.Join(lines, "\n")
}

func rate(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d%%", *v)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
