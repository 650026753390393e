package database

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Run states. pending -> running -> done | error.
const (
	RunPending RunStatus = "pending"
	RunRunning RunStatus = "running"
	RunDone    RunStatus = "done"
	RunError   RunStatus = "error"
)

// BatchStatus is the lifecycle state of a batch.
type BatchStatus string

// Batch states. A batch aggregates its runs and never fails itself.
const (
	BatchRunning BatchStatus = "running"
	BatchDone    BatchStatus = "done"
	BatchPartial BatchStatus = "partial"
)

// Prompt sources.
const (
	SourceUser        = "user"
	SourceAIGenerated = "ai_generated"
	SourceFallback    = "fallback"
)

// Project is a monitored brand: the brand profile runs are scored against.
type Project struct {
	ID          string
	BrandName   string
	Domain      string
	Country     *string
	Language    *string
	Competitors []string
	CreatedAt   *string
}

// Prompt is a fixed question sent to assistants.
type Prompt struct {
	ID         string
	ProjectID  string
	PromptText string
	Source     string
	IsActive   bool
	CreatedAt  *string
}

// Run is one execution of one prompt against one provider.
type Run struct {
	ID           string
	ProjectID    string
	PromptID     string
	BatchID      *string
	Provider     string
	Model        *string
	Status       RunStatus
	ErrorMessage *string
	CreatedAt    *string
	CompletedAt  *string
}

// RawOutput is the verbatim provider answer for a run.
type RawOutput struct {
	RunID        string
	Provider     string
	Model        string
	RawText      string
	Citations    []string
	TokensInput  *int
	TokensOutput *int
	LatencyMS    int64
	FinishReason *string
	CreatedAt    *string
}

// Score is the persisted scoring result for a run.
type Score struct {
	RunID            string
	MentionScore     int
	CitationScore    int
	SentimentScore   float64
	SentimentLabel   string
	ShareOfVoice     float64
	RiskFlags        []string
	Citations        []string
	BrandCount       int
	CompetitorCounts map[string]int
	CreatedAt        *string
}

// RunDetail is a run joined with its prompt text and score, if any.
type RunDetail struct {
	Run
	PromptText string
	Score      *Score
}

// Batch groups runs triggered together.
type Batch struct {
	ID          string
	ProjectID   string
	Status      BatchStatus
	PromptCount int
	CreatedAt   *string
	CompletedAt *string
}

// PromptSuggestion is a candidate prompt proposed for a project.
type PromptSuggestion struct {
	ID         string
	ProjectID  string
	PromptText string
	Source     string
	CreatedAt  *string
}

// BrandPage is readable text crawled from the brand's own site.
type BrandPage struct {
	ID        string
	ProjectID string
	URL       string
	Title     *string
	Content   string
	FetchedAt *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	Projects      int
	Prompts       int
	ActivePrompts int
	Runs          int
	DoneRuns      int
	ErrorRuns     int
	RunningRuns   int
	Batches       int
	Suggestions   int
	BrandPages    int
}
