package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider names understood by NewAdapter.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// DefaultTemperature is used when Input.Temperature is nil.
const DefaultTemperature = 0.2

// defaultHTTPTimeout caps an adapter's HTTP client when Config.Timeout is
// zero. It is a transport ceiling only; callers bound each call with a
// context deadline, which is how runner.timeout_seconds is enforced.
const defaultHTTPTimeout = 60 * time.Second

// Config is the explicit per-provider configuration. Adapters never read
// the process environment themselves.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Input is one prompt sent to an assistant.
type Input struct {
	PromptText   string
	SystemPrompt string
	Model        string
	Temperature  *float64
	MaxTokens    int
}

// Meta is the normalized usage metadata of one call. Pointer fields are nil
// when the backend did not report them.
type Meta struct {
	Provider     string
	Model        string
	TokensInput  *int
	TokensOutput *int
	FinishReason *string
	LatencyMS    int64
}

// Output is the normalized result of one call.
type Output struct {
	AnswerText string
	Citations  []string
	Meta       Meta
}

// Adapter is the uniform contract over AI-assistant backends.
type Adapter interface {
	Name() string
	Invoke(ctx context.Context, in Input) (*Output, error)
	Configured() bool
}

// ProviderError is a failed backend call: transport failure, timeout,
// non-2xx status or an unusable response body.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " API returned %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

func temperature(in Input) float64 {
	if in.Temperature != nil {
		return *in.Temperature
	}
	return DefaultTemperature
}

func modelOr(in Input, fallback string) string {
	if m := strings.TrimSpace(in.Model); m != "" {
		return m
	}
	return fallback
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func httpTimeout(cfg Config) time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return defaultHTTPTimeout
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
