package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/TobiSchelling/GEOMonitor/internal/scan"
)

const (
	defaultAnthropicURL     = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
	defaultAnthropicMaxToks = 1024
)

// AnthropicAdapter talks to the Anthropic messages API.
type AnthropicAdapter struct {
	cfg    Config
	client *http.Client
}

// NewAnthropicAdapter creates an Anthropic adapter.
func NewAnthropicAdapter(cfg Config) *AnthropicAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAnthropicURL
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	return &AnthropicAdapter{
		cfg:    cfg,
		client: &http.Client{Timeout: httpTimeout(cfg)},
	}
}

// Name returns "anthropic".
func (a *AnthropicAdapter) Name() string { return ProviderAnthropic }

// Configured reports whether an API key is set.
func (a *AnthropicAdapter) Configured() bool { return a.cfg.APIKey != "" }

// Invoke sends one messages request.
func (a *AnthropicAdapter) Invoke(ctx context.Context, in Input) (*Output, error) {
	if a.cfg.APIKey == "" {
		return nil, &ProviderError{Provider: ProviderAnthropic, Message: "API key not configured"}
	}

	model := modelOr(in, a.cfg.Model)
	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxToks
	}

	body := map[string]any{
		"model":       model,
		"max_tokens":  maxTokens,
		"temperature": temperature(in),
		"messages": []map[string]string{
			{"role": "user", "content": in.PromptText},
		},
	}
	if in.SystemPrompt != "" {
		body["system"] = in.SystemPrompt
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderAnthropic, Message: "marshaling request", Err: err}
	}

	endpoint := strings.TrimRight(a.cfg.BaseURL, "/") + "/messages"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, &ProviderError{Provider: ProviderAnthropic, Message: "creating request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderAnthropic, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Provider: ProviderAnthropic, StatusCode: resp.StatusCode, Message: truncate(string(respBody), 500)}
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
		Usage      *struct {
			InputTokens  *int `json:"input_tokens"`
			OutputTokens *int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ProviderError{Provider: ProviderAnthropic, Message: "decoding response", Err: err}
	}
	latency := time.Since(start).Milliseconds()

	var answer strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			answer.WriteString(block.Text)
		}
	}

	meta := Meta{
		Provider:     ProviderAnthropic,
		Model:        model,
		FinishReason: stringPtr(result.StopReason),
		LatencyMS:    latency,
	}
	if result.Usage != nil {
		meta.TokensInput = result.Usage.InputTokens
		meta.TokensOutput = result.Usage.OutputTokens
	}

	text := answer.String()
	return &Output{
		AnswerText: text,
		Citations:  scan.ExtractURLs(text),
		Meta:       meta,
	}, nil
}

var _ Adapter = (*AnthropicAdapter)(nil)
