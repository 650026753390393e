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

const defaultOpenAIURL = "https://api.openai.com/v1"

// OpenAIAdapter talks to the OpenAI chat completions API.
type OpenAIAdapter struct {
	cfg    Config
	client *http.Client
}

// NewOpenAIAdapter creates an OpenAI adapter.
func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIURL
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	return &OpenAIAdapter{
		cfg:    cfg,
		client: &http.Client{Timeout: httpTimeout(cfg)},
	}
}

// Name returns "openai".
func (o *OpenAIAdapter) Name() string { return ProviderOpenAI }

// Configured reports whether an API key is set.
func (o *OpenAIAdapter) Configured() bool { return o.cfg.APIKey != "" }

// Invoke sends one chat completion request.
func (o *OpenAIAdapter) Invoke(ctx context.Context, in Input) (*Output, error) {
	if o.cfg.APIKey == "" {
		return nil, &ProviderError{Provider: ProviderOpenAI, Message: "API key not configured"}
	}

	model := modelOr(in, o.cfg.Model)
	var messages []map[string]string
	if in.SystemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": in.SystemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": in.PromptText})

	body := map[string]any{
		"model":       model,
		"messages":    messages,
		"temperature": temperature(in),
	}
	if in.MaxTokens > 0 {
		body["max_tokens"] = in.MaxTokens
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderOpenAI, Message: "marshaling request", Err: err}
	}

	endpoint := strings.TrimRight(o.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, &ProviderError{Provider: ProviderOpenAI, Message: "creating request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderOpenAI, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode, Message: truncate(string(respBody), 500)}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage *struct {
			PromptTokens     *int `json:"prompt_tokens"`
			CompletionTokens *int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ProviderError{Provider: ProviderOpenAI, Message: "decoding response", Err: err}
	}
	latency := time.Since(start).Milliseconds()

	if len(result.Choices) == 0 {
		return nil, &ProviderError{Provider: ProviderOpenAI, Message: "no choices in response"}
	}

	answer := result.Choices[0].Message.Content
	meta := Meta{
		Provider:     ProviderOpenAI,
		Model:        model,
		FinishReason: stringPtr(result.Choices[0].FinishReason),
		LatencyMS:    latency,
	}
	if result.Usage != nil {
		meta.TokensInput = result.Usage.PromptTokens
		meta.TokensOutput = result.Usage.CompletionTokens
	}

	return &Output{
		AnswerText: answer,
		Citations:  scan.ExtractURLs(answer),
		Meta:       meta,
	}, nil
}

var _ Adapter = (*OpenAIAdapter)(nil)
