package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/TobiSchelling/GEOMonitor/internal/scan"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaAdapter talks to a local Ollama server.
type OllamaAdapter struct {
	cfg    Config
	client *http.Client
}

// NewOllamaAdapter creates an Ollama adapter.
func NewOllamaAdapter(cfg Config) *OllamaAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaURL
	}
	if cfg.Model == "" {
		cfg.Model = "qwen2.5:7b"
	}
	return &OllamaAdapter{
		cfg:    cfg,
		client: &http.Client{Timeout: httpTimeout(cfg)},
	}
}

// Name returns "ollama".
func (o *OllamaAdapter) Name() string { return ProviderOllama }

// Configured checks if Ollama is running and the model is available.
func (o *OllamaAdapter) Configured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", strings.TrimRight(o.cfg.BaseURL, "/")+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}

	modelBase := strings.SplitN(o.cfg.Model, ":", 2)[0]
	for _, m := range result.Models {
		if strings.Contains(m.Name, modelBase) {
			return true
		}
	}
	log.Printf("Ollama model %q not found", o.cfg.Model)
	return false
}

// Invoke sends one non-streaming chat request.
func (o *OllamaAdapter) Invoke(ctx context.Context, in Input) (*Output, error) {
	model := modelOr(in, o.cfg.Model)
	var messages []map[string]string
	if in.SystemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": in.SystemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": in.PromptText})

	options := map[string]any{"temperature": temperature(in)}
	if in.MaxTokens > 0 {
		options["num_predict"] = in.MaxTokens
	}
	body := map[string]any{
		"model":    model,
		"messages": messages,
		"stream":   false,
		"options":  options,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderOllama, Message: "marshaling request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", strings.TrimRight(o.cfg.BaseURL, "/")+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return nil, &ProviderError{Provider: ProviderOllama, Message: "creating request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderOllama, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Provider: ProviderOllama, StatusCode: resp.StatusCode, Message: truncate(string(respBody), 500)}
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		DoneReason      string `json:"done_reason"`
		PromptEvalCount *int   `json:"prompt_eval_count"`
		EvalCount       *int   `json:"eval_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ProviderError{Provider: ProviderOllama, Message: "decoding response", Err: err}
	}
	latency := time.Since(start).Milliseconds()

	answer := result.Message.Content
	return &Output{
		AnswerText: answer,
		Citations:  scan.ExtractURLs(answer),
		Meta: Meta{
			Provider:     ProviderOllama,
			Model:        model,
			TokensInput:  result.PromptEvalCount,
			TokensOutput: result.EvalCount,
			FinishReason: stringPtr(result.DoneReason),
			LatencyMS:    latency,
		},
	}, nil
}

var _ Adapter = (*OllamaAdapter)(nil)
