package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Providers) != 3 {
		t.Errorf("expected 3 providers, got %d", len(cfg.Providers))
	}
	if cfg.Providers["openai"].Model != "gpt-4o" {
		t.Errorf("expected openai model 'gpt-4o', got %q", cfg.Providers["openai"].Model)
	}
	if cfg.Batch.DefaultProvider != "openai" {
		t.Errorf("expected default provider 'openai', got %q", cfg.Batch.DefaultProvider)
	}
	if cfg.Runner.TimeoutSeconds != 10 {
		t.Errorf("expected timeout 10, got %d", cfg.Runner.TimeoutSeconds)
	}
	if cfg.RunTimeout() != 10*time.Second {
		t.Errorf("expected run timeout 10s, got %v", cfg.RunTimeout())
	}
	if cfg.Schedule.Cron != "0 6 * * *" {
		t.Errorf("expected daily cron, got %q", cfg.Schedule.Cron)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
providers:
  openai:
    model: gpt-4o-mini
batch:
  concurrency: 4
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Batch.Concurrency != 4 {
		t.Errorf("expected concurrency 4, got %d", cfg.Batch.Concurrency)
	}
	// Defaults should still be set for unspecified fields
	openai := cfg.Providers["openai"]
	if openai.Model != "gpt-4o-mini" {
		t.Errorf("expected model override, got %q", openai.Model)
	}
	if openai.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("expected default base_url, got %q", openai.BaseURL)
	}
	if openai.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("expected default api_key_env, got %q", openai.APIKeyEnv)
	}
	if cfg.Batch.DefaultProvider != "openai" {
		t.Errorf("expected default provider, got %q", cfg.Batch.DefaultProvider)
	}
	if _, ok := cfg.Providers["anthropic"]; !ok {
		t.Error("expected default anthropic provider to remain")
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := parse([]byte("runner: [unclosed")); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad cron", func(c *Config) { c.Schedule.Cron = "every day" }, "schedule.cron"},
		{"zero concurrency", func(c *Config) { c.Batch.Concurrency = 0 }, "batch.concurrency"},
		{"zero timeout", func(c *Config) { c.Runner.TimeoutSeconds = 0 }, "runner.timeout_seconds"},
		{"unknown default", func(c *Config) { c.Batch.DefaultProvider = "gemini" }, "batch.default_provider"},
		{"unknown schedule provider", func(c *Config) { c.Schedule.Provider = "gemini" }, "schedule.provider"},
		{"unsupported provider", func(c *Config) { c.Providers["gemini"] = Provider{} }, "providers.gemini"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestProviderConfigsReadEnv(t *testing.T) {
	t.Setenv("GEO_TEST_OPENAI_KEY", "sk-from-env")
	cfg := defaults()
	openai := cfg.Providers["openai"]
	openai.APIKeyEnv = "GEO_TEST_OPENAI_KEY"
	cfg.Providers["openai"] = openai

	cfgs := cfg.ProviderConfigs()
	if cfgs["openai"].APIKey != "sk-from-env" {
		t.Errorf("expected key from env, got %q", cfgs["openai"].APIKey)
	}
	if cfgs["openai"].Timeout != 0 {
		t.Errorf("expected the transport ceiling left to the adapter, got %v", cfgs["openai"].Timeout)
	}
	if cfgs["ollama"].APIKey != "" {
		t.Error("expected no key for ollama")
	}
	if cfgs["ollama"].BaseURL != "http://localhost:11434" {
		t.Errorf("unexpected ollama base url %q", cfgs["ollama"].BaseURL)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Crawl.UserAgent != "GEOMonitor-Bot/1.0" {
		t.Errorf("expected crawl user agent from file, got %q", cfg.Crawl.UserAgent)
	}
}

func TestResolveConfigPathExplicitMissing(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
	if cfg.DBPath() != filepath.Join("/custom/path", "geomonitor.db") {
		t.Errorf("unexpected db path %q", cfg.DBPath())
	}
}

func TestParseRunnerTemperature(t *testing.T) {
	cfg, err := parse([]byte("runner:\n  temperature: 0\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Runner.Temperature != 0 {
		t.Errorf("expected explicit temperature 0 to be kept, got %v", cfg.Runner.Temperature)
	}

	cfg, err = parse([]byte("runner:\n  timeout_seconds: 5\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Runner.Temperature != 0.2 {
		t.Errorf("expected default temperature 0.2, got %v", cfg.Runner.Temperature)
	}
}
