package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/GEOMonitor/internal/llm"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Providers map[string]Provider `yaml:"providers"`
	Runner    Runner              `yaml:"runner"`
	Batch     Batch               `yaml:"batch"`
	Schedule  Schedule            `yaml:"schedule"`
	Suggest   Suggest             `yaml:"suggest"`
	Crawl     Crawl               `yaml:"crawl"`
	Output    Output              `yaml:"output"`
	Server    Server              `yaml:"server"`
	Logging   Logging             `yaml:"logging"`
}

// Provider configures one assistant backend. The API key is read from the
// environment variable named by APIKeyEnv.
type Provider struct {
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
}

type Runner struct {
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	Temperature    float64 `yaml:"temperature"`
}

type Batch struct {
	DefaultProvider string `yaml:"default_provider"`
	Concurrency     int    `yaml:"concurrency"`
}

type Schedule struct {
	Cron     string `yaml:"cron"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type Suggest struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	Count    int    `yaml:"count"`
}

type Crawl struct {
	MaxPages       int    `yaml:"max_pages"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	UserAgent      string `yaml:"user_agent"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for geomonitor.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "geomonitor")
}

// DataDir returns the XDG data directory for geomonitor.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "geomonitor")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/geomonitor/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'geomonitor init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := defaults()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// A providers section in the file replaces the default map entry by
	// entry; fill the gaps of partially configured providers.
	for name, def := range defaults().Providers {
		p, ok := cfg.Providers[name]
		if !ok {
			continue
		}
		if p.BaseURL == "" {
			p.BaseURL = def.BaseURL
		}
		if p.Model == "" {
			p.Model = def.Model
		}
		if p.APIKeyEnv == "" {
			p.APIKeyEnv = def.APIKeyEnv
		}
		cfg.Providers[name] = p
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Providers: map[string]Provider{
			llm.ProviderOpenAI: {
				APIKeyEnv: "OPENAI_API_KEY",
				BaseURL:   "https://api.openai.com/v1",
				Model:     "gpt-4o",
			},
			llm.ProviderAnthropic: {
				APIKeyEnv: "ANTHROPIC_API_KEY",
				BaseURL:   "https://api.anthropic.com/v1",
				Model:     "claude-3-5-haiku-latest",
			},
			llm.ProviderOllama: {
				BaseURL: "http://localhost:11434",
				Model:   "qwen2.5:7b",
			},
		},
		Runner:   Runner{TimeoutSeconds: 10, Temperature: llm.DefaultTemperature},
		Batch:    Batch{DefaultProvider: llm.ProviderOpenAI, Concurrency: 1},
		Schedule: Schedule{Cron: "0 6 * * *", Provider: llm.ProviderOpenAI, Model: "gpt-4o"},
		Suggest:  Suggest{Provider: llm.ProviderAnthropic, Model: "claude-haiku-4-5-20251001", Count: 10},
		Crawl:    Crawl{MaxPages: 20, TimeoutSeconds: 8, UserAgent: "GEOMonitor-Bot/1.0"},
		Server:   Server{Port: 8000},
		Logging:  Logging{Level: "INFO"},
	}
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	if c.Runner.TimeoutSeconds <= 0 {
		return fmt.Errorf("runner.timeout_seconds must be positive, got %d", c.Runner.TimeoutSeconds)
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be at least 1, got %d", c.Batch.Concurrency)
	}
	if _, ok := c.Providers[strings.ToLower(c.Batch.DefaultProvider)]; !ok {
		return fmt.Errorf("batch.default_provider %q is not configured (have %s)",
			c.Batch.DefaultProvider, strings.Join(c.ProviderNames(), ", "))
	}
	if _, ok := c.Providers[strings.ToLower(c.Schedule.Provider)]; !ok {
		return fmt.Errorf("schedule.provider %q is not configured", c.Schedule.Provider)
	}
	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		return fmt.Errorf("schedule.cron %q: %w", c.Schedule.Cron, err)
	}
	for name := range c.Providers {
		if _, err := llm.NewAdapter(name, llm.Config{}); err != nil {
			return fmt.Errorf("providers.%s: %w", name, err)
		}
	}
	return nil
}

// ProviderNames returns the configured provider names, sorted.
func (c *Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderConfigs resolves each provider's credentials from the environment
// into explicit adapter configuration. The per-call bound is not part of it:
// the runner applies RunTimeout to each invocation through its context.
func (c *Config) ProviderConfigs() map[string]llm.Config {
	cfgs := make(map[string]llm.Config, len(c.Providers))
	for name, p := range c.Providers {
		cfg := llm.Config{
			BaseURL: p.BaseURL,
			Model:   p.Model,
		}
		if p.APIKeyEnv != "" {
			cfg.APIKey = os.Getenv(p.APIKeyEnv)
		}
		cfgs[strings.ToLower(name)] = cfg
	}
	return cfgs
}

// RunTimeout is the bound on a single provider invocation.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.Runner.TimeoutSeconds) * time.Second
}

// CrawlTimeout is the bound on a single page fetch.
func (c *Config) CrawlTimeout() time.Duration {
	return time.Duration(c.Crawl.TimeoutSeconds) * time.Second
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DBPath returns the SQLite database path inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "geomonitor.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
