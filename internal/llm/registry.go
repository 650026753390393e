package llm

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// NewAdapter builds the adapter for a known provider name.
func NewAdapter(name string, cfg Config) (Adapter, error) {
	switch strings.ToLower(name) {
	case ProviderOpenAI:
		return NewOpenAIAdapter(cfg), nil
	case ProviderAnthropic:
		return NewAnthropicAdapter(cfg), nil
	case ProviderOllama:
		return NewOllamaAdapter(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", name)
	}
}

// Registry resolves provider names to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry builds one adapter per configured provider.
func NewRegistry(cfgs map[string]Config) (*Registry, error) {
	r := &Registry{adapters: make(map[string]Adapter, len(cfgs))}
	for name, cfg := range cfgs {
		a, err := NewAdapter(name, cfg)
		if err != nil {
			return nil, err
		}
		r.adapters[strings.ToLower(name)] = a
	}
	return r, nil
}

// Register adds or replaces the adapter for name.
func (r *Registry) Register(name string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.adapters == nil {
		r.adapters = make(map[string]Adapter)
	}
	r.adapters[strings.ToLower(name)] = a
}

// Get returns the adapter for name, or a ProviderError when none exists.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[strings.ToLower(name)]
	if !ok {
		return nil, &ProviderError{Provider: name, Message: "unknown LLM provider"}
	}
	return a, nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
