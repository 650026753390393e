// Package suggest proposes consumer prompts for a project.
package suggest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/TobiSchelling/GEOMonitor/internal/database"
	"github.com/TobiSchelling/GEOMonitor/internal/llm"
)

const (
	defaultCount     = 10
	maxContextPages  = 3
	pageExcerptRunes = 500
	requestTimeout   = 60 * time.Second
)

const systemPromptTemplate = `You are an AI visibility expert. Generate %d realistic search prompts that a consumer might ask an AI assistant when looking for products/services in the category of the given brand. Each prompt should be a natural question that would surface the brand if it's mentioned by AI.

Return ONLY a JSON array of strings, no other text.`

// Adapters resolves a provider name to its adapter.
type Adapters interface {
	Get(name string) (llm.Adapter, error)
}

// Store reads crawl context and stores suggestions.
type Store interface {
	GetBrandPages(projectID string) ([]database.BrandPage, error)
	ReplaceSuggestions(projectID string, texts []string, source string) ([]database.PromptSuggestion, error)
}

// Options configures a Suggester.
type Options struct {
	Provider string
	Model    string
	Count    int
}

// Suggester asks an assistant for prompt ideas, falling back to generic
// templates when the assistant is unavailable or answers unusably.
type Suggester struct {
	adapters Adapters
	opts     Options
}

// New creates a Suggester.
func New(adapters Adapters, opts Options) *Suggester {
	if opts.Count <= 0 {
		opts.Count = defaultCount
	}
	if opts.Provider == "" {
		opts.Provider = llm.ProviderAnthropic
	}
	return &Suggester{adapters: adapters, opts: opts}
}

// Suggest generates suggestions for the project, replacing any stored ones.
func (s *Suggester) Suggest(ctx context.Context, store Store, project *database.Project) ([]database.PromptSuggestion, error) {
	pages, err := store.GetBrandPages(project.ID)
	if err != nil {
		return nil, fmt.Errorf("loading brand pages: %w", err)
	}

	texts, source := s.Generate(ctx, project, pages)
	suggestions, err := store.ReplaceSuggestions(project.ID, texts, source)
	if err != nil {
		return nil, fmt.Errorf("saving suggestions: %w", err)
	}
	return suggestions, nil
}

// Generate returns prompt texts and their source: ai_generated when the
// assistant produced a usable list, fallback otherwise.
func (s *Suggester) Generate(ctx context.Context, project *database.Project, pages []database.BrandPage) ([]string, string) {
	texts, err := s.ask(ctx, project, pages)
	if err != nil {
		log.Printf("Prompt suggestions unavailable, using fallback: %v", err)
		return Fallback(project.BrandName), database.SourceFallback
	}
	return texts, database.SourceAIGenerated
}

func (s *Suggester) ask(ctx context.Context, project *database.Project, pages []database.BrandPage) ([]string, error) {
	adapter, err := s.adapters.Get(s.opts.Provider)
	if err != nil {
		return nil, err
	}
	if !adapter.Configured() {
		return nil, fmt.Errorf("%s is not configured", adapter.Name())
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	out, err := adapter.Invoke(ctx, llm.Input{
		SystemPrompt: fmt.Sprintf(systemPromptTemplate, s.opts.Count),
		PromptText:   UserPrompt(project, pages, s.opts.Count),
		Model:        s.opts.Model,
		MaxTokens:    1024,
	})
	if err != nil {
		return nil, err
	}

	texts := llm.ParseStringArray(out.AnswerText)
	if len(texts) == 0 {
		return nil, fmt.Errorf("response was not a JSON array of prompts")
	}
	if len(texts) > s.opts.Count {
		texts = texts[:s.opts.Count]
	}
	return texts, nil
}

// UserPrompt describes the brand, and excerpts of its crawled pages when
// available.
func UserPrompt(project *database.Project, pages []database.BrandPage, count int) string {
	country, language := "US", "en"
	if project.Country != nil && *project.Country != "" {
		country = *project.Country
	}
	if project.Language != nil && *project.Language != "" {
		language = *project.Language
	}
	competitors := strings.Join(project.Competitors, ", ")
	if competitors == "" {
		competitors = "none listed"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Brand: %s\nDomain: %s\nCountry: %s\nLanguage: %s\nCompetitors: %s\n",
		project.BrandName, project.Domain, country, language, competitors)

	if len(pages) > 0 {
		b.WriteString("\nExcerpts from the brand's website:\n")
		for i, p := range pages {
			if i >= maxContextPages {
				break
			}
			fmt.Fprintf(&b, "- %s: %s\n", p.URL, excerpt(p.Content, pageExcerptRunes))
		}
	}

	fmt.Fprintf(&b, "\nGenerate %d prompts.", count)
	return b.String()
}

// Fallback returns the generic prompts used when no assistant is available.
func Fallback(brand string) []string {
	return []string{
		fmt.Sprintf("What is the best %s product?", brand),
		fmt.Sprintf("Is %s worth buying?", brand),
		fmt.Sprintf("%s vs competitors: which is better?", brand),
		fmt.Sprintf("What do people say about %s?", brand),
		fmt.Sprintf("Best alternatives to %s", brand),
	}
}

func excerpt(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}
