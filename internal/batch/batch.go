// Package batch fans prompts out across providers and rolls the per-run
// outcomes up into a Batch.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/GEOMonitor/internal/database"
	"github.com/TobiSchelling/GEOMonitor/internal/runner"
	"github.com/TobiSchelling/GEOMonitor/internal/score"
)

var (
	// ErrInvalidRequest reports a trigger missing its project or prompts.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound reports an unknown project or prompt set.
	ErrNotFound = errors.New("not found")
)

// Store is the record store the coordinator reads prompts from and writes
// batches to.
type Store interface {
	GetProject(projectID string) (*database.Project, error)
	GetPromptsByIDs(projectID string, promptIDs []string) ([]database.Prompt, error)
	GetActivePrompts() ([]database.Prompt, error)
	CreateBatch(projectID string, promptCount int) (string, error)
	FinishBatch(batchID string, status database.BatchStatus) error
}

// Executor runs a single (prompt, provider) pair.
type Executor interface {
	Execute(ctx context.Context, req runner.Request) (runner.Outcome, error)
}

// Options configures a Coordinator.
type Options struct {
	// DefaultProvider is used when a trigger names no providers.
	DefaultProvider string
	// Concurrency bounds in-flight runs. 1 runs pairs one after another.
	Concurrency int
	// Scheduled is the single target of unattended runs.
	Scheduled runner.Target
}

// Coordinator executes batches of runs.
type Coordinator struct {
	store Store
	exec  Executor
	opts  Options
}

// Result is the outcome of RunBatch.
type Result struct {
	BatchID string           `json:"batch_id"`
	Status  string           `json:"status"`
	Results []runner.Outcome `json:"results"`
}

// ScheduledResult is the outcome of RunScheduled.
type ScheduledResult struct {
	Ran    int `json:"ran"`
	Errors int `json:"errors"`
}

// New creates a Coordinator.
func New(store Store, exec Executor, opts Options) *Coordinator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.DefaultProvider == "" {
		opts.DefaultProvider = "openai"
	}
	if opts.Scheduled.Provider == "" {
		opts.Scheduled.Provider = opts.DefaultProvider
	}
	return &Coordinator{store: store, exec: exec, opts: opts}
}

type pair struct {
	prompt   database.Prompt
	provider string
}

// RunBatch executes every prompt against every provider and returns one
// outcome per executed pair, in prompt-major order. A batch ends done only
// when every pair ran and ended done. Cancelling ctx stops scheduling new
// pairs; pairs already in flight finish.
func (c *Coordinator) RunBatch(ctx context.Context, projectID string, promptIDs, providers []string) (*Result, error) {
	if strings.TrimSpace(projectID) == "" || len(promptIDs) == 0 {
		return nil, fmt.Errorf("project_id and prompt_ids are required: %w", ErrInvalidRequest)
	}

	project, err := c.store.GetProject(projectID)
	if err != nil {
		return nil, &runner.PersistenceError{Op: "load project", Err: err}
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}

	prompts, err := c.store.GetPromptsByIDs(projectID, promptIDs)
	if err != nil {
		return nil, &runner.PersistenceError{Op: "load prompts", Err: err}
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("no prompts found: %w", ErrNotFound)
	}

	providers = c.normalizeProviders(providers)
	var pairs []pair
	for _, p := range prompts {
		for _, provider := range providers {
			pairs = append(pairs, pair{prompt: p, provider: provider})
		}
	}

	batchID, err := c.store.CreateBatch(projectID, len(pairs))
	if err != nil {
		return nil, &runner.PersistenceError{Op: "create batch", Err: err}
	}
	log.Printf("Batch %s: %d prompts x %d providers", batchID, len(prompts), len(providers))

	brand := ProfileOf(project)
	outcomes, runErr := c.executeAll(ctx, batchID, brand, pairs)

	status := database.BatchDone
	if len(outcomes) != len(pairs) {
		status = database.BatchPartial
	}
	for _, o := range outcomes {
		if o.Status != database.RunDone {
			status = database.BatchPartial
		}
	}

	if err := c.store.FinishBatch(batchID, status); err != nil && runErr == nil {
		runErr = &runner.PersistenceError{Op: "finish batch", Err: err}
	}
	log.Printf("Batch %s finished: %s (%d/%d runs)", batchID, status, len(outcomes), len(pairs))

	return &Result{BatchID: batchID, Status: string(status), Results: outcomes}, runErr
}

func (c *Coordinator) executeAll(ctx context.Context, batchID string, brand score.Profile, pairs []pair) ([]runner.Outcome, error) {
	outcomes := make([]runner.Outcome, len(pairs))
	ran := make([]bool, len(pairs))

	// In-flight runs are not aborted by cancellation; each invocation
	// carries its own timeout.
	runCtx := context.WithoutCancel(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for i, p := range pairs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			outcome, err := c.exec.Execute(runCtx, runner.Request{
				ProjectID:  p.prompt.ProjectID,
				PromptID:   p.prompt.ID,
				PromptText: p.prompt.PromptText,
				Target:     runner.Target{Provider: p.provider},
				Brand:      brand,
				BatchID:    &batchID,
			})
			if outcome.RunID != "" {
				outcomes[i] = outcome
				ran[i] = true
			}
			return err
		})
	}
	err := g.Wait()

	collected := make([]runner.Outcome, 0, len(pairs))
	for i := range pairs {
		if ran[i] {
			collected = append(collected, outcomes[i])
		}
	}
	return collected, err
}

// RunScheduled executes every active prompt of every project once against
// the scheduled target, without batch grouping.
func (c *Coordinator) RunScheduled(ctx context.Context) (*ScheduledResult, error) {
	prompts, err := c.store.GetActivePrompts()
	if err != nil {
		return nil, &runner.PersistenceError{Op: "load active prompts", Err: err}
	}

	result := &ScheduledResult{}
	if len(prompts) == 0 {
		log.Printf("No active prompts")
		return result, nil
	}

	// Cancelling ctx stops the pass before the next prompt; the run in
	// flight finishes.
	runCtx := context.WithoutCancel(ctx)
	profiles := make(map[string]*score.Profile)
	for _, p := range prompts {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		brand, ok := profiles[p.ProjectID]
		if !ok {
			project, err := c.store.GetProject(p.ProjectID)
			if err != nil {
				return result, &runner.PersistenceError{Op: "load project", Err: err}
			}
			if project != nil {
				profile := ProfileOf(project)
				brand = &profile
			}
			profiles[p.ProjectID] = brand
		}
		if brand == nil {
			continue
		}

		outcome, err := c.exec.Execute(runCtx, runner.Request{
			ProjectID:  p.ProjectID,
			PromptID:   p.ID,
			PromptText: p.PromptText,
			Target:     c.opts.Scheduled,
			Brand:      *brand,
		})
		if err != nil {
			return result, err
		}
		if outcome.Status == database.RunDone {
			result.Ran++
		} else {
			result.Errors++
		}
	}

	log.Printf("Scheduled pass complete: %d ran, %d errors", result.Ran, result.Errors)
	return result, nil
}

func (c *Coordinator) normalizeProviders(providers []string) []string {
	var out []string
	seen := make(map[string]bool, len(providers))
	for _, p := range providers {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	if len(out) == 0 {
		out = []string{c.opts.DefaultProvider}
	}
	return out
}

// ProfileOf snapshots the brand profile of a project.
func ProfileOf(p *database.Project) score.Profile {
	profile := score.Profile{
		BrandName:   p.BrandName,
		Domain:      p.Domain,
		Competitors: p.Competitors,
	}
	if p.Country != nil {
		profile.Country = *p.Country
	}
	if p.Language != nil {
		profile.Language = *p.Language
	}
	return profile.Snapshot()
}
