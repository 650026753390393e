// Package runner executes one prompt against one provider and records the
// outcome as a Run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/TobiSchelling/GEOMonitor/internal/database"
	"github.com/TobiSchelling/GEOMonitor/internal/llm"
	"github.com/TobiSchelling/GEOMonitor/internal/score"
)

// DefaultTimeout bounds a single provider invocation.
const DefaultTimeout = 10 * time.Second

// Store is the record store the executor writes to.
type Store interface {
	CreateRun(projectID, promptID, provider, model string, batchID *string) (string, error)
	FailRun(runID, message string) error
	InsertRawOutput(o database.RawOutput) error
	CompleteRun(runID string, s database.Score) error
}

// Adapters resolves a provider name to its adapter.
type Adapters interface {
	Get(name string) (llm.Adapter, error)
}

// Target names the provider and model a prompt is sent to. An empty model
// selects the provider's configured default.
type Target struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
}

// Request is one (prompt, provider) execution.
type Request struct {
	ProjectID  string
	PromptID   string
	PromptText string
	Target     Target
	Brand      score.Profile
	BatchID    *string
}

// Outcome is the per-run result reported to callers.
type Outcome struct {
	RunID    string             `json:"run_id"`
	PromptID string             `json:"prompt_id"`
	Provider string             `json:"provider"`
	Status   database.RunStatus `json:"status"`
	Error    string             `json:"error,omitempty"`
}

// PersistenceError is a failed write to the record store. Unlike provider
// and scoring failures it is returned to the caller.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Options tunes an Executor.
type Options struct {
	Timeout time.Duration
	// Temperature is sent with every call. Nil leaves the adapter default
	// (llm.DefaultTemperature); zero is a valid setting.
	Temperature *float64
}

// Executor drives a Run through running to done or error.
type Executor struct {
	store       Store
	adapters    Adapters
	timeout     time.Duration
	temperature *float64
}

// New creates an Executor. A zero Timeout falls back to DefaultTimeout.
func New(store Store, adapters Adapters, opts Options) *Executor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Executor{
		store:       store,
		adapters:    adapters,
		timeout:     opts.Timeout,
		temperature: opts.Temperature,
	}
}

// Execute runs one request. Provider and scoring failures end the Run in
// error and are reported in the Outcome; the returned error is non-nil only
// for a *PersistenceError.
func (e *Executor) Execute(ctx context.Context, req Request) (Outcome, error) {
	outcome := Outcome{PromptID: req.PromptID, Provider: req.Target.Provider}

	runID, err := e.store.CreateRun(req.ProjectID, req.PromptID, req.Target.Provider, req.Target.Model, req.BatchID)
	if err != nil {
		return outcome, &PersistenceError{Op: "create run", Err: err}
	}
	outcome.RunID = runID

	out, err := e.invoke(ctx, req)
	if err != nil {
		return e.fail(outcome, err)
	}

	raw := database.RawOutput{
		RunID:        runID,
		Provider:     out.Meta.Provider,
		Model:        out.Meta.Model,
		RawText:      out.AnswerText,
		Citations:    out.Citations,
		TokensInput:  out.Meta.TokensInput,
		TokensOutput: out.Meta.TokensOutput,
		LatencyMS:    out.Meta.LatencyMS,
		FinishReason: out.Meta.FinishReason,
	}
	if raw.Provider == "" {
		raw.Provider = req.Target.Provider
	}
	if err := e.store.InsertRawOutput(raw); err != nil {
		return e.abort(outcome, "insert raw output", err)
	}

	s, err := score.Compute(out.AnswerText, req.Brand)
	if err != nil {
		return e.fail(outcome, err)
	}

	if err := e.store.CompleteRun(runID, toRecord(s)); err != nil {
		return e.abort(outcome, "complete run", err)
	}

	log.Printf("Run %s done (%s, %dms)", runID, req.Target.Provider, out.Meta.LatencyMS)
	outcome.Status = database.RunDone
	return outcome, nil
}

func (e *Executor) invoke(ctx context.Context, req Request) (*llm.Output, error) {
	adapter, err := e.adapters.Get(req.Target.Provider)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	in := llm.Input{PromptText: req.PromptText, Model: req.Target.Model}
	if e.temperature != nil {
		temp := *e.temperature
		in.Temperature = &temp
	}
	return adapter.Invoke(ctx, in)
}

// fail records a provider or scoring failure on the Run.
func (e *Executor) fail(outcome Outcome, cause error) (Outcome, error) {
	var pe *llm.ProviderError
	var se *score.ScoringError
	switch {
	case errors.As(cause, &pe):
		log.Printf("Run %s failed: provider %s: %v", outcome.RunID, pe.Provider, cause)
	case errors.As(cause, &se):
		log.Printf("Run %s failed: scoring: %v", outcome.RunID, cause)
	default:
		log.Printf("Run %s failed: %v", outcome.RunID, cause)
	}

	outcome.Status = database.RunError
	outcome.Error = cause.Error()
	if err := e.store.FailRun(outcome.RunID, outcome.Error); err != nil {
		outcome.Status = database.RunRunning
		return outcome, &PersistenceError{Op: "fail run", Err: err}
	}
	return outcome, nil
}

// abort handles a store write failure after the Run exists. The Run is marked
// error on a best-effort basis; if that also fails it stays running.
func (e *Executor) abort(outcome Outcome, op string, cause error) (Outcome, error) {
	perr := &PersistenceError{Op: op, Err: cause}
	outcome.Status = database.RunError
	outcome.Error = perr.Error()
	if err := e.store.FailRun(outcome.RunID, outcome.Error); err != nil {
		log.Printf("Run %s left running: %v", outcome.RunID, err)
		outcome.Status = database.RunRunning
	}
	return outcome, perr
}

func toRecord(s score.Score) database.Score {
	return database.Score{
		MentionScore:     s.MentionScore,
		CitationScore:    s.CitationScore,
		SentimentScore:   s.SentimentScore,
		SentimentLabel:   s.SentimentLabel,
		ShareOfVoice:     s.ShareOfVoice,
		RiskFlags:        s.RiskFlags,
		Citations:        s.Citations,
		BrandCount:       s.BrandCount,
		CompetitorCounts: s.CompetitorCounts,
	}
}
