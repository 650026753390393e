// Package schedule triggers the unattended prompt pass on a cron schedule.
package schedule

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/TobiSchelling/GEOMonitor/internal/batch"
)

// Runner executes one unattended pass.
type Runner interface {
	RunScheduled(ctx context.Context) (*batch.ScheduledResult, error)
}

// Scheduler runs the scheduled pass at every tick of a cron expression.
// Overlapping ticks are skipped while a pass is still running.
type Scheduler struct {
	expr     string
	schedule cron.Schedule
	runner   Runner
}

// ParseCron parses a standard 5-field cron expression or a descriptor such
// as @daily. It accepts exactly what config validation accepts.
func ParseCron(expr string) (cron.Schedule, error) {
	return cron.ParseStandard(expr)
}

// New creates a Scheduler for expr.
func New(expr string, r Runner) (*Scheduler, error) {
	sched, err := ParseCron(expr)
	if err != nil {
		return nil, fmt.Errorf("parsing cron %q: %w", expr, err)
	}
	return &Scheduler{expr: expr, schedule: sched, runner: r}, nil
}

// Next returns the first tick after from.
func (s *Scheduler) Next(from time.Time) time.Time {
	return s.schedule.Next(from)
}

// RunOnce executes a single pass and logs its counts.
func (s *Scheduler) RunOnce(ctx context.Context) (*batch.ScheduledResult, error) {
	start := time.Now()
	result, err := s.runner.RunScheduled(ctx)
	if err != nil {
		return result, fmt.Errorf("scheduled pass: %w", err)
	}
	log.Printf("Scheduled pass: %d ran, %d errors in %s", result.Ran, result.Errors, time.Since(start).Round(time.Second))
	return result, nil
}

// Run blocks, firing a pass at every tick until ctx is cancelled. A pass in
// progress when ctx is cancelled is allowed to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := cron.PrintfLogger(log.Default())
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(logger)))

	c.Schedule(s.schedule, cron.FuncJob(func() {
		if _, err := s.RunOnce(ctx); err != nil {
			log.Printf("Warning: %v", err)
		}
	}))

	log.Printf("Scheduler started (%s), next run at %s", s.expr, s.Next(time.Now()).Format(time.RFC3339))
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	log.Printf("Scheduler stopped")
	return nil
}
