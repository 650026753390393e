package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/GEOMonitor/internal/crawl"
	"github.com/TobiSchelling/GEOMonitor/internal/database"
	"github.com/TobiSchelling/GEOMonitor/internal/report"
	"github.com/TobiSchelling/GEOMonitor/internal/schedule"
)

// --- run command ---

var (
	runPrompts   []string
	runProviders []string
)

var runCmd = &cobra.Command{
	Use:   "run [project-id]",
	Short: "Run prompts of a project against one or more providers",
	Long:  "Runs every selected prompt against every selected provider as one batch. Without --prompt, all active prompts of the project are used.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		project, err := mustProject(db, args[0])
		if err != nil {
			return err
		}
		promptIDs := runPrompts
		if len(promptIDs) == 0 {
			prompts, err := db.GetProjectPrompts(project.ID)
			if err != nil {
				return err
			}
			for _, p := range prompts {
				if p.IsActive {
					promptIDs = append(promptIDs, p.ID)
				}
			}
		}

		registry, err := newRegistry()
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		result, err := newCoordinator(db, registry).RunBatch(ctx, project.ID, promptIDs, runProviders)
		if err != nil {
			return err
		}

		fmt.Printf("Batch %s: %s\n", result.BatchID, result.Status)
		for _, o := range result.Results {
			line := fmt.Sprintf("  %-10s %-8s %s", o.Provider, o.Status, o.PromptID)
			if o.Error != "" {
				line += "  " + o.Error
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runPrompts, "prompt", nil, "Prompt ID to run (repeatable)")
	runCmd.Flags().StringSliceVar(&runProviders, "providers", nil, "Providers to ask (default from config)")
}

var runScheduledCmd = &cobra.Command{
	Use:   "run-scheduled",
	Short: "Run every active prompt once against the scheduled provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		registry, err := newRegistry()
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		result, err := newCoordinator(db, registry).RunScheduled(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Scheduled pass complete: %d ran, %d errors\n", result.Ran, result.Errors)
		return nil
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the scheduled pass at every tick of schedule.cron until stopped",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		registry, err := newRegistry()
		if err != nil {
			return err
		}
		sched, err := schedule.New(cfg.Schedule.Cron, newCoordinator(db, registry))
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		fmt.Printf("Schedule %q, next pass at %s\n", cfg.Schedule.Cron, sched.Next(time.Now()).Format(time.RFC3339))
		fmt.Println("Press Ctrl+C to stop")
		return sched.Run(ctx)
	},
}

// --- suggest and crawl commands ---

var crawlFirst bool

var suggestCmd = &cobra.Command{
	Use:   "suggest [project-id]",
	Short: "Generate prompt suggestions for a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		project, err := mustProject(db, args[0])
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		if crawlFirst {
			if err := crawlProject(ctx, db, project); err != nil {
				return err
			}
		}

		registry, err := newRegistry()
		if err != nil {
			return err
		}
		suggestions, err := newSuggester(registry).Suggest(ctx, db, project)
		if err != nil {
			return err
		}
		fmt.Printf("Stored %d suggestions:\n", len(suggestions))
		for _, s := range suggestions {
			fmt.Printf("  [%s] (%s) %s\n", s.ID, s.Source, s.PromptText)
		}
		fmt.Println("\nAdopt one with: geomonitor prompt add", project.ID, "--from-suggestion <id>")
		return nil
	},
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [project-id]",
	Short: "Crawl the brand's own site and store page text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		project, err := mustProject(db, args[0])
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()
		return crawlProject(ctx, db, project)
	},
}

func init() {
	suggestCmd.Flags().BoolVar(&crawlFirst, "crawl", false, "Crawl the brand site before generating")
}

func crawlProject(ctx context.Context, db *database.DB, project *database.Project) error {
	fmt.Printf("Crawling %s...\n", crawl.BaseURL(project.Domain))
	pages, err := newCrawler().Crawl(ctx, project.Domain)
	if err != nil {
		return err
	}
	saved, err := crawl.Save(db, project.ID, pages)
	if err != nil {
		return fmt.Errorf("saving pages: %w", err)
	}
	fmt.Printf("  Stored %d pages\n", saved)
	return nil
}

// --- report command ---

var reportOutput string

var reportCmd = &cobra.Command{
	Use:   "report [project-id]",
	Short: "Write the markdown visibility report of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		rep, err := report.Build(db, args[0], time.Now())
		if err != nil {
			return err
		}
		if rep == nil {
			return fmt.Errorf("project %s not found", args[0])
		}

		if reportOutput == "" {
			fmt.Print(rep.Markdown())
			return nil
		}
		if err := os.WriteFile(reportOutput, []byte(rep.Markdown()), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("Wrote report: %s\n", reportOutput)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write to file instead of stdout")
}
