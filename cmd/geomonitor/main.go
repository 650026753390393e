package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/GEOMonitor/internal/batch"
	"github.com/TobiSchelling/GEOMonitor/internal/config"
	"github.com/TobiSchelling/GEOMonitor/internal/crawl"
	"github.com/TobiSchelling/GEOMonitor/internal/database"
	"github.com/TobiSchelling/GEOMonitor/internal/llm"
	"github.com/TobiSchelling/GEOMonitor/internal/runner"
	"github.com/TobiSchelling/GEOMonitor/internal/server"
	"github.com/TobiSchelling/GEOMonitor/internal/suggest"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "geomonitor",
	Short:   "Brand visibility in AI assistant answers",
	Long:    "GEOMonitor asks AI assistants fixed questions about a brand and scores how the brand shows up in their answers.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", path, err)
		}
		if strings.EqualFold(cfg.Logging.Level, "debug") {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runScheduledCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("geomonitor", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/geomonitor/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure providers, the schedule, and API key variables.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and provider status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Projects:")
		fmt.Printf("  Total: %d\n", stats.Projects)
		fmt.Printf("  Prompts: %d (%d active)\n", stats.Prompts, stats.ActivePrompts)
		fmt.Printf("  Suggestions: %d\n", stats.Suggestions)
		fmt.Printf("  Brand pages: %d\n", stats.BrandPages)
		fmt.Println("\nRuns:")
		fmt.Printf("  Total: %d\n", stats.Runs)
		fmt.Printf("  Done: %d\n", stats.DoneRuns)
		fmt.Printf("  Error: %d\n", stats.ErrorRuns)
		fmt.Printf("  Running: %d\n", stats.RunningRuns)
		fmt.Printf("  Batches: %d\n", stats.Batches)

		registry, err := newRegistry()
		if err != nil {
			return err
		}
		fmt.Println("\nProviders:")
		for _, name := range registry.Names() {
			a, _ := registry.Get(name)
			state := "not configured"
			if a.Configured() {
				state = "ready"
			}
			fmt.Printf("  %s: %s\n", name, state)
		}
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server and JSON API",
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
		srv, err := server.New(db, newCoordinator(db, registry), newSuggester(registry))
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		ctx, stop := signalContext()
		defer stop()

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, srv, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func openDB() (*database.DB, error) {
	if err := os.MkdirAll(cfg.GetDataDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(cfg.DBPath())
}

func newRegistry() (*llm.Registry, error) {
	registry, err := llm.NewRegistry(cfg.ProviderConfigs())
	if err != nil {
		return nil, fmt.Errorf("creating providers: %w", err)
	}
	return registry, nil
}

func newCoordinator(db *database.DB, registry *llm.Registry) *batch.Coordinator {
	temperature := cfg.Runner.Temperature
	exec := runner.New(db, registry, runner.Options{
		Timeout:     cfg.RunTimeout(),
		Temperature: &temperature,
	})
	return batch.New(db, exec, batch.Options{
		DefaultProvider: cfg.Batch.DefaultProvider,
		Concurrency:     cfg.Batch.Concurrency,
		Scheduled: runner.Target{
			Provider: cfg.Schedule.Provider,
			Model:    cfg.Schedule.Model,
		},
	})
}

func newSuggester(registry *llm.Registry) *suggest.Suggester {
	return suggest.New(registry, suggest.Options{
		Provider: cfg.Suggest.Provider,
		Model:    cfg.Suggest.Model,
		Count:    cfg.Suggest.Count,
	})
}

func newCrawler() *crawl.Crawler {
	return crawl.New(crawl.Options{
		MaxPages:  cfg.Crawl.MaxPages,
		Timeout:   cfg.CrawlTimeout(),
		UserAgent: cfg.Crawl.UserAgent,
	})
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
