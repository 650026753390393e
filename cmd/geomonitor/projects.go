package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/GEOMonitor/internal/database"
)

// --- project command ---

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage monitored brands",
}

var (
	projectCountry     string
	projectLanguage    string
	projectCompetitors []string
)

var projectAddCmd = &cobra.Command{
	Use:   "add [brand] [domain]",
	Short: "Add a brand to monitor",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := db.InsertProject(args[0], args[1], optional(projectCountry), optional(projectLanguage), projectCompetitors)
		if err != nil {
			return err
		}
		fmt.Printf("Added project [%s]: %s (%s)\n", id, args[0], args[1])
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		projects, err := db.GetAllProjects()
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("No projects defined. Add one with: geomonitor project add")
			return nil
		}
		for _, p := range projects {
			fmt.Printf("  [%s] %s  %s\n", p.ID, p.BrandName, p.Domain)
		}
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a project and its prompts",
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
		fmt.Printf("%s (%s)\n", project.BrandName, project.Domain)
		if project.Country != nil || project.Language != nil {
			fmt.Printf("  Locale: %s %s\n", deref(project.Country), deref(project.Language))
		}
		if len(project.Competitors) > 0 {
			fmt.Printf("  Competitors: %s\n", strings.Join(project.Competitors, ", "))
		}

		prompts, err := db.GetProjectPrompts(project.ID)
		if err != nil {
			return err
		}
		fmt.Printf("\nPrompts (%d):\n", len(prompts))
		printPrompts(prompts)
		return nil
	},
}

func init() {
	projectAddCmd.Flags().StringVar(&projectCountry, "country", "", "Market country code, e.g. US")
	projectAddCmd.Flags().StringVar(&projectLanguage, "language", "", "Answer language code, e.g. en")
	projectAddCmd.Flags().StringSliceVar(&projectCompetitors, "competitor", nil, "Competitor brand (repeatable)")

	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
}

// --- prompt command ---

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Manage the questions asked about a brand",
}

var fromSuggestion string

var promptAddCmd = &cobra.Command{
	Use:   "add [project-id] [text]",
	Short: "Add a prompt, or adopt a stored suggestion with --from-suggestion",
	Args:  cobra.RangeArgs(1, 2),
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

		text, source := "", database.SourceUser
		switch {
		case fromSuggestion != "":
			suggestions, err := db.GetSuggestions(project.ID)
			if err != nil {
				return err
			}
			for _, s := range suggestions {
				if s.ID == fromSuggestion {
					text, source = s.PromptText, database.SourceAIGenerated
				}
			}
			if text == "" {
				return fmt.Errorf("suggestion %s not found for project %s", fromSuggestion, project.ID)
			}
		case len(args) == 2:
			text = strings.TrimSpace(args[1])
		}
		if text == "" {
			return fmt.Errorf("prompt text is required")
		}

		id, err := db.InsertPrompt(project.ID, text, source)
		if err != nil {
			return err
		}
		fmt.Printf("Added prompt [%s]: %s\n", id, text)
		return nil
	},
}

var promptListCmd = &cobra.Command{
	Use:   "list [project-id]",
	Short: "List the prompts of a project",
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
		prompts, err := db.GetProjectPrompts(project.ID)
		if err != nil {
			return err
		}
		if len(prompts) == 0 {
			fmt.Println("No prompts defined. Add one with: geomonitor prompt add")
			return nil
		}
		printPrompts(prompts)
		return nil
	},
}

var promptToggleCmd = &cobra.Command{
	Use:   "toggle [id]",
	Short: "Toggle whether a prompt is part of the scheduled pass",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		prompt, err := db.GetPrompt(args[0])
		if err != nil {
			return err
		}
		if prompt == nil {
			return fmt.Errorf("prompt %s not found", args[0])
		}
		if err := db.TogglePrompt(prompt.ID); err != nil {
			return err
		}
		newState := "disabled"
		if !prompt.IsActive {
			newState = "enabled"
		}
		fmt.Printf("Prompt [%s] %s\n", prompt.ID, newState)
		return nil
	},
}

func init() {
	promptAddCmd.Flags().StringVar(&fromSuggestion, "from-suggestion", "", "ID of a stored suggestion to adopt")

	promptCmd.AddCommand(promptAddCmd)
	promptCmd.AddCommand(promptListCmd)
	promptCmd.AddCommand(promptToggleCmd)
}

func mustProject(db *database.DB, id string) (*database.Project, error) {
	project, err := db.GetProject(id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %s not found", id)
	}
	return project, nil
}

func printPrompts(prompts []database.Prompt) {
	for _, p := range prompts {
		icon := " "
		if p.IsActive {
			icon = "*"
		}
		text := p.PromptText
		if len(text) > 70 {
			text = text[:70] + "..."
		}
		fmt.Printf("  [%s] %s %s\n", p.ID, icon, text)
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
