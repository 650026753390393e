package database

import (
	"database/sql"
	"strings"
)

const promptColumns = `id, project_id, prompt_text, source, is_active, created_at`

// InsertPrompt creates a new active prompt.
func (db *DB) InsertPrompt(projectID, promptText, source string) (string, error) {
	if source == "" {
		source = SourceUser
	}
	id := newID()
	_, err := db.conn.Exec(
		`INSERT INTO prompts (id, project_id, prompt_text, source) VALUES (?, ?, ?, ?)`,
		id, projectID, promptText, source,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetPrompt returns a single prompt by ID, or nil if it does not exist.
func (db *DB) GetPrompt(promptID string) (*Prompt, error) {
	row := db.conn.QueryRow("SELECT "+promptColumns+" FROM prompts WHERE id = ?", promptID)
	p, err := scanPrompt(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPromptsByIDs returns the prompts with the given IDs that belong to the
// project, in the order the IDs were given. Unknown IDs are skipped.
func (db *DB) GetPromptsByIDs(projectID string, promptIDs []string) ([]Prompt, error) {
	if len(promptIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(promptIDs)), ", ")
	args := make([]any, 0, len(promptIDs)+1)
	args = append(args, projectID)
	for _, id := range promptIDs {
		args = append(args, id)
	}

	found, err := db.queryPrompts(
		"SELECT "+promptColumns+" FROM prompts WHERE project_id = ? AND id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Prompt, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	var prompts []Prompt
	seen := make(map[string]bool, len(promptIDs))
	for _, id := range promptIDs {
		if p, ok := byID[id]; ok && !seen[id] {
			prompts = append(prompts, p)
			seen[id] = true
		}
	}
	return prompts, nil
}

// GetProjectPrompts returns all prompts of a project, newest first.
func (db *DB) GetProjectPrompts(projectID string) ([]Prompt, error) {
	return db.queryPrompts(
		"SELECT "+promptColumns+" FROM prompts WHERE project_id = ? ORDER BY created_at DESC, rowid DESC",
		projectID,
	)
}

// GetActivePrompts returns every active prompt across all projects.
func (db *DB) GetActivePrompts() ([]Prompt, error) {
	return db.queryPrompts(
		"SELECT " + promptColumns + " FROM prompts WHERE is_active = 1 ORDER BY project_id, created_at, rowid",
	)
}

// TogglePrompt flips the active state of a prompt.
func (db *DB) TogglePrompt(promptID string) error {
	_, err := db.conn.Exec(`UPDATE prompts SET is_active = NOT is_active WHERE id = ?`, promptID)
	return err
}

func (db *DB) queryPrompts(query string, args ...any) ([]Prompt, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prompts []Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, *p)
	}
	return prompts, rows.Err()
}

func scanPrompt(row scanner) (*Prompt, error) {
	var p Prompt
	var active int
	if err := row.Scan(&p.ID, &p.ProjectID, &p.PromptText, &p.Source, &active, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.IsActive = active != 0
	return &p, nil
}
