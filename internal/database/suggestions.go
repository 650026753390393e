package database

// ReplaceSuggestions swaps the stored suggestions of a project for a new set.
func (db *DB) ReplaceSuggestions(projectID string, texts []string, source string) ([]PromptSuggestion, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM prompt_suggestions WHERE project_id = ?`, projectID); err != nil {
		return nil, err
	}

	suggestions := make([]PromptSuggestion, 0, len(texts))
	for _, text := range texts {
		s := PromptSuggestion{ID: newID(), ProjectID: projectID, PromptText: text, Source: source}
		if _, err := tx.Exec(
			`INSERT INTO prompt_suggestions (id, project_id, prompt_text, source) VALUES (?, ?, ?, ?)`,
			s.ID, s.ProjectID, s.PromptText, s.Source,
		); err != nil {
			return nil, err
		}
		suggestions = append(suggestions, s)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return suggestions, nil
}

// GetSuggestions returns the stored suggestions of a project in insertion order.
func (db *DB) GetSuggestions(projectID string) ([]PromptSuggestion, error) {
	rows, err := db.conn.Query(
		`SELECT id, project_id, prompt_text, source, created_at
		FROM prompt_suggestions WHERE project_id = ? ORDER BY rowid`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suggestions []PromptSuggestion
	for rows.Next() {
		var s PromptSuggestion
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.PromptText, &s.Source, &s.CreatedAt); err != nil {
			return nil, err
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, rows.Err()
}
