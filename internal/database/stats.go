package database

// GetStats returns aggregate row counts across all tables.
func (db *DB) GetStats() (*Stats, error) {
	var s Stats
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM projects", &s.Projects},
		{"SELECT COUNT(*) FROM prompts", &s.Prompts},
		{"SELECT COUNT(*) FROM prompts WHERE is_active = 1", &s.ActivePrompts},
		{"SELECT COUNT(*) FROM runs", &s.Runs},
		{"SELECT COUNT(*) FROM runs WHERE status = 'done'", &s.DoneRuns},
		{"SELECT COUNT(*) FROM runs WHERE status = 'error'", &s.ErrorRuns},
		{"SELECT COUNT(*) FROM runs WHERE status = 'running'", &s.RunningRuns},
		{"SELECT COUNT(*) FROM run_batches", &s.Batches},
		{"SELECT COUNT(*) FROM prompt_suggestions", &s.Suggestions},
		{"SELECT COUNT(*) FROM brand_pages", &s.BrandPages},
	}
	for _, q := range queries {
		if err := db.conn.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return &s, nil
}
