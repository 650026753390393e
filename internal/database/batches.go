package database

import "database/sql"

// CreateBatch inserts a running batch for the project and returns its ID.
func (db *DB) CreateBatch(projectID string, promptCount int) (string, error) {
	id := newID()
	_, err := db.conn.Exec(
		`INSERT INTO run_batches (id, project_id, status, prompt_count) VALUES (?, ?, ?, ?)`,
		id, projectID, BatchRunning, promptCount,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// FinishBatch sets the terminal status of a batch and stamps its completion time.
func (db *DB) FinishBatch(batchID string, status BatchStatus) error {
	_, err := db.conn.Exec(
		`UPDATE run_batches SET status = ?, completed_at = datetime('now') WHERE id = ?`,
		status, batchID,
	)
	return err
}

// GetBatch returns a batch by ID, or nil if it does not exist.
func (db *DB) GetBatch(batchID string) (*Batch, error) {
	var b Batch
	err := db.conn.QueryRow(
		`SELECT id, project_id, status, prompt_count, created_at, completed_at FROM run_batches WHERE id = ?`,
		batchID,
	).Scan(&b.ID, &b.ProjectID, &b.Status, &b.PromptCount, &b.CreatedAt, &b.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
