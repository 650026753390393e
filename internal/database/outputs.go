package database

import "database/sql"

// InsertRawOutput stores the verbatim provider answer for a run.
func (db *DB) InsertRawOutput(o RawOutput) error {
	citJSON, err := marshalStrings(nonNil(o.Citations))
	if err != nil {
		return err
	}
	var model *string
	if o.Model != "" {
		model = &o.Model
	}
	_, err = db.conn.Exec(
		`INSERT INTO run_outputs_raw
		(run_id, provider, model_used, raw_text, citations, tokens_input, tokens_output, latency_ms, finish_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, o.Provider, model, o.RawText, citJSON, o.TokensInput, o.TokensOutput, o.LatencyMS, o.FinishReason,
	)
	return err
}

// GetRawOutput returns the raw output of a run, or nil if none was stored.
func (db *DB) GetRawOutput(runID string) (*RawOutput, error) {
	row := db.conn.QueryRow(
		`SELECT run_id, provider, model_used, raw_text, citations, tokens_input, tokens_output,
		latency_ms, finish_reason, created_at
		FROM run_outputs_raw WHERE run_id = ?`, runID,
	)

	var o RawOutput
	var model, citJSON *string
	if err := row.Scan(&o.RunID, &o.Provider, &model, &o.RawText, &citJSON, &o.TokensInput, &o.TokensOutput,
		&o.LatencyMS, &o.FinishReason, &o.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if model != nil {
		o.Model = *model
	}
	o.Citations = unmarshalStrings(citJSON)
	return &o, nil
}

// AnswerRecord is the answer text of a done run keyed by prompt and provider.
type AnswerRecord struct {
	RunID     string
	PromptID  string
	Provider  string
	RawText   string
	CreatedAt string
}

// GetDoneAnswers returns the answers of every done run of a project, grouped
// by prompt and provider and oldest first within each group.
func (db *DB) GetDoneAnswers(projectID string) ([]AnswerRecord, error) {
	rows, err := db.conn.Query(
		`SELECT r.id, r.prompt_id, r.provider, o.raw_text, COALESCE(r.created_at, '')
		FROM runs r
		JOIN run_outputs_raw o ON o.run_id = r.id
		WHERE r.project_id = ? AND r.status = 'done'
		ORDER BY r.prompt_id, r.provider, r.created_at, r.rowid`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []AnswerRecord
	for rows.Next() {
		var a AnswerRecord
		if err := rows.Scan(&a.RunID, &a.PromptID, &a.Provider, &a.RawText, &a.CreatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
