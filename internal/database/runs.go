package database

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotRunning is returned when a terminal transition targets a run that
// is not in the running state.
var ErrRunNotRunning = errors.New("run is not running")

const runColumns = `r.id, r.project_id, r.prompt_id, r.run_batch_id, r.provider, r.model, r.status,
	r.error_message, r.created_at, r.completed_at`

// CreateRun inserts a run in the running state and returns its ID.
func (db *DB) CreateRun(projectID, promptID, provider, model string, batchID *string) (string, error) {
	var modelArg *string
	if model != "" {
		modelArg = &model
	}
	id := newID()
	_, err := db.conn.Exec(
		`INSERT INTO runs (id, project_id, prompt_id, run_batch_id, provider, model, status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, projectID, promptID, batchID, provider, modelArg, RunRunning,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// FailRun moves a running run to error with the given message.
func (db *DB) FailRun(runID, message string) error {
	result, err := db.conn.Exec(
		`UPDATE runs SET status = ?, error_message = ?, completed_at = datetime('now')
		WHERE id = ? AND status = ?`,
		RunError, message, runID, RunRunning,
	)
	if err != nil {
		return err
	}
	return expectOneRow(result, runID)
}

// CompleteRun writes the run's score and moves it to done in a single
// transaction, so a run never has a score without being done.
func (db *DB) CompleteRun(runID string, s Score) error {
	flagsJSON, err := marshalStrings(nonNil(s.RiskFlags))
	if err != nil {
		return err
	}
	citJSON, err := marshalStrings(nonNil(s.Citations))
	if err != nil {
		return err
	}
	countsJSON, err := marshalCounts(s.CompetitorCounts)
	if err != nil {
		return err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE runs SET status = ?, error_message = NULL, completed_at = datetime('now')
		WHERE id = ? AND status = ?`,
		RunDone, runID, RunRunning,
	)
	if err != nil {
		return err
	}
	if err := expectOneRow(result, runID); err != nil {
		return err
	}

	_, err = tx.Exec(
		`INSERT INTO run_scores
		(run_id, mention_score, citation_score, sentiment_score, sentiment_label, share_of_voice,
		 risk_flags, citations, brand_count, competitor_counts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, s.MentionScore, s.CitationScore, s.SentimentScore, s.SentimentLabel, s.ShareOfVoice,
		flagsJSON, citJSON, s.BrandCount, countsJSON,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetRun returns a single run by ID, or nil if it does not exist.
func (db *DB) GetRun(runID string) (*Run, error) {
	row := db.conn.QueryRow("SELECT "+runColumns+" FROM runs r WHERE r.id = ?", runID)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetRunsForBatch returns the runs of a batch in creation order.
func (db *DB) GetRunsForBatch(batchID string) ([]Run, error) {
	rows, err := db.conn.Query(
		"SELECT "+runColumns+" FROM runs r WHERE r.run_batch_id = ? ORDER BY r.created_at, r.rowid",
		batchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRunsForProject returns the most recent runs of a project with their
// prompt text and score, newest first.
func (db *DB) GetRunsForProject(projectID string, limit int) ([]RunDetail, error) {
	return db.queryRunDetails(
		"WHERE r.project_id = ? ORDER BY r.created_at DESC, r.rowid DESC LIMIT ?",
		projectID, limitOrDefault(limit),
	)
}

// GetDoneRunsForProject returns the most recent done runs of a project,
// newest first.
func (db *DB) GetDoneRunsForProject(projectID string, limit int) ([]RunDetail, error) {
	return db.queryRunDetails(
		"WHERE r.project_id = ? AND r.status = 'done' ORDER BY r.created_at DESC, r.rowid DESC LIMIT ?",
		projectID, limitOrDefault(limit),
	)
}

func (db *DB) queryRunDetails(where string, args ...any) ([]RunDetail, error) {
	query := "SELECT " + runColumns + `, COALESCE(p.prompt_text, ''),
		s.run_id, s.mention_score, s.citation_score, s.sentiment_score, s.sentiment_label,
		s.share_of_voice, s.risk_flags, s.citations, s.brand_count, s.competitor_counts, s.created_at
		FROM runs r
		LEFT JOIN prompts p ON p.id = r.prompt_id
		LEFT JOIN run_scores s ON s.run_id = r.id ` + where

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []RunDetail
	for rows.Next() {
		var d RunDetail
		var scoreRunID, label, flagsJSON, citJSON, countsJSON, scoredAt *string
		var mention, citation, brandCount *int
		var sentiment, sov *float64
		if err := rows.Scan(
			&d.ID, &d.ProjectID, &d.PromptID, &d.BatchID, &d.Provider, &d.Model, &d.Status,
			&d.ErrorMessage, &d.CreatedAt, &d.CompletedAt, &d.PromptText,
			&scoreRunID, &mention, &citation, &sentiment, &label,
			&sov, &flagsJSON, &citJSON, &brandCount, &countsJSON, &scoredAt,
		); err != nil {
			return nil, err
		}
		if scoreRunID != nil {
			s := &Score{
				RunID:            *scoreRunID,
				RiskFlags:        unmarshalStrings(flagsJSON),
				Citations:        unmarshalStrings(citJSON),
				CompetitorCounts: unmarshalCounts(countsJSON),
				CreatedAt:        scoredAt,
			}
			if mention != nil {
				s.MentionScore = *mention
			}
			if citation != nil {
				s.CitationScore = *citation
			}
			if sentiment != nil {
				s.SentimentScore = *sentiment
			}
			if label != nil {
				s.SentimentLabel = *label
			}
			if sov != nil {
				s.ShareOfVoice = *sov
			}
			if brandCount != nil {
				s.BrandCount = *brandCount
			}
			d.Score = s
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	if err := row.Scan(&r.ID, &r.ProjectID, &r.PromptID, &r.BatchID, &r.Provider, &r.Model, &r.Status,
		&r.ErrorMessage, &r.CreatedAt, &r.CompletedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func expectOneRow(result sql.Result, runID string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("run %s: %w", runID, ErrRunNotRunning)
	}
	return nil
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
