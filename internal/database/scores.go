package database

import (
	"database/sql"
	"encoding/json"
)

// GetScore returns the score of a run, or nil if the run has none.
func (db *DB) GetScore(runID string) (*Score, error) {
	row := db.conn.QueryRow(
		`SELECT run_id, mention_score, citation_score, sentiment_score, sentiment_label, share_of_voice,
		risk_flags, citations, brand_count, competitor_counts, created_at
		FROM run_scores WHERE run_id = ?`, runID,
	)

	var s Score
	var flagsJSON, citJSON, countsJSON *string
	if err := row.Scan(&s.RunID, &s.MentionScore, &s.CitationScore, &s.SentimentScore, &s.SentimentLabel,
		&s.ShareOfVoice, &flagsJSON, &citJSON, &s.BrandCount, &countsJSON, &s.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	s.RiskFlags = unmarshalStrings(flagsJSON)
	s.Citations = unmarshalStrings(citJSON)
	s.CompetitorCounts = unmarshalCounts(countsJSON)
	return &s, nil
}

func marshalCounts(counts map[string]int) (*string, error) {
	if counts == nil {
		return nil, nil
	}
	data, err := json.Marshal(counts)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func unmarshalCounts(raw *string) map[string]int {
	if raw == nil {
		return nil
	}
	var counts map[string]int
	if err := json.Unmarshal([]byte(*raw), &counts); err != nil {
		return nil
	}
	return counts
}
