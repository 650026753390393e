package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    brand_name TEXT NOT NULL,
    domain TEXT NOT NULL,
    country TEXT,
    language TEXT,
    competitors TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS prompts (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id),
    prompt_text TEXT NOT NULL,
    source TEXT NOT NULL DEFAULT 'user',
    is_active INTEGER DEFAULT 1,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_batches (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id),
    status TEXT NOT NULL CHECK(status IN ('running', 'done', 'partial')),
    prompt_count INTEGER DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now')),
    completed_at TEXT
);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id),
    prompt_id TEXT NOT NULL REFERENCES prompts(id),
    run_batch_id TEXT REFERENCES run_batches(id),
    provider TEXT NOT NULL,
    model TEXT,
    status TEXT NOT NULL CHECK(status IN ('pending', 'running', 'done', 'error')),
    error_message TEXT,
    created_at TEXT DEFAULT (datetime('now')),
    completed_at TEXT
);

CREATE TABLE IF NOT EXISTS run_outputs_raw (
    run_id TEXT PRIMARY KEY REFERENCES runs(id),
    provider TEXT NOT NULL,
    model_used TEXT,
    raw_text TEXT NOT NULL,
    citations TEXT,
    tokens_input INTEGER,
    tokens_output INTEGER,
    latency_ms INTEGER DEFAULT 0,
    finish_reason TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_scores (
    run_id TEXT PRIMARY KEY REFERENCES runs(id),
    mention_score INTEGER NOT NULL,
    citation_score INTEGER NOT NULL,
    sentiment_score REAL NOT NULL,
    sentiment_label TEXT NOT NULL CHECK(sentiment_label IN ('positive', 'neutral', 'negative')),
    share_of_voice REAL NOT NULL,
    risk_flags TEXT,
    citations TEXT,
    brand_count INTEGER DEFAULT 0,
    competitor_counts TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS prompt_suggestions (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id),
    prompt_text TEXT NOT NULL,
    source TEXT NOT NULL,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS brand_pages (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id),
    url TEXT NOT NULL,
    title TEXT,
    content TEXT NOT NULL,
    fetched_at TEXT DEFAULT (datetime('now')),
    UNIQUE(project_id, url)
);

CREATE INDEX IF NOT EXISTS idx_prompts_project ON prompts(project_id);
CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project_id, created_at);
CREATE INDEX IF NOT EXISTS idx_runs_batch ON runs(run_batch_id);
CREATE INDEX IF NOT EXISTS idx_runs_prompt_provider ON runs(prompt_id, provider);
CREATE INDEX IF NOT EXISTS idx_suggestions_project ON prompt_suggestions(project_id);
CREATE INDEX IF NOT EXISTS idx_brand_pages_project ON brand_pages(project_id);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
