// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

const (
	// SchemaVersion tracks the journal schema for future migrations.
	SchemaVersion = 1
)

// SQLite schema for the run journal.
const Schema = `
-- Metadata table for schema version
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Runs table: one row per provisioning run
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,                  -- run UUID
    started_at INTEGER NOT NULL,          -- Unix timestamp
    finished_at INTEGER NOT NULL,         -- Unix timestamp
    platform TEXT NOT NULL,               -- e.g. linux/amd64 (apt, sudo)
    dry_run INTEGER NOT NULL DEFAULT 0,
    exit_code INTEGER NOT NULL,
    fatal TEXT NOT NULL DEFAULT ''        -- bootstrap error, empty when none
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

-- Run results table: one row per tool or step outcome, in run order
CREATE TABLE IF NOT EXISTS run_results (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    tool TEXT NOT NULL,
    kind TEXT NOT NULL,
    status TEXT NOT NULL,                 -- installed, present, skipped, failed, missing
    path TEXT NOT NULL DEFAULT '',
    detail TEXT NOT NULL DEFAULT '',
    error TEXT NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, position),
    FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
) WITHOUT ROWID;

CREATE INDEX IF NOT EXISTS idx_run_results_run_id ON run_results(run_id);
CREATE INDEX IF NOT EXISTS idx_run_results_status ON run_results(status);
`

// InitMetadata initializes the metadata table with default values.
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
INSERT OR IGNORE INTO metadata (key, value) VALUES ('created_at', strftime('%s', 'now'));
`
