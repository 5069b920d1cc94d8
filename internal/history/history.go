// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/reconrig/internal/report"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound means no run matched the requested id or prefix.
	ErrNotFound = errors.New("run not found")
	// ErrAmbiguous means an id prefix matched more than one run.
	ErrAmbiguous = errors.New("run id prefix is ambiguous")
)

// =============================================================================
// STORE
// =============================================================================

// Store is the run journal: every provisioning run and its per-tool
// results, kept in a local SQLite file. Journal trouble should never
// block an install, so callers treat Open and RecordRun errors as
// warnings.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (and if needed creates) the journal at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the journal file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the journal.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// =============================================================================
// WRITING
// =============================================================================

// RecordRun writes one run and all of its results in a single
// transaction.
func (s *Store) RecordRun(run *report.Run, exitCode int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, started_at, finished_at, platform, dry_run, exit_code, fatal)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.Unix(), run.FinishedAt.Unix(), run.Platform, run.DryRun, exitCode, run.Fatal)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	for i, res := range run.Results {
		_, err := tx.Exec(`
			INSERT INTO run_results (run_id, position, tool, kind, status, path, detail, error, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, i, res.Tool, res.Kind, res.Status.String(), res.Path, res.Detail, res.Err, res.Duration.Milliseconds())
		if err != nil {
			return fmt.Errorf("failed to record result for %s: %w", res.Tool, err)
		}
	}

	return tx.Commit()
}

// =============================================================================
// READING
// =============================================================================

// RunSummary is one journal row with its result tallies.
type RunSummary struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Platform   string        `json:"platform"`
	DryRun     bool          `json:"dry_run,omitempty"`
	ExitCode   int           `json:"exit_code"`
	Fatal      string        `json:"fatal,omitempty"`
	Counts     report.Counts `json:"counts"`
}

// ListRuns returns the most recent runs, newest first. limit <= 0 means
// a default page of 20.
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, platform, dry_run, exit_code, fatal
		FROM runs
		ORDER BY started_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var sum RunSummary
		var started, finished int64
		if err := rows.Scan(&sum.ID, &started, &finished, &sum.Platform, &sum.DryRun, &sum.ExitCode, &sum.Fatal); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		sum.StartedAt = time.Unix(started, 0).UTC()
		sum.FinishedAt = time.Unix(finished, 0).UTC()
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range summaries {
		counts, err := s.countsFor(summaries[i].ID)
		if err != nil {
			return nil, err
		}
		summaries[i].Counts = counts
	}

	return summaries, nil
}

// countsFor tallies one run's results by status.
func (s *Store) countsFor(runID string) (report.Counts, error) {
	var c report.Counts

	rows, err := s.db.Query(`
		SELECT status, COUNT(*) FROM run_results WHERE run_id = ? GROUP BY status
	`, runID)
	if err != nil {
		return c, fmt.Errorf("failed to count results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return c, err
		}
		switch report.ParseStatus(status) {
		case report.StatusInstalled:
			c.Installed += n
		case report.StatusPresent:
			c.Present += n
		case report.StatusSkipped:
			c.Skipped += n
		case report.StatusFailed:
			c.Failed += n
		case report.StatusMissing:
			c.Missing += n
		}
	}
	return c, rows.Err()
}

// GetRun loads one run by full id or unique prefix, rebuilding the
// report.Run and the exit code it finished with.
func (s *Store) GetRun(idPrefix string) (*report.Run, int, error) {
	if idPrefix == "" {
		return nil, 0, ErrNotFound
	}

	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, platform, dry_run, exit_code, fatal
		FROM runs
		WHERE id LIKE ? || '%'
		ORDER BY started_at DESC
		LIMIT 2
	`, idPrefix)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to look up run: %w", err)
	}
	defer rows.Close()

	var matches []*report.Run
	var exitCodes []int
	for rows.Next() {
		run := &report.Run{}
		var started, finished int64
		var exitCode int
		if err := rows.Scan(&run.ID, &started, &finished, &run.Platform, &run.DryRun, &exitCode, &run.Fatal); err != nil {
			return nil, 0, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = time.Unix(started, 0).UTC()
		run.FinishedAt = time.Unix(finished, 0).UTC()
		matches = append(matches, run)
		exitCodes = append(exitCodes, exitCode)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	switch len(matches) {
	case 0:
		return nil, 0, ErrNotFound
	case 1:
		// fall through
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrAmbiguous, idPrefix)
	}

	run, exitCode := matches[0], exitCodes[0]
	if err := s.loadResults(run); err != nil {
		return nil, 0, err
	}
	return run, exitCode, nil
}

// loadResults fills run.Results in recorded order.
func (s *Store) loadResults(run *report.Run) error {
	rows, err := s.db.Query(`
		SELECT tool, kind, status, path, detail, error, duration_ms
		FROM run_results
		WHERE run_id = ?
		ORDER BY position
	`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var res report.Result
		var status string
		var durationMS int64
		if err := rows.Scan(&res.Tool, &res.Kind, &status, &res.Path, &res.Detail, &res.Err, &durationMS); err != nil {
			return fmt.Errorf("failed to scan result: %w", err)
		}
		res.Status = report.ParseStatus(status)
		res.Duration = time.Duration(durationMS) * time.Millisecond
		run.Add(res)
	}
	return rows.Err()
}
