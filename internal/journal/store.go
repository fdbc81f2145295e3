package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"archivist/internal/outcome"
)

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("journal: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// RecordRun stores a run and its items in a single transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, items []Item) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("journal: run id is empty")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (
            id, source, started_at, finished_at, dest_dir, index_path,
            status, exit_code, requested, archived, failed, error_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Source,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.DestDir,
		nullableString(run.IndexPath),
		run.Status.String(),
		run.Status.ExitCode(),
		run.Requested,
		run.Archived,
		run.Failed,
		nullableString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_items (run_id, identifier, filename, result, detail) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare item insert: %w", err)
	}
	defer stmt.Close()
	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, run.ID, item.Identifier, nullableString(item.Filename), item.Result, nullableString(item.Detail)); err != nil {
			return fmt.Errorf("insert run item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = `id, source, started_at, finished_at, dest_dir, index_path,
    status, requested, archived, failed, error_message`

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// FindRun returns the run whose ID starts with prefix, or nil when none
// matches. An ambiguous prefix is an error.
func (s *Store) FindRun(ctx context.Context, prefix string) (*Run, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, errors.New("journal: run id is empty")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("journal: run id prefix %q is ambiguous", prefix)
	}
}

// RunItems returns the items recorded for a run in insertion order.
func (s *Store) RunItems(ctx context.Context, runID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT identifier, filename, result, detail FROM run_items WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item     Item
			filename sql.NullString
			detail   sql.NullString
		)
		if err := rows.Scan(&item.Identifier, &filename, &item.Result, &detail); err != nil {
			return nil, fmt.Errorf("scan run item: %w", err)
		}
		item.Filename = filename.String
		item.Detail = detail.String
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		startedRaw  string
		finishedRaw string
		indexPath   sql.NullString
		status      string
		errMessage  sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Source,
		&startedRaw,
		&finishedRaw,
		&run.DestDir,
		&indexPath,
		&status,
		&run.Requested,
		&run.Archived,
		&run.Failed,
		&errMessage,
	); err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = parseTime(startedRaw)
	run.FinishedAt = parseTime(finishedRaw)
	run.IndexPath = indexPath.String
	run.Status = outcome.ParseStatus(status)
	run.Error = errMessage.String
	return &run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
