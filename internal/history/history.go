// Package history keeps a SQLite ledger of pipeline runs and the per-component
// documentation outcomes each run produced.
package history

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
)

// Run is one recorded pipeline run.
type Run struct {
	ID                 string
	Start              time.Time
	End                time.Time
	Outcome            string
	Desired            int
	Added              int
	RolledBack         int
	Registered         int
	Workspaces         int
	BuildFailures      int
	Documented         int
	Missing            int
	RelocationFailures int
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration { return r.End.Sub(r.Start) }

// ComponentRecord is the outcome of one component in a run.
type ComponentRecord struct {
	Repository string
	Workspace  string
	Component  string
	URL        string // empty when missing
	Present    bool
}

// ErrRunNotFound is returned by Run for unknown ids.
var ErrRunNotFound = stderrors.New("run not found")

// SQLiteStore persists runs in SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the ledger. Use ":memory:" for an in-memory database.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storeError("open sqlite database", err).WithContext("path", path).Build()
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, storeError("initialize schema", err).WithContext("path", path).Build()
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		desired INTEGER NOT NULL,
		added INTEGER NOT NULL,
		rolled_back INTEGER NOT NULL,
		registered INTEGER NOT NULL,
		workspaces INTEGER NOT NULL,
		build_failures INTEGER NOT NULL,
		documented INTEGER NOT NULL,
		missing INTEGER NOT NULL,
		relocation_failures INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE TABLE IF NOT EXISTS outcomes (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		repository TEXT NOT NULL,
		workspace TEXT NOT NULL,
		component TEXT NOT NULL,
		url TEXT,
		present INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_component ON outcomes(repository, component);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores a run and its component outcomes in one transaction.
func (s *SQLiteStore) Record(ctx context.Context, run Run, components []ComponentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("begin transaction", err).Build()
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (id, started_at, finished_at, outcome, desired, added,
		rolled_back, registered, workspaces, build_failures, documented, missing, relocation_failures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Start.UnixMilli(), run.End.UnixMilli(), run.Outcome, run.Desired, run.Added,
		run.RolledBack, run.Registered, run.Workspaces, run.BuildFailures, run.Documented, run.Missing,
		run.RelocationFailures)
	if err != nil {
		return storeError("insert run", err).WithContext("run_id", run.ID).Build()
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO outcomes (run_id, repository, workspace, component, url, present) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return storeError("prepare outcome insert", err).Build()
	}
	defer stmt.Close()
	for _, c := range components {
		var url any
		if c.Present {
			url = c.URL
		}
		if _, err := stmt.ExecContext(ctx, run.ID, c.Repository, c.Workspace, c.Component, url, c.Present); err != nil {
			return storeError("insert outcome", err).WithContext("run_id", run.ID).Build()
		}
	}

	if err := tx.Commit(); err != nil {
		return storeError("commit run", err).WithContext("run_id", run.ID).Build()
	}
	return nil
}

const runColumns = `id, started_at, finished_at, outcome, desired, added, rolled_back, registered,
	workspaces, build_failures, documented, missing, relocation_failures`

// Recent returns up to limit runs, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, storeError("query runs", err).Build()
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate runs", err).Build()
	}
	return runs, nil
}

// Run returns a single run by id.
func (s *SQLiteStore) Run(ctx context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	r, err := scanRun(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return r, err
}

// Components returns the outcomes recorded for a run, ordered by repository and component.
func (s *SQLiteStore) Components(ctx context.Context, runID string) ([]ComponentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT repository, workspace, component, COALESCE(url, ''), present FROM outcomes
		WHERE run_id = ? ORDER BY repository, component`, runID)
	if err != nil {
		return nil, storeError("query outcomes", err).Build()
	}
	defer rows.Close()

	var out []ComponentRecord
	for rows.Next() {
		var c ComponentRecord
		if err := rows.Scan(&c.Repository, &c.Workspace, &c.Component, &c.URL, &c.Present); err != nil {
			return nil, storeError("scan outcome", err).Build()
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate outcomes", err).Build()
	}
	return out, nil
}

// LastDocumented returns when repository/component last had documentation, if ever.
func (s *SQLiteStore) LastDocumented(ctx context.Context, repository, component string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ms sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(r.started_at) FROM outcomes o JOIN runs r ON r.id = o.run_id
		WHERE o.repository = ? AND o.component = ? AND o.present = 1`, repository, component).Scan(&ms)
	if err != nil {
		return time.Time{}, false, storeError("query last documented", err).Build()
	}
	if !ms.Valid {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms.Int64), true, nil
}

// Prune deletes runs started before cutoff together with their outcomes.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := cutoff.UnixMilli()
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM outcomes WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)", ms); err != nil {
		return 0, storeError("prune outcomes", err).Build()
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", ms)
	if err != nil {
		return 0, storeError("prune runs", err).Build()
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r             Run
		start, finish int64
	)
	err := sc.Scan(&r.ID, &start, &finish, &r.Outcome, &r.Desired, &r.Added, &r.RolledBack, &r.Registered,
		&r.Workspaces, &r.BuildFailures, &r.Documented, &r.Missing, &r.RelocationFailures)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, storeError("scan run", err).Build()
	}
	r.Start = time.UnixMilli(start)
	r.End = time.UnixMilli(finish)
	return r, nil
}

func storeError(op string, err error) *errors.ErrorBuilder {
	return errors.NewError(errors.CategoryHistory, fmt.Sprintf("history: %s", op)).WithCause(err)
}
