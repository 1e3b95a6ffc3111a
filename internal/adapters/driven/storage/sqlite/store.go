package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-graph/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-graph/internal/logger"
)

// Store is a SQLite database exposing the crawl output ports through
// wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens crawl.db in dataDir, creating it when needed.
// If dataDir is empty, defaults to ~/.sercha-graph/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-graph", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "crawl.db")

	// WAL lets readers run while workers write
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Sink returns an OutputSink backed by this store.
func (s *Store) Sink() driven.OutputSink {
	return &documentSink{store: s}
}

// FailureLog returns a FailureLog backed by this store.
func (s *Store) FailureLog() driven.FailureLog {
	return &failureLog{store: s}
}

// RunStore returns a RunStore backed by this store.
func (s *Store) RunStore() driven.RunStore {
	return &runStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Documents ====================

// StoredDocument is a record read back from the documents table.
type StoredDocument struct {
	Meta   domain.RecordMetadata
	Record domain.OutputRecord
}

// documentSink implements driven.OutputSink.
type documentSink struct {
	store *Store
}

var _ driven.OutputSink = (*documentSink)(nil)

// Store upserts a record under its document id.
func (s *documentSink) Store(ctx context.Context, meta domain.RecordMetadata, record domain.OutputRecord) error {
	fields, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshalling record: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, run_id, label, kind, family, url, fields, crawled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			run_id = excluded.run_id,
			label = excluded.label,
			kind = excluded.kind,
			family = excluded.family,
			url = excluded.url,
			fields = excluded.fields,
			crawled_at = excluded.crawled_at
	`, meta.DocumentID, meta.RunID, meta.Label, string(meta.Kind), string(meta.Family),
		nullString(record.String(domain.FieldURL)), string(fields), meta.CrawledAt.UTC())
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// Document returns a stored record by document id.
func (s *Store) Document(ctx context.Context, id string) (*StoredDocument, error) {
	var (
		doc    StoredDocument
		kind   string
		family string
		fields string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, run_id, label, kind, family, fields, crawled_at
		FROM documents WHERE id = ?
	`, id).Scan(&doc.Meta.DocumentID, &doc.Meta.RunID, &doc.Meta.Label, &kind, &family, &fields, &doc.Meta.CrawledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	doc.Meta.Kind = domain.ResourceKind(kind)
	doc.Meta.Family = domain.ResourceFamily(family)
	if err := json.Unmarshal([]byte(fields), &doc.Record); err != nil {
		return nil, fmt.Errorf("unmarshalling record: %w", err)
	}
	return &doc, nil
}

// CountDocuments returns the number of stored records, optionally for one run.
func (s *Store) CountDocuments(ctx context.Context, runID string) (int, error) {
	query := "SELECT COUNT(*) FROM documents"
	var args []any
	if runID != "" {
		query += " WHERE run_id = ?"
		args = append(args, runID)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// ==================== Failures ====================

// failureLog implements driven.FailureLog.
type failureLog struct {
	store *Store
}

var _ driven.FailureLog = (*failureLog)(nil)

// Record appends a failure. Write errors are logged, never returned.
func (f *failureLog) Record(ctx context.Context, kind domain.ErrorKind, label string, cause error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := f.store.db.ExecContext(ctx, `
		INSERT INTO failures (run_id, kind, label, message, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`, domain.RunIDFrom(ctx), string(kind), label, msg, time.Now().UTC())
	if err != nil {
		logger.Warn("recording failure for %s: %v", label, err)
	}
}

// ==================== Runs ====================

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// SaveRun creates or updates a run.
func (r *runStore) SaveRun(ctx context.Context, run domain.CrawlRun) error {
	var finished any
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.UTC()
	}
	st := run.Stats
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO crawl_runs (id, started_at, finished_at, begun, prepared, evaluated, finished,
			discarded, access_exceptions, exceptions, done, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			begun = excluded.begun,
			prepared = excluded.prepared,
			evaluated = excluded.evaluated,
			finished = excluded.finished,
			discarded = excluded.discarded,
			access_exceptions = excluded.access_exceptions,
			exceptions = excluded.exceptions,
			done = excluded.done,
			error = excluded.error
	`, run.ID, run.StartedAt.UTC(), finished, st.Begun, st.Prepared, st.Evaluated, st.Finished,
		st.Discarded, st.AccessExceptions, st.Exceptions, st.Done, nullString(run.Err))
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// LastRun returns the most recently started run.
func (r *runStore) LastRun(ctx context.Context) (*domain.CrawlRun, error) {
	var (
		run      domain.CrawlRun
		finished sql.NullTime
		runErr   sql.NullString
	)
	err := r.store.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, begun, prepared, evaluated, finished,
			discarded, access_exceptions, exceptions, done, error
		FROM crawl_runs ORDER BY started_at DESC LIMIT 1
	`).Scan(&run.ID, &run.StartedAt, &finished, &run.Stats.Begun, &run.Stats.Prepared,
		&run.Stats.Evaluated, &run.Stats.Finished, &run.Stats.Discarded,
		&run.Stats.AccessExceptions, &run.Stats.Exceptions, &run.Stats.Done, &runErr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting last run: %w", err)
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	run.Err = runErr.String
	return &run, nil
}

// Failures returns the failures recorded for a run, oldest first.
func (r *runStore) Failures(ctx context.Context, runID string) ([]domain.Failure, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT run_id, kind, label, message, recorded_at
		FROM failures WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing failures: %w", err)
	}
	defer rows.Close()

	var out []domain.Failure
	for rows.Next() {
		var (
			f    domain.Failure
			kind string
		)
		if err := rows.Scan(&f.RunID, &kind, &f.Label, &f.Message, &f.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning failure: %w", err)
		}
		f.Kind = domain.ErrorKind(kind)
		out = append(out, f)
	}
	return out, rows.Err()
}

// nullString returns nil for an empty string so the column stays NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
