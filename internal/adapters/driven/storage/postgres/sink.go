package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
)

const schema = `
CREATE TABLE IF NOT EXISTS graph_documents (
  id text PRIMARY KEY,
  run_id text NOT NULL,
  label text NOT NULL,
  kind text NOT NULL,
  family text NOT NULL,
  url text,
  roles text[] NOT NULL DEFAULT '{}',
  fields jsonb NOT NULL,
  crawled_at timestamptz NOT NULL,
  updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS graph_documents_run_id ON graph_documents (run_id);
`

const upsert = `
INSERT INTO graph_documents (id, run_id, label, kind, family, url, roles, fields, crawled_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
  run_id = EXCLUDED.run_id,
  label = EXCLUDED.label,
  kind = EXCLUDED.kind,
  family = EXCLUDED.family,
  url = EXCLUDED.url,
  roles = EXCLUDED.roles,
  fields = EXCLUDED.fields,
  crawled_at = EXCLUDED.crawled_at,
  updated_at = now()
`

// execer is the subset of *pgxpool.Pool the sink needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Sink implements driven.OutputSink over a connection pool.
type Sink struct {
	db    execer
	close func()
}

var _ driven.OutputSink = (*Sink)(nil)

// Open connects to dsn and ensures the documents table exists.
func Open(ctx context.Context, dsn string) (*Sink, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", domain.ErrInvalidInput)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	s := &Sink{db: pool, close: pool.Close}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func newSink(db execer) *Sink {
	return &Sink{db: db, close: func() {}}
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Sink) Close() {
	s.close()
}

// Store upserts a record under its document id.
func (s *Sink) Store(ctx context.Context, meta domain.RecordMetadata, record domain.OutputRecord) error {
	fields, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshalling record: %w", err)
	}

	_, err = s.db.Exec(ctx, upsert,
		meta.DocumentID, meta.RunID, meta.Label, string(meta.Kind), string(meta.Family),
		nullable(record.String(domain.FieldURL)), roles(record), fields, meta.CrawledAt)
	if err != nil {
		return fmt.Errorf("saving document %s: %w", meta.Label, err)
	}
	return nil
}

// roles extracts the role tokens so they can be indexed outside the jsonb.
func roles(record domain.OutputRecord) []string {
	switch v := record[domain.FieldRoles].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, r := range v {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
