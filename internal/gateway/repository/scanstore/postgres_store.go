package scanstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"scanagent/internal/scanflow"
)

// PostgresStore persists scan runs in Postgres; findings are stored as
// JSONB and recent findings reads are served from an LRU cache.
type PostgresStore struct {
	db         *sql.DB
	findings   *lru.Cache[string, []scanflow.AggregatedIssue]
	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	cache, err := lru.New[string, []scanflow.AggregatedIssue](256)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db, findings: cache}, nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) ensureSchema() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS scan_runs (
    id TEXT PRIMARY KEY,
    project_root TEXT NOT NULL,
    language TEXT NOT NULL,
    job_id TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    issues JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    finished_at TIMESTAMP WITH TIME ZONE
);
CREATE INDEX IF NOT EXISTS idx_scan_runs_created_at ON scan_runs(created_at);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	if rec == nil || strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("scan id is required")
	}
	if err := s.ensureSchema(); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	issues, err := json.Marshal(rec.Issues)
	if err != nil {
		return fmt.Errorf("encode issues: %w", err)
	}
	var finished *time.Time
	if !rec.FinishedAt.IsZero() {
		finished = &rec.FinishedAt
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO scan_runs (id, project_root, language, job_id, status, error, issues, created_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id)
DO UPDATE SET job_id=EXCLUDED.job_id, status=EXCLUDED.status, error=EXCLUDED.error,
              issues=EXCLUDED.issues, finished_at=EXCLUDED.finished_at
`, rec.ID, rec.ProjectRoot, rec.Language, rec.JobID, rec.Status, rec.Error, issues, rec.CreatedAt, finished)
	if err != nil {
		return err
	}
	s.findings.Remove(rec.ID)
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("scan id is required")
	}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	var (
		rec      Record
		issues   []byte
		finished sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, project_root, language, job_id, status, error, issues, created_at, finished_at
FROM scan_runs WHERE id=$1
`, id).Scan(&rec.ID, &rec.ProjectRoot, &rec.Language, &rec.JobID, &rec.Status, &rec.Error, &issues, &rec.CreatedAt, &finished)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		rec.FinishedAt = finished.Time
	}
	if len(issues) > 0 {
		if err := json.Unmarshal(issues, &rec.Issues); err != nil {
			return nil, fmt.Errorf("decode issues: %w", err)
		}
	}
	return &rec, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Record, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, project_root, language, job_id, status, error, created_at, finished_at
FROM scan_runs ORDER BY created_at DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var (
			rec      Record
			finished sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.ProjectRoot, &rec.Language, &rec.JobID, &rec.Status, &rec.Error, &rec.CreatedAt, &finished); err != nil {
			return nil, err
		}
		if finished.Valid {
			rec.FinishedAt = finished.Time
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Findings(ctx context.Context, id string) ([]scanflow.AggregatedIssue, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	id = strings.TrimSpace(id)
	if cached, ok := s.findings.Get(id); ok {
		return cached, nil
	}
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.findings.Add(id, rec.Issues)
	return rec.Issues, nil
}
