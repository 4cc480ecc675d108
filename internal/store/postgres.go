package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/partsight/inspect-cli/internal/db"
	"github.com/partsight/inspect-cli/internal/model"
	"github.com/partsight/inspect-cli/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"get_analysis":  `SELECT payload FROM analyses WHERE id = $1`,
	"save_job":      `INSERT INTO batch_jobs (id, status, payload, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO UPDATE SET status = $2, payload = $3, updated_at = $5`,
	"get_job":       `SELECT payload FROM batch_jobs WHERE id = $1`,
	"get_history":   `SELECT payload FROM model_history WHERE id = 1`,
	"save_history":  `INSERT INTO model_history (id, payload, updated_at) VALUES (1, $1, $2) ON CONFLICT (id) DO UPDATE SET payload = $1, updated_at = $2`,
	"save_feedback": `INSERT INTO feedback (id, analysis_id, type, payload, created_at) VALUES ($1, $2, $3, $4, $5)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	part_type  TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'pending',
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS batch_jobs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'pending',
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS feedback (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	analysis_id TEXT NOT NULL,
	type        TEXT NOT NULL,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS model_history (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dead_letter_queue (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	job_id         TEXT NOT NULL,
	item           JSONB NOT NULL,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	attempts       INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_failed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);
CREATE INDEX IF NOT EXISTS idx_analyses_part_type ON analyses(part_type);
CREATE INDEX IF NOT EXISTS idx_batch_jobs_status ON batch_jobs(status);
CREATE INDEX IF NOT EXISTS idx_feedback_analysis_id ON feedback(analysis_id);
CREATE INDEX IF NOT EXISTS idx_dlq_job_id ON dead_letter_queue(job_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, a *model.Analysis) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	payload, err := json.Marshal(a)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal analysis")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, part_type, status, payload, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET part_type = $2, status = $3, payload = $4, updated_at = $6`,
		a.ID, a.PartType, string(a.Status), payload, a.CreatedAt, a.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: save analysis %s", a.ID)
}

// SaveAnalyses bulk-loads a batch's analyses via the COPY protocol.
func (s *PostgresStore) SaveAnalyses(ctx context.Context, analyses []model.Analysis) error {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(analyses))
	for i := range analyses {
		a := &analyses[i]
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		a.UpdatedAt = now

		payload, err := json.Marshal(a)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal analysis")
		}
		rows = append(rows, []any{a.ID, a.PartType, string(a.Status), payload, a.CreatedAt, a.UpdatedAt})
	}

	_, err := db.CopyInto(ctx, s.pool, "analyses",
		[]string{"id", "part_type", "status", "payload", "created_at", "updated_at"}, rows)
	return eris.Wrap(err, "postgres: bulk save analyses")
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM analyses WHERE id = $1`, id,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("analysis not found: %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get analysis %s", id)
	}

	var a model.Analysis
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal analysis")
	}
	return &a, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error) {
	query := `SELECT payload FROM analyses WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.PartType != "" {
		query += fmt.Sprintf(` AND part_type = $%d`, argIdx)
		args = append(args, filter.PartType)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var analyses []model.Analysis
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		var a model.Analysis
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal analysis")
		}
		analyses = append(analyses, a)
	}
	return analyses, eris.Wrap(rows.Err(), "postgres: list analyses iterate")
}

func (s *PostgresStore) SaveJob(ctx context.Context, job model.BatchJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal job")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO batch_jobs (id, status, payload, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET status = $2, payload = $3, updated_at = $5`,
		job.ID, string(job.Status), payload, job.CreatedAt, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save job %s", job.ID)
}

func (s *PostgresStore) GetJob(ctx context.Context, id string) (*model.BatchJob, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM batch_jobs WHERE id = $1`, id,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("job not found: %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get job %s", id)
	}

	var job model.BatchJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal job")
	}
	return &job, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.BatchJob, error) {
	query := `SELECT payload FROM batch_jobs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.BatchJob
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		var job model.BatchJob
		if err := json.Unmarshal(payload, &job); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal job")
		}
		jobs = append(jobs, job)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) SaveFeedback(ctx context.Context, fb model.AnalysisFeedback) error {
	if fb.ID == "" {
		fb.ID = uuid.New().String()
	}
	payload, err := json.Marshal(fb)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal feedback")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO feedback (id, analysis_id, type, payload, created_at) VALUES ($1, $2, $3, $4, $5)`,
		fb.ID, fb.AnalysisID, string(fb.Type), payload, fb.CreatedAt,
	)
	return eris.Wrap(err, "postgres: save feedback")
}

func (s *PostgresStore) ListFeedback(ctx context.Context, analysisID string, limit int) ([]model.AnalysisFeedback, error) {
	query := `SELECT payload FROM feedback WHERE true`
	args := []any{}
	argIdx := 1

	if analysisID != "" {
		query += fmt.Sprintf(` AND analysis_id = $%d`, argIdx)
		args = append(args, analysisID)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list feedback")
	}
	defer rows.Close()

	var out []model.AnalysisFeedback
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan feedback")
		}
		var fb model.AnalysisFeedback
		if err := json.Unmarshal(payload, &fb); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal feedback")
		}
		out = append(out, fb)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list feedback iterate")
}

func (s *PostgresStore) GetHistory(ctx context.Context) (model.ModelPerformanceHistory, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM model_history WHERE id = 1`).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ModelPerformanceHistory{}, nil
		}
		return model.ModelPerformanceHistory{}, eris.Wrap(err, "postgres: get history")
	}

	var h model.ModelPerformanceHistory
	if err := json.Unmarshal(payload, &h); err != nil {
		return model.ModelPerformanceHistory{}, eris.Wrap(err, "postgres: unmarshal history")
	}
	return h, nil
}

func (s *PostgresStore) SaveHistory(ctx context.Context, h model.ModelPerformanceHistory) error {
	payload, err := json.Marshal(h)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal history")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO model_history (id, payload, updated_at) VALUES (1, $1, $2)
		 ON CONFLICT (id) DO UPDATE SET payload = $1, updated_at = $2`,
		payload, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: save history")
}

func (s *PostgresStore) EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	itemJSON, err := json.Marshal(entry.Item)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal dlq item")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO dead_letter_queue (id, job_id, item, error, error_type, attempts, created_at, last_failed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET error = $4, error_type = $5, attempts = $6, last_failed_at = $8`,
		entry.ID, entry.JobID, itemJSON, entry.Error, entry.ErrorType,
		entry.Attempts, entry.CreatedAt, entry.LastFailedAt,
	)
	return eris.Wrap(err, "postgres: enqueue dlq")
}

func (s *PostgresStore) ListDLQ(ctx context.Context, jobID string, limit int) ([]resilience.DLQEntry, error) {
	query := `SELECT id, job_id, item, error, error_type, attempts, created_at, last_failed_at
	          FROM dead_letter_queue WHERE true`
	args := []any{}
	argIdx := 1

	if jobID != "" {
		query += fmt.Sprintf(` AND job_id = $%d`, argIdx)
		args = append(args, jobID)
		argIdx++
	}
	query += ` ORDER BY created_at ASC`

	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list dlq")
	}
	defer rows.Close()

	var entries []resilience.DLQEntry
	for rows.Next() {
		var e resilience.DLQEntry
		var itemJSON []byte
		if err := rows.Scan(&e.ID, &e.JobID, &itemJSON, &e.Error, &e.ErrorType,
			&e.Attempts, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dlq entry")
		}
		if err := json.Unmarshal(itemJSON, &e.Item); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal dlq item")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list dlq iterate")
}

func (s *PostgresStore) RemoveDLQ(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM dead_letter_queue WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: remove dlq %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("dlq_entry not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) CountDLQ(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM dead_letter_queue`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count dlq")
}
