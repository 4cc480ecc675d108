package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/partsight/inspect-cli/internal/model"
	"github.com/partsight/inspect-cli/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id         TEXT PRIMARY KEY,
	part_type  TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'pending',
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS batch_jobs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'pending',
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS feedback (
	id          TEXT PRIMARY KEY,
	analysis_id TEXT NOT NULL,
	type        TEXT NOT NULL,
	payload     TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS model_history (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	payload    TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dead_letter_queue (
	id             TEXT PRIMARY KEY,
	job_id         TEXT NOT NULL,
	item           TEXT NOT NULL,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	attempts       INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	last_failed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);
CREATE INDEX IF NOT EXISTS idx_analyses_part_type ON analyses(part_type);
CREATE INDEX IF NOT EXISTS idx_batch_jobs_status ON batch_jobs(status);
CREATE INDEX IF NOT EXISTS idx_feedback_analysis_id ON feedback(analysis_id);
CREATE INDEX IF NOT EXISTS idx_dlq_job_id ON dead_letter_queue(job_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, a *model.Analysis) error {
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
		return eris.Wrap(err, "sqlite: marshal analysis")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, part_type, status, payload, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET part_type = ?2, status = ?3, payload = ?4, updated_at = ?6`,
		a.ID, a.PartType, string(a.Status), string(payload), a.CreatedAt, a.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: save analysis %s", a.ID)
}

// SaveAnalyses inserts each analysis in turn. SQLite has no COPY protocol, so
// a loop inside one transaction is as fast as it gets.
func (s *SQLiteStore) SaveAnalyses(ctx context.Context, analyses []model.Analysis) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin bulk save")
	}
	defer tx.Rollback()

	for i := range analyses {
		a := &analyses[i]
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
			return eris.Wrap(err, "sqlite: marshal analysis")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO analyses (id, part_type, status, payload, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET part_type = ?2, status = ?3, payload = ?4, updated_at = ?6`,
			a.ID, a.PartType, string(a.Status), string(payload), a.CreatedAt, a.UpdatedAt,
		); err != nil {
			return eris.Wrapf(err, "sqlite: bulk save analysis %s", a.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit bulk save")
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM analyses WHERE id = ?`, id,
	)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, eris.Errorf("analysis not found: %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", id)
	}

	var a model.Analysis
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal analysis")
	}
	return &a, nil
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error) {
	query := `SELECT payload FROM analyses WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.PartType != "" {
		query += ` AND part_type = ?`
		args = append(args, filter.PartType)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close()

	var analyses []model.Analysis
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		var a model.Analysis
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal analysis")
		}
		analyses = append(analyses, a)
	}
	return analyses, eris.Wrap(rows.Err(), "sqlite: list analyses iterate")
}

func (s *SQLiteStore) SaveJob(ctx context.Context, job model.BatchJob) error {
	now := time.Now().UTC()
	payload, err := json.Marshal(job)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal job")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO batch_jobs (id, status, payload, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET status = ?2, payload = ?3, updated_at = ?5`,
		job.ID, string(job.Status), string(payload), job.CreatedAt, now,
	)
	return eris.Wrapf(err, "sqlite: save job %s", job.ID)
}

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.BatchJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM batch_jobs WHERE id = ?`, id,
	)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, eris.Errorf("job not found: %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get job %s", id)
	}

	var job model.BatchJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal job")
	}
	return &job, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.BatchJob, error) {
	query := `SELECT payload FROM batch_jobs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.BatchJob
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		var job model.BatchJob
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal job")
		}
		jobs = append(jobs, job)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) SaveFeedback(ctx context.Context, fb model.AnalysisFeedback) error {
	if fb.ID == "" {
		fb.ID = uuid.New().String()
	}
	payload, err := json.Marshal(fb)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal feedback")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, analysis_id, type, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		fb.ID, fb.AnalysisID, string(fb.Type), string(payload), fb.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: save feedback")
}

func (s *SQLiteStore) ListFeedback(ctx context.Context, analysisID string, limit int) ([]model.AnalysisFeedback, error) {
	query := `SELECT payload FROM feedback WHERE 1=1`
	var args []any

	if analysisID != "" {
		query += ` AND analysis_id = ?`
		args = append(args, analysisID)
	}
	query += ` ORDER BY created_at DESC`

	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list feedback")
	}
	defer rows.Close()

	var out []model.AnalysisFeedback
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan feedback")
		}
		var fb model.AnalysisFeedback
		if err := json.Unmarshal([]byte(payload), &fb); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal feedback")
		}
		out = append(out, fb)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list feedback iterate")
}

func (s *SQLiteStore) GetHistory(ctx context.Context) (model.ModelPerformanceHistory, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM model_history WHERE id = 1`)

	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		// No feedback recorded yet; callers treat the zero value as "no data".
		return model.ModelPerformanceHistory{}, nil
	}
	if err != nil {
		return model.ModelPerformanceHistory{}, eris.Wrap(err, "sqlite: get history")
	}

	var h model.ModelPerformanceHistory
	if err := json.Unmarshal([]byte(payload), &h); err != nil {
		return model.ModelPerformanceHistory{}, eris.Wrap(err, "sqlite: unmarshal history")
	}
	return h, nil
}

func (s *SQLiteStore) SaveHistory(ctx context.Context, h model.ModelPerformanceHistory) error {
	payload, err := json.Marshal(h)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal history")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO model_history (id, payload, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET payload = ?1, updated_at = ?2`,
		string(payload), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save history")
}

func (s *SQLiteStore) EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	itemJSON, err := json.Marshal(entry.Item)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal dlq item")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dead_letter_queue (id, job_id, item, error, error_type, attempts, created_at, last_failed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET error = ?4, error_type = ?5, attempts = ?6, last_failed_at = ?8`,
		entry.ID, entry.JobID, string(itemJSON), entry.Error, entry.ErrorType,
		entry.Attempts, entry.CreatedAt, entry.LastFailedAt,
	)
	return eris.Wrap(err, "sqlite: enqueue dlq")
}

func (s *SQLiteStore) ListDLQ(ctx context.Context, jobID string, limit int) ([]resilience.DLQEntry, error) {
	query := `SELECT id, job_id, item, error, error_type, attempts, created_at, last_failed_at
	          FROM dead_letter_queue WHERE 1=1`
	var args []any

	if jobID != "" {
		query += ` AND job_id = ?`
		args = append(args, jobID)
	}
	query += ` ORDER BY created_at ASC`

	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list dlq")
	}
	defer rows.Close()

	var entries []resilience.DLQEntry
	for rows.Next() {
		var e resilience.DLQEntry
		var itemJSON string
		if err := rows.Scan(&e.ID, &e.JobID, &itemJSON, &e.Error, &e.ErrorType,
			&e.Attempts, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dlq entry")
		}
		if err := json.Unmarshal([]byte(itemJSON), &e.Item); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal dlq item")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list dlq iterate")
}

func (s *SQLiteStore) RemoveDLQ(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dead_letter_queue WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: remove dlq %s", id)
	}
	return checkRowsAffected(res, "dlq_entry", id)
}

func (s *SQLiteStore) CountDLQ(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_letter_queue`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count dlq")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
