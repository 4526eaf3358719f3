package db

import (
	"context"
	"database/sql"
)

type Queries struct {
	db *sql.DB
}

func New(database *sql.DB) *Queries {
	return &Queries{db: database}
}

type CreateJobAttemptParams struct {
	JobID      string
	Attempt    int64
	StartedAt  int64
	DurationMs int64
	Outcome    string
	Error      string
}

func (q *Queries) CreateJobAttempt(ctx context.Context, arg CreateJobAttemptParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO job_attempt (job_id, attempt, started_at, duration_ms, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		arg.JobID, arg.Attempt, arg.StartedAt, arg.DurationMs, arg.Outcome, arg.Error,
	)
	return err
}

type UpsertJobOutcomeParams struct {
	JobID       string
	Target      string
	Status      string
	Attempts    int64
	RecordCount int64
	Error       string
	FinishedAt  int64
}

func (q *Queries) UpsertJobOutcome(ctx context.Context, arg UpsertJobOutcomeParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO job_outcome (job_id, target, status, attempts, record_count, error, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (job_id) DO UPDATE SET
			status = excluded.status,
			attempts = excluded.attempts,
			record_count = excluded.record_count,
			error = excluded.error,
			finished_at = excluded.finished_at`,
		arg.JobID, arg.Target, arg.Status, arg.Attempts, arg.RecordCount, arg.Error, arg.FinishedAt,
	)
	return err
}

type JobAttemptRow struct {
	JobID      string
	Attempt    int64
	StartedAt  int64
	DurationMs int64
	Outcome    string
	Error      string
}

func (q *Queries) GetJobAttempts(ctx context.Context, jobID string) ([]JobAttemptRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT job_id, attempt, started_at, duration_ms, outcome, error
		FROM job_attempt WHERE job_id = ? ORDER BY attempt`,
		jobID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JobAttemptRow
	for rows.Next() {
		var row JobAttemptRow
		err := rows.Scan(&row.JobID, &row.Attempt, &row.StartedAt, &row.DurationMs, &row.Outcome, &row.Error)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

type JobOutcomeRow struct {
	JobID       string
	Target      string
	Status      string
	Attempts    int64
	RecordCount int64
	Error       string
	FinishedAt  int64
}

func (q *Queries) GetJobOutcome(ctx context.Context, jobID string) (JobOutcomeRow, error) {
	var row JobOutcomeRow
	err := q.db.QueryRowContext(ctx, `
		SELECT job_id, target, status, attempts, record_count, error, finished_at
		FROM job_outcome WHERE job_id = ?`,
		jobID,
	).Scan(&row.JobID, &row.Target, &row.Status, &row.Attempts, &row.RecordCount, &row.Error, &row.FinishedAt)
	return row, err
}
