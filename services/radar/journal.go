package radar

import (
	"context"
	"database/sql"
	"log/slog"

	"radar-scraping/lib/sqliteutil"
	"radar-scraping/services/radar/db"
)

// Journal persists attempt records and terminal outcomes to sqlite, so
// a run can be audited after the process exits. A nil Journal is valid
// and records nothing.
type Journal struct {
	qry *db.Queries
}

func OpenJournal(path string) (*Journal, *sql.DB, error) {
	database, err := sqliteutil.OpenDB(db.Schema, path)
	if err != nil {
		return nil, nil, err
	}
	return &Journal{qry: db.New(database)}, database, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (j *Journal) RecordAttempt(ctx context.Context, record AttemptRecord) {
	if j == nil {
		return
	}
	err := j.qry.CreateJobAttempt(ctx, db.CreateJobAttemptParams{
		JobID:      record.JobID,
		Attempt:    int64(record.Attempt),
		StartedAt:  record.Timestamp.Unix(),
		DurationMs: record.Latency.Milliseconds(),
		Outcome:    string(record.Outcome),
		Error:      errString(record.Err),
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to journal attempt", "job", record.JobID, "err", err)
	}
}

func (j *Journal) RecordOutcome(ctx context.Context, outcome JobOutcome, finishedAt int64) {
	if j == nil {
		return
	}
	err := j.qry.UpsertJobOutcome(ctx, db.UpsertJobOutcomeParams{
		JobID:       outcome.JobID,
		Target:      string(outcome.Target),
		Status:      string(outcome.Status),
		Attempts:    int64(len(outcome.Attempts)),
		RecordCount: int64(len(outcome.Records)),
		Error:       errString(outcome.Err),
		FinishedAt:  finishedAt,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to journal outcome", "job", outcome.JobID, "err", err)
	}
}
