// Package radar implements the scraping orchestration engine: a batch
// scheduler that runs extraction jobs under bounded concurrency,
// leasing portal sessions from a pool, pacing every attempt through a
// per-target adaptive rate limiter and retrying transient failures
// with exponential backoff.
package radar

import (
	"time"

	"radar-scraping/lib/scraper"
)

// JobDescriptor describes one unit of scraping work. Immutable once
// submitted.
type JobDescriptor struct {
	JobID       string
	Target      scraper.TargetType
	Filter      scraper.Filter
	MaxAttempts int
	CreatedAt   time.Time
}

// OutcomeStatus is the terminal state of a job or attempt.
type OutcomeStatus string

const (
	StatusSuccess          OutcomeStatus = "SUCCESS"
	StatusTransientFailure OutcomeStatus = "TRANSIENT_FAILURE"
	StatusPermanentFailure OutcomeStatus = "PERMANENT_FAILURE"
	StatusRetriesExhausted OutcomeStatus = "RETRIES_EXHAUSTED"
	StatusPoolExhausted    OutcomeStatus = "POOL_EXHAUSTED"
	StatusCancelled        OutcomeStatus = "CANCELLED"
)

// AttemptRecord captures one pass through the attempt loop.
type AttemptRecord struct {
	JobID     string
	Attempt   int
	Outcome   OutcomeStatus
	Err       error
	Latency   time.Duration
	Timestamp time.Time
}

// JobOutcome is a job's terminal result. Exactly one of Records or Err
// is meaningful, selected by Status.
type JobOutcome struct {
	JobID    string
	Target   scraper.TargetType
	Status   OutcomeStatus
	Attempts []AttemptRecord
	// Records holds the validated records on success.
	Records []any
	// RecordErrs holds per-row validation rejections; the job can still
	// succeed with the surviving rows.
	RecordErrs []error
	Partial    bool
	Err        error
	// SinkErr reports a downstream publication failure. It never
	// changes Status; the extraction itself succeeded.
	SinkErr error
}
