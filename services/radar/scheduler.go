package radar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"radar-scraping/lib/browser"
	"radar-scraping/lib/scraper"
	"radar-scraping/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = telemetry.Tracer("radar.services.radar")

var ErrUnknownTarget = errors.New("unknown target type")

const (
	defaultMaxAttempts    = 3
	defaultAttemptTimeout = time.Minute * 2
	defaultJobTimeout     = time.Minute * 10
)

// ValidateFunc turns raw extracted rows into validated records, one
// error per rejected row.
type ValidateFunc func(target scraper.TargetType, raws []map[string]any) ([]any, []error)

// SinkFunc publishes one job's validated records downstream.
type SinkFunc func(ctx context.Context, target scraper.TargetType, recs []any) error

// Scheduler runs batches of scraping jobs. Every attempt passes the
// rate limiter gate first, leases a pooled session, and reports its
// outcome back to the limiter, so sustained failures against one
// target slow down every job hitting that target.
type Scheduler struct {
	registry *Registry
	pool     *browser.Pool
	limiter  *RateLimiter
	backoff  BackoffPolicy
	observer Observer
	journal  *Journal
	validate ValidateFunc
	sink     SinkFunc

	concurrency    int
	attemptTimeout time.Duration
	jobTimeout     time.Duration
}

type SchedulerOptions struct {
	Registry *Registry
	Pool     *browser.Pool
	Limiter  *RateLimiter
	Backoff  BackoffPolicy
	// Observer receives progress events; nil means no events.
	Observer Observer
	// Journal persists attempts and outcomes; nil means no persistence.
	Journal *Journal
	// Validate gates raw rows; nil accepts everything as-is.
	Validate ValidateFunc
	// Sink publishes validated records; nil skips publication.
	Sink SinkFunc

	// Concurrency bounds simultaneously in-flight jobs.
	Concurrency    int
	AttemptTimeout time.Duration
	JobTimeout     time.Duration
}

func NewScheduler(opts SchedulerOptions) (*Scheduler, error) {
	if opts.Registry == nil {
		return nil, errors.New("scheduler requires a strategy registry")
	}
	if opts.Pool == nil {
		return nil, errors.New("scheduler requires a session pool")
	}
	if opts.Limiter == nil {
		opts.Limiter = NewRateLimiter(RateLimiterConfig{})
	}
	if opts.Backoff == (BackoffPolicy{}) {
		opts.Backoff = DefaultBackoffPolicy()
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	if opts.Validate == nil {
		opts.Validate = func(_ scraper.TargetType, raws []map[string]any) ([]any, []error) {
			out := make([]any, len(raws))
			for i, raw := range raws {
				out[i] = raw
			}
			return out, nil
		}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = defaultAttemptTimeout
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = defaultJobTimeout
	}

	return &Scheduler{
		registry:       opts.Registry,
		pool:           opts.Pool,
		limiter:        opts.Limiter,
		backoff:        opts.Backoff,
		observer:       opts.Observer,
		journal:        opts.Journal,
		validate:       opts.Validate,
		sink:           opts.Sink,
		concurrency:    opts.Concurrency,
		attemptTimeout: opts.AttemptTimeout,
		jobTimeout:     opts.JobTimeout,
	}, nil
}

// Run executes the batch and blocks until every job resolves. One
// job's failure never cancels its siblings; the returned map has an
// outcome for every submitted job.
func (s *Scheduler) Run(ctx context.Context, jobs []JobDescriptor) map[string]JobOutcome {
	ctx, span := tracer.Start(ctx, "Scheduler.Run")
	defer span.End()
	span.SetAttributes(attribute.Int("jobs", len(jobs)))

	results := make(map[string]JobOutcome, len(jobs))
	for outcome := range s.RunChan(ctx, jobs) {
		results[outcome.JobID] = outcome
	}
	return results
}

// RunChan executes the batch and emits outcomes as jobs complete, in
// completion order. The channel closes after the last outcome.
func (s *Scheduler) RunChan(ctx context.Context, jobs []JobDescriptor) <-chan JobOutcome {
	out := make(chan JobOutcome)

	group := errgroup.Group{}
	group.SetLimit(s.concurrency)

	go func() {
		defer close(out)
		for _, job := range jobs {
			job := job
			group.Go(func() error {
				out <- s.runJob(ctx, job)
				return nil
			})
		}
		group.Wait()
	}()
	return out
}

func (s *Scheduler) runJob(ctx context.Context, job JobDescriptor) JobOutcome {
	ctx, span := tracer.Start(ctx, "Scheduler.runJob")
	defer span.End()
	span.SetAttributes(
		attribute.String("job", job.JobID),
		attribute.String("target", string(job.Target)),
	)

	ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	outcome := s.attemptLoop(ctx, job)

	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Err.Error())
	}
	s.observer.Observe(ctx, Event{
		JobID:   job.JobID,
		Phase:   PhaseFinished,
		Outcome: outcome.Status,
		Attempt: len(outcome.Attempts),
		Err:     outcome.Err,
	})
	// Journal writes use the background context so a job timeout does
	// not lose the record of its own demise.
	s.journal.RecordOutcome(context.WithoutCancel(ctx), outcome, time.Now().Unix())
	return outcome
}

func (s *Scheduler) attemptLoop(ctx context.Context, job JobDescriptor) JobOutcome {
	outcome := JobOutcome{JobID: job.JobID, Target: job.Target}

	s.observer.Observe(ctx, Event{JobID: job.JobID, Phase: PhaseScheduled})

	strategy, err := s.registry.Resolve(job.Target)
	if err != nil {
		outcome.Status = StatusPermanentFailure
		outcome.Err = err
		return outcome
	}

	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	// The session is leased across attempts and handed back on every
	// exit path. Poisoning clears it so the next attempt leases a
	// replacement.
	var sess *browser.Session
	defer func() {
		if sess != nil {
			s.pool.Release(sess)
		}
	}()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := s.limiter.Wait(ctx, job.Target)
		if err != nil {
			outcome.Status = StatusCancelled
			outcome.Err = err
			return outcome
		}

		if sess == nil {
			sess, err = s.pool.Acquire(ctx)
			if err != nil {
				if errors.Is(err, browser.ErrPoolExhausted) {
					outcome.Status = StatusPoolExhausted
				} else {
					outcome.Status = StatusCancelled
				}
				outcome.Err = err
				return outcome
			}
		}

		started := time.Now()
		result, err := s.attempt(ctx, strategy, sess, job)
		record := AttemptRecord{
			JobID:     job.JobID,
			Attempt:   attempt,
			Err:       err,
			Latency:   time.Since(started),
			Timestamp: started,
		}

		if err == nil {
			record.Outcome = StatusSuccess
			outcome.Attempts = append(outcome.Attempts, record)
			s.noteAttempt(ctx, record)
			s.limiter.RecordOutcome(job.Target, true)
			s.finish(ctx, job, result, &outcome)
			return outcome
		}

		// A failed attempt may leave the driver mid-navigation; an
		// unhealthy or interrupted session goes back poisoned.
		if ctx.Err() != nil || !sess.Driver().Healthy(ctx) {
			s.pool.Poison(sess)
			sess = nil
		}
		s.limiter.RecordOutcome(job.Target, false)

		if Classify(err) == Permanent {
			record.Outcome = StatusPermanentFailure
			outcome.Attempts = append(outcome.Attempts, record)
			s.noteAttempt(ctx, record)
			outcome.Status = StatusPermanentFailure
			outcome.Err = err
			return outcome
		}

		record.Outcome = StatusTransientFailure
		outcome.Attempts = append(outcome.Attempts, record)
		s.noteAttempt(ctx, record)
		outcome.Err = err

		if ctx.Err() != nil {
			outcome.Status = StatusCancelled
			outcome.Err = fmt.Errorf("%w: last attempt: %w", ctx.Err(), err)
			return outcome
		}
		if attempt < maxAttempts {
			backoff := s.backoff.Next(attempt)
			s.observer.Observe(ctx, Event{
				JobID:   job.JobID,
				Phase:   PhaseBackoff,
				Attempt: attempt,
				Latency: backoff,
			})
			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				outcome.Status = StatusCancelled
				outcome.Err = ctx.Err()
				return outcome
			}
		}
	}

	outcome.Status = StatusRetriesExhausted
	outcome.Err = fmt.Errorf("retries exhausted after %d attempts: %w", maxAttempts, outcome.Err)
	return outcome
}

// attempt wraps one extraction call in its own timeout.
func (s *Scheduler) attempt(
	ctx context.Context, strategy scraper.Strategy, sess *browser.Session, job JobDescriptor,
) (scraper.ExtractionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
	defer cancel()
	return strategy.Extract(ctx, sess.Driver(), job.Filter)
}

// finish validates and publishes a successful extraction. A sink error
// is reported on the outcome but never retries extraction; the records
// were produced, publishing them again is the caller's call.
func (s *Scheduler) finish(
	ctx context.Context, job JobDescriptor, result scraper.ExtractionResult, outcome *JobOutcome,
) {
	outcome.Status = StatusSuccess
	outcome.Partial = result.Partial
	outcome.Records, outcome.RecordErrs = s.validate(job.Target, result.RawRecords)

	if s.sink != nil {
		err := s.sink(ctx, job.Target, outcome.Records)
		if err != nil {
			outcome.SinkErr = fmt.Errorf("sink rejected records: %w", err)
		}
	}
}

func (s *Scheduler) noteAttempt(ctx context.Context, record AttemptRecord) {
	s.observer.Observe(ctx, Event{
		JobID:   record.JobID,
		Phase:   PhaseAttempt,
		Outcome: record.Outcome,
		Attempt: record.Attempt,
		Latency: record.Latency,
		Err:     record.Err,
	})
	s.journal.RecordAttempt(context.WithoutCancel(ctx), record)
}
