package radar

import (
	"context"
	"log/slog"
	"time"
)

// Phase marks where in a job's lifecycle an event was emitted.
type Phase string

const (
	PhaseScheduled Phase = "scheduled"
	PhaseAttempt   Phase = "attempt"
	PhaseBackoff   Phase = "backoff"
	PhaseFinished  Phase = "finished"
)

// Event is one structured progress notification.
type Event struct {
	JobID   string
	Phase   Phase
	Outcome OutcomeStatus
	Attempt int
	Latency time.Duration
	Err     error
}

// Observer receives progress events. Implementations must return
// quickly; the scheduler calls them on the hot path.
type Observer interface {
	Observe(ctx context.Context, event Event)
}

// SlogObserver logs every event through slog.
type SlogObserver struct{}

func (SlogObserver) Observe(ctx context.Context, event Event) {
	attrs := []any{
		"job", event.JobID,
		"phase", string(event.Phase),
	}
	if event.Outcome != "" {
		attrs = append(attrs, "outcome", string(event.Outcome))
	}
	if event.Attempt > 0 {
		attrs = append(attrs, "attempt", event.Attempt)
	}
	if event.Latency > 0 {
		attrs = append(attrs, "latency", event.Latency.String())
	}
	if event.Err != nil {
		attrs = append(attrs, "err", event.Err)
		slog.WarnContext(ctx, "job event", attrs...)
		return
	}
	slog.InfoContext(ctx, "job event", attrs...)
}

// noopObserver backs a nil observer option.
type noopObserver struct{}

func (noopObserver) Observe(context.Context, Event) {}
