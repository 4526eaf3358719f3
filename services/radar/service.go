package radar

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"radar-scraping/lib/browser"
	"radar-scraping/lib/radarapi"
	"radar-scraping/lib/records"
	"radar-scraping/lib/restyutil"
	"radar-scraping/lib/scraper"
	"radar-scraping/lib/scrapers/sigaa"
)

// Config is the service's startup configuration, read once; there is
// no hot reload.
type Config struct {
	// PortalBaseUrl is the scraped portal's root.
	PortalBaseUrl string `json:"portal_base_url"`
	// Concurrency bounds simultaneously in-flight jobs.
	Concurrency int `json:"concurrency"`
	// MaxAttempts is the default retry budget for jobs that do not set
	// their own.
	MaxAttempts int `json:"max_attempts"`

	PoolSize              int `json:"pool_size"`
	PoolAcquireTimeoutSec int `json:"pool_acquire_timeout_sec"`
	PoolIdleTtlMin        int `json:"pool_idle_ttl_min"`

	MinDelayMs       int     `json:"min_delay_ms"`
	MaxDelayMs       int     `json:"max_delay_ms"`
	SuccessThreshold int     `json:"success_threshold"`
	DecayFactor      float64 `json:"decay_factor"`
	GrowthFactor     float64 `json:"growth_factor"`

	BackoffBaseMs    int `json:"backoff_base_ms"`
	BackoffCeilingMs int `json:"backoff_ceiling_ms"`
	BackoffJitterMs  int `json:"backoff_jitter_ms"`

	AttemptTimeoutSec int `json:"attempt_timeout_sec"`
	JobTimeoutSec     int `json:"job_timeout_sec"`

	// SinkBaseUrl points at the radar web API; empty disables the sink.
	SinkBaseUrl    string `json:"sink_base_url"`
	SinkTimeoutSec int    `json:"sink_timeout_sec"`

	// JournalPath is the sqlite file for attempt history; empty
	// disables journaling.
	JournalPath string `json:"journal_path"`

	// EnrichSyllabus turns on per-component syllabus pdf extraction.
	EnrichSyllabus bool `json:"enrich_syllabus"`

	// TranscriptDir, when set, dumps every portal and sink exchange to
	// numbered files for debugging.
	TranscriptDir string `json:"transcript_dir"`
}

// Service owns the scheduler and everything it depends on.
type Service struct {
	Scheduler *Scheduler
	Sink      *radarapi.Client

	config Config
	pool   *browser.Pool
	db     *sql.DB
}

type ServiceOptions struct {
	Config Config
	// Observer receives progress events; nil falls back to slog.
	Observer Observer
	// SkipSink disables publication even when the config carries a sink
	// url.
	SkipSink bool
}

func NewService(opts ServiceOptions) (*Service, error) {
	config := opts.Config
	if config.PortalBaseUrl == "" {
		config.PortalBaseUrl = sigaa.BaseUrl
	}

	var output restyutil.InstrumentOutput
	if config.TranscriptDir != "" {
		output = restyutil.NewFilesystemOutput(config.TranscriptDir)
	}

	pool := browser.NewPool(browser.PoolOptions{
		Cap:            orDefault(config.PoolSize, 2),
		AcquireTimeout: time.Duration(config.PoolAcquireTimeoutSec) * time.Second,
		IdleTTL:        time.Duration(config.PoolIdleTtlMin) * time.Minute,
		Factory: func(ctx context.Context) (browser.Driver, error) {
			return browser.NewPortalDriver(browser.PortalDriverOptions{
				BaseUrl: config.PortalBaseUrl,
				Output:  output,
			})
		},
	})

	registry, err := NewRegistry(
		sigaa.CoursesStrategy{},
		sigaa.NewComponentsStrategy(sigaa.ComponentsOptions{
			EnrichSyllabus: config.EnrichSyllabus,
		}),
		sigaa.StructuresStrategy{},
	)
	if err != nil {
		pool.Close()
		return nil, err
	}

	limiter := NewRateLimiter(RateLimiterConfig{
		MinDelay:         time.Duration(config.MinDelayMs) * time.Millisecond,
		MaxDelay:         time.Duration(config.MaxDelayMs) * time.Millisecond,
		SuccessThreshold: config.SuccessThreshold,
		DecayFactor:      config.DecayFactor,
		GrowthFactor:     config.GrowthFactor,
	})

	var journal *Journal
	var database *sql.DB
	if config.JournalPath != "" {
		journal, database, err = OpenJournal(config.JournalPath)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("open journal: %w", err)
		}
	}

	var sink *radarapi.Client
	var sinkFn SinkFunc
	if config.SinkBaseUrl != "" && !opts.SkipSink {
		client := radarapi.NewClient(radarapi.ClientOptions{
			BaseUrl: config.SinkBaseUrl,
			Timeout: time.Duration(config.SinkTimeoutSec) * time.Second,
			Output:  output,
		})
		sink = &client
		sinkFn = func(ctx context.Context, target scraper.TargetType, recs []any) error {
			_, err := client.SendRecords(ctx, records.Kind(target), recs)
			return err
		}
	}

	observer := opts.Observer
	if observer == nil {
		observer = SlogObserver{}
	}

	scheduler, err := NewScheduler(SchedulerOptions{
		Registry: registry,
		Pool:     pool,
		Limiter:  limiter,
		Backoff: BackoffPolicy{
			Base:      time.Duration(config.BackoffBaseMs) * time.Millisecond,
			Ceiling:   time.Duration(config.BackoffCeilingMs) * time.Millisecond,
			JitterMax: time.Duration(config.BackoffJitterMs) * time.Millisecond,
		},
		Observer:       observer,
		Journal:        journal,
		Validate:       ValidateRecords,
		Sink:           sinkFn,
		Concurrency:    config.Concurrency,
		AttemptTimeout: time.Duration(config.AttemptTimeoutSec) * time.Second,
		JobTimeout:     time.Duration(config.JobTimeoutSec) * time.Second,
	})
	if err != nil {
		pool.Close()
		if database != nil {
			database.Close()
		}
		return nil, err
	}

	return &Service{
		Scheduler: scheduler,
		Sink:      sink,
		config:    config,
		pool:      pool,
		db:        database,
	}, nil
}

// DefaultMaxAttempts is the retry budget jobs inherit when they do not
// set their own.
func (s *Service) DefaultMaxAttempts() int {
	return orDefault(s.config.MaxAttempts, defaultMaxAttempts)
}

func (s *Service) Close() {
	s.pool.Close()
	if s.db != nil {
		s.db.Close()
	}
}

// ValidateRecords adapts record validation to the scheduler's seam.
func ValidateRecords(target scraper.TargetType, raws []map[string]any) ([]any, []error) {
	return records.ValidateAll(records.Kind(target), raws)
}

func orDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
