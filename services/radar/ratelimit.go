package radar

import (
	"context"
	"math"
	"sync"
	"time"

	"radar-scraping/lib/scraper"
)

// RateLimiterConfig holds the per-target pacing bounds. The decay and
// growth constants are tunable; the defaults trade a slow ramp-down for
// a fast ramp-up, since tripping the portal's bot detection costs far
// more than a few conservative waits.
type RateLimiterConfig struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	// SuccessThreshold is how many consecutive successes earn one decay
	// step.
	SuccessThreshold int
	// DecayFactor shrinks the delay after a success streak.
	DecayFactor float64
	// GrowthFactor compounds per consecutive failure.
	GrowthFactor float64
}

func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		MinDelay:         time.Millisecond * 500,
		MaxDelay:         time.Second * 30,
		SuccessThreshold: 5,
		DecayFactor:      0.9,
		GrowthFactor:     1.5,
	}
}

func (c RateLimiterConfig) withDefaults() RateLimiterConfig {
	def := DefaultRateLimiterConfig()
	if c.MinDelay <= 0 {
		c.MinDelay = def.MinDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = def.SuccessThreshold
	}
	if c.DecayFactor <= 0 || c.DecayFactor >= 1 {
		c.DecayFactor = def.DecayFactor
	}
	if c.GrowthFactor <= 1 {
		c.GrowthFactor = def.GrowthFactor
	}
	return c
}

// targetState is the mutable pacing state for one target type.
type targetState struct {
	mu                   sync.Mutex
	currentDelay         time.Duration
	consecutiveSuccesses int
	consecutiveFailures  int
}

// RateLimiter self-tunes the inter-request delay per target type.
// Different targets hit different portal pages with different
// tolerance, so their states never mix.
type RateLimiter struct {
	config RateLimiterConfig

	mu      sync.Mutex
	targets map[scraper.TargetType]*targetState
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		config:  config.withDefaults(),
		targets: map[scraper.TargetType]*targetState{},
	}
}

func (l *RateLimiter) state(target scraper.TargetType) *targetState {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.targets[target]
	if !ok {
		state = &targetState{currentDelay: l.config.MinDelay}
		l.targets[target] = state
	}
	return state
}

// DelayBeforeNext reports how long the caller must wait before the next
// request against the target.
func (l *RateLimiter) DelayBeforeNext(target scraper.TargetType) time.Duration {
	state := l.state(target)
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.currentDelay
}

// Wait sleeps for the target's current delay, honoring cancellation.
func (l *RateLimiter) Wait(ctx context.Context, target scraper.TargetType) error {
	delay := l.DelayBeforeNext(target)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordOutcome feeds one attempt's result back into the target's
// pacing state.
func (l *RateLimiter) RecordOutcome(target scraper.TargetType, success bool) {
	state := l.state(target)
	state.mu.Lock()
	defer state.mu.Unlock()

	if success {
		state.consecutiveFailures = 0
		state.consecutiveSuccesses++
		if state.consecutiveSuccesses >= l.config.SuccessThreshold {
			state.currentDelay = time.Duration(float64(state.currentDelay) * l.config.DecayFactor)
			if state.currentDelay < l.config.MinDelay {
				state.currentDelay = l.config.MinDelay
			}
		}
		return
	}

	state.consecutiveSuccesses = 0
	state.consecutiveFailures++
	grown := float64(state.currentDelay) * math.Pow(l.config.GrowthFactor, float64(state.consecutiveFailures))
	if grown > float64(l.config.MaxDelay) {
		state.currentDelay = l.config.MaxDelay
	} else {
		state.currentDelay = time.Duration(grown)
	}
}
