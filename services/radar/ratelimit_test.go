package radar

import (
	"testing"
	"time"

	"radar-scraping/lib/scraper"

	"github.com/stretchr/testify/require"
)

func testLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		MinDelay:         time.Millisecond * 100,
		MaxDelay:         time.Second * 10,
		SuccessThreshold: 5,
		DecayFactor:      0.9,
		GrowthFactor:     1.5,
	}
}

func TestDelayStartsAtFloor(t *testing.T) {
	limiter := NewRateLimiter(testLimiterConfig())
	require.Equal(t, time.Millisecond*100, limiter.DelayBeforeNext(scraper.TargetCourses))
}

func TestFailuresGrowDelayUpToCeiling(t *testing.T) {
	limiter := NewRateLimiter(testLimiterConfig())

	previous := limiter.DelayBeforeNext(scraper.TargetCourses)
	for i := 0; i < 20; i++ {
		limiter.RecordOutcome(scraper.TargetCourses, false)
		current := limiter.DelayBeforeNext(scraper.TargetCourses)
		require.GreaterOrEqual(t, current, previous)
		require.LessOrEqual(t, current, time.Second*10)
		previous = current
	}
	require.Equal(t, time.Second*10, previous)
}

func TestSuccessStreakDecaysDelayDownToFloor(t *testing.T) {
	limiter := NewRateLimiter(testLimiterConfig())

	// Grow the delay first so there is something to decay.
	for i := 0; i < 10; i++ {
		limiter.RecordOutcome(scraper.TargetCourses, false)
	}
	grown := limiter.DelayBeforeNext(scraper.TargetCourses)
	require.Greater(t, grown, time.Millisecond*100)

	// The first four successes only build the streak.
	for i := 0; i < 4; i++ {
		limiter.RecordOutcome(scraper.TargetCourses, true)
	}
	require.Equal(t, grown, limiter.DelayBeforeNext(scraper.TargetCourses))

	// From the fifth on, every success strictly decreases the delay
	// until it reaches the floor.
	previous := grown
	for i := 0; i < 200; i++ {
		limiter.RecordOutcome(scraper.TargetCourses, true)
		current := limiter.DelayBeforeNext(scraper.TargetCourses)
		require.GreaterOrEqual(t, current, time.Millisecond*100)
		if previous > time.Millisecond*100 {
			require.Less(t, current, previous)
		}
		previous = current
	}
	require.Equal(t, time.Millisecond*100, previous)
}

func TestFailureResetsSuccessStreak(t *testing.T) {
	limiter := NewRateLimiter(testLimiterConfig())

	for i := 0; i < 10; i++ {
		limiter.RecordOutcome(scraper.TargetCourses, false)
	}
	grown := limiter.DelayBeforeNext(scraper.TargetCourses)

	for i := 0; i < 4; i++ {
		limiter.RecordOutcome(scraper.TargetCourses, true)
	}
	limiter.RecordOutcome(scraper.TargetCourses, false)

	// The streak restarts: four more successes must not decay yet.
	afterFailure := limiter.DelayBeforeNext(scraper.TargetCourses)
	require.GreaterOrEqual(t, afterFailure, grown)
	for i := 0; i < 4; i++ {
		limiter.RecordOutcome(scraper.TargetCourses, true)
	}
	require.Equal(t, afterFailure, limiter.DelayBeforeNext(scraper.TargetCourses))
}

func TestTargetsAreIsolated(t *testing.T) {
	limiter := NewRateLimiter(testLimiterConfig())

	for i := 0; i < 10; i++ {
		limiter.RecordOutcome(scraper.TargetCourses, false)
	}
	require.Greater(t, limiter.DelayBeforeNext(scraper.TargetCourses), time.Millisecond*100)
	require.Equal(t, time.Millisecond*100, limiter.DelayBeforeNext(scraper.TargetComponents))
}
