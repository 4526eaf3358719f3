package radar

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strings"
	"time"

	"radar-scraping/lib/browser"
	"radar-scraping/lib/records"
	"radar-scraping/lib/scrapers/sigaa"
)

// Classification says whether retrying an error can possibly help.
type Classification int

const (
	Transient Classification = iota
	Permanent
)

func (c Classification) String() string {
	if c == Permanent {
		return "PERMANENT"
	}
	return "TRANSIENT"
}

// Classify maps any error to a retry decision. It is total and pure:
// unknown errors come back Transient, because retrying something
// unretryable wastes a few attempts while not retrying something
// retryable loses data.
func Classify(err error) Classification {
	if err == nil {
		return Transient
	}

	// Layout changes and bad input cannot be fixed by retrying.
	if errors.Is(err, sigaa.ErrPageStructure) ||
		errors.Is(err, sigaa.ErrNotFound) ||
		errors.Is(err, records.ErrInvalidRecord) {
		return Permanent
	}
	// The portal saying "come back later" is the canonical transient.
	if errors.Is(err, sigaa.ErrPortalUnavailable) {
		return Transient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Transient
	}

	var statusErr browser.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code == 404 || statusErr.Code == 410:
			return Permanent
		case statusErr.Code == 429:
			return Transient
		case statusErr.Code >= 500:
			return Transient
		case statusErr.Code >= 400:
			return Permanent
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "temporarily unavailable") ||
		strings.Contains(msg, "eof") {
		return Transient
	}

	return Transient
}

// BackoffPolicy computes the sleep between retry attempts.
type BackoffPolicy struct {
	Base    time.Duration
	Ceiling time.Duration
	// JitterMax is the upper bound of the random additive jitter.
	JitterMax time.Duration
}

func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		Base:      time.Second,
		Ceiling:   time.Minute,
		JitterMax: time.Second,
	}
}

// Next returns the backoff before the given attempt number (1-based:
// the sleep before attempt 2 is Next(1)). Exponential in the attempt
// with additive jitter, capped at the ceiling.
func (p BackoffPolicy) Next(attempt int) time.Duration {
	backoff := p.Base
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if p.Ceiling > 0 && backoff >= p.Ceiling {
			backoff = p.Ceiling
			break
		}
	}
	if p.JitterMax > 0 {
		backoff += time.Duration(rand.Int63n(int64(p.JitterMax)))
	}
	if p.Ceiling > 0 && backoff > p.Ceiling {
		backoff = p.Ceiling
	}
	return backoff
}
