package radar

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"radar-scraping/lib/browser"
	"radar-scraping/lib/scrapers/sigaa"

	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial tcp: i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Classification
	}{
		{"deadline exceeded", context.DeadlineExceeded, Transient},
		{"net timeout", timeoutErr{}, Transient},
		{"wrapped net timeout", fmt.Errorf("extract: %w", timeoutErr{}), Transient},
		{"connection reset", errors.New("read tcp: connection reset by peer"), Transient},
		{"portal unavailable", sigaa.ErrPortalUnavailable, Transient},
		{"status 429", browser.StatusError{Code: 429}, Transient},
		{"status 503", browser.StatusError{Code: 503}, Transient},
		{"page structure", sigaa.ErrPageStructure, Permanent},
		{"wrapped page structure", fmt.Errorf("courses: %w", sigaa.ErrPageStructure), Permanent},
		{"not found", sigaa.ErrNotFound, Permanent},
		{"status 404", browser.StatusError{Code: 404}, Permanent},
		{"status 403", browser.StatusError{Code: 403}, Permanent},
		{"unknown", errors.New("something odd"), Transient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	errs := []error{
		context.DeadlineExceeded,
		sigaa.ErrPageStructure,
		errors.New("connection refused"),
		browser.StatusError{Code: 500},
	}
	for _, err := range errs {
		require.Equal(t, Classify(err), Classify(err))
	}
}

func TestBackoffGrowsExponentially(t *testing.T) {
	policy := BackoffPolicy{
		Base:    time.Second,
		Ceiling: time.Minute,
	}
	require.Equal(t, time.Second*2, policy.Next(1))
	require.Equal(t, time.Second*4, policy.Next(2))
	require.Equal(t, time.Second*8, policy.Next(3))
}

func TestBackoffIsCapped(t *testing.T) {
	policy := BackoffPolicy{
		Base:    time.Second,
		Ceiling: time.Second * 10,
	}
	require.Equal(t, time.Second*10, policy.Next(30))
}

func TestBackoffJitterStaysInBounds(t *testing.T) {
	policy := BackoffPolicy{
		Base:      time.Second,
		Ceiling:   time.Minute,
		JitterMax: time.Second,
	}
	for i := 0; i < 50; i++ {
		backoff := policy.Next(1)
		require.GreaterOrEqual(t, backoff, time.Second*2)
		require.Less(t, backoff, time.Second*3)
	}
}
