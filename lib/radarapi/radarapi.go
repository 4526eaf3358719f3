// Package radarapi is the client for the radar web API, the sink that
// receives every published record batch.
package radarapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"radar-scraping/lib/records"
	"radar-scraping/lib/restyutil"
	"radar-scraping/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

var ErrUnhealthy = errors.New("radar api unhealthy")

type Client struct {
	http *resty.Client
}

type ClientOptions struct {
	// BaseUrl points at the API root, e.g. "http://localhost:8080/api".
	BaseUrl string
	Timeout time.Duration
	// Output, when set, receives request/response transcripts.
	Output restyutil.InstrumentOutput
}

func NewClient(opts ClientOptions) Client {
	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetHeader("content-type", "application/json")
	client.SetHeader("accept", "application/json")
	client.SetHeader("user-agent", "radar-scraping/1.0")

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	client.SetTimeout(timeout)

	telemetry.InstrumentResty(client, "radar.lib.radarapi")
	restyutil.DumpClient(client, opts.Output)

	return Client{http: client}
}

// bulkPayload is the envelope the API expects on every bulk endpoint.
type bulkPayload struct {
	Records   []any  `json:"records"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
}

// SyncResult reports what the API did with a batch.
type SyncResult struct {
	FullSuccess bool `json:"full_success"`
	Processed   int  `json:"processed"`
	Failed      int  `json:"failed"`
}

// SendRecords publishes one validated batch. The kind selects the bulk
// endpoint; records must already be the matching record type.
func (c Client) SendRecords(ctx context.Context, kind records.Kind, recs []any) (SyncResult, error) {
	if len(recs) == 0 {
		return SyncResult{FullSuccess: true}, nil
	}

	var result SyncResult
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(bulkPayload{
			Records:   recs,
			Timestamp: time.Now().Format(time.RFC3339),
			Source:    "sigaa-ufba",
		}).
		SetResult(&result).
		Post(fmt.Sprintf("/%s/bulk", kind))
	if err != nil {
		return SyncResult{}, fmt.Errorf("send %s batch: %w", kind, err)
	}
	if res.IsError() {
		return SyncResult{}, fmt.Errorf("send %s batch: unexpected status %d", kind, res.StatusCode())
	}
	return result, nil
}

// Health checks the API's health endpoint. A sink that is down fails
// every job; callers probe this once up front.
func (c Client) Health(ctx context.Context) error {
	res, err := c.http.R().
		SetContext(ctx).
		Get("/health")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if res.IsError() {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, res.StatusCode())
	}
	return nil
}
