package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Driver is the capability the rest of the system programs against: a
// live handle to something that can load server-rendered pages, submit
// forms and fetch documents. The production implementation drives the
// portal over HTTP (PortalDriver); tests substitute fakes.
type Driver interface {
	// Navigate loads the page at ref (absolute, or relative to the
	// driver's base url) and makes it the current document.
	Navigate(ctx context.Context, ref string) error
	// Document returns the current page, nil before the first Navigate.
	Document() *goquery.Document
	// Location returns the url of the current document.
	Location() string
	// Submit posts a form and makes the response the current document.
	Submit(ctx context.Context, form Form) error
	// WaitFor polls until the selector matches in the current document,
	// reloading the page between polls.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// Download fetches a document (e.g. a syllabus PDF) without touching
	// the current page.
	Download(ctx context.Context, ref string) ([]byte, error)
	// Healthy reports whether the handle is still usable.
	Healthy(ctx context.Context) bool
	Close() error
}

// Form describes a form submission. Fields should include whatever
// hidden inputs the page carries (view state and the like); helpers on
// the concrete drivers collect them.
type Form struct {
	Action string
	Fields map[string]string
}

// StatusError reports a non-success HTTP status from the portal.
type StatusError struct {
	Code int
	Url  string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.Url)
}

var ErrNoDocument = errors.New("no document loaded")
