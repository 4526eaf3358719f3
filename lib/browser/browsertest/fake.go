// Package browsertest provides an in-memory Driver for tests.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"radar-scraping/lib/browser"

	"github.com/PuerkitoBio/goquery"
)

// FakeDriver serves canned pages keyed by url. It implements
// browser.Driver.
type FakeDriver struct {
	// Pages maps a url to the html served on Navigate.
	Pages map[string]string
	// Submits maps a form action to the html served on Submit.
	Submits map[string]string
	// Files maps a url to bytes served on Download.
	Files map[string][]byte
	// Errs maps a url or form action to a forced error.
	Errs map[string]error

	mu     sync.Mutex
	doc    *goquery.Document
	loc    string
	closed bool

	// Visited records every Navigate/Submit/Download target in order.
	Visited []string
}

var _ browser.Driver = (*FakeDriver)(nil)

func (d *FakeDriver) setDoc(html, loc string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return err
	}
	d.doc = doc
	d.loc = loc
	return nil
}

func (d *FakeDriver) Navigate(ctx context.Context, ref string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Visited = append(d.Visited, ref)
	if err := d.Errs[ref]; err != nil {
		return err
	}
	html, ok := d.Pages[ref]
	if !ok {
		return browser.StatusError{Code: 404, Url: ref}
	}
	return d.setDoc(html, ref)
}

func (d *FakeDriver) Document() *goquery.Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc
}

func (d *FakeDriver) Location() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loc
}

func (d *FakeDriver) Submit(ctx context.Context, form browser.Form) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Visited = append(d.Visited, form.Action)
	if err := d.Errs[form.Action]; err != nil {
		return err
	}
	html, ok := d.Submits[form.Action]
	if !ok {
		return browser.StatusError{Code: 404, Url: form.Action}
	}
	return d.setDoc(html, form.Action)
}

func (d *FakeDriver) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.doc == nil {
		return browser.ErrNoDocument
	}
	if d.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("selector %q never appeared", selector)
	}
	return nil
}

func (d *FakeDriver) Download(ctx context.Context, ref string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Visited = append(d.Visited, ref)
	if err := d.Errs[ref]; err != nil {
		return nil, err
	}
	data, ok := d.Files[ref]
	if !ok {
		return nil, browser.StatusError{Code: 404, Url: ref}
	}
	return data, nil
}

func (d *FakeDriver) Healthy(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.closed
}

func (d *FakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Closed reports whether Close was called.
func (d *FakeDriver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
