package browser

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"time"

	"radar-scraping/lib/restyutil"
	"radar-scraping/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	fakeua "github.com/EDDYCJY/fake-useragent"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const waitForPollInterval = 500 * time.Millisecond

// PortalDriver implements Driver over plain HTTP. The portal is fully
// server-rendered, so a cookie-jarred client plus an HTML parser covers
// everything a real browser would be needed for.
type PortalDriver struct {
	http    *resty.Client
	baseUrl *url.URL
	loc     *url.URL
	doc     *goquery.Document
}

type PortalDriverOptions struct {
	BaseUrl string
	// UserAgent overrides the randomly chosen one. Leave empty outside
	// of tests; each session presenting a different agent is deliberate.
	UserAgent string
	Timeout   time.Duration
	// Output, when set, receives request/response transcripts.
	Output restyutil.InstrumentOutput
}

func NewPortalDriver(opts PortalDriverOptions) (*PortalDriver, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	agent := opts.UserAgent
	if agent == "" {
		agent = fakeua.Random()
	}
	client.SetHeader("user-agent", agent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	client.SetTimeout(timeout)

	telemetry.InstrumentResty(client, "radar.lib.browser")
	restyutil.DumpClient(client, opts.Output)

	return &PortalDriver{
		http:    client,
		baseUrl: baseUrl,
	}, nil
}

func (d *PortalDriver) resolve(ref string) (*url.URL, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	if d.loc != nil {
		return d.loc.ResolveReference(parsed), nil
	}
	return d.baseUrl.ResolveReference(parsed), nil
}

func (d *PortalDriver) load(ctx context.Context, res *resty.Response) error {
	if res.StatusCode() >= 400 {
		return StatusError{Code: res.StatusCode(), Url: res.Request.URL}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return fmt.Errorf("parse %s: %w", res.Request.URL, err)
	}

	loc, err := url.Parse(res.Request.URL)
	if err != nil {
		return err
	}
	if raw := res.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		loc = raw.Request.URL
	}

	d.loc = loc
	d.doc = doc
	return nil
}

func (d *PortalDriver) Navigate(ctx context.Context, ref string) error {
	target, err := d.resolve(ref)
	if err != nil {
		return err
	}
	res, err := d.http.R().
		SetContext(ctx).
		Get(target.String())
	if err != nil {
		return err
	}
	return d.load(ctx, res)
}

func (d *PortalDriver) Document() *goquery.Document {
	return d.doc
}

func (d *PortalDriver) Location() string {
	if d.loc == nil {
		return ""
	}
	return d.loc.String()
}

func (d *PortalDriver) Submit(ctx context.Context, form Form) error {
	target, err := d.resolve(form.Action)
	if err != nil {
		return err
	}
	res, err := d.http.R().
		SetContext(ctx).
		SetFormData(form.Fields).
		Post(target.String())
	if err != nil {
		return err
	}
	return d.load(ctx, res)
}

func (d *PortalDriver) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		if d.doc != nil && d.doc.Find(selector).Length() > 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %q: %w", selector, ctx.Err())
		case <-time.After(waitForPollInterval):
		}

		if d.loc == nil {
			return ErrNoDocument
		}
		err := d.Navigate(ctx, d.loc.String())
		if err != nil {
			return err
		}
	}
}

func (d *PortalDriver) Download(ctx context.Context, ref string) ([]byte, error) {
	target, err := d.resolve(ref)
	if err != nil {
		return nil, err
	}
	res, err := d.http.R().
		SetContext(ctx).
		SetHeader("accept", "application/pdf,application/octet-stream,*/*").
		Get(target.String())
	if err != nil {
		return nil, err
	}
	if res.StatusCode() >= 400 {
		return nil, StatusError{Code: res.StatusCode(), Url: res.Request.URL}
	}
	return res.Body(), nil
}

func (d *PortalDriver) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	res, err := d.http.R().
		SetContext(ctx).
		Get(d.baseUrl.String())
	if err != nil {
		return false
	}
	return res.StatusCode() < 500
}

func (d *PortalDriver) Close() error {
	d.doc = nil
	d.loc = nil
	return nil
}
