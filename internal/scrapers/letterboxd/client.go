// client.go contains the http plumbing shared by every page the scraper reads, page
// specific extraction lives in list.go and detail.go.

package letterboxd

import (
	"boxdstats/internal/components/assert"
	"boxdstats/internal/components/telemetry"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

const DefaultBaseUrl = "https://letterboxd.com"

const (
	report_client_get         = "client.get"
	report_client_films       = "client.films"
	report_client_film_detail = "client.film-detail"
	report_client_film_stats  = "client.film-stats"
)

var tracer = otel.Tracer("boxdstats/scrapers/letterboxd")

// PageCache stores response bodies of pages that rarely change. Implementations
// swallow their own errors, a failing cache only means more requests.
type PageCache interface {
	Get(ctx context.Context, url string) ([]byte, bool)
	Set(ctx context.Context, url string, body []byte)
}

type ClientOptions struct {
	BaseUrl string
	// Timeout applies to every single attempt of a request.
	Timeout time.Duration
	// RequestsPerSecond caps the request rate across all goroutines using the client.
	RequestsPerSecond float64
	// Retries is the number of extra attempts made for transient failures.
	Retries int
	// RetryWait is the initial backoff, it doubles with each attempt.
	RetryWait time.Duration
	// CloudflareBypass wraps the transport so that requests look like a browser's.
	CloudflareBypass bool
	// Cache is optional, when set detail pages and stats fragments are read through it.
	Cache PageCache
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.BaseUrl == "" {
		o.BaseUrl = DefaultBaseUrl
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Second * 30
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 4
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.RetryWait <= 0 {
		o.RetryWait = time.Millisecond * 500
	}
	return o
}

// Client reads the public pages of a film-logging site. It is safe for concurrent use.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	cache PageCache
	tel   telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("letterboxd", tel)
	opts = opts.withDefaults()

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl.String())
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	httpClient.SetTimeout(opts.Timeout)

	httpClient.SetRetryCount(opts.Retries)
	httpClient.SetRetryWaitTime(opts.RetryWait)
	httpClient.SetRetryMaxWaitTime(opts.RetryWait * 16)
	httpClient.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return !errors.Is(err, context.Canceled)
		}
		code := res.StatusCode()
		return code == http.StatusTooManyRequests || code >= 500
	})

	// the burst is at least 1 so that fractional rates still let requests through
	burst := int(opts.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)

	return &Client{
		BaseUrl: baseUrl,
		Http:    httpClient,
		cache:   opts.Cache,
		tel:     tel,
	}, nil
}

// get fetches endpoint (relative to the base url) and parses it, any non 2xx status is
// returned as a *StatusError. Only successful bodies are written to the cache.
func (c *Client) get(ctx context.Context, endpoint string, cached bool) (*goquery.Document, error) {
	full := strings.TrimSuffix(c.BaseUrl.String(), "/") + endpoint
	if cached && c.cache != nil {
		body, ok := c.cache.Get(ctx, full)
		if ok {
			c.tel.ReportDebug("cache hit", endpoint)
			return goquery.NewDocumentFromReader(bytes.NewReader(body))
		}
	}

	res, err := c.Http.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	if res.IsError() || res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return nil, &StatusError{Url: endpoint, StatusCode: res.StatusCode()}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_get, fmt.Errorf("parse: %w", err), endpoint)
		return nil, err
	}

	if cached && c.cache != nil {
		c.cache.Set(ctx, full, res.Body())
	}
	return doc, nil
}
