package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/user/polite-crawler/internal/entity"
	"github.com/user/polite-crawler/internal/repository"
	"github.com/user/polite-crawler/pkg/metrics"
)

const (
	DefaultMaxRedirects = 10
	DefaultTimeout      = 30 * time.Second
	// DefaultMaxBodyBytes caps a single response body, robots.txt included.
	DefaultMaxBodyBytes int64 = 10 << 20
)

// Options controls how the fetch client talks to the network.
type Options struct {
	// UserAgent is sent verbatim with every request, robots.txt included.
	UserAgent string
	// AgentName is the product token matched against robots.txt
	// User-agent sections.
	AgentName    string
	MaxRedirects int
	// Timeout bounds one logical fetch including all redirect hops.
	Timeout time.Duration
	// MaxBodyBytes caps the body of a 200 response. Larger bodies fail with
	// ErrMalformedResponse.
	MaxBodyBytes int64

	// HTTPClient replaces the underlying client, mainly for tests.
	HTTPClient *http.Client
	// Proxy selects a proxy per request. Ignored when HTTPClient is set.
	Proxy func(*http.Request) (*url.URL, error)

	RobotsCacheSize int
	RobotsCacheTTL  time.Duration

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Client performs politeness-checked GET requests with manual redirect handling.
type Client struct {
	http         *resty.Client
	resolver     *Resolver
	maxRedirects int
	maxBody      int64
	timeout      time.Duration
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

// NewClient builds a Client and its robots.txt resolver.
func NewClient(opts Options) *Client {
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
		if opts.Proxy != nil {
			tr := http.DefaultTransport.(*http.Transport).Clone()
			tr.Proxy = opts.Proxy
			rc.SetTransport(tr)
		}
	}
	rc.SetHeader("User-Agent", opts.UserAgent)
	rc.SetLogger(opts.Logger.Sugar())
	// Redirects are followed by hand so hops can be counted and classified.
	rc.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))

	c := &Client{
		http:         rc,
		maxRedirects: opts.MaxRedirects,
		maxBody:      opts.MaxBodyBytes,
		timeout:      opts.Timeout,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
	}
	c.resolver = NewResolver(c, ResolverOptions{
		AgentName: opts.AgentName,
		CacheSize: opts.RobotsCacheSize,
		CacheTTL:  opts.RobotsCacheTTL,
		Logger:    opts.Logger,
		Metrics:   opts.Metrics,
	})
	return c
}

// Resolver exposes the politeness resolver so other fetchers can share its cache.
func (c *Client) Resolver() *Resolver {
	return c.resolver
}

// Get checks robots.txt for target and, if permitted, fetches it.
func (c *Client) Get(ctx context.Context, target *url.URL) (*entity.FetchResult, error) {
	allowed, err := c.resolver.Allowed(ctx, target)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s", repository.ErrPolitenessDenied, target)
	}

	start := time.Now()
	res, err := c.GetNoCheck(ctx, target)
	c.metrics.ObserveFetch(target.Hostname(), time.Since(start).Seconds())
	return res, err
}

// GetNoCheck fetches target following redirects without consulting robots.txt.
// It is used for robots.txt itself and for diagnostics.
func (c *Client) GetNoCheck(ctx context.Context, target *url.URL) (*entity.FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	current := target
	lastStatus := 0
	// One initial request plus at most maxRedirects hops.
	for attempt := 0; attempt <= c.maxRedirects; attempt++ {
		// The body is streamed so it can be capped before it is buffered.
		resp, err := c.http.R().SetContext(ctx).SetDoNotParseResponse(true).Get(current.String())
		if err != nil {
			return nil, fmt.Errorf("%w: GET %s: %w", repository.ErrTransport, current, err)
		}

		status := resp.StatusCode()
		c.logger.Debug("GET",
			zap.Int("attempt", attempt),
			zap.String("url", current.String()),
			zap.Int("status", status),
		)

		if status == http.StatusOK {
			body, err := c.readBody(resp.RawBody(), current)
			if err != nil {
				return nil, err
			}
			return &entity.FetchResult{
				URL:         current,
				Status:      status,
				ContentType: resp.Header().Get("Content-Type"),
				Body:        body,
			}, nil
		}
		closeBody(resp.RawBody())

		switch status {
		case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
			http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
			next, err := redirectTarget(current, resp.Header().Get("Location"))
			if err != nil {
				c.logger.Warn("redirect without usable location",
					zap.String("url", current.String()),
					zap.Int("status", status),
				)
				return nil, fmt.Errorf("%w: %d from %s: %w", repository.ErrMalformedResponse, status, current, err)
			}
			c.logger.Debug("following redirect", zap.Int("attempt", attempt), zap.String("location", next.String()))
			current = next
		case http.StatusNotFound:
			return nil, &repository.StatusError{URL: current.String(), Code: status}
		}
		lastStatus = status
	}
	return nil, fmt.Errorf("%w: %s after %d requests (last status %d)",
		repository.ErrRedirectExhausted, target, c.maxRedirects+1, lastStatus)
}

// readBody reads at most maxBody bytes and fails if the body is longer.
func (c *Client) readBody(rc io.ReadCloser, current *url.URL) ([]byte, error) {
	if rc == nil {
		return nil, nil
	}
	defer closeBody(rc)

	body, err := io.ReadAll(io.LimitReader(rc, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body of %s: %w", repository.ErrTransport, current, err)
	}
	if int64(len(body)) > c.maxBody {
		c.logger.Warn("response body too large",
			zap.String("url", current.String()),
			zap.Int64("limit", c.maxBody),
		)
		return nil, fmt.Errorf("%w: body of %s exceeds %d bytes", repository.ErrMalformedResponse, current, c.maxBody)
	}
	return body, nil
}

func closeBody(rc io.ReadCloser) {
	if rc != nil {
		_ = rc.Close()
	}
}

func redirectTarget(current *url.URL, location string) (*url.URL, error) {
	if location == "" {
		return nil, fmt.Errorf("missing Location header")
	}
	next, err := current.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parse Location %q: %w", location, err)
	}
	if (next.Scheme != "http" && next.Scheme != "https") || next.Host == "" {
		return nil, fmt.Errorf("unsupported Location %q", location)
	}
	return next, nil
}
