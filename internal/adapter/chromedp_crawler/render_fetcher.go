package chromedp_crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/polite-crawler/internal/entity"
	"github.com/user/polite-crawler/internal/repository"
)

// politeness is satisfied by httpfetch.Resolver.
type politeness interface {
	Allowed(ctx context.Context, target *url.URL) (bool, error)
}

type Options struct {
	UserAgent string
	Timeout   time.Duration
	// ExecPath overrides the browser binary lookup.
	ExecPath string
	Logger   *zap.Logger
}

// RenderFetcher loads pages in a headless browser and returns the rendered
// DOM. robots.txt is checked through the same resolver as the HTTP client.
type RenderFetcher struct {
	allocCtx   context.Context
	cancel     context.CancelFunc
	politeness politeness
	timeout    time.Duration
	logger     *zap.Logger
}

var _ repository.Fetcher = (*RenderFetcher)(nil)

// NewRenderFetcher prepares a browser allocator. The browser itself starts on
// the first Get.
func NewRenderFetcher(p politeness, opts Options) *RenderFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(opts.UserAgent),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	return &RenderFetcher{
		allocCtx:   allocCtx,
		cancel:     cancel,
		politeness: p,
		timeout:    opts.Timeout,
		logger:     opts.Logger,
	}
}

// Close shuts the browser down.
func (f *RenderFetcher) Close() {
	f.cancel()
}

func (f *RenderFetcher) Get(ctx context.Context, target *url.URL) (*entity.FetchResult, error) {
	allowed, err := f.politeness.Allowed(ctx, target)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s", repository.ErrPolitenessDenied, target)
	}

	taskCtx, cancel := chromedp.NewContext(f.allocCtx, chromedp.WithLogf(f.logger.Sugar().Debugf))
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, f.timeout)
	defer cancelTimeout()

	var (
		mu       sync.Mutex
		status   int64
		finalURL string
		mimeType string
	)
	// The first document response is the main frame after all redirects.
	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok || e.Type != network.ResourceTypeDocument {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if status == 0 {
			status = e.Response.Status
			finalURL = e.Response.URL
			mimeType = e.Response.MimeType
		}
	})

	var html string
	start := time.Now()
	err = chromedp.Run(taskCtx,
		network.Enable(),
		chromedp.Navigate(target.String()),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		f.logger.Warn("render failed", zap.String("url", target.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: render %s: %w", repository.ErrTransport, target, err)
	}

	mu.Lock()
	defer mu.Unlock()
	f.logger.Debug("rendered",
		zap.String("url", target.String()),
		zap.Int64("status", status),
		zap.Duration("took", time.Since(start)),
	)
	return result(target, int(status), finalURL, mimeType, html)
}

func result(target *url.URL, status int, finalURL, mimeType, html string) (*entity.FetchResult, error) {
	if status != http.StatusOK {
		return nil, &repository.StatusError{URL: target.String(), Code: status}
	}
	u := target
	if finalURL != "" {
		if parsed, err := url.Parse(finalURL); err == nil {
			u = parsed
		}
	}
	return &entity.FetchResult{
		URL:         u,
		Status:      status,
		ContentType: mimeType + "; charset=utf-8",
		Body:        []byte(html),
	}, nil
}
