package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/user/polite-crawler/internal/document"
	"github.com/user/polite-crawler/internal/entity"
	"github.com/user/polite-crawler/internal/repository"
	"github.com/user/polite-crawler/pkg/metrics"
)

// Crawler defines the interface for the core crawling process.
type Crawler interface {
	// Drive runs one crawl step. It reports false when the frontier was
	// empty and nothing was attempted.
	Drive(ctx context.Context) (bool, error)
}

// Driver pulls one URL per step from the frontier, fetches and extracts it,
// stores the records and feeds discovered URLs back into the frontier.
// It is not safe for concurrent Drive calls.
type Driver[R any] struct {
	frontier  repository.Frontier
	fetcher   repository.Fetcher
	extractor repository.Extractor[R]
	store     repository.RecordStore[R]

	explorer      repository.Explorer
	failedURLRepo repository.FailedURLRepository
	logger        *zap.Logger
	metrics       *metrics.Metrics
}

type Option[R any] func(*Driver[R])

// WithExplorer adds the older exploration hooks to every step.
func WithExplorer[R any](e repository.Explorer) Option[R] {
	return func(d *Driver[R]) { d.explorer = e }
}

// WithFailedURLs records failed steps and clears them after a success.
func WithFailedURLs[R any](repo repository.FailedURLRepository) Option[R] {
	return func(d *Driver[R]) { d.failedURLRepo = repo }
}

func WithLogger[R any](l *zap.Logger) Option[R] {
	return func(d *Driver[R]) { d.logger = l }
}

func WithMetrics[R any](m *metrics.Metrics) Option[R] {
	return func(d *Driver[R]) { d.metrics = m }
}

// NewDriver creates a Driver from its four collaborators.
func NewDriver[R any](
	frontier repository.Frontier,
	fetcher repository.Fetcher,
	extractor repository.Extractor[R],
	store repository.RecordStore[R],
	opts ...Option[R],
) *Driver[R] {
	d := &Driver[R]{
		frontier:  frontier,
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver[R]) Drive(ctx context.Context) (bool, error) {
	if d.explorer != nil {
		if seeds := d.explorer.Idle(); len(seeds) > 0 {
			if err := d.frontier.Add(ctx, seeds); err != nil {
				return false, fmt.Errorf("add idle urls: %w", err)
			}
		}
	}

	u, err := d.frontier.Next(ctx)
	if errors.Is(err, repository.ErrFrontierEmpty) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to take URL from frontier: %w", err)
	}

	d.logger.Info("processing url", zap.String("url", u.String()))

	records, discovered, err := d.process(ctx, u)
	if err != nil {
		return true, d.handleFailure(ctx, u, err)
	}

	var storeErr error
	if len(records) > 0 {
		if err := d.store.Store(ctx, records); err != nil {
			storeErr = fmt.Errorf("%w: %s: %w", repository.ErrStorage, u, err)
			d.logger.Error("storing records failed", zap.String("url", u.String()), zap.Error(err))
		} else {
			d.metrics.AddStored(len(records))
		}
	}

	if len(discovered) > 0 {
		if err := d.frontier.Add(ctx, discovered); err != nil {
			return true, errors.Join(storeErr, fmt.Errorf("failed to add discovered URLs: %w", err))
		}
	}
	if err := d.frontier.Visited(ctx, u); err != nil {
		return true, errors.Join(storeErr, fmt.Errorf("failed to mark %s visited: %w", u, err))
	}

	if storeErr != nil {
		d.metrics.IncCrawl("failure", Classify(storeErr))
		return true, storeErr
	}
	d.metrics.IncCrawl("success", "")
	if d.failedURLRepo != nil {
		if err := d.failedURLRepo.Delete(ctx, u.String()); err != nil {
			// This is not a critical error, just log it.
			d.logger.Warn("failed to clear failed url record", zap.String("url", u.String()), zap.Error(err))
		}
	}
	d.logger.Info("crawl step done",
		zap.String("url", u.String()),
		zap.Int("records", len(records)),
		zap.Int("discovered", len(discovered)),
	)
	return true, nil
}

// process runs fetch, parse and extraction for u. Nothing is written
// anywhere until it succeeds.
func (d *Driver[R]) process(ctx context.Context, u *url.URL) ([]R, []*url.URL, error) {
	res, err := d.fetcher.Get(ctx, u)
	if err != nil {
		return nil, nil, err
	}

	// Relative links resolve against the URL that was finally served.
	base := u
	if res.URL != nil {
		base = res.URL
	}

	doc, err := document.Parse(res.Body, res.ContentType)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", base, err)
	}

	records, err := d.extractor.Extract(base, doc)
	if err != nil {
		return nil, nil, err
	}
	discovered, err := d.extractor.Discover(base, doc)
	if err != nil {
		return nil, nil, err
	}
	if d.explorer != nil {
		discovered = append(discovered, d.explorer.OnFetched(base, doc)...)
	}
	return records, discovered, nil
}

// handleFailure marks u visited so it is not retried forever, records the
// failure and returns the step error.
func (d *Driver[R]) handleFailure(ctx context.Context, u *url.URL, stepErr error) error {
	errorType := Classify(stepErr)
	d.metrics.IncCrawl("failure", errorType)
	d.logger.Error("crawl step failed",
		zap.String("url", u.String()),
		zap.String("error_type", errorType),
		zap.Error(stepErr),
	)

	var errs []error
	errs = append(errs, stepErr)
	if err := d.frontier.Visited(ctx, u); err != nil {
		errs = append(errs, fmt.Errorf("failed to mark %s visited: %w", u, err))
	}

	if d.failedURLRepo != nil {
		failedURL := &entity.FailedURL{
			URL:                  u.String(),
			FailureReason:        stepErr.Error(),
			ErrorType:            errorType,
			LastAttemptTimestamp: time.Now(),
		}
		var se *repository.StatusError
		if errors.As(stepErr, &se) {
			failedURL.HTTPStatusCode = se.Code
		}
		if err := d.failedURLRepo.SaveOrUpdate(ctx, failedURL); err != nil {
			d.logger.Warn("failed to save failed url record", zap.String("url", u.String()), zap.Error(err))
		}
	}
	return errors.Join(errs...)
}

// Classify maps a step error onto a short label for metrics and records.
func Classify(err error) string {
	var se *repository.StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, repository.ErrPolitenessDenied):
		return "politeness"
	case errors.Is(err, repository.ErrRedirectExhausted):
		return "redirects"
	case errors.Is(err, repository.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, repository.ErrTransport):
		return "transport"
	case errors.As(err, &se):
		return "status"
	case errors.Is(err, repository.ErrParse):
		return "parse"
	case errors.Is(err, repository.ErrSelector):
		return "selector"
	case errors.Is(err, repository.ErrExtract):
		return "extraction"
	case errors.Is(err, repository.ErrStorage):
		return "storage"
	default:
		return "unknown"
	}
}
