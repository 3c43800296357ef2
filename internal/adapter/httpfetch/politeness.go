package httpfetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/user/polite-crawler/internal/entity"
	"github.com/user/polite-crawler/internal/repository"
	"github.com/user/polite-crawler/pkg/metrics"
)

// robotsSource fetches robots.txt without a politeness check of its own.
type robotsSource interface {
	GetNoCheck(ctx context.Context, target *url.URL) (*entity.FetchResult, error)
}

type ResolverOptions struct {
	AgentName string
	// CacheSize of 0 keeps every host; CacheTTL of 0 never expires entries.
	CacheSize int
	CacheTTL  time.Duration
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// Resolver decides whether a URL may be fetched according to its host's
// robots.txt. A path is allowed only if both the wildcard section and the
// section for the crawler's own agent allow it.
type Resolver struct {
	source  robotsSource
	agent   string
	cache   *expirable.LRU[string, *robotstxt.RobotsData]
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewResolver(source robotsSource, opts ResolverOptions) *Resolver {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	agent := strings.TrimSpace(opts.AgentName)
	if agent == "" {
		agent = "*"
	}
	return &Resolver{
		source:  source,
		agent:   agent,
		cache:   expirable.NewLRU[string, *robotstxt.RobotsData](opts.CacheSize, nil, opts.CacheTTL),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Allowed reports whether target may be fetched. Errors come from fetching
// robots.txt and are not cached.
func (r *Resolver) Allowed(ctx context.Context, target *url.URL) (bool, error) {
	if target == nil || !target.IsAbs() || target.Host == "" {
		return false, fmt.Errorf("%w: not an absolute url: %v", repository.ErrMalformedResponse, target)
	}
	host := strings.ToLower(target.Host)

	rules, cached := r.cache.Get(host)
	if !cached {
		var err error
		rules, err = r.fetch(ctx, target.Scheme, host)
		if err != nil {
			return false, err
		}
		r.cache.Add(host, rules)
	}

	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	allowed := rules.TestAgent(path, "*") && rules.TestAgent(path, r.agent)

	r.metrics.IncRobots(allowed, cached)
	r.logger.Debug("robots.txt checked",
		zap.String("host", host),
		zap.String("path", path),
		zap.Bool("allowed", allowed),
		zap.Bool("cached", cached),
	)
	return allowed, nil
}

// Purge evicts the cached policy for host.
func (r *Resolver) Purge(host string) {
	r.cache.Remove(strings.ToLower(strings.TrimSpace(host)))
}

// Len is the number of cached policies.
func (r *Resolver) Len() int {
	return r.cache.Len()
}

// fetch loads robots.txt for host, which must already be lower-cased so the
// request matches the cache key.
func (r *Resolver) fetch(ctx context.Context, scheme, host string) (*robotstxt.RobotsData, error) {
	robotsURL := &url.URL{Scheme: scheme, Host: host, Path: "/robots.txt"}

	res, err := r.source.GetNoCheck(ctx, robotsURL)
	switch {
	case err == nil:
		data, perr := robotstxt.FromStatusAndBytes(res.Status, res.Body)
		if perr != nil {
			return nil, fmt.Errorf("%w: parse %s: %w", repository.ErrMalformedResponse, robotsURL, perr)
		}
		r.logger.Info("fetched robots.txt", zap.String("url", robotsURL.String()))
		return data, nil
	case repository.IsNotFound(err):
		// No robots.txt means no restrictions.
		r.logger.Info("no robots.txt", zap.String("url", robotsURL.String()))
		return robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)
	default:
		return nil, fmt.Errorf("fetch %s: %w", robotsURL, err)
	}
}
