package main

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/user/polite-crawler/internal/adapter/chromedp_crawler"
	"github.com/user/polite-crawler/internal/adapter/httpfetch"
	"github.com/user/polite-crawler/internal/adapter/logsink"
	"github.com/user/polite-crawler/internal/adapter/memory"
	"github.com/user/polite-crawler/internal/adapter/postgres"
	"github.com/user/polite-crawler/internal/adapter/proxy"
	"github.com/user/polite-crawler/internal/adapter/redis"
	"github.com/user/polite-crawler/internal/adapter/sqlite"
	"github.com/user/polite-crawler/internal/entity"
	"github.com/user/polite-crawler/internal/extract"
	"github.com/user/polite-crawler/internal/repository"
	"github.com/user/polite-crawler/internal/usecase"
	"github.com/user/polite-crawler/pkg/config"
	"github.com/user/polite-crawler/pkg/metrics"
	"github.com/user/polite-crawler/pkg/utils"
)

// application is the wired crawler with everything that needs closing.
type application struct {
	Client     *httpfetch.Client
	Frontier   repository.Frontier
	Inspector  repository.FrontierInspector
	FailedURLs repository.FailedURLRepository
	Driver     *usecase.Driver[entity.Record]

	closers []func()
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newClient builds the HTTP fetch client from configuration.
func newClient(cfg *config.Config, log *zap.Logger, m *metrics.Metrics) (*httpfetch.Client, error) {
	proxies, err := proxy.NewManager(cfg.Proxies())
	if err != nil {
		return nil, err
	}
	opts := httpfetch.Options{
		UserAgent:       cfg.UserAgent,
		AgentName:       cfg.AgentName,
		MaxRedirects:    cfg.MaxRedirects,
		MaxBodyBytes:    cfg.MaxBodyBytes,
		Timeout:         cfg.FetchTimeoutDuration(),
		RobotsCacheSize: cfg.RobotsCacheSize,
		RobotsCacheTTL:  cfg.RobotsCacheTTLDuration(),
		Logger:          log,
		Metrics:         m,
	}
	if proxies.Len() > 0 {
		opts.Proxy = proxies.ProxyFunc
		log.Info("proxy rotation enabled", zap.Int("proxies", proxies.Len()))
	}
	return httpfetch.NewClient(opts), nil
}

func build(ctx context.Context, cfg *config.Config, log *zap.Logger, m *metrics.Metrics) (*application, error) {
	app := &application{}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	client, err := newClient(cfg, log, m)
	if err != nil {
		return nil, err
	}
	app.Client = client

	var fetcher repository.Fetcher = client
	switch cfg.FetchMode {
	case "", "http":
	case "render":
		rf := chromedp_crawler.NewRenderFetcher(client.Resolver(), chromedp_crawler.Options{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.FetchTimeoutDuration(),
			Logger:    log,
		})
		app.closers = append(app.closers, rf.Close)
		fetcher = rf
	default:
		return nil, fmt.Errorf("unknown FETCH_MODE %q", cfg.FetchMode)
	}

	switch cfg.Frontier {
	case "", "memory":
		f := memory.NewFrontier(memory.ParseOrder(cfg.FrontierOrder))
		app.Frontier, app.Inspector = f, f
	case "redis":
		rdb, err := redis.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func() { _ = rdb.Close() })
		f := redis.NewFrontier(rdb)
		app.Frontier, app.Inspector = f, f
		log.Info("Redis connection established", zap.String("addr", cfg.RedisAddr))
	default:
		return nil, fmt.Errorf("unknown FRONTIER %q", cfg.Frontier)
	}

	store, err := newStore(ctx, cfg, log, app)
	if err != nil {
		return nil, err
	}

	seeds, err := parseSeeds(cfg.Seeds())
	if err != nil {
		return nil, err
	}

	extractor := extract.NewSelectorExtractor(extract.SelectorOptions{
		Fields:         extract.FieldsFromPairs(cfg.Fields()),
		LinkSelector:   cfg.ExtractLinkSelector,
		FollowExternal: cfg.FollowExternal,
	})

	opts := []usecase.Option[entity.Record]{
		usecase.WithLogger[entity.Record](log),
		usecase.WithMetrics[entity.Record](m),
		usecase.WithExplorer[entity.Record](extract.NewSeedExplorer(seeds)),
	}
	if app.FailedURLs != nil {
		opts = append(opts, usecase.WithFailedURLs[entity.Record](app.FailedURLs))
	}
	app.Driver = usecase.NewDriver[entity.Record](app.Frontier, fetcher, extractor, store, opts...)

	ok = true
	return app, nil
}

func newStore(ctx context.Context, cfg *config.Config, log *zap.Logger, app *application) (repository.RecordStore[entity.Record], error) {
	switch cfg.Storage {
	case "", "log":
		return logsink.New[entity.Record](log), nil
	case "postgres":
		dsn := postgres.DSN(cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
		pool, err := postgres.Connect(ctx, dsn)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, pool.Close)
		app.FailedURLs = postgres.NewFailedURLRepo(pool)
		log.Info("PostgreSQL connection pool established")
		return postgres.NewEntityRecordStore(pool), nil
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func() { _ = db.Close() })
		log.Info("SQLite database opened", zap.String("path", cfg.SQLitePath))
		return sqlite.NewEntityRecordStore(db), nil
	default:
		return nil, fmt.Errorf("unknown STORAGE %q", cfg.Storage)
	}
}

func parseSeeds(raw []string) ([]*url.URL, error) {
	seeds := make([]*url.URL, 0, len(raw))
	for _, r := range raw {
		u, err := utils.ParseAbsolute(r)
		if err != nil {
			return nil, fmt.Errorf("seed %q: %w", r, err)
		}
		seeds = append(seeds, u)
	}
	return seeds, nil
}
