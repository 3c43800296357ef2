package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/polite-crawler/internal/adapter/sqlite"
	"github.com/user/polite-crawler/pkg/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		UserAgent:           "polite-crawler-test",
		AgentName:           "polite-crawler",
		FetchTimeout:        5,
		MaxRedirects:        10,
		FetchMode:           "http",
		Frontier:            "memory",
		FrontierOrder:       "fifo",
		Storage:             "log",
		ExtractFields:       "title=title",
		ExtractLinkSelector: "a[href]",
	}
}

func TestBuildCrawlsSeeds(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
		case "/":
			fmt.Fprint(w, `<html><head><title>Home</title></head><body><a href="/private/x">p</a><a href="/next">n</a></body></html>`)
		case "/next":
			fmt.Fprint(w, `<html><head><title>Next</title></head></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := baseConfig()
	cfg.SeedURLs = srv.URL + "/"
	cfg.Storage = "sqlite"
	cfg.SQLitePath = filepath.Join(t.TempDir(), "records.db")

	ctx := context.Background()
	app, err := build(ctx, cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	defer app.Close()

	var errs []error
	for {
		progressed, err := app.Driver.Drive(ctx)
		if err != nil {
			errs = append(errs, err)
		}
		if !progressed {
			break
		}
	}
	require.Len(t, errs, 1, "only the disallowed page should fail")

	for path, want := range map[string]string{"/": "visited", "/next": "visited", "/private/x": "visited"} {
		u, _ := url.Parse(srv.URL + path)
		st, err := app.Inspector.Status(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, want, st, path)
	}

	db, err := sqlite.Open(ctx, cfg.SQLitePath)
	require.NoError(t, err)
	defer db.Close()
	n, err := sqlite.NewEntityRecordStore(db).Count(ctx, srv.URL+"/next")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBuildRejectsUnknownBackends(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, mutate := range map[string]func(*config.Config){
		"fetch mode": func(c *config.Config) { c.FetchMode = "carrier-pigeon" },
		"frontier":   func(c *config.Config) { c.Frontier = "kafka" },
		"storage":    func(c *config.Config) { c.Storage = "tape" },
		"seed":       func(c *config.Config) { c.SeedURLs = "/relative" },
		"proxy":      func(c *config.Config) { c.ProxyURLs = "nohost" },
	} {
		cfg := baseConfig()
		mutate(cfg)
		_, err := build(ctx, cfg, zap.NewNop(), nil)
		assert.Error(t, err, name)
	}
}

func TestBuildDefaultsToLogSink(t *testing.T) {
	t.Parallel()

	app, err := build(context.Background(), baseConfig(), zap.NewNop(), nil)
	require.NoError(t, err)
	defer app.Close()
	assert.Nil(t, app.FailedURLs)
	assert.NotNil(t, app.Driver)
}

func TestRobotsCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
	}))
	defer srv.Close()
	t.Setenv("LOG_LEVEL", "error")

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"robots", srv.URL + "/private/a", srv.URL + "/public"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, fmt.Sprintf("disallowed\t%s/private/a\nallowed\t%s/public\n", srv.URL, srv.URL), out.String())
}
