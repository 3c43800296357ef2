package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/polite-crawler/internal/delivery/http/handler"
	"github.com/user/polite-crawler/internal/delivery/http/router"
	"github.com/user/polite-crawler/internal/usecase"
	"github.com/user/polite-crawler/pkg/config"
	"github.com/user/polite-crawler/pkg/logger"
	"github.com/user/polite-crawler/pkg/metrics"
)

// NewRootCmd creates the root command, which runs the crawler.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawler",
		Short: "Polite crawler honouring robots.txt",
		Long: `crawler pulls URLs from its frontier one step at a time, fetches them while
honouring robots.txt, extracts records with CSS selectors and stores them.

Configuration comes from the environment or a .env file in the working
directory (see SEED_URLS, FRONTIER, STORAGE, EXTRACT_FIELDS).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCrawler,
	}

	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewRobotsCmd())
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCrawler(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	app, err := build(ctx, cfg, log, m)
	if err != nil {
		return err
	}
	defer app.Close()

	scheduler := usecase.NewScheduler(app.Driver, cfg.PollInterval(), app.Inspector, log, m)
	mgr := usecase.NewURLManager(app.Frontier, app.FailedURLs, log)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(handler.NewHandler(mgr, log), log, m, reg),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not listen on port %s: %w", cfg.ServerPort, err)
		}
		return nil
	})
	g.Go(func() error {
		err := scheduler.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("crawler exiting")
	return err
}
