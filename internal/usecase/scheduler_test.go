package usecase

import (
	"context"
	"errors"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/user/polite-crawler/internal/adapter/memory"
	"github.com/user/polite-crawler/pkg/metrics"
)

type countingCrawler struct {
	calls atomic.Int32
	err   error
}

func (c *countingCrawler) Drive(context.Context) (bool, error) {
	c.calls.Add(1)
	return true, c.err
}

func TestSchedulerKeepsRunningOnErrors(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	c := &countingCrawler{err: errors.New("boom")}
	s := NewScheduler(c, 5*time.Millisecond, nil, zap.New(core), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return c.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.GreaterOrEqual(t, logs.FilterMessage("crawl step error").Len(), 3)
}

func TestSchedulerTickUpdatesQueueGauge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	frontier := memory.NewFrontier(memory.FIFO)
	u, _ := url.Parse("https://shop.example/")
	require.NoError(t, frontier.Add(ctx, []*url.URL{u}))

	m := metrics.New(prometheus.NewRegistry())
	s := NewScheduler(&countingCrawler{}, time.Second, frontier, nil, m)
	s.Tick(ctx)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.URLsInQueue))
}

func TestSchedulerNonPositiveIntervalFallsBack(t *testing.T) {
	t.Parallel()

	for _, d := range []time.Duration{0, -time.Second} {
		s := NewScheduler(&countingCrawler{}, d, nil, nil, nil)
		assert.Equal(t, DefaultPollInterval, s.interval)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.NotPanics(t, func() { _ = s.Run(ctx) })
	}
}
