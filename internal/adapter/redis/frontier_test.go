package redis

import (
	"context"
	"net/url"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/polite-crawler/internal/entity"
	"github.com/user/polite-crawler/internal/repository"
)

func newFrontier(t *testing.T) (*Frontier, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewFrontier(client), mr
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestFrontierFIFO(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f, _ := newFrontier(t)

	require.NoError(t, f.Add(ctx, []*url.URL{
		mustURL(t, "https://a.example/1"),
		mustURL(t, "https://a.example/2"),
	}))
	require.NoError(t, f.Add(ctx, []*url.URL{mustURL(t, "https://a.example/3")}))

	var got []string
	for {
		u, err := f.Next(ctx)
		if err != nil {
			require.ErrorIs(t, err, repository.ErrFrontierEmpty)
			break
		}
		got = append(got, u.String())
	}
	assert.Equal(t, []string{"https://a.example/1", "https://a.example/2", "https://a.example/3"}, got)
}

func TestFrontierVisitedIsSkipped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f, mr := newFrontier(t)

	u := mustURL(t, "https://a.example/page")
	require.NoError(t, f.Visited(ctx, u))
	assert.Equal(t, 0, int(mr.TTL(visitedKey("https://a.example/page"))))

	require.NoError(t, f.Add(ctx, []*url.URL{u, mustURL(t, "https://A.EXAMPLE/page#x")}))
	_, err := f.Next(ctx)
	assert.ErrorIs(t, err, repository.ErrFrontierEmpty)
}

func TestFrontierDedupesPending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f, _ := newFrontier(t)

	u := mustURL(t, "https://a.example/x")
	require.NoError(t, f.Add(ctx, []*url.URL{u, u}))
	require.NoError(t, f.Add(ctx, []*url.URL{u}))

	n, err := f.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestFrontierVisitedRemovesPending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f, _ := newFrontier(t)

	a, b := mustURL(t, "https://a.example/a"), mustURL(t, "https://a.example/b")
	require.NoError(t, f.Add(ctx, []*url.URL{a, b}))
	require.NoError(t, f.Visited(ctx, a))

	next, err := f.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.String(), next.String())
}

func TestFrontierNextClearsPending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f, mr := newFrontier(t)

	u := mustURL(t, "https://a.example/n")
	require.NoError(t, f.Add(ctx, []*url.URL{u}))
	ok, err := mr.SIsMember(pendingSetKey, u.String())
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.Next(ctx)
	require.NoError(t, err)
	members, _ := mr.Members(pendingSetKey)
	assert.Empty(t, members)
	assert.False(t, mr.Exists(crawlQueueKey))
}

func TestFrontierNextErrorKeepsQueue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f, mr := newFrontier(t)

	u := mustURL(t, "https://a.example/keep")
	require.NoError(t, f.Add(ctx, []*url.URL{u}))

	mr.SetError("ERR server unavailable")
	_, err := f.Next(ctx)
	require.Error(t, err)
	mr.SetError("")

	queued, err := mr.List(crawlQueueKey)
	require.NoError(t, err)
	assert.Equal(t, []string{u.String()}, queued)
	ok, err := mr.SIsMember(pendingSetKey, u.String())
	require.NoError(t, err)
	assert.True(t, ok)

	next, err := f.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, u.String(), next.String())
}

func TestFrontierStatusAndForget(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f, _ := newFrontier(t)

	p, v := mustURL(t, "https://a.example/p"), mustURL(t, "https://a.example/v")
	require.NoError(t, f.Add(ctx, []*url.URL{p}))
	require.NoError(t, f.Visited(ctx, v))

	st, err := f.Status(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, st)

	st, err = f.Status(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusVisited, st)

	st, err = f.Status(ctx, mustURL(t, "https://a.example/none"))
	require.NoError(t, err)
	assert.Equal(t, entity.StatusUnknown, st)

	require.NoError(t, f.Forget(ctx, v))
	st, err = f.Status(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusUnknown, st)
}

func TestFrontierServerDown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f, mr := newFrontier(t)
	mr.Close()

	err := f.Add(ctx, []*url.URL{mustURL(t, "https://a.example/")})
	assert.Error(t, err)
	_, err = f.Next(ctx)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrFrontierEmpty)
}

func TestConnectFails(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Connect(context.Background(), addr, "", 0)
	assert.Error(t, err)
}
