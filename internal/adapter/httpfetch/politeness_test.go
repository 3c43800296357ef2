package httpfetch

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/polite-crawler/internal/entity"
	"github.com/user/polite-crawler/internal/repository"
)

func TestPolitenessDeniedWildcard(t *testing.T) {
	t.Parallel()

	s := newSite(t, "User-agent: *\nDisallow: /private/\n", map[string]http.HandlerFunc{
		"/private/": body("secret"),
		"/public":   body("hello"),
	})
	c := s.client()

	_, err := c.Get(context.Background(), s.url(t, "/private/page"))
	require.ErrorIs(t, err, repository.ErrPolitenessDenied)
	assert.Equal(t, 0, s.hitCount("/private/page"))

	res, err := c.Get(context.Background(), s.url(t, "/public"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(res.Body))
}

func TestPolitenessConjunction(t *testing.T) {
	t.Parallel()

	robots := "User-agent: *\nAllow: /\n\nUser-agent: polite-crawler\nDisallow: /shop/\n"
	s := newSite(t, robots, map[string]http.HandlerFunc{
		"/shop/": body("prices"),
		"/about": body("about"),
	})
	c := s.client()

	_, err := c.Get(context.Background(), s.url(t, "/shop/cameras"))
	require.ErrorIs(t, err, repository.ErrPolitenessDenied)
	assert.Equal(t, 0, s.hitCount("/shop/cameras"))

	_, err = c.Get(context.Background(), s.url(t, "/about"))
	assert.NoError(t, err)
}

func TestPolitenessAgentAllowsButWildcardDenies(t *testing.T) {
	t.Parallel()

	robots := "User-agent: *\nDisallow: /\n\nUser-agent: polite-crawler\nAllow: /\n"
	s := newSite(t, robots, map[string]http.HandlerFunc{"/page": body("x")})

	_, err := s.client().Get(context.Background(), s.url(t, "/page"))
	assert.ErrorIs(t, err, repository.ErrPolitenessDenied)
}

func TestPolitenessCachesPerHost(t *testing.T) {
	t.Parallel()

	s := newSite(t, "User-agent: *\nDisallow: /private/\n", map[string]http.HandlerFunc{"/a": body("a"), "/b": body("b")})
	c := s.client()

	for _, p := range []string{"/a", "/b", "/private/x", "/a"} {
		_, _ = c.Get(context.Background(), s.url(t, p))
	}
	assert.Equal(t, 1, s.hitCount("/robots.txt"))
	assert.Equal(t, 1, c.Resolver().Len())

	c.Resolver().Purge(s.url(t, "/").Host)
	_, err := c.Get(context.Background(), s.url(t, "/a"))
	require.NoError(t, err)
	assert.Equal(t, 2, s.hitCount("/robots.txt"))
}

func TestPolitenessMissingRobotsAllowsAll(t *testing.T) {
	t.Parallel()

	s := newSite(t, "", map[string]http.HandlerFunc{"/anything": body("ok")})

	_, err := s.client().Get(context.Background(), s.url(t, "/anything"))
	assert.NoError(t, err)
}

// stubSource serves canned robots.txt responses keyed by host.
type stubSource struct {
	bodies map[string]string
	errs   map[string]error
	calls  int
	asked  []string
}

func (s *stubSource) GetNoCheck(_ context.Context, target *url.URL) (*entity.FetchResult, error) {
	s.calls++
	s.asked = append(s.asked, target.String())
	if err, ok := s.errs[target.Host]; ok {
		return nil, err
	}
	if b, ok := s.bodies[target.Host]; ok {
		return &entity.FetchResult{URL: target, Status: http.StatusOK, Body: []byte(b)}, nil
	}
	return nil, &repository.StatusError{URL: target.String(), Code: http.StatusNotFound}
}

func TestResolverFetchErrorNotCached(t *testing.T) {
	t.Parallel()

	src := &stubSource{errs: map[string]error{"down.example": repository.ErrTransport}}
	r := NewResolver(src, ResolverOptions{AgentName: testAgentName})
	u, _ := url.Parse("https://down.example/page")

	for i := 0; i < 2; i++ {
		ok, err := r.Allowed(context.Background(), u)
		assert.False(t, ok)
		assert.ErrorIs(t, err, repository.ErrTransport)
	}
	assert.Equal(t, 2, src.calls)
	assert.Zero(t, r.Len())
}

func TestResolverKeyedByHost(t *testing.T) {
	t.Parallel()

	src := &stubSource{bodies: map[string]string{
		"a.example": "User-agent: *\nDisallow: /\n",
		"b.example": "User-agent: *\nAllow: /\n",
	}}
	r := NewResolver(src, ResolverOptions{AgentName: testAgentName})

	a, _ := url.Parse("https://A.example/x")
	b, _ := url.Parse("https://b.example/x")

	ok, err := r.Allowed(context.Background(), a)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.Allowed(context.Background(), b)
	require.NoError(t, err)
	assert.True(t, ok)

	_, _ = r.Allowed(context.Background(), a)
	assert.Equal(t, 2, src.calls)
}

func TestResolverFetchesLowerCasedHost(t *testing.T) {
	t.Parallel()

	src := &stubSource{bodies: map[string]string{"shop.example:8443": "User-agent: *\nDisallow: /cart\n"}}
	r := NewResolver(src, ResolverOptions{AgentName: testAgentName})
	u, _ := url.Parse("https://SHOP.Example:8443/cart")

	ok, err := r.Allowed(context.Background(), u)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"https://shop.example:8443/robots.txt"}, src.asked)
}

func TestResolverTTL(t *testing.T) {
	t.Parallel()

	src := &stubSource{bodies: map[string]string{"ttl.example": "User-agent: *\nAllow: /\n"}}
	r := NewResolver(src, ResolverOptions{AgentName: testAgentName, CacheTTL: 50 * time.Millisecond})
	u, _ := url.Parse("https://ttl.example/")

	_, err := r.Allowed(context.Background(), u)
	require.NoError(t, err)
	time.Sleep(120 * time.Millisecond)
	_, err = r.Allowed(context.Background(), u)
	require.NoError(t, err)

	assert.Equal(t, 2, src.calls)
}

func TestResolverRejectsRelative(t *testing.T) {
	t.Parallel()

	r := NewResolver(&stubSource{}, ResolverOptions{})
	ok, err := r.Allowed(context.Background(), &url.URL{Path: "/x"})
	assert.False(t, ok)
	assert.Error(t, err)
}
