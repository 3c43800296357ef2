package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://Example.COM/a", "https://example.com/a"},
		{"drops default port", "https://example.com:443/a", "https://example.com/a"},
		{"drops fragment", "https://example.com/a#top", "https://example.com/a"},
		{"sorts query", "https://example.com/a?b=2&a=1", "https://example.com/a?a=1&b=2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			u, err := url.Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, NormalizeURL(u))
		})
	}
}

func TestParseAbsolute(t *testing.T) {
	t.Parallel()

	u, err := ParseAbsolute("  https://example.com/x ")
	require.NoError(t, err)
	assert.Equal(t, "example.com", u.Host)

	for _, raw := range []string{"/relative", "mailto:a@b.c", "ftp://example.com/", "https://"} {
		_, err := ParseAbsolute(raw)
		assert.ErrorIs(t, err, ErrNotAbsolute, raw)
	}
}

func TestHashURLStable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, HashURL("https://example.com"), HashURL("https://example.com"))
	assert.NotEqual(t, HashURL("https://example.com/a"), HashURL("https://example.com/b"))
	assert.Len(t, HashURL("x"), 64)
}
