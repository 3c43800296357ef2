package repository

import (
	"net/url"

	"github.com/user/polite-crawler/internal/document"
)

// Extractor turns a fetched document into records and further URLs to visit.
type Extractor[R any] interface {
	Extract(u *url.URL, doc *document.Document) ([]R, error)
	Discover(u *url.URL, doc *document.Document) ([]*url.URL, error)
}

// Explorer is the older exploration contract: Idle returns URLs that should be
// fetched regardless of any page (seeds, time based), OnFetched returns URLs
// found on a fetched page.
type Explorer interface {
	Idle() []*url.URL
	OnFetched(u *url.URL, doc *document.Document) []*url.URL
}
