package repository

import (
	"context"
	"net/url"

	"github.com/user/polite-crawler/internal/entity"
)

// Fetcher defines the contract for retrieving a page while honouring robots.txt.
type Fetcher interface {
	// Get returns the terminal 200 response for u or a classified error.
	Get(ctx context.Context, u *url.URL) (*entity.FetchResult, error)
}
