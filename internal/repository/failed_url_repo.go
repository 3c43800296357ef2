package repository

import (
	"context"

	"github.com/user/polite-crawler/internal/entity"
)

// FailedURLRepository keeps a record of URLs whose crawl step failed.
type FailedURLRepository interface {
	// SaveOrUpdate creates or updates a record for a failed URL.
	SaveOrUpdate(ctx context.Context, failedURL *entity.FailedURL) error
	// FindRecent returns the most recently failed URLs.
	FindRecent(ctx context.Context, limit int) ([]*entity.FailedURL, error)
	// Delete removes a failed URL record, typically after a successful crawl.
	Delete(ctx context.Context, url string) error
}
