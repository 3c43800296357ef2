package repository

import (
	"context"
	"net/url"
)

// Frontier holds the URLs known but not yet fetched.
//
// Implementations must make Add a no-op for any URL already passed to
// Visited. Ordering of Next is implementation-defined.
type Frontier interface {
	// Add offers a batch of discovered URLs.
	Add(ctx context.Context, urls []*url.URL) error
	// Next removes and returns the URL to fetch next. It returns
	// ErrFrontierEmpty when nothing is pending.
	Next(ctx context.Context) (*url.URL, error)
	// Visited records that u has been fetched, successfully or not. Idempotent.
	Visited(ctx context.Context, u *url.URL) error
}

// FrontierInspector is implemented by frontiers that can report on their
// contents. It is used by the admin API and metrics only.
type FrontierInspector interface {
	Len(ctx context.Context) (int64, error)
	// Status returns one of entity.StatusPending, StatusVisited, StatusUnknown.
	Status(ctx context.Context, u *url.URL) (string, error)
}
