package repository

import "context"

// RecordStore receives the batch of records extracted from one page.
type RecordStore[R any] interface {
	Store(ctx context.Context, records []R) error
}
