package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/user/polite-crawler/internal/entity"
	"github.com/user/polite-crawler/internal/repository"
)

const insertRecord = `INSERT INTO extracted_records (url, payload) VALUES ($1, $2)`

// RecordStore writes each batch as JSONB rows inside one transaction.
type RecordStore[R any] struct {
	db    DBTX
	urlOf func(R) string
}

var _ repository.RecordStore[entity.Record] = (*RecordStore[entity.Record])(nil)

// NewRecordStore creates a store. urlOf extracts the source URL for the url
// column; nil leaves it empty.
func NewRecordStore[R any](db DBTX, urlOf func(R) string) *RecordStore[R] {
	return &RecordStore[R]{db: db, urlOf: urlOf}
}

// NewEntityRecordStore is a RecordStore for the records the selector
// extractor produces.
func NewEntityRecordStore(db DBTX) *RecordStore[entity.Record] {
	return NewRecordStore(db, func(r entity.Record) string { return r.URL })
}

func (s *RecordStore[R]) Store(ctx context.Context, records []R) error {
	if len(records) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for i, rec := range records {
			payload, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("encode record %d: %w", i, err)
			}
			var src string
			if s.urlOf != nil {
				src = s.urlOf(rec)
			}
			if _, err := tx.Exec(ctx, insertRecord, src, payload); err != nil {
				return fmt.Errorf("insert record %d: %w", i, err)
			}
		}
		return nil
	})
}
