package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/user/polite-crawler/internal/entity"
	"github.com/user/polite-crawler/internal/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS extracted_records (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	url       TEXT NOT NULL,
	payload   TEXT NOT NULL,
	stored_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS extracted_records_url_idx ON extracted_records (url);`

// Open opens (or creates) the database file at path and prepares the schema.
// A single connection is kept so ":memory:" databases behave as one database.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

// RecordStore writes each batch as JSON rows inside one transaction.
type RecordStore[R any] struct {
	db    *sql.DB
	urlOf func(R) string
}

var _ repository.RecordStore[entity.Record] = (*RecordStore[entity.Record])(nil)

func NewRecordStore[R any](db *sql.DB, urlOf func(R) string) *RecordStore[R] {
	return &RecordStore[R]{db: db, urlOf: urlOf}
}

func NewEntityRecordStore(db *sql.DB) *RecordStore[entity.Record] {
	return NewRecordStore(db, func(r entity.Record) string { return r.URL })
}

func (s *RecordStore[R]) Store(ctx context.Context, records []R) (err error) {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO extracted_records (url, payload) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
		var src string
		if s.urlOf != nil {
			src = s.urlOf(rec)
		}
		if _, err := stmt.ExecContext(ctx, src, string(payload)); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of stored rows for url.
func (s *RecordStore[R]) Count(ctx context.Context, url string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM extracted_records WHERE url = ?`, url).Scan(&n)
	return n, err
}
