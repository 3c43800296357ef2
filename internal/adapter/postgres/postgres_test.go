package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/polite-crawler/internal/entity"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestRecordStoreWritesBatchInTx(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	store := NewEntityRecordStore(mock)

	recs := []entity.Record{
		{URL: "https://shop.example/a", Fields: []entity.Field{{Name: "title", Value: "A"}}},
		{URL: "https://shop.example/a", Fields: []entity.Field{{Name: "title", Value: "B"}}},
	}

	mock.ExpectBegin()
	for range recs {
		mock.ExpectExec("INSERT INTO extracted_records").
			WithArgs("https://shop.example/a", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()
	// pgx.BeginFunc always rolls back in a defer; after commit it is a no-op.
	mock.ExpectRollback()

	require.NoError(t, store.Store(context.Background(), recs))
}

func TestRecordStoreRollsBackOnFailure(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	store := NewRecordStore[map[string]string](mock, nil)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO extracted_records").
		WithArgs("", pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()
	mock.ExpectRollback()

	err := store.Store(context.Background(), []map[string]string{{"k": "v"}})
	assert.ErrorContains(t, err, "disk full")
}

func TestRecordStoreEmptyBatch(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	assert.NoError(t, NewEntityRecordStore(mock).Store(context.Background(), nil))
}

func TestFailedURLSaveOrUpdate(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	repo := NewFailedURLRepo(mock)
	now := time.Now()

	mock.ExpectExec("INSERT INTO failed_urls").
		WithArgs("https://a.example/", "boom", "transport", 0, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.SaveOrUpdate(context.Background(), &entity.FailedURL{
		URL:                  "https://a.example/",
		FailureReason:        "boom",
		ErrorType:            "transport",
		LastAttemptTimestamp: now,
	})
	assert.NoError(t, err)
}

func TestFailedURLFindRecent(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	repo := NewFailedURLRepo(mock)
	now := time.Now()

	rows := pgxmock.NewRows([]string{"id", "url", "failure_reason", "error_type", "http_status_code", "last_attempt_timestamp", "attempt_count"}).
		AddRow(int64(2), "https://a.example/b", "not found", "status", 404, now, 3).
		AddRow(int64(1), "https://a.example/a", "denied", "politeness", 0, now.Add(-time.Minute), 1)
	mock.ExpectQuery("SELECT id, url").WithArgs(10).WillReturnRows(rows)

	got, err := repo.FindRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://a.example/b", got[0].URL)
	assert.Equal(t, 404, got[0].HTTPStatusCode)
	assert.Equal(t, 3, got[0].AttemptCount)
	assert.Equal(t, "politeness", got[1].ErrorType)
}

func TestFailedURLDelete(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	mock.ExpectExec("DELETE FROM failed_urls").
		WithArgs("https://a.example/").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, NewFailedURLRepo(mock).Delete(context.Background(), "https://a.example/"))
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS extracted_records").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	assert.NoError(t, EnsureSchema(context.Background(), mock))
}

func TestDSN(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "postgres://u:p@db:5432/crawler?sslmode=disable", DSN("u", "p", "db", "5432", "crawler"))
}
