package logsink

import (
	"context"

	"go.uber.org/zap"

	"github.com/user/polite-crawler/internal/entity"
	"github.com/user/polite-crawler/internal/repository"
)

// Store logs every record it receives and keeps nothing. It is the default
// sink and is handy while tuning selectors.
type Store[R any] struct {
	logger *zap.Logger
}

var _ repository.RecordStore[entity.Record] = (*Store[entity.Record])(nil)

func New[R any](logger *zap.Logger) *Store[R] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store[R]{logger: logger.Named("records")}
}

func (s *Store[R]) Store(_ context.Context, records []R) error {
	for i, rec := range records {
		s.logger.Info("record", zap.Int("index", i), zap.Any("record", rec))
	}
	s.logger.Debug("batch stored", zap.Int("count", len(records)))
	return nil
}
