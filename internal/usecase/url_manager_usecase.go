package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/user/polite-crawler/internal/entity"
	"github.com/user/polite-crawler/internal/repository"
	"github.com/user/polite-crawler/pkg/utils"
)

var (
	ErrInvalidURL          = errors.New("invalid url")
	ErrStatusUnsupported   = errors.New("frontier does not report status")
	ErrFailedURLsNotTraced = errors.New("failed urls are not recorded")
)

// forgetter is implemented by frontiers that can drop a visited mark.
type forgetter interface {
	Forget(ctx context.Context, u *url.URL) error
}

// SubmitResult lists which submitted URLs were queued and which were skipped
// because they had been visited already.
type SubmitResult struct {
	Accepted []string
	Skipped  []string
}

// URLManager defines the interface for submitting and checking URLs.
type URLManager interface {
	Submit(ctx context.Context, urls []string, force bool) (*SubmitResult, error)
	GetStatus(ctx context.Context, url string) (*entity.CrawlStatus, error)
	RecentFailures(ctx context.Context, limit int) ([]*entity.FailedURL, error)
}

type urlManagerUseCase struct {
	frontier      repository.Frontier
	failedURLRepo repository.FailedURLRepository
	logger        *zap.Logger
}

// NewURLManager creates a new URLManager use case. failedURLRepo may be nil.
func NewURLManager(frontier repository.Frontier, failedURLRepo repository.FailedURLRepository, logger *zap.Logger) URLManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &urlManagerUseCase{
		frontier:      frontier,
		failedURLRepo: failedURLRepo,
		logger:        logger,
	}
}

func (uc *urlManagerUseCase) Submit(ctx context.Context, raw []string, force bool) (*SubmitResult, error) {
	parsed := make([]*url.URL, 0, len(raw))
	for _, r := range raw {
		u, err := utils.ParseAbsolute(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidURL, r, err)
		}
		parsed = append(parsed, u)
	}

	inspector, _ := uc.frontier.(repository.FrontierInspector)
	res := &SubmitResult{}
	var queue []*url.URL
	for _, u := range parsed {
		if force {
			if f, ok := uc.frontier.(forgetter); ok {
				if err := f.Forget(ctx, u); err != nil {
					// Continue anyway, as this is not a critical failure
					uc.logger.Warn("failed to forget visited url for forced crawl", zap.String("url", u.String()), zap.Error(err))
				}
			}
		} else if inspector != nil {
			st, err := inspector.Status(ctx, u)
			if err != nil {
				return nil, err
			}
			if st == entity.StatusVisited {
				res.Skipped = append(res.Skipped, u.String())
				continue
			}
		}
		queue = append(queue, u)
		res.Accepted = append(res.Accepted, u.String())
	}

	if len(queue) > 0 {
		if err := uc.frontier.Add(ctx, queue); err != nil {
			return nil, fmt.Errorf("failed to add submitted URLs: %w", err)
		}
	}
	uc.logger.Info("urls submitted", zap.Int("accepted", len(res.Accepted)), zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

func (uc *urlManagerUseCase) GetStatus(ctx context.Context, raw string) (*entity.CrawlStatus, error) {
	inspector, ok := uc.frontier.(repository.FrontierInspector)
	if !ok {
		return nil, ErrStatusUnsupported
	}
	u, err := utils.ParseAbsolute(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidURL, raw, err)
	}

	st, err := inspector.Status(ctx, u)
	if err != nil {
		return nil, err
	}
	n, err := inspector.Len(ctx)
	if err != nil {
		return nil, err
	}
	return &entity.CrawlStatus{URL: u.String(), CurrentStatus: st, QueueLength: n}, nil
}

func (uc *urlManagerUseCase) RecentFailures(ctx context.Context, limit int) ([]*entity.FailedURL, error) {
	if uc.failedURLRepo == nil {
		return nil, ErrFailedURLsNotTraced
	}
	return uc.failedURLRepo.FindRecent(ctx, limit)
}
