package repository

import (
	"context"

	"github.com/pictolab/pictoreco/internal/domain"
	"gorm.io/gorm"
)

// HistoryRepository persists recommendation pages so interactive sessions
// survive process restarts. Pages are write-once: there is deliberately no
// update or delete here.
type HistoryRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// SavePage appends one page record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - page: page to persist; BoardID and PageNumber form the append-only key.
// Returns:
//   - error: non-nil if the insert fails (including duplicate page numbers,
//     which would mean the append-only invariant was violated upstream).
func (r *HistoryRepository) SavePage(ctx context.Context, page *domain.RecommendationPage) error {
	return r.db.WithContext(ctx).Create(page).Error
}

// LoadPages returns all pages for a board ordered by page number.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - boardID: board whose history to load.
// Returns:
//   - []domain.RecommendationPage: pages in ascending page order (possibly empty).
//   - error: non-nil if the query fails.
func (r *HistoryRepository) LoadPages(ctx context.Context, boardID string) ([]domain.RecommendationPage, error) {
	var pages []domain.RecommendationPage
	err := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("page_number ASC").
		Find(&pages).Error
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// CountPages returns the number of persisted pages across all boards.
func (r *HistoryRepository) CountPages(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RecommendationPage{}).Count(&count).Error
	return count, err
}
