package repository

import (
	"context"

	"github.com/pictolab/pictoreco/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CardRepository handles card catalog data operations.
type CardRepository struct {
	db *gorm.DB
}

// NewCardRepository creates a new CardRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *CardRepository: repository instance bound to db.
func NewCardRepository(db *gorm.DB) *CardRepository {
	return &CardRepository{db: db}
}

// Upsert creates or updates a card record keyed by ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - card: card record to create or update.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *CardRepository) Upsert(ctx context.Context, card *domain.Card) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(card).Error
}

// GetByID retrieves a card by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: card ID.
// Returns:
//   - *domain.Card: card record if found.
//   - error: non-nil if lookup fails.
func (r *CardRepository) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	var card domain.Card
	if err := r.db.WithContext(ctx).First(&card, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

// GetByIDs retrieves multiple cards preserving no particular order.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: card IDs to fetch.
// Returns:
//   - []domain.Card: card records found (missing IDs are silently skipped).
//   - error: non-nil if the query fails.
func (r *CardRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Card, error) {
	var cards []domain.Card
	if len(ids) == 0 {
		return cards, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

// List retrieves cards with pagination and optional filters.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - clusterID: filter by cluster, nil for all.
//   - status: filter by status, nil for all.
//   - limit, offset: pagination bounds.
// Returns:
//   - []domain.Card: matching card records.
//   - int64: total matching count before pagination.
//   - error: non-nil if the query fails.
func (r *CardRepository) List(ctx context.Context, clusterID *int, status *domain.CardStatus, limit, offset int) ([]domain.Card, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Card{})

	if clusterID != nil {
		query = query.Where("cluster_id = ?", *clusterID)
	}
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var cards []domain.Card
	if err := query.Order("id").Limit(limit).Offset(offset).Find(&cards).Error; err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

// Count returns the total number of card records.
func (r *CardRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Card{}).Count(&count).Error
	return count, err
}
