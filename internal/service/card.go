package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pictolab/pictoreco/internal/domain"
	"github.com/pictolab/pictoreco/internal/repository"
	"github.com/pictolab/pictoreco/internal/storage"
	"gorm.io/gorm"
)

// CardService serves the card catalog, resolving each card's storage key to
// a public image URL. Storage may be nil when no object store is configured;
// views then carry an empty URL.
type CardService struct {
	repo    *repository.CardRepository
	storage storage.ObjectStorage
}

// NewCardService creates a card catalog service.
func NewCardService(repo *repository.CardRepository, store storage.ObjectStorage) *CardService {
	return &CardService{
		repo:    repo,
		storage: store,
	}
}

// ListCards pages through the catalog.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - clusterID: optional cluster filter.
//   - status: optional status filter.
//   - limit, offset: pagination window.
//
// Returns:
//   - []domain.CardView: cards with resolved image URLs.
//   - int64: total matching cards before pagination.
//   - error: non-nil on database failure.
func (s *CardService) ListCards(ctx context.Context, clusterID *int, status *domain.CardStatus, limit, offset int) ([]domain.CardView, int64, error) {
	cards, total, err := s.repo.List(ctx, clusterID, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cards: %w", err)
	}

	views := make([]domain.CardView, len(cards))
	for i := range cards {
		views[i] = s.view(&cards[i])
	}
	return views, total, nil
}

// GetCard fetches one card by ID.
// Returns ErrNotFound when the card does not exist.
func (s *CardService) GetCard(ctx context.Context, id string) (*domain.CardView, error) {
	card, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch card %s: %w", id, err)
	}
	view := s.view(card)
	return &view, nil
}

// GetCards fetches cards for a list of IDs, preserving the input order.
// Unknown IDs yield views without catalog metadata so a presented page can
// always be rendered.
func (s *CardService) GetCards(ctx context.Context, ids []string) ([]domain.CardView, error) {
	cards, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cards: %w", err)
	}

	byID := make(map[string]*domain.Card, len(cards))
	for i := range cards {
		byID[cards[i].ID] = &cards[i]
	}

	views := make([]domain.CardView, 0, len(ids))
	for _, id := range ids {
		if card, ok := byID[id]; ok {
			views = append(views, s.view(card))
		} else {
			views = append(views, domain.CardView{Card: domain.Card{ID: id}})
		}
	}
	return views, nil
}

func (s *CardService) view(card *domain.Card) domain.CardView {
	v := domain.CardView{Card: *card}
	if s.storage != nil && card.StorageKey != "" {
		v.ImageURL = s.storage.GetURL(card.StorageKey)
	}
	return v
}
