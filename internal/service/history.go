package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pictolab/pictoreco/internal/domain"
)

// ErrNotFound is returned when a board has no history or a page number falls
// outside the recorded range. Reported to the caller, never retried.
var ErrNotFound = errors.New("not found")

// PagePersistence mirrors appended pages into durable storage so sessions
// survive restarts. Implemented by repository.HistoryRepository; nil disables
// persistence (memory only).
type PagePersistence interface {
	SavePage(ctx context.Context, page *domain.RecommendationPage) error
	LoadPages(ctx context.Context, boardID string) ([]domain.RecommendationPage, error)
}

// HistoryStore owns the per-board append-only page log. The in-memory log is
// authoritative for the life of the process; the optional persistence layer
// is a write-through mirror consulted once per board on first access.
type HistoryStore struct {
	mu     sync.RWMutex
	pages  map[string][]*domain.RecommendationPage
	loaded map[string]bool
	repo   PagePersistence
	now    func() time.Time
}

// NewHistoryStore creates a history store.
// Parameters:
//   - repo: optional persistence mirror; nil keeps history memory-only.
//
// Returns:
//   - *HistoryStore: empty store.
func NewHistoryStore(repo PagePersistence) *HistoryStore {
	return &HistoryStore{
		pages:  make(map[string][]*domain.RecommendationPage),
		loaded: make(map[string]bool),
		repo:   repo,
		now:    time.Now,
	}
}

// ensureLoaded pulls a board's persisted pages into memory once.
// Caller must hold the write lock.
func (s *HistoryStore) ensureLoaded(ctx context.Context, boardID string) error {
	if s.repo == nil || s.loaded[boardID] {
		return nil
	}
	persisted, err := s.repo.LoadPages(ctx, boardID)
	if err != nil {
		return fmt.Errorf("failed to load history for board %s: %w", boardID, err)
	}
	if len(s.pages[boardID]) == 0 {
		for i := range persisted {
			page := persisted[i]
			s.pages[boardID] = append(s.pages[boardID], &page)
		}
	}
	s.loaded[boardID] = true
	return nil
}

// AppendPage appends a new page to a board's history.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - boardID: owning board.
//   - items: presented card IDs for the page.
//
// Returns:
//   - *domain.RecommendationPage: the appended page, page number = previous count + 1.
//   - error: non-nil only on persistence failure.
func (s *HistoryStore) AppendPage(ctx context.Context, boardID string, items []string) (*domain.RecommendationPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx, boardID); err != nil {
		return nil, err
	}

	// Copy so later caller mutations cannot rewrite history
	stored := make(domain.StringArray, len(items))
	copy(stored, items)

	page := &domain.RecommendationPage{
		BoardID:    boardID,
		PageNumber: len(s.pages[boardID]) + 1,
		Items:      stored,
		CreatedAt:  s.now(),
	}
	s.pages[boardID] = append(s.pages[boardID], page)

	if s.repo != nil {
		if err := s.repo.SavePage(ctx, page); err != nil {
			return nil, fmt.Errorf("failed to persist page %d for board %s: %w", page.PageNumber, boardID, err)
		}
	}
	return page, nil
}

// GetPage retrieves one page of a board's history.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - boardID: board to read.
//   - pageNumber: 1-based page number.
//
// Returns:
//   - *domain.RecommendationPage: the immutable page.
//   - error: ErrNotFound when the board has no history or the number is out of range.
func (s *HistoryStore) GetPage(ctx context.Context, boardID string, pageNumber int) (*domain.RecommendationPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx, boardID); err != nil {
		return nil, err
	}

	pages := s.pages[boardID]
	if len(pages) == 0 {
		return nil, fmt.Errorf("board %s has no history: %w", boardID, ErrNotFound)
	}
	if pageNumber < 1 || pageNumber > len(pages) {
		return nil, fmt.Errorf("page %d outside [1, %d] for board %s: %w", pageNumber, len(pages), boardID, ErrNotFound)
	}
	return pages[pageNumber-1], nil
}

// GetSummary describes a board's page history.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - boardID: board to summarize.
//
// Returns:
//   - *domain.HistorySummary: totals and per-page item counts.
//   - error: ErrNotFound when the board has no history.
func (s *HistoryStore) GetSummary(ctx context.Context, boardID string) (*domain.HistorySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx, boardID); err != nil {
		return nil, err
	}

	pages := s.pages[boardID]
	if len(pages) == 0 {
		return nil, fmt.Errorf("board %s has no history: %w", boardID, ErrNotFound)
	}

	counts := make([]int, len(pages))
	for i, page := range pages {
		counts[i] = len(page.Items)
	}
	return &domain.HistorySummary{
		BoardID:       boardID,
		TotalPages:    len(pages),
		LatestPage:    len(pages),
		PerPageCounts: counts,
	}, nil
}

// TotalPages returns the number of pages held in memory across all boards.
func (s *HistoryStore) TotalPages() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, pages := range s.pages {
		total += len(pages)
	}
	return total
}
