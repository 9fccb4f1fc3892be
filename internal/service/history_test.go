package service

import (
	"context"
	"errors"
	"testing"

	"github.com/pictolab/pictoreco/internal/domain"
)

// fakePagePersistence records saves and serves pre-seeded pages.
type fakePagePersistence struct {
	saved  []*domain.RecommendationPage
	seeded map[string][]domain.RecommendationPage
	fail   error
}

func (f *fakePagePersistence) SavePage(_ context.Context, page *domain.RecommendationPage) error {
	if f.fail != nil {
		return f.fail
	}
	f.saved = append(f.saved, page)
	return nil
}

func (f *fakePagePersistence) LoadPages(_ context.Context, boardID string) ([]domain.RecommendationPage, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return f.seeded[boardID], nil
}

func TestHistoryAppendAssignsSequentialNumbers(t *testing.T) {
	s := NewHistoryStore(nil)
	ctx := context.Background()

	for want := 1; want <= 4; want++ {
		page, err := s.AppendPage(ctx, "board-1", []string{"a", "b"})
		if err != nil {
			t.Fatalf("AppendPage failed: %v", err)
		}
		if page.PageNumber != want {
			t.Errorf("page number = %d, expected %d", page.PageNumber, want)
		}
	}
}

func TestHistoryBoardsAreIndependent(t *testing.T) {
	s := NewHistoryStore(nil)
	ctx := context.Background()

	if _, err := s.AppendPage(ctx, "board-1", []string{"a"}); err != nil {
		t.Fatalf("AppendPage failed: %v", err)
	}
	page, err := s.AppendPage(ctx, "board-2", []string{"b"})
	if err != nil {
		t.Fatalf("AppendPage failed: %v", err)
	}
	if page.PageNumber != 1 {
		t.Errorf("board-2 first page number = %d, expected 1", page.PageNumber)
	}
}

func TestHistoryPagesAreImmutable(t *testing.T) {
	s := NewHistoryStore(nil)
	ctx := context.Background()

	items := []string{"a", "b", "c"}
	if _, err := s.AppendPage(ctx, "board-1", items); err != nil {
		t.Fatalf("AppendPage failed: %v", err)
	}
	items[0] = "mutated"

	page, err := s.GetPage(ctx, "board-1", 1)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if page.Items[0] != "a" {
		t.Errorf("stored page was mutated through the caller's slice: %v", page.Items)
	}
}

func TestHistoryGetPageNotFound(t *testing.T) {
	s := NewHistoryStore(nil)
	ctx := context.Background()

	if _, err := s.GetPage(ctx, "unknown-board", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown board, got %v", err)
	}

	if _, err := s.AppendPage(ctx, "board-1", []string{"a"}); err != nil {
		t.Fatalf("AppendPage failed: %v", err)
	}
	tests := []struct {
		name string
		page int
	}{
		{"zero", 0},
		{"negative", -1},
		{"beyond latest", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.GetPage(ctx, "board-1", tt.page); !errors.Is(err, ErrNotFound) {
				t.Errorf("GetPage(%d): expected ErrNotFound, got %v", tt.page, err)
			}
		})
	}
}

func TestHistorySummary(t *testing.T) {
	s := NewHistoryStore(nil)
	ctx := context.Background()

	if _, err := s.GetSummary(ctx, "board-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty board, got %v", err)
	}

	pages := [][]string{{"a", "b"}, {"c"}, {"d", "e", "f"}}
	for _, items := range pages {
		if _, err := s.AppendPage(ctx, "board-1", items); err != nil {
			t.Fatalf("AppendPage failed: %v", err)
		}
	}

	summary, err := s.GetSummary(ctx, "board-1")
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if summary.TotalPages != 3 || summary.LatestPage != 3 {
		t.Errorf("unexpected totals: %+v", summary)
	}
	wantCounts := []int{2, 1, 3}
	for i, want := range wantCounts {
		if summary.PerPageCounts[i] != want {
			t.Errorf("page %d count = %d, expected %d", i+1, summary.PerPageCounts[i], want)
		}
	}
}

func TestHistoryWriteThroughPersistence(t *testing.T) {
	repo := &fakePagePersistence{}
	s := NewHistoryStore(repo)
	ctx := context.Background()

	if _, err := s.AppendPage(ctx, "board-1", []string{"a"}); err != nil {
		t.Fatalf("AppendPage failed: %v", err)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected 1 persisted page, got %d", len(repo.saved))
	}
	if repo.saved[0].BoardID != "board-1" || repo.saved[0].PageNumber != 1 {
		t.Errorf("persisted page mismatch: %+v", repo.saved[0])
	}
}

func TestHistoryLoadsPersistedPagesOnFirstAccess(t *testing.T) {
	repo := &fakePagePersistence{
		seeded: map[string][]domain.RecommendationPage{
			"board-1": {
				{BoardID: "board-1", PageNumber: 1, Items: domain.StringArray{"a", "b"}},
				{BoardID: "board-1", PageNumber: 2, Items: domain.StringArray{"c"}},
			},
		},
	}
	s := NewHistoryStore(repo)
	ctx := context.Background()

	page, err := s.GetPage(ctx, "board-1", 2)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0] != "c" {
		t.Errorf("unexpected restored page: %+v", page)
	}

	// New appends continue after the restored pages
	next, err := s.AppendPage(ctx, "board-1", []string{"d"})
	if err != nil {
		t.Fatalf("AppendPage failed: %v", err)
	}
	if next.PageNumber != 3 {
		t.Errorf("expected page number 3 after restore, got %d", next.PageNumber)
	}
}

func TestHistoryAppendFailsWhenPersistenceFails(t *testing.T) {
	repo := &fakePagePersistence{fail: errors.New("db down")}
	s := NewHistoryStore(repo)

	if _, err := s.AppendPage(context.Background(), "board-1", []string{"a"}); err == nil {
		t.Fatal("expected error when persistence fails")
	}
}
