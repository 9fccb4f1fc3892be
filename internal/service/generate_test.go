package service

import (
	"context"
	"errors"
	"testing"

	"github.com/pictolab/pictoreco/internal/domain"
	"github.com/pictolab/pictoreco/internal/engine"
)

func newGeneratorFixture(t *testing.T, seed int64) (*GeneratorService, *engine.UsageLedger) {
	t.Helper()
	f := newRecommenderFixture(t)
	rng := engine.NewRand(seed)
	sampler := engine.NewWeightedSampler(f.ledger, f.index, rng)
	assembler := engine.NewCombinationAssembler(f.store, f.index, sampler, rng, engine.DefaultAssemblerConfig())
	return NewGeneratorService(assembler, f.ledger, rng, testLogger(), 1, 4), f.ledger
}

func TestAssembleOne(t *testing.T) {
	g, _ := newGeneratorFixture(t, 3)

	combo, err := g.AssembleOne(context.Background(), 3)
	if err != nil {
		t.Fatalf("AssembleOne failed: %v", err)
	}
	if combo.ID == "" {
		t.Error("combination has no ID")
	}
	if combo.Size != len(combo.Items) || combo.Size != 3 {
		t.Errorf("size mismatch: Size=%d, len(Items)=%d", combo.Size, len(combo.Items))
	}
	if combo.HasDuplicates() {
		t.Errorf("combination has duplicate items: %v", combo.Items)
	}
}

func TestAssembleOneRandomSize(t *testing.T) {
	g, _ := newGeneratorFixture(t, 7)

	for i := 0; i < 30; i++ {
		combo, err := g.AssembleOne(context.Background(), 0)
		if err != nil {
			t.Fatalf("AssembleOne failed: %v", err)
		}
		if combo.Size < 1 || combo.Size > 4 {
			t.Fatalf("size %d outside [1, 4]", combo.Size)
		}
	}
}

func TestAssembleOneRejectsOutOfRangeSize(t *testing.T) {
	g, _ := newGeneratorFixture(t, 9)
	if _, err := g.AssembleOne(context.Background(), 5); err == nil {
		t.Fatal("expected error for size above the configured maximum")
	}
}

func TestGenerateDataset(t *testing.T) {
	g, ledger := newGeneratorFixture(t, 13)

	var got []*domain.Combination
	produced, err := g.GenerateDataset(context.Background(), 25, false, func(c *domain.Combination) error {
		got = append(got, c)
		return nil
	})
	if err != nil {
		t.Fatalf("GenerateDataset failed: %v", err)
	}
	if produced != 25 || len(got) != 25 {
		t.Fatalf("produced %d combinations, emitted %d, expected 25", produced, len(got))
	}

	totalItems := 0
	ids := make(map[string]struct{})
	for _, c := range got {
		totalItems += c.Size
		if _, dup := ids[c.ID]; dup {
			t.Errorf("duplicate combination ID %s", c.ID)
		}
		ids[c.ID] = struct{}{}
	}
	if ledger.TotalPicks() != totalItems {
		t.Errorf("ledger has %d picks, combinations carry %d items", ledger.TotalPicks(), totalItems)
	}
}

func TestGenerateDatasetResetsLedger(t *testing.T) {
	g, ledger := newGeneratorFixture(t, 17)
	ledger.RecordPick("food-1", 0)

	if _, err := g.GenerateDataset(context.Background(), 1, true, func(*domain.Combination) error { return nil }); err != nil {
		t.Fatalf("GenerateDataset failed: %v", err)
	}
	// The pre-run count was cleared; only the run's own pick remains
	if ledger.ItemCount("food-1") > 1 {
		t.Errorf("ledger was not reset before the run")
	}
}

func TestGenerateDatasetStopsOnEmitError(t *testing.T) {
	g, _ := newGeneratorFixture(t, 19)

	sinkErr := errors.New("sink full")
	calls := 0
	produced, err := g.GenerateDataset(context.Background(), 10, false, func(*domain.Combination) error {
		calls++
		if calls == 3 {
			return sinkErr
		}
		return nil
	})
	if !errors.Is(err, sinkErr) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if produced != 2 {
		t.Errorf("produced = %d, expected 2 before the failing emit", produced)
	}
}

func TestGenerateDatasetHonorsCancellation(t *testing.T) {
	g, _ := newGeneratorFixture(t, 23)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.GenerateDataset(ctx, 5, false, func(*domain.Combination) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
