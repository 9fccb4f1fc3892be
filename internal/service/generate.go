package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pictolab/pictoreco/internal/domain"
	"github.com/pictolab/pictoreco/internal/engine"
	"github.com/pictolab/pictoreco/internal/logger"
)

// GeneratorService produces card combinations for training-data runs and the
// one-off assembly endpoint.
type GeneratorService struct {
	assembler *engine.CombinationAssembler
	ledger    *engine.UsageLedger
	rng       engine.Rand
	log       *logger.Logger
	minSize   int
	maxSize   int
}

// NewGeneratorService creates a generator around an assembler.
// Parameters:
//   - assembler: combination assembler sharing the session ledger.
//   - ledger: the same ledger, for dataset-run resets.
//   - rng: randomness source for size selection.
//   - log: logger instance.
//   - minSize, maxSize: inclusive combination size range.
//
// Returns:
//   - *GeneratorService: initialized generator.
func NewGeneratorService(assembler *engine.CombinationAssembler, ledger *engine.UsageLedger, rng engine.Rand, log *logger.Logger, minSize, maxSize int) *GeneratorService {
	return &GeneratorService{
		assembler: assembler,
		ledger:    ledger,
		rng:       rng,
		log:       log,
		minSize:   minSize,
		maxSize:   maxSize,
	}
}

// AssembleOne builds a single combination.
// Parameters:
//   - ctx: context for cancellation.
//   - targetSize: requested size; 0 draws uniformly from the configured range.
//
// Returns:
//   - *domain.Combination: assembled combination with a fresh UUID.
//   - error: non-nil when the size is out of range or assembly fails.
func (g *GeneratorService) AssembleOne(ctx context.Context, targetSize int) (*domain.Combination, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if targetSize == 0 {
		targetSize = g.minSize + g.rng.Intn(g.maxSize-g.minSize+1)
	}

	items, err := g.assembler.Assemble(targetSize)
	if err != nil {
		return nil, err
	}
	return &domain.Combination{
		ID:        uuid.NewString(),
		Items:     items,
		Size:      len(items),
		CreatedAt: time.Now(),
	}, nil
}

// GenerateDataset assembles count combinations, streaming each to emit.
// Parameters:
//   - ctx: context for cancellation; checked between combinations.
//   - count: how many combinations to produce.
//   - resetLedger: clear usage counters before the run for a cold start.
//   - emit: sink for finished combinations; an emit error aborts the run.
//
// Returns:
//   - int: combinations produced.
//   - error: non-nil on cancellation, assembly failure, or emit failure.
func (g *GeneratorService) GenerateDataset(ctx context.Context, count int, resetLedger bool, emit func(*domain.Combination) error) (int, error) {
	if resetLedger {
		g.ledger.Reset()
	}

	runID := uuid.NewString()
	log := g.log.WithFields(logger.Fields{
		logger.FieldRunID: runID,
		logger.FieldCount: count,
	})
	log.Info("Starting combination generation run")
	start := time.Now()

	produced := 0
	for produced < count {
		if err := ctx.Err(); err != nil {
			return produced, err
		}
		combo, err := g.AssembleOne(ctx, 0)
		if err != nil {
			return produced, err
		}
		if err := emit(combo); err != nil {
			return produced, err
		}
		produced++

		if produced%1000 == 0 {
			log.WithField(logger.FieldCount, produced).Info("Generation progress")
		}
	}

	log.WithFields(logger.Fields{
		logger.FieldCount:      produced,
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info("Combination generation run complete")
	return produced, nil
}
