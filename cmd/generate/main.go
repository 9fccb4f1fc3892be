package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "golang.org/x/image/webp"

	"github.com/pictolab/pictoreco/internal/config"
	"github.com/pictolab/pictoreco/internal/dataset"
	"github.com/pictolab/pictoreco/internal/domain"
	"github.com/pictolab/pictoreco/internal/engine"
	"github.com/pictolab/pictoreco/internal/logger"
	"github.com/pictolab/pictoreco/internal/preview"
	"github.com/pictolab/pictoreco/internal/repository"
	"github.com/pictolab/pictoreco/internal/service"
	"github.com/pictolab/pictoreco/internal/storage"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "pictoreco-generate",
	})
	logger.SetDefaultLogger(appLogger)

	count := flag.Int("count", 100, "Number of combinations to generate")
	minSize := flag.Int("min", 0, "Minimum combination size, 0 uses the configured value")
	maxSize := flag.Int("max", 0, "Maximum combination size, 0 uses the configured value")
	seed := flag.Int64("seed", 0, "Random seed, 0 uses the current time")
	reset := flag.Bool("reset", false, "Clear usage counters before the run")
	out := flag.String("out", "-", "Output JSONL path, - for stdout")
	sheetDir := flag.String("sheet-dir", "", "Directory for per-combination contact sheets (needs object storage and the card catalog)")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if *minSize > 0 {
		cfg.Engine.MinCards = *minSize
	}
	if *maxSize > 0 {
		cfg.Engine.MaxCards = *maxSize
	}
	if cfg.Engine.MaxCards < cfg.Engine.MinCards {
		appLogger.Fatal("max size below min size")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stop the run cleanly on interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var src dataset.EmbeddingSource
	if cfg.Dataset.Source == "qdrant" {
		qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
			Host:            cfg.Qdrant.Host,
			Port:            cfg.Qdrant.Port,
			Collection:      cfg.Qdrant.Collection,
			APIKey:          cfg.Qdrant.APIKey,
			UseTLS:          cfg.Qdrant.UseTLS,
			VectorDimension: cfg.Qdrant.Dimensions,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to connect to Qdrant")
		}
		defer qdrantRepo.Close()

		if err := qdrantRepo.CheckCollection(ctx); err != nil {
			appLogger.WithError(err).Fatal("Qdrant collection check failed")
		}
		src = qdrantRepo
	} else {
		src = dataset.NewFileEmbeddingSource(cfg.Dataset.EmbeddingsPath)
	}

	store, index, err := dataset.Load(ctx, src, cfg.Dataset.ClustersPath, cfg.Dataset.TagsPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load card dataset")
	}

	var rng engine.Rand
	if *seed != 0 {
		rng = engine.NewRand(*seed)
	} else {
		rng = engine.NewTimeRand()
	}

	ledger := engine.NewUsageLedger()
	sampler := engine.NewWeightedSampler(ledger, index, rng)
	assembler := engine.NewCombinationAssembler(store, index, sampler, rng, engine.AssemblerConfig{
		MinSize:                   cfg.Engine.MinCards,
		MaxSize:                   cfg.Engine.MaxCards,
		SimilarPassProbability:    cfg.Engine.SimilarPassProbability,
		DissimilarPassProbability: cfg.Engine.DissimilarPassProbability,
		DissimilarThreshold:       cfg.Engine.DissimilarThreshold,
		MinSimilarityFloor:        cfg.Engine.MinSimilarityFloor,
		ShortlistMin:              cfg.Engine.ShortlistMin,
		TopSimilarClusters:        cfg.Engine.TopSimilarClusters,
	})
	generator := service.NewGeneratorService(assembler, ledger, rng, appLogger, cfg.Engine.MinCards, cfg.Engine.MaxCards)

	output := os.Stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to create output file")
		}
		defer f.Close()
		output = f
	}
	encoder := json.NewEncoder(output)

	var sheets *sheetWriter
	if *sheetDir != "" {
		sheets, err = newSheetWriter(cfg, *sheetDir)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to set up contact sheets")
		}
	}

	produced, err := generator.GenerateDataset(ctx, *count, *reset, func(combo *domain.Combination) error {
		if err := encoder.Encode(combo); err != nil {
			return fmt.Errorf("failed to write combination: %w", err)
		}
		if sheets != nil {
			if err := sheets.write(ctx, combo); err != nil {
				appLogger.WithError(err).WithField("combination", combo.ID).Warn("Contact sheet skipped")
			}
		}
		return nil
	})
	if err != nil {
		appLogger.WithError(err).WithField(logger.FieldCount, produced).Fatal("Generation aborted")
	}
}

// sheetWriter pulls card images from object storage and writes one contact
// sheet per combination.
type sheetWriter struct {
	cards   *repository.CardRepository
	storage storage.ObjectStorage
	dir     string
}

func newSheetWriter(cfg *config.Config, dir string) (*sheetWriter, error) {
	if cfg.Storage.AccessKey == "" {
		return nil, fmt.Errorf("contact sheets need object storage credentials")
	}
	objectStorage, err := storage.New(&storage.S3Config{
		Type:      storage.StorageType(cfg.Storage.Type),
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		return nil, err
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sheet directory: %w", err)
	}

	return &sheetWriter{
		cards:   repository.NewCardRepository(db),
		storage: objectStorage,
		dir:     dir,
	}, nil
}

func (w *sheetWriter) write(ctx context.Context, combo *domain.Combination) error {
	cards, err := w.cards.GetByIDs(ctx, combo.Items)
	if err != nil {
		return err
	}
	keys := make(map[string]string, len(cards))
	for _, card := range cards {
		keys[card.ID] = card.StorageKey
	}

	images := make([]image.Image, 0, len(combo.Items))
	for _, id := range combo.Items {
		key := keys[id]
		if key == "" {
			return fmt.Errorf("card %s has no stored image", id)
		}
		reader, err := w.storage.Download(ctx, key)
		if err != nil {
			return err
		}
		img, _, err := image.Decode(reader)
		reader.Close()
		if err != nil {
			return fmt.Errorf("failed to decode image for card %s: %w", id, err)
		}
		images = append(images, img)
	}

	sheet, err := preview.ContactSheet(images, 128)
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(w.dir, combo.ID+".png"))
	if err != nil {
		return err
	}
	defer f.Close()
	return preview.WritePNG(f, sheet)
}
