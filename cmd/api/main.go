package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pictolab/pictoreco/internal/api"
	"github.com/pictolab/pictoreco/internal/api/middleware"
	"github.com/pictolab/pictoreco/internal/config"
	"github.com/pictolab/pictoreco/internal/dataset"
	"github.com/pictolab/pictoreco/internal/engine"
	"github.com/pictolab/pictoreco/internal/logger"
	"github.com/pictolab/pictoreco/internal/repository"
	"github.com/pictolab/pictoreco/internal/service"
	"github.com/pictolab/pictoreco/internal/storage"
)

func main() {
	appLogger := logger.NewFromEnv(nil)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx := context.Background()

	// Load the card universe: embeddings plus the cluster and tag tables
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
	appLogger.WithFields(logger.Fields{
		"items":    store.Len(),
		"clusters": index.Count(),
	}).Info("Card dataset loaded")

	// Database for the card catalog, history mirror and usage persistence
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	cardRepo := repository.NewCardRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	usageRepo := repository.NewUsageRepository(db)

	// Engine core: ledger, sampler, assembler
	ledger := engine.NewUsageLedger()
	if items, clusters, err := usageRepo.LoadCounters(ctx, cfg.Engine.SessionID); err != nil {
		appLogger.WithError(err).Warn("Failed to restore usage counters, starting cold")
	} else if len(items) > 0 || len(clusters) > 0 {
		ledger.Restore(items, clusters)
		appLogger.WithField(logger.FieldCount, len(items)).Info("Usage counters restored")
	}

	rng := engine.NewTimeRand()
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

	// Object storage for pictogram images, optional
	var objectStorage storage.ObjectStorage
	if cfg.Storage.AccessKey != "" {
		objectStorage, err = storage.New(&storage.S3Config{
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
			appLogger.WithError(err).Fatal("Failed to initialize object storage")
		}
	} else {
		appLogger.Info("Object storage not configured, card image URLs disabled")
	}

	// Services
	scorer := service.NewSimilarityEngine(&service.SimilarityOracleConfig{
		Provider:   cfg.Similarity.Provider,
		Model:      cfg.Similarity.Model,
		APIKey:     cfg.Similarity.APIKey,
		BaseURL:    cfg.Similarity.BaseURL,
		Dimensions: cfg.Similarity.Dimensions,
		CacheSize:  cfg.Similarity.CacheSize,
	}, appLogger)
	if !scorer.IsEnabled() {
		appLogger.Info("Similarity oracle not configured, using lexical matching")
	}

	interpretService := service.NewInterpretService(&service.InterpretConfig{
		Enabled: cfg.Interpret.Enabled,
		Model:   cfg.Interpret.Model,
		APIKey:  cfg.Interpret.APIKey,
		BaseURL: cfg.Interpret.BaseURL,
	}, appLogger)

	history := service.NewHistoryStore(historyRepo)
	cardService := service.NewCardService(cardRepo, objectStorage)

	recommender := service.NewRecommender(store, index, ledger, sampler, rng, scorer, history, appLogger, service.RecommenderConfig{
		TotalDisplayCards:    cfg.Recommend.TotalDisplayCards,
		ContextRatio:         cfg.Recommend.ContextRatio,
		ContextThreshold:     cfg.Recommend.ContextThreshold,
		MaxContextClusters:   cfg.Recommend.MaxContextClusters,
		MaxPreferredClusters: cfg.Recommend.MaxPreferredClusters,
	})

	validator := service.NewSelectionValidator(&service.ValidatorConfig{
		MinCards: cfg.Engine.MinCards,
		MaxCards: cfg.Engine.MaxCards,
	})

	generator := service.NewGeneratorService(assembler, ledger, rng, appLogger, cfg.Engine.MinCards, cfg.Engine.MaxCards)

	router := api.SetupRouter(&api.Services{
		Recommender: recommender,
		History:     history,
		Validator:   validator,
		Interpret:   interpretService,
		Generator:   generator,
		Cards:       cardService,
	}, appLogger, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	// Persist usage counters so fairness survives the restart
	items, clusters := ledger.Snapshot()
	if err := usageRepo.SaveCounters(shutdownCtx, cfg.Engine.SessionID, items, clusters); err != nil {
		appLogger.WithError(err).Error("Failed to persist usage counters")
	}

	appLogger.Info("Server exited")
}
