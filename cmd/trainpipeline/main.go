package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/animus-labs/modelforge/internal/docstore"
	"github.com/animus-labs/modelforge/internal/modelstore"
	"github.com/animus-labs/modelforge/internal/pipeline"
	"github.com/animus-labs/modelforge/internal/platform/env"
	"github.com/animus-labs/modelforge/internal/platform/objectstore"
	"github.com/animus-labs/modelforge/internal/platform/postgres"
	"github.com/animus-labs/modelforge/internal/schema"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := pipeline.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid pipeline config", "error", err)
		os.Exit(2)
	}
	dbWait, err := env.Duration("MODELFORGE_DB_WAIT", 30*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	catalog, err := schema.Load(cfg.SchemaPath)
	if err != nil {
		logger.Error("invalid schema catalog", "path", cfg.SchemaPath, "error", err)
		os.Exit(2)
	}

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	source := docstore.NewPostgresSource(db)
	if err := source.WaitReady(ctx, dbWait); err != nil {
		logger.Error("document store unavailable", "error", err)
		os.Exit(1)
	}

	storeCfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid object store config", "error", err)
		os.Exit(2)
	}
	storeClient, err := objectstore.NewMinIOClient(storeCfg)
	if err != nil {
		logger.Error("object store client init failed", "error", err)
		os.Exit(2)
	}
	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := objectstore.EnsureBucket(startupCtx, storeClient, storeCfg); err != nil {
		cancel()
		logger.Error("object store unavailable", "error", err)
		os.Exit(1)
	}
	cancel()
	store, err := objectstore.NewMinioStoreWithClient(storeClient)
	if err != nil {
		logger.Error("object store init failed", "error", err)
		os.Exit(2)
	}
	registry := modelstore.NewObjectRegistry(store, storeCfg.BucketModels)

	orchestrator := pipeline.NewOrchestrator(cfg, catalog, source, registry, logger)
	result, err := orchestrator.RunPipeline(ctx)
	if err != nil {
		logger.Error("pipeline failed", "run_id", result.RunID, "stage", result.FailureStage, "error", err)
		os.Exit(1)
	}
	if result.Outcome == pipeline.OutcomeValidationFailed {
		logger.Warn("pipeline stopped at validation gate", "run_id", result.RunID, "message", result.Message)
		os.Exit(1)
	}
	if result.PromotionError != nil {
		logger.Error("model accepted but promotion failed", "run_id", result.RunID, "error", result.PromotionError)
	}
	logger.Info("pipeline completed", "run_id", result.RunID, "outcome", string(result.Outcome))
}
