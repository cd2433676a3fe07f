package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/animus-labs/modelforge/internal/docstore"
	"github.com/animus-labs/modelforge/internal/modelstore"
	"github.com/animus-labs/modelforge/internal/schema"
)

// Outcome classifies how a run ended.
type Outcome string

const (
	// OutcomeSuccess covers both promoted runs and runs whose model was
	// trained but not accepted.
	OutcomeSuccess Outcome = "success"
	// OutcomeValidationFailed means the data failed the schema gate; no
	// model was trained.
	OutcomeValidationFailed Outcome = "validation_failed"
	// OutcomeError means a stage failed outright.
	OutcomeError Outcome = "error"
)

// RunResult is the terminal record of one pipeline run.
type RunResult struct {
	RunID        string
	Outcome      Outcome
	FailureStage string
	Message      string

	Validation     ValidationArtifact
	Trainer        *TrainerArtifact
	Evaluation     *EvaluationArtifact
	Promotion      *PromotionArtifact
	PromotionError error
}

func (r RunResult) Success() bool { return r.Outcome == OutcomeSuccess }

// PromotionFailed reports whether an accepted model could not be uploaded.
func (r RunResult) PromotionFailed() bool { return r.PromotionError != nil }

// Orchestrator drives the stages in order, threading artifacts between them.
// Stage instances are built per run so every run writes under its own
// artifact directory.
type Orchestrator struct {
	cfg      Config
	catalog  schema.Catalog
	source   docstore.Source
	registry modelstore.Registry
	logger   *slog.Logger
}

func NewOrchestrator(cfg Config, catalog schema.Catalog, source docstore.Source, registry modelstore.Registry, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg, catalog: catalog, source: source, registry: registry, logger: logger}
}

// RunPipeline executes one full run. A failed validation gate and a rejected
// model both end the run without error; only stage failures do. A promotion
// failure is reported on the result but does not fail the run, since the
// trained bundle is already persisted locally.
func (o *Orchestrator) RunPipeline(ctx context.Context) (RunResult, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(o.cfg.ArtifactRoot, runID)
	logger := o.logger.With("run_id", runID)
	logger.Info("pipeline run started", "collection", o.cfg.Collection)

	result := RunResult{RunID: runID}

	ingestion, err := NewIngestionStage(o.source, o.cfg, filepath.Join(runDir, StageIngestion), logger).Run(ctx)
	if err != nil {
		return o.fail(result, err, logger)
	}

	validation, err := NewValidationStage(o.catalog, runID, filepath.Join(runDir, StageValidation), logger).Run(ctx, ingestion)
	if err != nil {
		return o.fail(result, err, logger)
	}
	result.Validation = validation
	if !validation.Passed {
		result.Outcome = OutcomeValidationFailed
		result.FailureStage = StageValidation
		result.Message = validation.Message
		logger.Warn("pipeline run stopped at validation gate", "message", validation.Message)
		return result, nil
	}

	transformation, err := NewTransformationStage(o.catalog, o.cfg, filepath.Join(runDir, StageTransformation), logger).Run(ctx, ingestion, validation)
	if err != nil {
		return o.fail(result, err, logger)
	}

	trainer, err := NewTrainingStage(o.cfg, filepath.Join(runDir, StageTraining), logger).Run(ctx, transformation)
	if err != nil {
		return o.fail(result, err, logger)
	}
	result.Trainer = &trainer

	evaluation, err := NewEvaluationStage(o.catalog, o.cfg, o.registry, logger).Run(ctx, ingestion, transformation, trainer)
	if err != nil {
		return o.fail(result, err, logger)
	}
	result.Evaluation = &evaluation

	result.Outcome = OutcomeSuccess
	if !evaluation.Accepted {
		result.Message = "trained model did not beat the baseline"
		logger.Info("pipeline run finished without promotion",
			"trained_f1", evaluation.TrainedF1, "delta", evaluation.Delta)
		return result, nil
	}

	promotion, err := NewPromotionStage(o.cfg, o.registry, logger).Run(ctx, trainer)
	if err != nil {
		result.PromotionError = err
		result.Message = "model accepted but promotion failed"
		logger.Error("promotion failed; trained bundle remains local", "error", err)
		return result, nil
	}
	result.Promotion = &promotion

	logger.Info("pipeline run finished", "model_key", promotion.RemoteModelKey)
	return result, nil
}

func (o *Orchestrator) fail(result RunResult, err error, logger *slog.Logger) (RunResult, error) {
	result.Outcome = OutcomeError
	result.FailureStage = StageOf(err)
	result.Message = err.Error()
	logger.Error("pipeline run failed", "stage", result.FailureStage, "error", err)
	return result, err
}
