package pipeline

import (
	"context"
	"log/slog"

	"github.com/animus-labs/modelforge/internal/dataset"
	"github.com/animus-labs/modelforge/internal/learn"
	"github.com/animus-labs/modelforge/internal/modelstore"
	"github.com/animus-labs/modelforge/internal/schema"
)

// EvaluationStage compares the freshly trained model against the currently
// promoted baseline, if one exists. The baseline is scored on this run's
// held-out records, engineered and scaled with this run's fitted transformer.
// Without a baseline the trained model competes against an F1 of zero.
type EvaluationStage struct {
	catalog  schema.Catalog
	cfg      Config
	registry modelstore.Registry
	logger   *slog.Logger
}

func NewEvaluationStage(catalog schema.Catalog, cfg Config, registry modelstore.Registry, logger *slog.Logger) *EvaluationStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &EvaluationStage{catalog: catalog, cfg: cfg, registry: registry, logger: logger}
}

func (s *EvaluationStage) Run(ctx context.Context, ingestion IngestionArtifact, transformation TransformationArtifact, trainer TrainerArtifact) (EvaluationArtifact, error) {
	if s == nil || s.registry == nil {
		return EvaluationArtifact{}, stageErrf(StageEvaluation, "run", KindEvaluation, "evaluation stage not initialized")
	}
	s.logger.Info("evaluation started", "model_key", s.cfg.ModelKey)

	trainedF1 := trainer.Metrics.F1

	exists, err := s.registry.Exists(ctx, s.cfg.ModelKey)
	if err != nil {
		return EvaluationArtifact{}, stageErr(StageEvaluation, "check baseline", KindEvaluation, err)
	}
	if !exists {
		s.logger.Info("no baseline model; accepting trained model", "trained_f1", trainedF1)
		return EvaluationArtifact{Accepted: trainedF1 > 0, TrainedF1: trainedF1, Delta: trainedF1}, nil
	}

	baseline, err := s.registry.Get(ctx, s.cfg.ModelKey)
	if err != nil {
		return EvaluationArtifact{}, stageErr(StageEvaluation, "load baseline", KindEvaluation, err)
	}

	baselineF1, err := s.scoreBaseline(ingestion, transformation, baseline)
	if err != nil {
		return EvaluationArtifact{}, err
	}

	accepted := trainedF1 > baselineF1
	art := EvaluationArtifact{
		Accepted:   accepted,
		BaselineF1: &baselineF1,
		TrainedF1:  trainedF1,
		Delta:      trainedF1 - baselineF1,
	}
	s.logger.Info("evaluation finished",
		"accepted", accepted,
		"baseline_f1", baselineF1,
		"trained_f1", trainedF1,
		"delta", art.Delta)
	return art, nil
}

// scoreBaseline replays this run's feature engineering and scaling on the
// raw held-out split, then scores the baseline model on the result. The
// persisted encoding guarantees the same feature space the transformation
// stage produced, even when the split is missing a categorical level.
func (s *EvaluationStage) scoreBaseline(ingestion IngestionArtifact, transformation TransformationArtifact, baseline *learn.ModelBundle) (float64, error) {
	test, err := dataset.ReadCSV(ingestion.TestPath)
	if err != nil {
		return 0, stageErr(StageEvaluation, "read test split", KindIO, err)
	}
	features, target, err := splitTarget(test, s.catalog.TargetColumn)
	if err != nil {
		return 0, stageErr(StageEvaluation, "split target", KindSchema, err)
	}

	scaler, enc, err := readTransformer(transformation.TransformerPath)
	if err != nil {
		return 0, stageErr(StageEvaluation, "read transformer", KindIO, err)
	}
	table, err := enc.apply(features, s.catalog)
	if err != nil {
		return 0, stageErr(StageEvaluation, "engineer features", KindTransform, err)
	}
	scaled, err := scaler.Transform(table)
	if err != nil {
		return 0, stageErr(StageEvaluation, "scale features", KindTransform, err)
	}

	pred, err := baseline.Model.Predict(scaled.Rows)
	if err != nil {
		return 0, stageErr(StageEvaluation, "score baseline", KindEvaluation, err)
	}
	f1, err := learn.WeightedF1(target, pred)
	if err != nil {
		return 0, stageErr(StageEvaluation, "score baseline", KindEvaluation, err)
	}
	return f1, nil
}
