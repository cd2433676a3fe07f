package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/animus-labs/modelforge/internal/learn"
)

// TrainingStage fits the classifier on the transformed train array, scores
// both partitions, and persists a self-contained bundle of the fitted
// transformer plus model. Training only succeeds when train accuracy clears
// the configured floor.
type TrainingStage struct {
	cfg    Config
	dir    string
	logger *slog.Logger
}

func NewTrainingStage(cfg Config, dir string, logger *slog.Logger) *TrainingStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrainingStage{cfg: cfg, dir: dir, logger: logger}
}

func (s *TrainingStage) Run(ctx context.Context, transformation TransformationArtifact) (TrainerArtifact, error) {
	if s == nil {
		return TrainerArtifact{}, stageErrf(StageTraining, "run", KindTraining, "training stage not initialized")
	}
	s.logger.Info("training started", "trees", s.cfg.Forest.Trees, "criterion", s.cfg.Forest.Criterion)

	trainX, trainY, trainCols, err := readArray(transformation.TrainArrayPath)
	if err != nil {
		return TrainerArtifact{}, stageErr(StageTraining, "read train array", KindIO, err)
	}
	testX, testY, testCols, err := readArray(transformation.TestArrayPath)
	if err != nil {
		return TrainerArtifact{}, stageErr(StageTraining, "read test array", KindIO, err)
	}
	// Feature positions are the model's contract with its inputs; scoring a
	// misaligned array would corrupt metrics rather than fail.
	if !slices.Equal(trainCols, testCols) {
		return TrainerArtifact{}, stageErrf(StageTraining, "check arrays", KindTraining,
			"train and test arrays disagree on feature columns: %v vs %v", trainCols, testCols)
	}

	forest := learn.NewForest(s.cfg.Forest)
	if err := forest.Fit(trainX, trainY); err != nil {
		return TrainerArtifact{}, stageErr(StageTraining, "fit model", KindTraining, err)
	}

	trainPred, err := forest.Predict(trainX)
	if err != nil {
		return TrainerArtifact{}, stageErr(StageTraining, "score train", KindTraining, err)
	}
	trainAccuracy := learn.Accuracy(trainY, trainPred)

	testPred, err := forest.Predict(testX)
	if err != nil {
		return TrainerArtifact{}, stageErr(StageTraining, "score test", KindTraining, err)
	}
	metrics, err := learn.Evaluate(testY, testPred)
	if err != nil {
		return TrainerArtifact{}, stageErr(StageTraining, "score test", KindTraining, err)
	}

	s.logger.Info("model scored",
		"train_accuracy", trainAccuracy,
		"test_accuracy", metrics.Accuracy,
		"test_f1", metrics.F1)

	if trainAccuracy < s.cfg.ExpectedAccuracy {
		return TrainerArtifact{}, stageErrf(StageTraining, "accuracy gate", KindTraining,
			"no model met the accuracy threshold: train accuracy %.4f < %.4f", trainAccuracy, s.cfg.ExpectedAccuracy)
	}

	transformer, _, err := readTransformer(transformation.TransformerPath)
	if err != nil {
		return TrainerArtifact{}, stageErr(StageTraining, "read transformer", KindIO, err)
	}
	bundle := learn.NewModelBundle(transformer, forest)
	raw, err := learn.EncodeBundle(bundle)
	if err != nil {
		return TrainerArtifact{}, stageErr(StageTraining, "encode bundle", KindIO, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return TrainerArtifact{}, stageErr(StageTraining, "create artifact dir", KindIO, err)
	}
	modelPath := filepath.Join(s.dir, "model_bundle.json")
	if err := os.WriteFile(modelPath, raw, 0o644); err != nil {
		return TrainerArtifact{}, stageErr(StageTraining, "write bundle", KindIO, err)
	}

	s.logger.Info("training finished", "model", modelPath)
	return TrainerArtifact{ModelPath: modelPath, Metrics: metrics}, nil
}
