package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/animus-labs/modelforge/internal/dataset"
	"github.com/animus-labs/modelforge/internal/learn"
	"github.com/animus-labs/modelforge/internal/schema"
)

// TransformationStage engineers features, fits the scaling transform on the
// train partition only, rebalances classes, and persists the fitted
// transformer plus both arrays.
type TransformationStage struct {
	catalog schema.Catalog
	cfg     Config
	dir     string
	logger  *slog.Logger
}

func NewTransformationStage(catalog schema.Catalog, cfg Config, dir string, logger *slog.Logger) *TransformationStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransformationStage{catalog: catalog, cfg: cfg, dir: dir, logger: logger}
}

func (s *TransformationStage) Run(ctx context.Context, ingestion IngestionArtifact, validation ValidationArtifact) (TransformationArtifact, error) {
	if s == nil {
		return TransformationArtifact{}, stageErrf(StageTransformation, "run", KindPrecondition, "transformation stage not initialized")
	}
	if !validation.Passed {
		return TransformationArtifact{}, stageErrf(StageTransformation, "run", KindPrecondition, "validation gate did not pass: %s", validation.Message)
	}
	s.logger.Info("transformation started")

	train, err := dataset.ReadCSV(ingestion.TrainPath)
	if err != nil {
		return TransformationArtifact{}, stageErr(StageTransformation, "read train split", KindIO, err)
	}
	test, err := dataset.ReadCSV(ingestion.TestPath)
	if err != nil {
		return TransformationArtifact{}, stageErr(StageTransformation, "read test split", KindIO, err)
	}

	if err := s.checkConfiguredColumns(train); err != nil {
		return TransformationArtifact{}, err
	}

	trainFeatures, trainTarget, err := splitTarget(train, s.catalog.TargetColumn)
	if err != nil {
		return TransformationArtifact{}, stageErr(StageTransformation, "split target", KindSchema, err)
	}
	testFeatures, testTarget, err := splitTarget(test, s.catalog.TargetColumn)
	if err != nil {
		return TransformationArtifact{}, stageErr(StageTransformation, "split target", KindSchema, err)
	}

	// The feature space is pinned to the train partition; the test frame is
	// projected onto it so both arrays always carry identical columns.
	enc, err := fitFeatureEncoding(trainFeatures, s.catalog)
	if err != nil {
		return TransformationArtifact{}, stageErr(StageTransformation, "fit feature encoding", KindTransform, err)
	}
	trainTable, err := enc.apply(trainFeatures, s.catalog)
	if err != nil {
		return TransformationArtifact{}, stageErr(StageTransformation, "engineer train features", KindTransform, err)
	}
	testTable, err := enc.apply(testFeatures, s.catalog)
	if err != nil {
		return TransformationArtifact{}, stageErr(StageTransformation, "engineer test features", KindTransform, err)
	}

	// Leakage invariant: parameters come from the train partition only.
	scaler := learn.NewColumnScaler(s.catalog.NumFeatures, s.catalog.MinMaxColumns)
	if err := scaler.Fit(trainTable); err != nil {
		return TransformationArtifact{}, stageErr(StageTransformation, "fit scaler", KindTransform, err)
	}
	scaledTrain, err := scaler.Transform(trainTable)
	if err != nil {
		return TransformationArtifact{}, stageErr(StageTransformation, "scale train", KindTransform, err)
	}
	scaledTest, err := scaler.Transform(testTable)
	if err != nil {
		return TransformationArtifact{}, stageErr(StageTransformation, "scale test", KindTransform, err)
	}

	resampler := learn.NewResampler(s.cfg.ResampleSeed)
	trainX, trainY, err := resampler.Resample(scaledTrain.Rows, trainTarget)
	if err != nil {
		return TransformationArtifact{}, stageErr(StageTransformation, "resample train", KindTransform, err)
	}
	scaledTrain.Rows = trainX

	testX, testY := scaledTest.Rows, testTarget
	if s.cfg.ResampleTest {
		s.logger.Warn("resampling held-out test set; synthetic points will leak into evaluation")
		testX, testY, err = resampler.Resample(scaledTest.Rows, testTarget)
		if err != nil {
			return TransformationArtifact{}, stageErr(StageTransformation, "resample test", KindTransform, err)
		}
	}
	scaledTest.Rows = testX

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return TransformationArtifact{}, stageErr(StageTransformation, "create artifact dir", KindIO, err)
	}

	transformerPath := filepath.Join(s.dir, "transformer.json")
	if err := writeTransformer(transformerPath, scaler, enc); err != nil {
		return TransformationArtifact{}, stageErr(StageTransformation, "persist transformer", KindIO, err)
	}
	trainArrayPath := filepath.Join(s.dir, "train_array.json")
	if err := writeArray(trainArrayPath, scaledTrain, trainY, s.catalog.TargetColumn); err != nil {
		return TransformationArtifact{}, stageErr(StageTransformation, "persist train array", KindIO, err)
	}
	testArrayPath := filepath.Join(s.dir, "test_array.json")
	if err := writeArray(testArrayPath, scaledTest, testY, s.catalog.TargetColumn); err != nil {
		return TransformationArtifact{}, stageErr(StageTransformation, "persist test array", KindIO, err)
	}

	s.logger.Info("transformation finished",
		"train_rows", len(scaledTrain.Rows),
		"test_rows", len(scaledTest.Rows),
		"features", len(scaledTrain.Columns))
	return TransformationArtifact{
		TransformerPath: transformerPath,
		TrainArrayPath:  trainArrayPath,
		TestArrayPath:   testArrayPath,
	}, nil
}

// checkConfiguredColumns rejects configured names that exist neither in the
// data nor in the declared schema.
func (s *TransformationStage) checkConfiguredColumns(ds dataset.Dataset) error {
	for _, col := range s.catalog.DropColumns {
		if !ds.HasColumn(col) && !slices.Contains(s.catalog.Columns, col) {
			return stageErrf(StageTransformation, "resolve columns", KindSchema, "configured drop column %q is absent from both dataset and schema", col)
		}
	}
	if !ds.HasColumn(s.catalog.TargetColumn) {
		return stageErrf(StageTransformation, "resolve columns", KindSchema, "target column %q not present in dataset", s.catalog.TargetColumn)
	}
	return nil
}
