package pipeline

import (
	"errors"
	"fmt"

	"github.com/animus-labs/modelforge/internal/learn"
	"github.com/animus-labs/modelforge/internal/platform/env"
)

// Config drives one pipeline run.
type Config struct {
	Collection   string
	SchemaPath   string
	ArtifactRoot string

	TestFraction float64
	SplitSeed    int64

	ResampleSeed int64
	// ResampleTest mirrors the historical behavior of rebalancing the
	// held-out set as well. It leaks synthetic points into evaluation, so a
	// run with it enabled logs a warning.
	ResampleTest bool

	Forest           learn.ForestConfig
	ExpectedAccuracy float64

	ModelKey string
}

func ConfigFromEnv() (Config, error) {
	testFraction, err := env.Float("MODELFORGE_TEST_FRACTION", 0.2)
	if err != nil {
		return Config{}, err
	}
	splitSeed, err := env.Int64("MODELFORGE_SPLIT_SEED", 22)
	if err != nil {
		return Config{}, err
	}
	resampleSeed, err := env.Int64("MODELFORGE_RESAMPLE_SEED", 22)
	if err != nil {
		return Config{}, err
	}
	resampleTest, err := env.Bool("MODELFORGE_RESAMPLE_TEST", true)
	if err != nil {
		return Config{}, err
	}
	trees, err := env.Int("MODELFORGE_FOREST_TREES", 200)
	if err != nil {
		return Config{}, err
	}
	minSplit, err := env.Int("MODELFORGE_FOREST_MIN_SAMPLES_SPLIT", 7)
	if err != nil {
		return Config{}, err
	}
	minLeaf, err := env.Int("MODELFORGE_FOREST_MIN_SAMPLES_LEAF", 6)
	if err != nil {
		return Config{}, err
	}
	maxDepth, err := env.Int("MODELFORGE_FOREST_MAX_DEPTH", 10)
	if err != nil {
		return Config{}, err
	}
	forestSeed, err := env.Int64("MODELFORGE_FOREST_SEED", 101)
	if err != nil {
		return Config{}, err
	}
	expectedAccuracy, err := env.Float("MODELFORGE_EXPECTED_ACCURACY", 0.7)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Collection:   env.String("MODELFORGE_COLLECTION", "vehicle_insurance"),
		SchemaPath:   env.String("MODELFORGE_SCHEMA_PATH", "config/schema.yaml"),
		ArtifactRoot: env.String("MODELFORGE_ARTIFACT_ROOT", "artifact"),
		TestFraction: testFraction,
		SplitSeed:    splitSeed,
		ResampleSeed: resampleSeed,
		ResampleTest: resampleTest,
		Forest: learn.ForestConfig{
			Trees:           trees,
			MinSamplesSplit: minSplit,
			MinSamplesLeaf:  minLeaf,
			MaxDepth:        maxDepth,
			Criterion:       env.String("MODELFORGE_FOREST_CRITERION", learn.CriterionEntropy),
			Seed:            forestSeed,
		},
		ExpectedAccuracy: expectedAccuracy,
		ModelKey:         env.String("MODELFORGE_MODEL_KEY", "registry/model.json"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Collection == "" {
		return errors.New("collection is required")
	}
	if c.SchemaPath == "" {
		return errors.New("schema path is required")
	}
	if c.ArtifactRoot == "" {
		return errors.New("artifact root is required")
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return fmt.Errorf("test fraction must be in (0,1), got %v", c.TestFraction)
	}
	if c.ExpectedAccuracy < 0 || c.ExpectedAccuracy > 1 {
		return fmt.Errorf("expected accuracy must be in [0,1], got %v", c.ExpectedAccuracy)
	}
	if c.ModelKey == "" {
		return errors.New("model key is required")
	}
	return c.Forest.Validate()
}
