package pipeline

import "github.com/animus-labs/modelforge/internal/learn"

// Stage names attached to errors and run results.
const (
	StageIngestion      = "ingestion"
	StageValidation     = "validation"
	StageTransformation = "transformation"
	StageTraining       = "training"
	StageEvaluation     = "evaluation"
	StagePromotion      = "promotion"
)

// Artifacts are immutable value objects: each stage creates its own exactly
// once and later stages only read it. Every path field names a fully written
// file by the time the artifact is returned.

type IngestionArtifact struct {
	TrainPath string
	TestPath  string
}

type ValidationArtifact struct {
	Passed     bool
	Message    string
	ReportPath string
}

type TransformationArtifact struct {
	TransformerPath string
	TrainArrayPath  string
	TestArrayPath   string
}

type TrainerArtifact struct {
	ModelPath string
	Metrics   learn.ClassificationMetrics
}

type EvaluationArtifact struct {
	Accepted   bool
	BaselineF1 *float64
	TrainedF1  float64
	Delta      float64
}

type PromotionArtifact struct {
	RemoteModelKey string
}
