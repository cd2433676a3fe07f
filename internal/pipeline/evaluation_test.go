package pipeline

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/animus-labs/modelforge/internal/dataset"
	"github.com/animus-labs/modelforge/internal/learn"
	"github.com/animus-labs/modelforge/internal/schema"
)

func evalCatalog() schema.Catalog {
	return schema.Catalog{
		Columns:       []string{"a", "b", "Response"},
		Numerical:     []string{"a", "b"},
		NumFeatures:   []string{"a"},
		MinMaxColumns: []string{"b"},
		TargetColumn:  "Response",
	}
}

// evalFixture writes a perfectly separable held-out split plus a fitted
// transformer, and returns a baseline bundle that classifies it flawlessly.
func evalFixture(t *testing.T, dir string) (IngestionArtifact, TransformationArtifact, *learn.ModelBundle) {
	t.Helper()

	n := 60
	ds := dataset.Dataset{Columns: []string{"a", "b", "Response"}}
	table := learn.Table{Columns: []string{"a", "b"}}
	y := make([]int, n)
	for i := 0; i < n; i++ {
		a := float64(i % 10)
		b := float64(i % 7)
		label := 0
		if a > 5 {
			label = 1
		}
		y[i] = label
		ds.Rows = append(ds.Rows, []string{
			fmt.Sprintf("%g", a), fmt.Sprintf("%g", b), fmt.Sprintf("%d", label),
		})
		table.Rows = append(table.Rows, []float64{a, b})
	}

	testPath := filepath.Join(dir, "test.csv")
	if err := ds.WriteCSV(testPath); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	scaler := learn.NewColumnScaler([]string{"a"}, []string{"b"})
	if err := scaler.Fit(table); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	transformerPath := filepath.Join(dir, "transformer.json")
	enc := featureEncoding{NumericColumns: []string{"a", "b"}}
	if err := writeTransformer(transformerPath, scaler, enc); err != nil {
		t.Fatalf("writeTransformer() error = %v", err)
	}

	scaled, err := scaler.Transform(table)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	forest := learn.NewForest(learn.ForestConfig{
		Trees: 9, MinSamplesSplit: 2, MinSamplesLeaf: 1, MaxDepth: 6,
		Criterion: learn.CriterionGini, Seed: 5,
	})
	if err := forest.Fit(scaled.Rows, y); err != nil {
		t.Fatalf("forest Fit() error = %v", err)
	}

	return IngestionArtifact{TestPath: testPath},
		TransformationArtifact{TransformerPath: transformerPath},
		learn.NewModelBundle(scaler, forest)
}

func TestEvaluationStage_Acceptance(t *testing.T) {
	tests := []struct {
		name         string
		withBaseline bool
		trainedF1    float64
		wantAccepted bool
	}{
		{"no baseline accepts any positive score", false, 0.42, true},
		{"no baseline rejects zero score", false, 0, false},
		{"worse than baseline rejected", true, 0.9, false},
		{"equal to baseline rejected", true, 1.0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			ingestion, transformation, baseline := evalFixture(t, dir)
			cfg := testPipelineConfig(dir)
			registry := newFakeRegistry()
			if tt.withBaseline {
				if err := registry.Put(context.Background(), cfg.ModelKey, baseline); err != nil {
					t.Fatalf("Put() error = %v", err)
				}
			}

			stage := NewEvaluationStage(evalCatalog(), cfg, registry, nil)
			trainer := TrainerArtifact{Metrics: learn.ClassificationMetrics{F1: tt.trainedF1}}
			got, err := stage.Run(context.Background(), ingestion, transformation, trainer)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got.Accepted != tt.wantAccepted {
				t.Fatalf("Run() accepted = %v, want %v", got.Accepted, tt.wantAccepted)
			}
			if tt.withBaseline {
				if got.BaselineF1 == nil {
					t.Fatal("Run() baseline F1 = nil, want recorded score")
				}
				if math.Abs(*got.BaselineF1-1.0) > 1e-9 {
					t.Fatalf("Run() baseline F1 = %v, want 1.0 on separable data", *got.BaselineF1)
				}
				if math.Abs(got.Delta-(tt.trainedF1-*got.BaselineF1)) > 1e-9 {
					t.Fatalf("Run() delta = %v, want trained minus baseline", got.Delta)
				}
			} else {
				if got.BaselineF1 != nil {
					t.Fatalf("Run() baseline F1 = %v, want nil without baseline", *got.BaselineF1)
				}
				if got.Delta != tt.trainedF1 {
					t.Fatalf("Run() delta = %v, want %v", got.Delta, tt.trainedF1)
				}
			}
		})
	}
}

func TestEvaluationStage_BaselineScoredWithCurrentTransformer(t *testing.T) {
	dir := t.TempDir()
	ingestion, transformation, baseline := evalFixture(t, dir)
	cfg := testPipelineConfig(dir)
	registry := newFakeRegistry()
	if err := registry.Put(context.Background(), cfg.ModelKey, baseline); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Replace the persisted transformer with one fitted on shifted data; the
	// baseline must be scored through it, degrading its score.
	shifted := learn.Table{Columns: []string{"a", "b"}}
	for i := 0; i < 40; i++ {
		shifted.Rows = append(shifted.Rows, []float64{float64(i) + 100, float64(i)})
	}
	scaler := learn.NewColumnScaler([]string{"a"}, []string{"b"})
	if err := scaler.Fit(shifted); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	enc := featureEncoding{NumericColumns: []string{"a", "b"}}
	if err := writeTransformer(transformation.TransformerPath, scaler, enc); err != nil {
		t.Fatalf("writeTransformer() error = %v", err)
	}

	stage := NewEvaluationStage(evalCatalog(), cfg, registry, nil)
	trainer := TrainerArtifact{Metrics: learn.ClassificationMetrics{F1: 0.5}}
	got, err := stage.Run(context.Background(), ingestion, transformation, trainer)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.BaselineF1 == nil {
		t.Fatal("Run() baseline F1 = nil, want recorded score")
	}
	if *got.BaselineF1 >= 1.0 {
		t.Fatalf("Run() baseline F1 = %v, want degraded score through shifted transformer", *got.BaselineF1)
	}
}
