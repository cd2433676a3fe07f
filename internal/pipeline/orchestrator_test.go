package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/animus-labs/modelforge/internal/dataset"
	"github.com/animus-labs/modelforge/internal/docstore"
	"github.com/animus-labs/modelforge/internal/learn"
)

func TestOrchestrator_FullRunPromotesModel(t *testing.T) {
	root := t.TempDir()
	cfg := testPipelineConfig(root)
	source := &fakeSource{docs: map[string][]docstore.Document{
		cfg.Collection: insuranceDocuments(1000, 11),
	}}
	registry := newFakeRegistry()

	o := NewOrchestrator(cfg, insuranceCatalog(), source, registry, nil)
	result, err := o.RunPipeline(context.Background())
	if err != nil {
		t.Fatalf("RunPipeline() error = %v", err)
	}
	if !result.Success() {
		t.Fatalf("RunPipeline() outcome = %s (%s), want success", result.Outcome, result.Message)
	}
	if !result.Validation.Passed {
		t.Fatal("validation did not pass")
	}
	if result.Trainer == nil || result.Evaluation == nil {
		t.Fatal("trainer or evaluation artifact missing")
	}
	if !result.Evaluation.Accepted {
		t.Fatalf("first run not accepted: trained F1 %v", result.Evaluation.TrainedF1)
	}
	if result.Evaluation.BaselineF1 != nil {
		t.Fatalf("baseline F1 = %v, want nil on first run", *result.Evaluation.BaselineF1)
	}
	if result.Promotion == nil || result.Promotion.RemoteModelKey != cfg.ModelKey {
		t.Fatalf("promotion = %+v, want key %s", result.Promotion, cfg.ModelKey)
	}

	bundle, err := registry.Get(context.Background(), cfg.ModelKey)
	if err != nil {
		t.Fatalf("registry Get() error = %v", err)
	}
	if bundle.Schema != learn.BundleSchemaV1 {
		t.Fatalf("promoted bundle schema = %q, want %q", bundle.Schema, learn.BundleSchemaV1)
	}

	runDir := filepath.Join(root, result.RunID)
	train, err := dataset.ReadCSV(filepath.Join(runDir, StageIngestion, "train.csv"))
	if err != nil {
		t.Fatalf("ReadCSV(train) error = %v", err)
	}
	test, err := dataset.ReadCSV(filepath.Join(runDir, StageIngestion, "test.csv"))
	if err != nil {
		t.Fatalf("ReadCSV(test) error = %v", err)
	}
	if train.NumRows() != 800 || test.NumRows() != 200 {
		t.Fatalf("split sizes = %d/%d, want 800/200", train.NumRows(), test.NumRows())
	}
	for _, rel := range []string{
		filepath.Join(StageIngestion, "feature_store.csv"),
		filepath.Join(StageIngestion, "train.csv"),
		filepath.Join(StageIngestion, "test.csv"),
		filepath.Join(StageValidation, "report.json"),
		filepath.Join(StageTransformation, "transformer.json"),
		filepath.Join(StageTransformation, "train_array.json"),
		filepath.Join(StageTransformation, "test_array.json"),
		filepath.Join(StageTraining, "model_bundle.json"),
	} {
		if _, err := os.Stat(filepath.Join(runDir, rel)); err != nil {
			t.Fatalf("missing run artifact %s: %v", rel, err)
		}
	}
}

func TestOrchestrator_ValidationGateStopsRun(t *testing.T) {
	root := t.TempDir()
	cfg := testPipelineConfig(root)
	source := &fakeSource{docs: map[string][]docstore.Document{
		cfg.Collection: insuranceDocuments(100, 11),
	}}
	registry := newFakeRegistry()

	cat := insuranceCatalog()
	cat.Numerical = append(cat.Numerical, "Credit_Score")

	o := NewOrchestrator(cfg, cat, source, registry, nil)
	result, err := o.RunPipeline(context.Background())
	if err != nil {
		t.Fatalf("RunPipeline() error = %v, want nil on gate failure", err)
	}
	if result.Outcome != OutcomeValidationFailed {
		t.Fatalf("RunPipeline() outcome = %s, want %s", result.Outcome, OutcomeValidationFailed)
	}
	if result.FailureStage != StageValidation {
		t.Fatalf("RunPipeline() failure stage = %q, want %q", result.FailureStage, StageValidation)
	}
	if result.Trainer != nil {
		t.Fatal("model trained despite failed validation gate")
	}
	if exists, _ := registry.Exists(context.Background(), cfg.ModelKey); exists {
		t.Fatal("model promoted despite failed validation gate")
	}
	if _, err := os.Stat(result.Validation.ReportPath); err != nil {
		t.Fatalf("validation report missing: %v", err)
	}
}

func TestOrchestrator_PromotionFailureDoesNotFailRun(t *testing.T) {
	root := t.TempDir()
	cfg := testPipelineConfig(root)
	source := &fakeSource{docs: map[string][]docstore.Document{
		cfg.Collection: insuranceDocuments(400, 11),
	}}
	registry := newFakeRegistry()
	registry.putErr = errors.New("bucket unavailable")

	o := NewOrchestrator(cfg, insuranceCatalog(), source, registry, nil)
	result, err := o.RunPipeline(context.Background())
	if err != nil {
		t.Fatalf("RunPipeline() error = %v, want nil on promotion failure", err)
	}
	if !result.Success() {
		t.Fatalf("RunPipeline() outcome = %s, want success", result.Outcome)
	}
	if !result.PromotionFailed() {
		t.Fatal("promotion error not surfaced on result")
	}
	if result.Promotion != nil {
		t.Fatal("promotion artifact present despite upload failure")
	}
	if result.Trainer == nil {
		t.Fatal("trainer artifact missing; local bundle should survive promotion failure")
	}
	if _, err := os.Stat(result.Trainer.ModelPath); err != nil {
		t.Fatalf("local model bundle missing: %v", err)
	}
}

func TestOrchestrator_StageFailureClassified(t *testing.T) {
	cfg := testPipelineConfig(t.TempDir())
	source := &fakeSource{err: errors.New("connection refused")}

	o := NewOrchestrator(cfg, insuranceCatalog(), source, newFakeRegistry(), nil)
	result, err := o.RunPipeline(context.Background())
	if err == nil {
		t.Fatal("RunPipeline() error = nil, want ingestion failure")
	}
	if result.Outcome != OutcomeError {
		t.Fatalf("RunPipeline() outcome = %s, want %s", result.Outcome, OutcomeError)
	}
	if result.FailureStage != StageIngestion {
		t.Fatalf("RunPipeline() failure stage = %s, want %s", result.FailureStage, StageIngestion)
	}
}

func TestOrchestrator_SecondRunScoresAgainstBaseline(t *testing.T) {
	root := t.TempDir()
	cfg := testPipelineConfig(root)
	source := &fakeSource{docs: map[string][]docstore.Document{
		cfg.Collection: insuranceDocuments(500, 11),
	}}
	registry := newFakeRegistry()

	o := NewOrchestrator(cfg, insuranceCatalog(), source, registry, nil)
	if _, err := o.RunPipeline(context.Background()); err != nil {
		t.Fatalf("first RunPipeline() error = %v", err)
	}

	result, err := o.RunPipeline(context.Background())
	if err != nil {
		t.Fatalf("second RunPipeline() error = %v", err)
	}
	if !result.Success() {
		t.Fatalf("second RunPipeline() outcome = %s, want success", result.Outcome)
	}
	if result.Evaluation == nil || result.Evaluation.BaselineF1 == nil {
		t.Fatal("second run did not score against the promoted baseline")
	}
	if result.Evaluation.Accepted != (result.Promotion != nil) {
		t.Fatalf("accepted = %v but promotion = %+v", result.Evaluation.Accepted, result.Promotion)
	}
}
