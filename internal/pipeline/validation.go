package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/animus-labs/modelforge/internal/dataset"
	"github.com/animus-labs/modelforge/internal/schema"
)

const validationReportSchemaV1 = "modelforge.validation_report.v1"

type validationCheck struct {
	Dataset string   `json:"dataset"`
	Check   string   `json:"check"`
	Passed  bool     `json:"passed"`
	Detail  string   `json:"detail,omitempty"`
	Missing []string `json:"missing_columns,omitempty"`
}

type validationReport struct {
	Schema      string            `json:"schema"`
	RunID       string            `json:"run_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Passed      bool              `json:"passed"`
	Message     string            `json:"message,omitempty"`
	Checks      []validationCheck `json:"checks"`
}

// ValidationStage gates the pipeline: both partitions must match the schema
// catalog's column count and carry every required column. The report is
// persisted whether or not the gate passes.
type ValidationStage struct {
	catalog schema.Catalog
	runID   string
	dir     string
	logger  *slog.Logger
	now     func() time.Time
}

func NewValidationStage(catalog schema.Catalog, runID, dir string, logger *slog.Logger) *ValidationStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValidationStage{catalog: catalog, runID: runID, dir: dir, logger: logger, now: time.Now}
}

func (s *ValidationStage) Run(ctx context.Context, ingestion IngestionArtifact) (ValidationArtifact, error) {
	if s == nil {
		return ValidationArtifact{}, stageErrf(StageValidation, "run", KindIO, "validation stage not initialized")
	}
	s.logger.Info("validation started", "train", ingestion.TrainPath, "test", ingestion.TestPath)

	train, err := dataset.ReadCSV(ingestion.TrainPath)
	if err != nil {
		return ValidationArtifact{}, stageErr(StageValidation, "read train split", KindIO, err)
	}
	test, err := dataset.ReadCSV(ingestion.TestPath)
	if err != nil {
		return ValidationArtifact{}, stageErr(StageValidation, "read test split", KindIO, err)
	}

	var checks []validationCheck
	var clauses []string
	for _, part := range []struct {
		name string
		ds   dataset.Dataset
	}{{"train", train}, {"test", test}} {
		count := s.checkColumnCount(part.name, part.ds)
		checks = append(checks, count)
		if !count.Passed {
			clauses = append(clauses, count.Detail)
		}

		presence := s.checkColumnPresence(part.name, part.ds)
		checks = append(checks, presence)
		if !presence.Passed {
			clauses = append(clauses, presence.Detail)
		}
	}

	passed := len(clauses) == 0
	message := strings.Join(clauses, "; ")

	report := validationReport{
		Schema:      validationReportSchemaV1,
		RunID:       s.runID,
		GeneratedAt: s.now().UTC(),
		Passed:      passed,
		Message:     message,
		Checks:      checks,
	}
	reportPath := filepath.Join(s.dir, "report.json")
	if err := s.writeReport(reportPath, report); err != nil {
		return ValidationArtifact{}, stageErr(StageValidation, "write report", KindIO, err)
	}

	s.logger.Info("validation finished", "passed", passed, "report", reportPath)
	if !passed {
		s.logger.Warn("validation gate failed", "message", message)
	}
	return ValidationArtifact{Passed: passed, Message: message, ReportPath: reportPath}, nil
}

func (s *ValidationStage) checkColumnCount(name string, ds dataset.Dataset) validationCheck {
	want := s.catalog.ExpectedColumnCount()
	got := len(ds.Columns)
	check := validationCheck{Dataset: name, Check: "column_count", Passed: got == want}
	if !check.Passed {
		check.Detail = fmt.Sprintf("%s dataset has %d columns, want %d", name, got, want)
	}
	return check
}

// checkColumnPresence collects every missing required column, not just the
// first.
func (s *ValidationStage) checkColumnPresence(name string, ds dataset.Dataset) validationCheck {
	var missing []string
	for _, col := range s.catalog.RequiredColumns() {
		if !ds.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	check := validationCheck{Dataset: name, Check: "column_presence", Passed: len(missing) == 0, Missing: missing}
	if !check.Passed {
		check.Detail = fmt.Sprintf("%s dataset missing columns: %s", name, strings.Join(missing, ", "))
	}
	return check
}

func (s *ValidationStage) writeReport(path string, report validationReport) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
