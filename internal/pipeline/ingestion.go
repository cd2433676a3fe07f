package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/animus-labs/modelforge/internal/dataset"
	"github.com/animus-labs/modelforge/internal/docstore"
)

// The source marks missing values with a sentinel string; ingestion
// normalizes it away before anything downstream sees the data.
const missingValueSentinel = "na"

// internalIDColumn is the store-assigned identifier attached to every
// fetched document. It never reaches the feature store.
const internalIDColumn = "_id"

// IngestionStage fetches every record of the configured collection,
// snapshots the full dataset, and splits it into train and test partitions
// with a fixed seed.
type IngestionStage struct {
	source docstore.Source
	cfg    Config
	dir    string
	logger *slog.Logger
}

func NewIngestionStage(source docstore.Source, cfg Config, dir string, logger *slog.Logger) *IngestionStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestionStage{source: source, cfg: cfg, dir: dir, logger: logger}
}

func (s *IngestionStage) Run(ctx context.Context) (IngestionArtifact, error) {
	if s == nil || s.source == nil {
		return IngestionArtifact{}, stageErrf(StageIngestion, "run", KindDataAccess, "ingestion stage not initialized")
	}
	s.logger.Info("ingestion started", "collection", s.cfg.Collection)

	docs, err := s.source.FetchAll(ctx, s.cfg.Collection)
	if err != nil {
		return IngestionArtifact{}, stageErr(StageIngestion, "fetch records", KindDataAccess, err)
	}
	if len(docs) == 0 {
		return IngestionArtifact{}, stageErrf(StageIngestion, "fetch records", KindDataAccess, "collection %s returned no records", s.cfg.Collection)
	}

	ds := materialize(docs).Drop(internalIDColumn)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return IngestionArtifact{}, stageErr(StageIngestion, "create artifact dir", KindIO, err)
	}

	featureStorePath := filepath.Join(s.dir, "feature_store.csv")
	if err := ds.WriteCSV(featureStorePath); err != nil {
		return IngestionArtifact{}, stageErr(StageIngestion, "write feature store", KindIO, err)
	}
	s.logger.Info("feature store written", "path", featureStorePath, "rows", ds.NumRows())

	train, test, err := ds.Split(s.cfg.TestFraction, s.cfg.SplitSeed)
	if err != nil {
		return IngestionArtifact{}, stageErr(StageIngestion, "split", KindPrecondition, err)
	}

	trainPath := filepath.Join(s.dir, "train.csv")
	testPath := filepath.Join(s.dir, "test.csv")
	if err := train.WriteCSV(trainPath); err != nil {
		return IngestionArtifact{}, stageErr(StageIngestion, "write train split", KindIO, err)
	}
	if err := test.WriteCSV(testPath); err != nil {
		return IngestionArtifact{}, stageErr(StageIngestion, "write test split", KindIO, err)
	}

	s.logger.Info("ingestion finished", "train_rows", train.NumRows(), "test_rows", test.NumRows())
	return IngestionArtifact{TrainPath: trainPath, TestPath: testPath}, nil
}

// materialize turns schema-less documents into a table. Columns are the
// sorted union of keys so the layout does not depend on document order;
// missing keys and the missing-value sentinel become empty cells.
func materialize(docs []docstore.Document) dataset.Dataset {
	keys := make(map[string]struct{})
	for _, doc := range docs {
		for k := range doc {
			keys[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(keys))
	for k := range keys {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	rows := make([][]string, len(docs))
	for i, doc := range docs {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j] = formatValue(doc[col])
		}
		rows[i] = row
	}
	return dataset.Dataset{Columns: columns, Rows: rows}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		if strings.EqualFold(val, missingValueSentinel) {
			return ""
		}
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
