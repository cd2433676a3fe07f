package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/animus-labs/modelforge/internal/learn"
)

// Persisted training arrays are versioned JSON documents carrying their own
// layout descriptor, so the training stage can verify the target position
// instead of trusting concatenation order.
const (
	arraySchemaV1    = "modelforge.training_array.v1"
	layoutTargetLast = "target_last"

	transformerSchemaV1 = "modelforge.transformer.v1"
)

type arrayDocument struct {
	Schema       string      `json:"schema"`
	Layout       string      `json:"layout"`
	Columns      []string    `json:"columns"`
	TargetColumn string      `json:"target_column"`
	Rows         [][]float64 `json:"rows"`
}

// writeArray persists features plus target as one document, target last.
func writeArray(path string, features learn.Table, target []int, targetColumn string) error {
	if len(features.Rows) != len(target) {
		return fmt.Errorf("array %s: %d rows but %d labels", path, len(features.Rows), len(target))
	}
	doc := arrayDocument{
		Schema:       arraySchemaV1,
		Layout:       layoutTargetLast,
		Columns:      append(append([]string(nil), features.Columns...), targetColumn),
		TargetColumn: targetColumn,
		Rows:         make([][]float64, len(features.Rows)),
	}
	for i, row := range features.Rows {
		doc.Rows[i] = append(append([]float64(nil), row...), float64(target[i]))
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode array %s: %w", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write array %s: %w", path, err)
	}
	return nil
}

// readArray loads a persisted array, checking the layout descriptor before
// slicing features from target.
func readArray(path string) (X [][]float64, y []int, columns []string, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read array %s: %w", path, err)
	}
	var doc arrayDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, nil, fmt.Errorf("decode array %s: %w", path, err)
	}
	if doc.Schema != arraySchemaV1 {
		return nil, nil, nil, fmt.Errorf("array %s: unsupported schema %q", path, doc.Schema)
	}
	if doc.Layout != layoutTargetLast {
		return nil, nil, nil, fmt.Errorf("array %s: unsupported layout %q", path, doc.Layout)
	}
	if len(doc.Columns) < 2 {
		return nil, nil, nil, fmt.Errorf("array %s: need at least one feature and the target", path)
	}

	X = make([][]float64, len(doc.Rows))
	y = make([]int, len(doc.Rows))
	for i, row := range doc.Rows {
		if len(row) != len(doc.Columns) {
			return nil, nil, nil, fmt.Errorf("array %s: row %d has %d values, want %d", path, i, len(row), len(doc.Columns))
		}
		X[i] = row[:len(row)-1]
		y[i] = int(row[len(row)-1])
	}
	return X, y, doc.Columns[:len(doc.Columns)-1], nil
}

// The transformer document carries the fitted scaler together with the
// feature encoding it was fitted against, so later stages reproduce the
// exact feature space instead of re-deriving one from their own data.
type transformerDocument struct {
	Schema   string              `json:"schema"`
	Scaler   *learn.ColumnScaler `json:"scaler"`
	Encoding featureEncoding     `json:"encoding"`
}

func writeTransformer(path string, scaler *learn.ColumnScaler, enc featureEncoding) error {
	raw, err := json.Marshal(transformerDocument{Schema: transformerSchemaV1, Scaler: scaler, Encoding: enc})
	if err != nil {
		return fmt.Errorf("encode transformer: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write transformer %s: %w", path, err)
	}
	return nil
}

func readTransformer(path string) (*learn.ColumnScaler, featureEncoding, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, featureEncoding{}, fmt.Errorf("read transformer %s: %w", path, err)
	}
	var doc transformerDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, featureEncoding{}, fmt.Errorf("decode transformer %s: %w", path, err)
	}
	if doc.Schema != transformerSchemaV1 {
		return nil, featureEncoding{}, fmt.Errorf("transformer %s: unsupported schema %q", path, doc.Schema)
	}
	if doc.Scaler == nil || !doc.Scaler.Fitted {
		return nil, featureEncoding{}, fmt.Errorf("transformer %s: not fitted", path)
	}
	return doc.Scaler, doc.Encoding, nil
}
