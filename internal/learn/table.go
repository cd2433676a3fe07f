// Package learn carries the numeric machinery behind the pipeline: the
// fitted column scaler, the class rebalancer, the random-forest classifier
// and its evaluation metrics, and the deployable bundle combining scaler and
// model.
package learn

import "fmt"

// Table is a numeric frame with named columns, the shape feature engineering
// hands to the scaler and the classifier.
type Table struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

func (t Table) NumRows() int { return len(t.Rows) }

func (t Table) ColumnIndex(name string) (int, bool) {
	for i, col := range t.Columns {
		if col == name {
			return i, true
		}
	}
	return 0, false
}

// ColumnValues returns a copy of one named column.
func (t Table) ColumnValues(name string) ([]float64, error) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}
