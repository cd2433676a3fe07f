package pipeline

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/animus-labs/modelforge/internal/dataset"
	"github.com/animus-labs/modelforge/internal/learn"
	"github.com/animus-labs/modelforge/internal/schema"
)

// The raw records carry a two-level flag column and free-form categorical
// columns whose generated dummy names contain characters unsafe for
// downstream storage. These constants pin the exact encoding both the
// transformation and evaluation stages apply.
const (
	binaryFlagColumn = "Gender"
	binaryFlagZero   = "Female"
	binaryFlagOne    = "Male"
)

var dummyRenames = map[string]string{
	"Vehicle_Age_< 1 Year":  "Vehicle_Age_lt_1_Year",
	"Vehicle_Age_> 2 Years": "Vehicle_Age_gt_2_Years",
}

// prepareFrame applies the deterministic steps shared by fitting and
// applying a feature encoding: binary-encode the flag column (no-op if
// absent) and drop configured columns. The target column must already be
// removed.
func prepareFrame(ds dataset.Dataset, cat schema.Catalog) (dataset.Dataset, error) {
	ds = ds.Clone()
	if idx, ok := ds.ColumnIndex(binaryFlagColumn); ok {
		for r, row := range ds.Rows {
			switch row[idx] {
			case binaryFlagZero:
				row[idx] = "0"
			case binaryFlagOne:
				row[idx] = "1"
			default:
				return dataset.Dataset{}, fmt.Errorf("row %d: unknown %s level %q", r, binaryFlagColumn, row[idx])
			}
		}
	}
	return ds.Drop(cat.DropColumns...), nil
}

// featureEncoding pins the engineered feature space derived from the train
// partition. Applying it to any frame yields exactly the same columns in the
// same order, so train, test and evaluation arrays always line up.
type featureEncoding struct {
	NumericColumns []string         `json:"numeric_columns"`
	Categorical    []categoryLevels `json:"categorical"`
}

// categoryLevels are the dummy-encoded levels kept for one categorical
// column: sorted order with the first level dropped to avoid collinearity.
type categoryLevels struct {
	Column string   `json:"column"`
	Levels []string `json:"levels"`
}

// fitFeatureEncoding derives the feature space from one frame. Numeric
// columns keep their relative order; every non-numeric column contributes
// one dummy per observed level except the first in sorted order.
func fitFeatureEncoding(ds dataset.Dataset, cat schema.Catalog) (featureEncoding, error) {
	prepared, err := prepareFrame(ds, cat)
	if err != nil {
		return featureEncoding{}, err
	}

	var enc featureEncoding
	for j, col := range prepared.Columns {
		if columnIsNumeric(prepared, j) {
			enc.NumericColumns = append(enc.NumericColumns, col)
			continue
		}
		levels := make(map[string]struct{})
		for _, row := range prepared.Rows {
			levels[row[j]] = struct{}{}
		}
		sorted := make([]string, 0, len(levels))
		for level := range levels {
			sorted = append(sorted, level)
		}
		sort.Strings(sorted)
		enc.Categorical = append(enc.Categorical, categoryLevels{Column: col, Levels: sorted[1:]})
	}
	return enc, nil
}

// columns returns the engineered column names, renames applied.
func (e featureEncoding) columns() []string {
	out := append([]string(nil), e.NumericColumns...)
	for _, c := range e.Categorical {
		for _, level := range c.Levels {
			name := c.Column + "_" + level
			if renamed, ok := dummyRenames[name]; ok {
				name = renamed
			}
			out = append(out, name)
		}
	}
	return out
}

// apply projects a frame onto the fitted feature space. Levels unseen at fit
// time map to all-zero dummies, exactly like the dropped base level; a fitted
// numeric column that is missing or non-numeric is an error.
func (e featureEncoding) apply(ds dataset.Dataset, cat schema.Catalog) (learn.Table, error) {
	prepared, err := prepareFrame(ds, cat)
	if err != nil {
		return learn.Table{}, err
	}

	numIdx := make([]int, len(e.NumericColumns))
	for i, col := range e.NumericColumns {
		idx, ok := prepared.ColumnIndex(col)
		if !ok {
			return learn.Table{}, fmt.Errorf("fitted numeric column %q not present", col)
		}
		numIdx[i] = idx
	}

	type dummy struct {
		srcIdx int
		level  string
	}
	var dummies []dummy
	for _, c := range e.Categorical {
		idx, ok := prepared.ColumnIndex(c.Column)
		if !ok {
			return learn.Table{}, fmt.Errorf("fitted categorical column %q not present", c.Column)
		}
		for _, level := range c.Levels {
			dummies = append(dummies, dummy{srcIdx: idx, level: level})
		}
	}

	outCols := e.columns()
	rows := make([][]float64, len(prepared.Rows))
	for r, row := range prepared.Rows {
		out := make([]float64, len(outCols))
		for i, idx := range numIdx {
			v, err := strconv.ParseFloat(row[idx], 64)
			if err != nil {
				return learn.Table{}, fmt.Errorf("row %d column %q: parse %q: %w", r, e.NumericColumns[i], row[idx], err)
			}
			out[i] = v
		}
		for i, d := range dummies {
			if row[d.srcIdx] == d.level {
				out[len(numIdx)+i] = 1
			}
		}
		rows[r] = out
	}
	return learn.Table{Columns: outCols, Rows: rows}, nil
}

func columnIsNumeric(ds dataset.Dataset, idx int) bool {
	for _, row := range ds.Rows {
		if _, err := strconv.ParseFloat(row[idx], 64); err != nil {
			return false
		}
	}
	return true
}

// splitTarget separates the label column from the features, parsing labels
// as integers.
func splitTarget(ds dataset.Dataset, targetColumn string) (dataset.Dataset, []int, error) {
	values, err := ds.Column(targetColumn)
	if err != nil {
		return dataset.Dataset{}, nil, err
	}
	labels := make([]int, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return dataset.Dataset{}, nil, fmt.Errorf("row %d: parse target %q: %w", i, v, err)
		}
		labels[i] = int(f)
	}
	return ds.Drop(targetColumn), labels, nil
}
