package learn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type StandardParams struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

type RangeParams struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ColumnScaler standardizes one set of named columns to zero mean and unit
// variance, scales a second set to [0,1], and passes everything else through
// untouched. Parameters are fitted on the training partition only; Transform
// never alters them.
type ColumnScaler struct {
	StandardColumns []string                  `json:"standard_columns"`
	MinMaxColumns   []string                  `json:"minmax_columns"`
	Standard        map[string]StandardParams `json:"standard,omitempty"`
	Ranges          map[string]RangeParams    `json:"ranges,omitempty"`
	Fitted          bool                      `json:"fitted"`
}

func NewColumnScaler(standardColumns, minMaxColumns []string) *ColumnScaler {
	return &ColumnScaler{
		StandardColumns: append([]string(nil), standardColumns...),
		MinMaxColumns:   append([]string(nil), minMaxColumns...),
	}
}

// Fit computes scaling parameters from t. Every configured column must be
// present. Fitting is independent of row order.
func (s *ColumnScaler) Fit(t Table) error {
	if s == nil {
		return fmt.Errorf("scaler not initialized")
	}
	if t.NumRows() == 0 {
		return fmt.Errorf("fit: empty table")
	}

	standard := make(map[string]StandardParams, len(s.StandardColumns))
	for _, col := range s.StandardColumns {
		values, err := t.ColumnValues(col)
		if err != nil {
			return fmt.Errorf("fit standard: %w", err)
		}
		mean, variance := stat.MeanVariance(values, nil)
		n := float64(len(values))
		std := 0.0
		if n > 1 {
			std = math.Sqrt(variance * (n - 1) / n)
		}
		if std == 0 {
			std = 1
		}
		standard[col] = StandardParams{Mean: mean, Std: std}
	}

	ranges := make(map[string]RangeParams, len(s.MinMaxColumns))
	for _, col := range s.MinMaxColumns {
		values, err := t.ColumnValues(col)
		if err != nil {
			return fmt.Errorf("fit minmax: %w", err)
		}
		ranges[col] = RangeParams{Min: floats.Min(values), Max: floats.Max(values)}
	}

	s.Standard = standard
	s.Ranges = ranges
	s.Fitted = true
	return nil
}

// Transform applies the fitted parameters. Output column order is the
// standard block, then the min-max block, then remaining columns in input
// order, matching the order the training arrays are built in.
func (s *ColumnScaler) Transform(t Table) (Table, error) {
	if s == nil || !s.Fitted {
		return Table{}, fmt.Errorf("transform: scaler not fitted")
	}

	scaled := make(map[string]struct{}, len(s.StandardColumns)+len(s.MinMaxColumns))
	outCols := make([]string, 0, len(t.Columns))
	for _, col := range s.StandardColumns {
		scaled[col] = struct{}{}
		outCols = append(outCols, col)
	}
	for _, col := range s.MinMaxColumns {
		scaled[col] = struct{}{}
		outCols = append(outCols, col)
	}
	var passthrough []string
	for _, col := range t.Columns {
		if _, ok := scaled[col]; !ok {
			passthrough = append(passthrough, col)
		}
	}
	outCols = append(outCols, passthrough...)

	srcIdx := make([]int, len(outCols))
	for i, col := range outCols {
		idx, ok := t.ColumnIndex(col)
		if !ok {
			return Table{}, fmt.Errorf("transform: column %q not found", col)
		}
		srcIdx[i] = idx
	}

	rows := make([][]float64, len(t.Rows))
	for r, row := range t.Rows {
		out := make([]float64, len(outCols))
		for i, col := range outCols {
			v := row[srcIdx[i]]
			if p, ok := s.Standard[col]; ok {
				v = (v - p.Mean) / p.Std
			} else if p, ok := s.Ranges[col]; ok {
				if p.Max > p.Min {
					v = (v - p.Min) / (p.Max - p.Min)
				} else {
					v = 0
				}
			}
			out[i] = v
		}
		rows[r] = out
	}
	return Table{Columns: outCols, Rows: rows}, nil
}
