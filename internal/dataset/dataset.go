// Package dataset holds the in-memory table produced by ingestion and
// consumed by validation, transformation and evaluation. Values stay as
// strings until feature engineering converts them; column order is preserved
// from the source.
package dataset

import "fmt"

type Dataset struct {
	Columns []string
	Rows    [][]string
}

func (d Dataset) NumRows() int { return len(d.Rows) }

func (d Dataset) ColumnIndex(name string) (int, bool) {
	for i, col := range d.Columns {
		if col == name {
			return i, true
		}
	}
	return 0, false
}

func (d Dataset) HasColumn(name string) bool {
	_, ok := d.ColumnIndex(name)
	return ok
}

// Column returns the values of one named column.
func (d Dataset) Column(name string) ([]string, error) {
	idx, ok := d.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Clone returns a deep copy; mutating the copy never affects the original.
func (d Dataset) Clone() Dataset {
	cols := make([]string, len(d.Columns))
	copy(cols, d.Columns)
	rows := make([][]string, len(d.Rows))
	for i, row := range d.Rows {
		rows[i] = make([]string, len(row))
		copy(rows[i], row)
	}
	return Dataset{Columns: cols, Rows: rows}
}

// Drop returns a copy without the named columns. Names absent from the
// dataset are ignored.
func (d Dataset) Drop(names ...string) Dataset {
	dropped := make(map[string]struct{}, len(names))
	for _, name := range names {
		dropped[name] = struct{}{}
	}
	keep := make([]int, 0, len(d.Columns))
	cols := make([]string, 0, len(d.Columns))
	for i, col := range d.Columns {
		if _, ok := dropped[col]; ok {
			continue
		}
		keep = append(keep, i)
		cols = append(cols, col)
	}
	rows := make([][]string, len(d.Rows))
	for i, row := range d.Rows {
		out := make([]string, len(keep))
		for j, idx := range keep {
			out[j] = row[idx]
		}
		rows[i] = out
	}
	return Dataset{Columns: cols, Rows: rows}
}
