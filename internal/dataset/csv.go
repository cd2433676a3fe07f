package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
)

// ReadCSV loads a dataset from a CSV file with a header row.
func ReadCSV(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return Dataset{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return Dataset{}, fmt.Errorf("read %s: missing header row", path)
	}
	return Dataset{Columns: records[0], Rows: records[1:]}, nil
}

// WriteCSV persists the dataset, header first. The file is fully written and
// closed before WriteCSV returns.
func (d Dataset) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(d.Columns); err != nil {
		_ = f.Close()
		return fmt.Errorf("write header %s: %w", path, err)
	}
	for _, row := range d.Rows {
		if err := w.Write(row); err != nil {
			_ = f.Close()
			return fmt.Errorf("write row %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
