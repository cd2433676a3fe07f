package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

// Split shuffles the rows with a seeded source and partitions them into
// train and test sets. The same dataset, fraction and seed always produce
// identical partitions.
func (d Dataset) Split(testFraction float64, seed int64) (train, test Dataset, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return Dataset{}, Dataset{}, fmt.Errorf("test fraction must be in (0,1), got %v", testFraction)
	}

	n := len(d.Rows)
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(math.Round(float64(n) * testFraction))

	testRows := make([][]string, 0, nTest)
	trainRows := make([][]string, 0, n-nTest)
	for i, idx := range perm {
		row := make([]string, len(d.Rows[idx]))
		copy(row, d.Rows[idx])
		if i < nTest {
			testRows = append(testRows, row)
		} else {
			trainRows = append(trainRows, row)
		}
	}

	cols := make([]string, len(d.Columns))
	copy(cols, d.Columns)
	train = Dataset{Columns: cols, Rows: trainRows}
	test = Dataset{Columns: append([]string(nil), cols...), Rows: testRows}
	return train, test, nil
}
