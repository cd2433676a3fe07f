package learn

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Resampler corrects class imbalance with a combined over/under strategy:
// synthetic minority oversampling (interpolating between a minority sample
// and one of its nearest minority neighbours) followed by edited
// nearest-neighbour cleaning, which removes samples whose neighbourhood
// votes against their own label. A fixed seed makes the result
// deterministic.
type Resampler struct {
	OverK  int
	CleanK int
	Seed   int64
}

func NewResampler(seed int64) *Resampler {
	return &Resampler{OverK: 5, CleanK: 3, Seed: seed}
}

// Resample returns rebalanced copies of X and y. The inputs are never
// mutated.
func (r *Resampler) Resample(X [][]float64, y []int) ([][]float64, []int, error) {
	if r == nil {
		return nil, nil, fmt.Errorf("resampler not initialized")
	}
	if len(X) != len(y) {
		return nil, nil, fmt.Errorf("resample: %d rows but %d labels", len(X), len(y))
	}
	if len(X) == 0 {
		return nil, nil, fmt.Errorf("resample: empty input")
	}

	outX := make([][]float64, 0, len(X))
	outY := make([]int, 0, len(y))
	for i, row := range X {
		cp := make([]float64, len(row))
		copy(cp, row)
		outX = append(outX, cp)
		outY = append(outY, y[i])
	}

	rng := rand.New(rand.NewSource(r.Seed))
	outX, outY = r.oversample(outX, outY, rng)
	outX, outY = r.clean(outX, outY)
	return outX, outY, nil
}

func (r *Resampler) oversample(X [][]float64, y []int, rng *rand.Rand) ([][]float64, []int) {
	minority, majorityCount := minorityClass(y)
	var minorityIdx []int
	for i, label := range y {
		if label == minority {
			minorityIdx = append(minorityIdx, i)
		}
	}
	needed := majorityCount - len(minorityIdx)
	if needed <= 0 || len(minorityIdx) < 2 {
		return X, y
	}

	k := r.OverK
	if k > len(minorityIdx)-1 {
		k = len(minorityIdx) - 1
	}
	for s := 0; s < needed; s++ {
		base := minorityIdx[rng.Intn(len(minorityIdx))]
		neighbours := nearest(X, minorityIdx, base, k)
		pick := neighbours[rng.Intn(len(neighbours))]
		gap := rng.Float64()
		synth := make([]float64, len(X[base]))
		for j := range synth {
			synth[j] = X[base][j] + gap*(X[pick][j]-X[base][j])
		}
		X = append(X, synth)
		y = append(y, minority)
	}
	return X, y
}

func (r *Resampler) clean(X [][]float64, y []int) ([][]float64, []int) {
	n := len(X)
	k := r.CleanK
	if k > n-1 {
		k = n - 1
	}
	if k < 1 {
		return X, y
	}

	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	remove := make([]bool, n)
	classLeft := make(map[int]int)
	for _, label := range y {
		classLeft[label]++
	}
	for i := 0; i < n; i++ {
		neighbours := nearest(X, all, i, k)
		votes := make(map[int]int, k)
		for _, nb := range neighbours {
			votes[y[nb]]++
		}
		best, bestCount := y[i], -1
		for label, count := range votes {
			if count > bestCount || (count == bestCount && label < best) {
				best, bestCount = label, count
			}
		}
		// never empty a class entirely
		if best != y[i] && classLeft[y[i]] > 1 {
			remove[i] = true
			classLeft[y[i]]--
		}
	}

	keptX := make([][]float64, 0, n)
	keptY := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if remove[i] {
			continue
		}
		keptX = append(keptX, X[i])
		keptY = append(keptY, y[i])
	}
	return keptX, keptY
}

// nearest returns the k candidates closest to X[from] (excluding itself),
// ties broken by index for determinism.
func nearest(X [][]float64, candidates []int, from int, k int) []int {
	type scored struct {
		idx  int
		dist float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if c == from {
			continue
		}
		ranked = append(ranked, scored{idx: c, dist: floats.Distance(X[from], X[c], 2)})
	}
	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].dist != ranked[b].dist {
			return ranked[a].dist < ranked[b].dist
		}
		return ranked[a].idx < ranked[b].idx
	})
	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = ranked[i].idx
	}
	return out
}

// minorityClass returns the least frequent label (ties to the smaller label)
// and the count of the most frequent one.
func minorityClass(y []int) (minority int, majorityCount int) {
	counts := make(map[int]int)
	for _, label := range y {
		counts[label]++
	}
	labels := make([]int, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Ints(labels)
	minority = labels[0]
	for _, label := range labels {
		if counts[label] < counts[minority] {
			minority = label
		}
		if counts[label] > majorityCount {
			majorityCount = counts[label]
		}
	}
	return minority, majorityCount
}
