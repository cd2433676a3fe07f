package learn

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
)

// ForestConfig are the classifier hyperparameters.
type ForestConfig struct {
	Trees           int    `json:"trees"`
	MinSamplesSplit int    `json:"min_samples_split"`
	MinSamplesLeaf  int    `json:"min_samples_leaf"`
	MaxDepth        int    `json:"max_depth"`
	Criterion       string `json:"criterion"`
	Seed            int64  `json:"seed"`
}

func (c ForestConfig) Validate() error {
	if c.Trees < 1 {
		return fmt.Errorf("trees must be >= 1, got %d", c.Trees)
	}
	if c.MinSamplesSplit < 2 {
		return fmt.Errorf("min samples split must be >= 2, got %d", c.MinSamplesSplit)
	}
	if c.MinSamplesLeaf < 1 {
		return fmt.Errorf("min samples leaf must be >= 1, got %d", c.MinSamplesLeaf)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max depth must be >= 0, got %d", c.MaxDepth)
	}
	if c.Criterion != CriterionGini && c.Criterion != CriterionEntropy {
		return fmt.Errorf("criterion must be %q or %q, got %q", CriterionGini, CriterionEntropy, c.Criterion)
	}
	return nil
}

// Forest is a seeded random-forest classifier. Each tree gets its own
// bootstrap sample and rand source derived from the base seed, so a fixed
// seed reproduces the fitted forest exactly.
type Forest struct {
	Config  ForestConfig    `json:"config"`
	Classes []int           `json:"classes"`
	Trees   []*DecisionTree `json:"trees"`
}

func NewForest(cfg ForestConfig) *Forest {
	return &Forest{Config: cfg}
}

func (f *Forest) Fit(X [][]float64, y []int) error {
	if f == nil {
		return fmt.Errorf("forest not initialized")
	}
	if err := f.Config.Validate(); err != nil {
		return err
	}
	if len(X) == 0 {
		return fmt.Errorf("fit: empty X")
	}
	if len(X) != len(y) {
		return fmt.Errorf("fit: %d rows but %d labels", len(X), len(y))
	}

	classes, classIdx := classList(y)
	f.Classes = classes
	encoded := make([]int, len(y))
	for i, label := range y {
		encoded[i] = classIdx[label]
	}

	n := len(X)
	maxFeatures := int(math.Sqrt(float64(len(X[0]))))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	f.Trees = make([]*DecisionTree, f.Config.Trees)
	var wg sync.WaitGroup
	for t := 0; t < f.Config.Trees; t++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(f.Config.Seed + int64(idx)))
			sample := make([]int, n)
			for j := range sample {
				sample[j] = rng.Intn(n)
			}
			builder := &treeBuilder{
				X:               X,
				y:               encoded,
				nClasses:        len(classes),
				maxDepth:        f.Config.MaxDepth,
				minSamplesSplit: f.Config.MinSamplesSplit,
				minSamplesLeaf:  f.Config.MinSamplesLeaf,
				maxFeatures:     maxFeatures,
				criterion:       f.Config.Criterion,
				rng:             rng,
			}
			f.Trees[idx] = builder.fit(sample)
		}(t)
	}
	wg.Wait()
	return nil
}

// Predict returns the majority vote across trees, ties going to the smaller
// class label.
func (f *Forest) Predict(X [][]float64) ([]int, error) {
	if f == nil || len(f.Trees) == 0 {
		return nil, fmt.Errorf("forest not fitted")
	}
	out := make([]int, len(X))
	votes := make([]int, len(f.Classes))
	for i, row := range X {
		for j := range votes {
			votes[j] = 0
		}
		for _, tree := range f.Trees {
			c := tree.Predict(row)
			if c >= 0 && c < len(votes) {
				votes[c]++
			}
		}
		out[i] = f.Classes[argmax(votes)]
	}
	return out, nil
}

func classList(y []int) ([]int, map[int]int) {
	seen := make(map[int]struct{})
	for _, label := range y {
		seen[label] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for label := range seen {
		classes = append(classes, label)
	}
	sort.Ints(classes)
	idx := make(map[int]int, len(classes))
	for i, label := range classes {
		idx[label] = i
	}
	return classes, idx
}
