package learn

import (
	"math"
	"math/rand"
	"sort"
)

const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
)

// TreeNode is one node of a fitted CART tree. Leaf nodes carry a class
// index; internal nodes route on feature <= threshold.
type TreeNode struct {
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      *TreeNode `json:"left,omitempty"`
	Right     *TreeNode `json:"right,omitempty"`
	Class     int       `json:"class"`
	Leaf      bool      `json:"leaf,omitempty"`
}

// DecisionTree is a single fitted classification tree. Class predictions are
// indices into the owning forest's class list.
type DecisionTree struct {
	Root *TreeNode `json:"root"`
}

type treeBuilder struct {
	X               [][]float64
	y               []int // class indices 0..nClasses-1
	nClasses        int
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	criterion       string
	rng             *rand.Rand
}

func (b *treeBuilder) fit(indices []int) *DecisionTree {
	return &DecisionTree{Root: b.build(indices, 0)}
}

func (b *treeBuilder) build(indices []int, depth int) *TreeNode {
	counts := make([]int, b.nClasses)
	for _, i := range indices {
		counts[b.y[i]]++
	}

	if b.isLeaf(indices, counts, depth) {
		return &TreeNode{Leaf: true, Class: argmax(counts)}
	}

	feature, threshold, ok := b.bestSplit(indices)
	if !ok {
		return &TreeNode{Leaf: true, Class: argmax(counts)}
	}

	var left, right []int
	for _, i := range indices {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      b.build(left, depth+1),
		Right:     b.build(right, depth+1),
	}
}

func (b *treeBuilder) isLeaf(indices []int, counts []int, depth int) bool {
	if b.maxDepth > 0 && depth >= b.maxDepth {
		return true
	}
	if len(indices) < b.minSamplesSplit {
		return true
	}
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

// bestSplit scans a random feature subset for the threshold minimizing
// weighted impurity. Candidates are evaluated in deterministic order so a
// seeded builder always produces the same tree.
func (b *treeBuilder) bestSplit(indices []int) (feature int, threshold float64, ok bool) {
	nFeatures := len(b.X[indices[0]])
	candidates := b.featureSubset(nFeatures)

	bestImpurity := math.Inf(1)
	for _, f := range candidates {
		sorted := make([]int, len(indices))
		copy(sorted, indices)
		sort.Slice(sorted, func(a, c int) bool {
			if b.X[sorted[a]][f] != b.X[sorted[c]][f] {
				return b.X[sorted[a]][f] < b.X[sorted[c]][f]
			}
			return sorted[a] < sorted[c]
		})

		leftCounts := make([]int, b.nClasses)
		rightCounts := make([]int, b.nClasses)
		for _, i := range sorted {
			rightCounts[b.y[i]]++
		}

		n := len(sorted)
		for pos := 1; pos < n; pos++ {
			prev := sorted[pos-1]
			leftCounts[b.y[prev]]++
			rightCounts[b.y[prev]]--

			cur := b.X[sorted[pos]][f]
			prevVal := b.X[prev][f]
			if cur == prevVal {
				continue
			}
			if pos < b.minSamplesLeaf || n-pos < b.minSamplesLeaf {
				continue
			}
			impurity := (float64(pos)*b.impurity(leftCounts, pos) +
				float64(n-pos)*b.impurity(rightCounts, n-pos)) / float64(n)
			if impurity < bestImpurity {
				bestImpurity = impurity
				feature = f
				threshold = (prevVal + cur) / 2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

func (b *treeBuilder) featureSubset(nFeatures int) []int {
	k := b.maxFeatures
	if k <= 0 || k > nFeatures {
		k = nFeatures
	}
	subset := b.rng.Perm(nFeatures)[:k]
	sort.Ints(subset)
	return subset
}

func (b *treeBuilder) impurity(counts []int, total int) float64 {
	switch b.criterion {
	case CriterionEntropy:
		e := 0.0
		for _, c := range counts {
			if c == 0 {
				continue
			}
			p := float64(c) / float64(total)
			e -= p * math.Log2(p)
		}
		return e
	default: // gini
		g := 1.0
		for _, c := range counts {
			p := float64(c) / float64(total)
			g -= p * p
		}
		return g
	}
}

// Predict walks the tree for one sample.
func (t *DecisionTree) Predict(row []float64) int {
	node := t.Root
	for node != nil && !node.Leaf {
		if row[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	if node == nil {
		return 0
	}
	return node.Class
}

// argmax returns the index of the largest count, ties to the smaller index.
func argmax(counts []int) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}
