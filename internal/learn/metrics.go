package learn

import (
	"fmt"
	"sort"
)

// Accuracy is the fraction of matching labels.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue))
}

// ClassificationMetrics are support-weighted averages across classes.
type ClassificationMetrics struct {
	Accuracy  float64 `json:"accuracy"`
	F1        float64 `json:"f1"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// Evaluate computes accuracy plus precision, recall and F1 weighted by each
// class's support in yTrue.
func Evaluate(yTrue, yPred []int) (ClassificationMetrics, error) {
	if len(yTrue) == 0 {
		return ClassificationMetrics{}, fmt.Errorf("evaluate: empty labels")
	}
	if len(yTrue) != len(yPred) {
		return ClassificationMetrics{}, fmt.Errorf("evaluate: %d true labels but %d predictions", len(yTrue), len(yPred))
	}

	support := make(map[int]int)
	tp := make(map[int]int)
	fp := make(map[int]int)
	fn := make(map[int]int)
	for i := range yTrue {
		support[yTrue[i]]++
		switch {
		case yTrue[i] == yPred[i]:
			tp[yTrue[i]]++
		default:
			fn[yTrue[i]]++
			fp[yPred[i]]++
		}
	}

	classes := make([]int, 0, len(support))
	for c := range support {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	total := float64(len(yTrue))
	m := ClassificationMetrics{Accuracy: Accuracy(yTrue, yPred)}
	for _, c := range classes {
		weight := float64(support[c]) / total
		var precision, recall, f1 float64
		if tp[c]+fp[c] > 0 {
			precision = float64(tp[c]) / float64(tp[c]+fp[c])
		}
		if tp[c]+fn[c] > 0 {
			recall = float64(tp[c]) / float64(tp[c]+fn[c])
		}
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		m.Precision += weight * precision
		m.Recall += weight * recall
		m.F1 += weight * f1
	}
	return m, nil
}

// WeightedF1 is the F1 component of Evaluate.
func WeightedF1(yTrue, yPred []int) (float64, error) {
	m, err := Evaluate(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return m.F1, nil
}
