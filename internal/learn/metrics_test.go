package learn

import (
	"math"
	"testing"
)

func TestAccuracy(t *testing.T) {
	got := Accuracy([]int{1, 0, 1, 1}, []int{1, 0, 0, 1})
	if got != 0.75 {
		t.Fatalf("Accuracy()=%v, want 0.75", got)
	}
}

func TestEvaluate_PerfectPrediction(t *testing.T) {
	y := []int{0, 1, 1, 0}
	m, err := Evaluate(y, y)
	if err != nil {
		t.Fatalf("Evaluate() err=%v", err)
	}
	if m.Accuracy != 1 || m.F1 != 1 || m.Precision != 1 || m.Recall != 1 {
		t.Fatalf("Evaluate()=%+v, want all ones", m)
	}
}

func TestEvaluate_WeightedBySupport(t *testing.T) {
	// class 0: support 3, predicted perfectly; class 1: support 1, missed.
	yTrue := []int{0, 0, 0, 1}
	yPred := []int{0, 0, 0, 0}
	m, err := Evaluate(yTrue, yPred)
	if err != nil {
		t.Fatalf("Evaluate() err=%v", err)
	}
	// class 0: precision 3/4, recall 1, f1 6/7; class 1: all zero.
	wantPrecision := 0.75 * 0.75
	wantRecall := 0.75 * 1.0
	wantF1 := 0.75 * (2 * 0.75 / 1.75)
	if math.Abs(m.Precision-wantPrecision) > 1e-9 {
		t.Fatalf("Precision=%v, want %v", m.Precision, wantPrecision)
	}
	if math.Abs(m.Recall-wantRecall) > 1e-9 {
		t.Fatalf("Recall=%v, want %v", m.Recall, wantRecall)
	}
	if math.Abs(m.F1-wantF1) > 1e-9 {
		t.Fatalf("F1=%v, want %v", m.F1, wantF1)
	}
}

func TestEvaluate_LengthMismatch(t *testing.T) {
	if _, err := Evaluate([]int{1}, []int{1, 0}); err == nil {
		t.Fatalf("Evaluate() expected error for length mismatch")
	}
}
