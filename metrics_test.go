package changedet

import (
	"math"
	"testing"
)

// fillMatrix accumulates label slices producing the given 2 class cell
// counts, counts[t][p] pixels of truth t predicted as p
func fillMatrix(t *testing.T, counts [2][2]int) *ConfusionMatrix {

	t.Helper()

	m, err := NewConfusionMatrix(BinaryConfig())

	if err != nil {
		t.Fatalf("error creating matrix: %v", err)
	}

	var pred, truth []uint8

	for tc := 0; tc < 2; tc++ {
		for pc := 0; pc < 2; pc++ {
			for i := 0; i < counts[tc][pc]; i++ {
				truth = append(truth, uint8(tc))
				pred = append(pred, uint8(pc))
			}
		}
	}

	if _, err := m.Update(pred, truth); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	return m
}

// floatsEqual compares float64 slices within epsilon, NaN matches NaN
func floatsEqual(a, b []float64, epsilon float64) bool {

	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if !floatEqual(a[i], b[i], epsilon) {
			return false
		}
	}

	return true
}

func floatEqual(a, b, epsilon float64) bool {

	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}

	if diff := a - b; diff > epsilon || diff < -epsilon {
		return false
	}

	return true
}

// resultsEqual compares whole evaluation results within epsilon
func resultsEqual(a, b EvaluationResult, epsilon float64) bool {
	return floatEqual(a.OverallAccuracy, b.OverallAccuracy, epsilon) &&
		floatEqual(a.MeanIoU, b.MeanIoU, epsilon) &&
		floatEqual(a.Kappa, b.Kappa, epsilon) &&
		floatsEqual(a.IoU, b.IoU, epsilon) &&
		floatsEqual(a.Accuracy, b.Accuracy, epsilon) &&
		floatsEqual(a.F1, b.F1, epsilon) &&
		a.Pixels == b.Pixels
}

func TestComputePerfectAgreement(t *testing.T) {

	// 10 pixels of each class, all predicted correctly
	m := fillMatrix(t, [2][2]int{{10, 0}, {0, 10}})

	res := Compute(m)

	if res.OverallAccuracy != 1.0 {
		t.Errorf("overall accuracy = %v, want 1.0", res.OverallAccuracy)
	}

	if res.MeanIoU != 1.0 {
		t.Errorf("mean IoU = %v, want 1.0", res.MeanIoU)
	}

	if res.Kappa != 1.0 {
		t.Errorf("kappa = %v, want 1.0", res.Kappa)
	}

	for i, f1 := range res.F1 {
		if f1 != 1.0 {
			t.Errorf("class %d F1 = %v, want 1.0", i, f1)
		}
	}

	if res.Pixels != 20 {
		t.Errorf("pixels = %d, want 20", res.Pixels)
	}
}

func TestComputeTotalDisagreement(t *testing.T) {

	m := fillMatrix(t, [2][2]int{{0, 10}, {10, 0}})

	res := Compute(m)

	if res.OverallAccuracy != 0.0 {
		t.Errorf("overall accuracy = %v, want 0.0", res.OverallAccuracy)
	}

	if res.MeanIoU != 0.0 {
		t.Errorf("mean IoU = %v, want 0.0", res.MeanIoU)
	}

	for i, f1 := range res.F1 {
		if f1 != 0.0 {
			t.Errorf("class %d F1 = %v, want 0.0", i, f1)
		}
	}
}

// TestComputeAbsentClass checks the divide by zero defaults when a class
// never appears in either truth or prediction
func TestComputeAbsentClass(t *testing.T) {

	m := fillMatrix(t, [2][2]int{{25, 0}, {0, 0}})

	res := Compute(m)

	if res.IoU[1] != 0 {
		t.Errorf("absent class IoU = %v, want 0", res.IoU[1])
	}

	if res.Accuracy[1] != 0 {
		t.Errorf("absent class accuracy = %v, want 0", res.Accuracy[1])
	}

	if res.F1[1] != 0 {
		t.Errorf("absent class F1 = %v, want 0", res.F1[1])
	}

	if res.OverallAccuracy != 1.0 {
		t.Errorf("overall accuracy = %v, want 1.0", res.OverallAccuracy)
	}

	// one sided matrix has chance agreement 1, kappa is the NaN sentinel
	if !math.IsNaN(res.Kappa) {
		t.Errorf("degenerate kappa = %v, want NaN", res.Kappa)
	}
}

func TestComputeMixedMatrix(t *testing.T) {

	// 40 true negatives, 10 false positives, 5 false negatives,
	// 45 true positives
	m := fillMatrix(t, [2][2]int{{40, 10}, {5, 45}})

	res := Compute(m)

	const eps = 1e-12

	// hand computed reference values
	if !floatEqual(res.OverallAccuracy, 0.85, eps) {
		t.Errorf("overall accuracy = %v, want 0.85", res.OverallAccuracy)
	}

	// class 0: 40 / (50 + 45 - 40), class 1: 45 / (50 + 55 - 45)
	wantIoU := []float64{40.0 / 55.0, 45.0 / 60.0}

	if !floatsEqual(res.IoU, wantIoU, eps) {
		t.Errorf("IoU = %v, want %v", res.IoU, wantIoU)
	}

	if !floatEqual(res.MeanIoU, (wantIoU[0]+wantIoU[1])/2, eps) {
		t.Errorf("mean IoU = %v", res.MeanIoU)
	}

	wantAcc := []float64{0.8, 0.9}

	if !floatsEqual(res.Accuracy, wantAcc, eps) {
		t.Errorf("accuracy = %v, want %v", res.Accuracy, wantAcc)
	}

	// expected agreement = (50*45 + 50*55) / 100^2 = 0.5
	wantKappa := (0.85 - 0.5) / 0.5

	if !floatEqual(res.Kappa, wantKappa, eps) {
		t.Errorf("kappa = %v, want %v", res.Kappa, wantKappa)
	}

	// class 0: p=40/45 r=40/50, class 1: p=45/55 r=45/50
	f10 := 2 * (40.0 / 45.0) * (40.0 / 50.0) / ((40.0 / 45.0) + (40.0 / 50.0))
	f11 := 2 * (45.0 / 55.0) * (45.0 / 50.0) / ((45.0 / 55.0) + (45.0 / 50.0))

	if !floatsEqual(res.F1, []float64{f10, f11}, eps) {
		t.Errorf("F1 = %v, want [%v %v]", res.F1, f10, f11)
	}
}

// TestComputeDoesNotMutate verifies Compute leaves the matrix untouched
func TestComputeDoesNotMutate(t *testing.T) {

	m := fillMatrix(t, [2][2]int{{3, 1}, {2, 4}})

	before := m.Counts()
	Compute(m)

	if !countsEqual(before, m.Counts()) {
		t.Errorf("compute mutated the matrix")
	}
}

func TestComputeEmptyMatrix(t *testing.T) {

	m, _ := NewConfusionMatrix(BinaryConfig())

	res := Compute(m)

	if res.OverallAccuracy != 0 || res.MeanIoU != 0 {
		t.Errorf("empty matrix metrics not zero: %+v", res)
	}

	if !math.IsNaN(res.Kappa) {
		t.Errorf("empty matrix kappa = %v, want NaN", res.Kappa)
	}
}
