package learners

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gocausal/domain/core"

	"gonum.org/v1/gonum/mat"
)

func TestOLSExactRecovery(t *testing.T) {
	// y = 1 + 2*x1 - 0.5*x2, no noise
	n := 20
	rng := rand.New(rand.NewSource(5))
	X := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x1, x2 := rng.NormFloat64(), rng.NormFloat64()
		X.Set(i, 0, x1)
		X.Set(i, 1, x2)
		y[i] = 1 + 2*x1 - 0.5*x2
	}

	m := NewOLS()
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []float64{1, 2, -0.5}
	got := m.Coefficients()
	for j := range want {
		if math.Abs(got[j]-want[j]) > 1e-9 {
			t.Errorf("Expected coefficient %d near %v, got %v", j, want[j], got[j])
		}
	}

	fitted, err := m.InsamplePredict()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for i := range y {
		if math.Abs(fitted[i]-y[i]) > 1e-9 {
			t.Errorf("Expected exact fit at row %d, got %v vs %v", i, fitted[i], y[i])
		}
	}
}

func TestOLSPredictNewRows(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := []float64{1, 3, 5, 7} // y = 1 + 2x

	m := NewOLS()
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	preds, err := m.Predict(mat.NewDense(2, 1, []float64{10, -1}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(preds[0]-21) > 1e-9 || math.Abs(preds[1]+1) > 1e-9 {
		t.Errorf("Expected [21 -1], got %v", preds)
	}
}

func TestOLSNotFitted(t *testing.T) {
	m := NewOLS()
	if _, err := m.Predict(mat.NewDense(1, 1, []float64{0})); !errors.Is(err, core.ErrNotFitted) {
		t.Errorf("Expected ErrNotFitted, got %v", err)
	}
	if _, err := m.InsamplePredict(); !errors.Is(err, core.ErrNotFitted) {
		t.Errorf("Expected ErrNotFitted, got %v", err)
	}
	if _, err := m.InsampleProba(); err == nil {
		t.Error("Expected an error for OLS class probabilities")
	}
}

func TestOLSValidation(t *testing.T) {
	m := NewOLS()
	if err := m.Fit(nil, []float64{1}); !errors.Is(err, core.ErrMissingArray) {
		t.Errorf("Expected ErrMissingArray, got %v", err)
	}
	if err := m.Fit(mat.NewDense(3, 1, nil), []float64{1, 2}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected ErrValidation on length mismatch, got %v", err)
	}
	if err := m.Fit(mat.NewDense(2, 3, nil), []float64{1, 2}); !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData for wide data, got %v", err)
	}
}

func TestLogisticRecoversProbabilities(t *testing.T) {
	// y ~ Bernoulli(sigmoid(-0.5 + 1.5x))
	n := 2000
	rng := rand.New(rand.NewSource(11))
	X := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x := rng.NormFloat64()
		X.Set(i, 0, x)
		if rng.Float64() < 1/(1+math.Exp(0.5-1.5*x)) {
			y[i] = 1
		}
	}

	m := NewLogistic()
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	probs, err := m.InsampleProba()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for i, p := range probs {
		if p <= 0 || p >= 1 {
			t.Fatalf("Expected probability in (0,1) at row %d, got %v", i, p)
		}
	}

	// Coefficients should land near the generating values at this sample size.
	got := m.coef
	if math.Abs(got[0]+0.5) > 0.2 || math.Abs(got[1]-1.5) > 0.2 {
		t.Errorf("Expected coefficients near [-0.5 1.5], got %v", got)
	}
}

func TestLogisticSeparatedClasses(t *testing.T) {
	// Perfectly separated data still converges because weights are floored
	// and the linear predictor is clamped.
	X := mat.NewDense(8, 1, []float64{-4, -3, -2, -1, 1, 2, 3, 4})
	y := []float64{0, 0, 0, 0, 1, 1, 1, 1}

	m := NewLogistic()
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	probs, err := m.Predict(X)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for i := range y {
		if y[i] == 0 && probs[i] > 0.5 {
			t.Errorf("Expected class 0 at row %d, got p=%v", i, probs[i])
		}
		if y[i] == 1 && probs[i] < 0.5 {
			t.Errorf("Expected class 1 at row %d, got p=%v", i, probs[i])
		}
	}
}

func TestLogisticNotFitted(t *testing.T) {
	m := NewLogistic()
	if _, err := m.Predict(mat.NewDense(1, 1, []float64{0})); !errors.Is(err, core.ErrNotFitted) {
		t.Errorf("Expected ErrNotFitted, got %v", err)
	}
	if _, err := m.InsampleProba(); !errors.Is(err, core.ErrNotFitted) {
		t.Errorf("Expected ErrNotFitted, got %v", err)
	}
}
