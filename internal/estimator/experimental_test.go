package estimator

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gocausal/adapters/design"
	"gocausal/domain/core"

	"gonum.org/v1/gonum/mat"
)

// TestDMEndToEnd checks the canonical scenario: effect = mean([3,4]) - mean([1,2])
func TestDMEndToEnd(t *testing.T) {
	e, err := NewExperimental([]float64{1, 2, 3, 4}, []float64{0, 0, 1, 1}, nil, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	r, err := e.EstimateDM()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if r.Effect != 2.0 {
		t.Errorf("Expected effect 2.0, got %v", r.Effect)
	}

	// Welch-style se: sqrt(var([3,4])/2 + var([1,2])/2) with population variances
	wantSE := math.Sqrt(0.25/2 + 0.25/2)
	if math.Abs(r.StandardError-wantSE) > 1e-12 {
		t.Errorf("Expected se %v, got %v", wantSE, r.StandardError)
	}
	if r.ConfidenceInterval.Lower > r.Effect || r.ConfidenceInterval.Upper < r.Effect {
		t.Error("Confidence interval must contain the point estimate")
	}
}

// TestEstimateDefaultsToDM verifies the default dispatch for experimental data
func TestEstimateDefaultsToDM(t *testing.T) {
	e, err := NewExperimental([]float64{1, 2, 3, 4}, []float64{0, 0, 1, 1}, nil, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	r, err := e.Estimate()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if r.Effect != 2.0 {
		t.Errorf("Expected default estimate to equal DM effect 2.0, got %v", r.Effect)
	}
}

// TestDMRequiresBothArms verifies one-armed samples fail
func TestDMRequiresBothArms(t *testing.T) {
	e, err := NewExperimental([]float64{1, 2, 3}, []float64{1, 1, 1}, nil, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := e.EstimateDM(); !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}
}

// TestStratifiedDM checks the weighted per-stratum combination
func TestStratifiedDM(t *testing.T) {
	// Stratum 0: Y treated {4}, control {1}; stratum 1: treated {10}, control {2}
	Y := []float64{1, 4, 2, 10}
	Z := []float64{0, 1, 0, 1}
	e, err := NewExperimental(Y, Z, nil, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	r, err := e.EstimateStratified([]int{0, 0, 1, 1})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// ate = 0.5*(4-1) + 0.5*(10-2) = 5.5
	if math.Abs(r.Effect-5.5) > 1e-12 {
		t.Errorf("Expected stratified effect 5.5, got %v", r.Effect)
	}
}

// TestStratifiedValidation covers bad label vectors
func TestStratifiedValidation(t *testing.T) {
	e, err := NewExperimental([]float64{1, 2, 3, 4}, []float64{0, 0, 1, 1}, nil, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if _, err := e.EstimateStratified(nil); !errors.Is(err, core.ErrInvalidStrata) {
		t.Errorf("Expected ErrInvalidStrata for nil labels, got %v", err)
	}
	if _, err := e.EstimateStratified([]int{0, 1}); !errors.Is(err, core.ErrInvalidStrata) {
		t.Errorf("Expected ErrInvalidStrata for short labels, got %v", err)
	}
	// A stratum with a single arm cannot produce a DM estimate
	if _, err := e.EstimateStratified([]int{0, 0, 1, 1}); !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData for one-armed stratum, got %v", err)
	}
}

// TestNewExperimentalEmptyInputs verifies empty arrays fail validation
// instead of panicking inside the ones-column substitution
func TestNewExperimentalEmptyInputs(t *testing.T) {
	tests := []struct {
		name string
		Y    []float64
		Z    []float64
	}{
		{"nil arrays", nil, nil},
		{"empty arrays", []float64{}, []float64{}},
		{"nil outcome", nil, []float64{0, 1}},
	}
	for _, test := range tests {
		if _, err := NewExperimental(test.Y, test.Z, nil, nil); !errors.Is(err, core.ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", test.name, err)
		}
	}
}

// TestANCOVARecoversEffect fits Y = 1 + 2.5 Z + 0.8 x exactly
func TestANCOVARecoversEffect(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	n := 60
	Y := make([]float64, n)
	Z := make([]float64, n)
	xs := make([]float64, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			Z[i] = 1
		}
		xs[i] = rng.NormFloat64()
		Y[i] = 1 + 2.5*Z[i] + 0.8*xs[i]
	}
	X := mat.NewDense(n, 1, xs)

	e, err := NewExperimental(Y, Z, X, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	r, err := e.EstimateANCOVA()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(r.Effect-2.5) > 1e-8 {
		t.Errorf("Expected treatment coefficient 2.5, got %v", r.Effect)
	}
	// Noiseless data: the robust standard error collapses
	if r.StandardError > 1e-6 {
		t.Errorf("Expected near-zero HC0 se on noiseless data, got %v", r.StandardError)
	}
}

// TestANCOVAWithNoise keeps the estimate near the truth under noise
func TestANCOVAWithNoise(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	n := 500
	Y := make([]float64, n)
	Z := make([]float64, n)
	xs := make([]float64, n)
	for i := 0; i < n; i++ {
		if rng.Float64() < 0.5 {
			Z[i] = 1
		}
		xs[i] = rng.NormFloat64()
		Y[i] = 1 + 2.5*Z[i] + 0.8*xs[i] + 0.3*rng.NormFloat64()
	}
	e, err := NewExperimental(Y, Z, mat.NewDense(n, 1, xs), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	r, err := e.EstimateANCOVA()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(r.Effect-2.5) > 0.1 {
		t.Errorf("Expected effect near 2.5, got %v", r.Effect)
	}
	if r.StandardError <= 0 {
		t.Errorf("Expected positive se, got %v", r.StandardError)
	}
}

// TestANCOVACollinearDesign pins the minimum-norm convention: with no real
// covariates the substituted ones column duplicates the intercept and Z*X
// duplicates Z, so the pseudo-inverse splits the treatment coefficient
// equally across the duplicated columns. The reported effect is half the
// difference in means, not the DM value itself.
func TestANCOVACollinearDesign(t *testing.T) {
	e, err := NewExperimental([]float64{1, 2, 3, 4}, []float64{0, 0, 1, 1}, nil, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	r, err := e.EstimateANCOVA()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(r.Effect-1.0) > 1e-9 {
		t.Errorf("Expected split coefficient 1.0 (half of DM 2.0), got %v", r.Effect)
	}
}

// TestFisherRequiresStatistic verifies ordering and design preconditions
func TestFisherRequiresStatistic(t *testing.T) {
	Y := []float64{1, 2, 3, 4}
	Z := []float64{0, 0, 1, 1}

	noDesign, err := NewExperimental(Y, Z, nil, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := noDesign.FisherTest(10); !errors.Is(err, core.ErrMissingDesign) {
		t.Errorf("Expected ErrMissingDesign, got %v", err)
	}

	e, err := NewExperimental(Y, Z, nil, design.NewCRD(1))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := e.FisherTest(10); !errors.Is(err, core.ErrNoStatistic) {
		t.Errorf("Expected ErrNoStatistic before an estimate, got %v", err)
	}
}

// TestFisherNullDistribution checks the p-value under a balanced null where
// the resampled statistic distribution is symmetric around the observed value
func TestFisherNullDistribution(t *testing.T) {
	// Treated sums of 5-of-10 subsets of 1..10 are symmetric around 27.5;
	// the observed assignment sums to 28, just above center.
	Y := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	Z := []float64{1, 1, 0, 0, 0, 0, 1, 1, 0, 1} // treated {1,2,7,8,10}, sum 28

	e, err := NewExperimental(Y, Z, nil, design.NewCRD(42))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := e.EstimateDM(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	p, err := e.FisherTest(2000)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p < 0 || p > 1 {
		t.Fatalf("p-value must be in [0,1], got %v", p)
	}
	// Both tails hold roughly 42% of the mass; the min stays well off zero.
	if p < 0.3 || p > 0.5 {
		t.Errorf("Expected near-central p-value under the null, got %v", p)
	}
}

// TestFisherDetectsLargeEffect rejects under an extreme observed statistic
func TestFisherDetectsLargeEffect(t *testing.T) {
	n := 40
	Y := make([]float64, n)
	Z := make([]float64, n)
	for i := 0; i < n; i++ {
		if i < n/2 {
			Z[i] = 1
			Y[i] = 10 // every treated outcome far above every control
		}
	}
	e, err := NewExperimental(Y, Z, nil, design.NewCRD(3))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := e.EstimateDM(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	p, err := e.FisherTest(500)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p > 0.01 {
		t.Errorf("Expected tiny p-value for a maximal separation, got %v", p)
	}
}
