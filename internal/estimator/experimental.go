package estimator

import (
	"fmt"
	"math"
	"runtime"
	"sort"

	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/internal"
	"gocausal/ports"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Experimental estimates treatment effects from randomized experiments.
// Covariates are optional; when absent a constant column stands in so the
// dataset shape is uniform across estimators.
type Experimental struct {
	Data *causal.PartitionedDataset

	design ports.DesignPort
	log    *internal.Logger

	// Statistic captured by the last point estimate, reused by the
	// randomization test.
	statFn  func(Z []float64) float64
	statObs float64
	hasStat bool
}

// NewExperimental constructs an experimental estimator from raw arrays.
// X may be nil. A non-nil design is calibrated to the observed assignment
// immediately, before any draw.
func NewExperimental(Y, Z []float64, X *mat.Dense, design ports.DesignPort) (*Experimental, error) {
	if X == nil {
		if len(Y) == 0 {
			return nil, core.NewValidationError("Y", "outcome array is nil or empty")
		}
		X = mat.NewDense(len(Y), 1, onesVector(len(Y)))
	}
	data, err := causal.NewPartitionedDataset(Y, Z, X)
	if err != nil {
		return nil, err
	}
	e := &Experimental{Data: data, design: design, log: internal.DefaultLogger}
	if design != nil {
		if err := design.GetParamsViaObs(Z); err != nil {
			return nil, fmt.Errorf("calibrating design: %w", err)
		}
	}
	return e, nil
}

// Estimate runs the default estimator for experimental data,
// difference-in-means.
func (e *Experimental) Estimate() (causal.EstimationResult, error) {
	return e.EstimateDM()
}

// EstimateDM computes the difference-in-means estimate with a Welch-style
// standard error, and captures the DM statistic for randomization inference.
func (e *Experimental) EstimateDM() (causal.EstimationResult, error) {
	if e.Data.Nt == 0 || e.Data.Nc == 0 {
		return causal.EstimationResult{}, fmt.Errorf("%w: need both treated and control units", core.ErrInsufficientData)
	}
	Y := e.Data.Y
	e.statFn = func(Z []float64) float64 {
		var sum1, sum0 float64
		var n1, n0 int
		for i, z := range Z {
			if z == 1 {
				sum1 += Y[i]
				n1++
			} else {
				sum0 += Y[i]
				n0++
			}
		}
		return sum1/float64(n1) - sum0/float64(n0)
	}
	e.statObs = e.statFn(e.Data.Z)
	e.hasStat = true

	ate, se := calDM(e.Data.Z, e.Data.Y)
	return causal.BuildResult(ate, se), nil
}

// EstimateStratified computes a stratified difference-in-means: per-stratum
// DM estimates combined with population-share weights.
func (e *Experimental) EstimateStratified(strata []int) (causal.EstimationResult, error) {
	if strata == nil {
		return causal.EstimationResult{}, fmt.Errorf("%w: labels are nil", core.ErrInvalidStrata)
	}
	if len(strata) != e.Data.N {
		return causal.EstimationResult{}, fmt.Errorf("%w: %d labels for %d units", core.ErrInvalidStrata, len(strata), e.Data.N)
	}

	labels := uniqueSorted(strata)
	n := float64(e.Data.N)
	effect := 0.0
	seSq := 0.0
	for _, l := range labels {
		var subZ, subY []float64
		treated, control := 0, 0
		for i, s := range strata {
			if s == l {
				subZ = append(subZ, e.Data.Z[i])
				subY = append(subY, e.Data.Y[i])
				if e.Data.Z[i] == 1 {
					treated++
				} else {
					control++
				}
			}
		}
		if treated == 0 || control == 0 {
			return causal.EstimationResult{}, fmt.Errorf("%w: stratum %d has no %s units",
				core.ErrInsufficientData, l, missingArm(treated))
		}
		w := float64(len(subY)) / n
		ateS, seS := calDM(subZ, subY)
		effect += w * ateS
		seSq += (w * seS) * (w * seS)
	}
	return causal.BuildResult(effect, math.Sqrt(seSq)), nil
}

// EstimateANCOVA regresses Y on [1, Z, X, Z*X] and reports the treatment
// coefficient with a heteroscedasticity-robust (HC0) standard error.
func (e *Experimental) EstimateANCOVA() (causal.EstimationResult, error) {
	if e.Data.Nt == 0 || e.Data.Nc == 0 {
		return causal.EstimationResult{}, fmt.Errorf("%w: need both treated and control units", core.ErrInsufficientData)
	}
	n, k := e.Data.N, e.Data.K()
	p := 2 + 2*k
	R := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		z := e.Data.Z[i]
		R.Set(i, 0, 1)
		R.Set(i, 1, z)
		for j := 0; j < k; j++ {
			x := e.Data.X.At(i, j)
			R.Set(i, 2+j, x)
			R.Set(i, 2+k+j, z*x)
		}
	}

	beta, hc0, err := olsHC0(R, e.Data.Y)
	if err != nil {
		return causal.EstimationResult{}, fmt.Errorf("ancova: %w", err)
	}
	return causal.BuildResult(beta[1], math.Sqrt(hc0[1])), nil
}

// FisherTest draws nReps assignment vectors from the design and reports the
// two-sided randomization p-value of the captured statistic. nReps of 0 means
// 1000. A point estimate that captures a statistic must run first.
func (e *Experimental) FisherTest(nReps int) (float64, error) {
	if e.design == nil {
		return 0, core.ErrMissingDesign
	}
	if !e.hasStat {
		return 0, fmt.Errorf("%w: run EstimateDM before the randomization test", core.ErrNoStatistic)
	}
	if nReps == 0 {
		nReps = 1000
	}

	// Draws are sequential (the design owns a single RNG stream); statistic
	// evaluation over the drawn vectors runs in parallel.
	draws := make([][]float64, nReps)
	for i := range draws {
		Z, err := e.design.Draw(e.Data.N)
		if err != nil {
			return 0, fmt.Errorf("drawing assignment %d: %w", i, err)
		}
		if len(Z) != e.Data.N {
			return 0, core.NewLengthError("design draw", len(Z), e.Data.N)
		}
		draws[i] = Z
	}

	T := make([]float64, nReps)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range draws {
		i := i
		g.Go(func() error {
			T[i] = e.statFn(draws[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	above, below := 0, 0
	for _, t := range T {
		if t > e.statObs {
			above++
		}
		if t < e.statObs {
			below++
		}
	}
	pAbove := float64(above) / float64(nReps)
	pBelow := float64(below) / float64(nReps)
	if pAbove < pBelow {
		return pAbove, nil
	}
	return pBelow, nil
}

// ObservedStatistic returns the statistic captured by the last point
// estimate, for callers that report it alongside the randomization p-value.
func (e *Experimental) ObservedStatistic() (float64, error) {
	if !e.hasStat {
		return 0, core.ErrNoStatistic
	}
	return e.statObs, nil
}

func onesVector(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

func uniqueSorted(labels []int) []int {
	seen := map[int]bool{}
	var out []int
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Ints(out)
	return out
}

func missingArm(treated int) string {
	if treated == 0 {
		return "treated"
	}
	return "control"
}
