// Package estimator implements the causal treatment-effect estimators:
// difference-in-means, stratified DM, ANCOVA and Fisher randomization
// inference for experimental data; IPW, AIPW, covariate matching and
// double/debiased ML for observational data. Every estimator returns a
// causal.EstimationResult built through the shared result builder.
package estimator

import (
	"fmt"
	"math"

	"gocausal/domain/causal"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
)

// propensityEps is the nudge applied to propensity scores of exactly 0 or 1.
const propensityEps = 1e-4

// fixPropensity nudges degenerate propensity scores toward the interior of
// (0,1) and returns how many entries were affected. Only exact 0s and 1s are
// touched.
func fixPropensity(p []float64) int {
	fixed := 0
	for i, v := range p {
		switch v {
		case 0:
			p[i] += propensityEps
			fixed++
		case 1:
			p[i] -= propensityEps
			fixed++
		}
	}
	return fixed
}

// influenceResult turns a pseudo-outcome vector into a full inference record:
// effect is the mean of G and the standard error is the sample variance of
// the influence function, sqrt(var(G)/(n-1)).
func influenceResult(G []float64, diags ...causal.Diagnostic) causal.EstimationResult {
	ate, _ := stats.Mean(G)
	v, _ := stats.PopulationVariance(G)
	se := math.Sqrt(v / float64(len(G)-1))
	return causal.BuildResult(ate, se, diags...)
}

// calDM computes the difference-in-means effect and its Welch-style standard
// error, sqrt(var(Y|Z=1)/n1 + var(Y|Z=0)/n0), without pooling variances.
func calDM(Z, Y []float64) (float64, float64) {
	var y1, y0 []float64
	for i, z := range Z {
		if z == 1 {
			y1 = append(y1, Y[i])
		} else {
			y0 = append(y0, Y[i])
		}
	}
	m1, _ := stats.Mean(y1)
	m0, _ := stats.Mean(y0)
	v1, _ := stats.PopulationVariance(y1)
	v0, _ := stats.PopulationVariance(y0)
	se := math.Sqrt(v1/float64(len(y1)) + v0/float64(len(y0)))
	return m1 - m0, se
}

// rowsMatrix builds a matrix from the given rows of X.
func rowsMatrix(X *mat.Dense, idx []int) *mat.Dense {
	_, k := X.Dims()
	data := make([]float64, 0, len(idx)*k)
	for _, i := range idx {
		data = append(data, X.RawRowView(i)...)
	}
	return mat.NewDense(len(idx), k, data)
}

func dotProduct(a, b []float64) float64 {
	v := 0.0
	for i := range a {
		v += a[i] * b[i]
	}
	return v
}

func degeneracyDiagnostic(fixed int) causal.Diagnostic {
	return causal.Diagnostic{
		Code:    causal.DiagDegeneratePropensity,
		Message: fmt.Sprintf("propensity scores had %d entries of exactly 0 or 1, nudged by %g", fixed, propensityEps),
		Count:   fixed,
	}
}
