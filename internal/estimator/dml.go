package estimator

import (
	"fmt"
	"math"

	"gocausal/adapters/learners"
	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/ports"

	"github.com/montanaflynn/stats"
)

// DMLOptions configures the double/debiased ML estimator. The zero value
// uses 2 folds, an OLS outcome model and a treatment model chosen by whether
// the treatment is binary (logistic) or continuous (OLS).
type DMLOptions struct {
	// OutcomeModel predicts Y ~ X. Nil means OLS.
	OutcomeModel ports.LearnerPort

	// TreatmentModel predicts Z ~ X. Nil means logistic regression for a
	// binary treatment and OLS otherwise.
	TreatmentModel ports.LearnerPort

	// Folds is the number of cross-fitting folds. 0 means 2.
	Folds int
}

// EstimateDML computes the cross-fit residual-on-residual moment estimate
// theta = (V.U)/(V.V) per held-out fold, averaged over folds. Nuisance
// models are always fit on the complement of the held-out fold, so held-out
// residuals never come from a model trained on the same rows.
func (o *Observational) EstimateDML(opts DMLOptions) (causal.EstimationResult, error) {
	K := opts.Folds
	if K == 0 {
		K = 2
	}
	if K < 2 {
		return causal.EstimationResult{}, core.NewValidationError("folds", "cross-fitting needs at least 2 folds")
	}
	if o.Data.N < K {
		return causal.EstimationResult{}, fmt.Errorf("%w: %d units for %d folds", core.ErrInsufficientData, o.Data.N, K)
	}

	outcome := opts.OutcomeModel
	if outcome == nil {
		outcome = learners.NewOLS()
	}
	treatment := opts.TreatmentModel
	if treatment == nil {
		if o.Data.IsBinary() {
			treatment = learners.NewLogistic()
		} else {
			treatment = learners.NewOLS()
		}
	}

	folds := splitFolds(o.Data.N, K)
	thetas := make([]float64, K)
	phi2 := make([]float64, K)
	jTerm := make([]float64, K)
	for k, held := range folds {
		train := complement(o.Data.N, held)

		Xtr := rowsMatrix(o.Data.X, train)
		Xte := rowsMatrix(o.Data.X, held)
		ytr := gather(o.Data.Y, train)
		ztr := gather(o.Data.Z, train)

		if err := outcome.Fit(Xtr, ytr); err != nil {
			return causal.EstimationResult{}, fmt.Errorf("fold %d outcome model: %w", k, err)
		}
		yhat, err := outcome.Predict(Xte)
		if err != nil {
			return causal.EstimationResult{}, fmt.Errorf("fold %d outcome predictions: %w", k, err)
		}
		if err := treatment.Fit(Xtr, ztr); err != nil {
			return causal.EstimationResult{}, fmt.Errorf("fold %d treatment model: %w", k, err)
		}
		zhat, err := treatment.Predict(Xte)
		if err != nil {
			return causal.EstimationResult{}, fmt.Errorf("fold %d treatment predictions: %w", k, err)
		}

		U := make([]float64, len(held))
		V := make([]float64, len(held))
		for i, idx := range held {
			U[i] = o.Data.Y[idx] - yhat[i]
			V[i] = o.Data.Z[idx] - zhat[i]
		}

		theta := dotProduct(V, U) / dotProduct(V, V)
		thetas[k] = theta

		m := float64(len(held))
		for i := range held {
			r := U[i] - V[i]*theta
			phi2[k] += V[i] * V[i] * r * r
			jTerm[k] += V[i] * V[i]
		}
		phi2[k] /= m
		jTerm[k] /= m
	}

	effect, _ := stats.Mean(thetas)
	j, _ := stats.Mean(jTerm)
	phi2Mean, _ := stats.Mean(phi2)
	se := math.Sqrt(phi2Mean/(j*j)) / math.Sqrt(float64(o.Data.N))
	return causal.BuildResult(effect, se), nil
}

// splitFolds partitions 0..n-1 into K contiguous held-out blocks; the first
// n mod K folds receive one extra index. Every index is held out exactly once.
func splitFolds(n, K int) [][]int {
	folds := make([][]int, K)
	base := n / K
	extra := n % K
	start := 0
	for k := 0; k < K; k++ {
		size := base
		if k < extra {
			size++
		}
		fold := make([]int, size)
		for i := 0; i < size; i++ {
			fold[i] = start + i
		}
		folds[k] = fold
		start += size
	}
	return folds
}

func complement(n int, held []int) []int {
	inHeld := make([]bool, n)
	for _, i := range held {
		inHeld[i] = true
	}
	out := make([]int, 0, n-len(held))
	for i := 0; i < n; i++ {
		if !inHeld[i] {
			out = append(out, i)
		}
	}
	return out
}

func gather(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}
