package estimator

import (
	"gocausal/domain/causal"
	"gocausal/ports"
)

// IPWOptions configures the inverse-propensity weighting estimator. The zero
// value fits a logistic propensity model and normalizes weights.
type IPWOptions struct {
	// PropensityModel is fit as Z ~ X when Propensity is not given.
	// Nil means logistic regression.
	PropensityModel ports.LearnerPort

	// Propensity supplies precomputed scores and skips model fitting.
	Propensity []float64

	// RawWeights disables the per-arm mean-weight normalization.
	RawWeights bool
}

// EstimateIPW computes the inverse-propensity weighted average treatment
// effect. The standard error is the sample variance of the influence
// function, not a model-based one.
func (o *Observational) EstimateIPW(opts IPWOptions) (causal.EstimationResult, error) {
	if err := o.requireBinaryArms(); err != nil {
		return causal.EstimationResult{}, err
	}
	p, err := o.resolvePropensity(opts.Propensity, opts.PropensityModel)
	if err != nil {
		return causal.EstimationResult{}, err
	}
	var diags []causal.Diagnostic
	diags = o.clipDegenerate(p, diags)

	n := o.Data.N
	w1 := make([]float64, n)
	w0 := make([]float64, n)
	var sum1, sum0 float64
	for i := 0; i < n; i++ {
		w1[i] = o.Data.Z[i] / p[i]
		w0[i] = (1 - o.Data.Z[i]) / (1 - p[i])
		sum1 += w1[i]
		sum0 += w0[i]
	}

	G := make([]float64, n)
	if opts.RawWeights {
		for i := 0; i < n; i++ {
			G[i] = w1[i]*o.Data.Y[i] - w0[i]*o.Data.Y[i]
		}
	} else {
		norm1 := sum1 / float64(n)
		norm0 := sum0 / float64(n)
		for i := 0; i < n; i++ {
			G[i] = w1[i]*o.Data.Y[i]/norm1 - w0[i]*o.Data.Y[i]/norm0
		}
	}
	return influenceResult(G, diags...), nil
}
