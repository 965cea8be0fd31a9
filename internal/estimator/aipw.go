package estimator

import (
	"fmt"

	"gocausal/adapters/learners"
	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/ports"

	"gonum.org/v1/gonum/mat"
)

// AIPWOptions configures the augmented IPW estimator. The zero value fits
// OLS outcome models per arm and a logistic propensity model.
type AIPWOptions struct {
	// TreatedModel and ControlModel are fit on the treated/control subsets
	// and evaluated on the full covariate matrix. Nil means OLS.
	TreatedModel ports.LearnerPort
	ControlModel ports.LearnerPort

	// TreatedPred / ControlPred supply precomputed length-n predictions and
	// skip the corresponding fit.
	TreatedPred []float64
	ControlPred []float64

	// PropensityModel and Propensity as in IPWOptions.
	PropensityModel ports.LearnerPort
	Propensity      []float64
}

// EstimateAIPW computes the doubly robust augmented IPW estimate: the
// outcome-model contrast plus the propensity-weighted residual corrections.
// The augmentation term is always applied, cancellations included, so the
// estimator stays consistent when either nuisance model is correct.
func (o *Observational) EstimateAIPW(opts AIPWOptions) (causal.EstimationResult, error) {
	if err := o.requireBinaryArms(); err != nil {
		return causal.EstimationResult{}, err
	}

	mu1, err := o.armPredictions(opts.TreatedPred, opts.TreatedModel, o.Data.Xt, o.Data.Yt, "treated")
	if err != nil {
		return causal.EstimationResult{}, err
	}
	mu0, err := o.armPredictions(opts.ControlPred, opts.ControlModel, o.Data.Xc, o.Data.Yc, "control")
	if err != nil {
		return causal.EstimationResult{}, err
	}
	p, err := o.resolvePropensity(opts.Propensity, opts.PropensityModel)
	if err != nil {
		return causal.EstimationResult{}, err
	}
	var diags []causal.Diagnostic
	diags = o.clipDegenerate(p, diags)

	n := o.Data.N
	G := make([]float64, n)
	for i := 0; i < n; i++ {
		z, y := o.Data.Z[i], o.Data.Y[i]
		G[i] = mu1[i] - mu0[i] +
			z*(y-mu1[i])/p[i] -
			(1-z)*(y-mu0[i])/(1-p[i])
	}
	return influenceResult(G, diags...), nil
}

// armPredictions returns length-n outcome predictions for one arm: the
// precomputed vector when given, otherwise a model fit on that arm's rows and
// evaluated on the full covariate matrix.
func (o *Observational) armPredictions(given []float64, model ports.LearnerPort, armX *mat.Dense, armY []float64, arm string) ([]float64, error) {
	if given != nil {
		if len(given) != o.Data.N {
			return nil, core.NewLengthError(arm+" predictions", len(given), o.Data.N)
		}
		return given, nil
	}
	if model == nil {
		model = learners.NewOLS()
	}
	if err := model.Fit(armX, armY); err != nil {
		return nil, fmt.Errorf("fitting %s outcome model: %w", arm, err)
	}
	pred, err := model.Predict(o.Data.X)
	if err != nil {
		return nil, fmt.Errorf("%s outcome predictions: %w", arm, err)
	}
	if len(pred) != o.Data.N {
		return nil, core.NewLengthError(arm+" outcome predictions", len(pred), o.Data.N)
	}
	return pred, nil
}
