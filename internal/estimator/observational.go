package estimator

import (
	"fmt"

	"gocausal/adapters/learners"
	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/internal"
	"gocausal/ports"

	"gonum.org/v1/gonum/mat"
)

// Observational estimates treatment effects from observational data, where
// assignment depends on covariates. All scratch state (propensities,
// predictions) lives inside each call; the estimator itself only holds the
// read-only dataset and is safe for concurrent use.
type Observational struct {
	Data *causal.PartitionedDataset

	log *internal.Logger
}

// NewObservational constructs an observational estimator from raw arrays.
func NewObservational(Y, Z []float64, X *mat.Dense) (*Observational, error) {
	data, err := causal.NewPartitionedDataset(Y, Z, X)
	if err != nil {
		return nil, err
	}
	return &Observational{Data: data, log: internal.DefaultLogger}, nil
}

// Estimate runs the default estimator for observational data: AIPW when the
// treatment is binary, DML otherwise.
func (o *Observational) Estimate() (causal.EstimationResult, error) {
	if o.Data.IsBinary() {
		return o.EstimateAIPW(AIPWOptions{})
	}
	return o.EstimateDML(DMLOptions{})
}

// requireBinaryArms checks the preconditions shared by IPW, AIPW and
// matching: a binary treatment with units in both arms.
func (o *Observational) requireBinaryArms() error {
	if !o.Data.IsBinary() {
		return core.NewValidationError("Z", "treatment must be binary {0,1}")
	}
	if o.Data.Nt == 0 || o.Data.Nc == 0 {
		return fmt.Errorf("%w: need both treated and control units", core.ErrInsufficientData)
	}
	return nil
}

// resolvePropensity returns a length-n propensity vector: the precomputed
// one when given, otherwise in-sample probabilities of a model fit as Z ~ X.
// The returned slice is owned by the caller; clipping never touches the
// caller's input.
func (o *Observational) resolvePropensity(given []float64, model ports.LearnerPort) ([]float64, error) {
	if given != nil {
		if len(given) != o.Data.N {
			return nil, core.NewLengthError("propensity", len(given), o.Data.N)
		}
		out := make([]float64, o.Data.N)
		copy(out, given)
		return out, nil
	}
	if model == nil {
		model = learners.NewLogistic()
	}
	if err := model.Fit(o.Data.X, o.Data.Z); err != nil {
		return nil, fmt.Errorf("fitting propensity model: %w", err)
	}
	p, err := model.InsampleProba()
	if err != nil {
		return nil, fmt.Errorf("propensity model probabilities: %w", err)
	}
	if len(p) != o.Data.N {
		return nil, core.NewLengthError("propensity model output", len(p), o.Data.N)
	}
	return p, nil
}

// clipDegenerate applies the epsilon nudge to a propensity vector and
// reports the repair as a diagnostic plus a warning log line.
func (o *Observational) clipDegenerate(p []float64, diags []causal.Diagnostic) []causal.Diagnostic {
	if fixed := fixPropensity(p); fixed > 0 {
		o.log.Warn("propensity scores had %d entries of exactly 0 or 1", fixed)
		diags = append(diags, degeneracyDiagnostic(fixed))
	}
	return diags
}
