package causal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// DiagnosticCode identifies a recoverable condition observed during estimation.
type DiagnosticCode string

const (
	// DiagDegeneratePropensity reports propensity scores of exactly 0 or 1
	// that were nudged into the open interval.
	DiagDegeneratePropensity DiagnosticCode = "degenerate_propensity"
	// DiagDonorShortage reports matching rows whose donor pool was smaller
	// than the requested number of neighbors.
	DiagDonorShortage DiagnosticCode = "donor_shortage"
)

// Diagnostic is a structured warning attached to an EstimationResult.
// Estimators return these instead of relying on an out-of-band log signal.
type Diagnostic struct {
	Code    DiagnosticCode `json:"code"`
	Message string         `json:"message"`
	Count   int            `json:"count"`
}

// ConfidenceInterval is a two-sided 95% interval around the point estimate.
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// EstimationResult is the full inference record produced by every estimator.
// Created once per estimator call and never mutated.
type EstimationResult struct {
	Effect             float64            `json:"effect"`
	StandardError      float64            `json:"standard_error"`
	ZStatistic         float64            `json:"z_statistic"`
	PValue             float64            `json:"p_value"`
	ConfidenceInterval ConfidenceInterval `json:"confidence_interval"`
	Diagnostics        []Diagnostic       `json:"diagnostics,omitempty"`
}

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// BuildResult converts an average effect and its standard error into a full
// inference record. Every estimator constructs its result through this
// function so that the z-statistic, p-value and confidence interval have a
// single definition across the system.
func BuildResult(effect, se float64, diags ...Diagnostic) EstimationResult {
	z := effect / se
	return EstimationResult{
		Effect:        effect,
		StandardError: se,
		ZStatistic:    z,
		PValue:        2 * (1 - stdNormal.CDF(math.Abs(z))),
		ConfidenceInterval: ConfidenceInterval{
			Lower: effect - 1.96*se,
			Upper: effect + 1.96*se,
		},
		Diagnostics: diags,
	}
}

// String formats the record for log and CLI output.
func (r EstimationResult) String() string {
	return fmt.Sprintf("effect=%.6g se=%.6g z=%.4g p=%.4g ci=[%.6g, %.6g]",
		r.Effect, r.StandardError, r.ZStatistic, r.PValue,
		r.ConfidenceInterval.Lower, r.ConfidenceInterval.Upper)
}
