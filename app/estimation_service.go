package app

import (
	"fmt"
	"strings"
	"time"

	"gocausal/adapters/design"
	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/internal"
	"gocausal/internal/estimator"

	"gonum.org/v1/gonum/mat"
)

// EstimationService orchestrates a single estimation run: it constructs the
// right estimator for the request, wires in the default design, and tags the
// result with a run identifier.
type EstimationService struct {
	log *internal.Logger
}

// NewEstimationService creates an estimation service
func NewEstimationService() *EstimationService {
	return &EstimationService{log: internal.DefaultLogger}
}

// EstimationRequest defines inputs for one estimation run
type EstimationRequest struct {
	// Estimator selects the method: dm, strata, ancova, ipw, aipw,
	// matching or dml. Empty means the default dispatch: dm for
	// experimental data, otherwise AIPW for a binary treatment and DML for
	// a real-valued one.
	Estimator string

	Y []float64
	Z []float64
	X *mat.Dense // may be nil for experimental requests

	// Experimental marks data from a randomized assignment.
	Experimental bool

	Strata []int // strata labels, required by the strata estimator

	// Matching settings
	Matches       int
	MatchesForVar int
	BiasAdjust    bool

	// IPW settings
	RawWeights bool

	// DML settings
	Folds int

	// FisherReps > 0 runs a randomization test after a DM estimate.
	FisherReps int
	Seed       int64
}

// EstimationRunResult contains the inference record with run metadata
type EstimationRunResult struct {
	RunID     core.RunID              `json:"run_id"`
	Estimator string                  `json:"estimator"`
	Result    causal.EstimationResult `json:"result"`
	FisherP   *float64                `json:"fisher_p,omitempty"`
	RuntimeMs int64                   `json:"runtime_ms"`
}

// Run executes one estimation request end to end.
func (s *EstimationService) Run(req EstimationRequest) (*EstimationRunResult, error) {
	start := time.Now()
	name := strings.ToLower(req.Estimator)
	if name == "" {
		name = s.defaultEstimator(req)
	}

	out := &EstimationRunResult{RunID: core.RunID(core.NewID()), Estimator: name}
	s.log.Info("estimation run %s: %s over %d units", out.RunID, name, len(req.Y))

	var err error
	switch name {
	case "dm", "strata", "ancova":
		err = s.runExperimental(req, name, out)
	case "ipw", "aipw", "matching", "dml":
		err = s.runObservational(req, name, out)
	default:
		return nil, core.NewValidationError("estimator", fmt.Sprintf("unknown method %q", name))
	}
	if err != nil {
		s.log.Error("estimation run %s failed: %v", out.RunID, err)
		return nil, err
	}
	out.RuntimeMs = time.Since(start).Milliseconds()
	s.log.Debug("estimation run %s: %s in %dms", out.RunID, out.Result, out.RuntimeMs)
	return out, nil
}

func (s *EstimationService) defaultEstimator(req EstimationRequest) string {
	if req.Experimental {
		return "dm"
	}
	binary := true
	for _, z := range req.Z {
		if z != 0 && z != 1 {
			binary = false
			break
		}
	}
	if binary {
		return "aipw"
	}
	return "dml"
}

func (s *EstimationService) runExperimental(req EstimationRequest, name string, out *EstimationRunResult) error {
	e, err := estimator.NewExperimental(req.Y, req.Z, req.X, design.NewCRD(req.Seed))
	if err != nil {
		return err
	}
	switch name {
	case "dm":
		out.Result, err = e.EstimateDM()
	case "strata":
		out.Result, err = e.EstimateStratified(req.Strata)
	case "ancova":
		out.Result, err = e.EstimateANCOVA()
	}
	if err != nil {
		return err
	}
	if name == "dm" && req.FisherReps > 0 {
		p, err := e.FisherTest(req.FisherReps)
		if err != nil {
			return err
		}
		out.FisherP = &p
	}
	return nil
}

func (s *EstimationService) runObservational(req EstimationRequest, name string, out *EstimationRunResult) error {
	o, err := estimator.NewObservational(req.Y, req.Z, req.X)
	if err != nil {
		return err
	}
	switch name {
	case "ipw":
		out.Result, err = o.EstimateIPW(estimator.IPWOptions{RawWeights: req.RawWeights})
	case "aipw":
		out.Result, err = o.EstimateAIPW(estimator.AIPWOptions{})
	case "matching":
		out.Result, err = o.EstimateMatching(estimator.MatchingOptions{
			Matches:       req.Matches,
			MatchesForVar: req.MatchesForVar,
			BiasAdjust:    req.BiasAdjust,
		})
	case "dml":
		out.Result, err = o.EstimateDML(estimator.DMLOptions{Folds: req.Folds})
	}
	return err
}
