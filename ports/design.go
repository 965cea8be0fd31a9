package ports

// DesignPort is the experimental-design capability consumed by the Fisher
// randomization test. A design knows how treatment was assigned and can
// produce fresh assignment vectors consistent with that process.
type DesignPort interface {
	// GetParamsViaObs calibrates the design to an observed assignment vector,
	// e.g. fixing the treated margin for a completely randomized design.
	GetParamsViaObs(Z []float64) error

	// Draw samples a fresh length-n assignment vector consistent with the
	// calibrated design.
	Draw(n int) ([]float64, error)
}
