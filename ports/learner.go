package ports

import "gonum.org/v1/gonum/mat"

// LearnerPort is the prediction-model capability consumed by the estimators.
// Propensity models, outcome models and DML nuisance models all satisfy it;
// the estimators depend only on this interface, never on a concrete model type.
type LearnerPort interface {
	// Fit trains the model on the covariate matrix X (n x k) against the
	// target vector y (length n).
	Fit(X mat.Matrix, y []float64) error

	// Predict returns one prediction per row of X.
	Predict(X mat.Matrix) ([]float64, error)

	// InsamplePredict returns predictions on the data the model was last fit on.
	InsamplePredict() ([]float64, error)

	// InsampleProba returns class-1 probabilities on the data the model was
	// last fit on. Used for propensity models fit as Z ~ X.
	InsampleProba() ([]float64, error)
}
