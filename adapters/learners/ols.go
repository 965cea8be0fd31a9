package learners

import (
	"fmt"

	"gocausal/domain/core"

	"gonum.org/v1/gonum/mat"
)

// OLS is an ordinary least squares regression with an intercept term.
type OLS struct {
	coef   []float64 // intercept first
	trainX *mat.Dense
}

// NewOLS creates an unfit OLS learner.
func NewOLS() *OLS {
	return &OLS{}
}

// Fit solves the least squares problem y ~ [1, X] via QR decomposition.
func (m *OLS) Fit(X mat.Matrix, y []float64) error {
	if err := checkTrainingData(X, y); err != nil {
		return err
	}
	A := withIntercept(X)
	n, p := A.Dims()
	if n < p {
		return fmt.Errorf("%w: %d rows for %d coefficients", core.ErrInsufficientData, n, p)
	}

	var qr mat.QR
	qr.Factorize(A)
	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, mat.NewDense(n, 1, y)); err != nil {
		return fmt.Errorf("ols fit: %w", err)
	}

	m.coef = make([]float64, p)
	for j := 0; j < p; j++ {
		m.coef[j] = sol.At(j, 0)
	}
	m.trainX = mat.DenseCopyOf(X)
	return nil
}

// Predict returns fitted values for each row of X.
func (m *OLS) Predict(X mat.Matrix) ([]float64, error) {
	if m.coef == nil {
		return nil, core.ErrNotFitted
	}
	return linearPredict(X, m.coef), nil
}

// InsamplePredict returns fitted values on the training rows.
func (m *OLS) InsamplePredict() ([]float64, error) {
	if m.trainX == nil {
		return nil, core.ErrNotFitted
	}
	return m.Predict(m.trainX)
}

// InsampleProba is not meaningful for a linear regression.
func (m *OLS) InsampleProba() ([]float64, error) {
	return nil, fmt.Errorf("ols: class probabilities are not supported")
}

// Coefficients returns the fitted coefficients, intercept first.
func (m *OLS) Coefficients() []float64 {
	return m.coef
}
