package learners

import (
	"fmt"
	"math"

	"gocausal/domain/core"

	"gonum.org/v1/gonum/mat"
)

// Logistic is a binary logistic regression fit by iteratively reweighted
// least squares. Predict returns class-1 probabilities rather than hard
// labels, so treatment residuals Z - p are well defined.
type Logistic struct {
	MaxIter int     // 0 means 50
	Tol     float64 // 0 means 1e-8

	coef   []float64 // intercept first
	trainX *mat.Dense
}

// NewLogistic creates an unfit logistic learner with default settings.
func NewLogistic() *Logistic {
	return &Logistic{}
}

// Fit estimates coefficients for y ~ Bernoulli(sigmoid([1, X] beta)).
func (m *Logistic) Fit(X mat.Matrix, y []float64) error {
	if err := checkTrainingData(X, y); err != nil {
		return err
	}
	if m.MaxIter == 0 {
		m.MaxIter = 50
	}
	if m.Tol == 0 {
		m.Tol = 1e-8
	}

	A := withIntercept(X)
	n, p := A.Dims()
	if n < p {
		return fmt.Errorf("%w: %d rows for %d coefficients", core.ErrInsufficientData, n, p)
	}

	beta := make([]float64, p)
	for iter := 0; iter < m.MaxIter; iter++ {
		// Working response and weights for the current beta.
		grad := make([]float64, p)
		hess := mat.NewSymDense(p, nil)
		for i := 0; i < n; i++ {
			row := A.RawRowView(i)
			eta := dot(row, beta)
			pi := sigmoid(eta)
			w := pi * (1 - pi)
			if w < 1e-10 {
				w = 1e-10
			}
			r := y[i] - pi
			for j := 0; j < p; j++ {
				grad[j] += row[j] * r
				for l := j; l < p; l++ {
					hess.SetSym(j, l, hess.At(j, l)+w*row[j]*row[l])
				}
			}
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(hess); !ok {
			return fmt.Errorf("logistic fit: information matrix is not positive definite")
		}
		var step mat.VecDense
		if err := chol.SolveVecTo(&step, mat.NewVecDense(p, grad)); err != nil {
			return fmt.Errorf("logistic fit: %w", err)
		}

		maxDelta := 0.0
		for j := 0; j < p; j++ {
			d := step.AtVec(j)
			beta[j] += d
			if math.Abs(d) > maxDelta {
				maxDelta = math.Abs(d)
			}
		}
		if maxDelta < m.Tol {
			break
		}
	}

	m.coef = beta
	m.trainX = mat.DenseCopyOf(X)
	return nil
}

// Predict returns class-1 probabilities for each row of X.
func (m *Logistic) Predict(X mat.Matrix) ([]float64, error) {
	if m.coef == nil {
		return nil, core.ErrNotFitted
	}
	out := linearPredict(X, m.coef)
	for i, eta := range out {
		out[i] = sigmoid(eta)
	}
	return out, nil
}

// InsamplePredict returns probabilities on the training rows.
func (m *Logistic) InsamplePredict() ([]float64, error) {
	if m.trainX == nil {
		return nil, core.ErrNotFitted
	}
	return m.Predict(m.trainX)
}

// InsampleProba returns class-1 probabilities on the training rows.
func (m *Logistic) InsampleProba() ([]float64, error) {
	return m.InsamplePredict()
}

func sigmoid(eta float64) float64 {
	// Clamp to keep exp in range; probabilities saturate well before 30.
	if eta > 30 {
		eta = 30
	} else if eta < -30 {
		eta = -30
	}
	return 1 / (1 + math.Exp(-eta))
}

func dot(a, b []float64) float64 {
	v := 0.0
	for i := range a {
		v += a[i] * b[i]
	}
	return v
}
