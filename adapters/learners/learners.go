// Package learners provides gonum-backed prediction models implementing
// ports.LearnerPort: ordinary least squares for outcome regression and
// logistic regression for propensity/treatment models.
package learners

import (
	"gocausal/domain/core"

	"gonum.org/v1/gonum/mat"
)

// withIntercept prepends a column of ones to X.
func withIntercept(X mat.Matrix) *mat.Dense {
	n, k := X.Dims()
	out := mat.NewDense(n, k+1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, 1)
		for j := 0; j < k; j++ {
			out.Set(i, j+1, X.At(i, j))
		}
	}
	return out
}

func checkTrainingData(X mat.Matrix, y []float64) error {
	if X == nil || len(y) == 0 {
		return core.ErrMissingArray
	}
	n, _ := X.Dims()
	if n != len(y) {
		return core.NewLengthError("y", len(y), n)
	}
	return nil
}

// linearPredict evaluates coef[0] + sum_j coef[j+1]*X[i,j] for every row.
func linearPredict(X mat.Matrix, coef []float64) []float64 {
	n, k := X.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := coef[0]
		for j := 0; j < k && j+1 < len(coef); j++ {
			v += coef[j+1] * X.At(i, j)
		}
		out[i] = v
	}
	return out
}
