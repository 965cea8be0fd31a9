package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// olsHC0 solves the least squares problem y ~ R via the pseudo-inverse and
// returns the coefficient vector together with the diagonal of the HC0
// heteroscedasticity-robust covariance estimate. The pseudo-inverse keeps
// collinear designs (e.g. interactions with a constant column) well defined.
func olsHC0(R *mat.Dense, y []float64) ([]float64, []float64, error) {
	n, p := R.Dims()
	if n != len(y) {
		return nil, nil, fmt.Errorf("design has %d rows for %d responses", n, len(y))
	}

	var svd mat.SVD
	if ok := svd.Factorize(R, mat.SVDThin); !ok {
		return nil, nil, fmt.Errorf("svd of design matrix failed")
	}
	s := svd.Values(nil)
	var U, V mat.Dense
	svd.UTo(&U)
	svd.VTo(&V)

	tol := float64(maxInt(n, p)) * 2.220446049250313e-16 * s[0]
	sInv := make([]float64, len(s))
	for i, v := range s {
		if v > tol {
			sInv[i] = 1 / v
		}
	}

	// P = V diag(sInv) U^T is the pseudo-inverse of R (p x n).
	P := mat.NewDense(p, n, nil)
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			v := 0.0
			for l := 0; l < len(s); l++ {
				v += V.At(j, l) * sInv[l] * U.At(i, l)
			}
			P.Set(j, i, v)
		}
	}

	beta := make([]float64, p)
	for j := 0; j < p; j++ {
		beta[j] = dotProduct(P.RawRowView(j), y)
	}

	// Squared residuals feed the HC0 sandwich; with the pseudo-inverse the
	// sandwich diagonal collapses to sum_i P[j,i]^2 e_i^2.
	e2 := make([]float64, n)
	for i := 0; i < n; i++ {
		fitted := 0.0
		for j := 0; j < p; j++ {
			fitted += R.At(i, j) * beta[j]
		}
		r := y[i] - fitted
		e2[i] = r * r
	}
	hc0 := make([]float64, p)
	for j := 0; j < p; j++ {
		row := P.RawRowView(j)
		v := 0.0
		for i := 0; i < n; i++ {
			v += row[i] * row[i] * e2[i]
		}
		hc0[j] = math.Abs(v)
	}
	return beta, hc0, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
