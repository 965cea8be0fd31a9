package causal

import (
	"gocausal/domain/core"

	"gonum.org/v1/gonum/mat"
)

// PartitionedDataset holds the outcome, treatment and covariate arrays of a
// potential-outcomes sample together with their treatment/control partitions.
// Partitions are computed once at construction; the dataset is read-only
// afterwards and safe to share across concurrent estimator calls.
type PartitionedDataset struct {
	Y []float64  // outcomes, length n
	Z []float64  // treatment vector, length n (binary for IPW/AIPW/matching)
	X *mat.Dense // covariates, n x k

	N  int
	Nt int
	Nc int

	// Boolean masks over the full sample. IdxT marks Z == 1, IdxC marks Z == 0;
	// for a non-binary treatment the masks cover only the exact 0/1 entries.
	IdxT []bool
	IdxC []bool

	Yt []float64
	Yc []float64
	Xt *mat.Dense
	Xc *mat.Dense
}

// NewPartitionedDataset validates the three arrays and derives the
// treatment/control partitions.
func NewPartitionedDataset(Y, Z []float64, X *mat.Dense) (*PartitionedDataset, error) {
	if len(Y) == 0 {
		return nil, core.NewValidationError("Y", "outcome array is nil or empty")
	}
	if len(Z) == 0 {
		return nil, core.NewValidationError("Z", "treatment array is nil or empty")
	}
	if X == nil {
		return nil, core.NewValidationError("X", "covariate matrix is nil")
	}
	n := len(Y)
	if len(Z) != n {
		return nil, core.NewLengthError("Z", len(Z), n)
	}
	rows, cols := X.Dims()
	if rows != n {
		return nil, core.NewLengthError("X", rows, n)
	}
	if cols == 0 {
		return nil, core.NewValidationError("X", "covariate matrix has no columns")
	}

	d := &PartitionedDataset{
		Y:    Y,
		Z:    Z,
		X:    X,
		N:    n,
		IdxT: make([]bool, n),
		IdxC: make([]bool, n),
	}
	for i, z := range Z {
		switch z {
		case 1:
			d.IdxT[i] = true
			d.Nt++
		case 0:
			d.IdxC[i] = true
			d.Nc++
		}
	}
	d.Yt = subVector(Y, d.IdxT, d.Nt)
	d.Yc = subVector(Y, d.IdxC, d.Nc)
	d.Xt = subMatrix(X, d.IdxT, d.Nt, cols)
	d.Xc = subMatrix(X, d.IdxC, d.Nc, cols)
	return d, nil
}

// K returns the number of covariate columns.
func (d *PartitionedDataset) K() int {
	_, k := d.X.Dims()
	return k
}

// IsBinary reports whether every treatment entry is exactly 0 or 1.
func (d *PartitionedDataset) IsBinary() bool {
	return d.Nt+d.Nc == d.N
}

func subVector(v []float64, mask []bool, size int) []float64 {
	out := make([]float64, 0, size)
	for i, keep := range mask {
		if keep {
			out = append(out, v[i])
		}
	}
	return out
}

func subMatrix(m *mat.Dense, mask []bool, size, cols int) *mat.Dense {
	if size == 0 {
		return nil
	}
	data := make([]float64, 0, size*cols)
	for i, keep := range mask {
		if keep {
			data = append(data, m.RawRowView(i)...)
		}
	}
	return mat.NewDense(size, cols, data)
}
