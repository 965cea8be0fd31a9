// Package design provides experimental-design adapters implementing
// ports.DesignPort for the Fisher randomization test.
package design

import (
	"math/rand"

	"gocausal/domain/core"
)

// CRD is a completely randomized design: exactly nt of n units are treated,
// with the treated set drawn uniformly at random. Calibration fixes the
// treated margin from the observed assignment.
type CRD struct {
	rng *rand.Rand

	n  int
	nt int
}

// NewCRD creates a completely randomized design with a seeded RNG stream.
func NewCRD(seed int64) *CRD {
	return &CRD{rng: rand.New(rand.NewSource(seed))}
}

// GetParamsViaObs fixes the treated margin to the observed count.
func (d *CRD) GetParamsViaObs(Z []float64) error {
	if len(Z) == 0 {
		return core.ErrMissingArray
	}
	d.n = len(Z)
	d.nt = 0
	for _, z := range Z {
		if z == 1 {
			d.nt++
		}
	}
	return nil
}

// Draw produces a fresh assignment with the calibrated margin. When n differs
// from the calibration sample the margin is scaled proportionally.
func (d *CRD) Draw(n int) ([]float64, error) {
	if d.n == 0 {
		return nil, core.ErrMissingDesign
	}
	nt := d.nt
	if n != d.n {
		nt = int(float64(d.nt)*float64(n)/float64(d.n) + 0.5)
	}
	Z := make([]float64, n)
	for _, i := range d.rng.Perm(n)[:nt] {
		Z[i] = 1
	}
	return Z, nil
}

// Bernoulli is an independent-assignment design: each unit is treated with
// probability p, calibrated to the observed treated share.
type Bernoulli struct {
	rng *rand.Rand

	p          float64
	calibrated bool
}

// NewBernoulli creates a Bernoulli design with a seeded RNG stream.
func NewBernoulli(seed int64) *Bernoulli {
	return &Bernoulli{rng: rand.New(rand.NewSource(seed))}
}

// GetParamsViaObs sets p to the observed treated share.
func (d *Bernoulli) GetParamsViaObs(Z []float64) error {
	if len(Z) == 0 {
		return core.ErrMissingArray
	}
	treated := 0
	for _, z := range Z {
		if z == 1 {
			treated++
		}
	}
	d.p = float64(treated) / float64(len(Z))
	d.calibrated = true
	return nil
}

// Draw produces n independent Bernoulli(p) assignments.
func (d *Bernoulli) Draw(n int) ([]float64, error) {
	if !d.calibrated {
		return nil, core.ErrMissingDesign
	}
	Z := make([]float64, n)
	for i := range Z {
		if d.rng.Float64() < d.p {
			Z[i] = 1
		}
	}
	return Z, nil
}
