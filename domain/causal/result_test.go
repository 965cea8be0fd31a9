package causal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildResult(t *testing.T) {
	r := BuildResult(2.0, 0.5)

	assert.Equal(t, 2.0, r.Effect)
	assert.Equal(t, 0.5, r.StandardError)
	assert.Equal(t, 4.0, r.ZStatistic)
	assert.InDelta(t, 2*(1-0.9999683287581669), r.PValue, 1e-9)
	assert.InDelta(t, 2.0-1.96*0.5, r.ConfidenceInterval.Lower, 1e-12)
	assert.InDelta(t, 2.0+1.96*0.5, r.ConfidenceInterval.Upper, 1e-12)
	assert.Empty(t, r.Diagnostics)
}

// The interval must contain the point estimate and be symmetric around it,
// for any sign of the effect.
func TestConfidenceIntervalSymmetry(t *testing.T) {
	for _, effect := range []float64{-3.2, -0.01, 0, 0.7, 12.5} {
		r := BuildResult(effect, 1.3)
		require.LessOrEqual(t, r.ConfidenceInterval.Lower, effect)
		require.GreaterOrEqual(t, r.ConfidenceInterval.Upper, effect)
		left := effect - r.ConfidenceInterval.Lower
		right := r.ConfidenceInterval.Upper - effect
		assert.InDelta(t, left, right, 1e-12)
	}
}

func TestPValueTwoSided(t *testing.T) {
	// A negative z must give the same p-value as its positive mirror.
	neg := BuildResult(-1.0, 0.5)
	pos := BuildResult(1.0, 0.5)
	assert.InDelta(t, neg.PValue, pos.PValue, 1e-15)
	assert.True(t, neg.PValue > 0 && neg.PValue < 1)

	// Zero effect is maximally insignificant.
	null := BuildResult(0, 1)
	assert.InDelta(t, 1.0, null.PValue, 1e-15)
}

func TestBuildResultDiagnostics(t *testing.T) {
	d := Diagnostic{Code: DiagDegeneratePropensity, Message: "2 entries", Count: 2}
	r := BuildResult(1.0, 2.0, d)
	require.Len(t, r.Diagnostics, 1)
	assert.Equal(t, DiagDegeneratePropensity, r.Diagnostics[0].Code)
	assert.Equal(t, 2, r.Diagnostics[0].Count)
}

func TestResultString(t *testing.T) {
	r := BuildResult(1.5, 0.25)
	s := r.String()
	assert.Contains(t, s, "effect=1.5")
	assert.Contains(t, s, "se=0.25")
}
