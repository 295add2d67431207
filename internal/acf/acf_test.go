package acf

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestACFMatchesReference(t *testing.T) {
	// Reference values of acf(1:5).
	r, err := ACF([]float64{1, 2, 3, 4, 5}, 4)
	require.NoError(t, err)
	want := []float64{1, 0.4, -0.1, -0.4, -0.4}
	require.Len(t, r, len(want))
	for i := range want {
		assert.InDelta(t, want[i], r[i], 1e-12, "lag %d", i)
	}
}

func TestACFClampsMaxLag(t *testing.T) {
	r, err := ACF([]float64{1, 3, 2}, 10)
	require.NoError(t, err)
	assert.Len(t, r, 3)
}

func TestACFMissingValues(t *testing.T) {
	x := []float64{1, math.NaN(), 3, 4, 5}
	r, err := ACF(x, 1)
	require.NoError(t, err)

	mean := 13.0 / 4
	var c0, c1 float64
	for _, v := range []float64{1, 3, 4, 5} {
		c0 += (v - mean) * (v - mean)
	}
	c0 /= 4
	c1 = ((3-mean)*(4-mean) + (4-mean)*(5-mean)) / (2 + 1)
	assert.InDelta(t, 1.0, r[0], 1e-12)
	assert.InDelta(t, c1/c0, r[1], 1e-12)
}

func TestACFErrors(t *testing.T) {
	_, err := ACF([]float64{math.NaN(), math.NaN()}, 1)
	var derr *InsufficientDataError
	assert.ErrorAs(t, err, &derr)

	_, err = ACF([]float64{2, 2, 2}, 1)
	assert.ErrorAs(t, err, &derr)

	_, err = ACF([]float64{1, 2}, -1)
	var oerr *InvalidOptionsError
	assert.ErrorAs(t, err, &oerr)
}

func TestConfidenceBound(t *testing.T) {
	assert.InDelta(t, 1.96/2, ConfidenceBound([]float64{1, 2, math.NaN(), 3, 4}), 1e-12)
	assert.True(t, math.IsNaN(ConfidenceBound(nil)))
}

func TestSumOfSquaresAR1(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	x := make([]float64, 20000)
	for i := 1; i < len(x); i++ {
		x[i] = 0.6*x[i-1] + rng.NormFloat64()
	}
	assert.InDelta(t, 0.6, SumOfSquaresAR1(x), 0.03)
	assert.True(t, math.IsNaN(SumOfSquaresAR1([]float64{1})))
	assert.True(t, math.IsNaN(SumOfSquaresAR1([]float64{4, 4, 4})))
}

func TestTrend(t *testing.T) {
	tau, n := Trend([]float64{math.NaN(), 0.1, 0.2, math.NaN(), 0.3, 0.4})
	assert.Equal(t, 4, n)
	assert.InDelta(t, 1.0, tau, 1e-12)

	tau, n = Trend([]float64{0.4, 0.3, 0.2})
	assert.Equal(t, 3, n)
	assert.InDelta(t, -1.0, tau, 1e-12)

	tau, n = Trend([]float64{math.NaN(), 1})
	assert.Equal(t, 1, n)
	assert.True(t, math.IsNaN(tau))
}
