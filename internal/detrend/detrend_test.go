package detrend

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotimescales/internal/series"
)

func TestParseMethod(t *testing.T) {
	for in, want := range map[string]Method{
		"":               None,
		"linear":         Linear,
		"Polynomial":     Polynomial,
		"savitzky-golay": SavitzkyGolay,
		"sg":             SavitzkyGolay,
	} {
		m, err := ParseMethod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, m, in)
	}
	_, err := ParseMethod("loess")
	assert.Error(t, err)
}

func TestSpecJSON(t *testing.T) {
	var s Spec
	require.NoError(t, json.Unmarshal([]byte(`{"method":"polynomial","degree":3}`), &s))
	assert.Equal(t, Spec{Method: Polynomial, Degree: 3}, s)

	b, err := json.Marshal(Spec{Method: Linear})
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"linear"}`, string(b))
}

func TestSpecValidate(t *testing.T) {
	assert.NoError(t, Spec{}.Validate())
	assert.NoError(t, Spec{Method: SavitzkyGolay}.Validate())
	assert.Error(t, Spec{Method: SavitzkyGolay, Window: 10}.Validate())
	assert.Error(t, Spec{Method: SavitzkyGolay, Window: 5, Order: 5}.Validate())
	assert.Error(t, Spec{Method: Polynomial, Degree: -1}.Validate())
	assert.Error(t, Spec{Method: Method(42)}.Validate())
}

func TestLinearResiduals(t *testing.T) {
	x := make([]float64, 50)
	for i := range x {
		x[i] = 3 + 0.5*float64(i)
	}
	x[10] = math.NaN()
	r, err := Residuals(x, Spec{Method: Linear})
	require.NoError(t, err)
	for i, v := range r {
		if i == 10 {
			assert.True(t, math.IsNaN(v))
			continue
		}
		assert.InDelta(t, 0, v, 1e-9, "index %d", i)
	}
}

func TestPolynomialResiduals(t *testing.T) {
	x := make([]float64, 40)
	for i := range x {
		u := float64(i)
		x[i] = 1 - 0.2*u + 0.01*u*u
	}
	r, err := Residuals(x, Spec{Method: Polynomial, Degree: 2})
	require.NoError(t, err)
	for i, v := range r {
		assert.InDelta(t, 0, v, 1e-6, "index %d", i)
	}

	_, err = Residuals([]float64{1, 2}, Spec{Method: Polynomial, Degree: 2})
	assert.Error(t, err)
}

func TestSavitzkyGolayResiduals(t *testing.T) {
	x := make([]float64, 300)
	for i := range x {
		x[i] = math.Sin(float64(i) / 40)
	}
	x[100] = math.NaN()
	r, err := Residuals(x, Spec{Method: SavitzkyGolay, Window: 21, Order: 3})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(r[100]))
	for i := 30; i < 270; i++ {
		if i == 100 {
			continue
		}
		assert.InDelta(t, 0, r[i], 1e-3, "index %d", i)
	}

	_, err = Residuals(x[:10], Spec{Method: SavitzkyGolay, Window: 21})
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	t0 := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	s := series.FromValues("Paul", series.Temperature, t0, time.Hour, []float64{1, 2, 3, 4})

	same, err := Apply(s, Spec{})
	require.NoError(t, err)
	assert.Equal(t, s.Values(), same.Values())

	flat, err := Apply(s, Spec{Method: Linear})
	require.NoError(t, err)
	for _, v := range flat.Values() {
		assert.InDelta(t, 0, v, 1e-12)
	}
	assert.Equal(t, s.Times(), flat.Times())
	assert.Equal(t, []float64{1, 2, 3, 4}, s.Values())
}
