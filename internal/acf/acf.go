// Package acf computes autocorrelation functions and rolling-window
// autocorrelation indicators on series that may contain missing (NaN)
// values.
package acf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"gotimescales/internal/shift"
)

const (
	CONFIDENCE_Z       = 1.96 // two-sided 95% white noise bound
	DEFAULT_LAG        = 1
	DEFAULT_MIN_FRAC   = 0.5 // fraction of a window that has to be present
	DEFAULT_EIGEN_LAGS = 2   // AR order for the eigenvalue indicator
)

type InsufficientDataError struct {
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return "insufficient data: " + e.Reason
}

type InvalidOptionsError struct {
	Reason string
}

func (e *InvalidOptionsError) Error() string {
	return "invalid rolling options: " + e.Reason
}

func nanMean(x []float64) (float64, int) {
	var sum float64
	n := 0
	for _, v := range x {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN(), 0
	}
	return sum / float64(n), n
}

// ACF returns the autocorrelation of x at lags 0 through maxLag. Missing
// values are passed through: each lag uses the complete pairs only and
// the sum is divided by the pair count plus the lag.
func ACF(x []float64, maxLag int) ([]float64, error) {
	if maxLag < 0 {
		return nil, &InvalidOptionsError{Reason: fmt.Sprintf("negative maxLag %d", maxLag)}
	}
	mean, n := nanMean(x)
	if n == 0 {
		return nil, &InsufficientDataError{Reason: "no observations"}
	}
	if maxLag >= len(x) {
		maxLag = len(x) - 1
	}

	acov := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag; lag++ {
		var sum float64
		pairs := 0
		for i := 0; i+lag < len(x); i++ {
			a, b := x[i], x[i+lag]
			if math.IsNaN(a) || math.IsNaN(b) {
				continue
			}
			sum += (a - mean) * (b - mean)
			pairs++
		}
		if pairs == 0 {
			acov[lag] = math.NaN()
		} else {
			acov[lag] = sum / float64(pairs+lag)
		}
	}
	if acov[0] == 0 {
		return nil, &InsufficientDataError{Reason: "zero variance"}
	}

	r := make([]float64, len(acov))
	for i, v := range acov {
		r[i] = v / acov[0]
	}
	return r, nil
}

// ConfidenceBound is the approximate 95% bound of the ACF of white noise.
func ConfidenceBound(x []float64) float64 {
	_, n := nanMean(x)
	if n == 0 {
		return math.NaN()
	}
	return CONFIDENCE_Z / math.Sqrt(float64(n))
}

// LagCorrelation returns the autocorrelation of x at a single lag.
func LagCorrelation(x []float64, lag int) float64 {
	if lag >= len(x) {
		return math.NaN()
	}
	r, err := ACF(x, lag)
	if err != nil {
		return math.NaN()
	}
	return r[lag]
}

// SumOfSquaresAR1 estimates the AR(1) coefficient of the demeaned x as
// sum(x[t]*x[t-1]) / sum(x[t-1]^2) over complete pairs.
func SumOfSquaresAR1(x []float64) float64 {
	mean, n := nanMean(x)
	if n < 2 {
		return math.NaN()
	}
	var cross, sq float64
	pairs := 0
	for t := 1; t < len(x); t++ {
		a, b := x[t-1], x[t]
		if math.IsNaN(a) || math.IsNaN(b) {
			continue
		}
		cross += (b - mean) * (a - mean)
		sq += (a - mean) * (a - mean)
		pairs++
	}
	if pairs == 0 || sq == 0 {
		return math.NaN()
	}
	return cross / sq
}

// Trend returns Kendall's tau between the indicator and its time index,
// over the non-missing entries, and the number of entries used.
func Trend(ind []float64) (float64, int) {
	var xs, ys []float64
	for i, v := range ind {
		if !math.IsNaN(v) {
			xs = append(xs, float64(i))
			ys = append(ys, v)
		}
	}
	if len(xs) < 2 {
		return math.NaN(), len(xs)
	}
	return stat.Kendall(xs, ys, nil), len(xs)
}

// eigenIndicator wraps AR fitting so every rolling statistic has the same
// window-to-value shape.
func eigenIndicator(order int) func([]float64) float64 {
	return func(w []float64) float64 {
		coeffs, err := shift.FitAR(w, order)
		if err != nil {
			return math.NaN()
		}
		v, err := shift.DominantEigenvalue(coeffs)
		if err != nil {
			return math.NaN()
		}
		return v
	}
}
