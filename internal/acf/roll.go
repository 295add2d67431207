package acf

import (
	"fmt"
	"math"
)

// RollOptions describes a right-aligned rolling window.
type RollOptions struct {
	Width  int `json:"width"`   // samples per window
	Lag    int `json:"lag"`     // autocorrelation lag
	MinObs int `json:"min_obs"` // windows with fewer present samples are NaN
}

// NewRollOptions fills Lag and MinObs with the defaults.
func NewRollOptions(width int) RollOptions {
	return RollOptions{
		Width:  width,
		Lag:    DEFAULT_LAG,
		MinObs: int(math.Ceil(float64(width) * DEFAULT_MIN_FRAC)),
	}
}

func (this RollOptions) Validate() error {
	if this.Lag < 1 {
		return &InvalidOptionsError{Reason: fmt.Sprintf("lag %d is less than 1", this.Lag)}
	}
	if this.Width < this.Lag+2 {
		return &InvalidOptionsError{Reason: fmt.Sprintf("width %d is too small for lag %d", this.Width, this.Lag)}
	}
	if this.MinObs > this.Width {
		return &InvalidOptionsError{Reason: fmt.Sprintf("min_obs %d exceeds width %d", this.MinObs, this.Width)}
	}
	return nil
}

// Roll applies stat to every full window of x. The result has the length
// of x; entries without a full window, or whose window has fewer than
// MinObs present samples, are NaN.
func Roll(x []float64, opts RollOptions, stat func([]float64) float64) ([]float64, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	present := 0
	for i := range x {
		if !math.IsNaN(x[i]) {
			present++
		}
		if i >= opts.Width && !math.IsNaN(x[i-opts.Width]) {
			present--
		}
		if i < opts.Width-1 || present < opts.MinObs || present < 2 {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat(x[i-opts.Width+1 : i+1])
	}
	return out, nil
}

// RollACF is the rolling lag-opts.Lag autocorrelation.
func RollACF(x []float64, opts RollOptions) ([]float64, error) {
	return Roll(x, opts, func(w []float64) float64 {
		return LagCorrelation(w, opts.Lag)
	})
}

// RollARSOS is the rolling sum-of-squares AR(1) coefficient.
func RollARSOS(x []float64, opts RollOptions) ([]float64, error) {
	return Roll(x, opts, SumOfSquaresAR1)
}

// RollEigen is the rolling dominant eigenvalue modulus of an AR(order)
// fit.
func RollEigen(x []float64, opts RollOptions, order int) ([]float64, error) {
	if order < 1 {
		return nil, &InvalidOptionsError{Reason: fmt.Sprintf("AR order %d is less than 1", order)}
	}
	if opts.Width <= 2*order {
		return nil, &InvalidOptionsError{Reason: fmt.Sprintf("width %d is too small for AR order %d", opts.Width, order)}
	}
	return Roll(x, opts, eigenIndicator(order))
}
