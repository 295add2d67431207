// Package detrend removes slow trends from a series before rolling
// statistics are computed on the residuals.
package detrend

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/SeanJxie/polygo"
	"github.com/openacid/slimarray/polyfit"
	"github.com/pconstantinou/savitzkygolay"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"

	"gotimescales/internal/series"
)

const (
	DEFAULT_POLY_DEGREE = 2
	DEFAULT_SG_WINDOW   = 51 // samples, must be odd
	DEFAULT_SG_ORDER    = 3
)

type Method uint8

const (
	None Method = iota
	Linear
	Polynomial
	SavitzkyGolay
)

var methodNames = map[Method]string{
	None:          "none",
	Linear:        "linear",
	Polynomial:    "polynomial",
	SavitzkyGolay: "savitzky-golay",
}

func (this Method) String() string {
	if n, ok := methodNames[this]; ok {
		return n
	}
	return fmt.Sprintf("Method(%d)", uint8(this))
}

func ParseMethod(s string) (Method, error) {
	n := strings.ToLower(strings.TrimSpace(s))
	if n == "" || n == "off" {
		return None, nil
	}
	if n == "sg" || n == "savgol" {
		return SavitzkyGolay, nil
	}
	for m, name := range methodNames {
		if name == n {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown detrending method %q", s)
}

func (this Method) MarshalJSON() ([]byte, error) {
	return json.Marshal(this.String())
}

func (this *Method) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	m, err := ParseMethod(s)
	if err != nil {
		return err
	}
	*this = m
	return nil
}

// Spec selects a detrending method and its parameters. Zero parameters
// fall back to the defaults.
type Spec struct {
	Method Method `codec:"," json:"method"`
	Degree int    `codec:"," json:"degree,omitempty"`
	Window int    `codec:"," json:"window,omitempty"`
	Order  int    `codec:"," json:"order,omitempty"`
}

type InvalidSpecError struct {
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return "invalid detrending: " + e.Reason
}

func (this Spec) withDefaults() Spec {
	if this.Degree == 0 {
		this.Degree = DEFAULT_POLY_DEGREE
	}
	if this.Window == 0 {
		this.Window = DEFAULT_SG_WINDOW
	}
	if this.Order == 0 {
		this.Order = DEFAULT_SG_ORDER
	}
	return this
}

func (this Spec) Validate() error {
	s := this.withDefaults()
	switch s.Method {
	case None, Linear:
	case Polynomial:
		if s.Degree < 1 {
			return &InvalidSpecError{Reason: fmt.Sprintf("degree %d is less than 1", s.Degree)}
		}
	case SavitzkyGolay:
		if s.Window%2 == 0 || s.Window < 3 {
			return &InvalidSpecError{Reason: fmt.Sprintf("window %d must be odd and at least 3", s.Window)}
		}
		if s.Order >= s.Window {
			return &InvalidSpecError{Reason: fmt.Sprintf("order %d must be below window %d", s.Order, s.Window)}
		}
	default:
		return &InvalidSpecError{Reason: s.Method.String()}
	}
	return nil
}

// present splits x into index and value slices of its non-missing entries.
func present(x []float64) (xs, ys []float64) {
	for i, v := range x {
		if !math.IsNaN(v) {
			xs = append(xs, float64(i))
			ys = append(ys, v)
		}
	}
	return xs, ys
}

// Trend returns the fitted trend of x on its sample index.
func Trend(x []float64, spec Spec) ([]float64, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	spec = spec.withDefaults()
	trend := make([]float64, len(x))
	xs, ys := present(x)

	switch spec.Method {
	case None:
		return trend, nil

	case Linear:
		if len(xs) < 2 {
			return nil, &InvalidSpecError{Reason: "linear trend needs two observations"}
		}
		alpha, beta := stat.LinearRegression(xs, ys, nil, false)
		for i := range trend {
			trend[i] = alpha + beta*float64(i)
		}

	case Polynomial:
		if len(xs) <= spec.Degree {
			return nil, &InvalidSpecError{Reason: fmt.Sprintf("degree %d needs more than %d observations", spec.Degree, len(xs))}
		}
		// Fit on [0, 1] to keep the normal equations well conditioned.
		scale := float64(len(x) - 1)
		if scale == 0 {
			scale = 1
		}
		us := make([]float64, len(xs))
		for i, v := range xs {
			us[i] = v / scale
		}
		f := polyfit.NewFit(us, ys, spec.Degree)
		p, err := polygo.NewRealPolynomial(f.Solve())
		if err != nil {
			return nil, err
		}
		for i := range trend {
			trend[i] = p.At(float64(i) / scale)
		}

	case SavitzkyGolay:
		if len(xs) < 2 {
			return nil, &InvalidSpecError{Reason: "smoothing needs two observations"}
		}
		if spec.Window > len(x) {
			return nil, &InvalidSpecError{Reason: fmt.Sprintf("window %d exceeds %d samples", spec.Window, len(x))}
		}
		var pl interp.PiecewiseLinear
		if err := pl.Fit(xs, ys); err != nil {
			return nil, err
		}
		filled := make([]float64, len(x))
		idx := make([]float64, len(x))
		for i := range filled {
			idx[i] = float64(i)
			filled[i] = pl.Predict(idx[i])
		}
		filter, err := savitzkygolay.NewFilter(spec.Window, 0, spec.Order)
		if err != nil {
			return nil, err
		}
		smooth, err := filter.Process(filled, idx)
		if err != nil {
			return nil, err
		}
		copy(trend, smooth)
	}
	return trend, nil
}

// Residuals returns x minus its trend. Missing entries stay missing.
func Residuals(x []float64, spec Spec) ([]float64, error) {
	trend, err := Trend(x, spec)
	if err != nil {
		return nil, err
	}
	r := make([]float64, len(x))
	for i, v := range x {
		r[i] = v - trend[i]
	}
	return r, nil
}

// Apply returns a series of the residuals of s.
func Apply(s series.Series, spec Spec) (series.Series, error) {
	if spec.Method == None {
		return s, nil
	}
	r, err := Residuals(s.Values(), spec)
	if err != nil {
		return series.Series{}, err
	}
	return s.WithValues(r), nil
}
