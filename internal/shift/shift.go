// Package shift builds shift (lag) operator matrices and the autoregressive
// companion matrices built from them, and derives the dominant eigenvalue
// used as a critical slowing down indicator.
package shift

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DEFAULT_OFFSET places the band directly below the main diagonal.
const DEFAULT_OFFSET = -1

type InvalidArgumentError struct {
	Arg    string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Arg, e.Reason)
}

type InsufficientDataError struct {
	Need int
	Have int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need %d complete rows, have %d", e.Need, e.Have)
}

// DiagExtend returns a size×size matrix with ones on the diagonal displaced
// by offset (negative below, positive above the main diagonal) and zeros
// elsewhere. An offset whose magnitude is at least size leaves no valid
// placement and yields the all-zero matrix. A zero size yields an empty
// matrix.
func DiagExtend(size, offset int) (*mat.Dense, error) {
	if size < 0 {
		return nil, &InvalidArgumentError{Arg: "size", Reason: fmt.Sprintf("%d is negative", size)}
	}
	if size == 0 {
		return &mat.Dense{}, nil
	}

	m := mat.NewDense(size, size, nil)
	for i := 0; i < size; i++ {
		j := i + offset
		if j >= 0 && j < size {
			m.Set(i, j, 1)
		}
	}
	return m, nil
}

// SubDiagonal is DiagExtend with DEFAULT_OFFSET.
func SubDiagonal(size int) (*mat.Dense, error) {
	return DiagExtend(size, DEFAULT_OFFSET)
}

// Companion returns the companion matrix of an AR(p) process with the
// given coefficients: the coefficients in the first row and the
// sub-diagonal shift below it.
func Companion(coeffs []float64) (*mat.Dense, error) {
	p := len(coeffs)
	if p == 0 {
		return nil, &InvalidArgumentError{Arg: "coeffs", Reason: "empty"}
	}
	m, err := SubDiagonal(p)
	if err != nil {
		return nil, err
	}
	m.SetRow(0, coeffs)
	return m, nil
}

// FitAR estimates AR(order) coefficients of the demeaned series by least
// squares. Rows of the lagged design that contain a missing value are
// dropped.
func FitAR(x []float64, order int) ([]float64, error) {
	if order < 1 {
		return nil, &InvalidArgumentError{Arg: "order", Reason: fmt.Sprintf("%d is less than 1", order)}
	}

	var present []float64
	for _, v := range x {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return nil, &InsufficientDataError{Need: order + 1, Have: 0}
	}
	mean := stat.Mean(present, nil)

	var rows [][]float64
	var ys []float64
	for t := order; t < len(x); t++ {
		if math.IsNaN(x[t]) {
			continue
		}
		row := make([]float64, order)
		complete := true
		for k := 1; k <= order; k++ {
			v := x[t-k]
			if math.IsNaN(v) {
				complete = false
				break
			}
			row[k-1] = v - mean
		}
		if complete {
			rows = append(rows, row)
			ys = append(ys, x[t]-mean)
		}
	}
	// Need strictly more equations than unknowns.
	if len(rows) <= order {
		return nil, &InsufficientDataError{Need: order + 1, Have: len(rows)}
	}

	design := mat.NewDense(len(rows), order, nil)
	for i, row := range rows {
		design.SetRow(i, row)
	}
	y := mat.NewVecDense(len(ys), ys)

	var beta mat.VecDense
	if err := beta.SolveVec(design, y); err != nil {
		return nil, err
	}
	return mat.Col(nil, 0, &beta), nil
}

// DominantEigenvalue returns the largest eigenvalue modulus of the
// companion matrix of coeffs.
func DominantEigenvalue(coeffs []float64) (float64, error) {
	c, err := Companion(coeffs)
	if err != nil {
		return math.NaN(), err
	}
	if len(coeffs) == 1 {
		return math.Abs(coeffs[0]), nil
	}

	var eig mat.Eigen
	if ok := eig.Factorize(c, mat.EigenNone); !ok {
		return math.NaN(), fmt.Errorf("eigen decomposition did not converge")
	}
	max := 0.0
	for _, v := range eig.Values(nil) {
		max = math.Max(max, cmplx.Abs(v))
	}
	return max, nil
}
