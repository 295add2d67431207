// Package aggregate derives coarser time series from high-frequency ones,
// either by averaging over fixed-width bins or by thinning the samples.
package aggregate

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"

	"gotimescales/internal/series"
)

const MAX_BINS = 1 << 22 // largest regular grid bin will allocate

type Mode uint8

const (
	Aggregate Mode = iota // mean over each bin
	Subsample             // first sample of each bin
)

func (this Mode) String() string {
	switch this {
	case Aggregate:
		return "aggregate"
	case Subsample:
		return "subsample"
	}
	return fmt.Sprintf("Mode(%d)", uint8(this))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "aggregate", "mean", "":
		return Aggregate, nil
	case "subsample", "thin":
		return Subsample, nil
	}
	return 0, fmt.Errorf("unknown sampling mode %q", s)
}

func (this Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(this.String())
}

func (this *Mode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	m, err := ParseMode(s)
	if err != nil {
		return err
	}
	*this = m
	return nil
}

type InvalidArgumentError struct {
	Arg    string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Arg, e.Reason)
}

func nanMean(x []float64) float64 {
	var present []float64
	for _, v := range x {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return math.NaN()
	}
	return floats.Sum(present) / float64(len(present))
}

// firstSample models a sensor that only reads once per bin, so a missing
// first reading stays missing.
func firstSample(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return x[0]
}

// Origin truncates t to a multiple of width counted from the zero time in
// t's own location, so daily bins of local data start at local midnight.
// Zone transitions within a series do not shift the grid.
func Origin(t time.Time, width time.Duration) time.Time {
	_, off := t.Zone()
	shift := time.Duration(off) * time.Second
	return t.Add(shift).Truncate(width).Add(-shift)
}

// Bins returns the number of width wide bins of a grid starting at origin
// that cover last, or an *InvalidArgumentError when that exceeds MAX_BINS.
func Bins(origin, last time.Time, width time.Duration) (int, error) {
	n := last.Sub(origin) / width
	if n >= MAX_BINS {
		return 0, &InvalidArgumentError{Arg: "width", Reason: fmt.Sprintf("%v splits %v into more than %d bins", width, last.Sub(origin), MAX_BINS)}
	}
	return int(n) + 1, nil
}

// AggTS averages s over consecutive bins of the given width. The bin grid
// starts at the first timestamp truncated to width (see Origin) and is
// regular: bins without any present sample are kept as NaN.
func AggTS(s series.Series, width time.Duration) (series.Series, error) {
	return bin(s, width, nanMean)
}

// Resample derives the series at the given timescale using mode.
func Resample(s series.Series, width time.Duration, mode Mode) (series.Series, error) {
	switch mode {
	case Aggregate:
		return bin(s, width, nanMean)
	case Subsample:
		return bin(s, width, firstSample)
	}
	return series.Series{}, &InvalidArgumentError{Arg: "mode", Reason: mode.String()}
}

func bin(s series.Series, width time.Duration, reduce func([]float64) float64) (series.Series, error) {
	if width <= 0 {
		return series.Series{}, &InvalidArgumentError{Arg: "width", Reason: fmt.Sprintf("%v is not positive", width)}
	}
	if s.Len() == 0 {
		return s, nil
	}

	first, last := s.Span()
	origin := Origin(first, width)
	count, err := Bins(origin, last, width)
	if err != nil {
		return series.Series{}, err
	}

	times := make([]time.Time, count)
	values := make([]float64, count)
	var buf []float64
	k := 0
	for b := 0; b < count; b++ {
		times[b] = origin.Add(time.Duration(b) * width)
		end := times[b].Add(width)
		buf = buf[:0]
		for ; k < s.Len(); k++ {
			t, v := s.At(k)
			if !t.Before(end) {
				break
			}
			buf = append(buf, v)
		}
		values[b] = reduce(buf)
	}
	return series.NewSeries(s.Lake, s.Variable, times, values), nil
}

// AggCount averages s over consecutive groups of n samples. A trailing
// partial group is kept.
func AggCount(s series.Series, n int) (series.Series, error) {
	if n < 1 {
		return series.Series{}, &InvalidArgumentError{Arg: "n", Reason: fmt.Sprintf("%d is less than 1", n)}
	}
	all := s.Values()
	allTimes := s.Times()
	var times []time.Time
	var values []float64
	for i := 0; i < len(all); i += n {
		j := min(i+n, len(all))
		times = append(times, allTimes[i])
		values = append(values, nanMean(all[i:j]))
	}
	return series.NewSeries(s.Lake, s.Variable, times, values), nil
}

// SubsampleEvery keeps every every-th sample starting at offset.
func SubsampleEvery(s series.Series, every, offset int) (series.Series, error) {
	if every < 1 {
		return series.Series{}, &InvalidArgumentError{Arg: "every", Reason: fmt.Sprintf("%d is less than 1", every)}
	}
	if offset < 0 || offset >= every {
		return series.Series{}, &InvalidArgumentError{Arg: "offset", Reason: fmt.Sprintf("%d is outside [0, %d)", offset, every)}
	}
	var times []time.Time
	var values []float64
	for i := offset; i < s.Len(); i += every {
		t, v := s.At(i)
		times = append(times, t)
		values = append(values, v)
	}
	return series.NewSeries(s.Lake, s.Variable, times, values), nil
}
