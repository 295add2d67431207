// Package pipeline turns an observation table into an analysis: every
// selected lake and variable is resampled at each timescale, detrended and
// summarized by rolling autocorrelation indicators and heat maps.
package pipeline

import (
	"fmt"
	"math"
	"time"

	"gotimescales/formats/tsa"
	"gotimescales/internal/acf"
	"gotimescales/internal/aggregate"
	"gotimescales/internal/detrend"
	"gotimescales/internal/series"
)

type WindowTooSmallError struct {
	Timescale time.Duration
	Width     int
	Reason    string
}

func (e *WindowTooSmallError) Error() string {
	return fmt.Sprintf("window of %d samples at %v: %s", e.Width, e.Timescale, e.Reason)
}

func Reshape(tbl series.Table, lake series.Lake, v series.Variable) series.Series {
	return tbl.Series(lake, v)
}

func Resample(s series.Series, timescale time.Duration, mode aggregate.Mode) (series.Series, error) {
	return aggregate.Resample(s, timescale, mode)
}

func unix(times []time.Time) []int64 {
	out := make([]int64, len(times))
	for i, t := range times {
		out[i] = t.Unix()
	}
	return out
}

func nans(n int) tsa.Values {
	v := make(tsa.Values, n)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}

func (this Config) indicator(x []float64, opts acf.RollOptions) ([]float64, error) {
	switch this.Indicator {
	case ARSOS:
		return acf.RollARSOS(x, opts)
	case Eigen:
		return acf.RollEigen(x, opts, this.EigenOrder)
	}
	return acf.RollACF(x, opts)
}

// Compute summarizes an already resampled and detrended series. When the
// rolling window is too short for the timescale the panel is still
// returned, with a missing indicator, together with a
// *WindowTooSmallError.
func Compute(s series.Series, cfg Config, timescale time.Duration) (*tsa.Panel, error) {
	x := s.Values()
	opts := cfg.rollOptions(timescale)
	p := &tsa.Panel{
		Lake:      s.Lake,
		Variable:  s.Variable,
		Timescale: timescale,
		Window:    opts.Width,
		Times:     unix(s.Times()),
		Values:    x,
		ConfBound: tsa.Float(acf.ConfidenceBound(x)),
		Tau:       tsa.Float(math.NaN()),
	}
	if r, err := acf.ACF(x, cfg.MaxLag); err == nil {
		p.ACF = r
	}

	ind, err := cfg.indicator(x, opts)
	if err != nil {
		p.Indicator = nans(len(x))
		return p, &WindowTooSmallError{Timescale: timescale, Width: opts.Width, Reason: err.Error()}
	}
	p.Indicator = ind
	tau, n := acf.Trend(ind)
	p.Tau = tsa.Float(tau)
	p.TauN = n
	return p, nil
}

// blocks returns the start times of the HeatBlock wide blocks covering s.
func (this Config) blocks(s series.Series) ([]time.Time, error) {
	width := time.Duration(this.HeatBlock)
	if width <= 0 || s.Len() == 0 {
		return nil, nil
	}
	first, last := s.Span()
	origin := aggregate.Origin(first, width)
	n, err := aggregate.Bins(origin, last, width)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, n)
	for i := range out {
		out[i] = origin.Add(time.Duration(i) * width)
	}
	return out, nil
}

// HeatMap computes the lag autocorrelation of s, resampled at every
// timescale and detrended, within consecutive HeatBlock wide blocks. Rows
// that cannot be detrended stay missing.
func HeatMap(s series.Series, timescales []time.Duration, cfg Config) (*tsa.Grid, error) {
	blocks, err := cfg.blocks(s)
	if err != nil {
		return nil, err
	}
	g := &tsa.Grid{
		Lake:       s.Lake,
		Variable:   s.Variable,
		Timescales: timescales,
		Blocks:     unix(blocks),
		Values:     make([]tsa.Values, len(timescales)),
	}
	for i, ts := range timescales {
		row := nans(len(blocks))
		g.Values[i] = row

		rs, err := Resample(s, ts, cfg.Mode)
		if err != nil {
			return nil, err
		}
		if rs, err = detrend.Apply(rs, cfg.Detrend); err != nil {
			continue
		}
		for j, start := range blocks {
			w := rs.Window(start, start.Add(time.Duration(cfg.HeatBlock)))
			if w.Len() < cfg.Lag+2 || w.NonMissing() < minObs(w.Len(), cfg.MinFraction) {
				continue
			}
			row[j] = acf.LagCorrelation(w.Values(), cfg.Lag)
		}
	}
	return g, nil
}
