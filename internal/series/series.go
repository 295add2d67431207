// Package series holds the immutable data model: typed sensor variables,
// per-lake observation tables and single-variable time series.
package series

import (
	"math"
	"sort"
	"time"

	"golang.org/x/exp/constraints"
)

type Number interface {
	constraints.Float | constraints.Integer
}

type Lake string

// Observation is one timestamped sensor reading. Missing readings are NaN.
type Observation struct {
	Lake        Lake      `codec:"," json:"lake"`
	Time        time.Time `codec:"," json:"time"`
	Chlorophyll float64   `codec:"," json:"chlorophyll"`
	Phycocyanin float64   `codec:"," json:"phycocyanin"`
	Temperature float64   `codec:"," json:"temperature"`
}

// Missing returns an observation with every variable missing.
func Missing(lake Lake, t time.Time) Observation {
	return Observation{
		Lake:        lake,
		Time:        t,
		Chlorophyll: math.NaN(),
		Phycocyanin: math.NaN(),
		Temperature: math.NaN(),
	}
}

// Table is an immutable set of observations sorted by lake then time.
type Table struct {
	obs []Observation
}

func NewTable(obs []Observation) Table {
	c := make([]Observation, len(obs))
	copy(c, obs)
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Lake != c[j].Lake {
			return c[i].Lake < c[j].Lake
		}
		return c[i].Time.Before(c[j].Time)
	})
	return Table{obs: c}
}

func (this Table) Len() int {
	return len(this.obs)
}

// Observations returns a copy of the rows.
func (this Table) Observations() []Observation {
	c := make([]Observation, len(this.obs))
	copy(c, this.obs)
	return c
}

func (this Table) Lakes() []Lake {
	var lakes []Lake
	for i, o := range this.obs {
		if i == 0 || o.Lake != this.obs[i-1].Lake {
			lakes = append(lakes, o.Lake)
		}
	}
	return lakes
}

// Lake returns the sub-table of a single lake. Rows are shared, which is
// safe because tables are never mutated.
func (this Table) Lake(lake Lake) Table {
	lo := sort.Search(len(this.obs), func(i int) bool { return this.obs[i].Lake >= lake })
	hi := sort.Search(len(this.obs), func(i int) bool { return this.obs[i].Lake > lake })
	return Table{obs: this.obs[lo:hi:hi]}
}

// Series extracts one variable of one lake.
func (this Table) Series(lake Lake, v Variable) Series {
	sub := this.Lake(lake)
	s := Series{
		Lake:     lake,
		Variable: v,
		times:    make([]time.Time, len(sub.obs)),
		values:   make([]float64, len(sub.obs)),
	}
	for i, o := range sub.obs {
		s.times[i] = o.Time
		s.values[i] = v.Value(o)
	}
	return s
}

// Map returns a new table with f applied to every row.
func (this Table) Map(f func(Observation) Observation) Table {
	c := make([]Observation, len(this.obs))
	for i, o := range this.obs {
		c[i] = f(o)
	}
	return NewTable(c)
}

// Series is an immutable single-variable time series.
type Series struct {
	Lake     Lake
	Variable Variable
	times    []time.Time
	values   []float64
}

func NewSeries(lake Lake, v Variable, times []time.Time, values []float64) Series {
	if len(times) != len(values) {
		panic("series: times and values differ in length")
	}
	s := Series{
		Lake:     lake,
		Variable: v,
		times:    make([]time.Time, len(times)),
		values:   make([]float64, len(values)),
	}
	copy(s.times, times)
	copy(s.values, values)
	return s
}

// FromValues builds a series sampled every step starting at start.
func FromValues[T Number](lake Lake, v Variable, start time.Time, step time.Duration, values []T) Series {
	s := Series{
		Lake:     lake,
		Variable: v,
		times:    make([]time.Time, len(values)),
		values:   make([]float64, len(values)),
	}
	for i, x := range values {
		s.times[i] = start.Add(time.Duration(i) * step)
		s.values[i] = float64(x)
	}
	return s
}

func (this Series) Len() int {
	return len(this.values)
}

// Times returns a copy of the timestamps.
func (this Series) Times() []time.Time {
	c := make([]time.Time, len(this.times))
	copy(c, this.times)
	return c
}

// Values returns a copy of the readings.
func (this Series) Values() []float64 {
	c := make([]float64, len(this.values))
	copy(c, this.values)
	return c
}

func (this Series) At(i int) (time.Time, float64) {
	return this.times[i], this.values[i]
}

func (this Series) NonMissing() int {
	n := 0
	for _, v := range this.values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Span returns the first and last timestamps.
func (this Series) Span() (time.Time, time.Time) {
	if len(this.times) == 0 {
		return time.Time{}, time.Time{}
	}
	return this.times[0], this.times[len(this.times)-1]
}

// Window returns the samples with from <= t < to.
func (this Series) Window(from, to time.Time) Series {
	lo := sort.Search(len(this.times), func(i int) bool { return !this.times[i].Before(from) })
	hi := sort.Search(len(this.times), func(i int) bool { return !this.times[i].Before(to) })
	if hi < lo {
		hi = lo
	}
	return Series{
		Lake:     this.Lake,
		Variable: this.Variable,
		times:    this.times[lo:hi:hi],
		values:   this.values[lo:hi:hi],
	}
}

// WithValues returns a series on the same time axis with new readings.
func (this Series) WithValues(values []float64) Series {
	return NewSeries(this.Lake, this.Variable, this.times, values)
}
