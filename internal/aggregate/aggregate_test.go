package aggregate

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotimescales/internal/series"
)

var t0 = time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)

func TestAggTSMeans(t *testing.T) {
	s := series.FromValues("Peter", series.Chlorophyll, t0, 5*time.Minute,
		[]float64{1, 2, 3, 4, 5, 6, 7})
	agg, err := AggTS(s, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5, 7}, agg.Values())
	assert.Equal(t, []time.Time{t0, t0.Add(15 * time.Minute), t0.Add(30 * time.Minute)}, agg.Times())
	assert.Equal(t, series.Lake("Peter"), agg.Lake)
	assert.Equal(t, series.Chlorophyll, agg.Variable)
}

func TestAggTSKeepsGapsAsMissing(t *testing.T) {
	times := []time.Time{t0, t0.Add(time.Minute), t0.Add(3 * time.Hour)}
	s := series.NewSeries("Paul", series.Temperature, times, []float64{10, math.NaN(), 14})
	agg, err := AggTS(s, time.Hour)
	require.NoError(t, err)
	v := agg.Values()
	require.Len(t, v, 4)
	assert.Equal(t, 10.0, v[0])
	assert.True(t, math.IsNaN(v[1]))
	assert.True(t, math.IsNaN(v[2]))
	assert.Equal(t, 14.0, v[3])
}

func TestAggTSTruncatesOrigin(t *testing.T) {
	start := t0.Add(7 * time.Minute)
	s := series.FromValues("Paul", series.Temperature, start, 10*time.Minute, []int{1, 3, 5, 7})
	agg, err := AggTS(s, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, t0, agg.Times()[0])
	// 00:07, 00:17, 00:27 fall in the first bin, 00:37 in the second.
	assert.Equal(t, []float64{3, 7}, agg.Values())
}

func TestAggTSOriginInSeriesLocation(t *testing.T) {
	loc := time.FixedZone("CDT", -5*3600)
	times := []time.Time{
		time.Date(2015, 6, 1, 7, 30, 0, 0, loc),
		time.Date(2015, 6, 1, 22, 0, 0, 0, loc),
		time.Date(2015, 6, 2, 1, 0, 0, 0, loc),
	}
	s := series.NewSeries("Tuesday", series.Chlorophyll, times, []float64{1, 3, 8})
	agg, err := AggTS(s, 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 2, agg.Len())
	assert.True(t, agg.Times()[0].Equal(time.Date(2015, 6, 1, 0, 0, 0, 0, loc)), agg.Times()[0])
	assert.Equal(t, []float64{2, 8}, agg.Values())

	utc := time.Date(2015, 6, 1, 7, 30, 0, 0, time.UTC)
	assert.Equal(t, t0, Origin(utc, 24*time.Hour))
}

func TestAggTSTooManyBins(t *testing.T) {
	times := []time.Time{t0, t0.Add(30 * 24 * time.Hour)}
	s := series.NewSeries("Peter", series.Chlorophyll, times, []float64{1, 2})
	for _, mode := range []Mode{Aggregate, Subsample} {
		_, err := Resample(s, time.Nanosecond, mode)
		var aerr *InvalidArgumentError
		assert.ErrorAs(t, err, &aerr, mode.String())
	}

	n, err := Bins(t0, t0.Add(time.Duration(MAX_BINS-1)*time.Second), time.Second)
	require.NoError(t, err)
	assert.Equal(t, MAX_BINS, n)
	_, err = Bins(t0, t0.Add(time.Duration(MAX_BINS)*time.Second), time.Second)
	assert.Error(t, err)
}

func TestAggTSInvalidWidth(t *testing.T) {
	s := series.FromValues("Paul", series.Temperature, t0, time.Minute, []int{1})
	_, err := AggTS(s, 0)
	var ierr *InvalidArgumentError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "width", ierr.Arg)
}

func TestAggTSEmpty(t *testing.T) {
	s := series.NewSeries("Paul", series.Temperature, nil, nil)
	agg, err := AggTS(s, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, agg.Len())
}

func TestResampleSubsample(t *testing.T) {
	s := series.FromValues("Peter", series.Phycocyanin, t0, 5*time.Minute,
		[]float64{math.NaN(), 2, 3, 4, 5, 6})
	sub, err := Resample(s, 15*time.Minute, Subsample)
	require.NoError(t, err)
	v := sub.Values()
	require.Len(t, v, 2)
	assert.True(t, math.IsNaN(v[0]))
	assert.Equal(t, 4.0, v[1])

	mean, err := Resample(s, 15*time.Minute, Aggregate)
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5, 5}, mean.Values())

	_, err = Resample(s, time.Minute, Mode(7))
	assert.Error(t, err)
}

func TestAggCount(t *testing.T) {
	s := series.FromValues("Peter", series.Chlorophyll, t0, time.Minute, []int{1, 2, 3, 4, 5})
	agg, err := AggCount(s, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 3.5, 5}, agg.Values())
	assert.Equal(t, t0.Add(2*time.Minute), agg.Times()[1])

	_, err = AggCount(s, 0)
	assert.Error(t, err)
}

func TestSubsampleEvery(t *testing.T) {
	s := series.FromValues("Peter", series.Chlorophyll, t0, time.Minute, []int{0, 1, 2, 3, 4, 5, 6})
	sub, err := SubsampleEvery(s, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4}, sub.Values())

	_, err = SubsampleEvery(s, 0, 0)
	assert.Error(t, err)
	_, err = SubsampleEvery(s, 3, 3)
	assert.Error(t, err)
}

func TestModeJSON(t *testing.T) {
	b, err := json.Marshal(Subsample)
	require.NoError(t, err)
	assert.JSONEq(t, `"subsample"`, string(b))

	var m Mode
	require.NoError(t, json.Unmarshal([]byte(`"mean"`), &m))
	assert.Equal(t, Aggregate, m)
	assert.Error(t, json.Unmarshal([]byte(`"median"`), &m))
}
