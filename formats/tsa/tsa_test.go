package tsa

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotimescales/internal/series"
)

func TestValuesJSON(t *testing.T) {
	b, err := json.Marshal(Values{1, math.NaN(), 2.5})
	require.NoError(t, err)
	assert.JSONEq(t, `[1, null, 2.5]`, string(b))

	var v Values
	require.NoError(t, json.Unmarshal([]byte(`[null, 3]`), &v))
	require.Len(t, v, 2)
	assert.True(t, math.IsNaN(v[0]))
	assert.Equal(t, 3.0, v[1])
}

func TestFloatJSON(t *testing.T) {
	b, err := json.Marshal(struct{ Tau Float }{Float(math.NaN())})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Tau": null}`, string(b))

	var f Float
	require.NoError(t, json.Unmarshal([]byte(`0.25`), &f))
	assert.Equal(t, Float(0.25), f)
	require.NoError(t, json.Unmarshal([]byte(`null`), &f))
	assert.True(t, math.IsNaN(float64(f)))
}

func sample(t *testing.T) *Analysis {
	a, err := New("peter-2015", 7, map[string]interface{}{"window": "720h"})
	require.NoError(t, err)
	a.Panels = []*Panel{{
		Lake:      "Peter",
		Variable:  series.Phycocyanin,
		Timescale: time.Hour,
		Window:    4,
		Times:     []int64{0, 3600, 7200},
		Values:    Values{1, math.NaN(), 3},
		ACF:       Values{1, 0.5},
		ConfBound: Float(1.96 / math.Sqrt(2)),
		Indicator: Values{math.NaN(), math.NaN(), 0.4},
		Tau:       1,
		TauN:      1,
	}}
	a.HeatMaps = []*Grid{{
		Lake:       "Peter",
		Variable:   series.Phycocyanin,
		Timescales: []time.Duration{time.Hour},
		Blocks:     []int64{0},
		Values:     []Values{{0.3}},
	}}
	return a
}

func TestEncodeDecode(t *testing.T) {
	a := sample(t)
	b, err := Encode(a)
	require.NoError(t, err)

	d, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, a.Id, d.Id)
	assert.Equal(t, a.Name, d.Name)
	assert.Equal(t, 7, d.Dataset)
	assert.JSONEq(t, string(a.Config), string(d.Config))
	require.Len(t, d.Panels, 1)
	p := d.Panels[0]
	assert.Equal(t, series.Phycocyanin, p.Variable)
	assert.Equal(t, time.Hour, p.Timescale)
	assert.True(t, math.IsNaN(p.Values[1]))
	assert.Equal(t, 3.0, p.Values[2])
	assert.Equal(t, Values{0.3}, d.HeatMaps[0].Values[0])
}

func TestDecodeRejectsVersion(t *testing.T) {
	a := sample(t)
	a.Version = 9
	b, err := Encode(a)
	require.NoError(t, err)
	_, err = Decode(b)
	var verr *UnsupportedVersionError
	assert.ErrorAs(t, err, &verr)

	_, err = Decode([]byte{0xc1})
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	a := sample(t)
	assert.NotNil(t, a.Panel("Peter", series.Phycocyanin, time.Hour))
	assert.Nil(t, a.Panel("Peter", series.Phycocyanin, time.Minute))
	assert.NotNil(t, a.HeatMap("Peter", series.Phycocyanin))
	assert.Nil(t, a.HeatMap("Paul", series.Phycocyanin))
}

func TestAnalysisJSON(t *testing.T) {
	b, err := json.Marshal(sample(t))
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	panel := m["panels"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "phycocyanin", panel["variable"])
	assert.Nil(t, panel["values"].([]interface{})[1])
	assert.Equal(t, "720h", m["config"].(map[string]interface{})["window"])
	assert.Equal(t, "1h0m0s", panel["timescale"])
	grid := m["heatmaps"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, []interface{}{"1h0m0s"}, grid["timescales"])

	var back Analysis
	require.NoError(t, json.Unmarshal(b, &back))
	require.Len(t, back.Panels, 1)
	assert.Equal(t, time.Hour, back.Panels[0].Timescale)
	assert.Equal(t, Values{1, 0.5}, back.Panels[0].ACF)
	require.Len(t, back.HeatMaps, 1)
	assert.Equal(t, []time.Duration{time.Hour}, back.HeatMaps[0].Timescales)
	assert.Equal(t, "peter-2015", back.Name)

	var p Panel
	assert.Error(t, json.Unmarshal([]byte(`{"timescale": 3600}`), &p))
}
