// Package tsa defines the processed analysis data that is stored in the
// database, written to .TSA files and served over the HTTP API.
package tsa

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/ugorji/go/codec"

	"gotimescales/internal/series"
)

const VERSION = 1

// Values is a float series where NaN means missing. In JSON missing values
// are null.
type Values []float64

func (this Values) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(this))
	for i := range this {
		if !math.IsNaN(this[i]) && !math.IsInf(this[i], 0) {
			out[i] = &this[i]
		}
	}
	return json.Marshal(out)
}

func (this *Values) UnmarshalJSON(b []byte) error {
	var in []*float64
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	if in == nil {
		*this = nil
		return nil
	}
	v := make(Values, len(in))
	for i, p := range in {
		if p == nil {
			v[i] = math.NaN()
		} else {
			v[i] = *p
		}
	}
	*this = v
	return nil
}

// Float is a scalar that is null in JSON when it is NaN.
type Float float64

func (this Float) MarshalJSON() ([]byte, error) {
	f := float64(this)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

func (this *Float) UnmarshalJSON(b []byte) error {
	var p *float64
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if p == nil {
		*this = Float(math.NaN())
	} else {
		*this = Float(*p)
	}
	return nil
}

// Panel is the result for one lake, variable and timescale.
type Panel struct {
	Lake      series.Lake     `codec:"," json:"lake"`
	Variable  series.Variable `codec:"," json:"variable"`
	Timescale time.Duration   `codec:"," json:"timescale"`
	Window    int             `codec:"," json:"window"`     // samples per rolling window
	Times     []int64         `codec:"," json:"times"`      // unix seconds
	Values    Values          `codec:"," json:"values"`     // resampled, detrended series
	ACF       Values          `codec:"," json:"acf"`        // lags 0..MaxLag of the whole series
	ConfBound Float           `codec:"," json:"conf_bound"` // ±1.96/sqrt(n)
	Indicator Values          `codec:"," json:"indicator"`
	Tau       Float           `codec:"," json:"tau"`
	TauN      int             `codec:"," json:"tau_n"`
}

// Grid is a timescale × time block matrix of lag-1 autocorrelations.
type Grid struct {
	Lake       series.Lake     `codec:"," json:"lake"`
	Variable   series.Variable `codec:"," json:"variable"`
	Timescales []time.Duration `codec:"," json:"timescales"`
	Blocks     []int64         `codec:"," json:"blocks"` // unix seconds of block starts
	Values     []Values        `codec:"," json:"values"` // [timescale][block]
}

// Timescales are written as duration strings ("1h0m0s") in JSON, the same
// way analysis configurations write them.

func (this Panel) MarshalJSON() ([]byte, error) {
	type plain Panel
	return json.Marshal(struct {
		plain
		Timescale string `json:"timescale"`
	}{plain(this), this.Timescale.String()})
}

func (this *Panel) UnmarshalJSON(b []byte) error {
	type plain Panel
	var p struct {
		plain
		Timescale string `json:"timescale"`
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	ts, err := time.ParseDuration(p.Timescale)
	if err != nil {
		return err
	}
	*this = Panel(p.plain)
	this.Timescale = ts
	return nil
}

func (this Grid) MarshalJSON() ([]byte, error) {
	type plain Grid
	timescales := make([]string, len(this.Timescales))
	for i, ts := range this.Timescales {
		timescales[i] = ts.String()
	}
	return json.Marshal(struct {
		plain
		Timescales []string `json:"timescales"`
	}{plain(this), timescales})
}

func (this *Grid) UnmarshalJSON(b []byte) error {
	type plain Grid
	var g struct {
		plain
		Timescales []string `json:"timescales"`
	}
	if err := json.Unmarshal(b, &g); err != nil {
		return err
	}
	*this = Grid(g.plain)
	this.Timescales = make([]time.Duration, len(g.Timescales))
	for i, s := range g.Timescales {
		ts, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		this.Timescales[i] = ts
	}
	return nil
}

type Analysis struct {
	Version   uint8           `codec:"," json:"-"`
	Id        uuid.UUID       `codec:"," json:"id"`
	Name      string          `codec:"," json:"name"`
	Timestamp int64           `codec:"," json:"timestamp"`
	Dataset   int             `codec:"," json:"dataset_id"`
	Config    json.RawMessage `codec:"," json:"config"`
	Panels    []*Panel        `codec:"," json:"panels"`
	HeatMaps  []*Grid         `codec:"," json:"heatmaps"`
}

type UnsupportedVersionError struct {
	Version uint8
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported TSA version %d", e.Version)
}

func New(name string, dataset int, config interface{}) (*Analysis, error) {
	c, err := json.Marshal(config)
	if err != nil {
		return nil, err
	}
	return &Analysis{
		Version:   VERSION,
		Id:        uuid.New(),
		Name:      name,
		Timestamp: time.Now().Unix(),
		Dataset:   dataset,
		Config:    c,
	}, nil
}

func (this *Analysis) Panel(lake series.Lake, v series.Variable, timescale time.Duration) *Panel {
	for _, p := range this.Panels {
		if p.Lake == lake && p.Variable == v && p.Timescale == timescale {
			return p
		}
	}
	return nil
}

func (this *Analysis) HeatMap(lake series.Lake, v series.Variable) *Grid {
	for _, g := range this.HeatMaps {
		if g.Lake == lake && g.Variable == v {
			return g
		}
	}
	return nil
}

func Encode(a *Analysis) ([]byte, error) {
	if a.Version == 0 {
		a.Version = VERSION
	}
	var b []byte
	var h codec.MsgpackHandle
	enc := codec.NewEncoderBytes(&b, &h)
	if err := enc.Encode(a); err != nil {
		return nil, err
	}
	return b, nil
}

func Decode(b []byte) (*Analysis, error) {
	var a Analysis
	var h codec.MsgpackHandle
	dec := codec.NewDecoderBytes(b, &h)
	if err := dec.Decode(&a); err != nil {
		return nil, err
	}
	if a.Version != VERSION {
		return nil, &UnsupportedVersionError{Version: a.Version}
	}
	return &a, nil
}
