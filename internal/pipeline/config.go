package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"gotimescales/internal/acf"
	"gotimescales/internal/aggregate"
	"gotimescales/internal/detrend"
	"gotimescales/internal/series"
)

const MAX_WINDOW_SAMPLES = 100000 // largest rolling window, in samples

type Indicator uint8

const (
	ACF   Indicator = iota // rolling lag autocorrelation
	ARSOS                  // rolling sum-of-squares AR(1) coefficient
	Eigen                  // rolling dominant eigenvalue of an AR fit
)

func (this Indicator) String() string {
	switch this {
	case ACF:
		return "acf"
	case ARSOS:
		return "ar-sos"
	case Eigen:
		return "eigen"
	}
	return fmt.Sprintf("Indicator(%d)", uint8(this))
}

func ParseIndicator(s string) (Indicator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "acf", "":
		return ACF, nil
	case "ar-sos", "arsos", "sos":
		return ARSOS, nil
	case "eigen", "eigenvalue":
		return Eigen, nil
	}
	return 0, fmt.Errorf("unknown indicator %q", s)
}

func (this Indicator) MarshalJSON() ([]byte, error) {
	return json.Marshal(this.String())
}

func (this *Indicator) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	i, err := ParseIndicator(s)
	if err != nil {
		return err
	}
	*this = i
	return nil
}

// Duration is a time.Duration written as "1h30m" in JSON. Bare numbers are
// read as seconds.
type Duration time.Duration

func (this Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(this).String())
}

func (this *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var sec float64
		if err := json.Unmarshal(b, &sec); err != nil {
			return fmt.Errorf("invalid duration %s", string(b))
		}
		d, err := fromFloat(sec, time.Second)
		if err != nil {
			return fmt.Errorf("invalid duration %s: %w", string(b), err)
		}
		*this = Duration(d)
		return nil
	}
	d, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*this = Duration(d)
	return nil
}

// ParseDuration extends time.ParseDuration with a "d" suffix for days.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		days, err := strconv.ParseFloat(strings.TrimSuffix(s, "d"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		d, err := fromFloat(days, 24*time.Hour)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		return d, nil
	}
	return time.ParseDuration(s)
}

func fromFloat(n float64, unit time.Duration) (time.Duration, error) {
	ns := n * float64(unit)
	if math.IsNaN(ns) || math.Abs(ns) >= math.MaxInt64 {
		return 0, fmt.Errorf("%v out of range", n)
	}
	return time.Duration(ns), nil
}

type Config struct {
	Name        string            `json:"name"`
	Lakes       []series.Lake     `json:"lakes,omitempty"` // empty means every lake in the table
	Variables   []series.Variable `json:"variables"`
	Timescales  []Duration        `json:"timescales"`
	Mode        aggregate.Mode    `json:"mode"`
	Window      Duration          `json:"window"`
	Lag         int               `json:"lag"`
	MaxLag      int               `json:"max_lag"`
	MinFraction float64           `json:"min_fraction"`
	Indicator   Indicator         `json:"indicator"`
	EigenOrder  int               `json:"eigen_order"`
	Detrend     detrend.Spec      `json:"detrend"`
	HeatBlock   Duration          `json:"heat_block"` // zero disables heat maps
	Workers     int               `json:"workers"`
}

func DefaultConfig() Config {
	return Config{
		Name:      "analysis",
		Variables: []series.Variable{series.Chlorophyll, series.Phycocyanin},
		Timescales: []Duration{
			Duration(time.Hour),
			Duration(6 * time.Hour),
			Duration(24 * time.Hour),
		},
		Mode:        aggregate.Aggregate,
		Window:      Duration(21 * 24 * time.Hour),
		Lag:         acf.DEFAULT_LAG,
		MaxLag:      10,
		MinFraction: acf.DEFAULT_MIN_FRAC,
		Indicator:   ACF,
		EigenOrder:  acf.DEFAULT_EIGEN_LAGS,
		HeatBlock:   Duration(7 * 24 * time.Hour),
		Workers:     runtime.NumCPU(),
	}
}

// ParseConfig reads a JSON configuration on top of DefaultConfig.
func ParseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(b) > 0 {
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, cfg.Validate()
}

type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (this Config) Validate() error {
	if len(this.Variables) == 0 {
		return &InvalidConfigError{Field: "variables", Reason: "empty"}
	}
	for _, v := range this.Variables {
		if int(v) >= len(series.Variables) {
			return &InvalidConfigError{Field: "variables", Reason: v.String()}
		}
	}
	if len(this.Timescales) == 0 {
		return &InvalidConfigError{Field: "timescales", Reason: "empty"}
	}
	for _, ts := range this.Timescales {
		if ts <= 0 {
			return &InvalidConfigError{Field: "timescales", Reason: fmt.Sprintf("%v is not positive", time.Duration(ts))}
		}
	}
	if this.Mode != aggregate.Aggregate && this.Mode != aggregate.Subsample {
		return &InvalidConfigError{Field: "mode", Reason: this.Mode.String()}
	}
	if this.Window <= 0 {
		return &InvalidConfigError{Field: "window", Reason: "not positive"}
	}
	finest := this.Timescales[0]
	for _, ts := range this.Timescales {
		if this.Window/ts > MAX_WINDOW_SAMPLES {
			return &InvalidConfigError{Field: "timescales", Reason: fmt.Sprintf("window %v holds more than %d samples of %v", time.Duration(this.Window), MAX_WINDOW_SAMPLES, time.Duration(ts))}
		}
		if ts < finest {
			finest = ts
		}
	}
	if this.Lag < 1 {
		return &InvalidConfigError{Field: "lag", Reason: fmt.Sprintf("%d is less than 1", this.Lag)}
	}
	if this.MaxLag < this.Lag {
		return &InvalidConfigError{Field: "max_lag", Reason: fmt.Sprintf("%d is less than lag %d", this.MaxLag, this.Lag)}
	}
	if this.MinFraction <= 0 || this.MinFraction > 1 {
		return &InvalidConfigError{Field: "min_fraction", Reason: fmt.Sprintf("%v is outside (0, 1]", this.MinFraction)}
	}
	if this.Indicator > Eigen {
		return &InvalidConfigError{Field: "indicator", Reason: this.Indicator.String()}
	}
	if this.Indicator == Eigen && this.EigenOrder < 1 {
		return &InvalidConfigError{Field: "eigen_order", Reason: fmt.Sprintf("%d is less than 1", this.EigenOrder)}
	}
	if this.HeatBlock < 0 {
		return &InvalidConfigError{Field: "heat_block", Reason: "negative"}
	}
	if this.HeatBlock > 0 && this.HeatBlock < finest {
		return &InvalidConfigError{Field: "heat_block", Reason: fmt.Sprintf("%v is shorter than timescale %v", time.Duration(this.HeatBlock), time.Duration(finest))}
	}
	if this.Workers < 0 {
		return &InvalidConfigError{Field: "workers", Reason: "negative"}
	}
	if err := this.Detrend.Validate(); err != nil {
		return &InvalidConfigError{Field: "detrend", Reason: err.Error()}
	}
	return nil
}

// timescales returns the distinct timescales in ascending order.
func (this Config) timescales() []time.Duration {
	seen := make(map[Duration]bool)
	var out []time.Duration
	for _, ts := range this.Timescales {
		if !seen[ts] {
			seen[ts] = true
			out = append(out, time.Duration(ts))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (this Config) variables() []series.Variable {
	seen := make(map[series.Variable]bool)
	var out []series.Variable
	for _, v := range this.Variables {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// rollOptions derives the rolling window in samples for one timescale.
func (this Config) rollOptions(timescale time.Duration) acf.RollOptions {
	width := int(time.Duration(this.Window) / timescale)
	return acf.RollOptions{
		Width:  width,
		Lag:    this.Lag,
		MinObs: minObs(width, this.MinFraction),
	}
}

func minObs(n int, frac float64) int {
	m := int(math.Ceil(float64(n) * frac))
	if m < 2 {
		m = 2
	}
	return m
}
