// Package calibration converts raw sensor readings (e.g. fluorescence in
// RFU) to physical units with user supplied expressions.
package calibration

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"

	"gotimescales/internal/series"
)

type methodParams struct {
	Inputs        []string          `codec:"," json:"inputs"        binding:"required"`
	Intermediates map[string]string `codec:"," json:"intermediates" binding:"required"`
	Expression    string            `codec:"," json:"expression"    binding:"required"`
}

type Method struct {
	Id          int    `codec:"-" db:"id"          json:"id"`
	Name        string `codec:"," db:"name"        json:"name"        binding:"required"`
	Description string `codec:"," db:"description" json:"description"`
	RawData     string `codec:"-" db:"data"        json:"-"`
	methodParams
	program *vm.Program
}

type Calibration struct {
	Id        int                `codec:"-" db:"id"        json:"id"`
	Name      string             `codec:"," db:"name"      json:"name"      binding:"required"`
	Variable  series.Variable    `codec:"," db:"-"         json:"variable"`
	RawVar    string             `codec:"-" db:"variable"  json:"-"`
	MethodId  int                `codec:"," db:"method_id" json:"method_id" binding:"required"`
	RawInputs string             `codec:"-" db:"inputs"    json:"-"`
	Inputs    map[string]float64 `codec:","                json:"inputs"    binding:"required"`
	Method    *Method            `codec:"-"                json:"method,omitempty"`
	env       map[string]interface{}
}

type NotPreparedError struct {
	Name string
}

func (e *NotPreparedError) Error() string {
	return fmt.Sprintf("calibration %q is not prepared", e.Name)
}

var stdenv = map[string]interface{}{
	"pi":     math.Pi,
	"sin":    math.Sin,
	"cos":    math.Cos,
	"tan":    math.Tan,
	"asin":   math.Asin,
	"acos":   math.Acos,
	"atan":   math.Atan,
	"sqrt":   math.Sqrt,
	"log":    math.Log,
	"exp":    math.Exp,
	"sample": 0.0,
}

func newEnv() map[string]interface{} {
	env := make(map[string]interface{}, len(stdenv))
	for k, v := range stdenv {
		env[k] = v
	}
	return env
}

// NewMethod builds a method from its parts without going through RawData.
func NewMethod(name string, inputs []string, intermediates map[string]string, expression string) *Method {
	return &Method{
		Name: name,
		methodParams: methodParams{
			Inputs:        inputs,
			Intermediates: intermediates,
			Expression:    expression,
		},
	}
}

func (this *Method) calculateIntermediates(env map[string]interface{}) error {
	for k, v := range this.Intermediates {
		p, err := expr.Compile(v, expr.Env(env))
		if err != nil {
			return err
		}

		out, err := expr.Run(p, env)
		if err != nil {
			return err
		}

		f, ok := toFloat(out)
		if !ok {
			return fmt.Errorf("intermediate %q is not numeric", k)
		}
		env[k] = f
	}

	return nil
}

func (this *Method) ProcessRawData() error {
	return json.Unmarshal([]byte(this.RawData), &this.methodParams)
}

func (this *Method) DumpRawData() error {
	rd, err := json.Marshal(this.methodParams)
	if err != nil {
		return err
	}

	this.RawData = string(rd)
	return nil
}

// Prepare compiles the expression against dummy inputs so that syntax
// errors surface before any data is converted.
func (this *Method) Prepare() error {
	env := newEnv()
	for _, input := range this.Inputs {
		env[input] = 0.0
	}

	if err := this.calculateIntermediates(env); err != nil {
		return err
	}

	program, err := expr.Compile(this.Expression, expr.Env(env))
	if err != nil {
		return err
	}
	this.program = program

	return nil
}

func (this *Calibration) ProcessRawInputs() error {
	if err := json.Unmarshal([]byte(this.RawInputs), &this.Inputs); err != nil {
		return err
	}
	if this.RawVar != "" {
		v, err := series.ParseVariable(this.RawVar)
		if err != nil {
			return err
		}
		this.Variable = v
	}
	return nil
}

func (this *Calibration) DumpRawInputs() error {
	rd, err := json.Marshal(this.Inputs)
	if err != nil {
		return err
	}

	this.RawInputs = string(rd)
	this.RawVar = this.Variable.String()
	return nil
}

func (this *Calibration) Prepare() error {
	if this.Method == nil {
		return &NotPreparedError{Name: this.Name}
	}
	if err := this.Method.Prepare(); err != nil {
		return err
	}

	this.env = newEnv()
	for k, v := range this.Inputs {
		this.env[k] = v
	}

	return this.Method.calculateIntermediates(this.env)
}

// Evaluate converts one raw sample. Missing samples stay missing.
func (this *Calibration) Evaluate(sample float64) (float64, error) {
	if this.env == nil || this.Method == nil || this.Method.program == nil {
		return math.NaN(), &NotPreparedError{Name: this.Name}
	}
	if math.IsNaN(sample) {
		return math.NaN(), nil
	}
	this.env["sample"] = sample
	out, err := expr.Run(this.Method.program, this.env)
	if err != nil {
		return math.NaN(), err
	}

	f, ok := toFloat(out)
	if !ok {
		return math.NaN(), fmt.Errorf("calibration %q did not yield a number", this.Name)
	}
	return f, nil
}

// Apply returns a new table with every prepared calibration applied to its
// variable. Calibrations are evaluated sequentially because Evaluate
// reuses the expression environment.
func Apply(tbl series.Table, cals []*Calibration) (series.Table, error) {
	if len(cals) == 0 {
		return tbl, nil
	}
	var applyErr error
	out := tbl.Map(func(o series.Observation) series.Observation {
		for _, c := range cals {
			if applyErr != nil {
				return o
			}
			v, err := c.Evaluate(c.Variable.Value(o))
			if err != nil {
				applyErr = fmt.Errorf("%s: %w", c.Name, err)
				return o
			}
			o = c.Variable.With(o, v)
		}
		return o
	})
	if applyErr != nil {
		return series.Table{}, applyErr
	}
	return out, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
