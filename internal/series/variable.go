package series

import (
	"fmt"
	"strings"
)

type Variable uint8

const (
	Chlorophyll Variable = iota
	Phycocyanin
	Temperature
)

// Variables lists every recognized variable in canonical order.
var Variables = []Variable{Chlorophyll, Phycocyanin, Temperature}

type variableInfo struct {
	name    string
	aliases []string
	unit    string
	value   func(o Observation) float64
	with    func(o Observation, v float64) Observation
}

var variables = [...]variableInfo{
	Chlorophyll: {
		name:    "chlorophyll",
		aliases: []string{"chl", "chla", "chl_a"},
		unit:    "ug/L",
		value:   func(o Observation) float64 { return o.Chlorophyll },
		with:    func(o Observation, v float64) Observation { o.Chlorophyll = v; return o },
	},
	Phycocyanin: {
		name:    "phycocyanin",
		aliases: []string{"pc", "bga", "bgapc"},
		unit:    "cells/mL",
		value:   func(o Observation) float64 { return o.Phycocyanin },
		with:    func(o Observation, v float64) Observation { o.Phycocyanin = v; return o },
	},
	Temperature: {
		name:    "temperature",
		aliases: []string{"temp", "wtemp"},
		unit:    "degC",
		value:   func(o Observation) float64 { return o.Temperature },
		with:    func(o Observation, v float64) Observation { o.Temperature = v; return o },
	},
}

type UnknownVariableError struct {
	Name string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("unknown variable %q", e.Name)
}

func (this Variable) valid() bool {
	return int(this) < len(variables)
}

func (this Variable) String() string {
	if !this.valid() {
		return fmt.Sprintf("Variable(%d)", uint8(this))
	}
	return variables[this].name
}

func (this Variable) Unit() string {
	if !this.valid() {
		return ""
	}
	return variables[this].unit
}

// Value returns the reading of this variable in o.
func (this Variable) Value(o Observation) float64 {
	return variables[this].value(o)
}

// With returns a copy of o with this variable set to v.
func (this Variable) With(o Observation, v float64) Observation {
	return variables[this].with(o, v)
}

// ParseVariable accepts the canonical name or a common column alias,
// case-insensitively.
func ParseVariable(name string) (Variable, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for v, info := range variables {
		if n == info.name {
			return Variable(v), nil
		}
		for _, a := range info.aliases {
			if n == a {
				return Variable(v), nil
			}
		}
	}
	return 0, &UnknownVariableError{Name: name}
}

func (this Variable) MarshalText() ([]byte, error) {
	if !this.valid() {
		return nil, &UnknownVariableError{Name: this.String()}
	}
	return []byte(this.String()), nil
}

func (this *Variable) UnmarshalText(text []byte) error {
	v, err := ParseVariable(string(text))
	if err != nil {
		return err
	}
	*this = v
	return nil
}
