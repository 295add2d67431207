// Package csv loads column-mapped sensor exports into a series.Table.
package csv

import (
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gotimescales/internal/series"
)

var MISSING_TOKENS = []string{"", "na", "nan", "null"}

var DEFAULT_TIME_FORMATS = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Layout maps CSV columns to observation fields. Column names compare
// case-insensitively. With Columns nil, variable columns are detected from
// the header by variable name or alias.
type Layout struct {
	Comma       rune
	LakeColumn  string
	TimeColumn  string
	TimeFormats []string
	Columns     map[series.Variable]string
	DefaultLake series.Lake
}

func DefaultLayout() Layout {
	return Layout{
		Comma:       ',',
		LakeColumn:  "lake",
		TimeColumn:  "datetime",
		TimeFormats: DEFAULT_TIME_FORMATS,
	}
}

type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %q not found in header", e.Column)
}

type ParseError struct {
	Row    int
	Column string
	Value  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: cannot parse %s value %q", e.Row, e.Column, e.Value)
}

type columns struct {
	lake int
	time int
	vars map[series.Variable]int
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
}

func (this Layout) resolve(header []string) (columns, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[normalize(h)] = i
	}
	lookup := func(name string) (int, error) {
		if i, ok := idx[normalize(name)]; ok {
			return i, nil
		}
		return -1, &MissingColumnError{Column: name}
	}

	c := columns{lake: -1, vars: make(map[series.Variable]int)}
	var err error
	if c.time, err = lookup(this.TimeColumn); err != nil {
		return c, err
	}
	if this.LakeColumn != "" {
		c.lake, err = lookup(this.LakeColumn)
		if err != nil && this.DefaultLake == "" {
			return c, err
		}
	} else if this.DefaultLake == "" {
		return c, &MissingColumnError{Column: "lake"}
	}

	if this.Columns != nil {
		for v, name := range this.Columns {
			i, err := lookup(name)
			if err != nil {
				return c, err
			}
			c.vars[v] = i
		}
		return c, nil
	}
	for i, h := range header {
		if i == c.time || i == c.lake {
			continue
		}
		if v, err := series.ParseVariable(normalize(h)); err == nil {
			c.vars[v] = i
		}
	}
	return c, nil
}

func isMissing(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, m := range MISSING_TOKENS {
		if s == m {
			return true
		}
	}
	return false
}

func (this Layout) parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	formats := this.TimeFormats
	if len(formats) == 0 {
		formats = DEFAULT_TIME_FORMATS
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t.UTC(), true
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), true
	}
	return time.Time{}, false
}

// Load reads every row of r. Rows keep their order within a lake.
func Load(r io.Reader, layout Layout) (series.Table, error) {
	cr := stdcsv.NewReader(r)
	if layout.Comma != 0 {
		cr.Comma = layout.Comma
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return series.Table{}, &MissingColumnError{Column: layout.TimeColumn}
	}
	if err != nil {
		return series.Table{}, err
	}
	cols, err := layout.resolve(header)
	if err != nil {
		return series.Table{}, err
	}

	var obs []series.Observation
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return series.Table{}, err
		}
		field := func(i int) string {
			if i < 0 || i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		t, ok := layout.parseTime(field(cols.time))
		if !ok {
			return series.Table{}, &ParseError{Row: row, Column: layout.TimeColumn, Value: field(cols.time)}
		}
		lake := layout.DefaultLake
		if l := strings.TrimSpace(field(cols.lake)); l != "" {
			lake = series.Lake(l)
		}

		o := series.Missing(lake, t)
		for v, i := range cols.vars {
			s := field(i)
			if isMissing(s) {
				continue
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return series.Table{}, &ParseError{Row: row, Column: v.String(), Value: s}
			}
			if math.IsInf(f, 0) {
				f = math.NaN()
			}
			o = v.With(o, f)
		}
		obs = append(obs, o)
	}
	return series.NewTable(obs), nil
}

func LoadFile(path string, layout Layout) (series.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return series.Table{}, err
	}
	defer f.Close()
	return Load(f, layout)
}
