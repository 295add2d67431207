package csv

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotimescales/internal/series"
)

const export = `Lake,DateTime,Chl,BGAPC,wtemp
Peter,2015-06-01 00:10:00,1.5,NA,20.1
Paul,2015-06-01 00:00:00,2.5,100,
Peter,2015-06-01 00:00:00,1.0,nan,20.0
`

func TestLoadDetectsColumns(t *testing.T) {
	tbl, err := Load(strings.NewReader(export), DefaultLayout())
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []series.Lake{"Paul", "Peter"}, tbl.Lakes())

	peter := tbl.Lake("Peter").Observations()
	require.Len(t, peter, 2)
	assert.Equal(t, time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC), peter[0].Time)
	assert.Equal(t, 1.0, peter[0].Chlorophyll)
	assert.True(t, math.IsNaN(peter[0].Phycocyanin))
	assert.Equal(t, 20.1, peter[1].Temperature)

	paul := tbl.Lake("Paul").Observations()
	assert.Equal(t, 100.0, paul[0].Phycocyanin)
	assert.True(t, math.IsNaN(paul[0].Temperature))
}

func TestLoadExplicitColumns(t *testing.T) {
	data := "time;fluor\n1433116800;4.5\n1433117700;5.5\n"
	layout := Layout{
		Comma:       ';',
		TimeColumn:  "time",
		Columns:     map[series.Variable]string{series.Chlorophyll: "fluor"},
		DefaultLake: "Tuesday",
	}
	tbl, err := Load(strings.NewReader(data), layout)
	require.NoError(t, err)
	s := tbl.Series("Tuesday", series.Chlorophyll)
	assert.Equal(t, []float64{4.5, 5.5}, s.Values())
	first, last := s.Span()
	assert.Equal(t, 15*time.Minute, last.Sub(first))
	assert.Equal(t, 0, tbl.Series("Tuesday", series.Temperature).NonMissing())
}

func TestLoadMissingColumn(t *testing.T) {
	var merr *MissingColumnError

	_, err := Load(strings.NewReader("lake,when,chl\n"), DefaultLayout())
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "datetime", merr.Column)

	_, err = Load(strings.NewReader("datetime,chl\n"), DefaultLayout())
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "lake", merr.Column)

	layout := DefaultLayout()
	layout.Columns = map[series.Variable]string{series.Temperature: "watertemp"}
	_, err = Load(strings.NewReader("lake,datetime,temp\n"), layout)
	require.ErrorAs(t, err, &merr)

	_, err = Load(strings.NewReader(""), DefaultLayout())
	assert.ErrorAs(t, err, &merr)
}

func TestLoadParseErrors(t *testing.T) {
	var perr *ParseError

	_, err := Load(strings.NewReader("lake,datetime,chl\nPeter,yesterday,1\n"), DefaultLayout())
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Row)
	assert.Equal(t, "yesterday", perr.Value)

	_, err = Load(strings.NewReader("lake,datetime,chl\nPeter,2015-06-01,1\nPeter,2015-06-02,lots\n"), DefaultLayout())
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Row)
	assert.Equal(t, "chlorophyll", perr.Column)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "00001.CSV")
	require.NoError(t, os.WriteFile(path, []byte(export), 0644))
	tbl, err := LoadFile(path, DefaultLayout())
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "nope.csv"), DefaultLayout())
	assert.Error(t, err)
}
