package common

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/blockloop/scan"
	"github.com/ugorji/go/codec"
	_ "modernc.org/sqlite"

	"gotimescales/formats/tsa"
	"gotimescales/internal/calibration"
	queries "gotimescales/internal/db"
	"gotimescales/internal/logger"
	"gotimescales/internal/series"
)

// Notifier tells downstream consumers that an analysis was stored.
type Notifier interface {
	Notify(id string) error
}

type NopNotifier struct{}

func (NopNotifier) Notify(string) error { return nil }

type Station struct {
	Id                       string      `db:"id"                         json:"id"   binding:"required"`
	Lake                     series.Lake `db:"lake"                       json:"lake" binding:"required"`
	ChlorophyllCalibrationId *int        `db:"chlorophyll_calibration_id" json:"chlorophyll_calibration,omitempty"`
	PhycocyaninCalibrationId *int        `db:"phycocyanin_calibration_id" json:"phycocyanin_calibration,omitempty"`
	TemperatureCalibrationId *int        `db:"temperature_calibration_id" json:"temperature_calibration,omitempty"`
}

func (this *Station) CalibrationIds() []int {
	var ids []int
	for _, id := range []*int{this.ChlorophyllCalibrationId, this.PhycocyaninCalibrationId, this.TemperatureCalibrationId} {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	return ids
}

type Dataset struct {
	Id          int    `db:"id"          json:"id"`
	Name        string `db:"name"        json:"name"        binding:"required"`
	Timestamp   int64  `db:"timestamp"   json:"timestamp"`
	Description string `db:"description" json:"description"`
}

// OpenDB opens the SQLite database at path and creates missing tables.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if strings.Contains(path, ":memory:") {
		// Every connection would get its own empty in-memory database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(queries.Schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func EncodeTable(tbl series.Table) ([]byte, error) {
	var data []byte
	var h codec.MsgpackHandle
	enc := codec.NewEncoderBytes(&data, &h)
	if err := enc.Encode(tbl.Observations()); err != nil {
		return nil, err
	}
	return data, nil
}

func DecodeTable(data []byte) (series.Table, error) {
	var obs []series.Observation
	var h codec.MsgpackHandle
	dec := codec.NewDecoderBytes(data, &h)
	if err := dec.Decode(&obs); err != nil {
		return series.Table{}, err
	}
	return series.NewTable(obs), nil
}

func InsertDataset(db *sql.DB, name, description string, tbl series.Table) (int, error) {
	data, err := EncodeTable(tbl)
	if err != nil {
		return 0, err
	}
	timestamp := time.Now().Unix()
	if obs := tbl.Observations(); len(obs) > 0 {
		timestamp = obs[0].Time.Unix()
		for _, o := range obs {
			if o.Time.Unix() < timestamp {
				timestamp = o.Time.Unix()
			}
		}
	}

	var lastInsertedId int
	if err := db.QueryRow(queries.InsertDataset, name, timestamp, description, data).Scan(&lastInsertedId); err != nil {
		return 0, err
	}
	return lastInsertedId, nil
}

func GetDataset(db *sql.DB, id int) (series.Table, error) {
	var data []byte
	if err := db.QueryRow(queries.DatasetData, id).Scan(&data); err != nil {
		return series.Table{}, err
	}
	return DecodeTable(data)
}

func GetCalibrationMethod(db *sql.DB, id int) (*calibration.Method, error) {
	rows, err := db.Query(queries.CalibrationMethod, id)
	if err != nil {
		return nil, err
	}
	var method calibration.Method
	if err := scan.RowStrict(&method, rows); err != nil {
		return nil, err
	}
	if err := method.ProcessRawData(); err != nil {
		return nil, err
	}
	return &method, nil
}

// GetCalibration loads a calibration with its method and prepares it.
func GetCalibration(db *sql.DB, id int) (*calibration.Calibration, error) {
	rows, err := db.Query(queries.Calibration, id)
	if err != nil {
		return nil, err
	}
	var cal calibration.Calibration
	if err := scan.RowStrict(&cal, rows); err != nil {
		return nil, err
	}
	if err := cal.ProcessRawInputs(); err != nil {
		return nil, err
	}
	if cal.Method, err = GetCalibrationMethod(db, cal.MethodId); err != nil {
		return nil, fmt.Errorf("calibration %d: %w", id, err)
	}
	if err := cal.Prepare(); err != nil {
		return nil, err
	}
	return &cal, nil
}

func GetCalibrations(db *sql.DB, ids []int) ([]*calibration.Calibration, error) {
	var cals []*calibration.Calibration
	for _, id := range ids {
		cal, err := GetCalibration(db, id)
		if err != nil {
			return nil, err
		}
		cals = append(cals, cal)
	}
	return cals, nil
}

func GetStation(db *sql.DB, id string) (*Station, error) {
	rows, err := db.Query(queries.Station, id)
	if err != nil {
		return nil, err
	}
	var station Station
	if err := scan.RowStrict(&station, rows); err != nil {
		return nil, err
	}
	return &station, nil
}

func InsertStation(db *sql.DB, station *Station) error {
	cols := []string{"id", "lake", "chlorophyll_calibration_id", "phycocyanin_calibration_id", "temperature_calibration_id"}
	vals, err := scan.Values(cols, station)
	if err != nil {
		return err
	}
	_, err = db.Exec(queries.InsertStation, vals...)
	return err
}

// InsertAnalysis stores a and notifies n. A failed notification is only
// logged.
func InsertAnalysis(db *sql.DB, a *tsa.Analysis, n Notifier, log *logger.Logger) error {
	data, err := tsa.Encode(a)
	if err != nil {
		return err
	}
	var dataset interface{}
	if a.Dataset != 0 {
		dataset = a.Dataset
	}
	id := a.Id.String()
	if _, err := db.Exec(queries.InsertAnalysis, id, dataset, a.Name, a.Timestamp, string(a.Config), data); err != nil {
		return err
	}

	if n != nil {
		if err := n.Notify(id); err != nil {
			log.Warn("could not send analysis notification", "id", id, "error", err)
		}
	}
	return nil
}

func GetAnalysis(db *sql.DB, id string) (*tsa.Analysis, error) {
	var name string
	var data []byte
	if err := db.QueryRow(queries.AnalysisData, id).Scan(&name, &data); err != nil {
		return nil, err
	}
	return tsa.Decode(data)
}

func LoadApiTokens(db *sql.DB) ([]string, error) {
	rows, err := db.Query(queries.Tokens)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
