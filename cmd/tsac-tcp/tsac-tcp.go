package main

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"io"
	"net"
	"regexp"

	"github.com/jessevdk/go-flags"

	"gotimescales/internal/calibration"
	"gotimescales/internal/common"
	"gotimescales/internal/formats/csv"
	"gotimescales/internal/logger"
)

const (
	STATUS_HEADER_OK = 4
	STATUS_SUCCESS   = 6
	ERR_VAL          = 0xfa // ERR_VAL from LwIP
	ERR_CLSD         = 0xf1 // ERR_CLSD from LwIP

	HEADER_SIZE = 25
	MAX_SIZE    = 32 * 1024 * 1024
)

var namePattern = regexp.MustCompile(`^[0-9]{5}\.CSV$`)

type header struct {
	StationId [8]byte
	Size      uint64
	Name      [9]byte
}

// putDataset converts a buoy upload with the station's calibrations and
// stores it as a dataset of the station's lake.
func putDataset(db *sql.DB, stationId, name string, data []byte) (int, error) {
	station, err := common.GetStation(db, stationId)
	if err != nil {
		return 0, err
	}
	cals, err := common.GetCalibrations(db, station.CalibrationIds())
	if err != nil {
		return 0, err
	}

	layout := csv.DefaultLayout()
	layout.DefaultLake = station.Lake
	tbl, err := csv.Load(bytes.NewReader(data), layout)
	if err != nil {
		return 0, err
	}
	if tbl, err = calibration.Apply(tbl, cals); err != nil {
		return 0, err
	}
	return common.InsertDataset(db, string(station.Lake)+"/"+name, "uploaded by station "+stationId, tbl)
}

func handleRequest(conn net.Conn, db *sql.DB, log *logger.Logger) {
	defer conn.Close()

	bufHeader := make([]byte, HEADER_SIZE)
	if _, err := io.ReadFull(conn, bufHeader); err != nil {
		log.Error("could not fetch header", "remote", conn.RemoteAddr().String(), "error", err)
		conn.Write([]byte{ERR_CLSD})
		return
	}

	var header header
	if err := binary.Read(bytes.NewReader(bufHeader), binary.LittleEndian, &header); err != nil {
		log.Error("invalid header", "error", err)
		conn.Write([]byte{ERR_VAL})
		return
	}
	if header.Size > MAX_SIZE {
		log.Error("size exceeds maximum", "size", header.Size)
		conn.Write([]byte{ERR_VAL})
		return
	}
	name := string(header.Name[:])
	if !namePattern.MatchString(name) {
		log.Error("wrong name format", "name", name)
		conn.Write([]byte{ERR_VAL})
		return
	}
	conn.Write([]byte{STATUS_HEADER_OK})

	data := make([]byte, header.Size)
	if _, err := io.ReadFull(conn, data); err != nil {
		log.Error("could not fetch data", "name", name, "error", err)
		conn.Write([]byte{ERR_CLSD})
		return
	}

	station := hex.EncodeToString(header.StationId[:])
	id, err := putDataset(db, station, name, data)
	if err != nil {
		log.Error("upload could not be imported", "station", station, "name", name, "error", err)
		conn.Write([]byte{ERR_VAL})
		return
	}
	conn.Write([]byte{STATUS_SUCCESS})
	log.Info("upload imported", "station", station, "name", name, "dataset", id)
}

func main() {
	var opts struct {
		DatabaseFile string `short:"d" long:"database" env:"TSAC_DATABASE" description:"SQLite3 database file path" required:"true"`
		Host         string `short:"h" long:"host" env:"TSAC_TCP_HOST" description:"Host to bind on" default:"0.0.0.0"`
		Port         string `short:"p" long:"port" env:"TSAC_TCP_PORT" description:"Port to bind on" default:"557"`
		LogMode      string `short:"l" long:"log" env:"TSAC_LOG" description:"Log mode (prod or dev)" default:"prod"`
	}
	_, err := flags.Parse(&opts)
	if err != nil {
		return
	}

	log, err := logger.New(opts.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := common.OpenDB(opts.DatabaseFile)
	if err != nil {
		log.Fatal("could not open database", "path", opts.DatabaseFile, "error", err)
	}
	defer db.Close()

	l, err := net.Listen("tcp", opts.Host+":"+opts.Port)
	if err != nil {
		log.Fatal("could not listen", "error", err)
	}
	defer l.Close()

	for {
		conn, err := l.Accept()
		if err != nil {
			log.Error("accept failed", "error", err)
			continue
		}
		go handleRequest(conn, db, log)
	}
}
