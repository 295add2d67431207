package main

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotimescales/internal/common"
	"gotimescales/internal/logger"
	"gotimescales/internal/series"
)

const upload = "datetime,chl,pc\n" +
	"2016-07-01T00:00:00Z,3.1,40\n" +
	"2016-07-01T00:15:00Z,3.3,42\n" +
	"2016-07-01T00:30:00Z,NA,41\n"

func setup(t *testing.T) *sql.DB {
	db, err := common.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, common.InsertStation(db, &common.Station{Id: "0102030405060708", Lake: "Tuesday"}))
	return db
}

func send(t *testing.T, db *sql.DB, station string, name string, data []byte) []byte {
	server, client := net.Pipe()
	go handleRequest(server, db, logger.Nop())
	defer client.Close()

	var h header
	id, err := hex.DecodeString(station)
	require.NoError(t, err)
	copy(h.StationId[:], id)
	copy(h.Name[:], name)
	h.Size = uint64(len(data))
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &h))
	require.Equal(t, HEADER_SIZE, buf.Len())
	_, err = client.Write(buf.Bytes())
	require.NoError(t, err)

	var statuses []byte
	status := make([]byte, 1)
	if _, err := client.Read(status); err != nil {
		return statuses
	}
	statuses = append(statuses, status[0])
	if status[0] != STATUS_HEADER_OK {
		return statuses
	}
	_, err = client.Write(data)
	require.NoError(t, err)
	if _, err := client.Read(status); err == nil {
		statuses = append(statuses, status[0])
	}
	return statuses
}

func TestUpload(t *testing.T) {
	db := setup(t)
	assert.Equal(t, []byte{STATUS_HEADER_OK, STATUS_SUCCESS}, send(t, db, "0102030405060708", "00042.CSV", []byte(upload)))

	tbl, err := common.GetDataset(db, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []series.Lake{"Tuesday"}, tbl.Lakes())
}

func TestUploadRejected(t *testing.T) {
	db := setup(t)
	assert.Equal(t, []byte{ERR_VAL}, send(t, db, "0102030405060708", "00042.SST", []byte(upload)))
	assert.Equal(t, []byte{STATUS_HEADER_OK, ERR_VAL}, send(t, db, "ffffffffffffffff", "00042.CSV", []byte(upload)))
	assert.Equal(t, []byte{STATUS_HEADER_OK, ERR_VAL}, send(t, db, "0102030405060708", "00043.CSV", []byte("when,chl\n")))

	_, err := common.GetDataset(db, 1)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
