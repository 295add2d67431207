package api

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"strconv"

	"github.com/blockloop/scan"
	"github.com/gin-gonic/gin"

	"gotimescales/internal/calibration"
	"gotimescales/internal/common"
	queries "gotimescales/internal/db"
	"gotimescales/internal/formats/csv"
	"gotimescales/internal/series"
)

type datasetUpload struct {
	Name         string `json:"name"         binding:"required"`
	Description  string `json:"description"`
	RawData      string `json:"data"         binding:"required"` // base64 encoded CSV
	Lake         string `json:"lake"`                            // used when the CSV has no lake column
	TimeColumn   string `json:"time_column"`
	Comma        string `json:"comma"`
	Calibrations []int  `json:"calibrations"`
}

func (this *datasetUpload) layout() csv.Layout {
	l := csv.DefaultLayout()
	l.DefaultLake = series.Lake(this.Lake)
	if this.TimeColumn != "" {
		l.TimeColumn = this.TimeColumn
	}
	if r := []rune(this.Comma); len(r) == 1 {
		l.Comma = r[0]
	}
	return l
}

func (this *RequestHandler) GetDatasets(c *gin.Context) {
	rows, err := this.Db.Query(queries.Datasets)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	var datasets []common.Dataset
	if err := scan.RowsStrict(&datasets, rows); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, datasets)
}

func (this *RequestHandler) GetDataset(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	rows, err := this.Db.Query(queries.Dataset, id)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	var dataset common.Dataset
	if err := scan.RowStrict(&dataset, rows); err != nil {
		notFoundOr(c, http.StatusInternalServerError, err)
		return
	}
	tbl, err := common.GetDataset(this.Db, id)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dataset": dataset,
		"lakes":   tbl.Lakes(),
		"rows":    tbl.Len(),
	})
}

// PutDataset loads an uploaded CSV, converts it with the given
// calibrations and stores it.
func (this *RequestHandler) PutDataset(c *gin.Context) {
	var upload datasetUpload
	if err := c.ShouldBindJSON(&upload); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	raw, err := base64.StdEncoding.DecodeString(upload.RawData)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	tbl, err := csv.Load(bytes.NewReader(raw), upload.layout())
	if err != nil {
		abort(c, http.StatusUnprocessableEntity, err)
		return
	}

	cals, err := common.GetCalibrations(this.Db, upload.Calibrations)
	if err != nil {
		notFoundOr(c, http.StatusInternalServerError, err)
		return
	}
	if tbl, err = calibration.Apply(tbl, cals); err != nil {
		abort(c, http.StatusUnprocessableEntity, err)
		return
	}

	id, err := common.InsertDataset(this.Db, upload.Name, upload.Description, tbl)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	this.Log.Info("dataset stored", "id", id, "rows", tbl.Len())
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (this *RequestHandler) PatchDataset(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	var meta struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&meta); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if _, err := this.Db.Exec(queries.UpdateDataset, meta.Name, meta.Description, id); err != nil {
		abort(c, http.StatusInternalServerError, err)
	} else {
		c.Status(http.StatusNoContent)
	}
}

func (this *RequestHandler) DeleteDataset(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if _, err := this.Db.Exec(queries.DeleteDataset, id); err != nil {
		abort(c, http.StatusInternalServerError, err)
	} else {
		c.Status(http.StatusNoContent)
	}
}
