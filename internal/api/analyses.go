package api

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/blockloop/scan"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gotimescales/formats/tsa"
	"gotimescales/internal/common"
	queries "gotimescales/internal/db"
	"gotimescales/internal/pipeline"
	"gotimescales/internal/series"
)

// rawJSON is a JSON document stored as TEXT.
type rawJSON string

func (this rawJSON) MarshalJSON() ([]byte, error) {
	if this == "" {
		return []byte("null"), nil
	}
	return []byte(this), nil
}

type analysis struct {
	Id        string  `db:"id"         json:"id"`
	Dataset   *int    `db:"dataset_id" json:"dataset_id"`
	Name      string  `db:"name"       json:"name"`
	Timestamp int64   `db:"timestamp"  json:"timestamp"`
	Config    rawJSON `db:"config"     json:"config"`
}

func (this *RequestHandler) GetAnalyses(c *gin.Context) {
	rows, err := this.Db.Query(queries.Analyses)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	var analyses []analysis
	if err := scan.RowsStrict(&analyses, rows); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, analyses)
}

func parseId(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return "", false
	}
	return id.String(), true
}

func (this *RequestHandler) GetAnalysis(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	a, err := common.GetAnalysis(this.Db, id)
	if err != nil {
		notFoundOr(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// GetHeatMap returns the heat map grid of one lake and variable.
func (this *RequestHandler) GetHeatMap(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	v, err := series.ParseVariable(c.Query("variable"))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	a, err := common.GetAnalysis(this.Db, id)
	if err != nil {
		notFoundOr(c, http.StatusInternalServerError, err)
		return
	}
	g := a.HeatMap(series.Lake(c.Query("lake")), v)
	if g == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no heat map for " + c.Query("lake") + "/" + v.String()})
		return
	}
	c.JSON(http.StatusOK, g)
}

func (this *RequestHandler) GetAnalysisData(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	var name string
	var data []byte
	if err := this.Db.QueryRow(queries.AnalysisData, id).Scan(&name, &data); err != nil {
		notFoundOr(c, http.StatusInternalServerError, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(name+".TSA"))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// PutAnalysis runs the pipeline on a stored dataset.
func (this *RequestHandler) PutAnalysis(c *gin.Context) {
	var req struct {
		Name    string          `json:"name"`
		Dataset int             `json:"dataset_id" binding:"required"`
		Config  json.RawMessage `json:"config"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	cfg, err := pipeline.ParseConfig(req.Config)
	if err != nil {
		abort(c, http.StatusUnprocessableEntity, err)
		return
	}
	if req.Name != "" {
		cfg.Name = req.Name
	}

	tbl, err := common.GetDataset(this.Db, req.Dataset)
	if err != nil {
		notFoundOr(c, http.StatusInternalServerError, err)
		return
	}
	a, err := pipeline.Run(c.Request.Context(), tbl, cfg, this.Log.With("dataset", req.Dataset))
	if err != nil {
		abort(c, http.StatusUnprocessableEntity, err)
		return
	}
	a.Dataset = req.Dataset

	if err := common.InsertAnalysis(this.Db, a, this.Notifier, this.Log); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": a.Id.String()})
}

// PutProcessedAnalysis stores an analysis computed elsewhere, sent as
// base64 encoded TSA data.
func (this *RequestHandler) PutProcessedAnalysis(c *gin.Context) {
	var req struct {
		Name    string `json:"name"`
		RawData string `json:"data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.RawData)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	a, err := tsa.Decode(data)
	if err != nil {
		abort(c, http.StatusUnprocessableEntity, err)
		return
	}
	if req.Name != "" {
		a.Name = req.Name
	}
	// Analyses computed locally refer to datasets this server may not have.
	if a.Dataset != 0 {
		if err := this.Db.QueryRow(queries.DatasetData, a.Dataset).Scan(new([]byte)); err == sql.ErrNoRows {
			a.Dataset = 0
		}
	}

	if err := common.InsertAnalysis(this.Db, a, this.Notifier, this.Log); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": a.Id.String()})
}

func (this *RequestHandler) DeleteAnalysis(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	if _, err := this.Db.Exec(queries.DeleteAnalysis, id); err != nil {
		abort(c, http.StatusInternalServerError, err)
	} else {
		c.Status(http.StatusNoContent)
	}
}
