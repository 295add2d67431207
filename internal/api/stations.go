package api

import (
	"net/http"

	"github.com/blockloop/scan"
	"github.com/gin-gonic/gin"

	"gotimescales/internal/common"
	queries "gotimescales/internal/db"
)

func (this *RequestHandler) GetStations(c *gin.Context) {
	rows, err := this.Db.Query(queries.Stations)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	var stations []common.Station
	if err := scan.RowsStrict(&stations, rows); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, stations)
}

func (this *RequestHandler) GetStation(c *gin.Context) {
	station, err := common.GetStation(this.Db, c.Param("id"))
	if err != nil {
		notFoundOr(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, station)
}

// PutStation registers a buoy, replacing an earlier registration of the
// same id.
func (this *RequestHandler) PutStation(c *gin.Context) {
	var station common.Station
	if err := c.ShouldBindJSON(&station); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if _, err := common.GetCalibrations(this.Db, station.CalibrationIds()); err != nil {
		notFoundOr(c, http.StatusUnprocessableEntity, err)
		return
	}
	if err := common.InsertStation(this.Db, &station); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": station.Id})
}

func (this *RequestHandler) DeleteStation(c *gin.Context) {
	if _, err := this.Db.Exec(queries.DeleteStation, c.Param("id")); err != nil {
		abort(c, http.StatusInternalServerError, err)
	} else {
		c.Status(http.StatusNoContent)
	}
}
