package api

import (
	"net/http"
	"strconv"

	"github.com/blockloop/scan"
	"github.com/gin-gonic/gin"

	"gotimescales/internal/calibration"
	"gotimescales/internal/common"
	queries "gotimescales/internal/db"
)

func (this *RequestHandler) GetCalibrationMethods(c *gin.Context) {
	rows, err := this.Db.Query(queries.CalibrationMethods)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	var cms []calibration.Method
	if err := scan.RowsStrict(&cms, rows); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	for idx := range cms {
		if err := cms[idx].ProcessRawData(); err != nil {
			this.Log.Warn("malformed calibration method", "id", cms[idx].Id, "error", err)
		}
	}
	c.JSON(http.StatusOK, cms)
}

func (this *RequestHandler) GetCalibrationMethod(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	cm, err := common.GetCalibrationMethod(this.Db, id)
	if err != nil {
		notFoundOr(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, cm)
}

func (this *RequestHandler) PutCalibrationMethod(c *gin.Context) {
	var cm calibration.Method
	if err := c.ShouldBindJSON(&cm); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if err := cm.Prepare(); err != nil {
		abort(c, http.StatusUnprocessableEntity, err)
		return
	}
	if err := cm.DumpRawData(); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}

	vals, _ := scan.Values([]string{"name", "description", "data"}, &cm)
	var lastInsertedId int
	if err := this.Db.QueryRow(queries.InsertCalibrationMethod, vals...).Scan(&lastInsertedId); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": lastInsertedId})
}

func (this *RequestHandler) DeleteCalibrationMethod(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if _, err := this.Db.Exec(queries.DeleteCalibrationMethod, id); err != nil {
		abort(c, http.StatusInternalServerError, err)
	} else {
		c.Status(http.StatusNoContent)
	}
}

func (this *RequestHandler) GetCalibrations(c *gin.Context) {
	rows, err := this.Db.Query(queries.Calibrations)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	var cals []calibration.Calibration
	if err := scan.RowsStrict(&cals, rows); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	for idx := range cals {
		if err := cals[idx].ProcessRawInputs(); err != nil {
			this.Log.Warn("malformed calibration", "id", cals[idx].Id, "error", err)
		}
	}
	c.JSON(http.StatusOK, cals)
}

func (this *RequestHandler) GetCalibration(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	cal, err := common.GetCalibration(this.Db, id)
	if err != nil {
		notFoundOr(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, cal)
}

func (this *RequestHandler) PutCalibration(c *gin.Context) {
	var cal calibration.Calibration
	if err := c.ShouldBindJSON(&cal); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	cm, err := common.GetCalibrationMethod(this.Db, cal.MethodId)
	if err != nil {
		notFoundOr(c, http.StatusInternalServerError, err)
		return
	}
	cal.Method = cm
	if err := cal.Prepare(); err != nil {
		abort(c, http.StatusUnprocessableEntity, err)
		return
	}
	if err := cal.DumpRawInputs(); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}

	vals, _ := scan.Values([]string{"name", "variable", "method_id", "inputs"}, &cal)
	var lastInsertedId int
	if err := this.Db.QueryRow(queries.InsertCalibration, vals...).Scan(&lastInsertedId); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": lastInsertedId})
}

func (this *RequestHandler) DeleteCalibration(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if _, err := this.Db.Exec(queries.DeleteCalibration, id); err != nil {
		abort(c, http.StatusInternalServerError, err)
	} else {
		c.Status(http.StatusNoContent)
	}
}
