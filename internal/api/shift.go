package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gonum.org/v1/gonum/mat"

	"gotimescales/internal/shift"
)

const MAX_SHIFT_SIZE = 512 // largest matrix served by GetShift

func (this *RequestHandler) GetShift(c *gin.Context) {
	size, err := strconv.Atoi(c.Query("size"))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if size > MAX_SHIFT_SIZE {
		abort(c, http.StatusBadRequest, fmt.Errorf("size %d exceeds %d", size, MAX_SHIFT_SIZE))
		return
	}
	offset := shift.DEFAULT_OFFSET
	if o := c.Query("offset"); o != "" {
		if offset, err = strconv.Atoi(o); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}
	}

	m, err := shift.DiagExtend(size, offset)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	rows := make([][]float64, size)
	for i := range rows {
		rows[i] = mat.Row(nil, i, m)
	}
	c.JSON(http.StatusOK, gin.H{"size": size, "offset": offset, "matrix": rows})
}
