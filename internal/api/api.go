// Package api implements the HTTP API of the analysis server.
package api

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"gotimescales/internal/common"
	"gotimescales/internal/logger"
)

type RequestHandler struct {
	Db       *sql.DB
	Notifier common.Notifier
	Log      *logger.Logger
}

func contains(list []string, e string) bool {
	for _, s := range list {
		if s == e {
			return true
		}
	}
	return false
}

func (this *RequestHandler) TokenAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokens, err := common.LoadApiTokens(this.Db)
		if err != nil {
			this.Log.Error("could not load API tokens", "error", err)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := c.GetHeader("X-Token")
		if token == "" || !contains(tokens, token) {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, code int, err error) {
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

// notFoundOr maps sql.ErrNoRows to 404 and everything else to code.
func notFoundOr(c *gin.Context, code int, err error) {
	if err == sql.ErrNoRows {
		abort(c, http.StatusNotFound, err)
	} else {
		abort(c, code, err)
	}
}

func NewRouter(rh *RequestHandler) *gin.Engine {
	if rh.Log == nil {
		rh.Log = logger.Nop()
	}
	if rh.Notifier == nil {
		rh.Notifier = common.NopNotifier{}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.SetTrustedProxies(nil)
	auth := rh.TokenAuthMiddleware()

	router.GET("/shift", rh.GetShift)

	router.GET("/calibrationmethods", rh.GetCalibrationMethods)
	router.GET("/calibrationmethod/:id", rh.GetCalibrationMethod)
	router.PUT("/calibrationmethod", auth, rh.PutCalibrationMethod)
	router.DELETE("/calibrationmethod/:id", auth, rh.DeleteCalibrationMethod)

	router.GET("/calibrations", rh.GetCalibrations)
	router.GET("/calibration/:id", rh.GetCalibration)
	router.PUT("/calibration", auth, rh.PutCalibration)
	router.DELETE("/calibration/:id", auth, rh.DeleteCalibration)

	router.GET("/stations", rh.GetStations)
	router.GET("/station/:id", rh.GetStation)
	router.PUT("/station", auth, rh.PutStation)
	router.DELETE("/station/:id", auth, rh.DeleteStation)

	router.GET("/datasets", rh.GetDatasets)
	router.GET("/dataset/:id", rh.GetDataset)
	router.PUT("/dataset", auth, rh.PutDataset)
	router.PATCH("/dataset/:id", auth, rh.PatchDataset)
	router.DELETE("/dataset/:id", auth, rh.DeleteDataset)

	router.GET("/analyses", rh.GetAnalyses)
	router.GET("/analysis/:id", rh.GetAnalysis)
	router.GET("/analysis/:id/heatmap", rh.GetHeatMap)
	router.GET("/analysisdata/:id", rh.GetAnalysisData)
	router.PUT("/analysis", auth, rh.PutAnalysis)
	router.PUT("/analysis/processed", auth, rh.PutProcessedAnalysis)
	router.DELETE("/analysis/:id", auth, rh.DeleteAnalysis)

	return router
}
