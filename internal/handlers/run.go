package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d5h-foss/hwtest/internal/service"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK      = "ok"
	statusStarted = "started"
	statusAborted = "aborted"

	errStartRun  = "failed to start test run"
	errAbortRun  = "failed to abort test run"
	errGetStatus = "failed to load run status"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Start the configured test run
// @Tags         run
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, run"
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/run/start [post]
// @Security     BearerAuth
func (h *Handler) startRun(c *gin.Context) {
	ctx := c.Request.Context()
	status, err := h.services.RunControl.Start(ctx)
	if err != nil {
		if errors.Is(err, service.ErrRunActive) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errStartRun, "run_start_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusStarted, "run": status})
}

// @Summary      Abort the active test run
// @Tags         run
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/run/abort [post]
// @Security     BearerAuth
func (h *Handler) abortRun(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.RunControl.Abort(ctx); err != nil {
		if errors.Is(err, service.ErrNoRun) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errAbortRun, "run_abort_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusAborted})
}

// @Summary      Get run status
// @Tags         run
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/run/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	ctx := c.Request.Context()
	status, err := h.services.Monitoring.Status(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetStatus, "run_get_status_failed", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// @Summary      Latest background sample
// @Tags         run
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/telemetry/latest [get]
// @Security     BearerAuth
func (h *Handler) latestSample(c *gin.Context) {
	sample, ok := h.services.Monitoring.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no sample published yet"})
		return
	}
	c.JSON(http.StatusOK, sample)
}
