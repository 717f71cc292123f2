package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/htmlrender/engine"
	"github.com/use-agent/htmlrender/models"
)

// Version is reported by the health endpoint. Set at build time via ldflags.
var Version = "dev"

// Health returns a handler for GET /api/health.
//
// The engine starts lazily, so "idle" (no browser yet) is a normal state.
func Health(h *engine.Handle, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := h.Stats()

		status := "healthy"
		if !stats.Running {
			status = "idle"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Engine:  stats,
			Version: Version,
		})
	}
}
