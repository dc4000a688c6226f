package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/rendertext/models"
)

// Version is reported by the health endpoint. Overridden at build time with
// -ldflags "-X github.com/use-agent/rendertext/api/handler.Version=...".
var Version = "0.1.0"

// SessionCounter reports how many browser sessions are open right now.
type SessionCounter interface {
	ActiveSessions() int
}

// Health returns a handler for GET /health.
//
// There is no shared pool to saturate, so the status is always "healthy";
// the active session count is informational.
func Health(sessions SessionCounter, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:         "healthy",
			Uptime:         time.Since(startTime).Round(time.Second).String(),
			Version:        Version,
			ActiveSessions: sessions.ActiveSessions(),
		})
	}
}
