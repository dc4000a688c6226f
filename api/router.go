package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/rendertext/api/handler"
	"github.com/use-agent/rendertext/api/middleware"
	"github.com/use-agent/rendertext/config"
	"github.com/use-agent/rendertext/metrics"
)

// Runner is what the router needs from the task runner.
type Runner interface {
	handler.TaskRunner
	handler.SessionCounter
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestID → Logger → Metrics
//	/scrape: CORS → Auth (if enabled)
//
// Health and metrics stay outside auth so probes and scrapers always work.
// CORS runs before auth so preflight requests succeed without a key.
func NewRouter(runner Runner, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics())
	}

	r.GET("/health", handler.Health(runner, startTime))
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}

	scrape := r.Group("/scrape", middleware.CORS(cfg.CORS.AllowOrigin))
	scrape.OPTIONS("", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	if cfg.Auth.Enabled {
		scrape.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	scrape.POST("", handler.Scrape(runner))

	return r
}
