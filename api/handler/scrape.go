package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/rendertext/api/middleware"
	"github.com/use-agent/rendertext/models"
)

// TaskRunner renders a URL and returns its visible text.
type TaskRunner interface {
	Run(ctx context.Context, url string) (string, error)
}

// Scrape returns a handler for POST /scrape.
//
// Orchestration flow:
//  1. Bind the JSON body and validate url; any failure → 400, runner untouched.
//  2. TaskRunner.Run with a context detached from client cancellation:
//     the navigation timeout is the only thing allowed to stop a scrape.
//  3. Success → 200 with the raw text; failure → 500 with {"error": ...}.
func Scrape(runner TaskRunner) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse & validate ─────────────────────────────────────
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: models.InvalidURLMessage})
			return
		}
		if err := req.Validate(); err != nil {
			respondError(c, err)
			return
		}

		slog.Info("scrape request",
			"url", req.URL,
			"request_id", c.GetString(middleware.RequestIDKey),
		)

		// ── 2. Run ──────────────────────────────────────────────────
		text, err := runner.Run(context.WithoutCancel(c.Request.Context()), req.URL)
		if err != nil {
			respondError(c, err)
			return
		}

		// ── 3. Respond ──────────────────────────────────────────────
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
	}
}

// respondError maps an error to its HTTP status code and writes the
// {"error": ...} body. Errors that are not ScrapeErrors are treated as
// scrape failures.
func respondError(c *gin.Context, err error) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrKindScrapeFailed, "scrape failed", err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), scrapeErr.ToResponse())
}

// mapErrorToStatus translates error kinds to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Kind {
	case models.ErrKindValidation:
		return http.StatusBadRequest // 400
	case models.ErrKindUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
