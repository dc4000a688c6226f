package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/use-agent/rendertext/config"
	"github.com/use-agent/rendertext/metrics"
	"github.com/use-agent/rendertext/models"
)

// Runner renders one URL per call in a fresh browser session and returns
// the page's visible text. It is safe for concurrent use; concurrent calls
// share nothing but the read-only configuration.
type Runner struct {
	launcher Launcher
	cfg      config.ScraperConfig
	active   atomic.Int32
}

// NewRunner creates a Runner that acquires sessions from launcher.
func NewRunner(launcher Launcher, cfg config.ScraperConfig) *Runner {
	return &Runner{launcher: launcher, cfg: cfg}
}

// ActiveSessions returns the number of sessions currently open.
func (r *Runner) ActiveSessions() int {
	return int(r.active.Load())
}

// Run renders targetURL and returns document.body.innerText.
//
// Lifecycle:
//
//  1. Launch         – new isolated browser, bounded by LaunchTimeout
//  2. DEFER: Close   – runs on every exit path below
//  3. Navigate       – load + network idle, bounded by NavigationTimeout
//  4. Extract        – innerText, bounded by ExtractTimeout
//
// Every failure is returned as a *models.ScrapeError of kind
// ErrKindScrapeFailed after the session has been closed. There are no
// retries: one failed attempt is reported as is.
//
// targetURL is expected to be validated by the caller.
func (r *Runner) Run(ctx context.Context, targetURL string) (text string, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveScrape(outcome(err), time.Since(start))
	}()

	// ── 1. Acquire session ──────────────────────────────────────────
	launchCtx, cancelLaunch := context.WithTimeout(ctx, r.cfg.LaunchTimeout)
	sess, launchErr := r.launcher.Launch(launchCtx)
	cancelLaunch()
	if launchErr != nil {
		return "", r.fail(targetURL, "failed to launch browser", launchErr)
	}

	// ── 2. Guaranteed release ───────────────────────────────────────
	r.active.Add(1)
	metrics.IncSessions()
	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			slog.Warn("browser session close failed",
				"url", targetURL,
				"error", closeErr,
			)
		}
		r.active.Add(-1)
		metrics.DecSessions()
	}()

	// ── 3. Navigate and wait for network idle ───────────────────────
	navCtx, cancelNav := context.WithTimeout(ctx, r.cfg.NavigationTimeout)
	defer cancelNav()

	if navErr := sess.Navigate(navCtx, targetURL); navErr != nil {
		if errors.Is(navErr, context.DeadlineExceeded) {
			return "", r.fail(targetURL,
				fmt.Sprintf("navigation timed out after %s", r.cfg.NavigationTimeout), navErr)
		}
		return "", r.fail(targetURL, "navigation failed", navErr)
	}

	// ── 4. Extract visible text ─────────────────────────────────────
	extractCtx, cancelExtract := context.WithTimeout(ctx, r.cfg.ExtractTimeout)
	defer cancelExtract()

	text, extractErr := sess.VisibleText(extractCtx)
	if extractErr != nil {
		return "", r.fail(targetURL, "text extraction failed", extractErr)
	}
	return text, nil
}

// fail logs the failure with its URL and wraps it as ErrKindScrapeFailed.
func (r *Runner) fail(targetURL, msg string, err error) *models.ScrapeError {
	slog.Error("scrape failed",
		"url", targetURL,
		"stage", msg,
		"error", err,
	)
	return models.NewScrapeError(models.ErrKindScrapeFailed, "scrape failed: "+msg, err)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeFailure
	}
}
