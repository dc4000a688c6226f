package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/rendertext/api"
	"github.com/use-agent/rendertext/config"
	"github.com/use-agent/rendertext/logging"
	"github.com/use-agent/rendertext/metrics"
	"github.com/use-agent/rendertext/scraper"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	logging.Init(cfg.Log, os.Stdout)
	slog.Info("rendertext starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"navTimeout", cfg.Scraper.NavigationTimeout,
		"noSandbox", cfg.Browser.NoSandbox,
	)

	// ── 3. Task runner (one browser per request, nothing launched yet) ──
	launcher := scraper.NewRodLauncher(cfg.Browser, cfg.Scraper.IdleWindow)
	runner := scraper.NewRunner(launcher, cfg.Scraper)

	if cfg.Metrics.Enabled {
		metrics.Init()
	}

	// ── 4. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(runner, cfg, time.Now())

	// ── 5. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 6. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// In-flight scrapes get long enough to run out their launch,
	// navigation and extraction timeouts and close their browsers.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err,
			"activeSessions", runner.ActiveSessions())
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("rendertext stopped")
}
