package main

import (
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/rendertext/api/handler"
	"github.com/use-agent/rendertext/config"
	"github.com/use-agent/rendertext/logging"
	"github.com/use-agent/rendertext/mcpserver"
	"github.com/use-agent/rendertext/scraper"
)

// The MCP server speaks JSON-RPC on stdout, so logs go to stderr.
func main() {
	cfg := config.Load()
	logging.Init(cfg.Log, os.Stderr)

	launcher := scraper.NewRodLauncher(cfg.Browser, cfg.Scraper.IdleWindow)
	runner := scraper.NewRunner(launcher, cfg.Scraper)

	s := mcpserver.New(runner, handler.Version)

	slog.Info("rendertext MCP server starting on stdio")
	if err := server.ServeStdio(s); err != nil {
		slog.Error("MCP server error", "error", err)
		os.Exit(1)
	}
}
