// Package mcpserver exposes the task runner as a Model Context Protocol tool.
package mcpserver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/rendertext/models"
)

// ToolName is the MCP tool name clients call.
const ToolName = "scrape_url"

// TaskRunner renders a URL and returns its visible text.
type TaskRunner interface {
	Run(ctx context.Context, url string) (string, error)
}

// New builds an MCP server with the scrape_url tool registered.
func New(runner TaskRunner, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"rendertext",
		version,
		server.WithToolCapabilities(false),
	)

	scrapeURLTool := mcp.NewTool(ToolName,
		mcp.WithDescription("Render a web page in a headless browser, wait for network activity to settle, and return the page's visible text. Use for pages whose content is produced by JavaScript."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The http or https URL of the page to render"),
		),
	)
	s.AddTool(scrapeURLTool, HandleScrapeURL(runner))

	return s
}

// HandleScrapeURL validates the url argument the same way POST /scrape does,
// runs the task and returns the text. Failures become tool errors, never
// protocol errors, so the calling model sees the message.
func HandleScrapeURL(runner TaskRunner) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError(models.InvalidURLMessage), nil
		}

		req := models.ScrapeRequest{URL: url}
		if err := req.Validate(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		slog.Info("scrape request", "url", req.URL, "via", "mcp")

		text, err := runner.Run(context.WithoutCancel(ctx), req.URL)
		if err != nil {
			var se *models.ScrapeError
			if errors.As(err, &se) {
				return mcp.NewToolResultError(se.Error()), nil
			}
			return mcp.NewToolResultError("scrape failed: " + err.Error()), nil
		}

		return mcp.NewToolResultText(text), nil
	}
}
