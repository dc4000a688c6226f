package mcpserver

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/rendertext/models"
)

type fakeRunner struct {
	text  string
	err   error
	calls []string
}

func (r *fakeRunner) Run(_ context.Context, url string) (string, error) {
	r.calls = append(r.calls, url)
	return r.text, r.err
}

func callTool(t *testing.T, runner TaskRunner, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = ToolName
	req.Params.Arguments = args

	res, err := HandleScrapeURL(runner)(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return tc.Text
}

func TestHandleScrapeURL_Success(t *testing.T) {
	runner := &fakeRunner{text: "Hello"}

	res := callTool(t, runner, map[string]any{"url": "https://example.com"})

	assert.False(t, res.IsError)
	assert.Equal(t, "Hello", resultText(t, res))
	assert.Equal(t, []string{"https://example.com"}, runner.calls)
}

func TestHandleScrapeURL_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing", map[string]any{}},
		{"not a string", map[string]any{"url": 7}},
		{"no scheme", map[string]any{"url": "example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}

			res := callTool(t, runner, tt.args)

			assert.True(t, res.IsError)
			assert.Equal(t, models.InvalidURLMessage, resultText(t, res))
			assert.Empty(t, runner.calls)
		})
	}
}

func TestHandleScrapeURL_RunnerFailure(t *testing.T) {
	runner := &fakeRunner{err: models.NewScrapeError(models.ErrKindScrapeFailed,
		"scrape failed: navigation timed out after 30s", context.DeadlineExceeded)}

	res := callTool(t, runner, map[string]any{"url": "https://example.com"})

	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "timed out")
}

func TestHandleScrapeURL_UntypedFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("boom")}

	res := callTool(t, runner, map[string]any{"url": "https://example.com"})

	assert.True(t, res.IsError)
	assert.Equal(t, "scrape failed: boom", resultText(t, res))
}

func TestNew(t *testing.T) {
	assert.NotNil(t, New(&fakeRunner{}, "test"))
}
