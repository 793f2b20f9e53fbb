package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/surveydash/internal/chat"
	"github.com/Aman-CERP/surveydash/internal/metrics"
	"github.com/Aman-CERP/surveydash/internal/search"
	"github.com/Aman-CERP/surveydash/internal/themes"
)

const themesJSON = `{
  "metadata": {"generated_at": "2026-03-01T10:00:00Z", "total_texts": 5},
  "themes": [
    {"id": 0, "label": "Long wait times", "description": "Queues at the door", "count": 3, "pct": 60.0,
     "quotes": ["The wait was long", "Queue took an hour", "Too slow"],
     "segments": {"by_arrival_time": {"morning": 2, "evening": 1}, "skip_rate": 0.25}},
    {"id": 1, "label": "Friendly staff", "count": 2, "pct": 40.0,
     "quotes": ["Staff were kind", "Nice people"], "segments": {}}
  ]
}`

func newTestServer(t *testing.T, withChat bool) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "themes.json")
	require.NoError(t, os.WriteFile(path, []byte(themesJSON), 0o644))

	store := themes.NewStore(path)
	var chatSvc *chat.Service
	if withChat {
		chatSvc = chat.NewService(store, nil, chat.Config{}, nil)
	}
	srv, err := NewServer(search.NewService(store, search.Config{}, nil), chatSvc,
		metrics.NewStore(filepath.Join(dir, "metrics.json"), nil), nil)
	require.NoError(t, err)
	return srv, dir
}

// connect wires a client to srv over in-memory transports.
func connect(t *testing.T, srv *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	serverSession, err := srv.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func structured[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestNewServer_RequiresSearch(t *testing.T) {
	_, err := NewServer(nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestListTools(t *testing.T) {
	tests := []struct {
		name     string
		withChat bool
		want     []string
	}{
		{"with chat", true, []string{"chat_context", "get_theme", "list_themes", "search_quotes"}},
		{"without chat", false, []string{"get_theme", "list_themes", "search_quotes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.withChat)
			cs := connect(t, srv)

			res, err := cs.ListTools(context.Background(), nil)
			require.NoError(t, err)

			var names []string
			for _, tool := range res.Tools {
				names = append(names, tool.Name)
				assert.NotEmpty(t, tool.Description)
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}

func TestSearchQuotes(t *testing.T) {
	// Given: a connected client
	srv, _ := newTestServer(t, false)
	cs := connect(t, srv)

	// When: searching
	res := callTool(t, cs, "search_quotes", map[string]any{"query": "wait"})

	// Then: markdown text and structured results agree
	require.False(t, res.IsError)
	assert.Contains(t, textOf(t, res), "\"The wait was long\"")
	out := structured[search.Response](t, res)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "Long wait times", out.Results[0].Theme)
}

func TestSearchQuotes_Limit(t *testing.T) {
	srv, _ := newTestServer(t, false)

	_, out, err := srv.searchQuotesHandler(context.Background(), nil, SearchQuotesInput{Query: "staff people kind", Limit: 1})

	require.NoError(t, err)
	assert.Equal(t, 1, out.Count)
	assert.Len(t, out.Results, 1)
}

func TestSearchQuotes_EmptyQuery(t *testing.T) {
	srv, _ := newTestServer(t, false)
	cs := connect(t, srv)

	res := callTool(t, cs, "search_quotes", map[string]any{"query": "  "})

	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "query parameter is required")
}

func TestGetTheme(t *testing.T) {
	srv, _ := newTestServer(t, false)
	cs := connect(t, srv)

	res := callTool(t, cs, "get_theme", map[string]any{"id": 0})

	require.False(t, res.IsError)
	text := textOf(t, res)
	assert.Contains(t, text, "## Long wait times")
	assert.Contains(t, text, "Arrival time: morning 2, evening 1")
	assert.Contains(t, text, "Skip rate: 25%")
	out := structured[themes.Theme](t, res)
	assert.Len(t, out.Quotes, 3)
}

func TestGetTheme_Unknown(t *testing.T) {
	srv, _ := newTestServer(t, false)

	_, _, err := srv.getThemeHandler(context.Background(), nil, GetThemeInput{ID: 9})

	require.Error(t, err)
	mcpErr, ok := err.(*MCPError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNotFound, mcpErr.Code)
}

func TestListThemes(t *testing.T) {
	srv, _ := newTestServer(t, false)
	cs := connect(t, srv)

	res := callTool(t, cs, "list_themes", map[string]any{})

	require.False(t, res.IsError)
	assert.Contains(t, textOf(t, res), "**Friendly staff** (id 1)")
	out := structured[search.Overview](t, res)
	assert.Len(t, out.Themes, 2)
}

func TestChatContext(t *testing.T) {
	srv, _ := newTestServer(t, true)
	cs := connect(t, srv)

	res := callTool(t, cs, "chat_context", map[string]any{"message": "how long was the wait"})

	require.False(t, res.IsError)
	out := structured[ChatContextOutput](t, res)
	assert.Contains(t, out.Context, "[1] Theme: Long wait times\n\"The wait was long\"")
	require.NotEmpty(t, out.Sources)
	assert.Equal(t, "0-0", out.Sources[0].ID)
}

func TestChatContext_EmptyMessage(t *testing.T) {
	srv, _ := newTestServer(t, true)

	_, _, err := srv.chatContextHandler(context.Background(), nil, ChatContextInput{})

	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidParams, MapError(err).Code)
}

func TestResources(t *testing.T) {
	srv, dir := newTestServer(t, false)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metrics.json"), []byte(`{"total":5}`), 0o644))
	cs := connect(t, srv)

	themesRes, err := cs.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: ThemesURI})
	require.NoError(t, err)
	require.Len(t, themesRes.Contents, 1)
	assert.Contains(t, themesRes.Contents[0].Text, "Long wait times")

	metricsRes, err := cs.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: MetricsURI})
	require.NoError(t, err)
	require.Len(t, metricsRes.Contents, 1)
	assert.JSONEq(t, `{"total":5}`, metricsRes.Contents[0].Text)
}

func TestServe_UnknownTransport(t *testing.T) {
	srv, _ := newTestServer(t, false)

	err := srv.Serve(context.Background(), "sse")

	assert.ErrorContains(t, err, "unknown transport")
}
