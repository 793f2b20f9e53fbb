package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/surveydash/internal/chat"
	"github.com/Aman-CERP/surveydash/internal/search"
	"github.com/Aman-CERP/surveydash/internal/themes"
	"github.com/Aman-CERP/surveydash/pkg/version"
)

// Resource URIs.
const (
	ThemesURI  = "surveydash://themes"
	MetricsURI = "surveydash://metrics"
)

// MetricsSource serves the metrics artifact verbatim.
type MetricsSource interface {
	Load() json.RawMessage
}

// Server is the MCP server for surveydash.
type Server struct {
	mcp     *mcp.Server
	search  *search.Service
	chat    *chat.Service
	metrics MetricsSource
	logger  *slog.Logger
}

// NewServer creates a new MCP server. chatSvc and metrics may be nil; the
// chat_context tool and metrics resource are then not registered.
func NewServer(searchSvc *search.Service, chatSvc *chat.Service, metrics MetricsSource, logger *slog.Logger) (*Server, error) {
	if searchSvc == nil {
		return nil, errors.New("search service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		search:  searchSvc,
		chat:    chatSvc,
		metrics: metrics,
		logger:  logger,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "surveydash",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "search_quotes", Description: toolDescription("search_quotes")}, s.searchQuotesHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "get_theme", Description: toolDescription("get_theme")}, s.getThemeHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "list_themes", Description: toolDescription("list_themes")}, s.listThemesHandler)
	count := 3
	if s.chat != nil {
		mcp.AddTool(s.mcp, &mcp.Tool{Name: "chat_context", Description: toolDescription("chat_context")}, s.chatContextHandler)
		count++
	}
	s.logger.Debug("mcp_tools_registered", slog.Int("count", count))
}

func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		Name:        "themes",
		URI:         ThemesURI,
		Description: "Theme overview with preview quotes",
		MIMEType:    "application/json",
	}, s.jsonResource(ThemesURI, func() (any, error) { return s.search.Overview(), nil }))

	if s.metrics != nil {
		s.mcp.AddResource(&mcp.Resource{
			Name:        "metrics",
			URI:         MetricsURI,
			Description: "Survey rollup metrics",
			MIMEType:    "application/json",
		}, s.jsonResource(MetricsURI, func() (any, error) { return s.metrics.Load(), nil }))
	}
}

func (s *Server) jsonResource(uri string, load func() (any, error)) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if req != nil && req.Params != nil && req.Params.URI != uri {
			return nil, NewResourceNotFoundError(req.Params.URI)
		}
		v, err := load()
		if err != nil {
			return nil, MapError(err)
		}
		content, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, MapError(err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(content),
			}},
		}, nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func (s *Server) searchQuotesHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchQuotesInput) (
	*mcp.CallToolResult,
	search.Response,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, search.Response{}, NewInvalidParamsError("query parameter is required")
	}

	resp := s.search.Search(ctx, input.Query)
	if input.Limit > 0 && input.Limit < len(resp.Results) {
		resp.Results = resp.Results[:input.Limit]
		resp.Count = len(resp.Results)
	}
	return textResult(FormatSearchResults(resp)), resp, nil
}

func (s *Server) getThemeHandler(_ context.Context, _ *mcp.CallToolRequest, input GetThemeInput) (
	*mcp.CallToolResult,
	*themes.Theme,
	error,
) {
	t, err := s.search.Theme(input.ID)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return textResult(FormatTheme(t)), t, nil
}

func (s *Server) listThemesHandler(_ context.Context, _ *mcp.CallToolRequest, _ ListThemesInput) (
	*mcp.CallToolResult,
	search.Overview,
	error,
) {
	o := s.search.Overview()
	return textResult(FormatOverview(o)), o, nil
}

func (s *Server) chatContextHandler(_ context.Context, _ *mcp.CallToolRequest, input ChatContextInput) (
	*mcp.CallToolResult,
	ChatContextOutput,
	error,
) {
	if strings.TrimSpace(input.Message) == "" {
		return nil, ChatContextOutput{}, NewInvalidParamsError("message parameter is required")
	}

	text, sources := s.chat.Context(input.Message)
	return textResult(text), ChatContextOutput{Context: text, Sources: sources}, nil
}

// Serve runs the server on the given transport until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}
