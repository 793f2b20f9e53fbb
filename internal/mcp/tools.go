package mcp

import (
	"github.com/Aman-CERP/surveydash/internal/chat"
)

// SearchQuotesInput defines the input schema for the search_quotes tool.
type SearchQuotesInput struct {
	Query string `json:"query" jsonschema:"keywords or a phrase to find in survey responses"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of quotes, default 20"`
}

// GetThemeInput defines the input schema for the get_theme tool.
type GetThemeInput struct {
	ID int `json:"id" jsonschema:"theme id as listed by list_themes"`
}

// ListThemesInput defines the input schema for the list_themes tool (no parameters).
type ListThemesInput struct{}

// ChatContextInput defines the input schema for the chat_context tool.
type ChatContextInput struct {
	Message string `json:"message" jsonschema:"the question to gather supporting survey responses for"`
}

// ChatContextOutput is the grounding block a chat reply would be built on.
type ChatContextOutput struct {
	Context string        `json:"context" jsonschema:"numbered survey responses, one block per source"`
	Sources []chat.Source `json:"sources" jsonschema:"the responses referenced by number in context"`
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// Tools lists the tools the server registers.
var Tools = []ToolInfo{
	{
		Name:        "search_quotes",
		Description: "Find verbatim survey responses matching keywords or a phrase. Results are ranked by relevance and labelled with their theme.",
	},
	{
		Name:        "get_theme",
		Description: "Return one theme with its description, all representative quotes, and segment breakdowns by arrival time and mode.",
	},
	{
		Name:        "list_themes",
		Description: "List every theme with its share of responses and two preview quotes, plus metadata about the clustering run.",
	},
	{
		Name:        "chat_context",
		Description: "Gather the numbered survey responses that best support answering a question, without generating an answer.",
	},
}

func toolDescription(name string) string {
	for _, t := range Tools {
		if t.Name == name {
			return t.Description
		}
	}
	return ""
}
