// Package chat grounds a generative-text provider on survey quotes.
//
// The context builder picks the quotes most relevant to a message, renders
// them as numbered blocks for the provider, and describes them as sources
// for the caller. The service validates requests and calls the provider once.
package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/surveydash/internal/search"
	"github.com/Aman-CERP/surveydash/internal/themes"
)

// NoContext is the context sent when there are no quotes to ground on.
const NoContext = "No relevant survey responses found."

// SourceTextLimit is the rune length past which source text is truncated.
const SourceTextLimit = 200

// Source describes one quote used to ground a reply.
type Source struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Source      string `json:"source"`
	ArrivalTime string `json:"arrival_time"`
	Mode        string `json:"mode"`
}

// BuildContext ranks data against message in chat mode and renders the top
// topK quotes as numbered blocks separated by blank lines.
func BuildContext(data *themes.ThemesData, message string, topK int) (string, []search.ScoredQuote) {
	var all []themes.Theme
	if data != nil {
		all = data.Themes
	}

	quotes := search.Rank(all, message, search.RankOptions{Mode: search.ModeChat, TopK: topK})
	if len(quotes) == 0 {
		return NoContext, quotes
	}

	blocks := make([]string, len(quotes))
	for i, q := range quotes {
		blocks[i] = fmt.Sprintf("[%d] Theme: %s\n\"%s\"", i+1, q.ThemeLabel, q.Quote)
	}
	return strings.Join(blocks, "\n\n"), quotes
}

// Sources describes ranked quotes for the caller. Segment buckets come from
// the quote's theme in data.
func Sources(data *themes.ThemesData, quotes []search.ScoredQuote) []Source {
	out := make([]Source, len(quotes))
	for i, q := range quotes {
		src := Source{
			ID:     fmt.Sprintf("%d-%d", q.ThemeID, q.Position),
			Text:   truncate(q.Quote, SourceTextLimit),
			Source: q.ThemeLabel,
		}
		if t, ok := data.Theme(q.ThemeID); ok {
			src.ArrivalTime = t.Segments.DominantArrivalTime()
			src.Mode = t.Segments.DominantMode()
		}
		out[i] = src
	}
	return out
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
