package search

import (
	"sort"

	"github.com/Aman-CERP/surveydash/internal/themes"
)

// Result limits.
const (
	// SearchTopK is the number of results returned by evidence search.
	SearchTopK = 20

	// ChatTopK is the number of quotes used to ground a chat reply.
	ChatTopK = 5
)

// Mode selects the ranking policy.
type Mode int

const (
	// ModeSearch keeps only quotes with a positive score.
	ModeSearch Mode = iota

	// ModeChat boosts quotes by their theme label's score and keeps the
	// top K regardless of score.
	ModeChat
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeSearch:
		return "search"
	case ModeChat:
		return "chat"
	default:
		return "unknown"
	}
}

// RankOptions configures Rank.
type RankOptions struct {
	Mode Mode

	// TopK caps the result count. Zero or negative means no cap.
	TopK int
}

// ScoredQuote is a quote paired with its score for one request.
type ScoredQuote struct {
	Quote      string  `json:"quote"`
	ThemeID    int     `json:"themeId"`
	ThemeLabel string  `json:"theme"`
	Score      float64 `json:"score"`

	// Position is the quote's index within its theme.
	Position int `json:"position"`
}

// Rank scores every quote of every theme against query and returns the best
// TopK in descending score order. Equal scores keep artifact order.
func Rank(data []themes.Theme, query string, opts RankOptions) []ScoredQuote {
	q := CompileQuery(query)

	var scored []ScoredQuote
	for _, t := range data {
		labelBoost := 0.0
		if opts.Mode == ModeChat {
			labelBoost = q.Score(t.Label) * LabelMatchMultiplier
		}

		for i, quote := range t.Quotes {
			s := q.Score(quote) + labelBoost
			if opts.Mode == ModeSearch && s <= 0 {
				continue
			}
			scored = append(scored, ScoredQuote{
				Quote:      quote,
				ThemeID:    t.ID,
				ThemeLabel: t.Label,
				Score:      s,
				Position:   i,
			})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if opts.TopK > 0 && len(scored) > opts.TopK {
		scored = scored[:opts.TopK]
	}
	if scored == nil {
		scored = []ScoredQuote{}
	}
	return scored
}
