package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/surveydash/internal/themes"
)

func fixtureThemes() []themes.Theme {
	return []themes.Theme{
		{
			ID:     0,
			Label:  "Wait times",
			Quotes: []string{"The wait was long", "Staff were slow", "I had to wait"},
		},
		{
			ID:     1,
			Label:  "Friendly staff",
			Quotes: []string{"Nice people", "Staff helped me wait less", "Parking was easy"},
		},
	}
}

func TestRank_SearchModeDropsZeroScores(t *testing.T) {
	// Given: a corpus where only some quotes mention the query

	// When: ranking in search mode
	got := Rank(fixtureThemes(), "wait", RankOptions{Mode: ModeSearch, TopK: SearchTopK})

	// Then: only matching quotes are returned, best first
	require.Len(t, got, 3)
	for _, r := range got {
		assert.Greater(t, r.Score, 0.0)
		assert.Contains(t, r.Quote, "wait")
	}
}

func TestRank_StableOnTies(t *testing.T) {
	// Given: three quotes that score identically
	data := []themes.Theme{
		{ID: 0, Label: "a", Quotes: []string{"wait one", "wait two"}},
		{ID: 1, Label: "b", Quotes: []string{"wait three"}},
	}

	// When: ranking
	got := Rank(data, "wait", RankOptions{Mode: ModeSearch, TopK: 10})

	// Then: artifact order is preserved
	require.Len(t, got, 3)
	assert.Equal(t, "wait one", got[0].Quote)
	assert.Equal(t, "wait two", got[1].Quote)
	assert.Equal(t, "wait three", got[2].Quote)
	assert.Equal(t, 1, got[1].Position)
	assert.Equal(t, 1, got[2].ThemeID)
	assert.Equal(t, "b", got[2].ThemeLabel)
}

func TestRank_SortsDescending(t *testing.T) {
	data := []themes.Theme{
		{ID: 0, Label: "x", Quotes: []string{"waiting", "the long wait", "long wait long wait"}},
	}

	got := Rank(data, "long wait", RankOptions{Mode: ModeSearch, TopK: 10})

	require.Len(t, got, 3)
	assert.Equal(t, "long wait long wait", got[0].Quote)
	assert.Equal(t, "the long wait", got[1].Quote)
	assert.Equal(t, "waiting", got[2].Quote)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
}

func TestRank_TruncatesToTopK(t *testing.T) {
	var quotes []string
	for i := 0; i < 30; i++ {
		quotes = append(quotes, "wait")
	}
	data := []themes.Theme{{ID: 0, Label: "x", Quotes: quotes}}

	got := Rank(data, "wait", RankOptions{Mode: ModeSearch, TopK: SearchTopK})

	assert.Len(t, got, SearchTopK)
}

func TestRank_ChatModeLabelBoost(t *testing.T) {
	// Given: a theme whose label matches but whose quotes do not
	data := []themes.Theme{
		{ID: 0, Label: "Parking", Quotes: []string{"Hard to find a spot"}},
		{ID: 1, Label: "Other", Quotes: []string{"parking"}},
	}

	// When: ranking in chat mode
	got := Rank(data, "parking", RankOptions{Mode: ModeChat, TopK: ChatTopK})

	// Then: the label score times two lifts the non-matching quote above the literal match
	require.Len(t, got, 2)
	assert.Equal(t, "Hard to find a spot", got[0].Quote)
	assert.InDelta(t, 23.0, got[0].Score, 1e-9)
	assert.InDelta(t, 11.5, got[1].Score, 1e-9)
}

func TestRank_ChatModeKeepsZeroScores(t *testing.T) {
	// Given: a corpus with no matches at all

	// When: ranking in chat mode
	got := Rank(fixtureThemes(), "zzzz", RankOptions{Mode: ModeChat, TopK: ChatTopK})

	// Then: exactly min(K, total) quotes come back in artifact order
	require.Len(t, got, ChatTopK)
	assert.Equal(t, "The wait was long", got[0].Quote)
	for _, r := range got {
		assert.Zero(t, r.Score)
	}
}

func TestRank_ChatModeSmallCorpus(t *testing.T) {
	data := []themes.Theme{{ID: 0, Label: "x", Quotes: []string{"one", "two"}}}

	got := Rank(data, "nothing", RankOptions{Mode: ModeChat, TopK: ChatTopK})

	assert.Len(t, got, 2)
}

func TestRank_EmptyCorpus(t *testing.T) {
	got := Rank(nil, "wait", RankOptions{Mode: ModeChat, TopK: ChatTopK})

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRank_Deterministic(t *testing.T) {
	first := Rank(fixtureThemes(), "staff wait", RankOptions{Mode: ModeChat, TopK: 6})
	second := Rank(fixtureThemes(), "staff wait", RankOptions{Mode: ModeChat, TopK: 6})

	assert.Equal(t, first, second)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "search", ModeSearch.String())
	assert.Equal(t, "chat", ModeChat.String())
	assert.Equal(t, "unknown", Mode(9).String())
}
