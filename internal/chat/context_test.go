package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/surveydash/internal/themes"
)

func longQuote() string {
	return strings.Repeat("a", 250)
}

func fixtureData() *themes.ThemesData {
	return &themes.ThemesData{
		Themes: []themes.Theme{
			{
				ID:     3,
				Label:  "Parking",
				Quotes: []string{"No spaces left", longQuote()},
				Segments: themes.Segments{
					ByArrivalTime: map[string]int{"morning": 3, "evening": 1},
					ByMode:        map[string]int{"drive": 2},
				},
			},
			{
				ID:     4,
				Label:  "Staff",
				Quotes: []string{"Friendly parking attendant"},
			},
		},
	}
}

func TestBuildContext_RendersNumberedBlocks(t *testing.T) {
	// Given: a snapshot where one theme label matches the message

	// When: building context
	text, quotes := BuildContext(fixtureData(), "parking", 5)

	// Then: label-boosted quotes come first, rendered as numbered blocks
	require.Len(t, quotes, 3)
	want := "[1] Theme: Parking\n\"No spaces left\"\n\n" +
		"[2] Theme: Parking\n\"" + longQuote() + "\"\n\n" +
		"[3] Theme: Staff\n\"Friendly parking attendant\""
	assert.Equal(t, want, text)
}

func TestBuildContext_RespectsTopK(t *testing.T) {
	text, quotes := BuildContext(fixtureData(), "parking", 1)

	require.Len(t, quotes, 1)
	assert.Equal(t, "[1] Theme: Parking\n\"No spaces left\"", text)
}

func TestBuildContext_EmptyCorpus(t *testing.T) {
	// Given: an empty snapshot
	data := themes.Empty(time.Now())

	// When: building context
	text, quotes := BuildContext(data, "anything", 5)

	// Then: the sentinel is returned
	assert.Equal(t, NoContext, text)
	assert.Empty(t, quotes)

	text, _ = BuildContext(nil, "anything", 5)
	assert.Equal(t, NoContext, text)
}

func TestBuildContext_IncludesZeroScoreQuotes(t *testing.T) {
	text, quotes := BuildContext(fixtureData(), "unrelated words", 5)

	assert.Len(t, quotes, 3)
	assert.True(t, strings.HasPrefix(text, "[1] Theme: Parking\n\"No spaces left\""))
}

func TestSources(t *testing.T) {
	// Given: ranked quotes
	data := fixtureData()
	_, quotes := BuildContext(data, "parking", 5)

	// When: describing them as sources
	got := Sources(data, quotes)

	// Then: ids, truncation and segment buckets are filled in
	require.Len(t, got, 3)
	assert.Equal(t, Source{ID: "3-0", Text: "No spaces left", Source: "Parking", ArrivalTime: "morning", Mode: "drive"}, got[0])
	assert.Equal(t, "3-1", got[1].ID)
	assert.Equal(t, strings.Repeat("a", SourceTextLimit)+"...", got[1].Text)
	assert.Equal(t, Source{ID: "4-0", Text: "Friendly parking attendant", Source: "Staff"}, got[2])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exact", truncate("exact", 5))
	assert.Equal(t, "ab...", truncate("abc", 2))
	assert.Equal(t, "日本...", truncate("日本語", 2))
}
