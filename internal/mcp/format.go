package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Aman-CERP/surveydash/internal/search"
	"github.com/Aman-CERP/surveydash/internal/themes"
)

// FormatSearchResults formats quote search results as markdown.
func FormatSearchResults(resp search.Response) string {
	if resp.Count == 0 {
		return fmt.Sprintf("No survey responses found for \"%s\"", resp.Query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Survey responses matching \"%s\"\n\n", resp.Query)
	fmt.Fprintf(&sb, "Found %d response", resp.Count)
	if resp.Count != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range resp.Results {
		fmt.Fprintf(&sb, "%d. \"%s\"\n   Theme: %s (id %d), score %.1f\n", i+1, r.Quote, r.Theme, r.ThemeID, r.Score)
	}
	return sb.String()
}

// FormatOverview formats the theme list as markdown.
func FormatOverview(o search.Overview) string {
	if len(o.Themes) == 0 {
		return "No themes are available yet."
	}

	var sb strings.Builder
	sb.WriteString("## Themes\n\n")
	if o.Metadata.TotalTexts > 0 {
		fmt.Fprintf(&sb, "%d responses clustered into %d themes", o.Metadata.TotalTexts, len(o.Themes))
		if o.Metadata.GeneratedAt != "" {
			fmt.Fprintf(&sb, " (generated %s)", o.Metadata.GeneratedAt)
		}
		sb.WriteString("\n\n")
	}

	for _, t := range o.Themes {
		fmt.Fprintf(&sb, "- **%s** (id %d): %d responses, %.1f%%\n", t.Label, t.ID, t.Count, t.Pct)
		for _, q := range t.PreviewQuotes {
			fmt.Fprintf(&sb, "  > %s\n", q)
		}
	}
	return sb.String()
}

// FormatTheme formats one theme as markdown.
func FormatTheme(t *themes.Theme) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", t.Label)
	if t.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", t.Description)
	}
	fmt.Fprintf(&sb, "%d responses (%.1f%%)\n", t.Count, t.Pct)

	writeSegment(&sb, "Arrival time", t.Segments.ByArrivalTime)
	writeSegment(&sb, "Mode", t.Segments.ByMode)
	if t.Segments.SkipRate != nil {
		fmt.Fprintf(&sb, "Skip rate: %.0f%%\n", *t.Segments.SkipRate*100)
	}

	if len(t.Quotes) > 0 {
		sb.WriteString("\n### Quotes\n\n")
		for _, q := range t.Quotes {
			fmt.Fprintf(&sb, "> %s\n\n", q)
		}
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// writeSegment writes "label: key n, key n" with the largest bucket first.
func writeSegment(sb *strings.Builder, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %d", k, counts[k])
	}
	fmt.Fprintf(sb, "%s: %s\n", label, strings.Join(parts, ", "))
}
