package output

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/surveydash/internal/chat"
	"github.com/Aman-CERP/surveydash/internal/search"
	"github.com/Aman-CERP/surveydash/internal/themes"
)

// SearchResults prints evidence search hits.
func (w *Writer) SearchResults(resp search.Response) {
	if resp.Count == 0 {
		w.Status("", fmt.Sprintf("No quotes found for %q", resp.Query))
		return
	}

	w.Statusf("🔍", "Found %d quotes for %q:", resp.Count, resp.Query)
	w.Newline()
	for i, r := range resp.Results {
		w.Statusf("", "%d. %s %s", i+1,
			w.styles.Label.Render(fmt.Sprintf("[%d] %s", r.ThemeID, r.Theme)),
			w.styles.Score.Render(fmt.Sprintf("(score: %.2f)", r.Score)))
		w.Status("", "   "+w.styles.Quote.Render(r.Quote))
		w.Newline()
	}
}

// Overview prints the theme list.
func (w *Writer) Overview(ov search.Overview) {
	if len(ov.Themes) == 0 {
		w.Warning("No themes available. Run the data pipeline to generate themes.json.")
		return
	}

	w.Header(fmt.Sprintf("%d themes (generated %s)", len(ov.Themes), ov.Metadata.GeneratedAt))
	w.Newline()
	for _, t := range ov.Themes {
		w.Statusf("", "%s %s %s",
			w.styles.Label.Render(fmt.Sprintf("%3d", t.ID)),
			t.Label,
			w.styles.Dim.Render(fmt.Sprintf("%d responses, %.1f%%, %d quotes", t.Count, t.Pct, t.QuoteCount)))
		for _, q := range t.PreviewQuotes {
			w.Status("", "      "+w.styles.Quote.Render(fmt.Sprintf("%q", q)))
		}
	}
}

// Theme prints one theme in full.
func (w *Writer) Theme(t *themes.Theme) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", w.styles.Header.Render(fmt.Sprintf("[%d] %s", t.ID, t.Label)))
	if t.Description != "" {
		fmt.Fprintf(&b, "%s\n", t.Description)
	}
	fmt.Fprintf(&b, "%s", w.styles.Dim.Render(fmt.Sprintf("%d responses, %.1f%%", t.Count, t.Pct)))
	if a := t.Segments.DominantArrivalTime(); a != "" {
		fmt.Fprintf(&b, "\n%s %s", w.styles.Label.Render("Mostly arriving:"), a)
	}
	if m := t.Segments.DominantMode(); m != "" {
		fmt.Fprintf(&b, "\n%s %s", w.styles.Label.Render("Mostly via:"), m)
	}
	if t.Segments.SkipRate != nil {
		fmt.Fprintf(&b, "\n%s %.1f%%", w.styles.Label.Render("Skip rate:"), *t.Segments.SkipRate*100)
	}
	w.Line(w.styles.Panel.Render(b.String()))
	w.Newline()

	for i, q := range t.Quotes {
		w.Statusf("", "%s %s", w.styles.Label.Render(fmt.Sprintf("%2d.", i+1)), w.styles.Quote.Render(q))
	}
}

// ChatReply prints a chat answer and its sources.
func (w *Writer) ChatReply(resp *chat.Response) {
	w.Line(resp.Response)
	w.Newline()
	w.Sources(resp.Sources)
}

// Sources prints the quotes a reply was grounded on.
func (w *Writer) Sources(sources []chat.Source) {
	if len(sources) == 0 {
		return
	}
	w.Header("Sources")
	for i, s := range sources {
		meta := s.Source
		if s.ArrivalTime != "" {
			meta += ", " + s.ArrivalTime
		}
		if s.Mode != "" {
			meta += ", " + s.Mode
		}
		w.Statusf("", "[%d] %s %s", i+1, w.styles.Quote.Render(s.Text), w.styles.Dim.Render("("+meta+")"))
	}
}
