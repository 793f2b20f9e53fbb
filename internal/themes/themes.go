// Package themes holds the theme artifact model and the fail-open store that
// serves it.
package themes

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Metadata describes how the themes artifact was produced.
type Metadata struct {
	GeneratedAt string `json:"generated_at"`
	InputFile   string `json:"input_file,omitempty"`
	TotalTexts  int    `json:"total_texts,omitempty"`
	NClusters   int    `json:"n_clusters,omitempty"`
	Method      string `json:"method,omitempty"`
	Model       string `json:"model,omitempty"`
}

// Segments breaks a theme down by respondent attributes.
type Segments struct {
	ByArrivalTime map[string]int `json:"by_arrival_time,omitempty"`
	ByMode        map[string]int `json:"by_mode,omitempty"`
	SkipRate      *float64       `json:"skip_rate"`
}

// Theme is one cluster of free-text answers.
type Theme struct {
	ID          int      `json:"id"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Count       int      `json:"count"`
	Pct         float64  `json:"pct"`
	Quotes      []string `json:"quotes"`
	Segments    Segments `json:"segments"`
}

// ThemesData is one immutable snapshot of the themes artifact.
type ThemesData struct {
	Metadata Metadata `json:"metadata"`
	Themes   []Theme  `json:"themes"`

	byID map[int]int
}

// Empty returns a snapshot with no themes, stamped with now.
func Empty(now time.Time) *ThemesData {
	return &ThemesData{
		Metadata: Metadata{GeneratedAt: now.UTC().Format(time.RFC3339)},
		Themes:   []Theme{},
		byID:     map[int]int{},
	}
}

// Decode parses a themes artifact. Theme ids must be unique.
func Decode(data []byte) (*ThemesData, error) {
	var td ThemesData
	if err := json.Unmarshal(data, &td); err != nil {
		return nil, err
	}
	if td.Themes == nil {
		td.Themes = []Theme{}
	}

	td.byID = make(map[int]int, len(td.Themes))
	for i := range td.Themes {
		t := &td.Themes[i]
		if _, dup := td.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate theme id %d", t.ID)
		}
		td.byID[t.ID] = i
		if t.Quotes == nil {
			t.Quotes = []string{}
		}
	}
	return &td, nil
}

// Theme returns the theme with the given id.
func (d *ThemesData) Theme(id int) (*Theme, bool) {
	if d == nil {
		return nil, false
	}
	if d.byID != nil {
		i, ok := d.byID[id]
		if !ok {
			return nil, false
		}
		return &d.Themes[i], true
	}
	for i := range d.Themes {
		if d.Themes[i].ID == id {
			return &d.Themes[i], true
		}
	}
	return nil, false
}

// QuoteCount returns the number of quotes across all themes.
func (d *ThemesData) QuoteCount() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, t := range d.Themes {
		n += len(t.Quotes)
	}
	return n
}

// DominantArrivalTime returns the arrival-time bucket with the most responses.
func (s Segments) DominantArrivalTime() string {
	return dominant(s.ByArrivalTime)
}

// DominantMode returns the survey mode bucket with the most responses.
func (s Segments) DominantMode() string {
	return dominant(s.ByMode)
}

// dominant picks the key with the largest count; ties go to the
// lexically smallest key.
func dominant(buckets map[string]int) string {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best, bestCount := "", 0
	for _, k := range keys {
		if c := buckets[k]; best == "" || c > bestCount {
			best, bestCount = k, c
		}
	}
	return best
}
