package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	surveyerrors "github.com/Aman-CERP/surveydash/internal/errors"
	"github.com/Aman-CERP/surveydash/internal/telemetry"
	"github.com/Aman-CERP/surveydash/internal/themes"
)

const (
	// DefaultResultCacheSize is the number of distinct queries whose
	// responses are kept per snapshot.
	DefaultResultCacheSize = 256

	// previewQuoteCount is how many quotes a theme summary carries.
	previewQuoteCount = 2
)

// Result is one evidence search hit.
type Result struct {
	Quote   string  `json:"quote"`
	Theme   string  `json:"theme"`
	ThemeID int     `json:"themeId"`
	Score   float64 `json:"score"`
}

// Response is the evidence search payload.
type Response struct {
	Query   string   `json:"query"`
	Count   int      `json:"count"`
	Results []Result `json:"results"`
}

// ThemeSummary is the list view of a theme.
type ThemeSummary struct {
	ID            int      `json:"id"`
	Label         string   `json:"label"`
	Count         int      `json:"count"`
	Pct           float64  `json:"pct"`
	QuoteCount    int      `json:"quoteCount"`
	PreviewQuotes []string `json:"previewQuotes"`
}

// Overview is the theme list payload.
type Overview struct {
	Metadata themes.Metadata `json:"metadata"`
	Themes   []ThemeSummary  `json:"themes"`
}

// Search ranks the snapshot's quotes against query and keeps at most topK
// positive-scoring hits.
func Search(data *themes.ThemesData, query string, topK int) Response {
	var all []themes.Theme
	if data != nil {
		all = data.Themes
	}

	ranked := Rank(all, query, RankOptions{Mode: ModeSearch, TopK: topK})
	results := make([]Result, len(ranked))
	for i, r := range ranked {
		results[i] = Result{
			Quote:   r.Quote,
			Theme:   r.ThemeLabel,
			ThemeID: r.ThemeID,
			Score:   r.Score,
		}
	}

	return Response{Query: query, Count: len(results), Results: results}
}

// GetTheme returns the theme with the given id.
func GetTheme(data *themes.ThemesData, id int) (*themes.Theme, error) {
	t, ok := data.Theme(id)
	if !ok {
		return nil, surveyerrors.NotFoundError(fmt.Sprintf("theme %d not found", id)).
			WithDetail("theme_id", fmt.Sprint(id))
	}
	return t, nil
}

// ListThemes projects every theme to its summary, in artifact order.
func ListThemes(data *themes.ThemesData) []ThemeSummary {
	if data == nil {
		return []ThemeSummary{}
	}

	out := make([]ThemeSummary, len(data.Themes))
	for i, t := range data.Themes {
		n := min(previewQuoteCount, len(t.Quotes))
		preview := make([]string, n)
		copy(preview, t.Quotes[:n])

		out[i] = ThemeSummary{
			ID:            t.ID,
			Label:         t.Label,
			Count:         t.Count,
			Pct:           t.Pct,
			QuoteCount:    len(t.Quotes),
			PreviewQuotes: preview,
		}
	}
	return out
}

// ThemeSource supplies the current themes snapshot.
type ThemeSource interface {
	Load() *themes.ThemesData
}

// Config configures a Service.
type Config struct {
	// MaxResults caps search hits (default SearchTopK).
	MaxResults int

	// CacheSize is the LRU capacity for search responses (default
	// DefaultResultCacheSize). Negative disables caching.
	CacheSize int

	// Telemetry receives one event per search. Nil disables recording.
	Telemetry *telemetry.Collector
}

// Service answers evidence queries against the live themes snapshot.
// Search responses are cached per query until the snapshot changes.
type Service struct {
	source     ThemeSource
	maxResults int
	logger     *slog.Logger
	telemetry  *telemetry.Collector

	mu        sync.Mutex
	cache     *lru.Cache[string, Response]
	cachedFor *themes.ThemesData
}

// NewService creates a search service over source.
func NewService(source ThemeSource, cfg Config, logger *slog.Logger) *Service {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = SearchTopK
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = DefaultResultCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		source:     source,
		maxResults: cfg.MaxResults,
		logger:     logger,
		telemetry:  cfg.Telemetry,
	}
	if cfg.CacheSize > 0 {
		s.cache, _ = lru.New[string, Response](cfg.CacheSize)
	}
	return s
}

// Search runs an evidence search against the current snapshot.
func (s *Service) Search(ctx context.Context, query string) Response {
	start := time.Now()
	data := s.source.Load()

	if resp, ok := s.cached(data, query); ok {
		s.record(query, resp, time.Since(start))
		s.logger.DebugContext(ctx, "search_complete",
			slog.String("query", query),
			slog.Int("results", resp.Count),
			slog.Bool("cached", true),
			slog.Duration("duration", time.Since(start)))
		return resp
	}

	resp := Search(data, query, s.maxResults)
	s.store(data, query, resp)
	s.record(query, resp, time.Since(start))

	s.logger.InfoContext(ctx, "search_complete",
		slog.String("query", query),
		slog.Int("results", resp.Count),
		slog.Bool("cached", false),
		slog.Duration("duration", time.Since(start)))
	return resp
}

// Theme returns one theme from the current snapshot.
func (s *Service) Theme(id int) (*themes.Theme, error) {
	return GetTheme(s.source.Load(), id)
}

// Overview lists all themes in the current snapshot.
func (s *Service) Overview() Overview {
	data := s.source.Load()
	return Overview{Metadata: data.Metadata, Themes: ListThemes(data)}
}

func (s *Service) record(query string, resp Response, latency time.Duration) {
	s.telemetry.Record(telemetry.Event{
		Kind:    telemetry.KindSearch,
		Query:   query,
		Results: resp.Count,
		Latency: latency,
	})
}

func (s *Service) cached(data *themes.ThemesData, query string) (Response, bool) {
	if s.cache == nil {
		return Response{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cachedFor != data {
		s.cache.Purge()
		s.cachedFor = data
		return Response{}, false
	}
	return s.cache.Get(query)
}

func (s *Service) store(data *themes.ThemesData, query string, resp Response) {
	if s.cache == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A reload may have landed while ranking; never cache against a
	// snapshot other than the one the cache currently tracks.
	if s.cachedFor == data {
		s.cache.Add(query, resp)
	}
}
