// Package telemetry keeps in-memory statistics about the questions analysts
// ask: which terms they search for, which searches find nothing, and how
// long answers take. Nothing leaves the process.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Kind identifies the operation that produced an event.
type Kind string

const (
	KindSearch Kind = "search"
	KindChat   Kind = "chat"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketUnder10ms  LatencyBucket = "lt_10ms"
	BucketUnder100ms LatencyBucket = "lt_100ms"
	BucketUnder1s    LatencyBucket = "lt_1s"
	BucketUnder5s    LatencyBucket = "lt_5s"
	BucketOver5s     LatencyBucket = "ge_5s"
)

// LatencyToBucket converts a duration to its histogram bucket. Chat calls
// take seconds, so the buckets are wider than a search alone needs.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch {
	case d < 10*time.Millisecond:
		return BucketUnder10ms
	case d < 100*time.Millisecond:
		return BucketUnder100ms
	case d < time.Second:
		return BucketUnder1s
	case d < 5*time.Second:
		return BucketUnder5s
	default:
		return BucketOver5s
	}
}

// Event is one answered (or failed) search or chat request.
type Event struct {
	Kind      Kind
	Query     string
	Results   int
	Latency   time.Duration
	Failed    bool
	Timestamp time.Time
}

// ZeroResult is a search that matched no quotes.
type ZeroResult struct {
	Query string    `json:"query"`
	At    time.Time `json:"at"`
}

// TermCount is a query term and how often it was asked.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of the collected statistics.
type Snapshot struct {
	Since           time.Time               `json:"since"`
	TotalQueries    int64                   `json:"total_queries"`
	ByKind          map[Kind]int64          `json:"by_kind"`
	Failures        map[Kind]int64          `json:"failures"`
	ZeroResultCount int64                   `json:"zero_result_count"`
	ZeroResults     []ZeroResult            `json:"zero_result_queries"`
	TopTerms        []TermCount             `json:"top_terms"`
	Latency         map[LatencyBucket]int64 `json:"latency"`
	RepeatCount     int64                   `json:"repeat_count"`
	RepeatRate      float64                 `json:"repeat_rate"`
}

// ZeroResultPercentage returns the share of searches that found nothing.
func (s Snapshot) ZeroResultPercentage() float64 {
	searches := s.ByKind[KindSearch]
	if searches == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(searches) * 100
}

// Config sizes the collector. Zero fields take the defaults.
type Config struct {
	// TermsCapacity bounds distinct terms tracked (default 200).
	TermsCapacity int
	// ZeroResultsCapacity bounds remembered zero-result searches (default 50).
	ZeroResultsCapacity int
	// RecentQueriesCapacity bounds the window for repeat detection (default 500).
	RecentQueriesCapacity int
}

// DefaultConfig returns the default collector sizes.
func DefaultConfig() Config {
	return Config{
		TermsCapacity:         200,
		ZeroResultsCapacity:   50,
		RecentQueriesCapacity: 500,
	}
}

// minTermRunes drops very short tokens such as "a" or "of".
const minTermRunes = 3

// Collector aggregates events. A nil *Collector ignores everything, so
// callers need no guard. Safe for concurrent use.
type Collector struct {
	mu          sync.Mutex
	since       time.Time
	total       int64
	byKind      map[Kind]int64
	failures    map[Kind]int64
	zeroCount   int64
	zeroResults *Ring[ZeroResult]
	terms       *lru.Cache[string, int64]
	latency     map[LatencyBucket]int64
	recent      *lru.Cache[string, struct{}]
	repeats     int64
}

// NewCollector creates a collector.
func NewCollector(cfg Config) *Collector {
	def := DefaultConfig()
	if cfg.TermsCapacity <= 0 {
		cfg.TermsCapacity = def.TermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = def.ZeroResultsCapacity
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = def.RecentQueriesCapacity
	}

	terms, _ := lru.New[string, int64](cfg.TermsCapacity)
	recent, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	return &Collector{
		since:       time.Now().UTC(),
		byKind:      make(map[Kind]int64),
		failures:    make(map[Kind]int64),
		zeroResults: NewRing[ZeroResult](cfg.ZeroResultsCapacity),
		terms:       terms,
		latency:     make(map[LatencyBucket]int64),
		recent:      recent,
	}
}

// Record adds one event.
func (c *Collector) Record(e Event) {
	if c == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	c.byKind[e.Kind]++
	c.latency[LatencyToBucket(e.Latency)]++

	if e.Failed {
		c.failures[e.Kind]++
		return
	}

	for _, term := range ExtractTerms(e.Query) {
		n, _ := c.terms.Get(term)
		c.terms.Add(term, n+1)
	}

	// Chat messages are free text and may be personal; only search
	// queries are kept verbatim.
	if e.Kind == KindSearch && e.Results == 0 {
		c.zeroCount++
		c.zeroResults.Add(ZeroResult{Query: e.Query, At: e.Timestamp.UTC()})
	}

	key := hashQuery(e.Kind, e.Query)
	if _, seen := c.recent.Get(key); seen {
		c.repeats++
	}
	c.recent.Add(key, struct{}{})
}

// Snapshot copies the statistics, keeping the topN most frequent terms
// (all when topN <= 0). Zero-result queries are newest first.
func (c *Collector) Snapshot(topN int) Snapshot {
	if c == nil {
		return Snapshot{
			ByKind:      map[Kind]int64{},
			Failures:    map[Kind]int64{},
			ZeroResults: []ZeroResult{},
			TopTerms:    []TermCount{},
			Latency:     map[LatencyBucket]int64{},
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Since:           c.since,
		TotalQueries:    c.total,
		ByKind:          copyMap(c.byKind),
		Failures:        copyMap(c.failures),
		ZeroResultCount: c.zeroCount,
		Latency:         copyMap(c.latency),
		RepeatCount:     c.repeats,
	}

	zero := c.zeroResults.Items()
	for i, j := 0, len(zero)-1; i < j; i, j = i+1, j-1 {
		zero[i], zero[j] = zero[j], zero[i]
	}
	s.ZeroResults = zero

	terms := make([]TermCount, 0, c.terms.Len())
	for _, k := range c.terms.Keys() {
		if n, ok := c.terms.Peek(k); ok {
			terms = append(terms, TermCount{Term: k, Count: n})
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})
	if topN > 0 && len(terms) > topN {
		terms = terms[:topN]
	}
	s.TopTerms = terms

	if answered := c.total - sum(c.failures); answered > 0 {
		s.RepeatRate = float64(c.repeats) / float64(answered)
	}
	return s
}

// ExtractTerms lowercases query and splits it on anything that is not a
// letter or digit, dropping tokens shorter than three runes.
func ExtractTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	terms := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTermRunes {
			terms = append(terms, f)
		}
	}
	if len(terms) == 0 {
		return nil
	}
	return terms
}

// hashQuery keys repeat detection without holding the query text.
func hashQuery(kind Kind, query string) string {
	normalized := string(kind) + "\x00" + strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}

func copyMap[K comparable](m map[K]int64) map[K]int64 {
	out := make(map[K]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sum[K comparable](m map[K]int64) int64 {
	var n int64
	for _, v := range m {
		n += v
	}
	return n
}
