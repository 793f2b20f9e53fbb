package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	surveyerrors "github.com/Aman-CERP/surveydash/internal/errors"
	"github.com/Aman-CERP/surveydash/internal/search"
	"github.com/Aman-CERP/surveydash/internal/telemetry"
)

// Defaults for Config fields left at zero.
const (
	DefaultMaxMessageChars = 2000
	DefaultMaxHistoryTurns = 10
	DefaultTimeout         = 30 * time.Second
)

// DefaultInstructions frames the provider as a survey analyst.
const DefaultInstructions = `You are an analyst answering questions about customer survey feedback.
Answer using only the numbered survey responses provided as context.
Refer to responses by their number, e.g. [2], when you rely on them.
If the context does not answer the question, say so plainly instead of guessing.
Keep answers short and factual.`

// Role is the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior message in the conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a chat request.
type Request struct {
	Message string `json:"message"`
	History []Turn `json:"history,omitempty"`
}

// Response is a grounded chat reply.
type Response struct {
	Response string   `json:"response"`
	Sources  []Source `json:"sources"`
}

// Prompt is everything a Generator needs for one reply.
type Prompt struct {
	Instructions string
	Context      string
	Message      string
	History      []Turn
}

// Generator produces a reply from a grounded prompt.
// Implementations must not retry internally.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// Config configures a Service.
type Config struct {
	// ContextSize is the number of quotes used for grounding (default search.ChatTopK).
	ContextSize int

	// MaxMessageChars caps message length in runes.
	MaxMessageChars int

	// MaxHistoryTurns keeps only the most recent turns. Negative drops
	// history entirely.
	MaxHistoryTurns int

	// Timeout bounds the provider call.
	Timeout time.Duration

	// Instructions overrides DefaultInstructions.
	Instructions string

	// Telemetry receives one event per provider call. Nil disables recording.
	Telemetry *telemetry.Collector
}

// Service answers chat requests grounded on the live themes snapshot.
type Service struct {
	source search.ThemeSource
	gen    Generator
	cfg    Config
	logger *slog.Logger
}

// NewService creates a chat service. gen may be nil when no provider
// credential is configured; Chat then fails with a configuration error.
func NewService(source search.ThemeSource, gen Generator, cfg Config, logger *slog.Logger) *Service {
	if cfg.ContextSize <= 0 {
		cfg.ContextSize = search.ChatTopK
	}
	if cfg.MaxMessageChars <= 0 {
		cfg.MaxMessageChars = DefaultMaxMessageChars
	}
	switch {
	case cfg.MaxHistoryTurns == 0:
		cfg.MaxHistoryTurns = DefaultMaxHistoryTurns
	case cfg.MaxHistoryTurns < 0:
		cfg.MaxHistoryTurns = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Instructions == "" {
		cfg.Instructions = DefaultInstructions
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, gen: gen, cfg: cfg, logger: logger}
}

// Available reports whether a provider is configured.
func (s *Service) Available() bool {
	return s.gen != nil
}

// Context returns the grounding context and sources for message without
// calling the provider.
func (s *Service) Context(message string) (string, []Source) {
	data := s.source.Load()
	text, quotes := BuildContext(data, message, s.cfg.ContextSize)
	return text, Sources(data, quotes)
}

// Chat validates req, grounds it on the current snapshot, and asks the
// provider for a reply.
func (s *Service) Chat(ctx context.Context, req Request) (*Response, error) {
	if err := s.validate(req.Message); err != nil {
		return nil, err
	}
	if s.gen == nil {
		return nil, surveyerrors.New(surveyerrors.ErrCodeCredentialMissing, "chat provider is not configured", nil).
			WithSuggestion("set the provider API key environment variable and restart the server")
	}

	start := time.Now()
	contextText, sources := s.Context(req.Message)

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	reply, err := s.gen.Generate(callCtx, Prompt{
		Instructions: s.cfg.Instructions,
		Context:      contextText,
		Message:      req.Message,
		History:      s.history(req.History),
	})
	s.cfg.Telemetry.Record(telemetry.Event{
		Kind:    telemetry.KindChat,
		Query:   req.Message,
		Results: len(sources),
		Latency: time.Since(start),
		Failed:  err != nil,
	})
	if err != nil {
		err = upstreamError(err)
		attrs := append(surveyerrors.LogAttrs(err), slog.Duration("duration", time.Since(start)))
		s.logger.LogAttrs(ctx, slog.LevelError, "chat_failed", attrs...)
		return nil, err
	}

	s.logger.InfoContext(ctx, "chat_complete",
		slog.Int("sources", len(sources)),
		slog.Int("message_chars", utf8.RuneCountInString(req.Message)),
		slog.Duration("duration", time.Since(start)))

	return &Response{Response: reply, Sources: sources}, nil
}

func (s *Service) validate(message string) error {
	if strings.TrimSpace(message) == "" {
		return surveyerrors.New(surveyerrors.ErrCodeMessageEmpty, "message is required", nil)
	}
	if n := utf8.RuneCountInString(message); n > s.cfg.MaxMessageChars {
		return surveyerrors.New(surveyerrors.ErrCodeMessageTooLong,
			fmt.Sprintf("message is %d characters; the limit is %d", n, s.cfg.MaxMessageChars), nil).
			WithDetail("limit", fmt.Sprint(s.cfg.MaxMessageChars))
	}
	return nil
}

// history drops unknown roles and blank turns, then keeps the most recent
// MaxHistoryTurns.
func (s *Service) history(turns []Turn) []Turn {
	kept := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if t.Role != RoleUser && t.Role != RoleAssistant {
			continue
		}
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		kept = append(kept, t)
	}
	if len(kept) > s.cfg.MaxHistoryTurns {
		kept = kept[len(kept)-s.cfg.MaxHistoryTurns:]
	}
	return kept
}

// upstreamError maps a provider failure onto the 3XX codes.
func upstreamError(err error) error {
	if se, ok := surveyerrors.As(err); ok && se.Category == surveyerrors.CategoryUpstream {
		return se
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return surveyerrors.New(surveyerrors.ErrCodeUpstreamTimeout, "chat provider timed out", err)
	}
	return surveyerrors.UpstreamError("chat provider request failed", err)
}
