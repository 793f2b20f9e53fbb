package cmd

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/surveydash/internal/chat"
	"github.com/Aman-CERP/surveydash/internal/config"
	surveyerrors "github.com/Aman-CERP/surveydash/internal/errors"
	"github.com/Aman-CERP/surveydash/internal/metrics"
	"github.com/Aman-CERP/surveydash/internal/search"
	"github.com/Aman-CERP/surveydash/internal/server"
	"github.com/Aman-CERP/surveydash/internal/telemetry"
	"github.com/Aman-CERP/surveydash/internal/themes"
)

// app is the set of services built from one effective configuration.
type app struct {
	cfg     *config.Config
	themes  *themes.Store
	metrics *metrics.Store
	search  *search.Service
	chat    *chat.Service
	tel     *telemetry.Collector
	logger  *slog.Logger
}

// newApp loads the configuration for dir and wires the stores and services.
// A missing provider credential is not an error: chat requests then fail
// with ERR_103 while search keeps working.
func newApp(dir string, logger *slog.Logger) (*app, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, surveyerrors.ConfigError("failed to load configuration", err).
			WithSuggestion("Check .surveydash.yaml and SURVEYDASH_* environment variables")
	}

	a := &app{cfg: cfg, logger: logger, tel: telemetry.NewCollector(telemetry.Config{})}
	a.themes = themes.NewStore(cfg.Artifacts.ThemesPath, themes.WithLogger(logger))
	a.metrics = metrics.NewStore(cfg.Artifacts.MetricsPath, logger)

	sc := searchConfig(cfg)
	sc.Telemetry = a.tel
	a.search = search.NewService(a.themes, sc, logger)

	cc := chatConfig(cfg)
	cc.Telemetry = a.tel

	gen, err := newGenerator(cfg)
	if err != nil {
		logger.LogAttrs(context.Background(), slog.LevelWarn, "chat_unavailable", surveyerrors.LogAttrs(err)...)
	}
	if gen == nil {
		// Keeps the interface nil rather than a typed nil pointer.
		a.chat = chat.NewService(a.themes, nil, cc, logger)
	} else {
		a.chat = chat.NewService(a.themes, gen, cc, logger)
	}

	logger.Debug("app_ready",
		slog.String("themes_path", cfg.Artifacts.ThemesPath),
		slog.String("metrics_path", cfg.Artifacts.MetricsPath),
		slog.Bool("chat_available", a.chat.Available()))
	return a, nil
}

// newGenerator returns the OpenAI generator, or nil without error when no
// API key is configured.
func newGenerator(cfg *config.Config) (*chat.OpenAIGenerator, error) {
	key := cfg.APIKey()
	if key == "" {
		return nil, nil
	}
	return chat.NewOpenAIGenerator(chat.OpenAIConfig{
		APIKey:          key,
		Model:           cfg.Chat.Model,
		MaxOutputTokens: int64(cfg.Chat.MaxOutputTokens),
		BaseURL:         cfg.Chat.BaseURL,
	})
}

// searchConfig maps config to the search service, where a zero cache size
// means "default" rather than "off".
func searchConfig(cfg *config.Config) search.Config {
	sc := search.Config{
		MaxResults: cfg.Search.MaxResults,
		CacheSize:  cfg.Search.ResultCacheSize,
	}
	if sc.CacheSize == 0 {
		sc.CacheSize = -1
	}
	return sc
}

func chatConfig(cfg *config.Config) chat.Config {
	cc := chat.Config{
		ContextSize:     cfg.Search.ChatContextSize,
		MaxMessageChars: cfg.Chat.MaxMessageChars,
		MaxHistoryTurns: cfg.Chat.MaxHistoryTurns,
		Timeout:         cfg.ChatTimeout(),
	}
	if cc.MaxHistoryTurns == 0 {
		cc.MaxHistoryTurns = -1
	}
	return cc
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		Address:         cfg.Server.Address,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.ReadTimeout(),
		WriteTimeout:    cfg.WriteTimeout(),
		ShutdownTimeout: cfg.ShutdownTimeout(),
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		ChatRateLimit:   cfg.Chat.RateLimit,
		ChatRateBurst:   cfg.Chat.RateBurst,
	}
}
