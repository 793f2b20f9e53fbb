package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete surveydash configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Artifacts ArtifactsConfig `yaml:"artifacts" json:"artifacts"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Chat      ChatConfig      `yaml:"chat" json:"chat"`
	Server    ServerConfig    `yaml:"server" json:"server"`
}

// ArtifactsConfig locates the pipeline outputs.
type ArtifactsConfig struct {
	// ThemesPath is the themes.json artifact.
	ThemesPath string `yaml:"themes_path" json:"themes_path"`

	// MetricsPath is the metrics.json artifact.
	MetricsPath string `yaml:"metrics_path" json:"metrics_path"`

	// Watch enables proactive reloads on file change (default: true).
	// Requests still check mtime when disabled.
	Watch bool `yaml:"watch" json:"watch"`

	// WatchDebounce coalesces bursts of file events (default: "200ms").
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
}

// SearchConfig configures evidence search and chat retrieval.
type SearchConfig struct {
	// MaxResults caps evidence search hits (default: 20).
	MaxResults int `yaml:"max_results" json:"max_results"`

	// ChatContextSize is the number of quotes used to ground chat (default: 5).
	ChatContextSize int `yaml:"chat_context_size" json:"chat_context_size"`

	// ResultCacheSize is the search response LRU capacity; 0 disables it.
	ResultCacheSize int `yaml:"result_cache_size" json:"result_cache_size"`
}

// ChatConfig configures the generative-text provider.
type ChatConfig struct {
	Model string `yaml:"model" json:"model"`

	// APIKeyEnv names the environment variable holding the API key.
	// The key itself is never read from config files.
	APIKeyEnv string `yaml:"api_key_env" json:"api_key_env"`

	// BaseURL overrides the provider endpoint (empty uses the default).
	BaseURL string `yaml:"base_url" json:"base_url"`

	MaxOutputTokens int    `yaml:"max_output_tokens" json:"max_output_tokens"`
	Timeout         string `yaml:"timeout" json:"timeout"`
	MaxMessageChars int    `yaml:"max_message_chars" json:"max_message_chars"`
	MaxHistoryTurns int    `yaml:"max_history_turns" json:"max_history_turns"`

	// RateLimit is chat requests per second across all clients; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" json:"rate_burst"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Address         string `yaml:"address" json:"address"`
	Port            int    `yaml:"port" json:"port"`
	ReadTimeout     string `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	LogLevel        string `yaml:"log_level" json:"log_level"`
	MaxBodyBytes    int64  `yaml:"max_body_bytes" json:"max_body_bytes"`
}

// Project config file names, in lookup order.
var projectConfigNames = []string{".surveydash.yaml", ".surveydash.yml"}

// NewConfig returns a configuration with defaults applied.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Artifacts: ArtifactsConfig{
			ThemesPath:    filepath.Join("artifacts", "themes.json"),
			MetricsPath:   filepath.Join("artifacts", "metrics.json"),
			Watch:         true,
			WatchDebounce: "200ms",
		},
		Search: SearchConfig{
			MaxResults:      20,
			ChatContextSize: 5,
			ResultCacheSize: 256,
		},
		Chat: ChatConfig{
			Model:           "gpt-4o-mini",
			APIKeyEnv:       "OPENAI_API_KEY",
			MaxOutputTokens: 800,
			Timeout:         "30s",
			MaxMessageChars: 2000,
			MaxHistoryTurns: 10,
			RateLimit:       2,
			RateBurst:       5,
		},
		Server: ServerConfig{
			Address:         "127.0.0.1",
			Port:            8080,
			ReadTimeout:     "15s",
			WriteTimeout:    "60s",
			ShutdownTimeout: "10s",
			LogLevel:        "info",
			MaxBodyBytes:    64 << 10,
		},
	}
}

// GetUserConfigPath returns the user-level config path, honouring XDG_CONFIG_HOME.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "surveydash", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "surveydash", "config.yaml")
	}
	return filepath.Join(home, ".config", "surveydash", "config.yaml")
}

// UserConfigExists reports whether a user config file is present.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load builds the effective configuration for dir.
//
// Precedence, lowest first:
//  1. Defaults
//  2. User config ($XDG_CONFIG_HOME/surveydash/config.yaml)
//  3. Project config (dir/.surveydash.yaml or .yml)
//  4. SURVEYDASH_* environment variables
//
// Relative artifact paths in the project file are resolved against dir.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if err := cfg.loadFromDir(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()
	cfg.resolvePaths(dir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ProjectConfigPath returns the project config file in dir, or "" if none.
func ProjectConfigPath(dir string) string {
	for _, name := range projectConfigNames {
		if p := filepath.Join(dir, name); fileExists(p) {
			return p
		}
	}
	return ""
}

func (c *Config) loadFromDir(dir string) error {
	if p := ProjectConfigPath(dir); p != "" {
		return c.loadYAML(p)
	}
	return nil
}

// loadYAML overlays the file onto c. Keys absent from the file keep their
// current values.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) resolvePaths(dir string) {
	if dir == "" {
		return
	}
	if c.Artifacts.ThemesPath != "" && !filepath.IsAbs(c.Artifacts.ThemesPath) {
		c.Artifacts.ThemesPath = filepath.Join(dir, c.Artifacts.ThemesPath)
	}
	if c.Artifacts.MetricsPath != "" && !filepath.IsAbs(c.Artifacts.MetricsPath) {
		c.Artifacts.MetricsPath = filepath.Join(dir, c.Artifacts.MetricsPath)
	}
}

// applyEnvOverrides applies SURVEYDASH_* variables. Unparsable values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SURVEYDASH_THEMES_PATH"); v != "" {
		c.Artifacts.ThemesPath = v
	}
	if v := os.Getenv("SURVEYDASH_METRICS_PATH"); v != "" {
		c.Artifacts.MetricsPath = v
	}
	if v := os.Getenv("SURVEYDASH_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Artifacts.Watch = b
		}
	}

	if v := os.Getenv("SURVEYDASH_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}

	if v := os.Getenv("SURVEYDASH_CHAT_MODEL"); v != "" {
		c.Chat.Model = v
	}
	if v := os.Getenv("SURVEYDASH_CHAT_BASE_URL"); v != "" {
		c.Chat.BaseURL = v
	}
	if v := os.Getenv("SURVEYDASH_CHAT_TIMEOUT"); v != "" {
		c.Chat.Timeout = v
	}

	if v := os.Getenv("SURVEYDASH_ADDRESS"); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv("SURVEYDASH_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("SURVEYDASH_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
}

// APIKey returns the provider key from the configured environment variable.
func (c *Config) APIKey() string {
	if c.Chat.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(c.Chat.APIKeyEnv))
}

// ListenAddr returns host:port for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// WatchDebounce returns the parsed watch debounce.
func (c *Config) WatchDebounce() time.Duration {
	return mustDuration(c.Artifacts.WatchDebounce)
}

// ChatTimeout returns the parsed provider timeout.
func (c *Config) ChatTimeout() time.Duration {
	return mustDuration(c.Chat.Timeout)
}

// ReadTimeout returns the parsed server read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return mustDuration(c.Server.ReadTimeout)
}

// WriteTimeout returns the parsed server write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return mustDuration(c.Server.WriteTimeout)
}

// ShutdownTimeout returns the parsed graceful shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	return mustDuration(c.Server.ShutdownTimeout)
}

// mustDuration parses a duration already checked by Validate; invalid or
// empty values yield zero.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Artifacts.ThemesPath == "" {
		return fmt.Errorf("artifacts.themes_path must be set")
	}
	if c.Artifacts.MetricsPath == "" {
		return fmt.Errorf("artifacts.metrics_path must be set")
	}

	durations := map[string]string{
		"artifacts.watch_debounce": c.Artifacts.WatchDebounce,
		"chat.timeout":             c.Chat.Timeout,
		"server.read_timeout":      c.Server.ReadTimeout,
		"server.write_timeout":     c.Server.WriteTimeout,
		"server.shutdown_timeout":  c.Server.ShutdownTimeout,
	}
	for name, v := range durations {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s must be a duration like \"30s\", got %q", name, v)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, v)
		}
	}

	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", c.Search.MaxResults)
	}
	if c.Search.ChatContextSize <= 0 {
		return fmt.Errorf("search.chat_context_size must be positive, got %d", c.Search.ChatContextSize)
	}
	if c.Search.ResultCacheSize < 0 {
		return fmt.Errorf("search.result_cache_size must be non-negative, got %d", c.Search.ResultCacheSize)
	}

	if c.Chat.MaxOutputTokens <= 0 {
		return fmt.Errorf("chat.max_output_tokens must be positive, got %d", c.Chat.MaxOutputTokens)
	}
	if c.Chat.MaxMessageChars <= 0 {
		return fmt.Errorf("chat.max_message_chars must be positive, got %d", c.Chat.MaxMessageChars)
	}
	if c.Chat.MaxHistoryTurns < 0 {
		return fmt.Errorf("chat.max_history_turns must be non-negative, got %d", c.Chat.MaxHistoryTurns)
	}
	if c.Chat.RateLimit < 0 {
		return fmt.Errorf("chat.rate_limit must be non-negative, got %g", c.Chat.RateLimit)
	}
	if c.Chat.RateLimit > 0 && c.Chat.RateBurst <= 0 {
		return fmt.Errorf("chat.rate_burst must be positive when rate_limit is set, got %d", c.Chat.RateBurst)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file, creating parent directories.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
