// Package config loads application configuration from environment variables.
// All variables use the MINERVA_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	AI          AIConfig
	Log         LogConfig
	CatalogPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int
	Host            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL
// disables the generation event log.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis connection settings. An empty URL keeps
// the token budget in process memory.
type CacheConfig struct {
	URL string
}

// AIConfig holds configuration for all AI providers.
type AIConfig struct {
	Google     GoogleConfig
	OpenAI     OpenAIConfig
	Anthropic  AnthropicConfig
	DeepSeek   DeepSeekConfig
	OpenRouter OpenRouterConfig
	Ollama     OllamaConfig
	// DailyTokenBudget caps tokens spent per UTC day; zero is unlimited.
	DailyTokenBudget int
	MaxOutputTokens  int
}

// GoogleConfig holds Google Gemini provider settings.
type GoogleConfig struct {
	APIKey string
	Model  string
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// AnthropicConfig holds Anthropic provider settings.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// DeepSeekConfig holds DeepSeek provider settings (OpenAI-compatible).
type DeepSeekConfig struct {
	APIKey string
}

// OpenRouterConfig holds OpenRouter provider settings.
type OpenRouterConfig struct {
	APIKey string
	Model  string
}

// OllamaConfig holds self-hosted Ollama settings.
type OllamaConfig struct {
	Enabled bool
	URL     string
	Model   string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with MINERVA_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("MINERVA_SERVER_PORT", 8080),
			Host:            envStr("MINERVA_SERVER_HOST", "0.0.0.0"),
			RequestTimeout:  envDuration("MINERVA_SERVER_REQUEST_TIMEOUT", 2*time.Minute),
			ShutdownTimeout: envDuration("MINERVA_SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL:      envStr("MINERVA_DATABASE_URL", ""),
			MaxConns: envInt("MINERVA_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("MINERVA_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL: envStr("MINERVA_CACHE_URL", ""),
		},
		AI: AIConfig{
			Google: GoogleConfig{
				APIKey: envStr("MINERVA_AI_GOOGLE_API_KEY", os.Getenv("GEMINI_API_KEY")),
				Model:  envStr("MINERVA_AI_GOOGLE_MODEL", "gemini-2.5-flash"),
			},
			OpenAI: OpenAIConfig{
				APIKey: envStr("MINERVA_AI_OPENAI_API_KEY", ""),
				Model:  envStr("MINERVA_AI_OPENAI_MODEL", ""),
			},
			Anthropic: AnthropicConfig{
				APIKey: envStr("MINERVA_AI_ANTHROPIC_API_KEY", ""),
				Model:  envStr("MINERVA_AI_ANTHROPIC_MODEL", ""),
			},
			DeepSeek: DeepSeekConfig{
				APIKey: envStr("MINERVA_AI_DEEPSEEK_API_KEY", ""),
			},
			OpenRouter: OpenRouterConfig{
				APIKey: envStr("MINERVA_AI_OPENROUTER_API_KEY", ""),
				Model:  envStr("MINERVA_AI_OPENROUTER_MODEL", ""),
			},
			Ollama: OllamaConfig{
				Enabled: envBool("MINERVA_AI_OLLAMA_ENABLED", false),
				URL:     envStr("MINERVA_AI_OLLAMA_URL", "http://localhost:11434"),
				Model:   envStr("MINERVA_AI_OLLAMA_MODEL", ""),
			},
			DailyTokenBudget: envInt("MINERVA_AI_DAILY_TOKEN_BUDGET", 0),
			MaxOutputTokens:  envInt("MINERVA_AI_MAX_OUTPUT_TOKENS", 8192),
		},
		Log: LogConfig{
			Level:  envStr("MINERVA_LOG_LEVEL", "info"),
			Format: envStr("MINERVA_LOG_FORMAT", "json"),
		},
		CatalogPath: envStr("MINERVA_CATALOG_PATH", ""),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if !c.HasAIProvider() {
		return fmt.Errorf("at least one AI provider must be configured (set MINERVA_AI_GOOGLE_API_KEY or GEMINI_API_KEY)")
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("MINERVA_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("MINERVA_LOG_LEVEL must be debug, info, warn or error, got %q", c.Log.Level)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("MINERVA_SERVER_PORT out of range: %d", c.Server.Port)
	}
	if c.AI.DailyTokenBudget < 0 {
		return fmt.Errorf("MINERVA_AI_DAILY_TOKEN_BUDGET must not be negative")
	}
	if c.Database.URL != "" && c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("MINERVA_DATABASE_MIN_CONNS (%d) exceeds MINERVA_DATABASE_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns)
	}

	return nil
}

// HasAIProvider returns true if at least one AI provider is configured.
func (c *Config) HasAIProvider() bool {
	return c.AI.Google.APIKey != "" ||
		c.AI.OpenAI.APIKey != "" ||
		c.AI.Anthropic.APIKey != "" ||
		c.AI.DeepSeek.APIKey != "" ||
		c.AI.OpenRouter.APIKey != "" ||
		c.AI.Ollama.Enabled
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
