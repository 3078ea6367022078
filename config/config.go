package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host string `json:"host"`
	Port int    `json:"port"`

	// Default LLM backend, used when a request carries no model configs
	// of its own.
	LLMProvider string `json:"llm_provider"`
	LLMBaseURL  string `json:"llm_base_url"`
	LLMAPIKey   string `json:"-"`
	LLMModel    string `json:"llm_model"`

	// Per-call budget and retry bound for the debate engine.
	CallTimeout  time.Duration `json:"call_timeout"`
	CallRetries  int           `json:"call_retries"`
	RetryBackoff time.Duration `json:"retry_backoff"`

	// Score assigned when a model's output carries no parseable
	// confidence figure.
	NeutralConfidence int `json:"neutral_confidence"`

	DataDir      string `json:"data_dir"`
	CacheEnabled bool   `json:"cache_enabled"`
	CacheTTL     time.Duration `json:"cache_ttl"`

	WatchlistDB string `json:"watchlist_db"`

	NewsEnabled  bool `json:"news_enabled"`
	NewsMaxItems int  `json:"news_max_items"`

	Debug bool `json:"debug"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		Host: "0.0.0.0",
		Port: 8900,

		LLMProvider: "openai",
		LLMBaseURL:  "https://api.openai.com/v1",
		LLMModel:    "gpt-4o-mini",

		CallTimeout:  30 * time.Second,
		CallRetries:  1,
		RetryBackoff: 2 * time.Second,

		NeutralConfidence: 50,

		DataDir:      filepath.Join(currentDir, "data"),
		CacheEnabled: true,
		CacheTTL:     5 * time.Minute,

		WatchlistDB: filepath.Join(currentDir, "data", "watchlist.db"),

		NewsEnabled:  true,
		NewsMaxItems: 5,

		Debug: false,
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("LENSCORE_HOST"); val != "" {
		c.Host = val
	}
	if val := os.Getenv("LENSCORE_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Port = port
		}
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = val
	}
	if val := os.Getenv("LLM_BASE_URL"); val != "" {
		c.LLMBaseURL = val
	}
	if val := os.Getenv("LLM_API_KEY"); val != "" {
		c.LLMAPIKey = val
	}
	if val := os.Getenv("LLM_MODEL"); val != "" {
		c.LLMModel = val
	}

	if val := os.Getenv("LLM_CALL_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.CallTimeout = d
		}
	}
	if val := os.Getenv("LLM_CALL_RETRIES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n >= 0 {
			c.CallRetries = n
		}
	}
	if val := os.Getenv("LLM_RETRY_BACKOFF"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.RetryBackoff = d
		}
	}

	if val := os.Getenv("NEUTRAL_CONFIDENCE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n >= 0 && n <= 100 {
			c.NeutralConfidence = n
		}
	}

	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = enabled
		}
	}
	if val := os.Getenv("CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.CacheTTL = d
		}
	}

	if val := os.Getenv("WATCHLIST_DB"); val != "" {
		c.WatchlistDB = val
	}

	if val := os.Getenv("NEWS_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.NewsEnabled = enabled
		}
	}
	if val := os.Getenv("NEWS_MAX_ITEMS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.NewsMaxItems = n
		}
	}

	if val := os.Getenv("LENSCORE_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
}

// Addr is the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, filepath.Dir(c.WatchlistDB)}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
