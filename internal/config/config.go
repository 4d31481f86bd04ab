// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported extraction providers.
const (
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath string
	LogLevel     string
	GamesFile    string
	HTTPAddr     string

	RSSSource    string
	FetchTimeout time.Duration

	ScanInterval time.Duration
	StartupDelay time.Duration

	ExtractorProvider string
	ExtractTimeout    time.Duration
	ExtractPerMinute  int
	DeepSeekAPIKey    string
	DeepSeekAPIBase   string
	DeepSeekModel     string
	GeminiAPIKey      string
	GeminiModel       string

	TelegramBotToken string
	TelegramChatIDs  []int64
	AllowedUsers     []int64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath:      envOr("DATABASE_PATH", "./data/codes.db"),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		GamesFile:         os.Getenv("GAMES_FILE"),
		HTTPAddr:          envOr("HTTP_ADDR", ":3000"),
		RSSSource:         strings.TrimRight(envOr("RSS_SOURCE", "http://127.0.0.1:1200"), "/"),
		ExtractorProvider: strings.ToLower(envOr("EXTRACTOR_PROVIDER", ProviderDeepSeek)),
		DeepSeekAPIKey:    os.Getenv("DEEPSEEK_API_KEY"),
		DeepSeekAPIBase:   strings.TrimRight(envOr("DEEPSEEK_API_BASE", "https://api.deepseek.com/v1"), "/"),
		DeepSeekModel:     envOr("DEEPSEEK_MODEL", "deepseek-chat"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	var err error
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"FETCH_TIMEOUT", 30 * time.Second, &cfg.FetchTimeout},
		{"SCAN_INTERVAL", time.Hour, &cfg.ScanInterval},
		{"STARTUP_DELAY", 5 * time.Second, &cfg.StartupDelay},
		{"EXTRACT_TIMEOUT", 60 * time.Second, &cfg.ExtractTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = durationEnv(d.key, d.def); err != nil {
			return nil, err
		}
	}
	if cfg.ScanInterval <= 0 {
		return nil, fmt.Errorf("SCAN_INTERVAL must be positive")
	}

	cfg.ExtractPerMinute = 30
	if raw := os.Getenv("EXTRACT_RATE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid EXTRACT_RATE %q: must be a positive integer", raw)
		}
		cfg.ExtractPerMinute = n
	}

	switch cfg.ExtractorProvider {
	case ProviderDeepSeek:
		if cfg.DeepSeekAPIKey == "" {
			return nil, fmt.Errorf("DEEPSEEK_API_KEY is required")
		}
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required")
		}
	default:
		return nil, fmt.Errorf("unknown EXTRACTOR_PROVIDER %q", cfg.ExtractorProvider)
	}

	if cfg.TelegramChatIDs, err = idListEnv("TELEGRAM_CHAT_IDS"); err != nil {
		return nil, err
	}
	if cfg.AllowedUsers, err = idListEnv("ALLOWED_USERS"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsUserAllowed checks whether a user ID may run privileged bot commands.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func idListEnv(key string) ([]int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return nil, nil
	}
	var ids []int64
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ID %q in %s: %w", s, key, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
