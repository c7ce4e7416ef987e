package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	// Server
	HTTPAddr string
	AppEnv   string
	LogLevel string

	// UI surfaces
	UIAllowedOrigins []string
	APIToken         string

	// Push server
	NotifyBaseURL   string
	NotifyToken     string
	NotifyTokenFile string
	TokenExpirySkew time.Duration
	AutoConnect     bool

	// Redis token store; disabled when RedisAddrs is empty
	RedisAddrs       []string
	RedisPass        string
	RedisDB          int
	RedisClusterMode bool
	RedisTokenKey    string

	// Orchestrator
	ActiveCapacity  int
	HistoryCapacity int

	// Realtime channel
	HeartbeatInterval    time.Duration
	ReconnectDelay       time.Duration
	ReconnectMaxAttempts int
	ReconnectBackoff     string
	ReconnectMaxDelay    time.Duration
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr: getEnv("HTTP_ADDR", ":8000"),
		AppEnv:   getEnv("APP_ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		UIAllowedOrigins: getEnvSlice("UI_ALLOWED_ORIGINS", []string{"*"}),
		APIToken:         getEnv("API_TOKEN", ""),

		NotifyBaseURL:   getEnv("NOTIFY_BASE_URL", "http://localhost:8080"),
		NotifyToken:     getEnv("NOTIFY_TOKEN", ""),
		NotifyTokenFile: getEnv("NOTIFY_TOKEN_FILE", ""),
		TokenExpirySkew: getEnvDuration("TOKEN_EXPIRY_SKEW", 30*time.Second),
		AutoConnect:     getEnvBool("AUTO_CONNECT", true),

		RedisAddrs:       getEnvSlice("REDIS_ADDR", nil),
		RedisPass:        getEnv("REDIS_PASS", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		RedisClusterMode: getEnvBool("REDIS_CLUSTER_MODE", false),
		RedisTokenKey:    getEnv("REDIS_TOKEN_KEY", "relay:access_token"),

		ActiveCapacity:  getEnvInt("ACTIVE_CAPACITY", 5),
		HistoryCapacity: getEnvInt("HISTORY_CAPACITY", 100),

		HeartbeatInterval:    getEnvDuration("HEARTBEAT_INTERVAL", 30*time.Second),
		ReconnectDelay:       getEnvDuration("RECONNECT_DELAY", 5*time.Second),
		ReconnectMaxAttempts: getEnvInt("RECONNECT_MAX_ATTEMPTS", 5),
		ReconnectBackoff:     strings.ToLower(getEnv("RECONNECT_BACKOFF", "fixed")),
		ReconnectMaxDelay:    getEnvDuration("RECONNECT_MAX_DELAY", time.Minute),
	}
}

// Validate reports the first setting the relay cannot start with.
func (c AppConfig) Validate() error {
	switch {
	case c.NotifyBaseURL == "":
		return fmt.Errorf("NOTIFY_BASE_URL is required")
	case c.ActiveCapacity <= 0:
		return fmt.Errorf("ACTIVE_CAPACITY must be positive, got %d", c.ActiveCapacity)
	case c.HistoryCapacity <= 0:
		return fmt.Errorf("HISTORY_CAPACITY must be positive, got %d", c.HistoryCapacity)
	case c.ReconnectMaxAttempts <= 0:
		return fmt.Errorf("RECONNECT_MAX_ATTEMPTS must be positive, got %d", c.ReconnectMaxAttempts)
	case c.ReconnectBackoff != "fixed" && c.ReconnectBackoff != "exponential":
		return fmt.Errorf("RECONNECT_BACKOFF must be fixed or exponential, got %q", c.ReconnectBackoff)
	}
	return nil
}

func (c AppConfig) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev" || c.AppEnv == "local"
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("5s") or plain milliseconds ("5000").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
