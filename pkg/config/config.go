package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mediaecomx/dashboard-project/internal/attribution"
	"github.com/mediaecomx/dashboard-project/internal/domain"
)

// Application settings
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Analytics AnalyticsConfig
	Quota     QuotaConfig
	Report    ReportConfig
	Redis     RedisConfig

	// Externally supplied, read-only inputs
	Vocabulary attribution.Vocabulary
	Stores     []domain.StoreCredential
}

// Server settings
type ServerConfig struct {
	Port string
}

// Logging settings
type LoggingConfig struct {
	Level string
}

// Analytics upstream settings
type AnalyticsConfig struct {
	BaseURL            string
	APIKey             string
	PropertyIDs        []string
	RequestTimeout     time.Duration
	RateLimitPerSecond int
}

// Quota scheduler settings
type QuotaConfig struct {
	GuardThreshold    int64
	DegradedThreshold int64
	NormalTTL         time.Duration
	DegradedTTL       time.Duration
	HourlyBudget      int64
	DailyBudget       int64
}

// Report settings
type ReportConfig struct {
	Timezone       string
	RealtimeWindow time.Duration
	StoreTimeout   time.Duration
	HistoryTimeout time.Duration
	TrendRetention time.Duration
}

// Redis settings for the trend snapshot store
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Key      string
}

func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Analytics: AnalyticsConfig{
			BaseURL:            getEnv("ANALYTICS_API_URL", ""),
			APIKey:             getEnv("ANALYTICS_API_KEY", ""),
			PropertyIDs:        splitList(getEnv("ANALYTICS_PROPERTY_IDS", "")),
			RequestTimeout:     getDurationEnv("ANALYTICS_REQUEST_TIMEOUT", "30s"),
			RateLimitPerSecond: getIntEnv("ANALYTICS_RATE_LIMIT_PER_SECOND", 10),
		},
		Quota: QuotaConfig{
			GuardThreshold:    getInt64Env("QUOTA_GUARD_THRESHOLD", 500),
			DegradedThreshold: getInt64Env("QUOTA_DEGRADED_THRESHOLD", 2000),
			NormalTTL:         getDurationEnv("FETCH_TTL_NORMAL", "60s"),
			DegradedTTL:       getDurationEnv("FETCH_TTL_DEGRADED", "300s"),
			HourlyBudget:      getInt64Env("QUOTA_HOURLY_BUDGET", 5000),
			DailyBudget:       getInt64Env("QUOTA_DAILY_BUDGET", 25000),
		},
		Report: ReportConfig{
			Timezone:       getEnv("REPORT_TIMEZONE", "Asia/Ho_Chi_Minh"),
			RealtimeWindow: getDurationEnv("REALTIME_WINDOW", "30m"),
			StoreTimeout:   getDurationEnv("STORE_REQUEST_TIMEOUT", "10s"),
			HistoryTimeout: getDurationEnv("STORE_HISTORY_TIMEOUT", "15s"),
			TrendRetention: getDurationEnv("TREND_RETENTION", "24h"),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			Key:      getEnv("REDIS_TREND_KEY", "dashboard:trend"),
		},
	}

	if err := loadJSONFile(getEnv("MARKETER_MAPPING_FILE", "marketer_mapping.json"), &config.Vocabulary); err != nil {
		return nil, fmt.Errorf("failed to load marketer mapping: %w", err)
	}

	storesFile := getEnv("STORES_FILE", "")
	if storesFile != "" {
		var stores struct {
			Stores []domain.StoreCredential `json:"stores"`
		}
		if err := loadJSONFile(storesFile, &stores); err != nil {
			return nil, fmt.Errorf("failed to load store credentials: %w", err)
		}
		config.Stores = stores.Stores
	}

	return config, nil
}

func loadJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
