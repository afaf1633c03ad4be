package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
	CORSOrigin     string
	RateLimitRPS   int
	RateLimitBurst int

	// Database. The reader uses read-only credentials, the writer privileged ones.
	DatabaseReadURL      string
	DatabaseWriteURL     string
	DatabaseMaxOpenConns int

	// Redis
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	LeaderboardCacheTTL time.Duration

	// Kafka
	KafkaBrokers  []string
	KafkaJobTopic string
	KafkaGroupID  string

	// Scrape workflow
	TriggerWebhookURL string
	TriggerTimeout    time.Duration
	IngestAPISecret   string

	// Admin access
	AdminPassword     string
	SessionSigningKey string
	SessionTTL        time.Duration

	TeamsCatalogPath string

	// scrapectl
	APIBaseURL   string
	PollInterval time.Duration
}

// Keys required by each binary. Missing values fail startup.
var (
	APIRequired = []string{
		"DATABASE_READ_URL",
		"DATABASE_WRITE_URL",
		"TRIGGER_WEBHOOK_URL",
		"INGEST_API_SECRET",
		"ADMIN_PASSWORD",
		"SESSION_SIGNING_KEY",
	}
	WorkerRequired = []string{
		"DATABASE_READ_URL",
		"DATABASE_WRITE_URL",
		"REDIS_ADDR",
		"KAFKA_BROKERS",
	}
	CLIRequired = []string{
		"API_BASE_URL",
		"ADMIN_PASSWORD",
	}
)

const (
	minIngestSecretLength = 32
	minAdminPasswordLen   = 6
	minSigningKeyLength   = 16
)

// Load reads an optional .env file (ENV_FILE, default ".env") and then the
// process environment. Values already set in the environment win.
func Load() *Config {
	envFile := getEnv("ENV_FILE", ".env")
	_ = godotenv.Load(envFile)

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 4*1024*1024)),
		CORSOrigin:     getEnv("CORS_ORIGIN", "*"),
		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 100),

		DatabaseReadURL:      getEnv("DATABASE_READ_URL", ""),
		DatabaseWriteURL:     getEnv("DATABASE_WRITE_URL", ""),
		DatabaseMaxOpenConns: getIntEnv("DATABASE_MAX_OPEN_CONNS", 10),

		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getIntEnv("REDIS_DB", 0),
		LeaderboardCacheTTL: getDuration("LEADERBOARD_CACHE_TTL", 60*time.Second),

		KafkaBrokers:  getStringSliceEnv("KAFKA_BROKERS", nil),
		KafkaJobTopic: getEnv("KAFKA_JOB_TOPIC", "scrape-jobs"),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", "leaderboard-worker"),

		TriggerWebhookURL: getEnv("TRIGGER_WEBHOOK_URL", ""),
		TriggerTimeout:    getDuration("TRIGGER_TIMEOUT", 10*time.Second),
		IngestAPISecret:   getEnv("INGEST_API_SECRET", ""),

		AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
		SessionSigningKey: getEnv("SESSION_SIGNING_KEY", ""),
		SessionTTL:        getDuration("SESSION_TTL", 8*time.Hour),

		TeamsCatalogPath: getEnv("TEAMS_CATALOG_PATH", ""),

		APIBaseURL:   getEnv("API_BASE_URL", ""),
		PollInterval: getDuration("POLL_INTERVAL", 3*time.Second),
	}
}

// Error lists every missing or malformed configuration key at once.
type Error struct {
	Missing []string
	Invalid []string
}

func (e *Error) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid: "+strings.Join(e.Invalid, ", "))
	}
	return "configuration error (" + strings.Join(parts, "; ") + ")"
}

// Require checks that every key is set, plus minimum lengths for secrets.
func (c *Config) Require(keys ...string) error {
	cfgErr := &Error{}
	for _, key := range keys {
		value, known := c.lookup(key)
		if !known {
			cfgErr.Invalid = append(cfgErr.Invalid, fmt.Sprintf("%s (unknown key)", key))
			continue
		}
		if strings.TrimSpace(value) == "" {
			cfgErr.Missing = append(cfgErr.Missing, key)
			continue
		}
		if min, ok := minLengths[key]; ok && len(value) < min {
			cfgErr.Invalid = append(cfgErr.Invalid, fmt.Sprintf("%s (must be at least %d characters)", key, min))
		}
	}
	if len(cfgErr.Missing) == 0 && len(cfgErr.Invalid) == 0 {
		return nil
	}
	sort.Strings(cfgErr.Missing)
	sort.Strings(cfgErr.Invalid)
	return cfgErr
}

var minLengths = map[string]int{
	"INGEST_API_SECRET":   minIngestSecretLength,
	"ADMIN_PASSWORD":      minAdminPasswordLen,
	"SESSION_SIGNING_KEY": minSigningKeyLength,
}

func (c *Config) lookup(key string) (string, bool) {
	switch key {
	case "DATABASE_READ_URL":
		return c.DatabaseReadURL, true
	case "DATABASE_WRITE_URL":
		return c.DatabaseWriteURL, true
	case "REDIS_ADDR":
		return c.RedisAddr, true
	case "KAFKA_BROKERS":
		return strings.Join(c.KafkaBrokers, ","), true
	case "TRIGGER_WEBHOOK_URL":
		return c.TriggerWebhookURL, true
	case "INGEST_API_SECRET":
		return c.IngestAPISecret, true
	case "ADMIN_PASSWORD":
		return c.AdminPassword, true
	case "SESSION_SIGNING_KEY":
		return c.SessionSigningKey, true
	case "API_BASE_URL":
		return c.APIBaseURL, true
	}
	return "", false
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

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
