package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLM provider selection.
const (
	ProviderNone      = ""
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Redis cache (empty address disables the shared cache)
	RedisAddr   string
	RedisPrefix string
	CacheTTL    time.Duration

	// External providers
	CourseRegistryURL   string
	PersonDirectoryURL  string
	ProviderTimeout     time.Duration
	ProviderMinInterval time.Duration

	// Enrichment
	EnrichConcurrency int
	RunningTTL        time.Duration
	CompletedTTL      time.Duration

	// Faculty mapping (optional YAML overriding the built-in table)
	FacultyMappingFile string

	// Classification suggestions (empty provider disables)
	LLMProvider     string
	LLMModel        string
	OllamaHost      string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "clearcat"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "catalog"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		RedisAddr:   getEnv("CLEARCAT_REDIS_ADDR", ""),
		RedisPrefix: getEnv("CLEARCAT_REDIS_PREFIX", "clearcat"),
		CacheTTL:    getDuration("CLEARCAT_CACHE_TTL", 15*time.Minute),

		CourseRegistryURL:   getEnv("CLEARCAT_COURSE_REGISTRY_URL", "http://localhost:9080"),
		PersonDirectoryURL:  getEnv("CLEARCAT_PERSON_DIRECTORY_URL", "http://localhost:9081"),
		ProviderTimeout:     getDuration("CLEARCAT_PROVIDER_TIMEOUT", 30*time.Second),
		ProviderMinInterval: getDuration("CLEARCAT_PROVIDER_MIN_INTERVAL", 200*time.Millisecond),

		EnrichConcurrency: getInt("CLEARCAT_ENRICH_CONCURRENCY", 4),
		RunningTTL:        getDuration("CLEARCAT_RUNNING_TTL", 30*time.Minute),
		CompletedTTL:      getDuration("CLEARCAT_COMPLETED_TTL", 30*24*time.Hour),

		FacultyMappingFile: getEnv("CLEARCAT_FACULTY_MAPPING", ""),

		LLMProvider:     getEnv("CLEARCAT_LLM_PROVIDER", ProviderNone),
		LLMModel:        getEnv("CLEARCAT_LLM_MODEL", "llama3.2"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),

		LogFile:  getEnv("CLEARCAT_LOG_FILE", "/tmp/clearcat.log"),
		LogLevel: parseLogLevel(getEnv("CLEARCAT_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
