package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Kafka
	KafkaEnabled        bool
	KafkaBrokers        []string
	KafkaGroupID        string
	KafkaParsedTopic    string
	KafkaRequestedTopic string

	// Remote exports
	ExportBaseURL      string
	ExportTokenURL     string
	ExportClientID     string
	ExportClientSecret string
	ExportScopes       []string
	ExportTimeout      time.Duration
	ExportRetries      int

	// Parser
	ParserRequiredFields []string
	ParserShortNames     bool
	MergeProfilesPath    string
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8090"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 64*1024*1024)),

		PostgresEnabled:  getBoolEnv("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "prelude"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "prelude"),
		PostgresDB:       getEnv("POSTGRES_DB", "prelude"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisEnabled:  getBoolEnv("REDIS_ENABLED", false),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		CacheTTL:      getDuration("CACHE_TTL", 30*time.Minute),

		KafkaEnabled:        getBoolEnv("KAFKA_ENABLED", false),
		KafkaBrokers:        getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:        getEnv("KAFKA_GROUP_ID", "prelude-flatfile"),
		KafkaParsedTopic:    getEnv("KAFKA_PARSED_TOPIC", "flatfile.parsed"),
		KafkaRequestedTopic: getEnv("KAFKA_REQUESTED_TOPIC", "flatfile.requested"),

		ExportBaseURL:      getEnv("EXPORT_BASE_URL", ""),
		ExportTokenURL:     getEnv("EXPORT_TOKEN_URL", ""),
		ExportClientID:     getEnv("EXPORT_CLIENT_ID", ""),
		ExportClientSecret: getEnv("EXPORT_CLIENT_SECRET", ""),
		ExportScopes:       getStringSliceEnv("EXPORT_SCOPES", nil),
		ExportTimeout:      getDuration("EXPORT_TIMEOUT", 60*time.Second),
		ExportRetries:      getIntEnv("EXPORT_RETRIES", 3),

		ParserRequiredFields: getStringSliceEnv("PARSER_REQUIRED_FIELDS", nil),
		ParserShortNames:     getBoolEnv("PARSER_SHORT_NAMES", false),
		MergeProfilesPath:    getEnv("MERGE_PROFILES_PATH", ""),
	}
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

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getStringSliceEnv splits a comma separated value; blank items are dropped.
func getStringSliceEnv(key string, defaultValue []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
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
