package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SinkFirehose = "firehose"
	SinkKafka    = "kafka"
	SinkLog      = "log"

	DedupMemory   = "memory"
	DedupLRU      = "lru"
	DedupRedis    = "redis"
	DedupPostgres = "postgres"
)

// Config contains runtime configuration required by the service.
type Config struct {
	Addr            string
	APIKey          string // empty disables auth
	ShutdownTimeout time.Duration
	Sink            SinkConfig
	Dedup           DedupConfig
	Log             LogConfig
}

type SinkConfig struct {
	Kind           string
	FirehoseStream string
	AWSRegion      string
	KafkaBrokers   []string
	KafkaTopic     string
}

type DedupConfig struct {
	Backend  string
	Capacity int
	TTL      time.Duration
	RedisURL string
	DBURL    string
}

type LogConfig struct {
	Level  string
	Format string
}

// AuthEnabled reports whether ingestion endpoints require a bearer token.
func (c Config) AuthEnabled() bool {
	return c.APIKey != ""
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; variables already set take precedence over it.
//
// MOCK_FIREHOSE=true forces the log sink regardless of SINK.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Addr:            getEnv("HTTP_ADDR", ":8080"),
		APIKey:          strings.TrimSpace(os.Getenv("EVENT_API_KEY")),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
		Sink: SinkConfig{
			Kind:           strings.ToLower(getEnv("SINK", SinkFirehose)),
			FirehoseStream: getEnv("FIREHOSE_STREAM_NAME", "example-game-events"),
			AWSRegion:      getEnv("AWS_REGION", ""),
			KafkaBrokers:   getSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			KafkaTopic:     getEnv("KAFKA_TOPIC", "game-events"),
		},
		Dedup: DedupConfig{
			Backend:  strings.ToLower(getEnv("DEDUP_BACKEND", DedupLRU)),
			Capacity: getIntEnv("DEDUP_CAPACITY", 1_000_000),
			TTL:      getDurationEnv("DEDUP_TTL", 24*time.Hour),
			RedisURL: getEnv("REDIS_URL", "localhost:6379"),
			DBURL:    strings.TrimSpace(os.Getenv("DB_URL")),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if getBoolEnv("MOCK_FIREHOSE", false) {
		cfg.Sink.Kind = SinkLog
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enum values and cross-field requirements.
func (c Config) Validate() error {
	switch c.Sink.Kind {
	case SinkFirehose:
		if c.Sink.FirehoseStream == "" {
			return errors.New("FIREHOSE_STREAM_NAME required for the firehose sink")
		}
	case SinkKafka:
		if len(c.Sink.KafkaBrokers) == 0 || c.Sink.KafkaTopic == "" {
			return errors.New("KAFKA_BROKERS and KAFKA_TOPIC required for the kafka sink")
		}
	case SinkLog:
	default:
		return fmt.Errorf("SINK must be one of firehose, kafka, log (got %q)", c.Sink.Kind)
	}

	switch c.Dedup.Backend {
	case DedupMemory:
	case DedupLRU:
		if c.Dedup.Capacity <= 0 {
			return errors.New("DEDUP_CAPACITY must be positive")
		}
	case DedupRedis:
		if c.Dedup.RedisURL == "" {
			return errors.New("REDIS_URL required for the redis dedup backend")
		}
	case DedupPostgres:
		if c.Dedup.DBURL == "" {
			return errors.New("DB_URL required for the postgres dedup backend")
		}
	default:
		return fmt.Errorf("DEDUP_BACKEND must be one of memory, lru, redis, postgres (got %q)", c.Dedup.Backend)
	}

	if c.Dedup.TTL < 0 {
		return errors.New("DEDUP_TTL must not be negative")
	}
	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
