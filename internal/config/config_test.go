package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv isolates a test from the developer's shell and any .env file.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, k := range []string{
		"HTTP_ADDR", "EVENT_API_KEY", "SHUTDOWN_TIMEOUT", "SINK", "MOCK_FIREHOSE",
		"FIREHOSE_STREAM_NAME", "AWS_REGION", "KAFKA_BROKERS", "KAFKA_TOPIC",
		"DEDUP_BACKEND", "DEDUP_CAPACITY", "DEDUP_TTL", "REDIS_URL", "DB_URL",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.False(t, cfg.AuthEnabled())
	assert.Equal(t, SinkFirehose, cfg.Sink.Kind)
	assert.Equal(t, "example-game-events", cfg.Sink.FirehoseStream)
	assert.Equal(t, DedupLRU, cfg.Dedup.Backend)
	assert.Equal(t, 1_000_000, cfg.Dedup.Capacity)
	assert.Equal(t, 24*time.Hour, cfg.Dedup.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_MockFirehoseSelectsLogSink(t *testing.T) {
	clearEnv(t)
	t.Setenv("SINK", "kafka")
	t.Setenv("MOCK_FIREHOSE", "true")
	t.Setenv("EVENT_API_KEY", "  k  ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SinkLog, cfg.Sink.Kind)
	assert.Equal(t, "k", cfg.APIKey)
	assert.True(t, cfg.AuthEnabled())
}

func TestLoad_ParsesTypedValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SINK", "KAFKA")
	t.Setenv("KAFKA_BROKERS", "b1:9092, b2:9092,")
	t.Setenv("DEDUP_BACKEND", "redis")
	t.Setenv("DEDUP_TTL", "90m")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SinkKafka, cfg.Sink.Kind)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Sink.KafkaBrokers)
	assert.Equal(t, 90*time.Minute, cfg.Dedup.TTL)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_ReadsDotEnvWithoutOverriding(t *testing.T) {
	clearEnv(t)
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("EVENT_API_KEY=from-file\nAWS_REGION=eu-west-1\n"), 0o600))
	t.Setenv("AWS_REGION", "us-east-1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.APIKey)
	assert.Equal(t, "us-east-1", cfg.Sink.AWSRegion)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown sink":          {"SINK": "s3"},
		"unknown dedup backend": {"DEDUP_BACKEND": "memcached"},
		"postgres without url":  {"DEDUP_BACKEND": "postgres"},
		"zero lru capacity":     {"DEDUP_CAPACITY": "0"},
		"negative ttl":          {"DEDUP_TTL": "-1h"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
