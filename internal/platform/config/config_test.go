package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"FACEVERIFY_ADDR", "DATABASE_URL", "REDIS_URL", "KAFKA_BROKERS", "REQUEST_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "faceverify.results", cfg.Kafka.ResultsTopic)
	assert.Equal(t, 24*time.Hour, cfg.RiskWindow)
	assert.Zero(t, cfg.RequestTimeout, "zero keeps the calibration timeout")
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("FACEVERIFY_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,kafka-1:9092")
	t.Setenv("MODEL_SERVER_TIMEOUT", "750ms")
	t.Setenv("OUTBOX_BATCH_SIZE", "25")
	t.Setenv("PROVIDER_TIMEOUT", "1500ms")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 750*time.Millisecond, cfg.ModelServer.Timeout)
	assert.Equal(t, 25, cfg.Kafka.OutboxBatch)
	assert.Equal(t, 1500*time.Millisecond, cfg.ProviderTimeout)
}

func TestFromEnvRejectsMalformedValues(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")
	t.Setenv("OUTBOX_BATCH_SIZE", "many")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_TIMEOUT")
	assert.Contains(t, err.Error(), "OUTBOX_BATCH_SIZE")
}
