package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("outbox-relay")
	require.NoError(t, err)

	assert.Equal(t, "outbox-relay", cfg.ServiceName)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "outbox-relay", cfg.Kafka.TransactionID)
	assert.Equal(t, 500, cfg.Relay.PageSize)
	assert.Equal(t, time.Second, cfg.Relay.Interval)
	assert.Equal(t, int32(6), cfg.AccommodationTopic.Partitions)
}

func TestLoadRejectsUnknownRelayDatabase(t *testing.T) {
	t.Setenv("RELAY_DATABASE", "cassandra")

	_, err := Load("outbox-relay")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay database")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("RELAY_PAGE_SIZE", "50")
	t.Setenv("TOPIC_USER_PARTITIONS", "12")

	cfg, err := Load("user-service")
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 50, cfg.Relay.PageSize)
	assert.Equal(t, int32(12), cfg.UserTopic.Partitions)
}
