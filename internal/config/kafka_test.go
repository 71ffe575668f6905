package config

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestKafkaReaderStartsAtNewestOffset(t *testing.T) {
	r := NewKafkaReader([]string{"localhost:9092"}, "mindhaven-events", "mindhaven-chat-test")
	defer r.Close()

	cfg := r.Config()
	assert.Equal(t, kafka.LastOffset, cfg.StartOffset)
	assert.Equal(t, "mindhaven-chat-test", cfg.GroupID)
}

func TestKafkaWriterHashesByKey(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "mindhaven-events")
	defer w.Close()

	assert.Equal(t, "mindhaven-events", w.Topic)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}
