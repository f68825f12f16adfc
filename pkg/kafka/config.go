package kafka

import (
	"time"
)

// ConsumerConfig configures the Kafka consumer
type ConsumerConfig struct {
	// Brokers is a list of Kafka broker addresses
	Brokers []string

	// Topic is the Kafka topic to consume from
	Topic string

	// GroupID is the consumer group ID
	GroupID string

	// MinBytes is the minimum batch size for fetching messages
	MinBytes int

	// MaxBytes is the maximum batch size for fetching messages
	MaxBytes int

	// MaxWait is the maximum time to wait for messages
	MaxWait time.Duration

	// CommitInterval is how often to commit offsets
	CommitInterval time.Duration

	// StartOffset determines where to start reading when there's no committed offset
	StartOffset int64

	// SessionTimeout is the session timeout for the consumer group
	SessionTimeout time.Duration

	// HeartbeatInterval is how often to send heartbeats to the broker
	HeartbeatInterval time.Duration
}

// DefaultConsumerConfig returns a ConsumerConfig with sensible defaults
func DefaultConsumerConfig(brokers []string, topic, groupID string) ConsumerConfig {
	return ConsumerConfig{
		Brokers:           brokers,
		Topic:             topic,
		GroupID:           groupID,
		MinBytes:          1,
		MaxBytes:          1e6,
		MaxWait:           3 * time.Second,
		CommitInterval:    time.Second,
		StartOffset:       FirstOffset,
		SessionTimeout:    30 * time.Second,
		HeartbeatInterval: 3 * time.Second,
	}
}

// ProducerConfig configures the Kafka producer
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

func DefaultProducerConfig(brokers []string, topic string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		Topic:        topic,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
}

// Offset constants
const (
	FirstOffset int64 = -2 // Start from the oldest message
	LastOffset  int64 = -1 // Start from the newest message
)
