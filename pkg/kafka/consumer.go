package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/organizer/pkg/metrics"
)

// MessageHandler is called for each event received from Kafka
type MessageHandler func(ctx context.Context, msg *ReceivedMessage) error

// ReceivedMessage wraps a Kafka message with its parsed event
type ReceivedMessage struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Headers   MessageHeaders
	Event     *Event
}

// Consumer consumes events from Kafka
type Consumer struct {
	reader  *kafka.Reader
	logger  ectologger.Logger
	config  ConsumerConfig
	handler MessageHandler
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running bool
	mu      sync.Mutex
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(config ConsumerConfig, logger ectologger.Logger) (*Consumer, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if config.GroupID == "" {
		return nil, fmt.Errorf("group ID is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           config.Brokers,
		Topic:             config.Topic,
		GroupID:           config.GroupID,
		MinBytes:          config.MinBytes,
		MaxBytes:          config.MaxBytes,
		MaxWait:           config.MaxWait,
		CommitInterval:    config.CommitInterval,
		StartOffset:       config.StartOffset,
		SessionTimeout:    config.SessionTimeout,
		HeartbeatInterval: config.HeartbeatInterval,
	})

	return &Consumer{
		reader: reader,
		logger: logger,
		config: config,
	}, nil
}

// Start begins consuming messages in the background
func (c *Consumer) Start(ctx context.Context, handler MessageHandler) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer is already running")
	}
	c.running = true
	c.handler = handler
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.consumeLoop(ctx)

	c.logger.Infof("Kafka consumer started for topic %s (group: %s)", c.config.Topic, c.config.GroupID)
	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	c.wg.Wait()

	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("failed to close reader: %w", err)
	}

	c.logger.Info("Kafka consumer stopped")
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.WithError(err).Error("Failed to fetch message")
			continue
		}

		c.process(ctx, msg)

		// CRM sync is best effort, so failed messages are committed rather than retried
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.WithError(err).Errorf("Failed to commit message at offset %d", msg.Offset)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	received, err := parseMessage(msg)
	if err != nil {
		metrics.RecordKafkaConsume(msg.Topic, "invalid")
		c.logger.WithError(err).Errorf("Failed to parse message at offset %d", msg.Offset)
		return
	}

	if err := c.handler(ctx, received); err != nil {
		metrics.RecordKafkaConsume(msg.Topic, "error")
		c.logger.WithError(err).Errorf("Handler failed for message at offset %d", msg.Offset)
		return
	}
	metrics.RecordKafkaConsume(msg.Topic, "success")
}

func parseMessage(msg kafka.Message) (*ReceivedMessage, error) {
	headers := make([]Header, len(msg.Headers))
	for i, h := range msg.Headers {
		headers[i] = Header{Key: h.Key, Value: h.Value}
	}

	evt, err := ParseEvent(msg.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message as JSON: %w", err)
	}
	if err := evt.Validate(); err != nil {
		return nil, err
	}

	return &ReceivedMessage{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       msg.Key,
		Headers:   ExtractHeaders(headers),
		Event:     evt,
	}, nil
}

// Lag returns the current consumer lag
func (c *Consumer) Lag() int64 {
	return c.reader.Stats().Lag
}
