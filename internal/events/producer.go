package events

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ItemRef names one row touched by a committed batch
type ItemRef struct {
	Op string `json:"op"`
	ID int64  `json:"id"`
}

// BatchCommitted is published once per committed batch
type BatchCommitted struct {
	Entity      string    `json:"entity"`
	Items       []ItemRef `json:"items"`
	CommittedAt int64     `json:"committedAt"`
}

// Producer publishes batch events to Kafka
type Producer struct {
	mu       sync.Mutex
	writers  map[string]*kafka.Writer
	brokers  []string
	clientID string
	topic    string
	retries  uint64
	logger   *zap.Logger
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, clientID, topic string, retries int, logger *zap.Logger) *Producer {
	return &Producer{
		writers:  make(map[string]*kafka.Writer),
		brokers:  brokers,
		clientID: clientID,
		topic:    topic,
		retries:  uint64(retries),
		logger:   logger,
	}
}

// getWriter returns a Kafka writer for the specified topic
func (p *Producer) getWriter(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, exists := p.writers[topic]; exists {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		Transport: &kafka.Transport{
			ClientID: p.clientID,
		},
	}

	p.writers[topic] = writer
	return writer
}

// PublishBatch sends the event keyed by entity so one entity's batches stay ordered
func (p *Producer) PublishBatch(ctx context.Context, event BatchCommitted) error {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event", zap.String("entity", event.Entity), zap.Error(err))
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.Entity),
		Value: value,
		Headers: []kafka.Header{
			{Key: "items", Value: []byte(strconv.Itoa(len(event.Items)))},
		},
		Time: time.UnixMilli(event.CommittedAt),
	}

	writer := p.getWriter(p.topic)
	send := func() error {
		return writer.WriteMessages(ctx, msg)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), p.retries), ctx)

	if err := backoff.Retry(send, policy); err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("topic", p.topic),
			zap.String("entity", event.Entity),
			zap.Error(err))
		return err
	}

	p.logger.Debug("Event published",
		zap.String("topic", p.topic),
		zap.String("entity", event.Entity),
		zap.Int("items", len(event.Items)))
	return nil
}

// Close closes all Kafka writers
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil {
			p.logger.Error("Failed to close Kafka writer",
				zap.String("topic", topic),
				zap.Error(err))
		}
	}
	return nil
}

// Discard drops every event; used when Kafka is disabled
type Discard struct{}

// PublishBatch implements the publisher contract
func (Discard) PublishBatch(ctx context.Context, event BatchCommitted) error {
	return nil
}
