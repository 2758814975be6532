// File: internal/events/kafka/producer.go
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	eventModels "github.com/gameplatform/session-service/internal/events/models"
	"github.com/gameplatform/session-service/internal/utils/metrics"
)

// Producer publishes CloudEvents to Kafka through a synchronous, idempotent
// sarama producer.
type Producer struct {
	producer     sarama.SyncProducer
	logger       *zap.Logger
	source       string
	defaultTopic string
}

// NewProducer creates a Kafka producer publishing to defaultTopic unless a
// call names another one.
func NewProducer(brokers []string, defaultTopic string, logger *zap.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 500 * time.Millisecond
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1 // required by the idempotent producer

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &Producer{
		producer:     producer,
		logger:       logger.Named("kafka_producer"),
		source:       eventModels.CloudEventSource,
		defaultTopic: defaultTopic,
	}, nil
}

// Publish sends a CloudEvent of the given type to the default topic. Subject
// doubles as the partition key so events about the same entity stay ordered.
func (p *Producer) Publish(ctx context.Context, eventType eventModels.EventType, subject string, payload interface{}) error {
	return p.PublishCloudEvent(ctx, p.defaultTopic, eventType, subject, payload)
}

// PublishCloudEvent constructs a CloudEvent envelope around payload and sends
// it to the given topic.
func (p *Producer) PublishCloudEvent(ctx context.Context, topic string, eventType eventModels.EventType, subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(eventType), "error").Inc()
		p.logger.Error("Failed to marshal event payload", zap.Error(err), zap.String("event_type", string(eventType)))
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	event := eventModels.CloudEvent{
		SpecVersion:     eventModels.CloudEventSpecVersion,
		ID:              uuid.NewString(),
		Source:          p.source,
		Type:            string(eventType),
		DataContentType: eventModels.CloudEventDataContentType,
		Subject:         subject,
		Time:            time.Now().UTC(),
		Data:            data,
	}

	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		event.Extensions = map[string]interface{}{"trace_id": spanCtx.TraceID().String()}
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(eventType), "error").Inc()
		p.logger.Error("Failed to marshal CloudEvent", zap.Error(err), zap.String("event_type", string(eventType)), zap.String("event_id", event.ID))
		return fmt.Errorf("failed to marshal CloudEvent: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(eventJSON),
	}
	if subject != "" {
		msg.Key = sarama.StringEncoder(subject)
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(eventType), "error").Inc()
		p.logger.Error("Failed to send CloudEvent to Kafka",
			zap.Error(err),
			zap.String("topic", topic),
			zap.String("event_type", string(eventType)),
			zap.String("event_id", event.ID),
		)
		return fmt.Errorf("failed to send CloudEvent to Kafka: %w", err)
	}

	metrics.EventsPublishedTotal.WithLabelValues(string(eventType), "success").Inc()
	p.logger.Debug("CloudEvent sent to Kafka",
		zap.String("topic", topic),
		zap.String("event_type", string(eventType)),
		zap.String("event_id", event.ID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close shuts the underlying sarama producer down.
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka producer", zap.Error(err))
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	p.logger.Info("Kafka producer closed")
	return nil
}
