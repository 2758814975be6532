// File: internal/events/kafka/consumer.go
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"

	eventModels "github.com/gameplatform/session-service/internal/events/models"
)

// EventHandler handles one deserialized CloudEvent. A returned error is
// logged; the message is marked consumed either way so a poison message
// cannot wedge the partition.
type EventHandler func(ctx context.Context, event eventModels.CloudEvent) error

// ConsumerGroup manages a sarama consumer group and routes messages to
// handlers registered per event type.
type ConsumerGroup struct {
	consumerGroup sarama.ConsumerGroup
	logger        *zap.Logger
	handlers      map[string]EventHandler
	topics        []string
	groupID       string
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// NewConsumerGroup creates a consumer group reading from the given topics.
func NewConsumerGroup(brokers, topics []string, groupID string, logger *zap.Logger) (*ConsumerGroup, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRange
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	consumerGroup, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &ConsumerGroup{
		consumerGroup: consumerGroup,
		logger:        logger.Named("kafka_consumer"),
		handlers:      make(map[string]EventHandler),
		topics:        topics,
		groupID:       groupID,
	}, nil
}

// RegisterHandler registers a handler for one CloudEvents type. Handlers must
// be registered before Start.
func (cg *ConsumerGroup) RegisterHandler(eventType eventModels.EventType, handler EventHandler) {
	cg.logger.Info("Registering event handler", zap.String("event_type", string(eventType)))
	cg.handlers[string(eventType)] = handler
}

// Start launches the consume loop in the background. Consume must be re-run
// after every server-side rebalance.
func (cg *ConsumerGroup) Start(ctx context.Context) {
	ctx, cg.cancel = context.WithCancel(ctx)

	cg.wg.Add(1)
	go func() {
		defer cg.wg.Done()
		cg.logger.Info("Consumer group started", zap.Strings("topics", cg.topics), zap.String("group_id", cg.groupID))
		for {
			if err := cg.consumerGroup.Consume(ctx, cg.topics, cg); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				cg.logger.Error("Consumer group error", zap.Error(err))
				time.Sleep(time.Second)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
}

// Close stops consumption and waits for the loop to exit.
func (cg *ConsumerGroup) Close() error {
	if cg.cancel != nil {
		cg.cancel()
	}
	cg.wg.Wait()
	if err := cg.consumerGroup.Close(); err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}
	cg.logger.Info("Consumer group closed")
	return nil
}

// Setup implements sarama.ConsumerGroupHandler.
func (cg *ConsumerGroup) Setup(session sarama.ConsumerGroupSession) error {
	cg.logger.Info("Consumer group session set up", zap.String("member_id", session.MemberID()))
	return nil
}

// Cleanup implements sarama.ConsumerGroupHandler.
func (cg *ConsumerGroup) Cleanup(session sarama.ConsumerGroupSession) error {
	cg.logger.Info("Consumer group session cleaned up", zap.String("member_id", session.MemberID()))
	return nil
}

// ConsumeClaim implements sarama.ConsumerGroupHandler. It must block until
// the claim closes.
func (cg *ConsumerGroup) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var event eventModels.CloudEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			cg.logger.Error("Failed to unmarshal message into CloudEvent",
				zap.Error(err),
				zap.String("topic", message.Topic),
				zap.Int64("offset", message.Offset),
			)
			session.MarkMessage(message, "")
			continue
		}

		handler, ok := cg.handlers[event.Type]
		if !ok {
			cg.logger.Debug("No handler registered for event type", zap.String("event_type", event.Type))
			session.MarkMessage(message, "")
			continue
		}

		if err := handler(session.Context(), event); err != nil {
			cg.logger.Error("Event handler failed",
				zap.Error(err),
				zap.String("event_type", event.Type),
				zap.String("event_id", event.ID),
			)
		}
		session.MarkMessage(message, "")
	}
	return nil
}
