package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/looprhq/analytics-server/internal/logger"
	"github.com/looprhq/analytics-server/internal/model/wallet"
)

type consumerConfig interface {
	producerConfig
	ConsumerGroup() string
}

type auditHandler interface {
	HandleAuditEvent(ctx context.Context, event wallet.AuditEvent) error
}

type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	topic         string
	handler       auditHandler
}

func NewConsumer(cfg consumerConfig, handler auditHandler) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_5_0_0
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers(), cfg.ConsumerGroup(), config)
	return &Consumer{
		consumerGroup: consumerGroup,
		topic:         cfg.AuditTopic(),
		handler:       handler,
	}, err
}

func (c *Consumer) StartConsuming(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			err := c.consumerGroup.Consume(ctx, []string{c.topic}, c)
			if err != nil {
				return errors.Wrap(err, fmt.Sprintf("consume from %s", c.topic))
			}
		}
	}
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	logger.Info("consumer - setup")
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	logger.Info("consumer - cleanup")
	return nil
}

func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var event wallet.AuditEvent
		err := json.Unmarshal(message.Value, &event)
		if err != nil {
			logger.Error("cannot unmarshal kafka message", zap.Error(err))
		} else {
			logger.Info(
				"received audit event",
				zap.ByteString("key", message.Key),
				zap.Int64("userID", event.UserID),
				zap.String("operation", event.Operation),
			)
			if err = c.handler.HandleAuditEvent(session.Context(), event); err != nil {
				logger.Error("failed to handle audit event", zap.Error(err))
			}
		}
		session.MarkMessage(message, "")
	}

	return nil
}
