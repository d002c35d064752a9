package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"github.com/hilthontt/roomkeeper/internal/domain"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/contracts"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/logging"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/messaging"
)

// messageConsumer is the part of messaging.RabbitMQ the consumer needs.
type messageConsumer interface {
	ConsumeMessages(ctx context.Context, queueName string, handler messaging.MessageHandler) error
}

// RoomConsumer drains the audit queue into the audit repository.
type RoomConsumer struct {
	rabbitmq messageConsumer
	queue    string
	repo     domain.RoomAuditRepository
	logger   logging.Logger
}

func NewRoomConsumer(rabbitmq messageConsumer, queue string, repo domain.RoomAuditRepository, logger logging.Logger) *RoomConsumer {
	return &RoomConsumer{
		rabbitmq: rabbitmq,
		queue:    queue,
		repo:     repo,
		logger:   logger,
	}
}

// Listen blocks until ctx is done or the broker connection drops.
func (c *RoomConsumer) Listen(ctx context.Context) error {
	c.logger.Info(logging.RabbitMQ, logging.Consume, "room audit consumer started", map[logging.ExtraKey]any{
		"queue": c.queue,
	})

	return c.rabbitmq.ConsumeMessages(ctx, c.queue, func(ctx context.Context, msg amqp091.Delivery) error {
		return c.handle(ctx, msg.Body)
	})
}

func (c *RoomConsumer) handle(ctx context.Context, body []byte) error {
	event, err := decodeAuditMessage(body)
	if err != nil {
		c.logger.Error(logging.RabbitMQ, logging.Consume, "failed to decode room event", map[logging.ExtraKey]any{
			logging.ErrorMessage: err,
		})
		return err
	}

	if err := c.repo.Log(ctx, event); err != nil {
		c.logger.Error(logging.MongoDB, logging.Insert, "failed to write room audit log", map[logging.ExtraKey]any{
			logging.RoomID:       event.RoomID,
			logging.EventType:    event.EventType,
			logging.ErrorMessage: err,
		})
		return err
	}

	return nil
}

func decodeAuditMessage(body []byte) (*domain.RoomAuditLog, error) {
	var message contracts.AmqpMessage
	if err := json.Unmarshal(body, &message); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}

	var event domain.RoomAuditLog
	if err := json.Unmarshal(message.Data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal room event: %w", err)
	}
	if event.ID == "" || event.RoomID == "" || event.EventType == "" {
		return nil, fmt.Errorf("room event is missing identity")
	}

	return &event, nil
}
