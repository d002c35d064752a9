package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hilthontt/roomkeeper/internal/domain"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/contracts"
)

// messagePublisher is the part of messaging.RabbitMQ the publisher needs.
type messagePublisher interface {
	PublishMessage(ctx context.Context, routingKey string, message contracts.AmqpMessage) error
}

// RoomPublisher sends room audit events to the broker.
type RoomPublisher struct {
	rabbitmq messagePublisher
}

var _ domain.RoomEventPublisher = (*RoomPublisher)(nil)

func NewRoomPublisher(rabbitmq messagePublisher) *RoomPublisher {
	return &RoomPublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *RoomPublisher) Publish(ctx context.Context, event *domain.RoomAuditLog) error {
	routingKey, ok := contracts.RoutingKey(event.EventType)
	if !ok {
		return fmt.Errorf("no routing key for event type %q", event.EventType)
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, routingKey, contracts.AmqpMessage{
		RoomID:  event.RoomID,
		ActorID: event.ActorID,
		Data:    eventJSON,
	})
}
