package messaging

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	RoomAuditQueue  = "room_audit"
	DeadLetterQueue = "dead_letter_queue"
)

type MessageHandler func(ctx context.Context, msg amqp.Delivery) error
