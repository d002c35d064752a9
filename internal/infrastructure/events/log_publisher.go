package events

import (
	"context"

	"github.com/hilthontt/roomkeeper/internal/domain"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/logging"
)

// LogPublisher writes audit events to the structured log. It is used when no
// broker is configured.
type LogPublisher struct {
	logger logging.Logger
}

var _ domain.RoomEventPublisher = (*LogPublisher)(nil)

func NewLogPublisher(logger logging.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event *domain.RoomAuditLog) error {
	extra := map[logging.ExtraKey]any{
		logging.RoomID:    event.RoomID,
		logging.EventType: event.EventType,
	}
	if event.ActorID != "" {
		extra[logging.ParticipantID] = event.ActorID
	}
	for k, v := range event.Metadata {
		extra[logging.ExtraKey(k)] = v
	}

	p.logger.Info(logging.Room, logging.Audit, "room event", extra)
	return nil
}
