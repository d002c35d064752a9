package contracts

import "github.com/hilthontt/roomkeeper/internal/domain"

// AmqpMessage is the message structure for AMQP.
type AmqpMessage struct {
	RoomID  string `json:"roomId"`
	ActorID string `json:"actorId,omitempty"`
	Data    []byte `json:"data"`
}

// Routing keys - using consistent event/command patterns
const (
	EventRoomCreated      = "room.created"
	EventRoomUpdated      = "room.updated"
	EventRoomDissolved    = "room.dissolved"
	EventRoomExpired      = "room.expired"
	EventRoomFullRejected = "room.full_rejected"
	EventMemberJoined     = "member.joined"
	EventMemberLeft       = "member.left"
)

var routingKeys = map[domain.RoomEventType]string{
	domain.EventRoomCreated:   EventRoomCreated,
	domain.EventRoomUpdated:   EventRoomUpdated,
	domain.EventRoomDissolved: EventRoomDissolved,
	domain.EventRoomExpired:   EventRoomExpired,
	domain.EventRoomFull:      EventRoomFullRejected,
	domain.EventMemberJoined:  EventMemberJoined,
	domain.EventMemberLeft:    EventMemberLeft,
}

// RoutingKey maps an audit event type to its routing key.
func RoutingKey(eventType domain.RoomEventType) (string, bool) {
	key, ok := routingKeys[eventType]
	return key, ok
}

// RoomRoutingKeys lists every key the audit queue binds to.
func RoomRoutingKeys() []string {
	return []string{
		EventRoomCreated,
		EventRoomUpdated,
		EventRoomDissolved,
		EventRoomExpired,
		EventRoomFullRejected,
		EventMemberJoined,
		EventMemberLeft,
	}
}
