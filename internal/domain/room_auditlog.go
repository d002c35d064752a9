package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RoomEventType string

const (
	EventRoomCreated   RoomEventType = "room_created"
	EventRoomUpdated   RoomEventType = "room_updated"
	EventRoomDissolved RoomEventType = "room_dissolved"
	EventRoomExpired   RoomEventType = "room_expired"
	EventMemberJoined  RoomEventType = "member_joined"
	EventMemberLeft    RoomEventType = "member_left"
	EventRoomFull      RoomEventType = "room_full_rejected"
)

type RoomAuditLog struct {
	ID        string         `bson:"_id" json:"id"`
	RoomID    string         `bson:"room_id" json:"roomId"`
	EventType RoomEventType  `bson:"event_type" json:"eventType"`
	ActorID   string         `bson:"actor_id,omitempty" json:"actorId,omitempty"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type RoomAuditRepository interface {
	Log(ctx context.Context, log *RoomAuditLog) error
	GetByRoomID(ctx context.Context, roomID string, limit int) ([]RoomAuditLog, error)
	GetByEventType(ctx context.Context, eventType RoomEventType, from, to time.Time) ([]RoomAuditLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) error
	EnsureIndexes(ctx context.Context) error
}

func newAuditLog(roomID string, eventType RoomEventType, actorID string, at time.Time, metadata map[string]any) *RoomAuditLog {
	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		EventType: eventType,
		ActorID:   actorID,
		Timestamp: at,
		Metadata:  metadata,
	}
}

func NewRoomCreatedLog(state RoomState) *RoomAuditLog {
	return newAuditLog(state.ID, EventRoomCreated, state.CreatorID, state.CreatedAt, map[string]any{
		"capacity":     state.Capacity,
		"has_password": state.HasPassword(),
	})
}

func NewRoomUpdatedLog(state RoomState, operatorID string, fields []string) *RoomAuditLog {
	return newAuditLog(state.ID, EventRoomUpdated, operatorID, state.UpdatedAt, map[string]any{
		"fields":       fields,
		"capacity":     state.Capacity,
		"member_count": len(state.Participants),
	})
}

func NewRoomDissolvedLog(state RoomState, memberCount int) *RoomAuditLog {
	return newAuditLog(state.ID, EventRoomDissolved, state.CreatorID, state.DissolvedAt, map[string]any{
		"member_count": memberCount,
	})
}

func NewRoomExpiredLog(roomID string, at time.Time) *RoomAuditLog {
	return newAuditLog(roomID, EventRoomExpired, "", at, nil)
}

func NewMemberJoinedLog(state RoomState, participantID string) *RoomAuditLog {
	return newAuditLog(state.ID, EventMemberJoined, participantID, state.UpdatedAt, map[string]any{
		"member_count": len(state.Participants),
	})
}

func NewMemberLeftLog(state RoomState, participantID string) *RoomAuditLog {
	return newAuditLog(state.ID, EventMemberLeft, participantID, state.UpdatedAt, map[string]any{
		"member_count": len(state.Participants),
		"was_creator":  participantID == state.CreatorID,
	})
}

func NewRoomFullRejectionLog(roomID string, at time.Time) *RoomAuditLog {
	return newAuditLog(roomID, EventRoomFull, "", at, nil)
}
