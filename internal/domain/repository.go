package domain

import (
	"context"
	"time"
)

// RoomRegistry owns every Room aggregate. Structural changes (create, remove)
// are serialized by the registry; room contents are serialized by each Room.
type RoomRegistry interface {
	Create(ctx context.Context, room *Room) error
	Get(ctx context.Context, id string) (*Room, error)
	List(ctx context.Context, filter RoomFilter) (RoomPage, error)
	Remove(ctx context.Context, id string, dissolvedAt time.Time) error
	Stats(ctx context.Context) Stats
	EvictDissolved(ctx context.Context, before time.Time) []string
	Restore(ctx context.Context, states []RoomState) error
}

// RoomStore persists room state. Save replaces the stored room atomically.
type RoomStore interface {
	Save(ctx context.Context, state RoomState) error
	Delete(ctx context.Context, id string) error
	LoadAll(ctx context.Context) ([]RoomState, error)
}

type PasswordGuard interface {
	Hash(plain string) (string, error)
	// Verify never returns an error: malformed hashes simply fail to match.
	Verify(plain, hash string) bool
}

type RoomEventPublisher interface {
	Publish(ctx context.Context, event *RoomAuditLog) error
}
