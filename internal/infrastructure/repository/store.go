package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/hilthontt/roomkeeper/internal/domain"
)

// memoryStore is the RoomStore used when no durable driver is configured.
type memoryStore struct {
	states map[string]domain.RoomState
	mu     sync.RWMutex
}

func NewMemoryStore() domain.RoomStore {
	return &memoryStore{
		states: make(map[string]domain.RoomState),
	}
}

func (s *memoryStore) Save(ctx context.Context, state domain.RoomState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	state.Participants = slices.Clone(state.Participants)

	s.mu.Lock()
	s.states[state.ID] = state
	s.mu.Unlock()

	return nil
}

func (s *memoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.states, id)
	s.mu.Unlock()

	return nil
}

func (s *memoryStore) LoadAll(ctx context.Context) ([]domain.RoomState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.RoomState, 0, len(s.states))
	for _, state := range s.states {
		state.Participants = slices.Clone(state.Participants)
		out = append(out, state)
	}
	return out, nil
}
