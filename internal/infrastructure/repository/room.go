package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hilthontt/roomkeeper/internal/domain"
)

const defaultHistoryLimit = 1000

type historyEntry struct {
	id          string
	dissolvedAt time.Time
}

// roomRegistry keeps open rooms in the active index and dissolved rooms in a
// bounded history so in-flight references still resolve after dissolution.
type roomRegistry struct {
	active       map[string]*domain.Room
	history      map[string]*domain.Room
	historyOrder []historyEntry // oldest first
	historyLimit int
	mu           sync.RWMutex
}

func NewRoomRegistry(historyLimit int) domain.RoomRegistry {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}

	return &roomRegistry{
		active:       make(map[string]*domain.Room),
		history:      make(map[string]*domain.Room),
		historyLimit: historyLimit,
	}
}

// Create stores a fully built room. Identifiers still known to the registry
// are refused so they are never handed out twice.
func (r *roomRegistry) Create(ctx context.Context, room *domain.Room) error {
	if room == nil || room.ID() == "" {
		return fmt.Errorf("%w: room identity is required", domain.ErrInvalidConfig)
	}
	if summary := room.Summary(); summary.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1", domain.ErrInvalidConfig)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.knows(room.ID()) {
		return domain.ErrRoomAlreadyExists
	}

	r.active[room.ID()] = room
	return nil
}

func (r *roomRegistry) knows(id string) bool {
	if _, exists := r.active[id]; exists {
		return true
	}
	_, exists := r.history[id]
	return exists
}

// Get resolves active rooms first and then the dissolved history.
func (r *roomRegistry) Get(ctx context.Context, id string) (*domain.Room, error) {
	if id == "" {
		return nil, domain.ErrRoomNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if room, exists := r.active[id]; exists {
		return room, nil
	}
	if room, exists := r.history[id]; exists {
		return room, nil
	}
	return nil, domain.ErrRoomNotFound
}

// rooms copies the room pointers so callers can scan without holding the
// registry lock.
func (r *roomRegistry) rooms() []*domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Room, 0, len(r.active)+len(r.history))
	for _, room := range r.active {
		out = append(out, room)
	}
	for _, room := range r.history {
		out = append(out, room)
	}
	return out
}

// List filters and pages a point-in-time copy of the collection, newest
// first with the id as tie-break.
func (r *roomRegistry) List(ctx context.Context, filter domain.RoomFilter) (domain.RoomPage, error) {
	filter = filter.Normalize()

	matched := make([]domain.RoomSummary, 0)
	for _, room := range r.rooms() {
		summary := room.Summary()
		if filter.Matches(summary) {
			matched = append(matched, summary)
		}
	}

	slices.SortFunc(matched, func(a, b domain.RoomSummary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	page := domain.RoomPage{
		Items:    []domain.RoomSummary{},
		Total:    len(matched),
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}

	start := (filter.Page - 1) * filter.PageSize
	if start >= len(matched) {
		return page, nil
	}
	end := min(start+filter.PageSize, len(matched))
	page.Items = matched[start:end]

	return page, nil
}

// Remove moves a room from the active index into the dissolved history.
// Removing a room that is already in the history is a no-op.
func (r *roomRegistry) Remove(ctx context.Context, id string, dissolvedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.active[id]
	if !exists {
		if _, dissolved := r.history[id]; dissolved {
			return nil
		}
		return domain.ErrRoomNotFound
	}

	delete(r.active, id)
	r.history[id] = room
	r.historyOrder = append(r.historyOrder, historyEntry{id: id, dissolvedAt: dissolvedAt})

	return nil
}

// Stats counts over a point-in-time copy of the collection. Counts come from
// committed room states, so they never exceed any room's capacity.
func (r *roomRegistry) Stats(ctx context.Context) domain.Stats {
	var stats domain.Stats
	for _, room := range r.rooms() {
		summary := room.Summary()
		switch summary.Status {
		case domain.RoomStatusOpen:
			stats.OpenRooms++
			stats.TotalParticipants += summary.ParticipantCount
		case domain.RoomStatusDissolved:
			stats.DissolvedRooms++
		}
	}
	return stats
}

// EvictDissolved drops history entries dissolved before the cutoff, plus the
// oldest entries beyond the history limit. It returns the evicted ids.
func (r *roomRegistry) EvictDissolved(ctx context.Context, before time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	cut := 0
	for i, entry := range r.historyOrder {
		overLimit := len(r.historyOrder)-i > r.historyLimit
		if !overLimit && !entry.dissolvedAt.Before(before) {
			break
		}
		delete(r.history, entry.id)
		evicted = append(evicted, entry.id)
		cut = i + 1
	}
	r.historyOrder = slices.Clone(r.historyOrder[cut:])

	return evicted
}

// Restore loads persisted rooms into an empty registry.
func (r *roomRegistry) Restore(ctx context.Context, states []domain.RoomState) error {
	rooms := make([]*domain.Room, 0, len(states))
	for _, state := range states {
		room, err := domain.RestoreRoom(state)
		if err != nil {
			return fmt.Errorf("restore room %s: %w", state.ID, err)
		}
		rooms = append(rooms, room)
	}

	dissolved := make([]historyEntry, 0)

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(states))
	for _, state := range states {
		if _, dup := seen[state.ID]; dup || r.knows(state.ID) {
			return fmt.Errorf("restore room %s: %w", state.ID, domain.ErrRoomAlreadyExists)
		}
		seen[state.ID] = struct{}{}
	}

	for i, room := range rooms {
		state := states[i]
		if state.IsOpen() {
			r.active[state.ID] = room
			continue
		}
		r.history[state.ID] = room
		dissolved = append(dissolved, historyEntry{id: state.ID, dissolvedAt: state.DissolvedAt})
	}

	slices.SortFunc(dissolved, func(a, b historyEntry) int {
		return a.dissolvedAt.Compare(b.dissolvedAt)
	})
	r.historyOrder = append(r.historyOrder, dissolved...)

	return nil
}
