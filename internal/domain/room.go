package domain

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

type RoomStatus string

const (
	RoomStatusOpen      RoomStatus = "open"
	RoomStatusDissolved RoomStatus = "dissolved"
)

// ParseRoomStatus accepts "", "open" and "dissolved" in any case. The empty
// status matches every room when used as a filter.
func ParseRoomStatus(raw string) (RoomStatus, error) {
	switch status := RoomStatus(strings.ToLower(strings.TrimSpace(raw))); status {
	case "", RoomStatusOpen, RoomStatusDissolved:
		return status, nil
	default:
		return "", invalidConfig("unknown room status %q", raw)
	}
}

// RoomState is the unit of persistence for a room. It is only ever mutated
// through Room.Mutate, which hands out a private copy.
type RoomState struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	CreatorID    string        `json:"creatorId"`
	Capacity     int           `json:"capacity"`
	PasswordHash string        `json:"-"`
	Announcement string        `json:"announcement,omitempty"`
	Participants []Participant `json:"participants"`
	Status       RoomStatus    `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	DissolvedAt  time.Time     `json:"dissolvedAt,omitzero"`
}

// RoomUpdate carries the fields of a partial update. Nil fields are left
// untouched. PasswordHash set to an empty string clears protection.
type RoomUpdate struct {
	Name         *string
	Capacity     *int
	PasswordHash *string
	Announcement *string
}

func (u RoomUpdate) IsEmpty() bool {
	return u.Name == nil && u.Capacity == nil && u.PasswordHash == nil && u.Announcement == nil
}

func (s RoomState) IsOpen() bool {
	return s.Status == RoomStatusOpen
}

func (s RoomState) HasPassword() bool {
	return s.PasswordHash != ""
}

func (s RoomState) clone() RoomState {
	s.Participants = slices.Clone(s.Participants)
	return s
}

func (s RoomState) FindParticipant(participantID string) (Participant, bool) {
	idx := s.participantIndex(participantID)
	if idx < 0 {
		return Participant{}, false
	}
	return s.Participants[idx], true
}

func (s RoomState) participantIndex(participantID string) int {
	return slices.IndexFunc(s.Participants, func(p Participant) bool {
		return p.ID == participantID
	})
}

// Authorize reports whether operatorID may run privileged operations. Only
// the creator may, and only while still in the room: ownership is never
// transferred, so a room whose creator left has no privileged operator.
func (s RoomState) Authorize(operatorID string) error {
	if operatorID == "" || operatorID != s.CreatorID {
		return ErrForbidden
	}
	if s.participantIndex(operatorID) < 0 {
		return ErrForbidden
	}
	return nil
}

// Admit adds p if the room is open, has a free slot and p's id is not taken.
// The capacity check and the append happen in the same call, so callers
// holding the room scope get an atomic admission.
func (s *RoomState) Admit(p Participant, now time.Time) error {
	if !s.IsOpen() {
		return ErrRoomNotFound
	}
	if len(s.Participants) >= s.Capacity {
		return ErrRoomFull
	}
	if s.participantIndex(p.ID) >= 0 {
		return fmt.Errorf("%w: participant %s", ErrAlreadyInRoom, p.ID)
	}

	s.Participants = append(s.Participants, p)
	s.UpdatedAt = now
	return nil
}

// RemoveParticipant drops a participant. Removing the creator does not
// dissolve the room and does not hand ownership to anybody else.
func (s *RoomState) RemoveParticipant(participantID string, now time.Time) (Participant, error) {
	if !s.IsOpen() {
		return Participant{}, ErrRoomNotFound
	}

	idx := s.participantIndex(participantID)
	if idx < 0 {
		return Participant{}, ErrParticipantNotFound
	}

	removed := s.Participants[idx]
	s.Participants = slices.Delete(s.Participants, idx, idx+1)
	s.UpdatedAt = now
	return removed, nil
}

// ApplyUpdate changes only the supplied fields. Capacity can never drop below
// the current occupancy.
func (s *RoomState) ApplyUpdate(operatorID string, u RoomUpdate, maxCapacity int, now time.Time) error {
	if !s.IsOpen() {
		return ErrRoomNotFound
	}
	if err := s.Authorize(operatorID); err != nil {
		return err
	}

	if u.Capacity != nil {
		capacity := *u.Capacity
		if capacity < 1 || (maxCapacity > 0 && capacity > maxCapacity) {
			return invalidConfig("capacity must be between 1 and %d", maxCapacity)
		}
		if capacity < len(s.Participants) {
			return invalidConfig("capacity %d is below current occupancy %d", capacity, len(s.Participants))
		}
	}

	if u.IsEmpty() {
		return nil
	}

	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Capacity != nil {
		s.Capacity = *u.Capacity
	}
	if u.PasswordHash != nil {
		s.PasswordHash = *u.PasswordHash
	}
	if u.Announcement != nil {
		s.Announcement = *u.Announcement
	}
	s.UpdatedAt = now
	return nil
}

// Dissolve moves the room to its terminal state and evicts every participant.
func (s *RoomState) Dissolve(operatorID string, now time.Time) error {
	if !s.IsOpen() {
		return ErrAlreadyDissolved
	}
	if err := s.Authorize(operatorID); err != nil {
		return err
	}

	s.Participants = nil
	s.Status = RoomStatusDissolved
	s.DissolvedAt = now
	s.UpdatedAt = now
	return nil
}

// CheckInvariants verifies the structural rules every committed state obeys.
func (s RoomState) CheckInvariants() error {
	if s.ID == "" || s.CreatorID == "" {
		return fmt.Errorf("room %q: missing identity", s.ID)
	}
	if s.Capacity < 1 {
		return fmt.Errorf("room %s: capacity %d below 1", s.ID, s.Capacity)
	}
	if len(s.Participants) > s.Capacity {
		return fmt.Errorf("room %s: %d participants exceed capacity %d", s.ID, len(s.Participants), s.Capacity)
	}
	if s.Status == RoomStatusDissolved && len(s.Participants) > 0 {
		return fmt.Errorf("room %s: dissolved room still has participants", s.ID)
	}

	seen := make(map[string]struct{}, len(s.Participants))
	for _, p := range s.Participants {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("room %s: duplicate participant %s", s.ID, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

type NewRoomConfig struct {
	ID              string
	Name            string
	Capacity        int
	PasswordHash    string
	Announcement    string
	CreatorID       string
	CreatorNickname string
	Now             time.Time
}

// Room is the aggregate guarded by its own mutation scope. Rooms never share
// a lock, so operations on different rooms run fully in parallel.
type Room struct {
	id    string
	mu    sync.Mutex
	state RoomState
}

// NewRoom builds an open room with the creator already admitted.
func NewRoom(cfg NewRoomConfig) (*Room, error) {
	if cfg.ID == "" || cfg.CreatorID == "" {
		return nil, invalidConfig("room and creator identifiers are required")
	}
	if cfg.Capacity < 1 {
		return nil, invalidConfig("capacity must accommodate at least the creator")
	}

	state := RoomState{
		ID:           cfg.ID,
		Name:         cfg.Name,
		CreatorID:    cfg.CreatorID,
		Capacity:     cfg.Capacity,
		PasswordHash: cfg.PasswordHash,
		Announcement: cfg.Announcement,
		Participants: make([]Participant, 0, min(cfg.Capacity, 16)),
		Status:       RoomStatusOpen,
		CreatedAt:    cfg.Now,
		UpdatedAt:    cfg.Now,
	}

	creator := NewParticipant(cfg.CreatorID, cfg.CreatorNickname, cfg.Now)
	if err := state.Admit(creator, cfg.Now); err != nil {
		return nil, err
	}

	return &Room{id: cfg.ID, state: state}, nil
}

// RestoreRoom rebuilds a room from persisted state.
func RestoreRoom(state RoomState) (*Room, error) {
	if err := state.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &Room{id: state.ID, state: state.clone()}, nil
}

func (r *Room) ID() string {
	return r.id
}

// State returns a private copy of the full state, password hash included.
// It must not leave the service boundary; use Snapshot for outputs.
func (r *Room) State() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

func (r *Room) Snapshot() RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Snapshot()
}

func (r *Room) Summary() RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Summary()
}

// Mutate runs fn on a copy of the state inside the room's exclusive scope and
// commits the copy only when fn succeeds. A committed state that breaks an
// invariant means the scope discipline is broken, so it panics.
func (r *Room) Mutate(fn func(next *RoomState) error) (RoomState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.state.clone()
	if err := fn(&next); err != nil {
		return RoomState{}, err
	}
	if next.ID != r.id || next.CreatorID != r.state.CreatorID || !next.CreatedAt.Equal(r.state.CreatedAt) {
		panic(fmt.Sprintf("room %s: immutable fields changed during mutation", r.id))
	}
	if err := next.CheckInvariants(); err != nil {
		panic(err.Error())
	}

	r.state = next
	return next.clone(), nil
}
