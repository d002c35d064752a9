package domain

import (
	"strings"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ParticipantSnapshot is the read model of a participant.
type ParticipantSnapshot struct {
	ID        string    `json:"id"`
	Nickname  string    `json:"nickname"`
	JoinedAt  time.Time `json:"joinedAt"`
	IsCreator bool      `json:"isCreator"`
}

// RoomSummary is the list entry for a room. It never carries the password hash.
type RoomSummary struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	CreatorID        string     `json:"creatorId"`
	Capacity         int        `json:"capacity"`
	ParticipantCount int        `json:"participantCount"`
	HasPassword      bool       `json:"hasPassword"`
	Announcement     string     `json:"announcement,omitempty"`
	Status           RoomStatus `json:"status"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// RoomSnapshot is a point-in-time copy of a room suitable for output.
type RoomSnapshot struct {
	RoomSummary
	Participants []ParticipantSnapshot `json:"participants"`
	DissolvedAt  *time.Time            `json:"dissolvedAt,omitempty"`
}

func (s RoomState) Summary() RoomSummary {
	return RoomSummary{
		ID:               s.ID,
		Name:             s.Name,
		CreatorID:        s.CreatorID,
		Capacity:         s.Capacity,
		ParticipantCount: len(s.Participants),
		HasPassword:      s.HasPassword(),
		Announcement:     s.Announcement,
		Status:           s.Status,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func (s RoomState) Snapshot() RoomSnapshot {
	participants := make([]ParticipantSnapshot, 0, len(s.Participants))
	for _, p := range s.Participants {
		participants = append(participants, ParticipantSnapshot{
			ID:        p.ID,
			Nickname:  p.Nickname,
			JoinedAt:  p.JoinedAt,
			IsCreator: p.ID == s.CreatorID,
		})
	}

	snapshot := RoomSnapshot{
		RoomSummary:  s.Summary(),
		Participants: participants,
	}
	if !s.DissolvedAt.IsZero() {
		dissolvedAt := s.DissolvedAt
		snapshot.DissolvedAt = &dissolvedAt
	}
	return snapshot
}

type RoomFilter struct {
	Keyword  string
	Status   RoomStatus
	Page     int
	PageSize int
}

// Normalize clamps pagination to page >= 1 and pageSize in [1, MaxPageSize].
func (f RoomFilter) Normalize() RoomFilter {
	f.Keyword = strings.TrimSpace(f.Keyword)
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.PageSize < 1:
		f.PageSize = DefaultPageSize
	case f.PageSize > MaxPageSize:
		f.PageSize = MaxPageSize
	}
	return f
}

// Matches applies keyword (case-insensitive substring of the name) and status.
func (f RoomFilter) Matches(summary RoomSummary) bool {
	if f.Status != "" && summary.Status != f.Status {
		return false
	}
	if f.Keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(summary.Name), strings.ToLower(f.Keyword))
}

type RoomPage struct {
	Items    []RoomSummary `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

type Stats struct {
	OpenRooms         int `json:"openCount"`
	DissolvedRooms    int `json:"dissolvedCount"`
	TotalParticipants int `json:"totalParticipants"`
}
