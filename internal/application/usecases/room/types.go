package room

import (
	"time"

	"github.com/hilthontt/roomkeeper/internal/domain"
)

// CreateRoomParams is the create payload. A nil Capacity takes the
// configured default; an empty Password leaves the room unprotected.
type CreateRoomParams struct {
	Name            string
	Capacity        *int
	Password        string
	Announcement    string
	CreatorNickname string
}

type CreateRoomResult struct {
	Room          domain.RoomSnapshot `json:"room"`
	ParticipantID string              `json:"participantId"`
}

// JoinRoomParams is the join payload. Password is ignored for rooms without
// protection.
type JoinRoomParams struct {
	Nickname string
	Password string
}

type JoinRoomResult struct {
	Room          domain.RoomSnapshot `json:"room"`
	ParticipantID string              `json:"participantId"`
}

// UpdateRoomParams carries a partial update. Nil fields are left untouched;
// Password set to "" clears protection.
type UpdateRoomParams struct {
	OperatorID   string
	Name         *string
	Capacity     *int
	Password     *string
	Announcement *string
}

type Options struct {
	MaxCapacity        int
	DefaultCapacity    int
	DissolvedRetention time.Duration
	JanitorInterval    time.Duration
	// Clock and NewID are replaced in tests.
	Clock func() time.Time
	NewID func() string
}

const (
	defaultMaxCapacity        = 50
	defaultDissolvedRetention = 24 * time.Hour
	defaultJanitorInterval    = time.Minute
	maxIDAttempts             = 3
)

func (o Options) withDefaults() Options {
	if o.MaxCapacity < 1 {
		o.MaxCapacity = defaultMaxCapacity
	}
	if o.DefaultCapacity < 1 || o.DefaultCapacity > o.MaxCapacity {
		o.DefaultCapacity = o.MaxCapacity
	}
	if o.DissolvedRetention <= 0 {
		o.DissolvedRetention = defaultDissolvedRetention
	}
	if o.JanitorInterval <= 0 {
		o.JanitorInterval = defaultJanitorInterval
	}
	if o.Clock == nil {
		o.Clock = func() time.Time { return time.Now().UTC() }
	}
	if o.NewID == nil {
		o.NewID = newID
	}
	return o
}
