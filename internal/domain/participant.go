package domain

import "time"

type Participant struct {
	ID       string    `json:"id"`
	Nickname string    `json:"nickname"`
	JoinedAt time.Time `json:"joinedAt"`
}

func NewParticipant(id, nickname string, joinedAt time.Time) Participant {
	return Participant{
		ID:       id,
		Nickname: nickname,
		JoinedAt: joinedAt,
	}
}
