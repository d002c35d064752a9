package rooms

import "github.com/hilthontt/roomkeeper/internal/domain"

type createRoomRequest struct {
	Name            string `json:"name"`
	Capacity        *int   `json:"capacity,omitempty"`
	Password        string `json:"password,omitempty"`
	Announcement    string `json:"announcement,omitempty"`
	CreatorNickname string `json:"creatorNickname"`
}

type joinRoomRequest struct {
	Nickname string `json:"nickname"`
	Password string `json:"password,omitempty"`
}

type leaveRoomRequest struct {
	ParticipantID string `json:"participantId"`
}

// updateRoomRequest fields are optional; absent fields are left untouched.
type updateRoomRequest struct {
	OperatorID   string  `json:"operatorId"`
	Name         *string `json:"name,omitempty"`
	Capacity     *int    `json:"capacity,omitempty"`
	Password     *string `json:"password,omitempty"`
	Announcement *string `json:"announcement,omitempty"`
}

type dissolveRoomRequest struct {
	OperatorID string `json:"operatorId"`
}

type verifyPasswordRequest struct {
	Password string `json:"password"`
}

type verifyPasswordResponse struct {
	Valid bool `json:"valid"`
}

type membershipResponse struct {
	Room          domain.RoomSnapshot `json:"room"`
	ParticipantID string              `json:"participantId"`
}

// invalidConfigDetails names the rule a rejected configuration broke.
type invalidConfigDetails struct {
	Reason string `json:"reason"`
}
