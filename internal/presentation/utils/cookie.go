package utils

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

const (
	CookieParticipantID = "participant_id"
	HeaderParticipantID = "X-Participant-Id"

	participantCookieTTL = 24 * time.Hour
)

// ResolveParticipantID picks the caller identity: the explicit value from the
// request body, then the X-Participant-Id header, then the room-scoped
// participant cookie.
func ResolveParticipantID(r *http.Request, explicit string) string {
	if id := strings.TrimSpace(explicit); id != "" {
		return id
	}
	if id := strings.TrimSpace(r.Header.Get(HeaderParticipantID)); id != "" {
		return id
	}
	return participantIDFromCookie(r)
}

// SetParticipantCookie remembers the caller's participant id for one room.
func SetParticipantCookie(w http.ResponseWriter, roomID, participantID string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieParticipantID,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(participantID)),
		Path:     RoomPath(roomID),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(participantCookieTTL),
	})
}

func ClearParticipantCookie(w http.ResponseWriter, roomID string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieParticipantID,
		Value:    "",
		Path:     RoomPath(roomID),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func RoomPath(roomID string) string {
	return "/api/rooms/" + roomID
}

func participantIDFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(CookieParticipantID)
	if err != nil {
		return ""
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return ""
	}
	return string(decoded)
}
