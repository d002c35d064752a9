package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the root of every "absent or no longer usable" failure.
	ErrNotFound = errors.New("not found")

	ErrRoomNotFound        = fmt.Errorf("room %w", ErrNotFound)
	ErrParticipantNotFound = fmt.Errorf("participant %w", ErrNotFound)

	ErrForbidden         = errors.New("operation restricted to the room creator")
	ErrRoomFull          = errors.New("room is full")
	ErrInvalidPassword   = errors.New("invalid room password")
	ErrInvalidConfig     = errors.New("invalid room configuration")
	ErrAlreadyDissolved  = errors.New("room already dissolved")
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrAlreadyInRoom     = errors.New("already in room")
)

// invalidConfig wraps ErrInvalidConfig with the offending detail.
func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
