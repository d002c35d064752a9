package domain

import (
	"fmt"
	"strings"

	"github.com/hilthontt/roomkeeper/internal/infrastructure/validate"
)

const (
	MaxRoomNameLength     = 64
	MaxNicknameLength     = 32
	MaxAnnouncementLength = 500
	// bcrypt ignores everything past 72 bytes, so longer passwords are refused.
	MaxPasswordBytes = 72
)

var (
	validateRoomName = validate.Field("name",
		validate.Required(),
		validate.ValidUTF8(),
		validate.MaxLength(MaxRoomNameLength),
		validate.NoControlChars(false),
	)

	validateNickname = validate.Field("nickname",
		validate.Required(),
		validate.ValidUTF8(),
		validate.MaxLength(MaxNicknameLength),
		validate.NoControlChars(false),
	)

	validateAnnouncement = validate.Field("announcement",
		validate.Optional(
			validate.ValidUTF8(),
			validate.MaxLength(MaxAnnouncementLength),
			validate.NoControlChars(true),
		),
	)

	validatePassword = validate.Field("password",
		validate.Optional(validate.MaxBytes(MaxPasswordBytes)),
	)
)

// NormalizeRoomName trims and validates a room name.
func NormalizeRoomName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if err := validateRoomName(name); err != nil {
		return "", wrapInvalid(err)
	}
	return name, nil
}

func NormalizeNickname(raw string) (string, error) {
	nickname := strings.TrimSpace(raw)
	if err := validateNickname(nickname); err != nil {
		return "", wrapInvalid(err)
	}
	return nickname, nil
}

func NormalizeAnnouncement(raw string) (string, error) {
	announcement := strings.TrimSpace(raw)
	if err := validateAnnouncement(announcement); err != nil {
		return "", wrapInvalid(err)
	}
	return announcement, nil
}

// ValidatePassword bounds plaintext passwords. Passwords are never trimmed.
func ValidatePassword(plain string) error {
	if err := validatePassword(plain); err != nil {
		return wrapInvalid(err)
	}
	return nil
}

func wrapInvalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
}
