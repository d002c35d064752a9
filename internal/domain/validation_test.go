package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRoomName(t *testing.T) {
	name, err := NormalizeRoomName("  Book club  ")
	require.NoError(t, err)
	assert.Equal(t, "Book club", name)

	for _, raw := range []string{"", "   ", strings.Repeat("x", MaxRoomNameLength+1), "bad\x00name", "line\nbreak"} {
		_, err := NormalizeRoomName(raw)
		require.ErrorIs(t, err, ErrInvalidConfig, "name %q", raw)
	}

	name, err = NormalizeRoomName(strings.Repeat("é", MaxRoomNameLength))
	require.NoError(t, err)
	assert.Equal(t, MaxRoomNameLength, len([]rune(name)))
}

func TestNormalizeNickname(t *testing.T) {
	nickname, err := NormalizeNickname(" alice ")
	require.NoError(t, err)
	assert.Equal(t, "alice", nickname)

	_, err = NormalizeNickname("")
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "nickname is required")

	_, err = NormalizeNickname(strings.Repeat("a", MaxNicknameLength+1))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNormalizeAnnouncement(t *testing.T) {
	announcement, err := NormalizeAnnouncement("")
	require.NoError(t, err)
	assert.Empty(t, announcement)

	announcement, err = NormalizeAnnouncement("first line\nsecond line")
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line", announcement)

	_, err = NormalizeAnnouncement(strings.Repeat("a", MaxAnnouncementLength+1))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidatePassword(t *testing.T) {
	require.NoError(t, ValidatePassword(""))
	require.NoError(t, ValidatePassword(" spaces are kept "))
	require.NoError(t, ValidatePassword(strings.Repeat("p", MaxPasswordBytes)))

	err := ValidatePassword(strings.Repeat("p", MaxPasswordBytes+1))
	require.ErrorIs(t, err, ErrInvalidConfig)
}
