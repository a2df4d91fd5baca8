package entity

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
)

func TestNewRoom(t *testing.T) {
	t.Run("Host is the first member and capacity comes from the game", func(t *testing.T) {
		// Given: a three player game
		game := &GameMeta{Name: "Tetris_Battle", MaxPlayers: 3}

		// When: a room is created
		room := NewRoom(1, "fun", 10, game)

		// Then: the host is the only member and the room is idle
		assert.Equal(t, []int64{10}, room.Users)
		assert.Equal(t, 3, room.MaxPlayers)
		assert.Equal(t, RoomStatusIdle, room.Status)
		assert.Equal(t, "Tetris_Battle", room.GameName)
	})

	t.Run("Missing capacity falls back to two players", func(t *testing.T) {
		room := NewRoom(1, "fun", 10, &GameMeta{Name: "x"})

		assert.Equal(t, DefaultMaxPlayers, room.MaxPlayers)
	})
}

func TestRoom_AddUser(t *testing.T) {
	t.Run("Members keep join order", func(t *testing.T) {
		// Given: a four player room
		room := NewRoom(1, "r", 5, &GameMeta{Name: "g", MaxPlayers: 4})

		// When: users join
		require.NoError(t, room.AddUser(3))
		require.NoError(t, room.AddUser(1))

		// Then: order is join order
		assert.Equal(t, []int64{5, 3, 1}, room.Users)
	})

	t.Run("Re-accepting a member is a no-op", func(t *testing.T) {
		// Given: a room with two members
		room := NewRoom(1, "r", 1, &GameMeta{Name: "g", MaxPlayers: 3})
		require.NoError(t, room.AddUser(2))

		// When: the same user is accepted again
		err := room.AddUser(2)

		// Then: nothing changes
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, room.Users)
	})

	t.Run("Re-accepting a member of a full room is still a no-op", func(t *testing.T) {
		room := NewRoom(1, "r", 1, &GameMeta{Name: "g", MaxPlayers: 2})
		require.NoError(t, room.AddUser(2))

		require.NoError(t, room.AddUser(2))
		assert.Len(t, room.Users, 2)
	})

	t.Run("A full room rejects newcomers", func(t *testing.T) {
		// Given: a full two player room
		room := NewRoom(1, "r", 1, &GameMeta{Name: "g", MaxPlayers: 2})
		require.NoError(t, room.AddUser(2))

		// When: a third user joins
		err := room.AddUser(3)

		// Then: a validation error is returned and the size bound holds
		require.ErrorIs(t, err, apperror.ErrValidation)
		require.ErrorIs(t, err, apperror.ErrRoomFull)
		assert.LessOrEqual(t, len(room.Users), room.MaxPlayers)
	})

	t.Run("Filling the room moves it to playing", func(t *testing.T) {
		room := NewRoom(1, "r", 1, &GameMeta{Name: "g", MaxPlayers: 2})

		require.NoError(t, room.AddUser(2))

		assert.Equal(t, RoomStatusPlaying, room.Status)
		assert.True(t, room.IsFull())
	})
}

func TestRoom_RemoveUser(t *testing.T) {
	t.Run("Removing a member reopens a full room", func(t *testing.T) {
		// Given: a full room
		room := NewRoom(1, "r", 1, &GameMeta{Name: "g", MaxPlayers: 2})
		require.NoError(t, room.AddUser(2))

		// When: a member leaves
		removed := room.RemoveUser(2)

		// Then: the room is idle again
		assert.True(t, removed)
		assert.Equal(t, []int64{1}, room.Users)
		assert.Equal(t, RoomStatusIdle, room.Status)
	})

	t.Run("Removing a stranger reports false", func(t *testing.T) {
		room := NewRoom(1, "r", 1, &GameMeta{Name: "g"})

		assert.False(t, room.RemoveUser(42))
	})
}

func TestReview_Validate(t *testing.T) {
	t.Run("Rating outside 1-5 is rejected", func(t *testing.T) {
		for _, rating := range []int{0, 6, -1} {
			review := &Review{Rating: rating}
			assert.ErrorIs(t, review.Validate(), apperror.ErrInvalidRating)
		}
	})

	t.Run("Long comments are trimmed to 200 runes", func(t *testing.T) {
		// Given: a review with a long multi-byte comment
		review := &Review{Rating: 5, Comment: strings.Repeat("好", 250)}

		// When: it is validated
		require.NoError(t, review.Validate())

		// Then: the comment is cut at 200 runes
		assert.Equal(t, 200, utf8.RuneCountInString(review.Comment))
	})
}

func TestGameMeta_Normalize(t *testing.T) {
	t.Run("Fills player bounds", func(t *testing.T) {
		meta := &GameMeta{Name: "g"}

		meta.Normalize()

		assert.Equal(t, 2, meta.MaxPlayers)
		assert.Equal(t, 2, meta.MinPlayers)
	})

	t.Run("Solo games get a minimum of one", func(t *testing.T) {
		meta := &GameMeta{Name: "g", MaxPlayers: 1}

		meta.Normalize()

		assert.Equal(t, 1, meta.MinPlayers)
	})
}
