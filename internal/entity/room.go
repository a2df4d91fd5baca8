package entity

import (
	"fmt"
	"slices"
	"time"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
)

const (
	RoomStatusIdle     = "idle"
	RoomStatusPlaying  = "playing"
	RoomStatusFinished = "finished"
)

type Room struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	HostUserID int64     `json:"host_user_id"`
	HostName   string    `json:"host_name,omitempty"`
	GameName   string    `json:"game_name"`
	MaxPlayers int       `json:"max_players"`
	Users      []int64   `json:"users"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewRoom(id int64, name string, host int64, game *GameMeta) *Room {
	maxPlayers := DefaultMaxPlayers
	if game.MaxPlayers > 0 {
		maxPlayers = game.MaxPlayers
	}

	return &Room{
		ID:         id,
		Name:       name,
		HostUserID: host,
		GameName:   game.Name,
		MaxPlayers: maxPlayers,
		Users:      []int64{host},
		Status:     RoomStatusIdle,
		CreatedAt:  time.Now(),
	}
}

func (that *Room) HasUser(userID int64) bool {
	return slices.Contains(that.Users, userID)
}

func (that *Room) IsFull() bool {
	return len(that.Users) >= that.MaxPlayers
}

func (that *Room) IsEmpty() bool {
	return len(that.Users) == 0
}

func (that *Room) IsFinished() bool {
	return that.Status == RoomStatusFinished
}

// AddUser appends userID in join order. Re-adding a member is a no-op.
func (that *Room) AddUser(userID int64) error {
	if that.HasUser(userID) {
		return nil
	}

	if that.IsFinished() {
		return fmt.Errorf("%w: room %d is finished", apperror.ErrValidation, that.ID)
	}

	if that.IsFull() {
		return fmt.Errorf("%w: %w", apperror.ErrValidation, apperror.ErrRoomFull)
	}

	that.Users = append(that.Users, userID)

	if that.IsFull() {
		that.Status = RoomStatusPlaying
	}

	return nil
}

// RemoveUser reports whether userID was a member.
func (that *Room) RemoveUser(userID int64) bool {
	idx := slices.Index(that.Users, userID)
	if idx < 0 {
		return false
	}

	that.Users = slices.Delete(that.Users, idx, idx+1)

	if that.Status == RoomStatusPlaying && !that.IsFull() {
		that.Status = RoomStatusIdle
	}

	return true
}

func (that *Room) Finish() {
	that.Status = RoomStatusFinished
}
