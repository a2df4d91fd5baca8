package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
	"github.com/rocketscienceinc/blockarena-backend/internal/entity"
)

// CreateRoom opens a room for a known game with the host as its first member.
func (that *StoreManager) CreateRoom(ctx context.Context, name string, hostID int64, gameName string) (*entity.Room, error) {
	log := that.logger.With("method", "CreateRoom")

	game, err := that.gameRepo.GetByName(ctx, gameName)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w: %s", apperror.ErrValidation, apperror.ErrUnknownGame, gameName)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	hostName := strconv.FormatInt(hostID, 10)
	if host, err := that.userRepo.GetByID(ctx, hostID); err == nil {
		hostName = host.Username
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = hostName + "'s room"
	}

	room, err := that.roomRepo.Create(ctx, func(id int64) *entity.Room {
		room := entity.NewRoom(id, name, hostID, game)
		room.HostName = hostName
		room.CreatedAt = that.now()

		return room
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	log.Info("room created", "room_id", room.ID, "game", room.GameName, "host", hostID)

	return room, nil
}

// ListPublicRooms returns rooms that have not finished.
func (that *StoreManager) ListPublicRooms(ctx context.Context) ([]*entity.Room, error) {
	rooms, err := that.roomRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	public := make([]*entity.Room, 0, len(rooms))
	for _, room := range rooms {
		if !room.IsFinished() {
			public = append(public, room)
		}
	}

	return public, nil
}

func (that *StoreManager) GetRoom(ctx context.Context, roomID int64) (*entity.Room, error) {
	room, err := that.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}

// Accept adds userID to the room. Accepting twice is a no-op and a full room is rejected.
func (that *StoreManager) Accept(ctx context.Context, roomID, userID int64) (*entity.Room, error) {
	room, err := that.roomRepo.Update(ctx, roomID, func(room *entity.Room) error {
		return room.AddUser(userID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to accept user: %w", err)
	}

	return room, nil
}

// Leave removes userID; the last member leaving deletes the room.
func (that *StoreManager) Leave(ctx context.Context, roomID, userID int64) (*entity.Room, error) {
	log := that.logger.With("method", "Leave")

	room, err := that.roomRepo.Update(ctx, roomID, func(room *entity.Room) error {
		room.RemoveUser(userID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to leave room: %w", err)
	}

	if room.IsEmpty() {
		log.Info("room closed", "room_id", roomID)
	}

	return room, nil
}

// RecordMatch marks the room finished, schedules its expiry and credits every
// participant with a play of the room's game.
func (that *StoreManager) RecordMatch(ctx context.Context, result *entity.MatchResult) error {
	log := that.logger.With("method", "RecordMatch")

	room, err := that.roomRepo.Update(ctx, result.RoomID, func(room *entity.Room) error {
		room.Finish()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to finish room: %w", err)
	}

	if that.roomRetention > 0 {
		if err = that.roomRepo.Expire(ctx, room.ID, that.roomRetention); err != nil {
			return err
		}
	}

	users := result.Users
	if len(users) == 0 {
		users = room.Users
	}

	if err = that.RecordPlay(ctx, users, room.GameName); err != nil {
		return err
	}

	log.Info("match recorded", "room_id", room.ID, "winner", result.Results.Winner, "reason", result.Results.Reason)

	return nil
}

func (that *StoreManager) RecordPlay(ctx context.Context, userIDs []int64, gameName string) error {
	if gameName == "" {
		return fmt.Errorf("%w: game name is required", apperror.ErrValidation)
	}

	now := that.now()

	for _, userID := range userIDs {
		if err := that.historyRepo.Record(ctx, userID, gameName, now); err != nil {
			return fmt.Errorf("failed to record play: %w", err)
		}
	}

	return nil
}
