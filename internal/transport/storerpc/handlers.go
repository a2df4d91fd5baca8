package storerpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
	"github.com/rocketscienceinc/blockarena-backend/internal/entity"
	"github.com/rocketscienceinc/blockarena-backend/internal/protocol"
	"github.com/rocketscienceinc/blockarena-backend/internal/repository"
	"github.com/rocketscienceinc/blockarena-backend/internal/usecase"
)

const internalErrorMessage = "Internal store error"

type userRef struct {
	UserID int64 `json:"user_id"`
}

type roomMember struct {
	RoomID int64 `json:"room_id"`
	UserID int64 `json:"user_id"`
}

type gameRef struct {
	Name     string `json:"name"`
	GameName string `json:"game_name"`
	Author   string `json:"author"`
}

func (that *gameRef) name() string {
	if that.Name != "" {
		return that.Name
	}

	return that.GameName
}

type gameUpsert struct {
	Meta struct {
		entity.GameMeta
		GameName string `json:"game_name"`
	} `json:"meta"`
	FilePath string `json:"file_path"`
}

type createRoom struct {
	Name       string `json:"name"`
	UserID     int64  `json:"user_id"`
	HostUserID int64  `json:"hostUserId"`
	GameName   string `json:"game_name"`
}

type recordPlay struct {
	UserIDs  []int64 `json:"user_ids"`
	GameName string  `json:"game_name"`
}

func bind(req *protocol.Request, v any) error {
	if err := req.Bind(v); err != nil {
		return fmt.Errorf("%w: invalid data for %s", apperror.ErrValidation, req.Action)
	}

	return nil
}

func (that *Server) handleRegister(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var creds usecase.Credentials
	if err := bind(req, &creds); err != nil {
		return nil, err
	}

	user, err := that.store.Register(ctx, creds)
	if err != nil {
		return nil, err
	}

	return protocol.Success("Registered", user), nil
}

func (that *Server) handleLogin(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var creds usecase.Credentials
	if err := bind(req, &creds); err != nil {
		return nil, err
	}

	user, err := that.store.Login(ctx, creds)
	if err != nil {
		return nil, err
	}

	return protocol.Success("Logged in", user), nil
}

func (that *Server) handleLogout(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var ref userRef
	if err := bind(req, &ref); err != nil {
		return nil, err
	}

	if err := that.store.Logout(ctx, ref.UserID); err != nil {
		return nil, err
	}

	return protocol.Success("Logged out", nil), nil
}

func (that *Server) handleGameUpsert(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var upsert gameUpsert
	if err := bind(req, &upsert); err != nil {
		return nil, err
	}

	meta := upsert.Meta.GameMeta
	if meta.Name == "" {
		meta.Name = upsert.Meta.GameName
	}

	if upsert.FilePath != "" {
		meta.FilePath = upsert.FilePath
	}

	game, err := that.store.UpsertGame(ctx, &meta)
	if err != nil {
		return nil, err
	}

	return protocol.Success("", game), nil
}

func (that *Server) handleGameGet(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var ref gameRef
	if err := bind(req, &ref); err != nil {
		return nil, err
	}

	game, err := that.store.GetGame(ctx, ref.name())
	if errors.Is(err, apperror.ErrNotFound) {
		return protocol.Failure("Not found"), nil
	}

	if err != nil {
		return nil, err
	}

	return protocol.Success("", game), nil
}

func (that *Server) handleGameList(ctx context.Context, _ *protocol.Request) (*protocol.Response, error) {
	games, err := that.store.ListGames(ctx)
	if err != nil {
		return nil, err
	}

	return protocol.Success("", games), nil
}

func (that *Server) handleGameDelete(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var ref gameRef
	if err := bind(req, &ref); err != nil {
		return nil, err
	}

	if err := that.store.DeleteGame(ctx, ref.name(), ref.Author); err != nil {
		return nil, err
	}

	return protocol.Success("Game deleted", nil), nil
}

func (that *Server) handleCreateRoom(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var create createRoom
	if err := bind(req, &create); err != nil {
		return nil, err
	}

	host := create.UserID
	if host == 0 {
		host = create.HostUserID
	}

	room, err := that.store.CreateRoom(ctx, create.Name, host, create.GameName)
	if err != nil {
		return nil, err
	}

	return protocol.Success("", room), nil
}

func (that *Server) handleListPublic(ctx context.Context, _ *protocol.Request) (*protocol.Response, error) {
	rooms, err := that.store.ListPublicRooms(ctx)
	if err != nil {
		return nil, err
	}

	return protocol.Success("", rooms), nil
}

func (that *Server) handleRoomGet(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var member roomMember
	if err := bind(req, &member); err != nil {
		return nil, err
	}

	room, err := that.store.GetRoom(ctx, member.RoomID)
	if err != nil {
		return nil, err
	}

	return protocol.Success("", room), nil
}

func (that *Server) handleAccept(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var member roomMember
	if err := bind(req, &member); err != nil {
		return nil, err
	}

	room, err := that.store.Accept(ctx, member.RoomID, member.UserID)
	if err != nil {
		return nil, err
	}

	return protocol.Success("", room), nil
}

func (that *Server) handleLeave(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var member roomMember
	if err := bind(req, &member); err != nil {
		return nil, err
	}

	room, err := that.store.Leave(ctx, member.RoomID, member.UserID)
	if err != nil {
		return nil, err
	}

	return protocol.Success("", room), nil
}

func (that *Server) handleMatchRecord(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var result entity.MatchResult
	if err := bind(req, &result); err != nil {
		return nil, err
	}

	if err := that.store.RecordMatch(ctx, &result); err != nil {
		return nil, err
	}

	return protocol.Success("Match recorded", nil), nil
}

func (that *Server) handleRecordPlay(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var play recordPlay
	if err := bind(req, &play); err != nil {
		return nil, err
	}

	if err := that.store.RecordPlay(ctx, play.UserIDs, play.GameName); err != nil {
		return nil, err
	}

	return protocol.Success("", nil), nil
}

func (that *Server) handleHistoryList(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var ref userRef
	if err := bind(req, &ref); err != nil {
		return nil, err
	}

	games, err := that.store.History(ctx, ref.UserID)
	if err != nil {
		return nil, err
	}

	return protocol.Success("", games), nil
}

func (that *Server) handleReviewAdd(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var review entity.Review
	if err := bind(req, &review); err != nil {
		return nil, err
	}

	if err := that.store.AddReview(ctx, &review); err != nil {
		return nil, err
	}

	return protocol.Success("Review added", nil), nil
}

func (that *Server) handleReviewList(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var ref gameRef
	if err := bind(req, &ref); err != nil {
		return nil, err
	}

	reviews, err := that.store.ListReviews(ctx, ref.name())
	if err != nil {
		return nil, err
	}

	return protocol.Success("", reviews), nil
}

// failure turns a store error into the message clients display.
func failure(err error) *protocol.Response {
	switch {
	case errors.Is(err, apperror.ErrAlreadyExists):
		return protocol.Failure("Account already exists")
	case errors.Is(err, repository.ErrUserNotFound):
		return protocol.Failure("Account does not exist")
	case errors.Is(err, repository.ErrGameNotFound):
		return protocol.Failure("Game not found")
	case errors.Is(err, repository.ErrRoomNotFound):
		return protocol.Failure("Room not found")
	case errors.Is(err, apperror.ErrWrongPassword):
		return protocol.Failure("Wrong password")
	case errors.Is(err, apperror.ErrPermission):
		return protocol.Failure("Permission denied: You are not the author.")
	case errors.Is(err, apperror.ErrNotPlayed):
		return protocol.Failure("You must play this game before reviewing.")
	case errors.Is(err, apperror.ErrInvalidRating):
		return protocol.Failure("Rating must be 1-5")
	case errors.Is(err, apperror.ErrRoomFull):
		return protocol.Failure("Room is full")
	case errors.Is(err, apperror.ErrUnknownGame):
		return protocol.Failure("Unknown game")
	case errors.Is(err, apperror.ErrValidation):
		return protocol.Failure(err.Error())
	default:
		return protocol.Failure(internalErrorMessage)
	}
}
