package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
	"github.com/rocketscienceinc/blockarena-backend/internal/entity"
	"github.com/rocketscienceinc/blockarena-backend/internal/protocol"
)

const (
	storeUnavailableMessage = "Store unavailable"
	unknownGameMessage      = "Unknown game"
	gameStartedMessage      = "Game Started"
)

type roomRef struct {
	RoomID int64 `json:"room_id"`
	UserID int64 `json:"user_id"`
}

type createRoomData struct {
	Name     string `json:"name"`
	UserID   int64  `json:"user_id"`
	GameName string `json:"game_name"`
}

// StartNotification is pushed to every participant once their runtime is up.
type StartNotification struct {
	RoomID int64   `json:"room_id"`
	Host   string  `json:"host"`
	Port   int     `json:"port"`
	Users  []int64 `json:"users"`
}

type publicRoom struct {
	entity.Room
	Session *SessionInfo `json:"session,omitempty"`
}

// forward performs a store round trip. A nil response means the caller was
// already told the store is unreachable.
func (that *Server) forward(ctx context.Context, client *clientConn, req *protocol.Request) (*protocol.Response, error) {
	resp, err := that.store.Call(ctx, req)
	if err != nil {
		that.logger.Error("store call failed", "action", req.Action, "error", err)
		return nil, client.Send(protocol.Failure(storeUnavailableMessage))
	}

	return resp, nil
}

func (that *Server) handlePassthrough(ctx context.Context, client *clientConn, req *protocol.Request) error {
	resp, err := that.forward(ctx, client, req)
	if resp == nil {
		return err
	}

	return client.Send(resp)
}

func (that *Server) handleLogin(ctx context.Context, client *clientConn, req *protocol.Request) error {
	log := that.logger.With("method", "handleLogin")

	resp, err := that.forward(ctx, client, req)
	if resp == nil {
		return err
	}

	if resp.IsSuccess() {
		var user entity.UserView
		if err = resp.Bind(&user); err != nil || user.ID == 0 {
			log.Error("store returned an unusable login reply", "error", err)
			return client.Send(protocol.Failure(storeUnavailableMessage))
		}

		if previous := client.UserID(); previous != 0 && previous != user.ID {
			that.state.Unregister(previous, client)
		}

		client.login(user.ID, user.Username)

		if displaced := that.state.Register(user.ID, user.Username, client); displaced != nil {
			log.Warn("login displaced an existing connection", "user_id", user.ID)
		}

		log.Info("user logged in", "user_id", user.ID)
	}

	return client.Send(resp)
}

func (that *Server) handleLogout(ctx context.Context, client *clientConn, req *protocol.Request) error {
	userID := client.UserID()

	req, err := withUser(req, userID)
	if err != nil {
		return client.Send(protocol.Failure(err.Error()))
	}

	resp, err := that.forward(ctx, client, req)
	if resp == nil {
		return err
	}

	if resp.IsSuccess() && userID != 0 {
		that.state.Unregister(userID, client)
		client.logout()
	}

	return client.Send(resp)
}

func (that *Server) handleListOnline(_ context.Context, client *clientConn, _ *protocol.Request) error {
	return client.Send(protocol.Success("", that.state.Online()))
}

func (that *Server) handleCreateRoom(ctx context.Context, client *clientConn, req *protocol.Request) error {
	log := that.logger.With("method", "handleCreateRoom")

	if !client.authenticated() {
		return client.Send(protocol.Failure(apperror.ErrUnauthenticated.Error()))
	}

	req, err := withUser(req, client.UserID())
	if err != nil {
		return client.Send(protocol.Failure(err.Error()))
	}

	var data createRoomData
	if err = req.Bind(&data); err != nil {
		return client.Send(protocol.Failure("invalid data for create_room"))
	}

	meta, err := that.fetchGame(ctx, data.GameName)
	if errors.Is(err, apperror.ErrUnknownGame) {
		log.Info("room rejected", "game_name", data.GameName, "error", err)
		return client.Send(protocol.Failure(unknownGameMessage))
	}

	if err != nil {
		log.Error("store call failed", "action", "game_get", "error", err)
		return client.Send(protocol.Failure(storeUnavailableMessage))
	}

	resp, err := that.forward(ctx, client, req)
	if resp == nil {
		return err
	}

	if resp.IsSuccess() {
		var room entity.Room
		if err = resp.Bind(&room); err == nil && room.ID != 0 {
			that.state.CacheGame(room.ID, meta)

			if data.UserID == client.UserID() {
				client.enterRoom(room.ID)
			}

			log.Info("room created", "room_id", room.ID, "game_name", meta.Name)
		}
	}

	return client.Send(resp)
}

// fetchGame resolves name through the store. A refusal wraps ErrUnknownGame,
// an unreachable store wraps ErrStoreRequest.
func (that *Server) fetchGame(ctx context.Context, name string) (*entity.GameMeta, error) {
	req, err := protocol.NewRequest("game_get", map[string]string{"name": name})
	if err != nil {
		return nil, err
	}

	resp, err := that.store.Call(ctx, req)
	if err != nil {
		return nil, err
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: %q: %s", apperror.ErrUnknownGame, name, resp.Message)
	}

	var meta entity.GameMeta
	if err = resp.Bind(&meta); err != nil || meta.Name == "" {
		return nil, fmt.Errorf("%w: %q has unreadable metadata", apperror.ErrUnknownGame, name)
	}

	return &meta, nil
}

func (that *Server) handleAccept(ctx context.Context, client *clientConn, req *protocol.Request) error {
	log := that.logger.With("method", "handleAccept")

	if !client.authenticated() {
		return client.Send(protocol.Failure(apperror.ErrUnauthenticated.Error()))
	}

	req, err := withUser(req, client.UserID())
	if err != nil {
		return client.Send(protocol.Failure(err.Error()))
	}

	resp, err := that.forward(ctx, client, req)
	if resp == nil {
		return err
	}

	if err = client.Send(resp); err != nil || !resp.IsSuccess() {
		return err
	}

	var room entity.Room
	if err = resp.Bind(&room); err != nil || room.ID == 0 {
		log.Warn("accept reply carried no room", "error", err)
		return nil
	}

	var ref roomRef
	if req.Bind(&ref) == nil && ref.UserID == client.UserID() {
		client.enterRoom(room.ID)
	}

	if room.MaxPlayers <= 0 || len(room.Users) < room.MaxPlayers {
		return nil
	}

	if !that.state.TryMarkSpawned(room.ID) {
		log.Debug("session already launched", "room_id", room.ID)
		return nil
	}

	return that.startSession(ctx, client, &room)
}

// startSession launches the runtime for a full room and tells its members where
// to connect. A failed launch is reported to the trigger once and never retried.
func (that *Server) startSession(ctx context.Context, trigger *clientConn, room *entity.Room) error {
	log := that.logger.With("method", "startSession", "room_id", room.ID)

	meta, ok := that.state.CachedGame(room.ID)
	if !ok {
		fetched, err := that.fetchGame(ctx, room.GameName)
		if err != nil {
			err = fmt.Errorf("%w: failed to resolve game %q: %w", apperror.ErrSpawn, room.GameName, err)
			log.Error("failed to spawn session", "error", err)

			return trigger.Send(protocol.Failure(fmt.Sprintf("Failed to start game session: %v", err)))
		}

		meta = fetched
	}

	session, err := that.spawner.Spawn(ctx, SpawnRequest{
		RoomID: room.ID,
		Users:  room.Users,
		Game:   meta,
		Seed:   rand.Int64N(1<<53) + 1, //nolint: gosec // piece order, not a secret
	})
	if err != nil {
		log.Error("failed to spawn session", "error", err)
		return trigger.Send(protocol.Failure(fmt.Sprintf("Failed to start game session: %v", err)))
	}

	host := session.Host
	if that.options.PublicHost != "" {
		host = that.options.PublicHost
	}

	that.state.RecordSession(SessionInfo{
		RoomID:    room.ID,
		GameName:  room.GameName,
		Host:      host,
		Port:      session.Port,
		Users:     room.Users,
		PID:       session.PID,
		StartedAt: time.Now(),
	})

	log.Info("session launched", "host", host, "port", session.Port, "users", room.Users)

	if that.options.Warmup > 0 {
		select {
		case <-time.After(that.options.Warmup):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	start := protocol.Success(gameStartedMessage, StartNotification{
		RoomID: room.ID,
		Host:   host,
		Port:   session.Port,
		Users:  room.Users,
	})

	trigger.enterSession(room.ID)

	if err = trigger.Send(start); err != nil {
		return err
	}

	for _, userID := range room.Users {
		conn, ok := that.state.Lookup(userID)
		if !ok || conn == trigger {
			continue
		}

		conn.enterSession(room.ID)

		if err := conn.Send(start); err != nil {
			log.Warn("failed to notify participant", "user_id", userID, "error", err)
		}
	}

	return nil
}

func (that *Server) handleLeave(ctx context.Context, client *clientConn, req *protocol.Request) error {
	if !client.authenticated() {
		return client.Send(protocol.Failure(apperror.ErrUnauthenticated.Error()))
	}

	req, err := withUser(req, client.UserID())
	if err != nil {
		return client.Send(protocol.Failure(err.Error()))
	}

	resp, err := that.forward(ctx, client, req)
	if resp == nil {
		return err
	}

	var ref roomRef
	if resp.IsSuccess() && req.Bind(&ref) == nil && ref.UserID == client.UserID() {
		client.leaveRoom()
	}

	return client.Send(resp)
}

func (that *Server) handleListPublic(ctx context.Context, client *clientConn, req *protocol.Request) error {
	resp, err := that.forward(ctx, client, req)
	if resp == nil {
		return err
	}

	var rooms []entity.Room
	if !resp.IsSuccess() || resp.Bind(&rooms) != nil {
		return client.Send(resp)
	}

	decorated := make([]publicRoom, 0, len(rooms))
	for _, room := range rooms {
		if room.GameName == "" {
			if meta, ok := that.state.CachedGame(room.ID); ok {
				room.GameName = meta.Name
			}
		}

		entry := publicRoom{Room: room}
		if info, ok := that.state.Session(room.ID); ok {
			entry.Session = &info
		}

		decorated = append(decorated, entry)
	}

	return client.Send(protocol.Success(resp.Message, decorated))
}

func (that *Server) handleMatchResult(ctx context.Context, client *clientConn, req *protocol.Request) error {
	log := that.logger.With("method", "handleMatchResult")

	var result entity.MatchResult
	if err := req.Bind(&result); err != nil || result.RoomID == 0 {
		return client.Send(protocol.Failure("invalid match result"))
	}

	log.Info("match finished", "room_id", result.RoomID, "winner", result.Results.Winner, "reason", result.Results.Reason)

	that.state.FinishSession(result.RoomID, result.Users, result.Results, time.Now())
	that.state.DropGame(result.RoomID)

	for _, userID := range result.Users {
		if conn, ok := that.state.Lookup(userID); ok {
			conn.sessionEnded(result.RoomID)
		}
	}

	record := &protocol.Request{Action: "match_record", Data: req.Data}

	resp, err := that.forward(ctx, client, record)
	if resp == nil {
		return err
	}

	return client.Send(resp)
}

// withUser fills data.user_id with userID when the client left it out.
func withUser(req *protocol.Request, userID int64) (*protocol.Request, error) {
	fields := map[string]json.RawMessage{}
	if err := req.Bind(&fields); err != nil {
		return nil, fmt.Errorf("invalid data for %s", req.Action)
	}

	if userID == 0 {
		return req, nil
	}

	if raw, ok := fields["user_id"]; ok && string(raw) != "0" && string(raw) != "null" {
		return req, nil
	}

	// legacy clients name the room host this way
	if raw, ok := fields["hostUserId"]; ok && req.Action == "create_room" {
		fields["user_id"] = raw
	} else {
		fields["user_id"] = json.RawMessage(fmt.Sprint(userID))
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s data: %w", req.Action, err)
	}

	return &protocol.Request{Action: req.Action, Data: data}, nil
}
