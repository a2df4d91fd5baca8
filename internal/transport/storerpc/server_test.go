package storerpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
	"github.com/rocketscienceinc/blockarena-backend/internal/entity"
	"github.com/rocketscienceinc/blockarena-backend/internal/pkg/logger"
	"github.com/rocketscienceinc/blockarena-backend/internal/protocol"
	"github.com/rocketscienceinc/blockarena-backend/internal/repository"
	"github.com/rocketscienceinc/blockarena-backend/internal/usecase"
)

type mockStore struct{ mock.Mock }

func (that *mockStore) Register(ctx context.Context, creds usecase.Credentials) (*entity.UserView, error) {
	args := that.Called(ctx, creds)
	user, _ := args.Get(0).(*entity.UserView)

	return user, args.Error(1)
}

func (that *mockStore) Login(ctx context.Context, creds usecase.Credentials) (*entity.UserView, error) {
	args := that.Called(ctx, creds)
	user, _ := args.Get(0).(*entity.UserView)

	return user, args.Error(1)
}

func (that *mockStore) Logout(ctx context.Context, userID int64) error {
	return that.Called(ctx, userID).Error(0)
}

func (that *mockStore) UpsertGame(ctx context.Context, meta *entity.GameMeta) (*entity.GameMeta, error) {
	args := that.Called(ctx, meta)
	game, _ := args.Get(0).(*entity.GameMeta)

	return game, args.Error(1)
}

func (that *mockStore) GetGame(ctx context.Context, name string) (*entity.GameMeta, error) {
	args := that.Called(ctx, name)
	game, _ := args.Get(0).(*entity.GameMeta)

	return game, args.Error(1)
}

func (that *mockStore) ListGames(ctx context.Context) ([]entity.GameSummary, error) {
	args := that.Called(ctx)
	games, _ := args.Get(0).([]entity.GameSummary)

	return games, args.Error(1)
}

func (that *mockStore) DeleteGame(ctx context.Context, name, author string) error {
	return that.Called(ctx, name, author).Error(0)
}

func (that *mockStore) CreateRoom(ctx context.Context, name string, hostID int64, gameName string) (*entity.Room, error) {
	args := that.Called(ctx, name, hostID, gameName)
	room, _ := args.Get(0).(*entity.Room)

	return room, args.Error(1)
}

func (that *mockStore) ListPublicRooms(ctx context.Context) ([]*entity.Room, error) {
	args := that.Called(ctx)
	rooms, _ := args.Get(0).([]*entity.Room)

	return rooms, args.Error(1)
}

func (that *mockStore) GetRoom(ctx context.Context, roomID int64) (*entity.Room, error) {
	args := that.Called(ctx, roomID)
	room, _ := args.Get(0).(*entity.Room)

	return room, args.Error(1)
}

func (that *mockStore) Accept(ctx context.Context, roomID, userID int64) (*entity.Room, error) {
	args := that.Called(ctx, roomID, userID)
	room, _ := args.Get(0).(*entity.Room)

	return room, args.Error(1)
}

func (that *mockStore) Leave(ctx context.Context, roomID, userID int64) (*entity.Room, error) {
	args := that.Called(ctx, roomID, userID)
	room, _ := args.Get(0).(*entity.Room)

	return room, args.Error(1)
}

func (that *mockStore) RecordMatch(ctx context.Context, result *entity.MatchResult) error {
	return that.Called(ctx, result).Error(0)
}

func (that *mockStore) RecordPlay(ctx context.Context, userIDs []int64, gameName string) error {
	return that.Called(ctx, userIDs, gameName).Error(0)
}

func (that *mockStore) History(ctx context.Context, userID int64) ([]string, error) {
	args := that.Called(ctx, userID)
	games, _ := args.Get(0).([]string)

	return games, args.Error(1)
}

func (that *mockStore) AddReview(ctx context.Context, review *entity.Review) error {
	return that.Called(ctx, review).Error(0)
}

func (that *mockStore) ListReviews(ctx context.Context, gameName string) ([]*entity.Review, error) {
	args := that.Called(ctx, gameName)
	reviews, _ := args.Get(0).([]*entity.Review)

	return reviews, args.Error(1)
}

// startServer serves store on a loopback port until the test ends.
func startServer(t *testing.T, store storeManager) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- New(logger.Discard(), store).Serve(ctx, listener)
	}()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	return listener.Addr().String()
}

func TestServer_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown action", func(t *testing.T) {
		server := New(logger.Discard(), &mockStore{})

		resp := server.Handle(ctx, &protocol.Request{Action: "teleport"})

		assert.False(t, resp.IsSuccess())
		assert.Equal(t, "Unknown action: teleport", resp.Message)
	})

	t.Run("Errors become client messages", func(t *testing.T) {
		// Given: a store that rejects each call differently
		store := &mockStore{}
		store.On("Accept", mock.Anything, int64(1), int64(3)).
			Return(nil, apperror.ErrRoomFull).Once()
		store.On("GetGame", mock.Anything, "nope").
			Return(nil, repository.ErrGameNotFound).Once()
		store.On("Login", mock.Anything, mock.Anything).
			Return(nil, repository.ErrUserNotFound).Once()
		store.On("ListGames", mock.Anything).
			Return(nil, assert.AnError).Once()
		server := New(logger.Discard(), store)

		// When: the requests are handled
		accept, _ := protocol.NewRequest("accept", map[string]int64{"room_id": 1, "user_id": 3})
		get, _ := protocol.NewRequest("game_get", map[string]string{"name": "nope"})
		login, _ := protocol.NewRequest("auth_login", map[string]string{"username": "x", "password": "y"})

		// Then: each failure has its message
		assert.Equal(t, "Room is full", server.Handle(ctx, accept).Message)
		assert.Equal(t, "Not found", server.Handle(ctx, get).Message)
		assert.Equal(t, "Account does not exist", server.Handle(ctx, login).Message)
		assert.Equal(t, internalErrorMessage, server.Handle(ctx, &protocol.Request{Action: "game_list"}).Message)
		store.AssertExpectations(t)
	})

	t.Run("Legacy field names are accepted", func(t *testing.T) {
		// Given: older clients sending hostUserId and meta.game_name
		store := &mockStore{}
		store.On("CreateRoom", mock.Anything, "fun", int64(4), "Tetris_Battle").
			Return(&entity.Room{ID: 1}, nil).Once()
		store.On("UpsertGame", mock.Anything, mock.MatchedBy(func(meta *entity.GameMeta) bool {
			return meta.Name == "Tetris_Battle" && meta.FilePath == "/games/t.zip"
		})).Return(&entity.GameMeta{Name: "Tetris_Battle"}, nil).Once()
		server := New(logger.Discard(), store)

		create, _ := protocol.NewRequest("create_room", map[string]any{"name": "fun", "hostUserId": 4, "game_name": "Tetris_Battle"})
		upsert, _ := protocol.NewRequest("game_upsert", map[string]any{
			"meta":      map[string]any{"game_name": "Tetris_Battle", "author": "dev"},
			"file_path": "/games/t.zip",
		})

		// When / Then: both succeed
		assert.True(t, server.Handle(ctx, create).IsSuccess())
		assert.True(t, server.Handle(ctx, upsert).IsSuccess())
		store.AssertExpectations(t)
	})

	t.Run("Bad data is a validation error", func(t *testing.T) {
		server := New(logger.Discard(), &mockStore{})

		resp := server.Handle(ctx, &protocol.Request{Action: "accept", Data: []byte(`"room"`)})

		assert.False(t, resp.IsSuccess())
		assert.Contains(t, resp.Message, "invalid data for accept")
	})
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("Round trip through a live server", func(t *testing.T) {
		// Given: a store that knows bob
		store := &mockStore{}
		store.On("Login", mock.Anything, usecase.Credentials{Username: "bob", Password: "pw", Role: "player"}).
			Return(&entity.UserView{ID: 2, Username: "bob", Token: "tok"}, nil).Once()
		client := NewClient(startServer(t, store), time.Second)

		// When: bob logs in
		resp, err := client.Do(ctx, "auth_login", usecase.Credentials{Username: "bob", Password: "pw", Role: "player"})

		// Then: the user view is returned
		require.NoError(t, err)
		require.True(t, resp.IsSuccess())

		var user entity.UserView
		require.NoError(t, resp.Bind(&user))
		assert.Equal(t, "tok", user.Token)
	})

	t.Run("Several requests share one connection", func(t *testing.T) {
		store := &mockStore{}
		store.On("History", mock.Anything, int64(1)).Return([]string{"a"}, nil).Twice()
		conn, err := net.Dial("tcp", startServer(t, store))
		require.NoError(t, err)
		defer conn.Close()

		for range 2 {
			req, _ := protocol.NewRequest("history_list", map[string]int64{"user_id": 1})
			require.NoError(t, protocol.Send(conn, req))

			var resp protocol.Response
			require.NoError(t, protocol.Recv(conn, &resp))
			assert.JSONEq(t, `["a"]`, string(resp.Data))
		}
	})

	t.Run("Silent store times out", func(t *testing.T) {
		// Given: a listener that never answers
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer listener.Close()

		go func() {
			conn, err := listener.Accept()
			if err == nil {
				defer conn.Close()
				time.Sleep(time.Second)
			}
		}()

		client := NewClient(listener.Addr().String(), 100*time.Millisecond)

		// When: a call is made
		start := time.Now()
		_, err = client.Do(ctx, "game_list", nil)

		// Then: it fails as a store request error within the timeout
		require.ErrorIs(t, err, apperror.ErrStoreRequest)
		assert.Less(t, time.Since(start), 900*time.Millisecond)
	})

	t.Run("A panicking handler closes only its connection", func(t *testing.T) {
		// Given: a store whose game listing panics once
		store := &mockStore{}
		store.On("ListGames", mock.Anything).Run(func(mock.Arguments) { panic("boom") }).Return(nil, nil).Once()
		store.On("ListGames", mock.Anything).Return([]entity.GameSummary{}, nil).Once()
		addr := startServer(t, store)

		conn, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		defer conn.Close()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

		// When: the listing is requested
		require.NoError(t, protocol.Send(conn, &protocol.Request{Action: "game_list"}))

		// Then: an error frame arrives before the connection closes
		var resp protocol.Response
		require.NoError(t, protocol.Recv(conn, &resp))
		assert.False(t, resp.IsSuccess())
		assert.Equal(t, internalErrorMessage, resp.Message)
		require.ErrorIs(t, protocol.Recv(conn, &resp), apperror.ErrConnectionClosed)

		// And: the server keeps answering new connections
		again, err := NewClient(addr, time.Second).Do(ctx, "game_list", nil)
		require.NoError(t, err)
		assert.True(t, again.IsSuccess())
		store.AssertExpectations(t)
	})

	t.Run("Unreachable store", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := listener.Addr().String()
		require.NoError(t, listener.Close())

		_, err = NewClient(addr, time.Second).Do(ctx, "game_list", nil)

		require.ErrorIs(t, err, apperror.ErrStoreRequest)
	})
}
