package storerpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
	"github.com/rocketscienceinc/blockarena-backend/internal/entity"
	"github.com/rocketscienceinc/blockarena-backend/internal/protocol"
	"github.com/rocketscienceinc/blockarena-backend/internal/usecase"
)

const idleTimeout = 5 * time.Minute

type storeManager interface {
	Register(ctx context.Context, creds usecase.Credentials) (*entity.UserView, error)
	Login(ctx context.Context, creds usecase.Credentials) (*entity.UserView, error)
	Logout(ctx context.Context, userID int64) error

	UpsertGame(ctx context.Context, meta *entity.GameMeta) (*entity.GameMeta, error)
	GetGame(ctx context.Context, name string) (*entity.GameMeta, error)
	ListGames(ctx context.Context) ([]entity.GameSummary, error)
	DeleteGame(ctx context.Context, name, author string) error

	CreateRoom(ctx context.Context, name string, hostID int64, gameName string) (*entity.Room, error)
	ListPublicRooms(ctx context.Context) ([]*entity.Room, error)
	GetRoom(ctx context.Context, roomID int64) (*entity.Room, error)
	Accept(ctx context.Context, roomID, userID int64) (*entity.Room, error)
	Leave(ctx context.Context, roomID, userID int64) (*entity.Room, error)

	RecordMatch(ctx context.Context, result *entity.MatchResult) error
	RecordPlay(ctx context.Context, userIDs []int64, gameName string) error
	History(ctx context.Context, userID int64) ([]string, error)

	AddReview(ctx context.Context, review *entity.Review) error
	ListReviews(ctx context.Context, gameName string) ([]*entity.Review, error)
}

type handlerFunc func(ctx context.Context, req *protocol.Request) (*protocol.Response, error)

// Server answers store requests over framed TCP, many requests per connection.
type Server struct {
	logger   *slog.Logger
	store    storeManager
	handlers map[string]handlerFunc

	wg sync.WaitGroup
}

func New(logger *slog.Logger, store storeManager) *Server {
	server := &Server{
		logger:   logger.With("component", "storerpc"),
		store:    store,
		handlers: make(map[string]handlerFunc),
	}

	server.handlers["auth_register"] = server.handleRegister
	server.handlers["auth_login"] = server.handleLogin
	server.handlers["logout"] = server.handleLogout
	server.handlers["game_upsert"] = server.handleGameUpsert
	server.handlers["game_get"] = server.handleGameGet
	server.handlers["game_list"] = server.handleGameList
	server.handlers["game_delete"] = server.handleGameDelete
	server.handlers["create_room"] = server.handleCreateRoom
	server.handlers["list_public"] = server.handleListPublic
	server.handlers["room_get"] = server.handleRoomGet
	server.handlers["accept"] = server.handleAccept
	server.handlers["leave"] = server.handleLeave
	server.handlers["match_record"] = server.handleMatchRecord
	server.handlers["record_play"] = server.handleRecordPlay
	server.handlers["history_list"] = server.handleHistoryList
	server.handlers["review_add"] = server.handleReviewAdd
	server.handlers["review_list"] = server.handleReviewList

	return server
}

// Start listens on addr and serves until ctx is canceled.
func (that *Server) Start(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return that.Serve(ctx, listener)
}

func (that *Server) Serve(ctx context.Context, listener net.Listener) error {
	log := that.logger.With("method", "Serve")

	stop := context.AfterFunc(ctx, func() {
		_ = listener.Close()
	})
	defer stop()

	log.Info("store listening", "addr", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				that.wg.Wait()
				return nil
			}

			return fmt.Errorf("failed to accept: %w", err)
		}

		that.wg.Add(1)

		go func() {
			defer that.wg.Done()
			that.serveConn(ctx, conn)
		}()
	}
}

func (that *Server) serveConn(ctx context.Context, conn net.Conn) {
	log := that.logger.With("method", "serveConn", "remote", conn.RemoteAddr().String())

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})

	defer func() {
		if r := recover(); r != nil {
			log.Error("connection handler panicked", "panic", r)
			_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
			_ = protocol.Send(conn, protocol.Failure(internalErrorMessage))
		}

		stop()
		_ = conn.Close()
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(idleTimeout))

		var req protocol.Request

		err := protocol.Recv(conn, &req)
		if errors.Is(err, apperror.ErrConnectionClosed) || protocol.IsTimeout(err) {
			return
		}

		if err != nil {
			log.Warn("bad request frame", "error", err)
			_ = protocol.Send(conn, protocol.Failure("Malformed request"))

			return
		}

		if err = protocol.Send(conn, that.Handle(ctx, &req)); err != nil {
			log.Warn("failed to send response", "error", err)
			return
		}
	}
}

// Handle dispatches one request and never returns nil.
func (that *Server) Handle(ctx context.Context, req *protocol.Request) *protocol.Response {
	log := that.logger.With("method", "Handle", "action", req.Action)

	handler, ok := that.handlers[req.Action]
	if !ok {
		return protocol.Failure("Unknown action: " + req.Action)
	}

	resp, err := handler(ctx, req)
	if err != nil {
		resp = failure(err)
		if resp.Message == internalErrorMessage {
			log.Error("store request failed", "error", err)
		} else {
			log.Debug("store request rejected", "error", err)
		}
	}

	return resp
}
