package lobby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
	"github.com/rocketscienceinc/blockarena-backend/internal/protocol"
)

type storeClient interface {
	Call(ctx context.Context, req *protocol.Request) (*protocol.Response, error)
}

type handlerFunc func(ctx context.Context, client *clientConn, req *protocol.Request) error

type Options struct {
	// PublicHost is advertised to clients when a session starts.
	PublicHost   string
	Warmup       time.Duration
	WriteTimeout time.Duration
}

// Server is the lobby orchestrator: it proxies control traffic to the store,
// tracks who is online and launches a runtime once per full room.
type Server struct {
	logger   *slog.Logger
	store    storeClient
	spawner  Spawner
	state    *State
	options  Options
	handlers map[string]handlerFunc

	wg sync.WaitGroup
}

func New(logger *slog.Logger, store storeClient, spawner Spawner, state *State, options Options) *Server {
	server := &Server{
		logger:   logger.With("component", "lobby"),
		store:    store,
		spawner:  spawner,
		state:    state,
		options:  options,
		handlers: make(map[string]handlerFunc),
	}

	server.handlers["auth_login"] = server.handleLogin
	server.handlers["logout"] = server.handleLogout
	server.handlers["list_online"] = server.handleListOnline
	server.handlers["create_room"] = server.handleCreateRoom
	server.handlers["accept"] = server.handleAccept
	server.handlers["leave"] = server.handleLeave
	server.handlers["list_public"] = server.handleListPublic
	server.handlers[protocol.ActionMatchResult] = server.handleMatchResult

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

	log.Info("lobby listening", "addr", listener.Addr().String())

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
	client := newClientConn(conn, that.options.WriteTimeout)

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})

	defer func() {
		if r := recover(); r != nil {
			log.Error("connection handler panicked", "panic", r)
			_ = client.Send(protocol.Failure("Internal lobby error"))
		}

		stop()
		_ = conn.Close()

		if userID := client.UserID(); userID != 0 && that.state.Unregister(userID, client) {
			log.Info("user went offline", "user_id", userID)
		}
	}()

	for {
		var req protocol.Request

		err := protocol.Recv(conn, &req)
		if errors.Is(err, apperror.ErrConnectionClosed) {
			return
		}

		if err != nil {
			log.Warn("bad control frame", "error", err)
			_ = client.Send(protocol.Failure("Malformed request"))

			return
		}

		if err = that.dispatch(ctx, client, &req); err != nil {
			log.Warn("failed to answer request", "action", req.Action, "error", err)
			return
		}
	}
}

// dispatch routes one request; an error means the connection is unusable.
func (that *Server) dispatch(ctx context.Context, client *clientConn, req *protocol.Request) error {
	handler, ok := that.handlers[req.Action]
	if !ok {
		handler = that.handlePassthrough
	}

	return handler(ctx, client, req)
}
