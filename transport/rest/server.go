package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rocketscienceinc/blockarena-backend/internal/lobby"
)

type lobbyState interface {
	Online() []lobby.OnlineUser
	Sessions() []lobby.SessionInfo
}

// Server exposes the lobby's in-memory state for operators.
type Server struct {
	logger *slog.Logger
	state  lobbyState
	srv    *http.Server
}

func New(logger *slog.Logger, port string, state lobbyState) *Server {
	server := &Server{
		logger: logger.With("component", "rest"),
		state:  state,
	}

	server.srv = &http.Server{
		Addr:         ":" + port,
		Handler:      server.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	return server
}

func (that *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/ping", that.ping)
	router.Get("/healthz", healthz)
	router.Get("/online", that.online)
	router.Get("/sessions", that.sessions)

	return router
}

// Start serves until ctx is canceled.
func (that *Server) Start(ctx context.Context) error {
	log := that.logger.With("method", "Start")

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := that.srv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down http server", "error", err)
		}
	})
	defer stop()

	log.Info("http server listening", "addr", that.srv.Addr)

	if err := that.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
