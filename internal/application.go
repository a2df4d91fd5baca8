package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/blockarena-backend/internal/config"
	"github.com/rocketscienceinc/blockarena-backend/internal/lobby"
	"github.com/rocketscienceinc/blockarena-backend/internal/repository"
	"github.com/rocketscienceinc/blockarena-backend/internal/repository/storage"
	"github.com/rocketscienceinc/blockarena-backend/internal/transport/storerpc"
	"github.com/rocketscienceinc/blockarena-backend/internal/usecase"
	"github.com/rocketscienceinc/blockarena-backend/transport/rest"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunLobby runs the orchestrator and its ops HTTP server until a signal arrives.
func RunLobby(logger *slog.Logger, conf *config.Lobby) error {
	log := logger.With("component", "app")

	ctx, cancel := withShutdown(log)
	defer cancel()

	state := lobby.NewState()
	store := storerpc.NewClient(conf.Store.Addr(), conf.Store.Timeout)
	spawner := lobby.NewProcessSpawner(logger, conf)

	lobbyServer := lobby.New(logger, store, spawner, state, lobby.Options{
		PublicHost:   conf.PublicHost,
		Warmup:       conf.Session.Warmup,
		WriteTimeout: conf.WriteTimeout,
	})
	opsServer := rest.New(logger, conf.HTTPPort, state)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("Starting lobby server", "port", conf.Port, "store", conf.Store.Addr())

		if err := lobbyServer.Start(ctx, net.JoinHostPort(conf.Host, conf.Port)); err != nil {
			return fmt.Errorf("lobby server error: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)

		if err := opsServer.Start(ctx); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}

		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}

	log.Info("Application context canceled, shutting down")

	return nil
}

// RunStore runs the Redis backed store service until a signal arrives.
func RunStore(logger *slog.Logger, conf *config.Store) error {
	log := logger.With("component", "app")

	ctx, cancel := withShutdown(log)
	defer cancel()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == ":" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	manager := usecase.NewStoreManager(logger, usecase.Repositories{
		Users:   repository.NewUserRepository(redisStorage),
		Games:   repository.NewGameRepository(redisStorage),
		Rooms:   repository.NewRoomRepository(redisStorage),
		Reviews: repository.NewReviewRepository(redisStorage),
		History: repository.NewPlayHistoryRepository(redisStorage),
	}, conf.RoomRetention)

	log.Info("Starting store server", "port", conf.Port, "redis", redisAddrString)

	if err = storerpc.New(logger, manager).Start(ctx, net.JoinHostPort(conf.Host, conf.Port)); err != nil {
		return fmt.Errorf("store server error: %w", err)
	}

	log.Info("Application context canceled, shutting down")

	return nil
}

// withShutdown returns a context canceled on SIGINT or SIGTERM.
func withShutdown(log *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}

		signal.Stop(sigs)
	}()

	return ctx, cancel
}
