// Command session hosts one match. The lobby starts it with the room's flags and
// reads the bound port from the first LISTENING line on stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
	"github.com/rocketscienceinc/blockarena-backend/internal/config"
	"github.com/rocketscienceinc/blockarena-backend/internal/game"
	"github.com/rocketscienceinc/blockarena-backend/internal/pkg/logger"
	"github.com/rocketscienceinc/blockarena-backend/internal/session"
	"github.com/rocketscienceinc/blockarena-backend/internal/tetris"
	"github.com/rocketscienceinc/blockarena-backend/internal/transport/storerpc"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	conf := config.MustLoadSession()
	conf.BindFlags(flag.CommandLine)
	flag.Parse()

	// stdout carries the port handshake only
	log := logger.New(os.Stderr, conf.LogLevel)

	if err := conf.Validate(); err != nil {
		log.Error("invalid session config", "error", err)
		return 2
	}

	registry := game.NewRegistry()
	registry.Register(tetris.Name, tetris.NewEngine)

	factory, err := registry.Lookup(conf.Game)
	if err != nil {
		log.Error("unsupported game", "error", err, "available", registry.Names())
		return 2
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(conf.Host, strconv.Itoa(conf.Port)))
	if err != nil {
		log.Error("failed to listen", "error", err)
		return 1
	}

	if err = session.Announce(os.Stdout, listener.Addr()); err != nil {
		log.Error("failed to announce port", "error", err)
		return 1
	}

	var reporter session.Reporter
	if conf.LobbyPort > 0 {
		reporter = storerpc.NewClient(net.JoinHostPort(conf.LobbyHost, strconv.Itoa(conf.LobbyPort)), conf.ReportTimeout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runtime := session.New(log, conf, factory, tetris.BagRule, reporter)

	log.Info("session ready", "addr", listener.Addr().String(), "public_host", conf.PublicHost, "seed", runtime.Seed())

	decision, err := runtime.Run(ctx, listener)
	if errors.Is(err, apperror.ErrNoPlayers) {
		log.Warn("no players joined, closing session")
		return 0
	}

	if err != nil {
		log.Error("session failed", "error", err)
		return 1
	}

	log.Info("session finished", "winner", decision.Winner, "reason", decision.Reason)

	return 0
}
