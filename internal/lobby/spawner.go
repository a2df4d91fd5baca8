package lobby

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
	"github.com/rocketscienceinc/blockarena-backend/internal/config"
	"github.com/rocketscienceinc/blockarena-backend/internal/entity"
	"github.com/rocketscienceinc/blockarena-backend/internal/protocol"
)

type SpawnRequest struct {
	RoomID int64
	Users  []int64
	Game   *entity.GameMeta
	Seed   int64
}

// Session is where clients reach a freshly launched runtime.
type Session struct {
	Host string
	Port int
	PID  int
}

type Spawner interface {
	Spawn(ctx context.Context, req SpawnRequest) (*Session, error)
}

// ProcessSpawner launches the session binary as an independent process. The
// runtime binds port 0 and reports the chosen port as one LISTENING line on stdout.
type ProcessSpawner struct {
	logger *slog.Logger

	defaults   config.SessionLaunch
	publicHost string
	lobbyPort  string
}

func NewProcessSpawner(logger *slog.Logger, conf *config.Lobby) *ProcessSpawner {
	return &ProcessSpawner{
		logger:     logger.With("component", "spawner"),
		defaults:   conf.Session,
		publicHost: conf.PublicHost,
		lobbyPort:  conf.Port,
	}
}

// Args builds the runtime command line for req, applying per-game overrides.
func (that *ProcessSpawner) Args(req SpawnRequest) (string, []string) {
	binary, engine, mode, dropMS := that.defaults.Binary, that.defaults.Game, that.defaults.Mode, that.defaults.DropMS

	if req.Game != nil {
		server := req.Game.Execution.Server
		if server.Binary != "" {
			binary = server.Binary
		}

		if server.Engine != "" {
			engine = server.Engine
		}

		if server.Mode != "" {
			mode = server.Mode
		}

		if server.DropMS > 0 {
			dropMS = server.DropMS
		}
	}

	users := config.UserList(req.Users)

	return binary, []string{
		"--port", "0",
		"--room-id", strconv.FormatInt(req.RoomID, 10),
		"--users", users.String(),
		"--game", engine,
		"--mode", mode,
		"--drop-ms", strconv.Itoa(dropMS),
		"--public-host", that.publicHost,
		"--lobby-host", that.defaults.LobbyHost,
		"--lobby-port", that.lobbyPort,
		"--seed", strconv.FormatInt(req.Seed, 10),
	}
}

func (that *ProcessSpawner) Spawn(ctx context.Context, req SpawnRequest) (*Session, error) {
	log := that.logger.With("method", "Spawn", "room_id", req.RoomID)

	binary, args := that.Args(req)

	// not bound to ctx: the runtime outlives the request that started it
	cmd := exec.Command(binary, args...) //nolint: gosec // binary comes from lobby config or game metadata
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrSpawn, err)
	}

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start %s: %w", apperror.ErrSpawn, binary, err)
	}

	log.Info("runtime launched", "pid", cmd.Process.Pid, "binary", binary, "args", args)

	port, err := that.awaitListening(ctx, stdout)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()

		return nil, fmt.Errorf("%w: %w", apperror.ErrSpawn, err)
	}

	go func() {
		_, _ = io.Copy(io.Discard, stdout)

		if err := cmd.Wait(); err != nil {
			log.Warn("runtime exited", "pid", cmd.Process.Pid, "error", err)
			return
		}

		log.Info("runtime exited", "pid", cmd.Process.Pid)
	}()

	return &Session{Host: that.publicHost, Port: port, PID: cmd.Process.Pid}, nil
}

var errNoHandshake = errors.New("runtime closed stdout before reporting its port")

func (that *ProcessSpawner) awaitListening(ctx context.Context, stdout io.Reader) (int, error) {
	type result struct {
		port int
		err  error
	}

	done := make(chan result, 1)

	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			var listening protocol.Listening
			if json.Unmarshal(scanner.Bytes(), &listening) != nil || listening.Type != protocol.TypeListening {
				continue
			}

			done <- result{port: listening.Port}

			return
		}

		done <- result{err: errNoHandshake}
	}()

	timeout := that.defaults.SpawnTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	select {
	case res := <-done:
		if res.err == nil && (res.port <= 0 || res.port > 65535) {
			return 0, fmt.Errorf("runtime reported invalid port %d", res.port)
		}

		return res.port, res.err
	case <-time.After(timeout):
		return 0, fmt.Errorf("runtime did not report a port within %s", timeout)
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
