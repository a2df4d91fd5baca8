package lobby

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
	"github.com/rocketscienceinc/blockarena-backend/internal/config"
	"github.com/rocketscienceinc/blockarena-backend/internal/entity"
	"github.com/rocketscienceinc/blockarena-backend/internal/pkg/logger"
	"github.com/rocketscienceinc/blockarena-backend/internal/protocol"
)

const helperEnv = "BLOCKARENA_FAKE_SESSION"

// TestMain lets the test binary stand in for the session runtime.
func TestMain(m *testing.M) {
	if mode := os.Getenv(helperEnv); mode != "" {
		os.Exit(fakeSession(mode))
	}

	os.Exit(m.Run())
}

func fakeSession(mode string) int {
	conf := &config.Session{}

	fs := flag.NewFlagSet("session", flag.ContinueOnError)
	conf.BindFlags(fs)

	if err := fs.Parse(os.Args[1:]); err != nil {
		return 2
	}

	switch mode {
	case "exit":
		return 1
	case "silent":
		time.Sleep(10 * time.Second)
		return 0
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 1
	}
	defer listener.Close()

	fmt.Println("warming up") //nolint: forbidigo // noise the spawner must skip

	line, _ := json.Marshal(protocol.Listening{Type: protocol.TypeListening, Port: listener.Addr().(*net.TCPAddr).Port})
	fmt.Println(string(line)) //nolint: forbidigo // port handshake

	time.Sleep(time.Second)

	return 0
}

func newTestSpawner(t *testing.T, binary string) *ProcessSpawner {
	t.Helper()

	return NewProcessSpawner(logger.Discard(), &config.Lobby{
		Port:       "10002",
		PublicHost: "127.0.0.1",
		Session: config.SessionLaunch{
			Binary:       binary,
			Game:         "tetris",
			Mode:         config.ModeSurvival,
			DropMS:       500,
			LobbyHost:    "127.0.0.1",
			SpawnTimeout: 3 * time.Second,
		},
	})
}

func TestProcessSpawner_Args(t *testing.T) {
	t.Run("defaults come from config", func(t *testing.T) {
		// Given
		spawner := newTestSpawner(t, "session")

		// When
		binary, args := spawner.Args(SpawnRequest{RoomID: 12, Users: []int64{1, 2}, Seed: 99})

		// Then
		assert.Equal(t, "session", binary)
		assert.Equal(t, []string{
			"--port", "0",
			"--room-id", "12",
			"--users", "1,2",
			"--game", "tetris",
			"--mode", "survival",
			"--drop-ms", "500",
			"--public-host", "127.0.0.1",
			"--lobby-host", "127.0.0.1",
			"--lobby-port", "10002",
			"--seed", "99",
		}, args)
	})

	t.Run("game metadata overrides the launch defaults", func(t *testing.T) {
		// Given
		spawner := newTestSpawner(t, "session")
		meta := &entity.GameMeta{Execution: entity.Execution{Server: entity.ServerExecution{
			Binary: "/opt/games/blocks",
			Mode:   config.ModeLines,
			DropMS: 250,
		}}}

		// When
		binary, args := spawner.Args(SpawnRequest{RoomID: 1, Users: []int64{3}, Game: meta})

		// Then
		assert.Equal(t, "/opt/games/blocks", binary)
		assert.Contains(t, args, "lines")
		assert.Contains(t, args, "250")
	})

	t.Run("the runtime flag set accepts every argument", func(t *testing.T) {
		// Given
		spawner := newTestSpawner(t, "session")
		_, args := spawner.Args(SpawnRequest{RoomID: 4, Users: []int64{5, 6}, Seed: 7})

		conf := &config.Session{}
		fs := flag.NewFlagSet("session", flag.ContinueOnError)
		conf.BindFlags(fs)

		// When
		err := fs.Parse(args)

		// Then
		require.NoError(t, err)
		assert.Equal(t, int64(4), conf.RoomID)
		assert.Equal(t, config.UserList{5, 6}, conf.Users)
		assert.Equal(t, 10002, conf.LobbyPort)
		assert.Equal(t, int64(7), conf.Seed)
		assert.Equal(t, 0, conf.Port)
	})
}

func TestProcessSpawner_Spawn(t *testing.T) {
	t.Run("reads the port from the listening line", func(t *testing.T) {
		// Given
		t.Setenv(helperEnv, "listen")
		spawner := newTestSpawner(t, os.Args[0])

		// When
		session, err := spawner.Spawn(context.Background(), SpawnRequest{RoomID: 1, Users: []int64{1, 2}, Seed: 3})

		// Then
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", session.Host)
		assert.Positive(t, session.Port)
		assert.Positive(t, session.PID)
	})

	t.Run("a runtime that exits without a port is a spawn error", func(t *testing.T) {
		// Given
		t.Setenv(helperEnv, "exit")
		spawner := newTestSpawner(t, os.Args[0])

		// When
		_, err := spawner.Spawn(context.Background(), SpawnRequest{RoomID: 1, Users: []int64{1}})

		// Then
		require.ErrorIs(t, err, apperror.ErrSpawn)
		assert.ErrorIs(t, err, errNoHandshake)
	})

	t.Run("a silent runtime times out", func(t *testing.T) {
		// Given
		t.Setenv(helperEnv, "silent")
		spawner := newTestSpawner(t, os.Args[0])
		spawner.defaults.SpawnTimeout = 200 * time.Millisecond

		// When
		started := time.Now()
		_, err := spawner.Spawn(context.Background(), SpawnRequest{RoomID: 1, Users: []int64{1}})

		// Then
		require.ErrorIs(t, err, apperror.ErrSpawn)
		assert.Less(t, time.Since(started), 5*time.Second)
	})

	t.Run("a missing binary is a spawn error", func(t *testing.T) {
		// Given
		spawner := newTestSpawner(t, "/nonexistent/blockarena-session")

		// When
		_, err := spawner.Spawn(context.Background(), SpawnRequest{RoomID: 1, Users: []int64{1}})

		// Then
		assert.ErrorIs(t, err, apperror.ErrSpawn)
	})
}
