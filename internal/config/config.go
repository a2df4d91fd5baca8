package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Lobby configures the orchestrator binary.
type Lobby struct {
	LogLevel     string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	Host         string        `yaml:"host" env:"LOBBY_HOST" env-default:"0.0.0.0"`
	Port         string        `yaml:"port" env:"LOBBY_PORT" env-default:"10002"`
	HTTPPort     string        `yaml:"http-port" env:"LOBBY_HTTP_PORT" env-default:"9090"`
	PublicHost   string        `yaml:"public-host" env:"PUBLIC_HOST" env-default:"127.0.0.1"`
	WriteTimeout time.Duration `yaml:"write-timeout" env:"LOBBY_WRITE_TIMEOUT" env-default:"5s"`
	Store        Endpoint      `yaml:"store"`
	Session      SessionLaunch `yaml:"session"`
}

type Endpoint struct {
	Host    string        `yaml:"host" env:"STORE_HOST" env-default:"127.0.0.1"`
	Port    string        `yaml:"port" env:"STORE_PORT" env-default:"10001"`
	Timeout time.Duration `yaml:"timeout" env:"STORE_TIMEOUT" env-default:"5s"`
}

// SessionLaunch holds the defaults the lobby passes to spawned runtimes.
type SessionLaunch struct {
	Binary       string        `yaml:"binary" env:"SESSION_BINARY" env-default:"session"`
	Game         string        `yaml:"game" env:"SESSION_GAME" env-default:"tetris"`
	Mode         string        `yaml:"mode" env:"SESSION_MODE" env-default:"survival"`
	DropMS       int           `yaml:"drop-ms" env:"SESSION_DROP_MS" env-default:"500"`
	LobbyHost    string        `yaml:"lobby-host" env:"SESSION_LOBBY_HOST" env-default:"127.0.0.1"`
	Warmup       time.Duration `yaml:"warmup" env:"SESSION_WARMUP" env-default:"1500ms"`
	SpawnTimeout time.Duration `yaml:"spawn-timeout" env:"SESSION_SPAWN_TIMEOUT" env-default:"5s"`
}

// Store configures the reference store binary.
type Store struct {
	LogLevel      string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	Host          string        `yaml:"host" env:"STORE_BIND_HOST" env-default:"0.0.0.0"`
	Port          string        `yaml:"port" env:"STORE_PORT" env-default:"10001"`
	Redis         Redis         `yaml:"redis"`
	RoomRetention time.Duration `yaml:"room-retention" env:"STORE_ROOM_RETENTION" env-default:"1h"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Session configures one runtime process. Flags given by the spawner override env.
type Session struct {
	LogLevel     string   `env:"SESSION_LOG_LEVEL" env-default:"info"`
	Host         string   `env:"SESSION_HOST" env-default:"0.0.0.0"`
	Port         int      `env:"SESSION_PORT" env-default:"0"`
	PublicHost   string   `env:"SESSION_PUBLIC_HOST" env-default:"127.0.0.1"`
	RoomID       int64    `env:"SESSION_ROOM_ID" env-default:"0"`
	Users        UserList `env:"SESSION_USERS"`
	Game         string   `env:"SESSION_GAME" env-default:"tetris"`
	Mode         string   `env:"SESSION_MODE" env-default:"survival"`
	DropMS       int      `env:"SESSION_DROP_MS" env-default:"500"`
	TimedSeconds int      `env:"SESSION_TIMED_SECONDS" env-default:"60"`
	TargetLines  int      `env:"SESSION_TARGET_LINES" env-default:"20"`
	LobbyHost    string   `env:"SESSION_LOBBY_HOST" env-default:"127.0.0.1"`
	LobbyPort    int      `env:"SESSION_LOBBY_PORT" env-default:"10002"`
	Seed         int64    `env:"SESSION_SEED" env-default:"0"`

	HelloTimeout     time.Duration `env:"SESSION_HELLO_TIMEOUT" env-default:"3s"`
	JoinTimeout      time.Duration `env:"SESSION_JOIN_TIMEOUT" env-default:"10s"`
	CountdownSteps   int           `env:"SESSION_COUNTDOWN_STEPS" env-default:"3"`
	CountdownStep    time.Duration `env:"SESSION_COUNTDOWN_STEP" env-default:"1s"`
	SnapshotInterval time.Duration `env:"SESSION_SNAPSHOT_INTERVAL" env-default:"60ms"`
	LoopInterval     time.Duration `env:"SESSION_LOOP_INTERVAL" env-default:"5ms"`
	Grace            time.Duration `env:"SESSION_GRACE" env-default:"2s"`
	WriteTimeout     time.Duration `env:"SESSION_WRITE_TIMEOUT" env-default:"2s"`
	ReportTimeout    time.Duration `env:"SESSION_REPORT_TIMEOUT" env-default:"3s"`
}

// Game modes.
const (
	ModeSurvival = "survival"
	ModeTimed    = "timed"
	ModeLines    = "lines"
)

var ErrInvalidMode = errors.New("invalid mode")

// MustLoadLobby reads the YAML file at path when it exists, then applies env overrides.
func MustLoadLobby(path string) *Lobby {
	config := &Lobby{}
	mustLoad(path, config)

	return config
}

func MustLoadStore(path string) *Store {
	config := &Store{}
	mustLoad(path, config)

	return config
}

// MustLoadSession reads env only; flags are bound afterwards.
func MustLoadSession() *Session {
	config := &Session{}
	if err := cleanenv.ReadEnv(config); err != nil {
		panic(fmt.Errorf("unable to load session env: %w", err))
	}

	return config
}

func mustLoad(path string, config any) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err = cleanenv.ReadConfig(path, config); err != nil {
				panic(fmt.Errorf("unable to load config file: %w", err))
			}

			return
		}
	}

	if err := cleanenv.ReadEnv(config); err != nil {
		panic(fmt.Errorf("unable to load config from env: %w", err))
	}
}

func (that *Redis) GetRedisAddr() string {
	return that.Host + ":" + that.Port
}

func (that *Endpoint) Addr() string {
	return that.Host + ":" + that.Port
}

func (that *Session) Validate() error {
	switch that.Mode {
	case ModeSurvival, ModeTimed, ModeLines:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, that.Mode)
	}

	if that.DropMS <= 0 {
		return fmt.Errorf("drop-ms must be positive, got %d", that.DropMS)
	}

	if that.Mode == ModeTimed && that.TimedSeconds <= 0 {
		return fmt.Errorf("timed-seconds must be positive, got %d", that.TimedSeconds)
	}

	if that.Mode == ModeLines && that.TargetLines <= 0 {
		return fmt.Errorf("target-lines must be positive, got %d", that.TargetLines)
	}

	if that.LoopInterval <= 0 || that.SnapshotInterval <= 0 {
		return errors.New("loop and snapshot intervals must be positive")
	}

	return nil
}

// BindFlags registers the spawn contract flags on fs, defaulting to the loaded values.
func (that *Session) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&that.Host, "host", that.Host, "bind host")
	fs.IntVar(&that.Port, "port", that.Port, "bind port, 0 picks a free one")
	fs.StringVar(&that.PublicHost, "public-host", that.PublicHost, "host clients should dial")
	fs.Int64Var(&that.RoomID, "room-id", that.RoomID, "room id")
	fs.Var(&that.Users, "users", "comma separated expected user ids")
	fs.StringVar(&that.Game, "game", that.Game, "engine name")
	fs.StringVar(&that.Mode, "mode", that.Mode, "survival|timed|lines")
	fs.IntVar(&that.DropMS, "drop-ms", that.DropMS, "gravity interval in milliseconds")
	fs.IntVar(&that.TimedSeconds, "timed-seconds", that.TimedSeconds, "match length for timed mode")
	fs.IntVar(&that.TargetLines, "target-lines", that.TargetLines, "line target for lines mode")
	fs.StringVar(&that.LobbyHost, "lobby-host", that.LobbyHost, "lobby host for the match report")
	fs.IntVar(&that.LobbyPort, "lobby-port", that.LobbyPort, "lobby port for the match report")
	fs.Int64Var(&that.Seed, "seed", that.Seed, "piece seed, 0 picks one")
}

// UserList is a comma separated list of user ids, usable as a flag and an env value.
type UserList []int64

func (that *UserList) String() string {
	parts := make([]string, 0, len(*that))
	for _, id := range *that {
		parts = append(parts, strconv.FormatInt(id, 10))
	}

	return strings.Join(parts, ",")
}

func (that *UserList) Set(value string) error {
	users := UserList{}

	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q: %w", part, err)
		}

		users = append(users, id)
	}

	*that = users

	return nil
}

// SetValue lets cleanenv parse SESSION_USERS.
func (that *UserList) SetValue(value string) error {
	return that.Set(value)
}
