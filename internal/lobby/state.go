package lobby

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/rocketscienceinc/blockarena-backend/internal/entity"
	"github.com/rocketscienceinc/blockarena-backend/internal/protocol"
)

// notifier is a connection the lobby can push a reply to.
type notifier interface {
	Send(resp *protocol.Response) error
	enterSession(roomID int64)
	sessionEnded(roomID int64)
}

type OnlineUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

type onlineEntry struct {
	conn     notifier
	username string
}

const (
	SessionRunning  = "running"
	SessionFinished = "finished"
)

// SessionInfo describes a runtime the lobby launched.
type SessionInfo struct {
	RoomID     int64               `json:"room_id"`
	GameName   string              `json:"game_name"`
	Host       string              `json:"host"`
	Port       int                 `json:"port"`
	Users      []int64             `json:"users"`
	PID        int                 `json:"pid"`
	Status     string              `json:"status"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
	Result     *entity.WinDecision `json:"result,omitempty"`
}

// State is every piece of lobby memory shared between connection handlers, behind one mutex.
type State struct {
	mu sync.Mutex

	online   map[int64]onlineEntry
	games    map[int64]*entity.GameMeta
	spawned  map[int64]struct{}
	sessions map[int64]*SessionInfo
}

func NewState() *State {
	return &State{
		online:   make(map[int64]onlineEntry),
		games:    make(map[int64]*entity.GameMeta),
		spawned:  make(map[int64]struct{}),
		sessions: make(map[int64]*SessionInfo),
	}
}

// Register points userID at conn and returns the connection it displaced, if any.
// The last login wins.
func (that *State) Register(userID int64, username string, conn notifier) notifier {
	that.mu.Lock()
	defer that.mu.Unlock()

	previous, ok := that.online[userID]
	that.online[userID] = onlineEntry{conn: conn, username: username}

	if !ok || previous.conn == conn {
		return nil
	}

	return previous.conn
}

// Unregister removes userID only while it still belongs to conn, so a displaced
// connection closing does not log out its replacement.
func (that *State) Unregister(userID int64, conn notifier) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	entry, ok := that.online[userID]
	if !ok || entry.conn != conn {
		return false
	}

	delete(that.online, userID)

	return true
}

func (that *State) Lookup(userID int64) (notifier, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	entry, ok := that.online[userID]

	return entry.conn, ok
}

// Online lists logged in users ordered by id.
func (that *State) Online() []OnlineUser {
	that.mu.Lock()
	defer that.mu.Unlock()

	users := make([]OnlineUser, 0, len(that.online))
	for id, entry := range that.online {
		users = append(users, OnlineUser{ID: id, Username: entry.username})
	}

	slices.SortFunc(users, func(a, b OnlineUser) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return users
}

func (that *State) CacheGame(roomID int64, meta *entity.GameMeta) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.games[roomID] = meta
}

func (that *State) CachedGame(roomID int64) (*entity.GameMeta, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	meta, ok := that.games[roomID]

	return meta, ok
}

func (that *State) DropGame(roomID int64) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.games, roomID)
}

// TryMarkSpawned reports true exactly once per room.
func (that *State) TryMarkSpawned(roomID int64) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.spawned[roomID]; ok {
		return false
	}

	that.spawned[roomID] = struct{}{}

	return true
}

func (that *State) RecordSession(info SessionInfo) {
	that.mu.Lock()
	defer that.mu.Unlock()

	info.Status = SessionRunning
	that.sessions[info.RoomID] = &info
}

// FinishSession stores the verdict. Unknown rooms are recorded too, since a
// runtime may report after a lobby restart.
func (that *State) FinishSession(roomID int64, users []int64, result entity.WinDecision, at time.Time) {
	that.mu.Lock()
	defer that.mu.Unlock()

	info, ok := that.sessions[roomID]
	if !ok {
		info = &SessionInfo{RoomID: roomID, Users: users}
		that.sessions[roomID] = info
	}

	info.Status = SessionFinished
	info.FinishedAt = &at
	info.Result = &result
}

func (that *State) Session(roomID int64) (SessionInfo, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	info, ok := that.sessions[roomID]
	if !ok {
		return SessionInfo{}, false
	}

	return *info, true
}

// Sessions returns copies ordered by room id.
func (that *State) Sessions() []SessionInfo {
	that.mu.Lock()
	defer that.mu.Unlock()

	sessions := make([]SessionInfo, 0, len(that.sessions))
	for _, info := range that.sessions {
		sessions = append(sessions, *info)
	}

	slices.SortFunc(sessions, func(a, b SessionInfo) int {
		return cmp.Compare(a.RoomID, b.RoomID)
	})

	return sessions
}
