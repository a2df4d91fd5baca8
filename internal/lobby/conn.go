package lobby

import (
	"net"
	"sync"
	"time"

	"github.com/rocketscienceinc/blockarena-backend/internal/protocol"
)

// ConnState is the control connection's progress through the lobby.
type ConnState int

const (
	StateUnauthenticated ConnState = iota
	StateAuthenticated
	StateInRoom
	StateInSession
)

func (that ConnState) String() string {
	switch that {
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateInRoom:
		return "IN_ROOM"
	case StateInSession:
		return "IN_SESSION"
	default:
		return "UNAUTHENTICATED"
	}
}

// clientConn is one control connection. Writes are serialized because start
// notifications arrive from other connections' handlers.
type clientConn struct {
	conn         net.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex

	mu       sync.Mutex
	state    ConnState
	userID   int64
	username string
	roomID   int64
}

func newClientConn(conn net.Conn, writeTimeout time.Duration) *clientConn {
	return &clientConn{
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

func (that *clientConn) Send(resp *protocol.Response) error {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if that.writeTimeout > 0 {
		_ = that.conn.SetWriteDeadline(time.Now().Add(that.writeTimeout))
	}

	return protocol.Send(that.conn, resp)
}

func (that *clientConn) State() ConnState {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.state
}

func (that *clientConn) UserID() int64 {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.userID
}

func (that *clientConn) authenticated() bool {
	return that.State() != StateUnauthenticated
}

func (that *clientConn) login(userID int64, username string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.userID, that.username = userID, username
	that.state = StateAuthenticated
}

func (that *clientConn) logout() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.userID, that.username, that.roomID = 0, "", 0
	that.state = StateUnauthenticated
}

func (that *clientConn) enterRoom(roomID int64) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.roomID = roomID
	that.state = StateInRoom
}

func (that *clientConn) leaveRoom() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.roomID = 0
	that.state = StateAuthenticated
}

func (that *clientConn) enterSession(roomID int64) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.roomID = roomID
	that.state = StateInSession
}

// sessionEnded returns a participant to the lobby once its match is reported.
func (that *clientConn) sessionEnded(roomID int64) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state == StateInSession && that.roomID == roomID {
		that.roomID = 0
		that.state = StateAuthenticated
	}
}
