package session

import (
	"context"
	"net"
	"time"

	"github.com/rocketscienceinc/blockarena-backend/internal/protocol"
)

const spectatorSide = -1

// peer is one admitted connection. Only the main loop writes to it.
type peer struct {
	conn         net.Conn
	userID       int64
	role         string
	side         int
	alive        bool
	writeTimeout time.Duration
}

// inbound is a frame read from a peer, or the error that ended its reader.
type inbound struct {
	peer *peer
	body []byte
	err  error
}

func newPeer(conn net.Conn, hello *protocol.Hello, writeTimeout time.Duration) *peer {
	role := hello.Role
	if role != protocol.RoleSpectator {
		role = protocol.RolePlayer
	}

	return &peer{
		conn:         conn,
		userID:       hello.UserID,
		role:         role,
		side:         spectatorSide,
		alive:        true,
		writeTimeout: writeTimeout,
	}
}

func (that *peer) isPlayer() bool {
	return that.side != spectatorSide
}

func (that *peer) send(v any) error {
	body, err := protocol.Encode(v)
	if err != nil {
		return err
	}

	return that.sendRaw(body)
}

func (that *peer) sendRaw(body []byte) error {
	if that.writeTimeout > 0 {
		_ = that.conn.SetWriteDeadline(time.Now().Add(that.writeTimeout))
	}

	return protocol.WriteFrame(that.conn, body, protocol.MaxJSONLen)
}

func (that *peer) close() {
	that.alive = false
	_ = that.conn.Close()
}

// read forwards frames to out until the connection fails; the failure is the last event.
func (that *peer) read(ctx context.Context, out chan<- inbound) {
	for {
		body, err := protocol.ReadFrame(that.conn, protocol.MaxJSONLen)

		select {
		case out <- inbound{peer: that, body: body, err: err}:
		case <-ctx.Done():
			return
		}

		if err != nil {
			return
		}
	}
}
