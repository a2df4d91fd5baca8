package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
)

const headerLen = 4

// Frame bounds. JSON control frames are small; file frames carry game bundles.
const (
	MaxJSONLen = 64 * 1024
	MaxFileLen = 50 * 1024 * 1024
)

// WriteFrame writes a 4-byte big-endian length prefix followed by payload in a single write.
func WriteFrame(w io.Writer, payload []byte, limit int) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty frame", apperror.ErrProtocol)
	}

	if len(payload) > limit {
		return fmt.Errorf("%w: frame of %d bytes exceeds limit %d", apperror.ErrProtocol, len(payload), limit)
	}

	buf := make([]byte, headerLen+len(payload))
	binary.BigEndian.PutUint32(buf[:headerLen], uint32(len(payload)))
	copy(buf[headerLen:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", classify(err))
	}

	return nil
}

// ReadFrame blocks until a full frame is read or the peer goes away.
func ReadFrame(r io.Reader, limit int) ([]byte, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", classify(err))
	}

	length := binary.BigEndian.Uint32(header)
	if length == 0 {
		return nil, fmt.Errorf("%w: non-positive frame length", apperror.ErrProtocol)
	}

	if int64(length) > int64(limit) {
		return nil, fmt.Errorf("%w: declared length %d exceeds limit %d", apperror.ErrProtocol, length, limit)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", classify(err))
	}

	return payload, nil
}

// classify maps the ways a peer can vanish onto ErrConnectionClosed and leaves
// everything else (deadlines in particular) untouched.
func classify(err error) error {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return fmt.Errorf("%w: %w", apperror.ErrConnectionClosed, err)
	default:
		return err
	}
}

// IsTimeout reports whether err is a deadline expiry on a net.Conn.
func IsTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
