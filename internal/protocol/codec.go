package protocol

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
)

// Encode marshals v and rejects bodies the peer would refuse.
func Encode(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	if len(body) > MaxJSONLen {
		return nil, fmt.Errorf("%w: message of %d bytes exceeds limit %d", apperror.ErrProtocol, len(body), MaxJSONLen)
	}

	return body, nil
}

// Decode unmarshals a frame body into v.
func Decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: malformed json: %w", apperror.ErrProtocol, err)
	}

	return nil
}

// Send writes v as a JSON control frame.
func Send(w io.Writer, v any) error {
	body, err := Encode(v)
	if err != nil {
		return err
	}

	return WriteFrame(w, body, MaxJSONLen)
}

// Recv reads one JSON control frame into v.
func Recv(r io.Reader, v any) error {
	body, err := ReadFrame(r, MaxJSONLen)
	if err != nil {
		return err
	}

	return Decode(body, v)
}

// SendBytes writes an opaque binary frame.
func SendBytes(w io.Writer, data []byte) error {
	return WriteFrame(w, data, MaxFileLen)
}

// RecvBytes reads an opaque binary frame.
func RecvBytes(r io.Reader) ([]byte, error) {
	return ReadFrame(r, MaxFileLen)
}
