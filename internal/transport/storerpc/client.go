package storerpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
	"github.com/rocketscienceinc/blockarena-backend/internal/protocol"
)

// Client performs one store round trip per call on a fresh connection.
type Client struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

func NewClient(addr string, timeout time.Duration) *Client {
	return &Client{
		addr:    addr,
		timeout: timeout,
	}
}

// Call forwards req and returns the store's reply verbatim. Transport failures,
// including the call timeout, are wrapped in ErrStoreRequest.
func (that *Client) Call(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	if that.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, that.timeout)
		defer cancel()
	}

	conn, err := that.dialer.DialContext(ctx, "tcp", that.addr)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to dial store: %w", apperror.ErrStoreRequest, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	if err = protocol.Send(conn, req); err != nil {
		return nil, fmt.Errorf("%w: failed to send %s: %w", apperror.ErrStoreRequest, req.Action, err)
	}

	var resp protocol.Response
	if err = protocol.Recv(conn, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to read %s reply: %w", apperror.ErrStoreRequest, req.Action, err)
	}

	return &resp, nil
}

// Do builds a request from action and data and calls the store.
func (that *Client) Do(ctx context.Context, action string, data any) (*protocol.Response, error) {
	req, err := protocol.NewRequest(action, data)
	if err != nil {
		return nil, err
	}

	return that.Call(ctx, req)
}
