package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/danmuck/artwire/internal/protocol"
	"github.com/danmuck/artwire/internal/protocol/frame"
)

var (
	ErrClosed           = errors.New("client: connection closed")
	ErrPeerClosed       = errors.New("client: peer closed connection")
	ErrResponseTooLarge = errors.New("client: response exceeds limit")
)

// ConnectionError reports a failure to establish or keep the transport.
type ConnectionError struct {
	Op   string
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("client: %s %s: connection error: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError reports a malformed frame or a reply outside expected bounds.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("client: %s: protocol error: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// TimeoutError reports a deadline that expired before the peer answered.
type TimeoutError struct {
	Op    string
	Limit time.Duration
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("client: %s: no response within %v", e.Op, e.Limit)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func (e *TimeoutError) Timeout() bool { return true }

func (e *TimeoutError) Temporary() bool { return true }

var _ net.Error = (*TimeoutError)(nil)

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}

func isProtocol(err error) bool {
	return errors.Is(err, frame.ErrShortHeader) ||
		errors.Is(err, frame.ErrTruncatedPayload) ||
		errors.Is(err, frame.ErrPayloadTooLarge) ||
		errors.Is(err, ErrResponseTooLarge) ||
		errors.Is(err, protocol.ErrUnexpectedReply) ||
		errors.Is(err, protocol.ErrEmbeddedNUL)
}

func isPeerClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

// classify maps a raw transport error onto the client error taxonomy. ctx
// errors win so cancellation is reported as such.
func (c *Client) classify(ctx context.Context, op string, timeout time.Duration, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return &TimeoutError{Op: op, Limit: timeout, Err: ctxErr}
		}
		return ctxErr
	}
	switch {
	case isTimeout(err):
		return &TimeoutError{Op: op, Limit: timeout, Err: err}
	case isProtocol(err):
		return &ProtocolError{Op: op, Err: err}
	case isPeerClosed(err):
		return &ConnectionError{Op: op, Addr: c.cfg.Address, Err: fmt.Errorf("%w: %w", ErrPeerClosed, err)}
	default:
		return &ConnectionError{Op: op, Addr: c.cfg.Address, Err: err}
	}
}
