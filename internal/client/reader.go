package client

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/danmuck/artwire/internal/protocol/frame"
)

const legacyChunkSize = 4096

func (c *Client) readResponse(ctx context.Context, op string) ([]byte, error) {
	if c.cfg.ResponseMode == ResponseLegacy {
		return c.readLegacy(ctx, op)
	}
	return c.readFramed(ctx, op)
}

// readFramed reads a 4-byte length then exactly that many bytes.
func (c *Client) readFramed(ctx context.Context, op string) ([]byte, error) {
	if err := c.setReadDeadline(ctx, c.cfg.ReadTimeout); err != nil {
		return nil, c.classify(ctx, op, c.cfg.ReadTimeout, err)
	}
	payload, err := frame.ReadFrame(c.reader, c.cfg.frameOptions())
	if err != nil {
		return nil, c.classify(ctx, op, c.cfg.ReadTimeout, err)
	}
	return payload, nil
}

// readLegacy waits up to ReadTimeout for the first bytes, then keeps reading
// until the peer is quiet for QuietPeriod or closes the stream.
func (c *Client) readLegacy(ctx context.Context, op string) ([]byte, error) {
	buf := make([]byte, 0, legacyChunkSize)
	chunk := make([]byte, legacyChunkSize)
	for {
		wait := c.cfg.ReadTimeout
		if len(buf) > 0 {
			wait = c.cfg.QuietPeriod
		}
		if err := c.setReadDeadline(ctx, wait); err != nil {
			return nil, c.classify(ctx, op, c.cfg.ReadTimeout, err)
		}
		n, err := c.reader.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if len(buf) > c.cfg.MaxResponseBytes {
			return nil, &ProtocolError{Op: op, Err: ErrResponseTooLarge}
		}
		if err == nil {
			continue
		}
		if len(buf) > 0 && ctx.Err() == nil && (isTimeout(err) || errors.Is(err, io.EOF)) {
			return buf, nil
		}
		return nil, c.classify(ctx, op, c.cfg.ReadTimeout, err)
	}
}

func (c *Client) setReadDeadline(ctx context.Context, timeout time.Duration) error {
	return setDeadline(ctx, c.conn.SetReadDeadline, timeout)
}

func (c *Client) setWriteDeadline(ctx context.Context, timeout time.Duration) error {
	return setDeadline(ctx, c.conn.SetWriteDeadline, timeout)
}

// setDeadline checks ctx again after setting so a cancellation that fired in
// between is not masked by the fresh deadline.
func setDeadline(ctx context.Context, set func(time.Time) error, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := set(deadlineFor(ctx, timeout)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		_ = set(time.Unix(1, 0))
		return err
	}
	return nil
}

func deadlineFor(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return deadline
}
