package client

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/danmuck/artwire/internal/protocol"
	"github.com/danmuck/artwire/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

// Client owns one connection to an image server. Calls are serialized; the
// protocol allows a single request in flight.
type Client struct {
	cfg   Config
	codec protocol.Codec

	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	welcome []byte
	closed  bool
}

// Dial connects to cfg.Address and, when cfg.ReadWelcome is set, consumes the
// banner the server sends on accept.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.WithDefaults()
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		if isTimeout(err) || ctx.Err() != nil {
			return nil, &TimeoutError{Op: "dial", Limit: cfg.ConnectTimeout, Err: err}
		}
		return nil, &ConnectionError{Op: "dial", Addr: cfg.Address, Err: err}
	}
	log.Debug().Str("addr", cfg.Address).Str("mode", string(cfg.ResponseMode)).Msg("client.Dial connected")

	c := New(conn, cfg)
	if cfg.ReadWelcome {
		welcome, err := c.ReadReply(ctx)
		if err != nil {
			_ = c.abort()
			return nil, err
		}
		c.welcome = welcome
	}
	return c, nil
}

// New wraps an established connection.
func New(conn net.Conn, cfg Config) *Client {
	cfg = cfg.WithDefaults()
	return &Client{
		cfg:    cfg,
		codec:  protocol.NewCodec(cfg.Layout),
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

func (c *Client) Config() Config {
	return c.cfg
}

// Welcome returns the banner read by Dial, if any.
func (c *Client) Welcome() []byte {
	return c.welcome
}

// Do frames payload, writes it and returns the next reply uninterpreted.
func (c *Client) Do(ctx context.Context, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roundTrip(ctx, opName(payload), payload)
}

// ReadReply reads one reply without sending anything first.
func (c *Client) ReadReply(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, &ConnectionError{Op: "read", Addr: c.cfg.Address, Err: ErrClosed}
	}
	stop := c.watch(ctx)
	defer stop()
	reply, err := c.readResponse(ctx, "read")
	if err != nil {
		c.fail(err)
		return nil, err
	}
	return reply, nil
}

func (c *Client) Count(ctx context.Context) ([]byte, error) {
	return c.Do(ctx, c.codec.Count())
}

// ImageCount sends a count request and parses the number from the reply.
func (c *Client) ImageCount(ctx context.Context) (int, error) {
	reply, err := c.Count(ctx)
	if err != nil {
		return 0, err
	}
	n, err := protocol.ParseCountReply(reply)
	if err != nil {
		return 0, &ProtocolError{Op: "count", Err: err}
	}
	return n, nil
}

func (c *Client) Get(ctx context.Context, index uint32) ([]byte, error) {
	return c.Do(ctx, c.codec.Get(index))
}

func (c *Client) Add(ctx context.Context, req protocol.AddImage) ([]byte, error) {
	payload, err := c.codec.Add(req)
	if err != nil {
		return nil, &ProtocolError{Op: "add", Err: err}
	}
	return c.Do(ctx, payload)
}

func (c *Client) Login(ctx context.Context, password string) ([]byte, error) {
	return c.Do(ctx, c.codec.Login(password))
}

// Quit sends the quit opcode, returns the farewell and closes the connection.
func (c *Client) Quit(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reply, err := c.roundTrip(ctx, "quit", c.codec.Quit())
	if cerr := c.abort(); err == nil && cerr != nil {
		err = &ConnectionError{Op: "close", Addr: c.cfg.Address, Err: cerr}
	}
	return reply, err
}

// Close releases the connection, sending quit first when it is still usable.
// Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.WriteTimeout+c.cfg.QuietPeriod)
	defer cancel()
	if _, err := c.roundTrip(ctx, "quit", c.codec.Quit()); err != nil {
		log.Debug().Err(err).Str("addr", c.cfg.Address).Msg("client.Close quit failed")
	}
	return c.abort()
}

func (c *Client) roundTrip(ctx context.Context, op string, payload []byte) ([]byte, error) {
	if c.closed {
		return nil, &ConnectionError{Op: op, Addr: c.cfg.Address, Err: ErrClosed}
	}
	stop := c.watch(ctx)
	defer stop()

	if err := c.setWriteDeadline(ctx, c.cfg.WriteTimeout); err != nil {
		err = c.classify(ctx, op, c.cfg.WriteTimeout, err)
		c.fail(err)
		return nil, err
	}
	if err := frame.WriteFrame(c.conn, payload, frame.Options{Order: c.cfg.ByteOrder, MaxPayloadBytes: ^uint32(0)}); err != nil {
		err = c.classify(ctx, op, c.cfg.WriteTimeout, err)
		c.fail(err)
		return nil, err
	}
	log.Debug().Str("op", op).Int("bytes", frame.HeaderLen+len(payload)).Msg("client.roundTrip sent")

	reply, err := c.readResponse(ctx, op)
	if err != nil {
		c.fail(err)
		return nil, err
	}
	log.Debug().Str("op", op).Int("bytes", len(reply)).Msg("client.roundTrip received")
	return reply, nil
}

// watch interrupts blocking I/O when ctx is cancelled.
func (c *Client) watch(ctx context.Context) func() bool {
	conn := c.conn
	return context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
}

// fail closes the connection after an I/O error; a stream that timed out or
// desynchronized mid-reply cannot be reused.
func (c *Client) fail(err error) {
	log.Debug().Err(err).Str("addr", c.cfg.Address).Msg("client connection dropped")
	_ = c.abort()
}

func (c *Client) abort() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func opName(payload []byte) string {
	if len(payload) == 0 {
		return "send"
	}
	op := protocol.Opcode(payload[0])
	if !op.Known() {
		return "send"
	}
	return op.String()
}
