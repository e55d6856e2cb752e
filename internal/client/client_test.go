package client

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/artwire/internal/imagehash"
	"github.com/danmuck/artwire/internal/protocol"
	"github.com/danmuck/artwire/internal/protocol/frame"
	"github.com/danmuck/artwire/internal/server"
	"github.com/danmuck/artwire/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

const testPassword = "hunter2"

func startServer(t *testing.T, mutate func(*server.Config)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := server.DefaultConfig()
	cfg.Password = testPassword
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := server.NewService(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Errorf("server did not stop")
		}
	})
	return ln.Addr().String()
}

func testConfig(addr string) Config {
	cfg := DefaultConfig()
	cfg.Address = addr
	cfg.ConnectTimeout = 2 * time.Second
	cfg.ReadTimeout = 2 * time.Second
	cfg.WriteTimeout = 2 * time.Second
	cfg.QuietPeriod = 100 * time.Millisecond
	return cfg
}

func TestClientEndToEndFramed(t *testing.T) {
	testlog.Start(t)
	addr := startServer(t, nil)
	ctx := context.Background()

	c, err := Dial(ctx, testConfig(addr))
	require.NoError(t, err)
	defer c.Close()
	require.Equal(t, protocol.WelcomeBanner(), string(c.Welcome()))

	n, err := c.ImageCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	reply, err := c.Get(ctx, 0)
	require.NoError(t, err)
	require.Contains(t, string(reply), "is restricted")

	reply, err = c.Login(ctx, testPassword)
	require.NoError(t, err)
	require.Equal(t, protocol.ReplyLoginOK, string(reply))

	reply, err = c.Get(ctx, 0)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(reply), protocol.ReplyImageHeader+"Access Restricted"))

	body := "  /\\\n /  \\\n/____\\\n"
	add := protocol.AddImage{RequiresLogin: false, Caption: "tent", Image: body, Hash: imagehash.Sum(body)}
	reply, err = c.Add(ctx, add)
	require.NoError(t, err)
	require.Contains(t, string(reply), protocol.AddedReply(2))

	reply, err = c.Add(ctx, add)
	require.NoError(t, err)
	require.Contains(t, string(reply), protocol.DuplicateReply("tent"))

	reply, err = c.Get(ctx, 2)
	require.NoError(t, err)
	require.Contains(t, string(reply), body)

	reply, err = c.Quit(ctx)
	require.NoError(t, err)
	require.Equal(t, protocol.ReplyGoodbye, string(reply))

	_, err = c.Count(ctx)
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.ErrorIs(t, err, ErrClosed)
	require.NoError(t, c.Close())
}

func TestClientEndToEndLegacyResponses(t *testing.T) {
	testlog.Start(t)
	addr := startServer(t, func(cfg *server.Config) {
		cfg.ResponseMode = server.ResponseLegacy
		cfg.ByteOrder = binary.BigEndian
	})
	ctx := context.Background()

	cfg := testConfig(addr)
	cfg.ResponseMode = ResponseLegacy
	cfg.ByteOrder = binary.BigEndian
	c, err := Dial(ctx, cfg)
	require.NoError(t, err)
	defer c.Close()
	require.Contains(t, string(c.Welcome()), "Welcome to the image server")

	reply, err := c.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, protocol.CountReply(2), string(reply))

	reply, err = c.Get(ctx, 1)
	require.NoError(t, err)
	require.Contains(t, string(reply), "(((---(((")

	reply, err = c.Quit(ctx)
	require.NoError(t, err)
	require.Equal(t, protocol.ReplyGoodbye, string(reply))
}

func TestClientEndToEndFieldedLayout(t *testing.T) {
	testlog.Start(t)
	addr := startServer(t, func(cfg *server.Config) {
		cfg.Layout = protocol.LayoutFielded
	})
	ctx := context.Background()

	cfg := testConfig(addr)
	cfg.Layout = protocol.LayoutFielded
	c, err := Dial(ctx, cfg)
	require.NoError(t, err)
	defer c.Close()

	body := "nul\x00inside\n"
	reply, err := c.Add(ctx, protocol.AddImage{Caption: "with\x00nul", Image: body, Hash: imagehash.Sum(body)})
	require.NoError(t, err)
	require.Contains(t, string(reply), protocol.AddedReply(2))

	reply, err = c.Login(ctx, "wrong")
	require.NoError(t, err)
	require.Equal(t, protocol.ReplyLoginFailed, string(reply))
}

func TestClientFramedReplyLargerThanLegacyCap(t *testing.T) {
	testlog.Start(t)
	addr := startServer(t, nil)
	ctx := context.Background()

	c, err := Dial(ctx, testConfig(addr))
	require.NoError(t, err)
	defer c.Close()

	body := strings.Repeat(strings.Repeat("#", 99)+"\n", 120)
	require.Greater(t, len(body), DefaultMaxResponseBytes)
	reply, err := c.Add(ctx, protocol.AddImage{Caption: "wall", Image: body, Hash: imagehash.Sum(body)})
	require.NoError(t, err)
	require.Contains(t, string(reply), protocol.AddedReply(2))

	reply, err = c.Get(ctx, 2)
	require.NoError(t, err)
	require.Contains(t, string(reply), body)

	n, err := c.ImageCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestClientFrameCapIsConfigurable(t *testing.T) {
	testlog.Start(t)
	reply, err := frame.Encode([]byte(strings.Repeat("x", 64)), frame.DefaultOptions())
	require.NoError(t, err)

	cfg := testConfig(scriptedServer(t, reply))
	cfg.ReadWelcome = false
	cfg.MaxFrameBytes = 32
	c, err := Dial(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Count(context.Background())
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.ErrorIs(t, err, frame.ErrPayloadTooLarge)
}

func TestClientLegacyLayoutRejectsNULBeforeSending(t *testing.T) {
	testlog.Start(t)
	addr := startServer(t, nil)
	ctx := context.Background()

	c, err := Dial(ctx, testConfig(addr))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Add(ctx, protocol.AddImage{Caption: "bad\x00", Image: "x\n", Hash: imagehash.Sum("x\n")})
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.ErrorIs(t, err, protocol.ErrEmbeddedNUL)

	n, err := c.ImageCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

// silentServer accepts connections and never writes.
func silentServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range conns {
			_ = conn.Close()
		}
	})
	return ln.Addr().String()
}

func TestClientTimeoutWhenPeerNeverResponds(t *testing.T) {
	testlog.Start(t)
	for _, mode := range []ResponseMode{ResponseFramed, ResponseLegacy} {
		t.Run(string(mode), func(t *testing.T) {
			addr := silentServer(t)
			cfg := testConfig(addr)
			cfg.ResponseMode = mode
			cfg.ReadWelcome = false
			cfg.ReadTimeout = 150 * time.Millisecond

			c, err := Dial(context.Background(), cfg)
			require.NoError(t, err)
			defer c.Close()

			start := time.Now()
			_, err = c.Count(context.Background())
			var timeoutErr *TimeoutError
			require.ErrorAs(t, err, &timeoutErr)
			require.Equal(t, "count", timeoutErr.Op)
			require.Less(t, time.Since(start), 2*time.Second)

			_, err = c.Count(context.Background())
			require.ErrorIs(t, err, ErrClosed)
		})
	}
}

func TestDialTimeoutWhenBannerNeverArrives(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig(silentServer(t))
	cfg.ReadTimeout = 100 * time.Millisecond
	_, err := Dial(context.Background(), cfg)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestClientContextDeadlineBoundsRead(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig(silentServer(t))
	cfg.ReadWelcome = false
	cfg.ReadTimeout = 10 * time.Second
	c, err := Dial(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = c.Get(ctx, 1)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestClientContextCancelAbortsRead(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig(silentServer(t))
	cfg.ReadWelcome = false
	cfg.ReadTimeout = 10 * time.Second
	c, err := Dial(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	_, err = c.Count(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

// scriptedServer writes raw bytes after reading one request frame, then
// hangs up.
func scriptedServer(t *testing.T, reply []byte) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if _, err := frame.ReadFrame(bufio.NewReader(conn), frame.DefaultOptions()); err != nil {
			return
		}
		_, _ = conn.Write(reply)
	}()
	return ln.Addr().String()
}

func TestClientProtocolErrors(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name   string
		reply  []byte
		mode   ResponseMode
		target error
	}{
		{name: "truncated payload", reply: []byte("\x09\x00\x00\x00short"), mode: ResponseFramed, target: frame.ErrTruncatedPayload},
		{name: "short header", reply: []byte{0x01, 0x00}, mode: ResponseFramed, target: frame.ErrShortHeader},
		{name: "oversized frame", reply: []byte("\xff\xff\xff\x7f"), mode: ResponseFramed, target: frame.ErrPayloadTooLarge},
		{name: "oversized legacy reply", reply: []byte(strings.Repeat("x", DefaultMaxResponseBytes+1)), mode: ResponseLegacy, target: ErrResponseTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(scriptedServer(t, tc.reply))
			cfg.ReadWelcome = false
			cfg.ResponseMode = tc.mode
			c, err := Dial(context.Background(), cfg)
			require.NoError(t, err)
			defer c.Close()

			_, err = c.Count(context.Background())
			var protoErr *ProtocolError
			require.ErrorAs(t, err, &protoErr)
			require.ErrorIs(t, err, tc.target)
		})
	}
}

func TestClientImageCountUnexpectedReply(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig(scriptedServer(t, []byte("\x05\x00\x00\x00hello")))
	cfg.ReadWelcome = false
	c, err := Dial(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.ImageCount(context.Background())
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.ErrorIs(t, err, protocol.ErrUnexpectedReply)
}

func TestClientPeerClosedIsConnectionError(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig(scriptedServer(t, nil))
	cfg.ReadWelcome = false
	c, err := Dial(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Count(context.Background())
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.ErrorIs(t, err, ErrPeerClosed)
}

func TestDialRefusedIsConnectionError(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Dial(context.Background(), testConfig(addr))
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, "dial", connErr.Op)
}

func TestCloseSendsQuit(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	got := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		payload, err := frame.ReadFrame(bufio.NewReader(conn), frame.DefaultOptions())
		if err != nil {
			got <- nil
			return
		}
		got <- payload
		_ = frame.WriteFrame(conn, []byte(protocol.ReplyGoodbye), frame.DefaultOptions())
	}()

	cfg := testConfig(ln.Addr().String())
	cfg.ReadWelcome = false
	c, err := Dial(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	select {
	case payload := <-got:
		require.Equal(t, protocol.EncodeQuit(), payload)
	case <-time.After(2 * time.Second):
		t.Fatalf("server never saw quit")
	}
}

func TestConfigDefaultsAndModes(t *testing.T) {
	cfg := Config{}.WithDefaults()
	require.Equal(t, DefaultAddress, cfg.Address)
	require.Equal(t, DefaultMaxResponseBytes, cfg.MaxResponseBytes)
	require.Equal(t, uint32(DefaultMaxFrameBytes), cfg.MaxFrameBytes)
	require.Equal(t, 250*time.Millisecond, cfg.QuietPeriod)
	require.Equal(t, ResponseFramed, cfg.ResponseMode)
	require.Equal(t, protocol.LayoutLegacy, cfg.Layout)

	mode, err := ParseResponseMode("RAW")
	require.NoError(t, err)
	require.Equal(t, ResponseLegacy, mode)
	_, err = ParseResponseMode("smoke-signals")
	require.Error(t, err)
}

func TestClassifyMapsNetTimeout(t *testing.T) {
	c := &Client{cfg: DefaultConfig()}
	err := c.classify(context.Background(), "get", time.Second, &net.OpError{Op: "read", Err: timeoutStub{}})
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Equal(t, time.Second, timeoutErr.Limit)
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	require.True(t, netErr.Timeout())

	err = c.classify(context.Background(), "get", time.Second, io.EOF)
	require.ErrorIs(t, err, ErrPeerClosed)
}

type timeoutStub struct{}

func (timeoutStub) Error() string   { return "timeout" }
func (timeoutStub) Timeout() bool   { return true }
func (timeoutStub) Temporary() bool { return true }

func TestSetDeadlineReportsCancelRacingTheDeadline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var got []time.Time
	set := func(d time.Time) error {
		got = append(got, d)
		cancel()
		return nil
	}
	err := setDeadline(ctx, set, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, got, 2)
	require.True(t, got[1].Before(time.Now()), "deadline should be pushed into the past")
}

type stalledWriteConn struct {
	net.Conn
}

func (stalledWriteConn) Write([]byte) (int, error) { return 0, nil }

func TestClientZeroLengthWriteIsShortWrite(t *testing.T) {
	testlog.Start(t)
	local, remote := net.Pipe()
	t.Cleanup(func() { _ = remote.Close() })

	cfg := testConfig("pipe")
	cfg.ReadWelcome = false
	c := New(stalledWriteConn{Conn: local}, cfg)

	_, err := c.Count(context.Background())
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.ErrorIs(t, err, io.ErrShortWrite)
}
