package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/danmuck/artwire/internal/auth"
	"github.com/danmuck/artwire/internal/observability"
	"github.com/danmuck/artwire/internal/protocol"
	"github.com/danmuck/artwire/internal/protocol/frame"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Service serves the image protocol to one client at a time.
type Service struct {
	cfg       Config
	store     *Store
	validator auth.Validator
	codec     protocol.Codec

	activeMu sync.Mutex
	active   net.Conn
}

// NewService builds a service from cfg. An empty password is replaced with a
// generated one that is never disclosed.
func NewService(cfg Config) (*Service, error) {
	cfg = cfg.WithDefaults()
	password := cfg.Password
	if password == "" {
		generated, err := auth.GeneratePassword()
		if err != nil {
			return nil, fmt.Errorf("server: generate password: %w", err)
		}
		password = generated
		log.Warn().Msg("server.NewService no password configured, generated a random one")
	}
	store := NewStore(cfg.MaxImages)
	if cfg.SeedDefaults {
		for _, img := range DefaultImages() {
			if _, err := store.Add(img); err != nil {
				return nil, fmt.Errorf("server: seed default images: %w", err)
			}
		}
	}
	observability.SetImageCount(store.Len())
	return &Service{
		cfg:       cfg,
		store:     store,
		validator: auth.StaticToken{Token: password},
		codec:     protocol.NewCodec(cfg.Layout),
	}, nil
}

func (s *Service) Store() *Store {
	return s.store
}

// Run listens on cfg.ListenAddr and serves until SIGINT/SIGTERM or ctx ends.
// When cfg.MetricsAddr is set, Prometheus metrics are served alongside.
func (s *Service) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.ListenAddr, err)
	}
	log.Info().
		Str("addr", ln.Addr().String()).
		Str("mode", string(s.cfg.ResponseMode)).
		Str("layout", string(s.cfg.Layout)).
		Int("images", s.store.Len()).
		Msg("server.Service.Run listening")

	if s.cfg.MetricsAddr == "" {
		return s.Serve(ctx, ln)
	}
	metricsLn, err := net.Listen("tcp", s.cfg.MetricsAddr)
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("server: listen metrics %s: %w", s.cfg.MetricsAddr, err)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Serve(gctx, ln) })
	g.Go(func() error { return observability.ServeMetrics(gctx, metricsLn) })
	return g.Wait()
}

// Serve accepts connections on ln and handles them sequentially until ctx is
// cancelled or the listener fails.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	loopDone := make(chan struct{})

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-loopDone:
		}
		_ = ln.Close()
		s.closeActive()
		return nil
	})
	g.Go(func() error {
		defer close(loopDone)
		for {
			conn, err := ln.Accept()
			if err != nil {
				if gctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return err
			}
			s.handleConn(gctx, conn)
		}
	})
	return g.Wait()
}

func (s *Service) handleConn(ctx context.Context, conn net.Conn) {
	s.setActive(conn)
	defer s.setActive(nil)
	defer conn.Close()

	sess := &Session{
		ID:        uuid.NewString(),
		store:     s.store,
		validator: s.validator,
		codec:     s.codec,
	}
	sess.log = log.With().Str("session", sess.ID).Str("remote", conn.RemoteAddr().String()).Logger()
	sess.log.Info().Msg("server.handleConn client connected")
	observability.RecordSession()
	defer sess.log.Info().Msg("server.handleConn client disconnected")

	if err := s.reply(conn, protocol.WelcomeBanner()); err != nil {
		sess.log.Warn().Err(err).Msg("server.handleConn write welcome")
		return
	}

	reader := bufio.NewReader(conn)
	for ctx.Err() == nil {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		payload, err := frame.ReadFrame(reader, s.cfg.frameOptions())
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				observability.RecordFrameError(frameErrorReason(err))
				sess.log.Warn().Err(err).Msg("server.handleConn read request")
			}
			return
		}
		text, quit := sess.Handle(payload)
		if err := s.reply(conn, text); err != nil {
			sess.log.Warn().Err(err).Msg("server.handleConn write reply")
			return
		}
		if quit {
			return
		}
	}
}

func frameErrorReason(err error) string {
	var ne net.Error
	switch {
	case errors.Is(err, frame.ErrShortHeader):
		return "short_header"
	case errors.Is(err, frame.ErrTruncatedPayload):
		return "truncated"
	case errors.Is(err, frame.ErrPayloadTooLarge):
		return "too_large"
	case errors.As(err, &ne) && ne.Timeout():
		return "idle_timeout"
	default:
		return "io"
	}
}

func (s *Service) reply(conn net.Conn, text string) error {
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if s.cfg.ResponseMode == ResponseLegacy {
		_, err := io.WriteString(conn, text)
		return err
	}
	return frame.WriteFrame(conn, []byte(text), frame.Options{Order: s.cfg.ByteOrder, MaxPayloadBytes: ^uint32(0)})
}

func (s *Service) setActive(conn net.Conn) {
	s.activeMu.Lock()
	s.active = conn
	s.activeMu.Unlock()
}

func (s *Service) closeActive() {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	if s.active != nil {
		_ = s.active.Close()
	}
}
