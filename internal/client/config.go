package client

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/artwire/internal/protocol"
	"github.com/danmuck/artwire/internal/protocol/frame"
)

// ResponseMode selects how replies are delimited on the receive side.
type ResponseMode string

const (
	// ResponseFramed expects every reply to carry the same length header as
	// requests.
	ResponseFramed ResponseMode = "framed"
	// ResponseLegacy reads raw bytes until the peer has been quiet for
	// QuietPeriod, bounded by MaxResponseBytes.
	ResponseLegacy ResponseMode = "legacy"
)

func ParseResponseMode(raw string) (ResponseMode, error) {
	switch ResponseMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ResponseFramed:
		return ResponseFramed, nil
	case ResponseLegacy, "raw":
		return ResponseLegacy, nil
	default:
		return "", fmt.Errorf("client: unknown response mode %q", raw)
	}
}

// Config defines endpoint, timeouts and wire options for one connection.
// MaxResponseBytes caps legacy replies; MaxFrameBytes caps framed replies and
// must cover the largest image the server accepts.
type Config struct {
	Address          string
	ConnectTimeout   time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	QuietPeriod      time.Duration
	MaxResponseBytes int
	MaxFrameBytes    uint32
	ResponseMode     ResponseMode
	ByteOrder        binary.ByteOrder
	Layout           protocol.Layout
	ReadWelcome      bool
}

const (
	DefaultAddress          = "127.0.0.1:5555"
	DefaultMaxResponseBytes = 10000
	DefaultMaxFrameBytes    = 2 << 20
)

func DefaultConfig() Config {
	return Config{
		Address:          DefaultAddress,
		ConnectTimeout:   5 * time.Second,
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     5 * time.Second,
		QuietPeriod:      250 * time.Millisecond,
		MaxResponseBytes: DefaultMaxResponseBytes,
		MaxFrameBytes:    DefaultMaxFrameBytes,
		ResponseMode:     ResponseFramed,
		ByteOrder:        binary.LittleEndian,
		Layout:           protocol.LayoutLegacy,
		ReadWelcome:      true,
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if strings.TrimSpace(c.Address) == "" {
		c.Address = d.Address
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.QuietPeriod <= 0 {
		c.QuietPeriod = d.QuietPeriod
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = d.MaxResponseBytes
	}
	if c.MaxFrameBytes == 0 {
		c.MaxFrameBytes = d.MaxFrameBytes
	}
	if c.ResponseMode == "" {
		c.ResponseMode = d.ResponseMode
	}
	if c.ByteOrder == nil {
		c.ByteOrder = d.ByteOrder
	}
	if c.Layout == "" {
		c.Layout = d.Layout
	}
	return c
}

func (c Config) frameOptions() frame.Options {
	return frame.Options{
		Order:           c.ByteOrder,
		MaxPayloadBytes: c.MaxFrameBytes,
	}
}
