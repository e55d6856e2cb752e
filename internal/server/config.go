package server

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/danmuck/artwire/internal/protocol"
	"github.com/danmuck/artwire/internal/protocol/frame"
)

// ResponseMode selects how replies are written.
type ResponseMode string

const (
	ResponseFramed ResponseMode = "framed"
	ResponseLegacy ResponseMode = "legacy"
)

// Config defines the listener, wire options and store limits.
type Config struct {
	ListenAddr      string
	Password        string
	ResponseMode    ResponseMode
	ByteOrder       binary.ByteOrder
	Layout          protocol.Layout
	MaxRequestBytes uint32
	MaxImages       int
	SeedDefaults    bool
	IdleTimeout     time.Duration
	WriteTimeout    time.Duration
	// MetricsAddr enables the Prometheus endpoint when non-empty.
	MetricsAddr string
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:      "127.0.0.1:5555",
		ResponseMode:    ResponseFramed,
		ByteOrder:       binary.LittleEndian,
		Layout:          protocol.LayoutLegacy,
		MaxRequestBytes: 1 << 20,
		MaxImages:       DefaultMaxImages,
		SeedDefaults:    true,
		IdleTimeout:     5 * time.Minute,
		WriteTimeout:    15 * time.Second,
	}
}

// WithDefaults fills zero values. SeedDefaults and Password are kept as given.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if strings.TrimSpace(c.ListenAddr) == "" {
		c.ListenAddr = d.ListenAddr
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
	if c.MaxRequestBytes == 0 {
		c.MaxRequestBytes = d.MaxRequestBytes
	}
	if c.MaxImages <= 0 {
		c.MaxImages = d.MaxImages
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	return c
}

func (c Config) frameOptions() frame.Options {
	return frame.Options{Order: c.ByteOrder, MaxPayloadBytes: c.MaxRequestBytes}
}
