package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/artwire/internal/client"
	"github.com/danmuck/artwire/internal/protocol"
	"github.com/danmuck/artwire/internal/protocol/frame"
	"github.com/danmuck/artwire/internal/server"
)

func applyClientFile(cfg *ClientConfig, raw ClientFile, defined func(string) bool) error {
	c := &cfg.Conn
	if defined("address") {
		if v := strings.TrimSpace(raw.Address); v != "" {
			c.Address = v
		}
	}
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &c.ConnectTimeout},
		{"read_timeout", raw.ReadTimeout, &c.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &c.WriteTimeout},
		{"quiet_period", raw.QuietPeriod, &c.QuietPeriod},
	}
	for _, d := range durations {
		if !defined(d.key) {
			continue
		}
		v, err := parseDuration(d.key, d.raw)
		if err != nil {
			return err
		}
		*d.dst = v
	}
	if defined("max_response_bytes") {
		c.MaxResponseBytes = raw.MaxResponseBytes
	}
	if defined("max_frame_bytes") {
		c.MaxFrameBytes = raw.MaxFrameBytes
	}
	if defined("response_mode") {
		mode, err := client.ParseResponseMode(raw.ResponseMode)
		if err != nil {
			return err
		}
		c.ResponseMode = mode
	}
	if defined("order") {
		order, err := frame.ParseByteOrder(raw.Order)
		if err != nil {
			return err
		}
		c.ByteOrder = order
	}
	if defined("layout") {
		layout, err := protocol.ParseLayout(raw.Layout)
		if err != nil {
			return err
		}
		c.Layout = layout
	}
	if defined("read_welcome") {
		c.ReadWelcome = raw.ReadWelcome
	}
	if defined("password") {
		cfg.Password = raw.Password
	}
	return nil
}

func applyServerFile(cfg *server.Config, raw ServerFile, defined func(string) bool) error {
	if defined("listen") {
		if v := strings.TrimSpace(raw.Listen); v != "" {
			cfg.ListenAddr = v
		}
	}
	if defined("password") {
		cfg.Password = raw.Password
	}
	if defined("response_mode") {
		mode, err := ParseServerResponseMode(raw.ResponseMode)
		if err != nil {
			return err
		}
		cfg.ResponseMode = mode
	}
	if defined("order") {
		order, err := frame.ParseByteOrder(raw.Order)
		if err != nil {
			return err
		}
		cfg.ByteOrder = order
	}
	if defined("layout") {
		layout, err := protocol.ParseLayout(raw.Layout)
		if err != nil {
			return err
		}
		cfg.Layout = layout
	}
	if defined("max_request_bytes") {
		cfg.MaxRequestBytes = raw.MaxRequestBytes
	}
	if defined("max_images") {
		cfg.MaxImages = raw.MaxImages
	}
	if defined("seed_defaults") {
		cfg.SeedDefaults = raw.SeedDefaults
	}
	if defined("idle_timeout") {
		d, err := parseDuration("idle_timeout", raw.IdleTimeout)
		if err != nil {
			return err
		}
		cfg.IdleTimeout = d
	}
	if defined("write_timeout") {
		d, err := parseDuration("write_timeout", raw.WriteTimeout)
		if err != nil {
			return err
		}
		cfg.WriteTimeout = d
	}
	if defined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	return nil
}

// ParseServerResponseMode accepts the same names as the client side.
func ParseServerResponseMode(raw string) (server.ResponseMode, error) {
	mode, err := client.ParseResponseMode(raw)
	if err != nil {
		return "", err
	}
	if mode == client.ResponseLegacy {
		return server.ResponseLegacy, nil
	}
	return server.ResponseFramed, nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
