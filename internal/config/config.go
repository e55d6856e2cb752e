package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/artwire/internal/client"
	"github.com/danmuck/artwire/internal/server"
	"gopkg.in/yaml.v3"
)

// ClientFile is the on-disk shape of an artctl config. Durations are strings
// accepted by time.ParseDuration.
type ClientFile struct {
	Address          string `toml:"address" yaml:"address"`
	ConnectTimeout   string `toml:"connect_timeout" yaml:"connect_timeout"`
	ReadTimeout      string `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout     string `toml:"write_timeout" yaml:"write_timeout"`
	QuietPeriod      string `toml:"quiet_period" yaml:"quiet_period"`
	MaxResponseBytes int    `toml:"max_response_bytes" yaml:"max_response_bytes"`
	MaxFrameBytes    uint32 `toml:"max_frame_bytes" yaml:"max_frame_bytes"`
	ResponseMode     string `toml:"response_mode" yaml:"response_mode"`
	Order            string `toml:"order" yaml:"order"`
	Layout           string `toml:"layout" yaml:"layout"`
	ReadWelcome      bool   `toml:"read_welcome" yaml:"read_welcome"`
	Password         string `toml:"password" yaml:"password"`
}

// ServerFile is the on-disk shape of an artserved config.
type ServerFile struct {
	Listen          string `toml:"listen" yaml:"listen"`
	Password        string `toml:"password" yaml:"password"`
	ResponseMode    string `toml:"response_mode" yaml:"response_mode"`
	Order           string `toml:"order" yaml:"order"`
	Layout          string `toml:"layout" yaml:"layout"`
	MaxRequestBytes uint32 `toml:"max_request_bytes" yaml:"max_request_bytes"`
	MaxImages       int    `toml:"max_images" yaml:"max_images"`
	SeedDefaults    bool   `toml:"seed_defaults" yaml:"seed_defaults"`
	IdleTimeout     string `toml:"idle_timeout" yaml:"idle_timeout"`
	WriteTimeout    string `toml:"write_timeout" yaml:"write_timeout"`
	MetricsAddr     string `toml:"metrics_addr" yaml:"metrics_addr"`
}

// ClientConfig is a loaded client config. Password, when set, is sent as a
// login right after connecting.
type ClientConfig struct {
	Conn     client.Config
	Password string
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{Conn: client.DefaultConfig()}
}

// LoadClientConfig reads path and applies every defined key over the client
// defaults.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	var raw ClientFile
	defined, err := decodeFile(path, &raw)
	if err != nil {
		return ClientConfig{}, err
	}
	if err := applyClientFile(&cfg, raw, defined); err != nil {
		return ClientConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadServerConfig reads path and applies every defined key over the server
// defaults.
func LoadServerConfig(path string) (server.Config, error) {
	cfg := server.DefaultConfig()

	var raw ServerFile
	defined, err := decodeFile(path, &raw)
	if err != nil {
		return server.Config{}, err
	}
	if err := applyServerFile(&cfg, raw, defined); err != nil {
		return server.Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := ValidateServerConfig(cfg); err != nil {
		return server.Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	c := cfg.Conn
	if strings.TrimSpace(c.Address) == "" {
		return fmt.Errorf("client config missing address")
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.ConnectTimeout <= 0 {
		return fmt.Errorf("client config timeouts must be positive")
	}
	if c.ResponseMode == client.ResponseLegacy {
		if c.QuietPeriod <= 0 {
			return fmt.Errorf("client config quiet_period must be positive in legacy mode")
		}
		if !c.ReadWelcome {
			return fmt.Errorf("client config read_welcome is required in legacy mode")
		}
	}
	if c.MaxResponseBytes <= 0 {
		return fmt.Errorf("client config max_response_bytes must be positive")
	}
	if c.MaxFrameBytes == 0 {
		return fmt.Errorf("client config max_frame_bytes must be positive")
	}
	return nil
}

func ValidateServerConfig(cfg server.Config) error {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("server config missing listen")
	}
	if cfg.MaxImages <= 0 {
		return fmt.Errorf("server config max_images must be positive")
	}
	if cfg.MaxRequestBytes == 0 {
		return fmt.Errorf("server config max_request_bytes must be positive")
	}
	if cfg.IdleTimeout <= 0 || cfg.WriteTimeout <= 0 {
		return fmt.Errorf("server config timeouts must be positive")
	}
	return nil
}

// decodeFile fills out from a TOML or YAML file and reports which top-level
// keys were present.
func decodeFile(path string, out any) (func(key string) bool, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if err := yaml.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		var keys map[string]any
		if err := yaml.Unmarshal(data, &keys); err != nil {
			return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		return func(key string) bool {
			_, ok := keys[key]
			return ok
		}, nil
	default:
		meta, err := toml.DecodeFile(path, out)
		if err != nil {
			return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		return func(key string) bool {
			return meta.IsDefined(key)
		}, nil
	}
}
