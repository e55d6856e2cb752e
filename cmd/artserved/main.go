package main

import (
	"context"
	"fmt"
	"os"

	"github.com/danmuck/artwire/internal/config"
	"github.com/danmuck/artwire/internal/logging"
	"github.com/danmuck/artwire/internal/protocol"
	"github.com/danmuck/artwire/internal/protocol/frame"
	"github.com/danmuck/artwire/internal/server"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	addr       string
	password   string
	mode       string
	layout     string
	order      string
	maxImages  int
	noDefaults bool
	metrics    string
	logLevel   string
}

func main() {
	logging.ConfigureRuntime("artserved")
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd, _ := buildRootCmd()
	return cmd
}

func buildRootCmd() (*cobra.Command, *options) {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "artserved",
		Short:         "Serve ASCII-art images over the length-prefixed TCP protocol",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.logLevel != "" && !logging.SetLevel(opts.logLevel) {
				return fmt.Errorf("unknown log level %q", opts.logLevel)
			}
			cfg, err := opts.serverConfig(cmd)
			if err != nil {
				return err
			}
			svc, err := server.NewService(cfg)
			if err != nil {
				return err
			}
			return svc.Run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "server config file (.toml, .yaml)")
	flags.StringVar(&opts.addr, "addr", "", "listen address (default 127.0.0.1:5555)")
	flags.StringVar(&opts.password, "password", "", "login password; empty generates one")
	flags.StringVar(&opts.mode, "mode", "", "response mode: framed|legacy")
	flags.StringVar(&opts.layout, "layout", "", "payload layout: legacy|fielded")
	flags.StringVar(&opts.order, "order", "", "length header byte order: little|big|native")
	flags.IntVar(&opts.maxImages, "max-images", 0, "image store capacity")
	flags.BoolVar(&opts.noDefaults, "no-defaults", false, "start with an empty store")
	flags.StringVar(&opts.metrics, "metrics-addr", "", "serve Prometheus metrics on this address")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: trace|debug|info|warn|error")
	return cmd, opts
}

func (o *options) serverConfig(cmd *cobra.Command) (server.Config, error) {
	cfg := server.DefaultConfig()
	if o.configPath != "" {
		loaded, err := config.LoadServerConfig(o.configPath)
		if err != nil {
			return server.Config{}, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.ListenAddr = o.addr
	}
	if flags.Changed("password") {
		cfg.Password = o.password
	}
	if flags.Changed("mode") {
		mode, err := config.ParseServerResponseMode(o.mode)
		if err != nil {
			return server.Config{}, err
		}
		cfg.ResponseMode = mode
	}
	if flags.Changed("layout") {
		layout, err := protocol.ParseLayout(o.layout)
		if err != nil {
			return server.Config{}, err
		}
		cfg.Layout = layout
	}
	if flags.Changed("order") {
		order, err := frame.ParseByteOrder(o.order)
		if err != nil {
			return server.Config{}, err
		}
		cfg.ByteOrder = order
	}
	if flags.Changed("max-images") {
		cfg.MaxImages = o.maxImages
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = o.metrics
	}
	if o.noDefaults {
		cfg.SeedDefaults = false
	}
	if err := config.ValidateServerConfig(cfg); err != nil {
		return server.Config{}, err
	}
	return cfg, nil
}
