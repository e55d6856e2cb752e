package main

import (
	"fmt"
	"time"

	"github.com/danmuck/artwire/internal/client"
	"github.com/danmuck/artwire/internal/config"
	"github.com/danmuck/artwire/internal/logging"
	"github.com/danmuck/artwire/internal/protocol"
	"github.com/danmuck/artwire/internal/protocol/frame"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath string
	addr       string
	mode       string
	layout     string
	order      string
	timeout    time.Duration
	maxFrame   uint32
	password   string
	logLevel   string
	plain      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "artctl",
		Short: "Client for the ASCII-art image server",
		Long: `artctl talks to an image server over its length-prefixed TCP protocol.
It can count, fetch and upload images, log in, or open an interactive shell.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.logLevel != "" && !logging.SetLevel(opts.logLevel) {
				return fmt.Errorf("unknown log level %q", opts.logLevel)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "client config file (.toml, .yaml)")
	flags.StringVar(&opts.addr, "addr", "", "server address (default "+client.DefaultAddress+")")
	flags.StringVar(&opts.mode, "mode", "", "response mode: framed|legacy")
	flags.StringVar(&opts.layout, "layout", "", "payload layout: legacy|fielded")
	flags.StringVar(&opts.order, "order", "", "length header byte order: little|big|native")
	flags.DurationVar(&opts.timeout, "timeout", 0, "read/write/connect timeout")
	flags.Uint32Var(&opts.maxFrame, "max-frame-bytes", 0, "largest framed reply accepted (default 2097152)")
	flags.StringVar(&opts.password, "password", "", "log in with this password after connecting")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: trace|debug|info|warn|error")
	flags.BoolVar(&opts.plain, "plain", false, "print server replies without styling")

	root.AddCommand(
		newCountCmd(opts),
		newGetCmd(opts),
		newAddCmd(opts),
		newLoginCmd(opts),
		newShellCmd(opts),
	)
	return root
}

// clientConfig layers the config file, then explicitly set flags, over the
// client defaults.
func (o *options) clientConfig(cmd *cobra.Command) (config.ClientConfig, error) {
	cfg := config.DefaultClientConfig()
	if o.configPath != "" {
		loaded, err := config.LoadClientConfig(o.configPath)
		if err != nil {
			return config.ClientConfig{}, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Conn.Address = o.addr
	}
	if flags.Changed("mode") {
		mode, err := client.ParseResponseMode(o.mode)
		if err != nil {
			return config.ClientConfig{}, err
		}
		cfg.Conn.ResponseMode = mode
	}
	if flags.Changed("layout") {
		layout, err := protocol.ParseLayout(o.layout)
		if err != nil {
			return config.ClientConfig{}, err
		}
		cfg.Conn.Layout = layout
	}
	if flags.Changed("order") {
		order, err := frame.ParseByteOrder(o.order)
		if err != nil {
			return config.ClientConfig{}, err
		}
		cfg.Conn.ByteOrder = order
	}
	if flags.Changed("timeout") {
		cfg.Conn.ConnectTimeout = o.timeout
		cfg.Conn.ReadTimeout = o.timeout
		cfg.Conn.WriteTimeout = o.timeout
	}
	if flags.Changed("max-frame-bytes") {
		cfg.Conn.MaxFrameBytes = o.maxFrame
	}
	if flags.Changed("password") {
		cfg.Password = o.password
	}
	if err := config.ValidateClientConfig(cfg); err != nil {
		return config.ClientConfig{}, err
	}
	return cfg, nil
}

// connect dials the server and performs the optional login. The login reply
// is printed so a failed login is visible before the command runs.
func (o *options) connect(cmd *cobra.Command, p *printer) (*client.Client, error) {
	cfg, err := o.clientConfig(cmd)
	if err != nil {
		return nil, err
	}
	c, err := client.Dial(cmd.Context(), cfg.Conn)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("addr", cfg.Conn.Address).Int("welcome_bytes", len(c.Welcome())).Msg("artctl connected")
	if cfg.Password != "" {
		reply, err := c.Login(cmd.Context(), cfg.Password)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		p.status(reply)
	}
	return c, nil
}

// withClient runs fn against a fresh connection and always closes it.
func (o *options) withClient(cmd *cobra.Command, fn func(*client.Client, *printer) error) error {
	p := newPrinter(cmd.OutOrStdout(), o.plain)
	c, err := o.connect(cmd, p)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c, p)
}
