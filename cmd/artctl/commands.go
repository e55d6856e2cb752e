package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/danmuck/artwire/internal/client"
	"github.com/danmuck/artwire/internal/imagehash"
	"github.com/danmuck/artwire/internal/protocol"
	"github.com/spf13/cobra"
)

func newCountCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of images on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, func(c *client.Client, p *printer) error {
				reply, err := c.Count(cmd.Context())
				if err != nil {
					return fmt.Errorf("count: %w", err)
				}
				p.status(reply)
				return nil
			})
		},
	}
}

func newGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <index>",
		Short: "Fetch the image at index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return opts.withClient(cmd, func(c *client.Client, p *printer) error {
				reply, err := c.Get(cmd.Context(), index)
				if err != nil {
					return fmt.Errorf("get %d: %w", index, err)
				}
				p.image(reply)
				return nil
			})
		},
	}
}

func newLoginCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "login <password>",
		Short: "Check a password against the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, func(c *client.Client, p *printer) error {
				reply, err := c.Login(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("login: %w", err)
				}
				p.status(reply)
				return nil
			})
		},
	}
}

type addFlags struct {
	caption    string
	file       string
	hashHex    string
	restricted bool
}

func newAddCmd(opts *options) *cobra.Command {
	var f addFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Upload an ASCII image",
		Long: `Upload an ASCII image read from --file ("-" for stdin). The 256-byte hash
is computed locally unless --hash-hex supplies one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return opts.withClient(cmd, func(c *client.Client, p *printer) error {
				reply, err := c.Add(cmd.Context(), req)
				if err != nil {
					return fmt.Errorf("add: %w", err)
				}
				p.status(reply)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.caption, "caption", "", "image caption")
	cmd.Flags().StringVar(&f.file, "file", "", `image file, "-" for stdin`)
	cmd.Flags().StringVar(&f.hashHex, "hash-hex", "", "hex encoded hash to send instead of the computed one")
	cmd.Flags().BoolVar(&f.restricted, "restricted", false, "require login to view the image")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (f addFlags) request(stdin io.Reader) (protocol.AddImage, error) {
	body, err := readImage(f.file, stdin)
	if err != nil {
		return protocol.AddImage{}, err
	}
	hash := imagehash.Sum(body)
	if f.hashHex != "" {
		hash, err = imagehash.ParseHex(f.hashHex)
		if err != nil {
			return protocol.AddImage{}, err
		}
	}
	return protocol.AddImage{
		RequiresLogin: f.restricted,
		Caption:       f.caption,
		Image:         body,
		Hash:          hash,
	}, nil
}

func readImage(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read image %s: %w", path, err)
	}
	return string(data), nil
}

func parseIndex(raw string) (uint32, error) {
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q: must be a non-negative integer", raw)
	}
	return uint32(n), nil
}
