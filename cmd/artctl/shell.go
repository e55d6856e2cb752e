package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/artwire/internal/client"
	"github.com/danmuck/artwire/internal/imagehash"
	"github.com/danmuck/artwire/internal/protocol"
	"github.com/spf13/cobra"
)

const shellHelp = `commands:
  count | c                      number of images
  get <n> | g <n>                fetch image n
  login <password> | l <pw>      log in for this connection
  add [-r] <caption> <file>      upload an image file, -r marks it restricted
  help                           show this help
  quit | exit | q                disconnect
`

func newShellCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Open an interactive session on one connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, func(c *client.Client, p *printer) error {
				if welcome := c.Welcome(); len(welcome) > 0 {
					p.status(welcome)
				}
				return runShell(cmd, c, p)
			})
		},
	}
}

// runShell reads one command per line until quit or EOF. Server-side errors
// are printed and the loop continues; transport errors end the session.
func runShell(cmd *cobra.Command, c *client.Client, p *printer) error {
	ctx := cmd.Context()
	in := bufio.NewScanner(cmd.InOrStdin())
	for {
		p.prompt()
		if !in.Scan() {
			fmt.Fprintln(p.out)
			return in.Err()
		}
		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}

		var (
			reply []byte
			err   error
			asImg bool
		)
		switch strings.ToLower(fields[0]) {
		case "help", "?":
			fmt.Fprint(p.out, shellHelp)
			continue
		case "quit", "exit", "q":
			reply, err = c.Quit(ctx)
			if err != nil {
				return err
			}
			p.status(reply)
			return nil
		case "count", "c":
			reply, err = c.Count(ctx)
		case "get", "g":
			if len(fields) != 2 {
				fmt.Fprintln(p.out, "usage: get <n>")
				continue
			}
			index, perr := parseIndex(fields[1])
			if perr != nil {
				fmt.Fprintln(p.out, perr)
				continue
			}
			reply, err = c.Get(ctx, index)
			asImg = true
		case "login", "l":
			if len(fields) != 2 {
				fmt.Fprintln(p.out, "usage: login <password>")
				continue
			}
			reply, err = c.Login(ctx, fields[1])
		case "add", "a":
			req, perr := parseShellAdd(fields[1:])
			if perr != nil {
				fmt.Fprintln(p.out, perr)
				continue
			}
			reply, err = c.Add(ctx, req)
		default:
			fmt.Fprintf(p.out, "unknown command %q, try help\n", fields[0])
			continue
		}

		if err != nil {
			var protoErr *client.ProtocolError
			if errors.As(err, &protoErr) && errors.Is(err, protocol.ErrEmbeddedNUL) {
				fmt.Fprintln(p.out, err)
				continue
			}
			return err
		}
		if asImg {
			p.image(reply)
		} else {
			p.status(reply)
		}
	}
}

func parseShellAdd(args []string) (protocol.AddImage, error) {
	restricted := false
	if len(args) > 0 && args[0] == "-r" {
		restricted = true
		args = args[1:]
	}
	if len(args) != 2 {
		return protocol.AddImage{}, errors.New("usage: add [-r] <caption> <file>")
	}
	body, err := readImage(args[1], io.MultiReader())
	if err != nil {
		return protocol.AddImage{}, err
	}
	return protocol.AddImage{
		RequiresLogin: restricted,
		Caption:       args[0],
		Image:         body,
		Hash:          imagehash.Sum(body),
	}, nil
}
