package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword
var readPassword = term.ReadPassword

func usersCmd() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "User administration",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create a user. The password is read from the terminal, or from stdin when piped.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					password, err := promptPassword(c.App.Reader, c.App.ErrWriter)
					if err != nil {
						return err
					}

					return withEnv(c, func(ctx context.Context, e *env) error {
						_, svc := e.core()
						user, err := svc.CreateUser(ctx, c.String("username"), password)
						if err != nil {
							return err
						}
						_, err = fmt.Fprintf(c.App.Writer, "created user %s (%s)\n", user.Username, user.ID)
						return err
					})
				},
			},
		},
	}
}

// promptPassword reads a password without echo when r is a terminal and a
// single line otherwise.
func promptPassword(r io.Reader, w io.Writer) (string, error) {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(w, "Password: ")
		pw, err := readPassword(int(f.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
