// Package cli wires configuration, adapters and commands into the libretto
// binary.
package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "libretto",
		Usage: "Conversational book discovery assistant",
		Commands: []*cli.Command{
			chatCommand(),
			fetchCommand(),
			searchCommand(),
			showCommand(),
			serveCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
