package cli

import (
	"context"

	servermcp "github.com/m-hoshino/libretto/pkg/service/mcp"
	"github.com/m-hoshino/libretto/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
)

const serverVersion = "0.1.0"

func serveCommand() *cli.Command {
	var cfg config

	flags := append(globalFlags(&cfg), llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Expose the book tools as an MCP server on stdio",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}

			registry, _, err := cfg.newRegistry(ctx)
			if err != nil {
				return err
			}

			srv, err := servermcp.NewServer("libretto", serverVersion, registry)
			if err != nil {
				return err
			}

			logging.From(ctx).Info("starting MCP server on stdio")
			return srv.Run(ctx, &mcp.StdioTransport{})
		},
	}
}
