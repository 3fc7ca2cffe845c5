package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func searchCommand() *cli.Command {
	var (
		cfg   config
		query string
		limit int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "Natural language description of the books to find",
			Required:    true,
			Destination: &query,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"l"},
			Usage:       "Maximum number of matches to return",
			Value:       10,
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "search",
		Usage: "Semantic search over previously fetched books",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}

			_, client, err := cfg.newRegistry(ctx)
			if err != nil {
				return err
			}

			docs, err := client.Index.Query(ctx, query, int(limit))
			if err != nil {
				return err
			}

			w := c.Root().Writer
			if len(docs) == 0 {
				fmt.Fprintln(w, "No matching books found. Fetch some first with 'libretto fetch'.")
				return nil
			}

			for i, doc := range docs {
				fmt.Fprintf(w, "--- Match %d ---\n", i+1)
				if q := doc.Metadata["search_query"]; q != "" {
					fmt.Fprintf(w, "From search: %q (search ID: %s)\n", q, doc.Metadata["search_id"])
				}
				fmt.Fprintf(w, "%s\n\n", doc.Content)
			}
			return nil
		},
	}
}
