package cli

import (
	"context"
	"fmt"

	"github.com/m-hoshino/libretto/pkg/model"
	"github.com/urfave/cli/v3"
)

func fetchCommand() *cli.Command {
	var (
		cfg        config
		query      string
		searchType string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "Search term for the catalog",
			Required:    true,
			Destination: &query,
		},
		&cli.StringFlag{
			Name:        "type",
			Aliases:     []string{"t"},
			Usage:       "Search type (keywords, category, title, author, isbn)",
			Value:       "keywords",
			Destination: &searchType,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "fetch",
		Usage: "Download catalog results into a new search session",
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

			st := model.NormalizeSearchType(searchType)
			keywords, category := query, ""
			if st == model.SearchTypeCategory {
				keywords, category = "", query
			}

			results, err := client.Catalog.Search(ctx, st, keywords, category)
			if err != nil {
				return err
			}

			w := c.Root().Writer
			if len(results) == 0 {
				fmt.Fprintf(w, "No books found for %q\n", query)
				return nil
			}

			meta := model.SearchMeta{
				SessionID:  model.NewSessionID(),
				Query:      query,
				SearchType: st,
			}
			if err := client.Repo.PutSession(ctx, meta.SessionID, results); err != nil {
				return err
			}
			if err := client.Index.AddBooks(ctx, results, meta); err != nil {
				return err
			}

			fmt.Fprintf(w, "Search ID: %s\n", meta.SessionID)
			for _, b := range results {
				fmt.Fprintf(w, "%3d. %s (%s)\n", b.Rank, b.Title, b.AuthorsLine())
			}
			return nil
		},
	}
}
