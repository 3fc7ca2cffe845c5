package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-hoshino/libretto/pkg/model"
	"github.com/m-hoshino/libretto/pkg/render"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func showCommand() *cli.Command {
	var (
		cfg      config
		searchID string
		token    string
		output   string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "search-id",
			Aliases:     []string{"id"},
			Usage:       "Search ID of the session to render",
			Destination: &searchID,
		},
		&cli.StringFlag{
			Name:        "token",
			Usage:       "View token to render",
			Destination: &token,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Write the HTML table to this file instead of stdout",
			Destination: &output,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "show",
		Usage: "Render a stored session or view as an HTML table",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}

			if (searchID == "") == (token == "") {
				return goerr.New("exactly one of --search-id and --token is required")
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			var (
				books    []*model.Book
				renderID string
			)
			if searchID != "" {
				books, err = repo.GetSession(ctx, model.SessionID(searchID))
				renderID = searchID
			} else {
				books, err = repo.GetView(ctx, model.ViewToken(token))
				renderID = token
			}
			if err != nil {
				return err
			}

			html, err := render.Table(books, renderID, true)
			if err != nil {
				return err
			}

			if output != "" {
				if err := os.WriteFile(output, []byte(html), 0o644); err != nil {
					return goerr.Wrap(err, "failed to write output file", goerr.V("path", output))
				}
				fmt.Fprintf(c.Root().Writer, "Wrote %s\n", output)
				return nil
			}

			fmt.Fprintln(c.Root().Writer, html)
			return nil
		},
	}
}
