package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-hoshino/libretto/pkg/usecase/chat"
	"github.com/m-hoshino/libretto/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var cfg config

	flags := append(globalFlags(&cfg), llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Talk to the assistant to find and display books",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx)
			if err != nil {
				return err
			}

			registry, client, err := cfg.newRegistry(ctx)
			if err != nil {
				return err
			}

			archive, err := cfg.newStorage(ctx)
			if err != nil {
				return err
			}

			session := chat.New(chat.NewInput{
				Gemini:   client.Gemini,
				Registry: registry,
				Views:    client.Repo,
				Archive:  archive,
			})

			rl, err := readline.New("> ")
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			w := c.Root().Writer
			fmt.Fprintln(w, "Chat session started. Type 'exit' to quit.")

			for {
				line, err := rl.Readline()
				if err != nil {
					// Ctrl-C on an empty line or Ctrl-D ends the session
					if err == readline.ErrInterrupt || err == io.EOF {
						break
					}
					return goerr.Wrap(err, "failed to read input")
				}

				message := strings.TrimSpace(line)
				if message == "" {
					continue
				}
				if message == "exit" || message == "quit" {
					break
				}

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
					spinner.WithSuffix(" thinking..."))
				sp.Start()
				reply, err := session.Send(ctx, message)
				sp.Stop()

				if err != nil {
					logging.From(ctx).Error("failed to process message", "error", err)
					fmt.Fprintf(w, "Error: %v\n", err)
					continue
				}

				fmt.Fprintf(w, "%s\n", reply)
			}

			if err := session.Archive(ctx); err != nil {
				logging.From(ctx).Warn("failed to archive transcript", "error", err)
			}

			fmt.Fprintln(w, "\nChat session completed")
			return nil
		},
	}
}
