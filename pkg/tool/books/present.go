package books

import (
	"context"
	"errors"
	"fmt"

	"github.com/m-hoshino/libretto/pkg/model"
	"github.com/m-hoshino/libretto/pkg/repository"
	"github.com/m-hoshino/libretto/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

const presentToolName = "present_books"

const defaultPresentCount = 10

// Present materializes a prefix of a stored search session into a fresh
// view and returns the marker token that the renderer later expands into a
// table.
type Present struct {
	repo repository.Repository
}

func NewPresent(repo repository.Repository) *Present {
	return &Present{repo: repo}
}

func (t *Present) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name: presentToolName,
				Description: "Displays previously fetched books as a table. Requires the search_id returned by fetch_books. " +
					"Returns a data marker that must be placed in the reply exactly where the table should appear.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"search_id": {
							Type:        genai.TypeString,
							Description: "The search ID returned by a previous fetch_books call",
						},
						"number_of_items": {
							Type:        genai.TypeString,
							Description: "How many books to display, counted from the top of the results (default: 10)",
						},
					},
					Required: []string{"search_id"},
				},
			},
		},
	}
}

func (t *Present) Prompt(ctx context.Context) string {
	return "present_books returns a marker of the form <data_retrieved=TOKEN>. Insert that marker verbatim into " +
		"your reply at the exact spot the book table should appear. Never describe, rewrite or omit the marker."
}

func (t *Present) Flags() []cli.Flag {
	return nil
}

func (t *Present) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	sessionID := model.SessionID(stringArg(fc.Args, "search_id"))
	count := countArg(fc.Args, "number_of_items", defaultPresentCount)
	logging.From(ctx).Info("present_books called",
		"search_id", string(sessionID), "number_of_items", count)

	records, err := t.repo.GetSession(ctx, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return textResponse(presentToolName, fmt.Sprintf(
				"No search results found for search ID: %s. Please fetch books first using fetch_books.", sessionID)), nil
		case errors.Is(err, repository.ErrCorrupt):
			return textResponse(presentToolName, fmt.Sprintf(
				"Stored results for search ID %s could not be read. Please fetch books again.", sessionID)), nil
		default:
			return textResponse(presentToolName, fmt.Sprintf("Failed to load search results: %v", err)), nil
		}
	}

	if count > len(records) {
		count = len(records)
	}

	token := model.NewViewToken()
	if err := t.repo.PutView(ctx, token, records[:count]); err != nil {
		return textResponse(presentToolName, fmt.Sprintf("Failed to store the book view: %v", err)), nil
	}

	return textResponse(presentToolName, fmt.Sprintf("<data_retrieved=%s>", token)), nil
}
