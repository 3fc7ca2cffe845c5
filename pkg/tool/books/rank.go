package books

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/m-hoshino/libretto/pkg/model"
	"github.com/m-hoshino/libretto/pkg/repository"
	"github.com/m-hoshino/libretto/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

const rankToolName = "get_book_by_rank"

// Rank returns the full record of one book of a session, addressed by its
// position in the original search results.
type Rank struct {
	repo repository.Repository
}

func NewRank(repo repository.Repository) *Rank {
	return &Rank{repo: repo}
}

func (t *Rank) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name: rankToolName,
				Description: "Returns the full details of a single book from a previous search, " +
					"identified by its rank (position) in that search's results.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"search_id": {
							Type:        genai.TypeString,
							Description: "The search ID returned by a previous fetch_books call",
						},
						"rank": {
							Type:        genai.TypeString,
							Description: "1-based position of the book within the search results",
						},
					},
					Required: []string{"search_id", "rank"},
				},
			},
		},
	}
}

func (t *Rank) Prompt(ctx context.Context) string {
	return ""
}

func (t *Rank) Flags() []cli.Flag {
	return nil
}

func (t *Rank) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	sessionID := model.SessionID(stringArg(fc.Args, "search_id"))
	rawRank := stringArg(fc.Args, "rank")
	logging.From(ctx).Info("get_book_by_rank called", "search_id", string(sessionID), "rank", rawRank)

	rank, err := strconv.Atoi(rawRank)
	if err != nil {
		return textResponse(rankToolName, fmt.Sprintf(
			"Invalid rank format: %q. Please provide a whole number.", rawRank)), nil
	}

	records, err := t.repo.GetSession(ctx, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return textResponse(rankToolName, fmt.Sprintf(
				"No search results found for search ID: %s. Please fetch books first using fetch_books.", sessionID)), nil
		case errors.Is(err, repository.ErrCorrupt):
			return textResponse(rankToolName, fmt.Sprintf(
				"Stored results for search ID %s could not be read. Please fetch books again.", sessionID)), nil
		default:
			return textResponse(rankToolName, fmt.Sprintf("Failed to load search results: %v", err)), nil
		}
	}

	if rank < 1 || rank > len(records) {
		return textResponse(rankToolName, fmt.Sprintf(
			"Invalid rank. Please provide a rank between 1 and %d.", len(records))), nil
	}

	return textResponse(rankToolName, records[rank-1].Detail()), nil
}
