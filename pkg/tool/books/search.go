package books

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-hoshino/libretto/pkg/service/index"
	"github.com/m-hoshino/libretto/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

const searchToolName = "search_library"

const (
	defaultSearchCount = 3
	maxSearchCount     = 10
)

// Search answers semantic queries over everything fetched so far, across
// all sessions.
type Search struct {
	index *index.Index
}

func NewSearch(idx *index.Index) *Search {
	return &Search{index: idx}
}

func (t *Search) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name: searchToolName,
				Description: "Searches all previously fetched books by meaning, across every past search. " +
					"Use this to answer questions about books already downloaded, or to find them again.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"keywords": {
							Type:        genai.TypeString,
							Description: "Free-text description of the books to look for",
						},
						"num_results": {
							Type:        genai.TypeString,
							Description: "How many matches to return (default: 3, max: 10)",
						},
					},
					Required: []string{"keywords"},
				},
			},
		},
	}
}

func (t *Search) Prompt(ctx context.Context) string {
	return "search_library only knows books that were previously downloaded with fetch_books. " +
		"When it finds nothing, suggest fetching first."
}

func (t *Search) Flags() []cli.Flag {
	return nil
}

func (t *Search) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	keywords := strings.TrimSpace(stringArg(fc.Args, "keywords"))
	limit := countArg(fc.Args, "num_results", defaultSearchCount)
	if limit > maxSearchCount {
		limit = maxSearchCount
	}
	logging.From(ctx).Info("search_library called", "keywords", keywords, "num_results", limit)

	docs, err := t.index.Query(ctx, keywords, limit)
	if err != nil {
		return textResponse(searchToolName, fmt.Sprintf("Library search failed: %v", err)), nil
	}
	if len(docs) == 0 {
		return textResponse(searchToolName, fmt.Sprintf(
			"No books found matching %q. The library only contains books from previous searches; "+
				"please fetch books first using fetch_books.", keywords)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d matching books:\n", len(docs))
	for i, doc := range docs {
		fmt.Fprintf(&sb, "\n--- Match %d ---\n", i+1)
		if q := doc.Metadata["search_query"]; q != "" {
			fmt.Fprintf(&sb, "From search: %q (search ID: %s)\n", q, doc.Metadata["search_id"])
		}
		sb.WriteString(doc.Content)
		sb.WriteString("\n")
	}
	return textResponse(searchToolName, sb.String()), nil
}
