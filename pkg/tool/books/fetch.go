package books

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-hoshino/libretto/pkg/model"
	"github.com/m-hoshino/libretto/pkg/repository"
	"github.com/m-hoshino/libretto/pkg/service/catalog"
	"github.com/m-hoshino/libretto/pkg/service/index"
	"github.com/m-hoshino/libretto/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

const fetchToolName = "fetch_books"

// Fetch downloads book information from the catalog provider, persists the
// ranked results as a session and indexes every record for semantic search.
type Fetch struct {
	repo    repository.Repository
	catalog *catalog.Service
	index   *index.Index
}

func NewFetch(repo repository.Repository, cat *catalog.Service, idx *index.Index) *Fetch {
	return &Fetch{
		repo:    repo,
		catalog: cat,
		index:   idx,
	}
}

func (t *Fetch) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name: fetchToolName,
				Description: "Downloads book information based on flexible search criteria and stores it for later display. " +
					"Returns a unique search_id that can be used with present_books to display these specific results.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"search_query": {
							Type: genai.TypeString,
							Description: "The search term. Multiple keywords or categories can be combined " +
								"(e.g. \"science fiction adventure\"); single values work best for title, author and isbn.",
						},
						"search_type": {
							Type:        genai.TypeString,
							Description: "Type of search (default: keywords)",
							Enum:        []string{"keywords", "category", "title", "author", "isbn"},
						},
					},
					Required: []string{"search_query"},
				},
			},
		},
	}
}

func (t *Fetch) Prompt(ctx context.Context) string {
	return "To look up books, first call fetch_books. It returns a message containing 'Search ID: <id>'. " +
		"Save that id: present_books and get_book_by_rank need it. Each fetch_books call produces its own search id."
}

func (t *Fetch) Flags() []cli.Flag {
	return nil
}

func (t *Fetch) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	logger := logging.From(ctx)

	query := strings.TrimSpace(stringArg(fc.Args, "search_query"))
	searchType := model.NormalizeSearchType(stringArg(fc.Args, "search_type"))
	logger.Info("fetch_books called", "search_query", query, "search_type", string(searchType))

	keywords, category := query, ""
	if searchType == model.SearchTypeCategory {
		keywords, category = "", strings.ToLower(query)
	}

	results, err := t.catalog.Search(ctx, searchType, keywords, category)
	if err != nil {
		return textResponse(fetchToolName, fmt.Sprintf("Catalog search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return textResponse(fetchToolName, fmt.Sprintf(
			"No books found for the search query: %q with search type: %q", query, searchType)), nil
	}

	meta := model.SearchMeta{
		SessionID:  model.NewSessionID(),
		Query:      query,
		SearchType: searchType,
	}

	if err := t.repo.PutSession(ctx, meta.SessionID, results); err != nil {
		return textResponse(fetchToolName, fmt.Sprintf("Failed to store search results: %v", err)), nil
	}

	// A failed embedding degrades semantic search but the session itself
	// stays usable, so it does not fail the fetch.
	if err := t.index.AddBooks(ctx, results, meta); err != nil {
		logger.Warn("failed to index search results", "search_id", string(meta.SessionID), "error", err)
	}

	return textResponse(fetchToolName, fmt.Sprintf(
		"Successfully downloaded %d books for search query: %q (search type: %q). Search ID: %s",
		len(results), query, searchType, meta.SessionID)), nil
}
