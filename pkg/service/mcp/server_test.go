package mcp_test

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-hoshino/libretto/pkg/repository"
	"github.com/m-hoshino/libretto/pkg/service/catalog"
	"github.com/m-hoshino/libretto/pkg/service/index"
	servermcp "github.com/m-hoshino/libretto/pkg/service/mcp"
	"github.com/m-hoshino/libretto/pkg/tool"
	toolbooks "github.com/m-hoshino/libretto/pkg/tool/books"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	booksapi "google.golang.org/api/books/v1"
	"google.golang.org/genai"
)

type fakeBooks struct {
	titles []string
}

func (f *fakeBooks) FetchPage(ctx context.Context, query string, startIndex, maxResults int64) (*booksapi.Volumes, error) {
	if startIndex > 0 {
		return &booksapi.Volumes{}, nil
	}
	v := &booksapi.Volumes{}
	for _, title := range f.titles {
		v.Items = append(v.Items, &booksapi.Volume{
			VolumeInfo: &booksapi.VolumeVolumeInfo{Title: title},
		})
	}
	return v, nil
}

type fakeGemini struct{}

func (f *fakeGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return nil, goerr.New("not implemented")
}

func (f *fakeGemini) Embedding(ctx context.Context, text string) (*genai.EmbedContentResponse, error) {
	return &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{1, 0.5}}},
	}, nil
}

func newSession(t *testing.T, titles ...string) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()

	repo, err := repository.NewLocal(t.TempDir())
	gt.NoError(t, err)

	idx := index.New(repo, &fakeGemini{})
	registry := tool.NewRegistry(
		toolbooks.NewFetch(repo, catalog.New(&fakeBooks{titles: titles}), idx),
		toolbooks.NewPresent(repo),
		toolbooks.NewSearch(idx),
		toolbooks.NewRank(repo),
	)

	srv, err := servermcp.NewServer("libretto-test", "0.0.1", registry)
	gt.NoError(t, err)

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	go func() {
		_ = srv.Run(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "test-client",
		Version: "0.0.1",
	}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session
}

func callText(t *testing.T, session *mcpsdk.ClientSession, name string, args map[string]any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	gt.NoError(t, err)
	gt.A(t, result.Content).Length(1)

	textContent, ok := result.Content[0].(*mcpsdk.TextContent)
	gt.True(t, ok)
	return textContent.Text
}

func TestServerListsAllTools(t *testing.T) {
	session := newSession(t)

	result, err := session.ListTools(context.Background(), nil)
	gt.NoError(t, err)

	names := make(map[string]bool)
	for _, tl := range result.Tools {
		names[tl.Name] = true
	}
	for _, expected := range []string{"fetch_books", "present_books", "search_library", "get_book_by_rank"} {
		gt.True(t, names[expected])
	}
}

func TestFetchThenPresentOverMCP(t *testing.T) {
	session := newSession(t, "Space Voyage", "Dragon Keep")

	text := callText(t, session, "fetch_books", map[string]any{
		"search_query": "space adventure",
	})
	gt.True(t, strings.Contains(text, "Successfully downloaded 2 books"))

	m := regexp.MustCompile(`Search ID: ([0-9a-f-]{36})`).FindStringSubmatch(text)
	gt.NotNil(t, m)

	marker := callText(t, session, "present_books", map[string]any{
		"search_id": m[1], "number_of_items": "1",
	})
	gt.True(t, strings.HasPrefix(marker, "<data_retrieved="))
	gt.True(t, strings.HasSuffix(marker, ">"))
}

func TestRankToolOverMCP(t *testing.T) {
	session := newSession(t, "Alpha", "Beta")

	text := callText(t, session, "fetch_books", map[string]any{"search_query": "letters"})
	m := regexp.MustCompile(`Search ID: ([0-9a-f-]{36})`).FindStringSubmatch(text)
	gt.NotNil(t, m)

	detail := callText(t, session, "get_book_by_rank", map[string]any{
		"search_id": m[1], "rank": "2",
	})
	gt.True(t, strings.Contains(detail, "Book Rank: 2"))
	gt.True(t, strings.Contains(detail, "Title: Beta"))
}

func TestSearchLibraryOverMCPEmpty(t *testing.T) {
	session := newSession(t)

	text := callText(t, session, "search_library", map[string]any{"keywords": "anything"})
	gt.True(t, strings.Contains(text, "No books found matching"))
}
