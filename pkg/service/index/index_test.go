package index_test

import (
	"context"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-hoshino/libretto/pkg/model"
	"github.com/m-hoshino/libretto/pkg/repository"
	"github.com/m-hoshino/libretto/pkg/service/index"
	"google.golang.org/genai"
)

// fakeGemini embeds text onto fixed axes by keyword so similarity ordering
// is deterministic in tests.
type fakeGemini struct {
	embedCalls int
}

func (f *fakeGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return &genai.GenerateContentResponse{}, nil
}

func (f *fakeGemini) Embedding(ctx context.Context, text string) (*genai.EmbedContentResponse, error) {
	f.embedCalls++
	vec := []float32{0.01, 0.01, 0.01}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "space") {
		vec[0] = 1
	}
	if strings.Contains(lower, "dragon") {
		vec[1] = 1
	}
	if strings.Contains(lower, "cooking") {
		vec[2] = 1
	}
	return &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: vec}},
	}, nil
}

func setup(t *testing.T) (*index.Index, *fakeGemini) {
	repo, err := repository.NewLocal(t.TempDir())
	gt.NoError(t, err)
	gemini := &fakeGemini{}
	return index.New(repo, gemini), gemini
}

func TestAddAndQuery(t *testing.T) {
	ctx := context.Background()
	idx, gemini := setup(t)

	meta := model.SearchMeta{
		SessionID:  model.NewSessionID(),
		Query:      "novels",
		SearchType: model.SearchTypeKeywords,
	}
	books := []*model.Book{
		{Rank: 1, Title: "A space odyssey"},
		{Rank: 2, Title: "The dragon keep"},
		{Rank: 3, Title: "Home cooking"},
	}
	for _, b := range books {
		b.FillDefaults()
	}

	gt.NoError(t, idx.AddBooks(ctx, books, meta))
	gt.Equal(t, gemini.embedCalls, 3)

	docs, err := idx.Query(ctx, "books about space travel", 2)
	gt.NoError(t, err)
	gt.True(t, len(docs) >= 1)
	gt.Equal(t, docs[0].Metadata["title"], "A space odyssey")
	gt.Equal(t, docs[0].Metadata["search_id"], string(meta.SessionID))
}

func TestQueryEmptyIndex(t *testing.T) {
	idx, _ := setup(t)

	docs, err := idx.Query(context.Background(), "anything at all", 3)
	gt.NoError(t, err)
	gt.Equal(t, len(docs), 0)
}

func TestAddBooksEmpty(t *testing.T) {
	idx, gemini := setup(t)

	gt.NoError(t, idx.AddBooks(context.Background(), nil, model.SearchMeta{}))
	gt.Equal(t, gemini.embedCalls, 0)
}

func TestDocumentIDsUniqueAcrossSessions(t *testing.T) {
	ctx := context.Background()
	repo, err := repository.NewLocal(t.TempDir())
	gt.NoError(t, err)
	idx := index.New(repo, &fakeGemini{})

	book := &model.Book{Rank: 1, Title: "A space odyssey"}
	book.FillDefaults()

	for range 2 {
		meta := model.SearchMeta{SessionID: model.NewSessionID(), Query: "space", SearchType: model.SearchTypeKeywords}
		gt.NoError(t, idx.AddBooks(ctx, []*model.Book{book}, meta))
	}

	docs, err := idx.Query(ctx, "space", 10)
	gt.NoError(t, err)
	gt.Equal(t, len(docs), 2)
	gt.NotEqual(t, docs[0].ID, docs[1].ID)
}
