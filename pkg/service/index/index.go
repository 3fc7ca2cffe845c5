package index

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-hoshino/libretto/pkg/adapter"
	"github.com/m-hoshino/libretto/pkg/model"
	"github.com/m-hoshino/libretto/pkg/repository"
	"github.com/m-hoshino/libretto/pkg/utils/logging"
)

// Index maintains one embedded document per book record and answers
// nearest-neighbor queries. It is a thin layer over the repository's vector
// search; the repository guarantees that empty-index queries return an empty
// result rather than an error.
type Index struct {
	repo   repository.Repository
	gemini adapter.Gemini
}

func New(repo repository.Repository, gemini adapter.Gemini) *Index {
	return &Index{
		repo:   repo,
		gemini: gemini,
	}
}

// AddBooks embeds and indexes every record of one search. Document ids are
// freshly generated so records from different sessions never collide.
func (x *Index) AddBooks(ctx context.Context, books []*model.Book, meta model.SearchMeta) error {
	if len(books) == 0 {
		return nil
	}

	docs := make([]*model.IndexedDocument, 0, len(books))
	for _, b := range books {
		doc := model.NewIndexedDocument(b, meta)

		embedding, err := x.embed(ctx, doc.Content)
		if err != nil {
			return goerr.Wrap(err, "failed to embed document",
				goerr.V("session_id", meta.SessionID), goerr.V("rank", b.Rank))
		}
		doc.Embedding = embedding
		docs = append(docs, doc)
	}

	if err := x.repo.AddDocuments(ctx, docs); err != nil {
		return goerr.Wrap(err, "failed to store indexed documents", goerr.V("session_id", meta.SessionID))
	}

	logging.From(ctx).Debug("indexed search results",
		"session_id", string(meta.SessionID), "documents", len(docs))
	return nil
}

// Query returns up to limit documents nearest to the query text
func (x *Index) Query(ctx context.Context, text string, limit int) ([]*model.IndexedDocument, error) {
	embedding, err := x.embed(ctx, text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query text")
	}

	docs, err := x.repo.QueryDocuments(ctx, embedding, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query indexed documents")
	}
	return docs, nil
}

func (x *Index) embed(ctx context.Context, text string) (firestore.Vector32, error) {
	resp, err := x.gemini.Embedding(ctx, text)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, goerr.New("embedding response has no values")
	}
	return firestore.Vector32(resp.Embeddings[0].Values), nil
}
