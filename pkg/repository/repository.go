package repository

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-hoshino/libretto/pkg/model"
)

var (
	// ErrNotFound indicates the referenced session or view has no backing data
	ErrNotFound = goerr.New("not found")

	// ErrCorrupt indicates backing data exists but cannot be parsed as a
	// list of book records
	ErrCorrupt = goerr.New("corrupt data")

	// ErrEmptyRecords indicates a write was attempted with no records.
	// Empty searches must not create a session.
	ErrEmptyRecords = goerr.New("empty records")
)

// Repository persists search sessions, presentation views and indexed
// documents. Sessions and views are read-only after creation; writes with a
// fresh identifier are atomic from the reader's perspective.
type Repository interface {
	// PutSession saves the ranked records of one catalog search.
	// Returns ErrEmptyRecords if books is empty.
	PutSession(ctx context.Context, id model.SessionID, books []*model.Book) error

	// SessionExists reports whether a session has been persisted
	SessionExists(ctx context.Context, id model.SessionID) (bool, error)

	// GetSession retrieves the records of a session in rank order.
	// Returns ErrNotFound if absent, ErrCorrupt if unparsable.
	GetSession(ctx context.Context, id model.SessionID) ([]*model.Book, error)

	// PutView saves a bounded slice of a session under a view token
	PutView(ctx context.Context, token model.ViewToken, books []*model.Book) error

	// GetView retrieves the records of a view in rank order.
	// Same failure modes as GetSession.
	GetView(ctx context.Context, token model.ViewToken) ([]*model.Book, error)

	// AddDocuments appends documents to the semantic index
	AddDocuments(ctx context.Context, docs []*model.IndexedDocument) error

	// QueryDocuments returns up to limit documents nearest to the embedding
	// by cosine similarity. An empty index yields an empty result, not an
	// error.
	QueryDocuments(ctx context.Context, embedding []float32, limit int) ([]*model.IndexedDocument, error)
}
