package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-hoshino/libretto/pkg/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionSessions  = "sessions"
	collectionViews     = "views"
	collectionDocuments = "documents"
)

// Firestore implements Repository using Cloud Firestore. Sessions and views
// are single documents holding the record list; indexed documents carry a
// Vector32 embedding queried with FindNearest.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore creates a Firestore repository for the given project and
// database.
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}
	return &Firestore{client: client}, nil
}

// Close releases the underlying client
func (r *Firestore) Close() error {
	return r.client.Close()
}

// recordsDoc is the stored shape of a session or view document
type recordsDoc struct {
	Records []*model.Book
}

func (r *Firestore) PutSession(ctx context.Context, id model.SessionID, books []*model.Book) error {
	if len(books) == 0 {
		return goerr.Wrap(ErrEmptyRecords, "session must have at least one record", goerr.V("session_id", id))
	}
	_, err := r.client.Collection(collectionSessions).Doc(string(id)).Set(ctx, recordsDoc{Records: books})
	if err != nil {
		return goerr.Wrap(err, "failed to put session", goerr.V("session_id", id))
	}
	return nil
}

func (r *Firestore) SessionExists(ctx context.Context, id model.SessionID) (bool, error) {
	_, err := r.client.Collection(collectionSessions).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to get session", goerr.V("session_id", id))
	}
	return true, nil
}

func (r *Firestore) GetSession(ctx context.Context, id model.SessionID) ([]*model.Book, error) {
	return r.getRecords(ctx, collectionSessions, string(id))
}

func (r *Firestore) PutView(ctx context.Context, token model.ViewToken, books []*model.Book) error {
	if len(books) == 0 {
		return goerr.Wrap(ErrEmptyRecords, "view must have at least one record", goerr.V("token", token))
	}
	_, err := r.client.Collection(collectionViews).Doc(string(token)).Set(ctx, recordsDoc{Records: books})
	if err != nil {
		return goerr.Wrap(err, "failed to put view", goerr.V("token", token))
	}
	return nil
}

func (r *Firestore) GetView(ctx context.Context, token model.ViewToken) ([]*model.Book, error) {
	return r.getRecords(ctx, collectionViews, string(token))
}

func (r *Firestore) getRecords(ctx context.Context, collection, id string) ([]*model.Book, error) {
	snap, err := r.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "no document", goerr.V("collection", collection), goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get document", goerr.V("collection", collection), goerr.V("id", id))
	}

	var doc recordsDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(ErrCorrupt, "document is not a record list", goerr.V("collection", collection), goerr.V("id", id))
	}
	if len(doc.Records) == 0 {
		return nil, goerr.Wrap(ErrCorrupt, "document has no records", goerr.V("collection", collection), goerr.V("id", id))
	}
	for _, b := range doc.Records {
		if b == nil {
			return nil, goerr.Wrap(ErrCorrupt, "document contains a null record", goerr.V("collection", collection), goerr.V("id", id))
		}
		b.FillDefaults()
	}
	return doc.Records, nil
}

func (r *Firestore) AddDocuments(ctx context.Context, docs []*model.IndexedDocument) error {
	bw := r.client.BulkWriter(ctx)
	for _, doc := range docs {
		ref := r.client.Collection(collectionDocuments).Doc(string(doc.ID))
		if _, err := bw.Set(ref, doc); err != nil {
			return goerr.Wrap(err, "failed to queue document write", goerr.V("id", doc.ID))
		}
	}
	bw.End()
	return nil
}

func (r *Firestore) QueryDocuments(ctx context.Context, embedding []float32, limit int) ([]*model.IndexedDocument, error) {
	query := r.client.Collection(collectionDocuments).FindNearest(
		"Embedding",
		firestore.Vector32(embedding),
		limit,
		firestore.DistanceMeasureCosine,
		nil,
	)

	snaps, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query documents")
	}

	docs := make([]*model.IndexedDocument, 0, len(snaps))
	for _, snap := range snaps {
		var doc model.IndexedDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(ErrCorrupt, "indexed document is unparsable", goerr.V("id", snap.Ref.ID))
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}
