package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-hoshino/libretto/pkg/model"
)

// Local implements Repository on the filesystem. Each session is one JSON
// file named search_<id>.json and each view is <token>.json, both holding a
// list of book records. Indexed documents are held in memory and live for
// the process, which matches the single-conversation lifecycle of the index.
type Local struct {
	dir string

	mu   sync.RWMutex
	docs []*model.IndexedDocument
}

// NewLocal creates a filesystem repository rooted at dir, creating it if
// needed.
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, goerr.New("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create data directory", goerr.V("dir", dir))
	}
	return &Local{dir: dir}, nil
}

func (r *Local) sessionPath(id model.SessionID) string {
	return filepath.Join(r.dir, fmt.Sprintf("search_%s.json", id))
}

func (r *Local) viewPath(token model.ViewToken) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s.json", token))
}

func (r *Local) PutSession(ctx context.Context, id model.SessionID, books []*model.Book) error {
	if len(books) == 0 {
		return goerr.Wrap(ErrEmptyRecords, "session must have at least one record", goerr.V("session_id", id))
	}
	return r.writeBooks(r.sessionPath(id), books)
}

func (r *Local) SessionExists(ctx context.Context, id model.SessionID) (bool, error) {
	_, err := os.Stat(r.sessionPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to stat session file", goerr.V("session_id", id))
	}
	return true, nil
}

func (r *Local) GetSession(ctx context.Context, id model.SessionID) ([]*model.Book, error) {
	return r.readBooks(r.sessionPath(id))
}

func (r *Local) PutView(ctx context.Context, token model.ViewToken, books []*model.Book) error {
	if len(books) == 0 {
		return goerr.Wrap(ErrEmptyRecords, "view must have at least one record", goerr.V("token", token))
	}
	return r.writeBooks(r.viewPath(token), books)
}

func (r *Local) GetView(ctx context.Context, token model.ViewToken) ([]*model.Book, error) {
	return r.readBooks(r.viewPath(token))
}

// writeBooks writes through a temp file and renames so readers never observe
// a partially written payload.
func (r *Local) writeBooks(path string, books []*model.Book) error {
	data, err := json.MarshalIndent(books, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal records")
	}

	tmp, err := os.CreateTemp(r.dir, ".write-*")
	if err != nil {
		return goerr.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return goerr.Wrap(err, "failed to write records", goerr.V("path", path))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return goerr.Wrap(err, "failed to close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return goerr.Wrap(err, "failed to move records into place", goerr.V("path", path))
	}
	return nil
}

func (r *Local) readBooks(path string) ([]*model.Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(ErrNotFound, "no data file", goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to read data file", goerr.V("path", path))
	}

	var books []*model.Book
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, goerr.Wrap(ErrCorrupt, "payload is not a list of records", goerr.V("path", path))
	}
	for _, b := range books {
		if b == nil {
			return nil, goerr.Wrap(ErrCorrupt, "payload contains a null record", goerr.V("path", path))
		}
		b.FillDefaults()
	}
	return books, nil
}

func (r *Local) AddDocuments(ctx context.Context, docs []*model.IndexedDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, docs...)
	return nil
}

func (r *Local) QueryDocuments(ctx context.Context, embedding []float32, limit int) ([]*model.IndexedDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type scored struct {
		doc   *model.IndexedDocument
		score float64
	}

	matches := make([]scored, 0, len(r.docs))
	for _, doc := range r.docs {
		score := cosineSimilarity(embedding, doc.Embedding)
		if score <= 0 {
			continue
		}
		matches = append(matches, scored{doc: doc, score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	result := make([]*model.IndexedDocument, len(matches))
	for i, m := range matches {
		result[i] = m.doc
	}
	return result, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
