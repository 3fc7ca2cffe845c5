package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/books/v1"
	"google.golang.org/api/option"
)

// Books fetches one page of volumes from the catalog provider. startIndex is
// the zero-based result offset and maxResults must not exceed the provider
// page cap.
type Books interface {
	FetchPage(ctx context.Context, query string, startIndex, maxResults int64) (*books.Volumes, error)
}

type booksClient struct {
	svc *books.Service
}

// NewBooks creates a Google Books volumes client. Options allow endpoint and
// credential overrides.
func NewBooks(ctx context.Context, opts ...option.ClientOption) (Books, error) {
	svc, err := books.NewService(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create books service")
	}
	return &booksClient{svc: svc}, nil
}

func (c *booksClient) FetchPage(ctx context.Context, query string, startIndex, maxResults int64) (*books.Volumes, error) {
	volumes, err := c.svc.Volumes.List(query).
		OrderBy("relevance").
		StartIndex(startIndex).
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list volumes",
			goerr.V("query", query), goerr.V("start_index", startIndex))
	}
	return volumes, nil
}
