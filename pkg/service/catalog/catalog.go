package catalog

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-hoshino/libretto/pkg/adapter"
	"github.com/m-hoshino/libretto/pkg/model"
	"github.com/m-hoshino/libretto/pkg/service/policy"
	"github.com/m-hoshino/libretto/pkg/utils/logging"
	"google.golang.org/api/books/v1"
)

const (
	// providerPageCap is the largest page the volumes endpoint accepts
	providerPageCap = 40
	// defaultMaxResults is the total result budget of one search invocation
	defaultMaxResults = 100
)

// Service queries the book catalog provider and normalizes responses into
// ranked Book records.
type Service struct {
	books      adapter.Books
	filter     *policy.Filter
	pageCap    int64
	maxResults int64
}

type Option func(*Service)

// WithMaxResults overrides the total result budget per search
func WithMaxResults(n int64) Option {
	return func(s *Service) {
		s.maxResults = n
	}
}

// WithPageCap overrides the provider page cap (tests only, effectively)
func WithPageCap(n int64) Option {
	return func(s *Service) {
		s.pageCap = n
	}
}

// WithPolicy applies a rego result filter after normalization
func WithPolicy(f *policy.Filter) Option {
	return func(s *Service) {
		s.filter = f
	}
}

func New(books adapter.Books, opts ...Option) *Service {
	s := &Service{
		books:      books,
		pageCap:    providerPageCap,
		maxResults: defaultMaxResults,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// buildQuery constructs the provider query string for the search type.
// Blank or unsupported combinations fall back to keywords, then category,
// then an empty query.
func buildQuery(searchType model.SearchType, keywords, category string) string {
	switch {
	case searchType == model.SearchTypeCategory && category != "":
		return "subject:" + category
	case searchType == model.SearchTypeKeywords && keywords != "":
		return keywords
	case searchType == model.SearchTypeTitle && keywords != "":
		return "intitle:" + keywords
	case searchType == model.SearchTypeAuthor && keywords != "":
		return "inauthor:" + keywords
	case searchType == model.SearchTypeISBN && keywords != "":
		return "isbn:" + keywords
	}
	if keywords != "" {
		return keywords
	}
	if category != "" {
		return "subject:" + category
	}
	return ""
}

// Search fetches up to the result budget from the provider, page by page,
// and returns the normalized records in provider order with a contiguous
// 1-based rank. A failed page request ends pagination and returns whatever
// was accumulated; it is not an error.
func (s *Service) Search(ctx context.Context, searchType model.SearchType, keywords, category string) ([]*model.Book, error) {
	logger := logging.From(ctx)

	query := buildQuery(searchType, keywords, category)
	if query == "" || query == "subject:" {
		return nil, nil
	}

	var results []*model.Book
	rank := 0
	for start := int64(0); start < s.maxResults; start += s.pageCap {
		batch := s.maxResults - start
		if batch > s.pageCap {
			batch = s.pageCap
		}

		page, err := s.books.FetchPage(ctx, query, start, batch)
		if err != nil {
			logger.Warn("catalog page request failed, returning partial results",
				"query", query, "start_index", start, "error", err)
			break
		}
		if page == nil || len(page.Items) == 0 {
			break
		}

		for _, item := range page.Items {
			book := normalize(item, rank+1)
			if book == nil {
				logger.Debug("skipping malformed catalog item", "query", query)
				continue
			}
			rank++
			results = append(results, book)
		}
	}

	results, err := s.applyPolicy(ctx, results)
	if err != nil {
		return nil, err
	}

	logger.Info("catalog search completed",
		"query", query, "search_type", string(searchType), "results", len(results))
	return results, nil
}

// applyPolicy drops excluded records and re-ranks the remainder so the
// contiguous-rank invariant holds for the persisted session.
func (s *Service) applyPolicy(ctx context.Context, books []*model.Book) ([]*model.Book, error) {
	if s.filter == nil {
		return books, nil
	}

	kept := books[:0]
	for _, b := range books {
		excluded, err := s.filter.Exclude(ctx, b)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to evaluate catalog policy")
		}
		if excluded {
			continue
		}
		kept = append(kept, b)
	}
	for i, b := range kept {
		b.Rank = i + 1
	}
	return kept, nil
}

// normalize converts one provider volume into a Book, defaulting every
// missing field. Returns nil for items without volume info.
func normalize(v *books.Volume, rank int) *model.Book {
	if v == nil || v.VolumeInfo == nil {
		return nil
	}
	info := v.VolumeInfo

	thumbnail := ""
	if info.ImageLinks != nil {
		thumbnail = info.ImageLinks.Thumbnail
		if thumbnail == "" {
			thumbnail = info.ImageLinks.SmallThumbnail
		}
	}

	var rating *float64
	if info.AverageRating > 0 {
		r := info.AverageRating
		rating = &r
	}
	var pages *int
	if info.PageCount > 0 {
		p := int(info.PageCount)
		pages = &p
	}

	book := &model.Book{
		Rank:          rank,
		Title:         strings.TrimSpace(info.Title),
		Authors:       info.Authors,
		Publisher:     info.Publisher,
		PublishedDate: info.PublishedDate,
		Description:   info.Description,
		Categories:    info.Categories,
		Thumbnail:     thumbnail,
		AverageRating: rating,
		RatingsCount:  int(info.RatingsCount),
		PageCount:     pages,
		Language:      info.Language,
		PreviewLink:   info.PreviewLink,
		InfoLink:      info.InfoLink,
	}
	book.FillDefaults()
	return book
}
