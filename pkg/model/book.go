package model

import (
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var ErrInvalidSearchType = goerr.New("invalid search type")

type SessionID string

// NewSessionID generates a new unique SessionID for one catalog search
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

type ViewToken string

// NewViewToken generates a new unique ViewToken for one present operation
func NewViewToken() ViewToken {
	return ViewToken(uuid.New().String())
}

type DocumentID string

// NewDocumentID generates a new unique DocumentID for an indexed document
func NewDocumentID() DocumentID {
	return DocumentID(uuid.New().String())
}

type SearchType string

const (
	SearchTypeKeywords SearchType = "keywords"
	SearchTypeCategory SearchType = "category"
	SearchTypeTitle    SearchType = "title"
	SearchTypeAuthor   SearchType = "author"
	SearchTypeISBN     SearchType = "isbn"
)

// Validate checks if the search type is one of the supported tags
func (t SearchType) Validate() error {
	switch t {
	case SearchTypeKeywords, SearchTypeCategory, SearchTypeTitle, SearchTypeAuthor, SearchTypeISBN:
		return nil
	default:
		return goerr.Wrap(ErrInvalidSearchType, "unsupported search type", goerr.V("type", t))
	}
}

// NormalizeSearchType maps an arbitrary tag to a supported SearchType,
// falling back to keywords for anything unrecognized.
func NormalizeSearchType(tag string) SearchType {
	t := SearchType(strings.ToLower(strings.TrimSpace(tag)))
	if err := t.Validate(); err != nil {
		return SearchTypeKeywords
	}
	return t
}

// Default values used when the catalog provider omits a field. Every Book
// field has a defined default so a record is fully constructible even from
// partial provider data.
const (
	DefaultTitle         = "Unknown Title"
	DefaultAuthor        = "Unknown Author"
	DefaultPublisher     = "Unknown Publisher"
	DefaultPublishedDate = "Unknown Date"
	DefaultDescription   = "No Description"
	DefaultCategory      = "Unknown Category"
	DefaultLanguage      = "Unknown"
)

// Book is one normalized catalog entry. Rank is assigned by the catalog
// client in provider return order, starting at 1, and is immutable within a
// session.
type Book struct {
	Rank          int      `json:"rank"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Publisher     string   `json:"publisher"`
	PublishedDate string   `json:"publishedDate"`
	Description   string   `json:"description"`
	Categories    []string `json:"categories"`
	Thumbnail     string   `json:"thumbnail"`
	AverageRating *float64 `json:"averageRating"`
	RatingsCount  int      `json:"ratingsCount"`
	PageCount     *int     `json:"pageCount"`
	Language      string   `json:"language"`
	PreviewLink   string   `json:"previewLink"`
	InfoLink      string   `json:"infoLink"`
}

// FillDefaults replaces zero-valued fields with the documented defaults.
// Called after unmarshaling persisted payloads so older records stay
// renderable.
func (b *Book) FillDefaults() {
	if b.Title == "" {
		b.Title = DefaultTitle
	}
	if len(b.Authors) == 0 {
		b.Authors = []string{DefaultAuthor}
	}
	if b.Publisher == "" {
		b.Publisher = DefaultPublisher
	}
	if b.PublishedDate == "" {
		b.PublishedDate = DefaultPublishedDate
	}
	if b.Description == "" {
		b.Description = DefaultDescription
	}
	if len(b.Categories) == 0 {
		b.Categories = []string{DefaultCategory}
	}
	if b.Language == "" {
		b.Language = DefaultLanguage
	}
}

// AuthorsLine returns the author list joined for display
func (b *Book) AuthorsLine() string {
	return strings.Join(b.Authors, ", ")
}

// CategoriesLine returns the category list joined for display
func (b *Book) CategoriesLine() string {
	return strings.Join(b.Categories, ", ")
}

// RatingLabel returns the average rating for display, "N/A" when absent
func (b *Book) RatingLabel() string {
	if b.AverageRating == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *b.AverageRating)
}

// PageCountLabel returns the page count for display, "N/A" when absent
func (b *Book) PageCountLabel() string {
	if b.PageCount == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *b.PageCount)
}

// Detail formats the full record as plain text for tool responses
func (b *Book) Detail() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Book Rank: %d\n", b.Rank)
	fmt.Fprintf(&sb, "Title: %s\n", b.Title)
	fmt.Fprintf(&sb, "Authors: %s\n", b.AuthorsLine())
	fmt.Fprintf(&sb, "Publisher: %s\n", b.Publisher)
	fmt.Fprintf(&sb, "Published Date: %s\n", b.PublishedDate)
	fmt.Fprintf(&sb, "Categories: %s\n", b.CategoriesLine())
	fmt.Fprintf(&sb, "\nDescription:\n%s", b.Description)
	return sb.String()
}

// Document serializes the record as free text for the semantic index
func (b *Book) Document() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Rank: %d\n", b.Rank)
	fmt.Fprintf(&sb, "Title: %s\n", b.Title)
	fmt.Fprintf(&sb, "Authors: %s\n", b.AuthorsLine())
	fmt.Fprintf(&sb, "Publisher: %s\n", b.Publisher)
	fmt.Fprintf(&sb, "Published Date: %s\n", b.PublishedDate)
	fmt.Fprintf(&sb, "Categories: %s\n", b.CategoriesLine())
	fmt.Fprintf(&sb, "Rating: %s (%d ratings)\n", b.RatingLabel(), b.RatingsCount)
	fmt.Fprintf(&sb, "Pages: %s\n", b.PageCountLabel())
	fmt.Fprintf(&sb, "Language: %s\n", b.Language)
	fmt.Fprintf(&sb, "\nDescription:\n%s", b.Description)
	return sb.String()
}

// SearchMeta carries the metadata of one catalog search alongside its records
type SearchMeta struct {
	SessionID  SessionID
	Query      string
	SearchType SearchType
}

// IndexedDocument is the free-text serialization of one Book plus a flat
// metadata sidecar, stored in the semantic index. One document per record,
// never mutated or removed.
type IndexedDocument struct {
	ID        DocumentID
	Content   string
	Metadata  map[string]string
	Embedding firestore.Vector32
}

// NewIndexedDocument builds the index entry for one book of a search
func NewIndexedDocument(b *Book, meta SearchMeta) *IndexedDocument {
	rating := ""
	if b.AverageRating != nil {
		rating = fmt.Sprintf("%.1f", *b.AverageRating)
	}
	return &IndexedDocument{
		ID:      NewDocumentID(),
		Content: b.Document(),
		Metadata: map[string]string{
			"rank":         fmt.Sprintf("%d", b.Rank),
			"title":        b.Title,
			"authors":      strings.Join(b.Authors, ","),
			"publisher":    b.Publisher,
			"categories":   strings.Join(b.Categories, ","),
			"rating":       rating,
			"search_query": meta.Query,
			"search_type":  string(meta.SearchType),
			"search_id":    string(meta.SessionID),
		},
	}
}
