package model_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-hoshino/libretto/pkg/model"
)

func TestFillDefaults(t *testing.T) {
	var b model.Book
	b.FillDefaults()

	gt.Equal(t, b.Title, model.DefaultTitle)
	gt.Equal(t, b.Authors, []string{model.DefaultAuthor})
	gt.Equal(t, b.Publisher, model.DefaultPublisher)
	gt.Equal(t, b.PublishedDate, model.DefaultPublishedDate)
	gt.Equal(t, b.Description, model.DefaultDescription)
	gt.Equal(t, b.Categories, []string{model.DefaultCategory})
	gt.Equal(t, b.Language, model.DefaultLanguage)
	gt.Equal(t, b.RatingsCount, 0)
	gt.Nil(t, b.AverageRating)
	gt.Nil(t, b.PageCount)
}

func TestFillDefaultsKeepsValues(t *testing.T) {
	b := model.Book{Title: "Dune", Authors: []string{"Frank Herbert"}}
	b.FillDefaults()

	gt.Equal(t, b.Title, "Dune")
	gt.Equal(t, b.Authors, []string{"Frank Herbert"})
	gt.Equal(t, b.Publisher, model.DefaultPublisher)
}

func TestFillDefaultsAfterUnmarshal(t *testing.T) {
	raw := `{"rank": 3, "title": "Neuromancer"}`
	var b model.Book
	gt.NoError(t, json.Unmarshal([]byte(raw), &b))
	b.FillDefaults()

	gt.Equal(t, b.Rank, 3)
	gt.Equal(t, b.Title, "Neuromancer")
	gt.Equal(t, b.Authors, []string{model.DefaultAuthor})
}

func TestRatingLabel(t *testing.T) {
	var b model.Book
	gt.Equal(t, b.RatingLabel(), "N/A")

	rating := 4.25
	b.AverageRating = &rating
	gt.Equal(t, b.RatingLabel(), "4.2")
}

func TestNormalizeSearchType(t *testing.T) {
	testCases := []struct {
		tag      string
		expected model.SearchType
	}{
		{"keywords", model.SearchTypeKeywords},
		{"category", model.SearchTypeCategory},
		{"Title", model.SearchTypeTitle},
		{" author ", model.SearchTypeAuthor},
		{"isbn", model.SearchTypeISBN},
		{"subject", model.SearchTypeKeywords},
		{"", model.SearchTypeKeywords},
	}

	for _, tc := range testCases {
		t.Run(tc.tag, func(t *testing.T) {
			gt.Equal(t, model.NormalizeSearchType(tc.tag), tc.expected)
		})
	}
}

func TestDocumentContainsFields(t *testing.T) {
	rating := 4.5
	b := model.Book{
		Rank:          2,
		Title:         "The Left Hand of Darkness",
		Authors:       []string{"Ursula K. Le Guin"},
		Publisher:     "Ace",
		PublishedDate: "1969",
		Description:   "A story of Gethen.",
		Categories:    []string{"Fiction", "Science Fiction"},
		AverageRating: &rating,
		RatingsCount:  120,
		Language:      "en",
	}

	doc := b.Document()
	for _, want := range []string{
		"Rank: 2",
		"Title: The Left Hand of Darkness",
		"Authors: Ursula K. Le Guin",
		"Publisher: Ace",
		"Categories: Fiction, Science Fiction",
		"Rating: 4.5 (120 ratings)",
		"A story of Gethen.",
	} {
		gt.True(t, strings.Contains(doc, want))
	}
}

func TestNewIndexedDocument(t *testing.T) {
	meta := model.SearchMeta{
		SessionID:  model.NewSessionID(),
		Query:      "science fiction",
		SearchType: model.SearchTypeKeywords,
	}
	b := &model.Book{Rank: 1, Title: "Hyperion", Authors: []string{"Dan Simmons"}}
	b.FillDefaults()

	doc := model.NewIndexedDocument(b, meta)
	gt.NotEqual(t, doc.ID, model.DocumentID(""))
	gt.Equal(t, doc.Metadata["rank"], "1")
	gt.Equal(t, doc.Metadata["title"], "Hyperion")
	gt.Equal(t, doc.Metadata["authors"], "Dan Simmons")
	gt.Equal(t, doc.Metadata["search_id"], string(meta.SessionID))
	gt.Equal(t, doc.Metadata["search_type"], "keywords")
	gt.Equal(t, doc.Metadata["rating"], "")
	gt.True(t, strings.Contains(doc.Content, "Hyperion"))
}

func TestIDsAreUnique(t *testing.T) {
	gt.NotEqual(t, model.NewSessionID(), model.NewSessionID())
	gt.NotEqual(t, model.NewViewToken(), model.NewViewToken())
	gt.NotEqual(t, model.NewDocumentID(), model.NewDocumentID())
}
