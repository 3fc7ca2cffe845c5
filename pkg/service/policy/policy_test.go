package policy_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-hoshino/libretto/pkg/model"
	"github.com/m-hoshino/libretto/pkg/service/policy"
)

const excludeAdultPolicy = `package catalog

import rego.v1

default exclude := false

exclude if {
	some category in input.categories
	category == "Adult"
}

exclude if {
	input.language == "xx"
}
`

func TestExclude(t *testing.T) {
	ctx := context.Background()
	filter, err := policy.Load(ctx, map[string]string{"catalog.rego": excludeAdultPolicy})
	gt.NoError(t, err)
	gt.NotNil(t, filter)

	testCases := []struct {
		name     string
		book     *model.Book
		excluded bool
	}{
		{
			name:     "matching category",
			book:     &model.Book{Title: "X", Categories: []string{"Adult"}, Language: "en"},
			excluded: true,
		},
		{
			name:     "matching language",
			book:     &model.Book{Title: "Y", Categories: []string{"Fiction"}, Language: "xx"},
			excluded: true,
		},
		{
			name:     "no match",
			book:     &model.Book{Title: "Z", Categories: []string{"Fiction"}, Language: "en"},
			excluded: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			excluded, err := filter.Exclude(ctx, tc.book)
			gt.NoError(t, err)
			gt.Equal(t, excluded, tc.excluded)
		})
	}
}

func TestNilFilter(t *testing.T) {
	var filter *policy.Filter
	excluded, err := filter.Exclude(context.Background(), &model.Book{Title: "A"})
	gt.NoError(t, err)
	gt.False(t, excluded)
}

func TestLoadEmpty(t *testing.T) {
	filter, err := policy.Load(context.Background(), nil)
	gt.NoError(t, err)
	gt.Nil(t, filter)
}

func TestLoadDirEmpty(t *testing.T) {
	filter, err := policy.LoadDir(context.Background(), t.TempDir())
	gt.NoError(t, err)
	gt.Nil(t, filter)
}
