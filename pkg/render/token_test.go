package render_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-hoshino/libretto/pkg/model"
	"github.com/m-hoshino/libretto/pkg/render"
	"github.com/m-hoshino/libretto/pkg/repository"
)

func setupViews(t *testing.T) (*repository.Local, string) {
	dir := t.TempDir()
	repo, err := repository.NewLocal(dir)
	gt.NoError(t, err)
	return repo, dir
}

func putView(t *testing.T, repo *repository.Local, n int) model.ViewToken {
	token := model.NewViewToken()
	gt.NoError(t, repo.PutView(context.Background(), token, sampleBooks(n)))
	return token
}

func TestReplaceTokensIdentity(t *testing.T) {
	repo, _ := setupViews(t)

	inputs := []string{
		"",
		"plain answer with no markers",
		"angle brackets < but > no marker",
	}
	for _, input := range inputs {
		gt.Equal(t, render.ReplaceTokens(context.Background(), repo, input), input)
	}
}

func TestReplaceTokensRendersView(t *testing.T) {
	repo, _ := setupViews(t)
	token := putView(t, repo, 3)

	input := fmt.Sprintf("Here are the books: <data_retrieved=%s> enjoy!", token)
	out := render.ReplaceTokens(context.Background(), repo, input)

	gt.False(t, strings.Contains(out, "<data_retrieved="))
	gt.False(t, strings.Contains(out, "__TABLE_PLACEHOLDER_"))
	gt.Equal(t, strings.Count(out, `class="book-row"`), 3)
	gt.True(t, strings.HasPrefix(out, "Here are the books: "))
	gt.True(t, strings.HasSuffix(out, " enjoy!"))
}

func TestReplaceTokensUnknownToken(t *testing.T) {
	repo, _ := setupViews(t)

	out := render.ReplaceTokens(context.Background(), repo, "x <data_retrieved=deadbeef> y")
	gt.Equal(t, out, "x [Error: token deadbeef not found] y")
	gt.False(t, strings.Contains(out, "book-row"))
}

func TestReplaceTokensCorruptView(t *testing.T) {
	repo, dir := setupViews(t)
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "bad-token.json"), []byte("{{{"), 0o644))

	out := render.ReplaceTokens(context.Background(), repo, "x <data_retrieved=bad-token> y")
	gt.Equal(t, out, "x [Error: invalid data for token bad-token] y")
}

func TestReplaceTokensMalformedMarker(t *testing.T) {
	repo, _ := setupViews(t)

	// missing closing bracket is left verbatim
	input := "truncated <data_retrieved=abc"
	gt.Equal(t, render.ReplaceTokens(context.Background(), repo, input), input)
}

func TestReplaceTokensMultipleMarkers(t *testing.T) {
	repo, _ := setupViews(t)
	tokenA := putView(t, repo, 2)
	tokenB := putView(t, repo, 1)

	input := fmt.Sprintf("A: <data_retrieved=%s> B: <data_retrieved=%s> C: <data_retrieved=unknown>", tokenA, tokenB)
	out := render.ReplaceTokens(context.Background(), repo, input)

	gt.False(t, strings.Contains(out, "<data_retrieved="))
	gt.Equal(t, strings.Count(out, `class="book-row"`), 3)
	gt.True(t, strings.Contains(out, "[Error: token unknown not found]"))
	// shared styles are embedded exactly once
	gt.Equal(t, strings.Count(out, "<style>"), 1)
}

func TestReplaceTokensRepeatedToken(t *testing.T) {
	repo, _ := setupViews(t)
	token := putView(t, repo, 1)

	input := fmt.Sprintf("<data_retrieved=%s> and again <data_retrieved=%s>", token, token)
	out := render.ReplaceTokens(context.Background(), repo, input)

	// each occurrence renders independently
	gt.Equal(t, strings.Count(out, `class="book-row"`), 2)
	gt.False(t, strings.Contains(out, "<data_retrieved="))
}

func TestReplaceTokensViewClampBehavior(t *testing.T) {
	repo, _ := setupViews(t)
	token := putView(t, repo, 3)

	out := render.ReplaceTokens(context.Background(), repo, fmt.Sprintf("<data_retrieved=%s>", token))
	gt.Equal(t, strings.Count(out, `class="book-row"`), 3)
}
