package render

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m-hoshino/libretto/pkg/model"
	"github.com/m-hoshino/libretto/pkg/repository"
	"github.com/m-hoshino/libretto/pkg/utils/logging"
)

const (
	markerPrefix = "<data_retrieved="
	markerSuffix = ">"
)

// ViewReader resolves a view token to its records
type ViewReader interface {
	GetView(ctx context.Context, token model.ViewToken) ([]*model.Book, error)
}

func placeholder(i int) string {
	return fmt.Sprintf("__TABLE_PLACEHOLDER_%d__", i)
}

// ReplaceTokens scans text left to right for <data_retrieved=TOKEN> markers
// and substitutes each with a rendered table fragment. Rendered markup is
// inserted via placeholders that are expanded only after the scan, so
// fragment content is never re-scanned for markers. An unresolvable token
// becomes an inline error message: missing and corrupt views are reported
// distinctly. A marker without a closing ">" is left verbatim and ends the
// scan. Repeated occurrences of one token each render independently.
func ReplaceTokens(ctx context.Context, views ViewReader, text string) string {
	logger := logging.From(ctx)

	var fragments []string
	pos := 0
	for {
		start := strings.Index(text[pos:], markerPrefix)
		if start < 0 {
			break
		}
		start += pos

		end := strings.Index(text[start:], markerSuffix)
		if end < 0 {
			break
		}
		end += start

		token := text[start+len(markerPrefix) : end]

		var replacement string
		books, err := views.GetView(ctx, model.ViewToken(token))
		switch {
		case err == nil:
			// Styles are embedded with the first fragment only
			fragment, renderErr := Table(books, token, len(fragments) == 0)
			if renderErr != nil {
				logger.Warn("failed to render view", "token", token, "error", renderErr)
				replacement = fmt.Sprintf("[Error: invalid data for token %s]", token)
			} else {
				replacement = placeholder(len(fragments))
				fragments = append(fragments, fragment)
			}

		case errors.Is(err, repository.ErrNotFound):
			logger.Warn("view token not found", "token", token)
			replacement = fmt.Sprintf("[Error: token %s not found]", token)

		default:
			logger.Warn("view data unreadable", "token", token, "error", err)
			replacement = fmt.Sprintf("[Error: invalid data for token %s]", token)
		}

		text = text[:start] + replacement + text[end+len(markerSuffix):]
		pos = start + len(replacement)
	}

	for i, fragment := range fragments {
		text = strings.Replace(text, placeholder(i), fragment, 1)
	}
	return text
}
