package render

import (
	_ "embed"
	"html/template"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-hoshino/libretto/pkg/model"
)

//go:embed templates/book_table.html.tmpl
var tableTemplateRaw string

//go:embed templates/styles.css
var stylesRaw string

//go:embed templates/book_table.js
var scriptRaw string

var tableTemplate = template.Must(template.New("book_table").Parse(tableTemplateRaw))

type tableRow struct {
	Index int
	Book  *model.Book
}

type tableData struct {
	RenderID string
	Rows     []tableRow
}

// SanitizeID normalizes an identifier for use in element ids and script
// names: every character outside [A-Za-z0-9_] becomes an underscore.
func SanitizeID(id string) string {
	var sb strings.Builder
	sb.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

// Table renders records as a self-contained HTML table fragment with an
// interactive details panel. Row indices are the 1-based positions within
// books, independent of each record's original rank. renderID namespaces
// element ids and the attached script so multiple fragments can share one
// document; includeStyles embeds the shared CSS and should be true for
// exactly one fragment per document.
func Table(books []*model.Book, renderID string, includeStyles bool) (string, error) {
	safeID := SanitizeID(renderID)

	data := tableData{
		RenderID: safeID,
		Rows:     make([]tableRow, 0, len(books)),
	}
	for i, b := range books {
		data.Rows = append(data.Rows, tableRow{Index: i + 1, Book: b})
	}

	var sb strings.Builder
	if includeStyles {
		sb.WriteString("<style>\n")
		sb.WriteString(stylesRaw)
		sb.WriteString("</style>\n")
	}

	if err := tableTemplate.Execute(&sb, data); err != nil {
		return "", goerr.Wrap(err, "failed to render book table", goerr.V("render_id", safeID))
	}

	sb.WriteString("<script>\n")
	sb.WriteString(strings.ReplaceAll(scriptRaw, "___UNIQUE_ID__", safeID))
	sb.WriteString("</script>\n")

	return sb.String(), nil
}
