// Package books provides the conversational tool surface over the book
// catalog: fetching search results into sessions, presenting views as
// render tokens, semantic lookup and rank-based retrieval.
package books

import (
	"strconv"

	"google.golang.org/genai"
)

// stringArg extracts a function-call argument as a string. Numeric values
// are formatted, since the model sometimes sends counts as numbers even for
// string-typed parameters.
func stringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// countArg extracts a positive count argument, falling back to def for
// missing, malformed or non-positive values.
func countArg(args map[string]any, key string, def int) int {
	raw := stringArg(args, key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func textResponse(name, text string) *genai.FunctionResponse {
	return &genai.FunctionResponse{
		Name:     name,
		Response: map[string]any{"result": text},
	}
}
