package policy

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-hoshino/libretto/pkg/model"
	"github.com/open-policy-agent/opa/v1/rego"
)

// Filter evaluates catalog records against rego policies. The decision is
// data.catalog.exclude: a record is dropped when it evaluates to true.
type Filter struct {
	query rego.PreparedEvalQuery
}

// LoadDir loads all .rego files from policyDir and prepares the exclude
// query. Returns (nil, nil) when the directory holds no policy files.
func LoadDir(ctx context.Context, policyDir string) (*Filter, error) {
	files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to glob policy files")
	}
	if len(files) == 0 {
		return nil, nil
	}

	options := make([]func(*rego.Rego), 0, len(files)+1)
	options = append(options, rego.Query("data.catalog.exclude"))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", file))
		}
		options = append(options, rego.Module(file, string(data)))
	}

	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare policy query")
	}

	return &Filter{query: prepared}, nil
}

// Load prepares a filter from in-memory rego modules, keyed by module name
func Load(ctx context.Context, modules map[string]string) (*Filter, error) {
	if len(modules) == 0 {
		return nil, nil
	}

	options := make([]func(*rego.Rego), 0, len(modules)+1)
	options = append(options, rego.Query("data.catalog.exclude"))
	for name, src := range modules {
		options = append(options, rego.Module(name, src))
	}

	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare policy query")
	}

	return &Filter{query: prepared}, nil
}

// Exclude reports whether the record should be dropped from search results.
// A nil filter excludes nothing.
func (f *Filter) Exclude(ctx context.Context, book *model.Book) (bool, error) {
	if f == nil {
		return false, nil
	}

	// Round-trip through JSON so rego sees the wire field names
	raw, err := json.Marshal(book)
	if err != nil {
		return false, goerr.Wrap(err, "failed to marshal record for policy input")
	}
	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil {
		return false, goerr.Wrap(err, "failed to build policy input")
	}

	rs, err := f.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, goerr.Wrap(err, "failed to evaluate policy")
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}

	excluded, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, goerr.New("policy decision is not a boolean",
			goerr.V("value", rs[0].Expressions[0].Value))
	}
	return excluded, nil
}
