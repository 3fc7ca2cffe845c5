package cli

import (
	"context"
	"os"

	"github.com/m-hoshino/libretto/pkg/adapter"
	"github.com/m-hoshino/libretto/pkg/repository"
	"github.com/m-hoshino/libretto/pkg/service/catalog"
	"github.com/m-hoshino/libretto/pkg/service/index"
	"github.com/m-hoshino/libretto/pkg/service/policy"
	"github.com/m-hoshino/libretto/pkg/tool"
	toolbooks "github.com/m-hoshino/libretto/pkg/tool/books"
	"github.com/m-hoshino/libretto/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
	"gopkg.in/yaml.v3"
)

// config holds configuration values
type config struct {
	configPath string
	logLevel   string

	// Repository
	dataDir  string
	project  string
	database string

	// Adapters
	geminiProject  string
	geminiLocation string
	booksAPIKey    string
	bucket         string

	// Catalog
	policyDir  string
	maxResults int64
}

// fileConfig is the YAML shape of the optional configuration file. Values
// from flags and environment variables win over file values.
type fileConfig struct {
	LogLevel       string `yaml:"log_level"`
	DataDir        string `yaml:"data_dir"`
	Project        string `yaml:"project"`
	Database       string `yaml:"database"`
	GeminiProject  string `yaml:"gemini_project"`
	GeminiLocation string `yaml:"gemini_location"`
	BooksAPIKey    string `yaml:"books_api_key"`
	Bucket         string `yaml:"bucket"`
	PolicyDir      string `yaml:"policy_dir"`
	MaxResults     int64  `yaml:"max_results"`
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to YAML configuration file",
			Sources:     cli.EnvVars("LIBRETTO_CONFIG"),
			Destination: &cfg.configPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("LIBRETTO_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Aliases:     []string{"d"},
			Usage:       "Directory for search result files",
			Value:       "./data",
			Sources:     cli.EnvVars("LIBRETTO_DATA_DIR"),
			Destination: &cfg.dataDir,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID; enables the Firestore backend",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego policies filtering catalog results",
			Sources:     cli.EnvVars("LIBRETTO_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
		&cli.IntFlag{
			Name:        "max-results",
			Usage:       "Total result budget per catalog search",
			Value:       100,
			Sources:     cli.EnvVars("LIBRETTO_MAX_RESULTS"),
			Destination: &cfg.maxResults,
		},
		&cli.StringFlag{
			Name:        "books-api-key",
			Usage:       "API key for the book catalog provider",
			Sources:     cli.EnvVars("GOOGLE_BOOKS_API_KEY"),
			Destination: &cfg.booksAPIKey,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for conversation transcripts",
			Sources:     cli.EnvVars("LIBRETTO_BUCKET"),
			Destination: &cfg.bucket,
		},
	}
}

// setup merges the optional config file and installs the logger. Returns a
// context carrying the logger.
func (cfg *config) setup(ctx context.Context) (context.Context, error) {
	if err := cfg.loadFile(); err != nil {
		return ctx, err
	}

	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger), nil
}

// loadFile fills unset fields from the YAML config file, if one is given
func (cfg *config) loadFile() error {
	if cfg.configPath == "" {
		return nil
	}

	data, err := os.ReadFile(cfg.configPath)
	if err != nil {
		return goerr.Wrap(err, "failed to read config file", goerr.V("path", cfg.configPath))
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return goerr.Wrap(err, "failed to parse config file", goerr.V("path", cfg.configPath))
	}

	if cfg.logLevel == "info" && fc.LogLevel != "" {
		cfg.logLevel = fc.LogLevel
	}
	if cfg.dataDir == "./data" && fc.DataDir != "" {
		cfg.dataDir = fc.DataDir
	}
	if cfg.project == "" {
		cfg.project = fc.Project
	}
	if cfg.database == "(default)" && fc.Database != "" {
		cfg.database = fc.Database
	}
	if cfg.geminiProject == "" {
		cfg.geminiProject = fc.GeminiProject
	}
	if cfg.geminiLocation == "us-central1" && fc.GeminiLocation != "" {
		cfg.geminiLocation = fc.GeminiLocation
	}
	if cfg.booksAPIKey == "" {
		cfg.booksAPIKey = fc.BooksAPIKey
	}
	if cfg.bucket == "" {
		cfg.bucket = fc.Bucket
	}
	if cfg.policyDir == "" {
		cfg.policyDir = fc.PolicyDir
	}
	if cfg.maxResults == 100 && fc.MaxResults > 0 {
		cfg.maxResults = fc.MaxResults
	}
	return nil
}

// newRepository creates the storage backend: Firestore when a project is
// configured, local JSON files otherwise.
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	if cfg.project != "" {
		repo, err := repository.NewFirestore(ctx, cfg.project, cfg.database)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create firestore repository")
		}
		return repo, nil
	}

	repo, err := repository.NewLocal(cfg.dataDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create local repository")
	}
	return repo, nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}
	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation)
}

// newCatalog creates the catalog service with the optional policy filter
func (cfg *config) newCatalog(ctx context.Context) (*catalog.Service, error) {
	var opts []option.ClientOption
	if cfg.booksAPIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.booksAPIKey))
	}

	books, err := adapter.NewBooks(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create books client")
	}

	catOpts := []catalog.Option{catalog.WithMaxResults(cfg.maxResults)}
	if cfg.policyDir != "" {
		filter, err := policy.LoadDir(ctx, cfg.policyDir)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load catalog policies")
		}
		if filter != nil {
			catOpts = append(catOpts, catalog.WithPolicy(filter))
		}
	}

	return catalog.New(books, catOpts...), nil
}

// newStorage creates the transcript archive when a bucket is configured
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	if cfg.bucket == "" {
		return nil, nil
	}

	storage, err := adapter.NewStorage(ctx, cfg.bucket)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}

// newRegistry builds the repository, services and the tool registry over them
func (cfg *config) newRegistry(ctx context.Context) (*tool.Registry, *tool.Client, error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, nil, err
	}

	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, nil, err
	}

	cat, err := cfg.newCatalog(ctx)
	if err != nil {
		return nil, nil, err
	}

	idx := index.New(repo, gemini)
	client := &tool.Client{
		Repo:    repo,
		Catalog: cat,
		Index:   idx,
		Gemini:  gemini,
	}

	registry := tool.NewRegistry(
		toolbooks.NewFetch(repo, cat, idx),
		toolbooks.NewPresent(repo),
		toolbooks.NewSearch(idx),
		toolbooks.NewRank(repo),
	)
	return registry, client, nil
}
