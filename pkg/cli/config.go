package cli

import (
	"context"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/adapter"
	"github.com/m-mizutani/lifesync/pkg/policy"
	"github.com/m-mizutani/lifesync/pkg/repository"
	"github.com/m-mizutani/lifesync/pkg/service/imagegen"
	"github.com/m-mizutani/lifesync/pkg/usecase/journal"
	"github.com/m-mizutani/lifesync/pkg/usecase/regenerate"
	"github.com/m-mizutani/lifesync/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	backendSQLite    = "sqlite"
	backendFirestore = "firestore"
	backendMemory    = "memory"
)

// config holds configuration values
type config struct {
	// Repository
	backend  string
	dbPath   string
	project  string
	database string

	// Generation
	geminiAPIKey  string
	geminiBaseURL string
	textModel     string
	imageModel    string
	styleFile     string

	// Cloud
	bucket       string
	bucketPrefix string
	policyDir    string

	// Regeneration
	interval time.Duration

	// Logging
	logLevel  string
	logFormat string
}

// storeFlags returns flags that select and configure the entry store
func storeFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "backend",
			Aliases:     []string{"b"},
			Usage:       "Entry store backend (sqlite, firestore, memory)",
			Value:       backendSQLite,
			Sources:     cli.EnvVars("LIFESYNC_BACKEND"),
			Destination: &cfg.backend,
		},
		&cli.StringFlag{
			Name:        "db-path",
			Usage:       "SQLite database file",
			Value:       "lifesync.db",
			Sources:     cli.EnvVars("LIFESYNC_DB_PATH"),
			Destination: &cfg.dbPath,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
	}
}

// llmFlags returns flags for Gemini text and image generation
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key. Without it AI features run offline",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-base-url",
			Usage:       "Override the Gemini API endpoint",
			Sources:     cli.EnvVars("GEMINI_BASE_URL"),
			Destination: &cfg.geminiBaseURL,
		},
		&cli.StringFlag{
			Name:        "text-model",
			Usage:       "Model for text analysis",
			Value:       adapter.DefaultTextModel,
			Sources:     cli.EnvVars("LIFESYNC_TEXT_MODEL"),
			Destination: &cfg.textModel,
		},
		&cli.StringFlag{
			Name:        "image-model",
			Usage:       "Model for card images",
			Value:       adapter.DefaultImageModel,
			Sources:     cli.EnvVars("LIFESYNC_IMAGE_MODEL"),
			Destination: &cfg.imageModel,
		},
		&cli.StringFlag{
			Name:        "style-file",
			Usage:       "YAML file with additional art styles",
			Sources:     cli.EnvVars("LIFESYNC_STYLE_FILE"),
			Destination: &cfg.styleFile,
		},
	}
}

// cloudFlags returns flags for snapshot storage and candidate policies
func cloudFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for journal snapshots",
			Sources:     cli.EnvVars("LIFESYNC_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "bucket-prefix",
			Usage:       "Object prefix inside the snapshot bucket",
			Sources:     cli.EnvVars("LIFESYNC_BUCKET_PREFIX"),
			Destination: &cfg.bucketPrefix,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego policies that narrow regeneration candidates",
			Sources:     cli.EnvVars("LIFESYNC_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
		&cli.DurationFlag{
			Name:        "interval",
			Usage:       "Minimum spacing between image generation calls during regeneration",
			Value:       regenerate.DefaultInterval,
			Sources:     cli.EnvVars("LIFESYNC_REGENERATE_INTERVAL"),
			Destination: &cfg.interval,
		},
	}
}

// loggingFlags returns flags for the process logger
func loggingFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("LIFESYNC_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       logging.FormatConsole,
			Sources:     cli.EnvVars("LIFESYNC_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
	}
}

// allFlags is the flag set of commands that need the whole stack
func allFlags(cfg *config) []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, storeFlags(cfg)...)
	flags = append(flags, llmFlags(cfg)...)
	flags = append(flags, cloudFlags(cfg)...)
	flags = append(flags, loggingFlags(cfg)...)
	return flags
}

func (cfg *config) Validate() error {
	errs := validation.Errors{
		"backend":    validation.Validate(cfg.backend, validation.Required, validation.In(backendSQLite, backendFirestore, backendMemory)),
		"log-format": validation.Validate(cfg.logFormat, validation.In(logging.FormatConsole, logging.FormatJSON)),
	}
	switch cfg.backend {
	case backendSQLite:
		errs["db-path"] = validation.Validate(cfg.dbPath, validation.Required)
	case backendFirestore:
		errs["project"] = validation.Validate(cfg.project, validation.Required)
		errs["database"] = validation.Validate(cfg.database, validation.Required)
	}

	if err := errs.Filter(); err != nil {
		return goerr.Wrap(err, "invalid configuration")
	}
	return nil
}

// setup validates the configuration and installs the process logger
func (cfg *config) setup(ctx context.Context) (context.Context, error) {
	if err := cfg.Validate(); err != nil {
		return ctx, err
	}

	logger := logging.New(cfg.logLevel, cfg.logFormat, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger), nil
}

// newRepository creates a new repository instance
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	switch cfg.backend {
	case backendMemory:
		return repository.NewMemory(), nil

	case backendFirestore:
		repo, err := repository.NewFirestore(ctx, cfg.project, cfg.database)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create firestore repository")
		}
		return repo, nil

	default:
		repo, err := repository.NewSQLite(cfg.dbPath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create sqlite repository")
		}
		return repo, nil
	}
}

// newGemini returns nil without an API key, which puts AI features offline
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiAPIKey == "" {
		logging.From(ctx).Debug("no Gemini API key, AI features run offline")
		return nil, nil
	}

	client, err := adapter.NewGemini(ctx, cfg.geminiAPIKey, cfg.geminiBaseURL,
		adapter.WithTextModel(cfg.textModel),
		adapter.WithImageModel(cfg.imageModel),
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (cfg *config) newImageGenerator(gemini adapter.Gemini) (*imagegen.Generator, error) {
	var opts []imagegen.Option
	if cfg.styleFile != "" {
		styles, err := imagegen.LoadStyleFile(cfg.styleFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, imagegen.WithStyles(styles))
	}
	return imagegen.New(gemini, opts...), nil
}

// newStorage fails without a bucket since only snapshot commands ask for it
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	if cfg.bucket == "" {
		return nil, goerr.Wrap(journal.ErrStorageNotConfigured, "--bucket is required")
	}

	storage, err := adapter.NewStorage(ctx, cfg.bucket, adapter.WithPrefix(cfg.bucketPrefix))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}

func (cfg *config) newBigQuery(ctx context.Context) (adapter.BigQuery, error) {
	if cfg.project == "" {
		return nil, goerr.Wrap(journal.ErrExportNotConfigured, "--project is required")
	}
	return adapter.NewBigQuery(ctx, cfg.project)
}

// app is the wired set of use cases a command works with
type app struct {
	repo       repository.Repository
	journal    *journal.UseCase
	regenerate *regenerate.UseCase
}

func (a *app) Close() {
	if err := a.repo.Close(); err != nil {
		logging.Default().Error("failed to close repository", "error", err)
	}
}

// newApp builds the use cases from the configuration. Callers must Close the app.
func (cfg *config) newApp(ctx context.Context, opts ...journal.Option) (*app, error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}

	a, err := cfg.wire(ctx, repo, opts...)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	return a, nil
}

func (cfg *config) wire(ctx context.Context, repo repository.Repository, extra ...journal.Option) (*app, error) {
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, err
	}

	images, err := cfg.newImageGenerator(gemini)
	if err != nil {
		return nil, err
	}

	pol, err := policy.Load(ctx, cfg.policyDir)
	if err != nil {
		return nil, err
	}

	interval := cfg.interval
	if interval <= 0 {
		interval = regenerate.DefaultInterval
	}

	opts := append([]journal.Option{journal.WithImageGenerator(images)}, extra...)
	return &app{
		repo:    repo,
		journal: journal.New(repo, gemini, opts...),
		regenerate: regenerate.New(repo, images,
			regenerate.WithPolicy(pol),
			regenerate.WithLimiter(regenerate.NewLimiter(interval)),
		),
	}, nil
}
