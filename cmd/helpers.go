package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Lumos-Labs-HQ/ledgerflow/internal/analytics"
	"github.com/Lumos-Labs-HQ/ledgerflow/internal/coercer"
	"github.com/Lumos-Labs-HQ/ledgerflow/internal/config"
	"github.com/Lumos-Labs-HQ/ledgerflow/internal/entity"
	"github.com/Lumos-Labs-HQ/ledgerflow/internal/extract"
	"github.com/Lumos-Labs-HQ/ledgerflow/internal/pipeline"
	"github.com/Lumos-Labs-HQ/ledgerflow/internal/store"
	"github.com/Lumos-Labs-HQ/ledgerflow/internal/upsert"
	"github.com/Lumos-Labs-HQ/ledgerflow/internal/validator"
)

// loadConfig loads, validates and returns the runtime config together with
// the process logger built from it.
func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, cfg.NewLogger(), nil
}

// connectStore opens the database connection from config.
func connectStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*store.Postgres, error) {
	dbURL, err := cfg.GetDatabaseURL()
	if err != nil {
		return nil, err
	}
	return store.Connect(ctx, dbURL, log)
}

// buildOrchestrator wires a full pipeline around an open store connection.
func buildOrchestrator(ctx context.Context, cfg *config.Config, pg *store.Postgres, log *logrus.Logger) (*pipeline.Orchestrator, error) {
	registry, err := entity.NewDefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to build entity registry: %w", err)
	}

	s3, err := extract.NewS3Client(ctx, extract.S3Config{
		Region:    cfg.Source.Region,
		Bucket:    cfg.Source.Bucket,
		Endpoint:  cfg.Source.Endpoint,
		PathStyle: cfg.Source.PathStyle,
	}, log)
	if err != nil {
		return nil, err
	}

	return pipeline.New(
		registry,
		extract.New(s3, cfg.Source.Objects, log),
		validator.New(cfg.Pipeline.Tolerance, log),
		coercer.New(log),
		upsert.NewEngine(pg, log),
		pg,
		analytics.NewReporter(pg.Pool(), log),
		log,
	), nil
}
