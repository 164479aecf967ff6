package cmd

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/geokeeper/internal/core/api"
	"github.com/solatis/geokeeper/internal/core/config"
	"github.com/solatis/geokeeper/internal/core/db"
	"github.com/solatis/geokeeper/internal/geodesy"
	"github.com/solatis/geokeeper/internal/matcher"
	"github.com/solatis/geokeeper/internal/paths"
	"github.com/solatis/geokeeper/internal/refcat"
)

// app is the wired service shared by serve and the one-shot commands.
type app struct {
	cfg     *config.ServiceConfig
	db      *sqlx.DB
	store   *refcat.Store
	service *api.Service
}

func loadConfig() (*config.ServiceConfig, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func databaseURL(cfg *config.ServiceConfig) string {
	if dbURL != "" {
		return dbURL
	}
	return cfg.DatabaseURL()
}

// openDatabase opens the catalog database and applies pending migrations.
func openDatabase(ctx context.Context, cfg *config.ServiceConfig) (*sqlx.DB, *db.Queries, error) {
	url := databaseURL(cfg)
	database, err := db.Open(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database %s: %w", config.RedactURL(url), err)
	}

	if _, err := db.MigrateUp(ctx, database, logger); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return database, queries, nil
}

// openApp wires storage, engine, path components and the service.
// The caller closes app.db.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	policy, err := paths.ParseAccuracyPolicy(cfg.AccuracyPolicy)
	if err != nil {
		return nil, err
	}

	database, queries, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := refcat.NewStore(queries, logger)

	engine, err := geodesy.NewBuiltin(ctx, store, logger)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to load reference catalog: %w", err)
	}

	builder := paths.NewBuilder(engine, paths.NewCache(), logger)
	composer := paths.NewComposer(builder, paths.ComposerOptions{
		Policy:         policy,
		MaxWaypoints:   cfg.MaxWaypoints,
		MaxBatchPoints: cfg.MaxBatchPoints,
	}, logger)
	m := matcher.New(engine, cfg.MatchLimit, logger)

	service, err := api.NewService(builder, composer, m, store, cfg, logger)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	return &app{cfg: cfg, db: database, store: store, service: service}, nil
}
