package main

import (
	"context"
	"log"

	"statflow/adapters/corr"
	"statflow/adapters/ingest"
	"statflow/adapters/postgres"
	"statflow/adapters/profile"
	"statflow/internal"
	"statflow/internal/compute"
	"statflow/internal/config"
	"statflow/internal/errors"
	"statflow/internal/migration"
	"statflow/internal/ops"
	"statflow/internal/pipeline"
	"statflow/ui"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// initDatabase initializes the PostgreSQL database connection
func initDatabase(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewDefaultLogger()

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	backend := compute.NewService(logger)
	if err := backend.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize compute service: %v", err)
	}

	pipe := pipeline.New(
		pipeline.DefaultConfig(),
		ingest.NewController(cfg.Ingest),
		profile.NewProfiler(cfg.Profile),
		corr.NewCalculator(),
		logger,
	)
	repo := postgres.NewRunRepository(db)

	if cfg.Ops.Enabled {
		opsServer := ops.NewServer(cfg.Ops.Port, logger)
		go func() {
			if err := opsServer.ListenAndServe(); err != nil {
				logger.Error("[Ops] listener stopped: %v", err)
			}
		}()
	}

	server := ui.NewServer(cfg, pipe, repo, backend, logger)
	if err := server.Run(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
