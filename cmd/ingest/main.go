package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tripdash/tripdash-backend/internal/ingest"
	"github.com/tripdash/tripdash-backend/pkg/config"
	"github.com/tripdash/tripdash-backend/pkg/db"
	"github.com/tripdash/tripdash-backend/pkg/logger"
	"github.com/tripdash/tripdash-backend/pkg/migrate"
)

func main() {
	source := flag.String("source", "", "CSV file to load into raw_trips (defaults to TRIPDASH_INGEST_SOURCE_PATH)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "ingest"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "ingest",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	path := *source
	if path == "" {
		path = cfg.Ingest.SourcePath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "source": path})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	loader, err := ingest.NewLoader(ingest.LoaderParams{
		DB:         dbClient,
		Logger:     logg,
		NullMarker: cfg.Ingest.NullMarker,
		BatchSize:  cfg.Ingest.BatchSize,
	})
	if err != nil {
		logg.Error(ctx, "failed to create loader", err)
		os.Exit(1)
	}

	result, err := loader.LoadFile(ctx, path)
	if err != nil {
		logg.Error(ctx, "ingest failed", err)
		dbClient.Close()
		os.Exit(1)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"rows":            result.Rows,
		"ignored_columns": result.IgnoredColumns,
	}), "ingest complete")
}
