package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tripdash/tripdash-backend/internal/cron"
	"github.com/tripdash/tripdash-backend/internal/etl"
	"github.com/tripdash/tripdash-backend/pkg/config"
	"github.com/tripdash/tripdash-backend/pkg/db"
	"github.com/tripdash/tripdash-backend/pkg/logger"
	"github.com/tripdash/tripdash-backend/pkg/metrics"
	"github.com/tripdash/tripdash-backend/pkg/migrate"
	"github.com/tripdash/tripdash-backend/pkg/redis"
)

// etl runs exactly one locked pipeline cycle and exits non-zero when the
// run fails or another run holds the lock.
func main() {
	triggeredBy := flag.String("triggered-by", "manual", "label recorded on the pipeline run")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "etl"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "etl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	os.Exit(run(cfg, logg, *triggeredBy))
}

func run(cfg *config.Config, logg *logger.Logger, triggeredBy string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"triggered_by": triggeredBy,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		return 1
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		return 1
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		return 1
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pipeline, err := etl.NewPipeline(etl.PipelineParams{
		DB:      dbClient,
		Logger:  logg,
		Metrics: metrics.NewPipelineMetrics(prometheus.DefaultRegisterer),
		Options: etl.OptionsFromConfig(cfg.Pipeline, triggeredBy),
	})
	if err != nil {
		logg.Error(ctx, "failed to create pipeline", err)
		return 1
	}
	job, err := cron.NewPipelineJob(pipeline, logg)
	if err != nil {
		logg.Error(ctx, "failed to create pipeline job", err)
		return 1
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(etl.JobName), cfg.Pipeline.LockTTL)
	if err != nil {
		logg.Error(ctx, "failed to create pipeline lock", err)
		return 1
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		return 1
	}

	logPreviousRun(ctx, logg, etl.NewRepository(dbClient.DB()))

	if err := service.RunOnce(ctx); err != nil {
		logg.Error(ctx, "pipeline run failed", err)
		return 1
	}
	logg.Info(ctx, "pipeline run succeeded")
	return 0
}

func logPreviousRun(ctx context.Context, logg *logger.Logger, repo *etl.Repository) {
	runs, err := repo.RecentRuns(ctx, 1)
	if err != nil {
		logg.Warn(ctx, "could not read previous pipeline run")
		return
	}
	if len(runs) == 0 {
		logg.Info(ctx, "no previous pipeline run recorded")
		return
	}
	prev := runs[0]
	fields := map[string]any{
		"previous_run_id":     prev.ID.String(),
		"previous_status":     string(prev.Status),
		"previous_started_at": prev.StartedAt,
	}
	if prev.Error != nil {
		fields["previous_error"] = *prev.Error
	}
	logg.Info(logg.WithFields(ctx, fields), "previous pipeline run")
}
