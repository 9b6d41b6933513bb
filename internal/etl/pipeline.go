package etl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tripdash/tripdash-backend/pkg/config"
	"github.com/tripdash/tripdash-backend/pkg/db/models"
	"github.com/tripdash/tripdash-backend/pkg/enums"
	pkgerrors "github.com/tripdash/tripdash-backend/pkg/errors"
	"github.com/tripdash/tripdash-backend/pkg/logger"
	"github.com/tripdash/tripdash-backend/pkg/metrics"
	"go.uber.org/multierr"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobName identifies the trip pipeline in schedulers, locks, and metrics.
const JobName = "trip-etl"

type txRunner interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Options configure a pipeline run.
type Options struct {
	BatchSize     int
	DefaultRating float64
	Timeout       time.Duration
	TriggeredBy   string
}

// OptionsFromConfig maps the pipeline config section onto Options.
func OptionsFromConfig(cfg config.PipelineConfig, triggeredBy string) Options {
	return Options{
		BatchSize:     cfg.BatchSize,
		DefaultRating: cfg.DefaultRating,
		Timeout:       cfg.Timeout,
		TriggeredBy:   triggeredBy,
	}
}

// PipelineParams wire a Pipeline.
type PipelineParams struct {
	DB      txRunner
	Logger  *logger.Logger
	Metrics *metrics.PipelineMetrics
	Options Options
	Now     func() time.Time
}

// Pipeline sequences the clean, impute, and enrich stages.
type Pipeline struct {
	db      txRunner
	logg    *logger.Logger
	metrics *metrics.PipelineMetrics
	opts    Options
	now     func() time.Time
}

// RunReport describes one pipeline run.
type RunReport struct {
	RunID       uuid.UUID               `json:"run_id"`
	Status      enums.PipelineRunStatus `json:"status"`
	TriggeredBy string                  `json:"triggered_by"`
	StartedAt   time.Time               `json:"started_at"`
	FinishedAt  time.Time               `json:"finished_at"`
	FailedStage enums.PipelineStage     `json:"failed_stage,omitempty"`
	DurationsMS map[string]int64        `json:"durations_ms"`
	Clean       *CleanResult            `json:"clean,omitempty"`
	Impute      *ImputeResult           `json:"impute,omitempty"`
	Enrich      *EnrichResult           `json:"enrich,omitempty"`
}

// NewPipeline validates params and builds a Pipeline.
func NewPipeline(params PipelineParams) (*Pipeline, error) {
	if params.DB == nil {
		return nil, errors.New("db required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	opts := params.Options
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.DefaultRating == 0 {
		opts.DefaultRating = DefaultRating
	}
	if opts.DefaultRating < 0 || opts.DefaultRating > maxRating {
		return nil, fmt.Errorf("default rating %v outside [0,%d]", opts.DefaultRating, maxRating)
	}
	if opts.TriggeredBy == "" {
		opts.TriggeredBy = "manual"
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Pipeline{
		db:      params.DB,
		logg:    params.Logger,
		metrics: params.Metrics,
		opts:    opts,
		now:     now,
	}, nil
}

// Name implements the scheduler job naming.
func (p *Pipeline) Name() string { return JobName }

// Run executes clean and impute in one transaction and enrich in a second.
// A failing stage rolls back its transaction and fails the run; the run is
// recorded in pipeline_runs either way.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	report := &RunReport{
		RunID:       uuid.New(),
		Status:      enums.PipelineRunStatusRunning,
		TriggeredBy: p.opts.TriggeredBy,
		StartedAt:   p.now(),
		DurationsMS: map[string]int64{},
	}
	ctx = p.logg.WithRunID(ctx, report.RunID.String())

	run := &models.PipelineRun{
		ID:          report.RunID,
		Status:      report.Status,
		TriggeredBy: report.TriggeredBy,
		StartedAt:   report.StartedAt,
	}
	if err := NewRepository(p.db.DB()).CreateRun(ctx, run); err != nil {
		return report, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record pipeline run start")
	}
	p.logg.Info(ctx, "pipeline run started")

	runCtx := ctx
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	runErr := p.execute(runCtx, report)
	report.FinishedAt = p.now()
	report.Status = enums.PipelineRunStatusSucceeded
	if runErr != nil {
		report.Status = enums.PipelineRunStatusFailed
	}

	finishErr := p.finish(context.WithoutCancel(ctx), run, report, runErr)
	p.metrics.IncRun(report.Status.String())

	logCtx := p.logg.WithFields(ctx, map[string]any{
		"status":      report.Status,
		"duration_ms": report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	})
	if runErr != nil {
		logCtx = p.logg.WithField(logCtx, "error_dump", pkgerrors.Dump(runErr))
		p.logg.Error(logCtx, "pipeline run failed", runErr)
	} else {
		p.logg.Info(logCtx, "pipeline run completed")
	}
	if finishErr != nil {
		p.logg.Error(logCtx, "failed to record pipeline run outcome", finishErr)
	}

	return report, multierr.Append(runErr, finishErr)
}

func (p *Pipeline) execute(ctx context.Context, report *RunReport) error {
	err := p.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		err := p.stage(ctx, report, enums.PipelineStageClean, func(ctx context.Context) error {
			res, err := Clean(ctx, repo, CleanOptions{BatchSize: p.opts.BatchSize})
			report.Clean = res
			return err
		})
		if err != nil {
			return err
		}
		return p.stage(ctx, report, enums.PipelineStageImpute, func(ctx context.Context) error {
			res, err := Impute(ctx, repo, ImputeOptions{DefaultRating: p.opts.DefaultRating})
			report.Impute = res
			return err
		})
	})
	if err != nil {
		report.Clean, report.Impute = nil, nil
		return fmt.Errorf("clean and impute: %w", err)
	}
	p.metrics.AddRows(enums.PipelineStageClean.String(), report.Clean.Inserted)
	p.metrics.AddRows(enums.PipelineStageImpute.String(), report.Impute.DriverImputed+report.Impute.CustomerImputed)

	err = p.db.WithTx(ctx, func(tx *gorm.DB) error {
		return p.stage(ctx, report, enums.PipelineStageEnrich, func(ctx context.Context) error {
			res, err := Enrich(ctx, NewRepository(tx), EnrichOptions{BatchSize: p.opts.BatchSize})
			report.Enrich = res
			return err
		})
	})
	if err != nil {
		report.Enrich = nil
		return fmt.Errorf("enrich: %w", err)
	}
	p.metrics.AddRows(enums.PipelineStageEnrich.String(), report.Enrich.Inserted)
	return nil
}

func (p *Pipeline) stage(ctx context.Context, report *RunReport, stage enums.PipelineStage, fn func(context.Context) error) error {
	ctx = p.logg.WithStage(ctx, stage.String())
	p.logg.Info(ctx, "stage start")

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	report.DurationsMS[stage.String()] = elapsed.Milliseconds()
	p.metrics.ObserveStage(stage.String(), elapsed)

	ctx = p.logg.WithField(ctx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		report.FailedStage = stage
		p.logg.Warn(ctx, "stage failed")
		return err
	}
	p.logg.Info(ctx, "stage completed")
	return nil
}

func (p *Pipeline) finish(ctx context.Context, run *models.PipelineRun, report *RunReport, runErr error) error {
	stats, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode run stats: %w", err)
	}

	finishedAt := report.FinishedAt
	run.Status = report.Status
	run.FinishedAt = &finishedAt
	run.Stats = datatypes.JSON(stats)
	if report.Clean != nil {
		run.RowsCleaned = report.Clean.Inserted
	}
	if report.Impute != nil {
		run.DriverImputed = report.Impute.DriverImputed
		run.CustomerImputed = report.Impute.CustomerImputed
	}
	if report.Enrich != nil {
		run.RowsEnriched = report.Enrich.Inserted
	}
	if runErr != nil {
		msg := runErr.Error()
		run.Error = &msg
	}

	if err := NewRepository(p.db.DB()).FinishRun(ctx, run); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record pipeline run outcome")
	}
	return nil
}
