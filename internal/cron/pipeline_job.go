package cron

import (
	"context"
	"errors"

	"github.com/tripdash/tripdash-backend/internal/etl"
	"github.com/tripdash/tripdash-backend/pkg/logger"
)

type pipelineRunner interface {
	Name() string
	Run(ctx context.Context) (*etl.RunReport, error)
}

// PipelineJob schedules the trip ETL as a cron job.
type PipelineJob struct {
	runner pipelineRunner
	logg   *logger.Logger
}

// NewPipelineJob wraps an ETL pipeline so the cron service can run it.
func NewPipelineJob(runner pipelineRunner, logg *logger.Logger) (*PipelineJob, error) {
	if runner == nil {
		return nil, errors.New("pipeline runner required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &PipelineJob{runner: runner, logg: logg}, nil
}

func (j *PipelineJob) Name() string { return j.runner.Name() }

func (j *PipelineJob) Run(ctx context.Context) error {
	report, err := j.runner.Run(ctx)
	if err != nil {
		return err
	}
	if report != nil {
		ctx = j.logg.WithFields(ctx, map[string]any{
			"run_id":       report.RunID.String(),
			"rows_cleaned": cleanedRows(report),
		})
	}
	j.logg.Info(ctx, "pipeline run recorded")
	return nil
}

func cleanedRows(report *etl.RunReport) int64 {
	if report.Clean == nil {
		return 0
	}
	return report.Clean.Inserted
}
