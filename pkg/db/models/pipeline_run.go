package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/tripdash/tripdash-backend/pkg/enums"
)

// PipelineRun records one execution of the trip ETL and its outcome.
type PipelineRun struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	Status          enums.PipelineRunStatus `gorm:"column:status;type:text;not null"`
	TriggeredBy     string                  `gorm:"column:triggered_by;type:text;not null"`
	RowsCleaned     int64                   `gorm:"column:rows_cleaned;not null"`
	DriverImputed   int64                   `gorm:"column:driver_ratings_imputed;not null"`
	CustomerImputed int64                   `gorm:"column:customer_ratings_imputed;not null"`
	RowsEnriched    int64                   `gorm:"column:rows_enriched;not null"`
	Stats           datatypes.JSON          `gorm:"column:stats"`
	Error           *string                 `gorm:"column:error;type:text"`
	StartedAt       time.Time               `gorm:"column:started_at;not null"`
	FinishedAt      *time.Time              `gorm:"column:finished_at"`
}

func (PipelineRun) TableName() string { return "pipeline_runs" }
