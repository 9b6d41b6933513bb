package etl

import (
	"context"
	"fmt"

	"github.com/tripdash/tripdash-backend/internal/repo"
	"github.com/tripdash/tripdash-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository reads and writes the trip stores for one pipeline transaction.
type Repository struct {
	repo.Base
}

// NewRepository binds a repository to db, usually an open transaction.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// EachRawBatch streams raw rows in load order.
func (r *Repository) EachRawBatch(ctx context.Context, size int, fn func([]models.RawTrip) error) error {
	var batch []models.RawTrip
	res := r.DB(ctx).Model(&models.RawTrip{}).FindInBatches(&batch, size, func(_ *gorm.DB, _ int) error {
		return fn(batch)
	})
	return res.Error
}

// InsertCleaned inserts rows whose booking id is not yet cleaned and reports
// how many were written.
func (r *Repository) InsertCleaned(ctx context.Context, rows []models.CleanedTrip) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	return res.RowsAffected, res.Error
}

// CountCleaned returns the size of the cleaned store.
func (r *Repository) CountCleaned(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.CleanedTrip{}).Count(&n).Error
	return n, err
}

// RatingStats aggregates the originally present ratings of bookings with
// the given status, per vehicle type.
func (r *Repository) RatingStats(ctx context.Context, status string) ([]CategoryRatingStats, error) {
	var stats []CategoryRatingStats
	err := r.DB(ctx).Raw(`
SELECT
  vehicle_type,
  SUM(CASE WHEN driver_rating IS NOT NULL AND driver_rating_imputed = ? THEN driver_rating END) AS driver_sum,
  COUNT(CASE WHEN driver_rating IS NOT NULL AND driver_rating_imputed = ? THEN 1 END) AS driver_count,
  SUM(CASE WHEN customer_rating IS NOT NULL AND customer_rating_imputed = ? THEN customer_rating END) AS customer_sum,
  COUNT(CASE WHEN customer_rating IS NOT NULL AND customer_rating_imputed = ? THEN 1 END) AS customer_count
FROM cleaned_trips
WHERE booking_status = ?
GROUP BY vehicle_type
ORDER BY vehicle_type`, false, false, false, false, status).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// FillDriverRating sets value on every null driver rating of the category
// and status, flagging each as imputed.
func (r *Repository) FillDriverRating(ctx context.Context, status, category string, value float64) (int64, error) {
	return r.fillRating(ctx, "driver_rating", "driver_rating_imputed", status, category, value)
}

// FillCustomerRating is FillDriverRating for customer ratings.
func (r *Repository) FillCustomerRating(ctx context.Context, status, category string, value float64) (int64, error) {
	return r.fillRating(ctx, "customer_rating", "customer_rating_imputed", status, category, value)
}

func (r *Repository) fillRating(ctx context.Context, column, flag, status, category string, value float64) (int64, error) {
	res := r.DB(ctx).Model(&models.CleanedTrip{}).
		Where("booking_status = ? AND vehicle_type = ?", status, category).
		Where(fmt.Sprintf("%s IS NULL", column)).
		Updates(map[string]any{column: value, flag: true})
	return res.RowsAffected, res.Error
}

// ClearEnriched empties the enriched store. On Postgres this is a
// transactional TRUNCATE; readers block on its lock until commit.
func (r *Repository) ClearEnriched(ctx context.Context) error {
	stmt := "DELETE FROM enriched_trips"
	if r.Dialect() == "postgres" {
		stmt = "TRUNCATE TABLE enriched_trips"
	}
	return r.DB(ctx).Exec(stmt).Error
}

// EachCleanedBatch streams cleaned rows ordered by booking id.
func (r *Repository) EachCleanedBatch(ctx context.Context, size int, fn func([]models.CleanedTrip) error) error {
	var batch []models.CleanedTrip
	res := r.DB(ctx).Model(&models.CleanedTrip{}).FindInBatches(&batch, size, func(_ *gorm.DB, _ int) error {
		return fn(batch)
	})
	return res.Error
}

// InsertEnriched inserts rows, skipping booking ids already present.
func (r *Repository) InsertEnriched(ctx context.Context, rows []models.EnrichedTrip) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	return res.RowsAffected, res.Error
}

// CountEnriched returns the size of the enriched store.
func (r *Repository) CountEnriched(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.EnrichedTrip{}).Count(&n).Error
	return n, err
}

// CreateRun records the start of a pipeline run.
func (r *Repository) CreateRun(ctx context.Context, run *models.PipelineRun) error {
	return r.DB(ctx).Create(run).Error
}

// FinishRun persists the terminal state of run.
func (r *Repository) FinishRun(ctx context.Context, run *models.PipelineRun) error {
	return r.DB(ctx).Save(run).Error
}

// RecentRuns lists the latest pipeline runs, newest first.
func (r *Repository) RecentRuns(ctx context.Context, limit int) ([]models.PipelineRun, error) {
	if limit <= 0 {
		limit = 10
	}
	var runs []models.PipelineRun
	err := r.DB(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}
