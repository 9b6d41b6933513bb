package trips

import (
	"context"
	"errors"
	"strings"

	"github.com/tripdash/tripdash-backend/internal/repo"
	"github.com/tripdash/tripdash-backend/pkg/db/models"
	"github.com/tripdash/tripdash-backend/pkg/pagination"
	"gorm.io/gorm"
)

type repository struct {
	repo.Base
}

// NewRepository returns a gorm backed Repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return NewRepository(tx)
}

func (r *repository) Create(ctx context.Context, trip *models.EnrichedTrip) error {
	return r.DB(ctx).Create(trip).Error
}

func (r *repository) FindByID(ctx context.Context, bookingID string) (*models.EnrichedTrip, error) {
	var trip models.EnrichedTrip
	err := r.DB(ctx).Where("booking_id = ?", bookingID).First(&trip).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trip, nil
}

// List pages trips newest first by (trip_timestamp, booking_id).
func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.EnrichedTrip, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return nil, "", err
	}

	query := r.DB(ctx).Model(&models.EnrichedTrip{})
	if filters.Start != nil {
		query = query.Where("trip_timestamp >= ?", filters.Start.UTC())
	}
	if filters.End != nil {
		query = query.Where("trip_timestamp <= ?", filters.End.UTC())
	}
	if filters.VehicleType != "" {
		query = query.Where("vehicle_type = ?", filters.VehicleType)
	}
	if filters.BookingStatus != "" {
		query = query.Where("booking_status = ?", filters.BookingStatus)
	}
	if cursor != nil {
		at := cursor.At.UTC()
		query = query.Where("(trip_timestamp < ?) OR (trip_timestamp = ? AND booking_id < ?)", at, at, cursor.ID)
	}

	var rows []models.EnrichedTrip
	err = query.Order("trip_timestamp DESC").Order("booking_id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{At: last.TripTimestamp, ID: last.BookingID})
	}
	return rows, next, nil
}

func (r *repository) UpdateStatus(ctx context.Context, bookingID, status string, cancelled bool) (int64, error) {
	res := r.DB(ctx).Model(&models.EnrichedTrip{}).
		Where("booking_id = ?", bookingID).
		Updates(map[string]any{"booking_status": status, "is_cancelled": cancelled})
	return res.RowsAffected, res.Error
}

func (r *repository) Delete(ctx context.Context, bookingID string) (int64, error) {
	res := r.DB(ctx).Where("booking_id = ?", bookingID).Delete(&models.EnrichedTrip{})
	return res.RowsAffected, res.Error
}
