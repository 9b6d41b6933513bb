package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/tripdash/tripdash-backend/internal/analytics/types"
	"github.com/tripdash/tripdash-backend/pkg/db/models"
	pkgerrors "github.com/tripdash/tripdash-backend/pkg/errors"
	"gorm.io/gorm"
)

const (
	kpiSelect = `
COUNT(*) AS total_bookings,
COALESCE(SUM(CASE WHEN NOT is_cancelled THEN 1 ELSE 0 END), 0) AS successful_bookings,
SUM(CASE WHEN NOT is_cancelled THEN booking_value END) AS total_revenue`

	vehicleSelect = `
vehicle_type,
COUNT(*) AS total_trips,
SUM(driver_rating) AS driver_sum,
COUNT(driver_rating) AS driver_count,
SUM(customer_rating) AS customer_sum,
COUNT(customer_rating) AS customer_count,
SUM(booking_value) AS revenue_sum,
COUNT(booking_value) AS revenue_count`

	weekdaySelect = `
day_name,
day_of_week,
COUNT(*) AS trip_count,
SUM(booking_value) AS revenue_sum,
COUNT(booking_value) AS revenue_count`
)

var hundred = decimal.NewFromInt(100)

// Service answers read-only dashboard queries over the enriched trip store.
type Service interface {
	KPIs(ctx context.Context, filters types.Filters) (*types.KPIs, error)
	CancellationReasons(ctx context.Context, filters types.Filters) ([]types.ReasonShare, error)
	PaymentMethods(ctx context.Context, filters types.Filters) ([]types.PaymentShare, error)
	VehicleBreakdown(ctx context.Context, filters types.Filters) ([]types.VehicleStats, error)
	PeakHours(ctx context.Context, filters types.Filters) ([]types.HourCount, error)
	WeekdayBreakdown(ctx context.Context, filters types.Filters) ([]types.WeekdayStats, error)
	VehicleTypes(ctx context.Context) ([]string, error)
}

type service struct {
	db *gorm.DB
}

// NewService builds a query service backed by the primary database.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database required")
	}
	return &service{db: db}, nil
}

func validateFilters(filters types.Filters) error {
	if filters.Start != nil && filters.End != nil && filters.End.Before(*filters.Start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	}
	return nil
}

func (s *service) scoped(ctx context.Context, filters types.Filters) (*gorm.DB, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Model(&models.EnrichedTrip{})
	if filters.Start != nil {
		q = q.Where("trip_timestamp >= ?", filters.Start.UTC())
	}
	if filters.End != nil {
		q = q.Where("trip_timestamp <= ?", filters.End.UTC())
	}
	if filters.VehicleType != "" {
		q = q.Where("vehicle_type = ?", filters.VehicleType)
	}
	return q, nil
}

func (s *service) KPIs(ctx context.Context, filters types.Filters) (*types.KPIs, error) {
	q, err := s.scoped(ctx, filters)
	if err != nil {
		return nil, err
	}
	var row struct {
		TotalBookings      int64
		SuccessfulBookings int64
		TotalRevenue       decimal.NullDecimal
	}
	if err := q.Select(kpiSelect).Scan(&row).Error; err != nil {
		return nil, fmt.Errorf("query kpis: %w", err)
	}
	return &types.KPIs{
		TotalBookings:      row.TotalBookings,
		SuccessfulBookings: row.SuccessfulBookings,
		TotalRevenue:       orZero(row.TotalRevenue),
		SuccessRate:        percentage(row.SuccessfulBookings, row.TotalBookings),
	}, nil
}

func (s *service) CancellationReasons(ctx context.Context, filters types.Filters) ([]types.ReasonShare, error) {
	q, err := s.scoped(ctx, filters)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Reason string
		Count  int64
	}
	err = q.Select("unified_cancellation_reason AS reason, COUNT(*) AS count").
		Where("is_cancelled = ?", true).
		Group("unified_cancellation_reason").
		Order("count DESC").Order("reason ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query cancellation reasons: %w", err)
	}

	var total int64
	for _, row := range rows {
		total += row.Count
	}
	out := make([]types.ReasonShare, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.ReasonShare{
			Reason:     row.Reason,
			Count:      row.Count,
			Percentage: percentage(row.Count, total),
		})
	}
	return out, nil
}

func (s *service) PaymentMethods(ctx context.Context, filters types.Filters) ([]types.PaymentShare, error) {
	q, err := s.scoped(ctx, filters)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		PaymentMethod *string
		Count         int64
	}
	err = q.Select("payment_method, COUNT(*) AS count").
		Group("payment_method").
		Order("count DESC").Order("payment_method ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query payment methods: %w", err)
	}

	var total int64
	for _, row := range rows {
		total += row.Count
	}
	out := make([]types.PaymentShare, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.PaymentShare{
			PaymentMethod: row.PaymentMethod,
			Count:         row.Count,
			Percentage:    percentage(row.Count, total),
		})
	}
	return out, nil
}

func (s *service) VehicleBreakdown(ctx context.Context, filters types.Filters) ([]types.VehicleStats, error) {
	q, err := s.scoped(ctx, filters)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		VehicleType   string
		TotalTrips    int64
		DriverSum     decimal.NullDecimal
		DriverCount   int64
		CustomerSum   decimal.NullDecimal
		CustomerCount int64
		RevenueSum    decimal.NullDecimal
		RevenueCount  int64
	}
	err = q.Select(vehicleSelect).
		Group("vehicle_type").
		Order("total_trips DESC").Order("vehicle_type ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query vehicle breakdown: %w", err)
	}

	out := make([]types.VehicleStats, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.VehicleStats{
			VehicleType:       row.VehicleType,
			TotalTrips:        row.TotalTrips,
			AvgDriverRating:   average(row.DriverSum, row.DriverCount),
			AvgCustomerRating: average(row.CustomerSum, row.CustomerCount),
			TotalRevenue:      orZero(row.RevenueSum),
			AvgBookingValue:   average(row.RevenueSum, row.RevenueCount),
		})
	}
	return out, nil
}

func (s *service) PeakHours(ctx context.Context, filters types.Filters) ([]types.HourCount, error) {
	q, err := s.scoped(ctx, filters)
	if err != nil {
		return nil, err
	}
	var out []types.HourCount
	err = q.Select("pickup_hour AS hour, COUNT(*) AS trip_count").
		Group("pickup_hour").
		Order("pickup_hour ASC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query peak hours: %w", err)
	}
	return out, nil
}

func (s *service) WeekdayBreakdown(ctx context.Context, filters types.Filters) ([]types.WeekdayStats, error) {
	q, err := s.scoped(ctx, filters)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		DayName      string
		DayOfWeek    int
		TripCount    int64
		RevenueSum   decimal.NullDecimal
		RevenueCount int64
	}
	err = q.Select(weekdaySelect).
		Group("day_name, day_of_week").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query weekday breakdown: %w", err)
	}

	// day_of_week counts from Sunday; the dashboard starts the week on Monday.
	sort.Slice(rows, func(i, j int) bool {
		return (rows[i].DayOfWeek+6)%7 < (rows[j].DayOfWeek+6)%7
	})
	out := make([]types.WeekdayStats, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.WeekdayStats{
			DayName:    row.DayName,
			TripCount:  row.TripCount,
			AvgRevenue: average(row.RevenueSum, row.RevenueCount),
		})
	}
	return out, nil
}

func (s *service) VehicleTypes(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.WithContext(ctx).Model(&models.EnrichedTrip{}).
		Distinct("vehicle_type").
		Order("vehicle_type ASC").
		Pluck("vehicle_type", &out).Error
	if err != nil {
		return nil, fmt.Errorf("query vehicle types: %w", err)
	}
	return out, nil
}

func percentage(part, total int64) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(total)).Round(2)
}

func average(sum decimal.NullDecimal, count int64) decimal.Decimal {
	if !sum.Valid || count == 0 {
		return decimal.Zero
	}
	return sum.Decimal.Div(decimal.NewFromInt(count)).Round(2)
}

func orZero(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}
