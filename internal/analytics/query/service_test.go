package query

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripdash/tripdash-backend/internal/analytics/types"
	"github.com/tripdash/tripdash-backend/internal/etl"
	"github.com/tripdash/tripdash-backend/pkg/db/dbtest"
	"github.com/tripdash/tripdash-backend/pkg/db/models"
	pkgerrors "github.com/tripdash/tripdash-backend/pkg/errors"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

type tripRow struct {
	id       string
	vehicle  string
	status   string
	reason   string
	payment  *string
	fare     string
	at       time.Time
	driver   *float64
	customer *float64
}

func seedTrips(t *testing.T, db *gorm.DB, rows ...tripRow) {
	t.Helper()
	for _, sp := range rows {
		fields := etl.DeriveTimeFields(sp.at)
		reason := sp.reason
		if reason == "" {
			reason = etl.ReasonNotSpecified
		}
		trip := models.EnrichedTrip{TripAttributes: models.TripAttributes{
			BookingID:                 sp.id,
			VehicleType:               sp.vehicle,
			BookingStatus:             sp.status,
			BookingValue:              dec(sp.fare),
			PaymentMethod:             sp.payment,
			TripTimestamp:             sp.at,
			PickupHour:                fields.PickupHour,
			DayOfWeek:                 fields.DayOfWeek,
			DayName:                   fields.DayName,
			Month:                     fields.Month,
			Year:                      fields.Year,
			IsWeekend:                 fields.IsWeekend,
			UnifiedCancellationReason: reason,
			DriverRating:              sp.driver,
			CustomerRating:            sp.customer,
			IsCancelled:               sp.status != "Completed",
		}}
		require.NoError(t, db.Create(&trip).Error)
	}
}

// 2024-03-11 is a Monday.
var monday = time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)

func fixture(t *testing.T) Service {
	t.Helper()
	db := dbtest.Open(t)
	seedTrips(t, db,
		tripRow{id: "T1", vehicle: "Auto", status: "Completed", payment: strPtr("UPI"), fare: "100", at: monday, driver: floatPtr(4.0), customer: floatPtr(5.0)},
		tripRow{id: "T2", vehicle: "Auto", status: "Completed", payment: strPtr("UPI"), fare: "200", at: monday.Add(time.Hour), driver: floatPtr(4.5), customer: floatPtr(4.0)},
		tripRow{id: "T3", vehicle: "Auto", status: "Cancelled by Driver", reason: "Vehicle breakdown", payment: strPtr("Cash"), fare: "50", at: monday.AddDate(0, 0, 1)},
		tripRow{id: "T4", vehicle: "Bike", status: "Completed", payment: strPtr("UPI"), fare: "80", at: monday.AddDate(0, 0, 6), driver: floatPtr(3.0), customer: floatPtr(3.5)},
		tripRow{id: "T5", vehicle: "Bike", status: "No Driver Found", at: monday.AddDate(0, 0, 6).Add(time.Hour), fare: "30"},
		tripRow{id: "T6", vehicle: "Sedan", status: "Cancelled by Customer", reason: "Change of plans", payment: strPtr("Card"), fare: "300", at: monday.AddDate(0, 0, 2)},
	)
	svc, err := NewService(db)
	require.NoError(t, err)
	return svc
}

func TestKPIs(t *testing.T) {
	svc := fixture(t)
	ctx := context.Background()

	kpis, err := svc.KPIs(ctx, types.Filters{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), kpis.TotalBookings)
	assert.Equal(t, int64(3), kpis.SuccessfulBookings)
	assert.True(t, kpis.TotalRevenue.Equal(decimal.NewFromInt(380)), kpis.TotalRevenue.String())
	assert.True(t, kpis.SuccessRate.Equal(decimal.NewFromInt(50)), kpis.SuccessRate.String())

	autos, err := svc.KPIs(ctx, types.Filters{VehicleType: "Auto"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), autos.TotalBookings)
	assert.True(t, autos.SuccessRate.Equal(decimal.RequireFromString("66.67")), autos.SuccessRate.String())
}

func TestKPIsEmptyWindow(t *testing.T) {
	svc := fixture(t)
	start := monday.AddDate(1, 0, 0)

	kpis, err := svc.KPIs(context.Background(), types.Filters{Start: &start})
	require.NoError(t, err)
	assert.Zero(t, kpis.TotalBookings)
	assert.True(t, kpis.TotalRevenue.IsZero())
	assert.True(t, kpis.SuccessRate.IsZero())
}

func TestCancellationReasons(t *testing.T) {
	svc := fixture(t)

	reasons, err := svc.CancellationReasons(context.Background(), types.Filters{})
	require.NoError(t, err)
	require.Len(t, reasons, 3)

	byReason := map[string]types.ReasonShare{}
	for _, r := range reasons {
		byReason[r.Reason] = r
	}
	assert.Equal(t, int64(1), byReason["Vehicle breakdown"].Count)
	assert.True(t, byReason["Change of plans"].Percentage.Equal(decimal.RequireFromString("33.33")))
	assert.Contains(t, byReason, etl.ReasonNotSpecified)
}

func TestPaymentMethods(t *testing.T) {
	svc := fixture(t)

	methods, err := svc.PaymentMethods(context.Background(), types.Filters{})
	require.NoError(t, err)
	require.NotEmpty(t, methods)
	require.NotNil(t, methods[0].PaymentMethod)
	assert.Equal(t, "UPI", *methods[0].PaymentMethod)
	assert.Equal(t, int64(3), methods[0].Count)
	assert.True(t, methods[0].Percentage.Equal(decimal.NewFromInt(50)))

	var total int64
	for _, m := range methods {
		total += m.Count
	}
	assert.Equal(t, int64(6), total)
}

func TestVehicleBreakdown(t *testing.T) {
	svc := fixture(t)

	stats, err := svc.VehicleBreakdown(context.Background(), types.Filters{})
	require.NoError(t, err)
	require.Len(t, stats, 3)

	auto := stats[0]
	assert.Equal(t, "Auto", auto.VehicleType)
	assert.Equal(t, int64(3), auto.TotalTrips)
	assert.True(t, auto.AvgDriverRating.Equal(decimal.RequireFromString("4.25")), auto.AvgDriverRating.String())
	assert.True(t, auto.AvgCustomerRating.Equal(decimal.RequireFromString("4.5")), auto.AvgCustomerRating.String())
	assert.True(t, auto.TotalRevenue.Equal(decimal.NewFromInt(350)))
	assert.True(t, auto.AvgBookingValue.Equal(decimal.RequireFromString("116.67")), auto.AvgBookingValue.String())

	sedan := stats[2]
	assert.Equal(t, "Sedan", sedan.VehicleType)
	assert.True(t, sedan.AvgDriverRating.IsZero())
}

func TestPeakHours(t *testing.T) {
	svc := fixture(t)

	hours, err := svc.PeakHours(context.Background(), types.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []types.HourCount{{Hour: 8, TripCount: 4}, {Hour: 9, TripCount: 2}}, hours)
}

func TestWeekdayBreakdownStartsOnMonday(t *testing.T) {
	svc := fixture(t)

	days, err := svc.WeekdayBreakdown(context.Background(), types.Filters{})
	require.NoError(t, err)

	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, d.DayName)
	}
	assert.Equal(t, []string{"Monday", "Tuesday", "Wednesday", "Sunday"}, names)
	assert.Equal(t, int64(2), days[0].TripCount)
	assert.True(t, days[0].AvgRevenue.Equal(decimal.NewFromInt(150)))
}

func TestDateRangeFilter(t *testing.T) {
	svc := fixture(t)
	start := monday
	end := monday.Add(2 * time.Hour)

	hours, err := svc.PeakHours(context.Background(), types.Filters{Start: &start, End: &end})
	require.NoError(t, err)
	assert.Equal(t, []types.HourCount{{Hour: 8, TripCount: 1}, {Hour: 9, TripCount: 1}}, hours)

	_, err = svc.KPIs(context.Background(), types.Filters{Start: &end, End: &start})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestVehicleTypes(t *testing.T) {
	svc := fixture(t)

	vehicles, err := svc.VehicleTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Auto", "Bike", "Sedan"}, vehicles)
}

func TestNewServiceRequiresDB(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}
