package trips

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripdash/tripdash-backend/pkg/db/dbtest"
	pkgerrors "github.com/tripdash/tripdash-backend/pkg/errors"
	"github.com/tripdash/tripdash-backend/pkg/pagination"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newTestService(t *testing.T) *service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	return svc.(*service)
}

func validInput(id string) CreateTripInput {
	return CreateTripInput{
		BookingID:     id,
		VehicleType:   "Auto",
		BookingValue:  decPtr("250"),
		RideDistance:  decPtr("10"),
		PaymentMethod: strPtr("UPI"),
		TripTimestamp: time.Date(2024, 3, 9, 18, 45, 0, 0, time.UTC),
	}
}

func TestCreateDerivesFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	trip, err := svc.Create(ctx, validInput("CNR0000001"))
	require.NoError(t, err)

	assert.Equal(t, "Completed", trip.BookingStatus)
	assert.False(t, trip.IsCancelled)
	assert.Equal(t, 18, trip.PickupHour)
	assert.Equal(t, "Saturday", trip.DayName)
	assert.True(t, trip.IsWeekend)
	assert.Equal(t, "Reason Not Specified", trip.UnifiedCancellationReason)
	require.NotNil(t, trip.RevenuePerKM)
	assert.True(t, trip.RevenuePerKM.Equal(decimal.RequireFromString("25")))
	assert.False(t, trip.DriverRatingImputed)
	assert.False(t, trip.CustomerRatingImputed)

	stored, err := svc.Get(ctx, "CNR0000001")
	require.NoError(t, err)
	assert.Equal(t, "Auto", stored.VehicleType)
	require.NotNil(t, stored.RevenuePerKM)
	assert.True(t, stored.RevenuePerKM.Equal(decimal.RequireFromString("25")))
}

func TestCreateCancelledKeepsReason(t *testing.T) {
	svc := newTestService(t)
	in := validInput("CNR0000002")
	in.BookingStatus = "Cancelled by Driver"
	in.CancellationReason = strPtr("  Vehicle breakdown ")
	in.RideDistance = decPtr("0")

	trip, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, trip.IsCancelled)
	assert.Equal(t, "Vehicle breakdown", trip.UnifiedCancellationReason)
	assert.Nil(t, trip.RevenuePerKM)
}

func TestCreateGeneratesBookingID(t *testing.T) {
	svc := newTestService(t)
	in := validInput("")

	trip, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Regexp(t, `^CNR\d{7}$`, trip.BookingID)
}

func TestCreateRetriesGeneratedIDCollision(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, validInput("CNR0000007"))
	require.NoError(t, err)

	ids := []string{"CNR0000007", "CNR0000008"}
	calls := 0
	svc.newID = func() string {
		id := ids[calls]
		calls++
		return id
	}

	trip, err := svc.Create(ctx, validInput(""))
	require.NoError(t, err)
	assert.Equal(t, "CNR0000008", trip.BookingID)
	assert.Equal(t, 2, calls)
}

func TestCreateDuplicateIsConflict(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, validInput("CNR0000003"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, validInput("CNR0000003"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateTripInput)
		field  string
	}{
		{"missing vehicle", func(in *CreateTripInput) { in.VehicleType = "" }, "vehicle_type"},
		{"rating above range", func(in *CreateTripInput) { in.DriverRating = floatPtr(5.5) }, "driver_rating"},
		{"rating below range", func(in *CreateTripInput) { in.CustomerRating = floatPtr(-1) }, "customer_rating"},
		{"unknown status", func(in *CreateTripInput) { in.BookingStatus = "Lost" }, "booking_status"},
		{"missing timestamp", func(in *CreateTripInput) { in.TripTimestamp = time.Time{} }, "trip_timestamp"},
		{"negative fare", func(in *CreateTripInput) { in.BookingValue = decPtr("-1") }, "booking_value"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t)
			in := validInput("CNR0000004")
			tc.mutate(&in)

			_, err := svc.Create(context.Background(), in)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
			details, ok := typed.Details().(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tc.field)
		})
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Get(context.Background(), "CNR9999999")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestUpdateStatusKeepsCancelledConsistent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, validInput("CNR0000005"))
	require.NoError(t, err)

	trip, err := svc.UpdateStatus(ctx, "CNR0000005", "No Driver Found")
	require.NoError(t, err)
	assert.Equal(t, "No Driver Found", trip.BookingStatus)
	assert.True(t, trip.IsCancelled)

	trip, err = svc.UpdateStatus(ctx, "CNR0000005", "Completed")
	require.NoError(t, err)
	assert.False(t, trip.IsCancelled)

	_, err = svc.UpdateStatus(ctx, "CNR0000005", "Cancelled")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.UpdateStatus(ctx, "CNR9999999", "Completed")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, validInput("CNR0000006"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "CNR0000006"))
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(svc.Delete(ctx, "CNR0000006")))
}

func TestListPagesNewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		in := validInput(fmt.Sprintf("CNR000010%d", i))
		in.TripTimestamp = base.Add(time.Duration(i) * time.Hour)
		if i%2 == 1 {
			in.VehicleType = "Bike"
		}
		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
	}

	// Two rows share a timestamp so the booking id breaks the tie.
	tie := validInput("CNR0000099")
	tie.TripTimestamp = base.Add(4 * time.Hour)
	_, err := svc.Create(ctx, tie)
	require.NoError(t, err)

	var seen []string
	cursor := ""
	for {
		page, err := svc.List(ctx, ListFilters{}, pagination.Params{Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, trip := range page.Trips {
			seen = append(seen, trip.BookingID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, []string{
		"CNR0000104", "CNR0000099", "CNR0000103", "CNR0000102", "CNR0000101", "CNR0000100",
	}, seen)

	bikes, err := svc.List(ctx, ListFilters{VehicleType: "Bike"}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, bikes.Trips, 2)

	start := base.Add(2 * time.Hour)
	end := base.Add(3 * time.Hour)
	window, err := svc.List(ctx, ListFilters{Start: &start, End: &end}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, window.Trips, 2)
}

func TestListRejectsBadInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.List(ctx, ListFilters{}, pagination.Params{Cursor: "not-a-cursor"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	start := time.Now()
	end := start.Add(-time.Hour)
	_, err = svc.List(ctx, ListFilters{Start: &start, End: &end}, pagination.Params{})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}
