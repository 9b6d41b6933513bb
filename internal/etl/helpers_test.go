package etl

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tripdash/tripdash-backend/pkg/db/models"
	"github.com/tripdash/tripdash-backend/pkg/logger"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "etl-test", Output: io.Discard})
}

type rawOpt func(*models.RawTrip)

func withStatus(status string) rawOpt {
	return func(r *models.RawTrip) { r.BookingStatus = strPtr(status) }
}

func withVehicle(vehicle string) rawOpt {
	return func(r *models.RawTrip) { r.VehicleType = strPtr(vehicle) }
}

func withRatings(driver, customer *string) rawOpt {
	return func(r *models.RawTrip) {
		r.DriverRating = driver
		r.CustomerRating = customer
	}
}

func withFare(fare, distance string) rawOpt {
	return func(r *models.RawTrip) {
		r.BookingValue = strPtr(fare)
		r.RideDistance = strPtr(distance)
	}
}

func withDate(date, clock string) rawOpt {
	return func(r *models.RawTrip) {
		r.Date = strPtr(date)
		r.Time = strPtr(clock)
	}
}

func newRaw(id string, opts ...rawOpt) models.RawTrip {
	raw := models.RawTrip{
		Date:          strPtr("2024-03-11"),
		Time:          strPtr("08:30:00"),
		BookingID:     strPtr(id),
		BookingStatus: strPtr("Completed"),
		CustomerID:    strPtr("CID" + id),
		VehicleType:   strPtr("Sedan"),
		BookingValue:  strPtr("250"),
		RideDistance:  strPtr("12.5"),
		PaymentMethod: strPtr("UPI"),
		LoadedAt:      time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&raw)
	}
	return raw
}

func seedRaw(t *testing.T, db *gorm.DB, rows ...models.RawTrip) {
	t.Helper()
	require.NoError(t, db.Create(&rows).Error)
}

func cleanedByID(t *testing.T, db *gorm.DB, id string) models.CleanedTrip {
	t.Helper()
	var row models.CleanedTrip
	require.NoError(t, db.Where("booking_id = ?", id).First(&row).Error)
	return row
}

func runClean(t *testing.T, db *gorm.DB) *CleanResult {
	t.Helper()
	res, err := Clean(context.Background(), NewRepository(db), CleanOptions{BatchSize: 2})
	require.NoError(t, err)
	return res
}

func runImpute(t *testing.T, db *gorm.DB) *ImputeResult {
	t.Helper()
	res, err := Impute(context.Background(), NewRepository(db), ImputeOptions{DefaultRating: DefaultRating})
	require.NoError(t, err)
	return res
}
