package etl

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripdash/tripdash-backend/pkg/db/dbtest"
)

func TestRatingSnapshotMeans(t *testing.T) {
	snap := NewRatingSnapshot([]CategoryRatingStats{
		{
			VehicleType: "Sedan",
			DriverSum:   decimal.NewNullDecimal(decimal.RequireFromString("13.1")),
			DriverCount: 3,
		},
		{
			VehicleType:   "Bike",
			CustomerSum:   decimal.NewNullDecimal(decimal.RequireFromString("9")),
			CustomerCount: 2,
		},
	}, 4.5)

	sedan := snap.Means("Sedan")
	assert.InDelta(t, 4.37, sedan.Driver, 1e-9)
	assert.False(t, sedan.DriverFallback)
	assert.Equal(t, 4.5, sedan.Customer)
	assert.True(t, sedan.CustomerFallback)

	bike := snap.Means("Bike")
	assert.Equal(t, 4.5, bike.Driver)
	assert.True(t, bike.DriverFallback)
	assert.Equal(t, 4.5, bike.Customer)
	assert.False(t, bike.CustomerFallback)

	unknown := snap.Means("Auto")
	assert.True(t, unknown.DriverFallback)
	assert.True(t, unknown.CustomerFallback)

	assert.Equal(t, []string{"Bike", "Sedan"}, snap.Categories())
}

func TestRatingSnapshotIsImmutable(t *testing.T) {
	snap := NewRatingSnapshot([]CategoryRatingStats{{
		VehicleType: "Sedan",
		DriverSum:   decimal.NewNullDecimal(decimal.NewFromInt(8)),
		DriverCount: 2,
	}}, 4.5)

	all := snap.All()
	all["Sedan"] = CategoryMeans{Driver: 1}

	assert.Equal(t, 4.0, snap.Means("Sedan").Driver)
}

func TestImputeFillsCompletedRatingsWithCategoryMean(t *testing.T) {
	conn := dbtest.Open(t)
	seedRaw(t, conn,
		newRaw("S1", withRatings(strPtr("4.0"), strPtr("5.0"))),
		newRaw("S2", withRatings(strPtr("4.7"), nil)),
		newRaw("S3", withRatings(nil, nil)),
		newRaw("S4", withStatus("Cancelled by Customer"), withRatings(nil, nil)),
		newRaw("B1", withVehicle("Bike"), withRatings(nil, nil)),
		newRaw("B2", withVehicle("Bike"), withStatus("Incomplete"), withRatings(strPtr("1.0"), strPtr("1.0"))),
	)
	runClean(t, conn)

	res := runImpute(t, conn)
	assert.Equal(t, 2, res.Categories)
	assert.Equal(t, int64(2), res.DriverImputed)
	assert.Equal(t, int64(3), res.CustomerImputed)

	s2 := cleanedByID(t, conn, "S2")
	require.NotNil(t, s2.CustomerRating)
	assert.InDelta(t, 5.0, *s2.CustomerRating, 1e-9)
	assert.True(t, s2.CustomerRatingImputed)
	assert.False(t, s2.DriverRatingImputed)

	s3 := cleanedByID(t, conn, "S3")
	require.NotNil(t, s3.DriverRating)
	assert.InDelta(t, 4.35, *s3.DriverRating, 1e-9)
	assert.True(t, s3.DriverRatingImputed)
	assert.True(t, s3.CustomerRatingImputed)

	// Completed bikes have no observed ratings; the incomplete bike's do not count.
	b1 := cleanedByID(t, conn, "B1")
	require.NotNil(t, b1.DriverRating)
	assert.Equal(t, 4.5, *b1.DriverRating)
	assert.Equal(t, 4.5, *b1.CustomerRating)

	s1 := cleanedByID(t, conn, "S1")
	assert.False(t, s1.DriverRatingImputed)
	assert.False(t, s1.CustomerRatingImputed)
}

func TestImputeLeavesNonCompletedRowsUntouched(t *testing.T) {
	conn := dbtest.Open(t)
	seedRaw(t, conn,
		newRaw("C1", withStatus("Cancelled by Driver"), withRatings(nil, nil)),
		newRaw("C2", withStatus("No Driver Found"), withRatings(strPtr("3.0"), nil)),
		newRaw("OK", withRatings(nil, nil)),
	)
	runClean(t, conn)
	before := []any{cleanedByID(t, conn, "C1"), cleanedByID(t, conn, "C2")}

	runImpute(t, conn)

	after := []any{cleanedByID(t, conn, "C1"), cleanedByID(t, conn, "C2")}
	assert.Equal(t, before, after)
}

func TestImputeUnsetDefaultRatingFallsBackToFourPointFive(t *testing.T) {
	conn := dbtest.Open(t)
	seedRaw(t, conn, newRaw("BK1", withVehicle("Bike"), withRatings(nil, nil)))
	runClean(t, conn)

	_, err := Impute(context.Background(), NewRepository(conn), ImputeOptions{})
	require.NoError(t, err)

	row := cleanedByID(t, conn, "BK1")
	require.NotNil(t, row.DriverRating)
	require.NotNil(t, row.CustomerRating)
	assert.Equal(t, 4.5, *row.DriverRating)
	assert.Equal(t, 4.5, *row.CustomerRating)
	assert.True(t, row.DriverRatingImputed)
	assert.True(t, row.CustomerRatingImputed)
}

func TestImputeRerunDoesNotDriftMeans(t *testing.T) {
	conn := dbtest.Open(t)
	seedRaw(t, conn,
		newRaw("S1", withRatings(strPtr("4.0"), strPtr("4.0"))),
		newRaw("S2", withRatings(nil, nil)),
	)
	runClean(t, conn)
	runImpute(t, conn)

	// A new completed sedan with a high rating changes the observed mean;
	// S2's imputed 4.0 must not be counted as an observation.
	seedRaw(t, conn,
		newRaw("S3", withRatings(strPtr("5.0"), strPtr("5.0"))),
		newRaw("S4", withRatings(nil, nil)),
	)
	runClean(t, conn)
	res := runImpute(t, conn)

	assert.Equal(t, int64(1), res.DriverImputed)
	assert.InDelta(t, 4.5, res.Means["Sedan"].Driver, 1e-9)

	s4 := cleanedByID(t, conn, "S4")
	require.NotNil(t, s4.DriverRating)
	assert.InDelta(t, 4.5, *s4.DriverRating, 1e-9)

	s2 := cleanedByID(t, conn, "S2")
	assert.InDelta(t, 4.0, *s2.DriverRating, 1e-9)
}

type failingImputeStore struct {
	stats []CategoryRatingStats
	fills int
}

func (f *failingImputeStore) RatingStats(context.Context, string) ([]CategoryRatingStats, error) {
	return f.stats, nil
}

func (f *failingImputeStore) FillDriverRating(context.Context, string, string, float64) (int64, error) {
	f.fills++
	return 1, nil
}

func (f *failingImputeStore) FillCustomerRating(context.Context, string, string, float64) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestImputePropagatesStoreErrors(t *testing.T) {
	store := &failingImputeStore{stats: []CategoryRatingStats{{VehicleType: "Sedan"}}}
	_, err := Impute(context.Background(), store, ImputeOptions{DefaultRating: DefaultRating})
	require.Error(t, err)
	assert.ErrorContains(t, err, "fill customer ratings")
	assert.Equal(t, 1, store.fills)
}
