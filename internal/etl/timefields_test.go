package etl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTripTimestamp(t *testing.T) {
	ts, err := ParseTripTimestamp("2024-03-09", "18:45:12")
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2024, 3, 9, 18, 45, 12, 0, time.UTC)))

	ts, err = ParseTripTimestamp(" 2024/12/31 ", "07:05")
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2024, 12, 31, 7, 5, 0, 0, time.UTC)))
}

func TestParseTripTimestampRejectsGarbage(t *testing.T) {
	_, err := ParseTripTimestamp("31-12-2024", "07:05:00")
	assert.ErrorContains(t, err, "unparsable date")

	_, err = ParseTripTimestamp("2024-12-31", "25:00:00")
	assert.ErrorContains(t, err, "unparsable time")
}

func TestDeriveTimeFields(t *testing.T) {
	fields := DeriveTimeFields(time.Date(2024, 3, 9, 18, 45, 0, 0, time.UTC))
	assert.Equal(t, TimeFields{
		PickupHour: 18,
		DayOfWeek:  6,
		DayName:    "Saturday",
		Month:      3,
		Year:       2024,
		IsWeekend:  true,
	}, fields)
}

func TestDeriveTimeFieldsWeekendFlag(t *testing.T) {
	// 2024-03-10 is a Sunday.
	start := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		fields := DeriveTimeFields(day)
		assert.Equal(t, i, fields.DayOfWeek, day.String())
		wantWeekend := i == 0 || i == 6
		assert.Equal(t, wantWeekend, fields.IsWeekend, fields.DayName)
	}
}
