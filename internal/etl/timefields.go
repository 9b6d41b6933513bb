package etl

import (
	"fmt"
	"strings"
	"time"
)

var (
	dateLayouts = []string{"2006-01-02", "2006/01/02"}
	timeLayouts = []string{"15:04:05", "15:04"}
)

// TimeFields are the calendar features derived from a trip timestamp.
type TimeFields struct {
	PickupHour int
	DayOfWeek  int
	DayName    string
	Month      int
	Year       int
	IsWeekend  bool
}

// ParseTripTimestamp combines a source date and time of day into one
// timestamp. Values are taken at face value and pinned to UTC.
func ParseTripTimestamp(date, clock string) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)

	day, err := parseFirst(dateLayouts, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparsable date %q", date)
	}
	tod, err := parseFirst(timeLayouts, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparsable time %q", clock)
	}

	return time.Date(
		day.Year(), day.Month(), day.Day(),
		tod.Hour(), tod.Minute(), tod.Second(), 0,
		time.UTC,
	), nil
}

// DeriveTimeFields extracts hour, weekday (0=Sunday), month, year, and the
// weekend flag from ts.
func DeriveTimeFields(ts time.Time) TimeFields {
	weekday := ts.Weekday()
	return TimeFields{
		PickupHour: ts.Hour(),
		DayOfWeek:  int(weekday),
		DayName:    weekday.String(),
		Month:      int(ts.Month()),
		Year:       ts.Year(),
		IsWeekend:  weekday == time.Saturday || weekday == time.Sunday,
	}
}

func parseFirst(layouts []string, value string) (time.Time, error) {
	var lastErr error
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
