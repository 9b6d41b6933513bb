package etl

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tripdash/tripdash-backend/pkg/db/models"
	"github.com/tripdash/tripdash-backend/pkg/enums"
	pkgerrors "github.com/tripdash/tripdash-backend/pkg/errors"
)

const (
	defaultBatchSize = 1000
	maxRating        = 5
	// successStatus is the only label that counts as a completed booking.
	// enriched_trips enforces the same literal in a CHECK constraint.
	successStatus = string(enums.BookingStatusCompleted)
)

type cleanStore interface {
	EachRawBatch(ctx context.Context, size int, fn func([]models.RawTrip) error) error
	InsertCleaned(ctx context.Context, rows []models.CleanedTrip) (int64, error)
}

// CleanOptions tune the cleaning stage.
type CleanOptions struct {
	BatchSize int
	Rules     []CancellationRule
}

// CleanResult summarizes one cleaning pass.
type CleanResult struct {
	RawRows          int64 `json:"raw_rows"`
	Inserted         int64 `json:"inserted"`
	SkippedExisting  int64 `json:"skipped_existing"`
	SkippedDuplicate int64 `json:"skipped_duplicate"`
}

// Clean normalizes every raw row into the cleaned store. Booking ids that are
// already cleaned are left untouched; a booking id repeated in the raw store
// keeps its first occurrence. Any malformed row fails the whole stage, so the
// caller must run it inside a transaction.
func Clean(ctx context.Context, store cleanStore, opts CleanOptions) (*CleanResult, error) {
	opts = opts.withDefaults()
	result := &CleanResult{}
	seen := make(map[string]struct{})

	err := store.EachRawBatch(ctx, opts.BatchSize, func(batch []models.RawTrip) error {
		rows := make([]models.CleanedTrip, 0, len(batch))
		for _, raw := range batch {
			result.RawRows++
			cleaned, err := CleanRecord(raw, opts.Rules)
			if err != nil {
				return err
			}
			if _, dup := seen[cleaned.BookingID]; dup {
				result.SkippedDuplicate++
				continue
			}
			seen[cleaned.BookingID] = struct{}{}
			rows = append(rows, cleaned)
		}

		inserted, err := store.InsertCleaned(ctx, rows)
		if err != nil {
			return fmt.Errorf("insert cleaned batch: %w", err)
		}
		result.Inserted += inserted
		result.SkippedExisting += int64(len(rows)) - inserted
		return nil
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

func (o CleanOptions) withDefaults() CleanOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.Rules == nil {
		o.Rules = CancellationRules
	}
	return o
}

// CleanRecord derives the cleaned form of one raw row.
func CleanRecord(raw models.RawTrip, rules []CancellationRule) (models.CleanedTrip, error) {
	malformed := func(field, msg string) error {
		details := map[string]any{"raw_id": raw.ID, "field": field}
		if id := normalizeText(raw.BookingID); id != nil {
			details["booking_id"] = *id
		}
		return pkgerrors.New(pkgerrors.CodeSourceMalformed, msg).WithDetails(details)
	}

	bookingID := normalizeText(raw.BookingID)
	if bookingID == nil {
		return models.CleanedTrip{}, malformed("booking_id", "booking id is required")
	}
	status := normalizeText(raw.BookingStatus)
	if status == nil {
		return models.CleanedTrip{}, malformed("booking_status", "booking status is required")
	}
	vehicle := normalizeText(raw.VehicleType)
	if vehicle == nil {
		return models.CleanedTrip{}, malformed("vehicle_type", "vehicle type is required")
	}
	date, clock := normalizeText(raw.Date), normalizeText(raw.Time)
	if date == nil {
		return models.CleanedTrip{}, malformed("date", "date is required")
	}
	if clock == nil {
		return models.CleanedTrip{}, malformed("time", "time is required")
	}

	ts, err := ParseTripTimestamp(*date, *clock)
	if err != nil {
		return models.CleanedTrip{}, malformed("date", err.Error())
	}

	fare, err := parseDecimal(raw.BookingValue)
	if err != nil {
		return models.CleanedTrip{}, malformed("booking_value", err.Error())
	}
	distance, err := parseDecimal(raw.RideDistance)
	if err != nil {
		return models.CleanedTrip{}, malformed("ride_distance", err.Error())
	}

	driverRating, err := parseRating(raw.DriverRating)
	if err != nil {
		return models.CleanedTrip{}, ratingError(err, malformed("driver_rating", err.Error()))
	}
	customerRating, err := parseRating(raw.CustomerRating)
	if err != nil {
		return models.CleanedTrip{}, ratingError(err, malformed("customer_rating", err.Error()))
	}

	fields := DeriveTimeFields(ts)
	return models.CleanedTrip{TripAttributes: models.TripAttributes{
		BookingID:                 *bookingID,
		CustomerID:                normalizeText(raw.CustomerID),
		VehicleType:               *vehicle,
		BookingStatus:             *status,
		BookingValue:              fare,
		RideDistance:              distance,
		PaymentMethod:             normalizeText(raw.PaymentMethod),
		TripTimestamp:             ts,
		PickupHour:                fields.PickupHour,
		DayOfWeek:                 fields.DayOfWeek,
		DayName:                   fields.DayName,
		Month:                     fields.Month,
		Year:                      fields.Year,
		IsWeekend:                 fields.IsWeekend,
		UnifiedCancellationReason: UnifiedReason(rules, raw),
		DriverRating:              driverRating,
		CustomerRating:            customerRating,
		IsCancelled:               *status != successStatus,
	}}, nil
}

type ratingRangeError struct {
	value decimal.Decimal
}

func (e ratingRangeError) Error() string {
	return fmt.Sprintf("rating %s outside [0,%d]", e.value.String(), maxRating)
}

// ratingError promotes out-of-range ratings from a source problem to an
// invariant violation while keeping the row details.
func ratingError(err error, malformed error) error {
	rangeErr, ok := err.(ratingRangeError)
	if !ok {
		return malformed
	}
	details := pkgerrors.As(malformed).Details()
	return pkgerrors.New(pkgerrors.CodeInvariantViolation, rangeErr.Error()).WithDetails(details)
}

func normalizeText(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.Trim(strings.TrimSpace(*value), `"`)
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func parseDecimal(value *string) (decimal.NullDecimal, error) {
	d, err := parseExact(value)
	if err != nil || !d.Valid {
		return d, err
	}
	return decimal.NewNullDecimal(d.Decimal.Round(2)), nil
}

func parseExact(value *string) (decimal.NullDecimal, error) {
	text := normalizeText(value)
	if text == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*text)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("unparsable number %q", *text)
	}
	return decimal.NewNullDecimal(d), nil
}

// parseRating checks the range on the value as written so rounding never
// pulls an out-of-range rating back inside [0,5].
func parseRating(value *string) (*float64, error) {
	d, err := parseExact(value)
	if err != nil || !d.Valid {
		return nil, err
	}
	if d.Decimal.IsNegative() || d.Decimal.GreaterThan(decimal.NewFromInt(maxRating)) {
		return nil, ratingRangeError{value: d.Decimal}
	}
	f := d.Decimal.Round(2).InexactFloat64()
	return &f, nil
}
