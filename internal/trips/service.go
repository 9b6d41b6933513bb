package trips

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tripdash/tripdash-backend/internal/etl"
	"github.com/tripdash/tripdash-backend/pkg/db"
	"github.com/tripdash/tripdash-backend/pkg/db/models"
	"github.com/tripdash/tripdash-backend/pkg/enums"
	pkgerrors "github.com/tripdash/tripdash-backend/pkg/errors"
	"github.com/tripdash/tripdash-backend/pkg/pagination"
)

const generatedIDAttempts = 3

// Service performs row-level writes against the enriched trip store. Every
// write keeps is_cancelled consistent with the booking status and ratings
// within [0,5].
type Service interface {
	Create(ctx context.Context, input CreateTripInput) (*Trip, error)
	Get(ctx context.Context, bookingID string) (*Trip, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (*TripList, error)
	UpdateStatus(ctx context.Context, bookingID, status string) (*Trip, error)
	Delete(ctx context.Context, bookingID string) error
}

type service struct {
	repo  Repository
	newID func() string
}

// NewService builds the trip mutation service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("trips repository required")
	}
	return &service{repo: repo, newID: generateBookingID}, nil
}

func generateBookingID() string {
	return fmt.Sprintf("CNR%07d", rand.Intn(10_000_000))
}

func (s *service) Create(ctx context.Context, input CreateTripInput) (*Trip, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if input.TripTimestamp.IsZero() {
		return nil, fieldError("trip_timestamp", "is required")
	}
	status := enums.BookingStatusCompleted
	if raw := strings.TrimSpace(input.BookingStatus); raw != "" {
		parsed, err := enums.ParseBookingStatus(raw)
		if err != nil {
			return nil, fieldError("booking_status", "is invalid")
		}
		status = parsed
	}
	fare, err := nonNegative("booking_value", input.BookingValue)
	if err != nil {
		return nil, err
	}
	distance, err := nonNegative("ride_distance", input.RideDistance)
	if err != nil {
		return nil, err
	}

	ts := input.TripTimestamp.UTC().Truncate(time.Second)
	fields := etl.DeriveTimeFields(ts)
	reason := etl.ReasonNotSpecified
	if input.CancellationReason != nil && strings.TrimSpace(*input.CancellationReason) != "" {
		reason = strings.TrimSpace(*input.CancellationReason)
	}

	trip := models.EnrichedTrip{
		TripAttributes: models.TripAttributes{
			CustomerID:                input.CustomerID,
			VehicleType:               strings.TrimSpace(input.VehicleType),
			BookingStatus:             status.String(),
			BookingValue:              fare,
			RideDistance:              distance,
			PaymentMethod:             input.PaymentMethod,
			TripTimestamp:             ts,
			PickupHour:                fields.PickupHour,
			DayOfWeek:                 fields.DayOfWeek,
			DayName:                   fields.DayName,
			Month:                     fields.Month,
			Year:                      fields.Year,
			IsWeekend:                 fields.IsWeekend,
			UnifiedCancellationReason: reason,
			DriverRating:              roundRating(input.DriverRating),
			CustomerRating:            roundRating(input.CustomerRating),
			IsCancelled:               status.IsCancelled(),
		},
		RevenuePerKM: etl.RevenuePerKM(fare, distance),
	}

	if id := strings.TrimSpace(input.BookingID); id != "" {
		trip.BookingID = id
		if err := s.insert(ctx, &trip); err != nil {
			return nil, err
		}
	} else {
		if err := s.insertWithGeneratedID(ctx, &trip); err != nil {
			return nil, err
		}
	}

	out := tripFromModel(trip)
	return &out, nil
}

func (s *service) insertWithGeneratedID(ctx context.Context, trip *models.EnrichedTrip) error {
	var err error
	for attempt := 0; attempt < generatedIDAttempts; attempt++ {
		trip.BookingID = s.newID()
		err = s.insert(ctx, trip)
		if pkgerrors.CodeOf(err) != pkgerrors.CodeConflict {
			return err
		}
	}
	return err
}

func (s *service) insert(ctx context.Context, trip *models.EnrichedTrip) error {
	if err := s.repo.Create(ctx, trip); err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "booking id already exists").
				WithDetails(map[string]any{"booking_id": trip.BookingID})
		}
		if db.IsCheckViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "trip violates store constraints")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create trip")
	}
	return nil
}

func (s *service) Get(ctx context.Context, bookingID string) (*Trip, error) {
	trip, err := s.find(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	out := tripFromModel(*trip)
	return &out, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (*TripList, error) {
	if filters.Start != nil && filters.End != nil && filters.End.Before(*filters.Start) {
		return nil, fieldError("end", "must not be before start")
	}
	if _, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list trips")
	}
	out := &TripList{Trips: make([]Trip, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		out.Trips = append(out.Trips, tripFromModel(row))
	}
	return out, nil
}

func (s *service) UpdateStatus(ctx context.Context, bookingID, status string) (*Trip, error) {
	parsed, err := enums.ParseBookingStatus(strings.TrimSpace(status))
	if err != nil {
		return nil, fieldError("booking_status", "is invalid")
	}
	n, err := s.repo.UpdateStatus(ctx, bookingID, parsed.String(), parsed.IsCancelled())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update trip status")
	}
	if n == 0 {
		return nil, notFound(bookingID)
	}
	return s.Get(ctx, bookingID)
}

func (s *service) Delete(ctx context.Context, bookingID string) error {
	n, err := s.repo.Delete(ctx, bookingID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete trip")
	}
	if n == 0 {
		return notFound(bookingID)
	}
	return nil
}

func (s *service) find(ctx context.Context, bookingID string) (*models.EnrichedTrip, error) {
	trip, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trip")
	}
	if trip == nil {
		return nil, notFound(bookingID)
	}
	return trip, nil
}

func notFound(bookingID string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "trip not found").
		WithDetails(map[string]any{"booking_id": bookingID})
}

func nonNegative(field string, value *decimal.Decimal) (decimal.NullDecimal, error) {
	if value == nil {
		return decimal.NullDecimal{}, nil
	}
	if value.IsNegative() {
		return decimal.NullDecimal{}, fieldError(field, "must not be negative")
	}
	return decimal.NewNullDecimal(value.Round(2)), nil
}

func roundRating(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := decimal.NewFromFloat(*v).Round(2).InexactFloat64()
	return &r
}
