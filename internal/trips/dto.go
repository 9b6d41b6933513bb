package trips

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tripdash/tripdash-backend/pkg/db/models"
)

// CreateTripInput is the payload for recording a trip outside the pipeline.
type CreateTripInput struct {
	BookingID          string           `json:"booking_id" validate:"omitempty,max=32"`
	CustomerID         *string          `json:"customer_id" validate:"omitempty,max=32"`
	VehicleType        string           `json:"vehicle_type" validate:"required,max=64"`
	BookingStatus      string           `json:"booking_status" validate:"omitempty,max=64"`
	BookingValue       *decimal.Decimal `json:"booking_value"`
	RideDistance       *decimal.Decimal `json:"ride_distance"`
	PaymentMethod      *string          `json:"payment_method" validate:"omitempty,max=64"`
	TripTimestamp      time.Time        `json:"trip_timestamp"`
	CancellationReason *string          `json:"cancellation_reason" validate:"omitempty,max=255"`
	DriverRating       *float64         `json:"driver_rating" validate:"omitempty,gte=0,lte=5"`
	CustomerRating     *float64         `json:"customer_rating" validate:"omitempty,gte=0,lte=5"`
}

// ListFilters narrow a trip listing.
type ListFilters struct {
	Start         *time.Time
	End           *time.Time
	VehicleType   string
	BookingStatus string
}

// Trip is the public view of an enriched trip.
type Trip struct {
	BookingID                 string           `json:"booking_id"`
	CustomerID                *string          `json:"customer_id,omitempty"`
	VehicleType               string           `json:"vehicle_type"`
	BookingStatus             string           `json:"booking_status"`
	BookingValue              *decimal.Decimal `json:"booking_value,omitempty"`
	RideDistance              *decimal.Decimal `json:"ride_distance,omitempty"`
	RevenuePerKM              *decimal.Decimal `json:"revenue_per_km,omitempty"`
	PaymentMethod             *string          `json:"payment_method,omitempty"`
	TripTimestamp             time.Time        `json:"trip_timestamp"`
	PickupHour                int              `json:"pickup_hour"`
	DayName                   string           `json:"day_name"`
	IsWeekend                 bool             `json:"is_weekend"`
	UnifiedCancellationReason string           `json:"unified_cancellation_reason"`
	DriverRating              *float64         `json:"driver_rating,omitempty"`
	CustomerRating            *float64         `json:"customer_rating,omitempty"`
	DriverRatingImputed       bool             `json:"driver_rating_imputed"`
	CustomerRatingImputed     bool             `json:"customer_rating_imputed"`
	IsCancelled               bool             `json:"is_cancelled"`
}

// TripList is one page of trips.
type TripList struct {
	Trips      []Trip `json:"trips"`
	NextCursor string `json:"next_cursor,omitempty"`
}

func tripFromModel(m models.EnrichedTrip) Trip {
	return Trip{
		BookingID:                 m.BookingID,
		CustomerID:                m.CustomerID,
		VehicleType:               m.VehicleType,
		BookingStatus:             m.BookingStatus,
		BookingValue:              decimalPtr(m.BookingValue),
		RideDistance:              decimalPtr(m.RideDistance),
		RevenuePerKM:              decimalPtr(m.RevenuePerKM),
		PaymentMethod:             m.PaymentMethod,
		TripTimestamp:             m.TripTimestamp,
		PickupHour:                m.PickupHour,
		DayName:                   m.DayName,
		IsWeekend:                 m.IsWeekend,
		UnifiedCancellationReason: m.UnifiedCancellationReason,
		DriverRating:              m.DriverRating,
		CustomerRating:            m.CustomerRating,
		DriverRatingImputed:       m.DriverRatingImputed,
		CustomerRatingImputed:     m.CustomerRatingImputed,
		IsCancelled:               m.IsCancelled,
	}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
