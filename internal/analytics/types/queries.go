package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Filters narrow every dashboard query. Zero values mean "no filter".
type Filters struct {
	Start       *time.Time
	End         *time.Time
	VehicleType string
}

// KPIs summarise bookings inside the filter window.
type KPIs struct {
	TotalBookings      int64           `json:"total_bookings"`
	SuccessfulBookings int64           `json:"successful_bookings"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	SuccessRate        decimal.Decimal `json:"success_rate"`
}

// ReasonShare is one slice of the cancellation reason breakdown.
type ReasonShare struct {
	Reason     string          `json:"reason"`
	Count      int64           `json:"count"`
	Percentage decimal.Decimal `json:"percentage"`
}

// PaymentShare is one slice of the payment method breakdown. A nil method
// groups trips that carried no payment label.
type PaymentShare struct {
	PaymentMethod *string         `json:"payment_method"`
	Count         int64           `json:"count"`
	Percentage    decimal.Decimal `json:"percentage"`
}

// VehicleStats aggregates trips per vehicle type.
type VehicleStats struct {
	VehicleType       string          `json:"vehicle_type"`
	TotalTrips        int64           `json:"total_trips"`
	AvgDriverRating   decimal.Decimal `json:"avg_driver_rating"`
	AvgCustomerRating decimal.Decimal `json:"avg_customer_rating"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AvgBookingValue   decimal.Decimal `json:"avg_booking_value"`
}

// HourCount is the number of pickups in one hour of the day.
type HourCount struct {
	Hour      int   `json:"hour"`
	TripCount int64 `json:"trip_count"`
}

// WeekdayStats aggregates trips per weekday, Monday first.
type WeekdayStats struct {
	DayName    string          `json:"day_name"`
	TripCount  int64           `json:"trip_count"`
	AvgRevenue decimal.Decimal `json:"avg_revenue"`
}
