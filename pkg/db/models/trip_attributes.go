package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TripAttributes holds the normalized columns shared by the cleaned and
// enriched trip tables.
type TripAttributes struct {
	BookingID                 string              `gorm:"column:booking_id;type:text;primaryKey"`
	CustomerID                *string             `gorm:"column:customer_id;type:text"`
	VehicleType               string              `gorm:"column:vehicle_type;type:text;not null"`
	BookingStatus             string              `gorm:"column:booking_status;type:text;not null"`
	BookingValue              decimal.NullDecimal `gorm:"column:booking_value;type:numeric(10,2)"`
	RideDistance              decimal.NullDecimal `gorm:"column:ride_distance;type:numeric(10,2)"`
	PaymentMethod             *string             `gorm:"column:payment_method;type:text"`
	TripTimestamp             time.Time           `gorm:"column:trip_timestamp;not null"`
	PickupHour                int                 `gorm:"column:pickup_hour;not null"`
	DayOfWeek                 int                 `gorm:"column:day_of_week;not null"`
	DayName                   string              `gorm:"column:day_name;type:text;not null"`
	Month                     int                 `gorm:"column:month;not null"`
	Year                      int                 `gorm:"column:year;not null"`
	IsWeekend                 bool                `gorm:"column:is_weekend;not null"`
	UnifiedCancellationReason string              `gorm:"column:unified_cancellation_reason;type:text;not null"`
	DriverRating              *float64            `gorm:"column:driver_rating;type:numeric(3,2);check:driver_rating BETWEEN 0 AND 5"`
	CustomerRating            *float64            `gorm:"column:customer_rating;type:numeric(3,2);check:customer_rating BETWEEN 0 AND 5"`
	DriverRatingImputed       bool                `gorm:"column:driver_rating_imputed;not null"`
	CustomerRatingImputed     bool                `gorm:"column:customer_rating_imputed;not null"`
	IsCancelled               bool                `gorm:"column:is_cancelled;not null"`
}
