package models

import "time"

// RawTrip is one booking record exactly as the bulk loader found it in the
// source. Every sourced column is nullable text; parsing happens downstream.
type RawTrip struct {
	ID                   int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Date                 *string   `gorm:"column:date;type:text"`
	Time                 *string   `gorm:"column:time;type:text"`
	BookingID            *string   `gorm:"column:booking_id;type:text"`
	BookingStatus        *string   `gorm:"column:booking_status;type:text"`
	CustomerID           *string   `gorm:"column:customer_id;type:text"`
	VehicleType          *string   `gorm:"column:vehicle_type;type:text"`
	CancelledByCustomer  *string   `gorm:"column:cancelled_by_customer;type:text"`
	CustomerCancelReason *string   `gorm:"column:customer_cancel_reason;type:text"`
	CancelledByDriver    *string   `gorm:"column:cancelled_by_driver;type:text"`
	DriverCancelReason   *string   `gorm:"column:driver_cancel_reason;type:text"`
	IncompleteRides      *string   `gorm:"column:incomplete_rides;type:text"`
	IncompleteReason     *string   `gorm:"column:incomplete_reason;type:text"`
	BookingValue         *string   `gorm:"column:booking_value;type:text"`
	RideDistance         *string   `gorm:"column:ride_distance;type:text"`
	DriverRating         *string   `gorm:"column:driver_rating;type:text"`
	CustomerRating       *string   `gorm:"column:customer_rating;type:text"`
	PaymentMethod        *string   `gorm:"column:payment_method;type:text"`
	LoadedAt             time.Time `gorm:"column:loaded_at;not null"`
}

func (RawTrip) TableName() string { return "raw_trips" }
