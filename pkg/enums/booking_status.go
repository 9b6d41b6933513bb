package enums

import "fmt"

// BookingStatus is the outcome label carried by every trip.
type BookingStatus string

const (
	BookingStatusCompleted           BookingStatus = "Completed"
	BookingStatusCancelledByCustomer BookingStatus = "Cancelled by Customer"
	BookingStatusCancelledByDriver   BookingStatus = "Cancelled by Driver"
	BookingStatusNoDriverFound       BookingStatus = "No Driver Found"
	BookingStatusIncomplete          BookingStatus = "Incomplete"
)

var validBookingStatuses = []BookingStatus{
	BookingStatusCompleted,
	BookingStatusCancelledByCustomer,
	BookingStatusCancelledByDriver,
	BookingStatusNoDriverFound,
	BookingStatusIncomplete,
}

// String implements fmt.Stringer.
func (b BookingStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BookingStatus.
func (b BookingStatus) IsValid() bool {
	for _, candidate := range validBookingStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// IsCancelled reports whether a trip with this status counts as cancelled.
func (b BookingStatus) IsCancelled() bool {
	return b != BookingStatusCompleted
}

// ParseBookingStatus converts raw input into a BookingStatus.
func ParseBookingStatus(value string) (BookingStatus, error) {
	for _, candidate := range validBookingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid booking status %q", value)
}
