package models

// CleanedTrip is the normalized, feature-engineered form of a raw booking.
type CleanedTrip struct {
	TripAttributes `gorm:"embedded"`
}

func (CleanedTrip) TableName() string { return "cleaned_trips" }
