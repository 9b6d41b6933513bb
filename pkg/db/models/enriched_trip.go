package models

import "github.com/shopspring/decimal"

// EnrichedTrip is the analytics-ready row read by dashboards and written by
// the trip mutation service between pipeline runs.
type EnrichedTrip struct {
	TripAttributes `gorm:"embedded"`
	RevenuePerKM   decimal.NullDecimal `gorm:"column:revenue_per_km;type:numeric(10,2)"`
}

func (EnrichedTrip) TableName() string { return "enriched_trips" }
