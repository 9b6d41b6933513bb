package etl

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultRating replaces a missing rating when its category has no observed
// ratings to average.
const DefaultRating = 4.5

type imputeStore interface {
	RatingStats(ctx context.Context, status string) ([]CategoryRatingStats, error)
	FillDriverRating(ctx context.Context, status, category string, value float64) (int64, error)
	FillCustomerRating(ctx context.Context, status, category string, value float64) (int64, error)
}

// CategoryRatingStats is the per vehicle type aggregate of ratings that were
// present before imputation.
type CategoryRatingStats struct {
	VehicleType   string
	DriverSum     decimal.NullDecimal
	DriverCount   int64
	CustomerSum   decimal.NullDecimal
	CustomerCount int64
}

// CategoryMeans are the substitution values for one vehicle type.
type CategoryMeans struct {
	Driver           float64 `json:"driver"`
	Customer         float64 `json:"customer"`
	DriverFallback   bool    `json:"driver_fallback,omitempty"`
	CustomerFallback bool    `json:"customer_fallback,omitempty"`
}

// RatingSnapshot is an immutable view of per-category means. It is computed
// once before any substitution is written.
type RatingSnapshot struct {
	means    map[string]CategoryMeans
	fallback float64
}

// NewRatingSnapshot freezes stats into per-category means rounded to two
// decimals. Categories without observations take fallback.
func NewRatingSnapshot(stats []CategoryRatingStats, fallback float64) RatingSnapshot {
	means := make(map[string]CategoryMeans, len(stats))
	for _, s := range stats {
		driver, driverOK := mean(s.DriverSum, s.DriverCount)
		customer, customerOK := mean(s.CustomerSum, s.CustomerCount)
		m := CategoryMeans{Driver: driver, Customer: customer}
		if !driverOK {
			m.Driver, m.DriverFallback = fallback, true
		}
		if !customerOK {
			m.Customer, m.CustomerFallback = fallback, true
		}
		means[s.VehicleType] = m
	}
	return RatingSnapshot{means: means, fallback: fallback}
}

func mean(sum decimal.NullDecimal, count int64) (float64, bool) {
	if !sum.Valid || count <= 0 {
		return 0, false
	}
	return sum.Decimal.Div(decimal.NewFromInt(count)).Round(2).InexactFloat64(), true
}

// Means returns the substitution values for category.
func (s RatingSnapshot) Means(category string) CategoryMeans {
	if m, ok := s.means[category]; ok {
		return m
	}
	return CategoryMeans{
		Driver:           s.fallback,
		Customer:         s.fallback,
		DriverFallback:   true,
		CustomerFallback: true,
	}
}

// Categories lists the snapshot's vehicle types in sorted order.
func (s RatingSnapshot) Categories() []string {
	out := make([]string, 0, len(s.means))
	for category := range s.means {
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}

// All returns a copy of every category's means.
func (s RatingSnapshot) All() map[string]CategoryMeans {
	out := make(map[string]CategoryMeans, len(s.means))
	for k, v := range s.means {
		out[k] = v
	}
	return out
}

// ImputeOptions tune the imputation stage.
type ImputeOptions struct {
	DefaultRating float64
}

// ImputeResult summarizes one imputation pass.
type ImputeResult struct {
	Categories      int                      `json:"categories"`
	DriverImputed   int64                    `json:"driver_imputed"`
	CustomerImputed int64                    `json:"customer_imputed"`
	Means           map[string]CategoryMeans `json:"means,omitempty"`
}

// Impute fills missing ratings of successful bookings with their category
// mean. Means come only from ratings that were present and not themselves
// imputed, so repeated runs never feed synthesized values back in. Rows of
// any other status are not touched.
func Impute(ctx context.Context, store imputeStore, opts ImputeOptions) (*ImputeResult, error) {
	if opts.DefaultRating == 0 {
		opts.DefaultRating = DefaultRating
	}

	stats, err := store.RatingStats(ctx, successStatus)
	if err != nil {
		return nil, fmt.Errorf("rating stats: %w", err)
	}
	snapshot := NewRatingSnapshot(stats, opts.DefaultRating)

	result := &ImputeResult{Means: snapshot.All()}
	for _, category := range snapshot.Categories() {
		m := snapshot.Means(category)

		n, err := store.FillDriverRating(ctx, successStatus, category, m.Driver)
		if err != nil {
			return result, fmt.Errorf("fill driver ratings for %q: %w", category, err)
		}
		result.DriverImputed += n

		n, err = store.FillCustomerRating(ctx, successStatus, category, m.Customer)
		if err != nil {
			return result, fmt.Errorf("fill customer ratings for %q: %w", category, err)
		}
		result.CustomerImputed += n
		result.Categories++
	}
	return result, nil
}
