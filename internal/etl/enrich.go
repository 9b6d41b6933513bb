package etl

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tripdash/tripdash-backend/pkg/db/models"
	pkgerrors "github.com/tripdash/tripdash-backend/pkg/errors"
)

type enrichStore interface {
	ClearEnriched(ctx context.Context) error
	EachCleanedBatch(ctx context.Context, size int, fn func([]models.CleanedTrip) error) error
	InsertEnriched(ctx context.Context, rows []models.EnrichedTrip) (int64, error)
	CountCleaned(ctx context.Context) (int64, error)
	CountEnriched(ctx context.Context) (int64, error)
}

// EnrichOptions tune the enrichment stage.
type EnrichOptions struct {
	BatchSize int
}

// EnrichResult summarizes one enrichment pass.
type EnrichResult struct {
	CleanedRows int64 `json:"cleaned_rows"`
	Inserted    int64 `json:"inserted"`
	WithRevenue int64 `json:"with_revenue"`
}

// RevenuePerKM is fare / distance rounded to two decimals, or null when
// either side is missing or distance is not positive.
func RevenuePerKM(fare, distance decimal.NullDecimal) decimal.NullDecimal {
	if !fare.Valid || !distance.Valid || !distance.Decimal.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(fare.Decimal.Div(distance.Decimal).Round(2))
}

// EnrichRecord copies a cleaned row and adds its derived metrics.
func EnrichRecord(row models.CleanedTrip) models.EnrichedTrip {
	return models.EnrichedTrip{
		TripAttributes: row.TripAttributes,
		RevenuePerKM:   RevenuePerKM(row.BookingValue, row.RideDistance),
	}
}

// Enrich replaces the enriched store with one row per cleaned row. The
// clear and the reload must share a transaction; the stage checks the
// resulting row count before returning so a short load rolls back.
func Enrich(ctx context.Context, store enrichStore, opts EnrichOptions) (*EnrichResult, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	result := &EnrichResult{}

	if err := store.ClearEnriched(ctx); err != nil {
		return nil, fmt.Errorf("clear enriched trips: %w", err)
	}

	err := store.EachCleanedBatch(ctx, opts.BatchSize, func(batch []models.CleanedTrip) error {
		rows := make([]models.EnrichedTrip, 0, len(batch))
		for _, row := range batch {
			enriched := EnrichRecord(row)
			if enriched.RevenuePerKM.Valid {
				result.WithRevenue++
			}
			rows = append(rows, enriched)
		}
		inserted, err := store.InsertEnriched(ctx, rows)
		if err != nil {
			return fmt.Errorf("insert enriched batch: %w", err)
		}
		result.Inserted += inserted
		return nil
	})
	if err != nil {
		return result, err
	}

	cleaned, err := store.CountCleaned(ctx)
	if err != nil {
		return result, fmt.Errorf("count cleaned trips: %w", err)
	}
	enriched, err := store.CountEnriched(ctx)
	if err != nil {
		return result, fmt.Errorf("count enriched trips: %w", err)
	}
	result.CleanedRows = cleaned
	if cleaned != enriched {
		return result, pkgerrors.New(pkgerrors.CodeInvariantViolation, "enriched row count does not match cleaned row count").
			WithDetails(map[string]any{"cleaned": cleaned, "enriched": enriched})
	}
	return result, nil
}
