// Package ingest bulk-loads tabular booking exports into the raw store.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/tripdash/tripdash-backend/pkg/db/models"
	pkgerrors "github.com/tripdash/tripdash-backend/pkg/errors"
	"github.com/tripdash/tripdash-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	defaultNullMarker = "null"
	defaultBatchSize  = 500
)

var headerSanitizeRe = regexp.MustCompile(`[^a-z0-9]+`)

type setter func(*models.RawTrip, *string)

// columns maps normalized header names, including the spellings used by the
// public ride booking export, onto raw store columns.
var columns = map[string]setter{
	"date":                              func(r *models.RawTrip, v *string) { r.Date = v },
	"time":                              func(r *models.RawTrip, v *string) { r.Time = v },
	"booking_id":                        func(r *models.RawTrip, v *string) { r.BookingID = v },
	"booking_status":                    func(r *models.RawTrip, v *string) { r.BookingStatus = v },
	"customer_id":                       func(r *models.RawTrip, v *string) { r.CustomerID = v },
	"vehicle_type":                      func(r *models.RawTrip, v *string) { r.VehicleType = v },
	"cancelled_by_customer":             func(r *models.RawTrip, v *string) { r.CancelledByCustomer = v },
	"cancelled_rides_by_customer":       func(r *models.RawTrip, v *string) { r.CancelledByCustomer = v },
	"customer_cancel_reason":            func(r *models.RawTrip, v *string) { r.CustomerCancelReason = v },
	"reason_for_cancelling_by_customer": func(r *models.RawTrip, v *string) { r.CustomerCancelReason = v },
	"cancelled_by_driver":               func(r *models.RawTrip, v *string) { r.CancelledByDriver = v },
	"cancelled_rides_by_driver":         func(r *models.RawTrip, v *string) { r.CancelledByDriver = v },
	"driver_cancel_reason":              func(r *models.RawTrip, v *string) { r.DriverCancelReason = v },
	"driver_cancellation_reason":        func(r *models.RawTrip, v *string) { r.DriverCancelReason = v },
	"incomplete_rides":                  func(r *models.RawTrip, v *string) { r.IncompleteRides = v },
	"incomplete_reason":                 func(r *models.RawTrip, v *string) { r.IncompleteReason = v },
	"incomplete_rides_reason":           func(r *models.RawTrip, v *string) { r.IncompleteReason = v },
	"booking_value":                     func(r *models.RawTrip, v *string) { r.BookingValue = v },
	"ride_distance":                     func(r *models.RawTrip, v *string) { r.RideDistance = v },
	"driver_rating":                     func(r *models.RawTrip, v *string) { r.DriverRating = v },
	"driver_ratings":                    func(r *models.RawTrip, v *string) { r.DriverRating = v },
	"customer_rating":                   func(r *models.RawTrip, v *string) { r.CustomerRating = v },
	"customer_ratings":                  func(r *models.RawTrip, v *string) { r.CustomerRating = v },
	"payment_method":                    func(r *models.RawTrip, v *string) { r.PaymentMethod = v },
}

var requiredHeaders = []string{"booking_id", "date", "time"}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// LoaderParams wire a Loader.
type LoaderParams struct {
	DB         txRunner
	Logger     *logger.Logger
	NullMarker string
	BatchSize  int
	Now        func() time.Time
}

// Loader appends CSV rows to raw_trips verbatim.
type Loader struct {
	db         txRunner
	logg       *logger.Logger
	nullMarker string
	batchSize  int
	now        func() time.Time
}

// LoadResult summarizes one load.
type LoadResult struct {
	Rows           int64
	Columns        []string
	IgnoredColumns []string
}

// NewLoader validates params and builds a Loader.
func NewLoader(params LoaderParams) (*Loader, error) {
	if params.DB == nil {
		return nil, errors.New("db required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	marker := strings.TrimSpace(params.NullMarker)
	if marker == "" {
		marker = defaultNullMarker
	}
	size := params.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Loader{
		db:         params.DB,
		logg:       params.Logger,
		nullMarker: marker,
		batchSize:  size,
		now:        now,
	}, nil
}

// LoadFile opens path and loads it.
func (l *Loader) LoadFile(ctx context.Context, path string) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source %q: %w", path, err)
	}
	defer f.Close()

	ctx = l.logg.WithField(ctx, "source", path)
	return l.Load(ctx, f)
}

// Load reads a CSV with a header row and inserts every record in one
// transaction. Unknown columns are ignored; null markers and empty cells
// become NULL. Any unreadable record aborts the whole load.
func (l *Loader) Load(ctx context.Context, src io.Reader) (*LoadResult, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, pkgerrors.New(pkgerrors.CodeSourceMalformed, "source is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeSourceMalformed, err, "read header")
	}

	setters, result, err := mapHeader(header)
	if err != nil {
		return nil, err
	}
	loadedAt := l.now()

	err = l.db.WithTx(ctx, func(tx *gorm.DB) error {
		batch := make([]models.RawTrip, 0, l.batchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if err := tx.Create(&batch).Error; err != nil {
				return fmt.Errorf("insert raw batch: %w", err)
			}
			result.Rows += int64(len(batch))
			batch = batch[:0]
			return nil
		}

		line := 1
		for {
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			line++
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeSourceMalformed, err, "read record").
					WithDetails(map[string]any{"line": line})
			}

			row := models.RawTrip{LoadedAt: loadedAt}
			for i, set := range setters {
				if set == nil || i >= len(record) {
					continue
				}
				set(&row, l.cell(record[i]))
			}
			batch = append(batch, row)
			if len(batch) >= l.batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})
	if err != nil {
		return nil, err
	}

	l.logg.Info(l.logg.WithField(ctx, "rows", result.Rows), "raw trips loaded")
	return result, nil
}

func mapHeader(header []string) ([]setter, *LoadResult, error) {
	result := &LoadResult{}
	setters := make([]setter, len(header))
	seen := map[string]bool{}

	for i, name := range header {
		key := NormalizeHeader(name)
		set, ok := columns[key]
		if !ok {
			result.IgnoredColumns = append(result.IgnoredColumns, name)
			continue
		}
		setters[i] = set
		seen[key] = true
		result.Columns = append(result.Columns, key)
	}

	var missing []string
	for _, h := range requiredHeaders {
		if !seen[h] {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeSourceMalformed, "source is missing required columns").
			WithDetails(map[string]any{"missing": missing})
	}
	return setters, result, nil
}

// NormalizeHeader lowercases a header and collapses punctuation and spaces
// into underscores, so "Booking ID" becomes "booking_id".
func NormalizeHeader(name string) string {
	name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	name = headerSanitizeRe.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

// cell keeps the source text verbatim. Only blank cells and the null marker
// become NULL; quote and whitespace cleanup belongs to the cleaning stage.
func (l *Loader) cell(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || strings.EqualFold(trimmed, l.nullMarker) {
		return nil
	}
	return &value
}
