package trips

import (
	"context"

	"github.com/tripdash/tripdash-backend/pkg/db/models"
	"github.com/tripdash/tripdash-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository defines persistence operations for enriched trips.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, trip *models.EnrichedTrip) error
	FindByID(ctx context.Context, bookingID string) (*models.EnrichedTrip, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.EnrichedTrip, string, error)
	UpdateStatus(ctx context.Context, bookingID, status string, cancelled bool) (int64, error)
	Delete(ctx context.Context, bookingID string) (int64, error)
}
