package port

import (
	"context"

	"github.com/shopspring/decimal"

	"veltra-system/internal/database/models"
)

// LocationDirectory is the read-only source of locations.
type LocationDirectory interface {
	// ListActive returns every active location, failing with
	// service.ErrUpstreamUnavailable on transport errors.
	ListActive(ctx context.Context) ([]models.Location, error)
}

// InventoryStore holds per-(product, location) stock records. Deduct and
// Credit must be conditional atomic updates: concurrent mutations of the same
// key must never overdraw stock.
type InventoryStore interface {
	// Upsert creates or overwrites the record for (productID, locationID).
	Upsert(ctx context.Context, productID, locationID int64, quantity decimal.Decimal) error

	// Get returns the record, or service.ErrRecordNotFound when absent.
	Get(ctx context.Context, productID, locationID int64) (*models.InventoryRecord, error)

	// Deduct decreases quantity by qty only when available stock covers it,
	// returning service.ErrInsufficientStock otherwise.
	Deduct(ctx context.Context, productID, locationID int64, qty decimal.Decimal) error

	// Credit increases quantity by qty, creating the record when absent.
	Credit(ctx context.Context, productID, locationID int64, qty decimal.Decimal) error
}

// RecipeCatalog exposes conversion definitions. Recipes are read-only inputs
// to the workflow and are never mutated through this interface.
type RecipeCatalog interface {
	// Get returns the recipe, or service.ErrRecipeNotFound when absent.
	Get(ctx context.Context, recipeID int64) (*models.Recipe, error)
}

// ConversionFilter narrows a conversion history listing. Zero values mean
// "any".
type ConversionFilter struct {
	InputProductID int64
	LocationID     int64
	Status         models.ConversionStatus
}

// ConversionRecords persists the conversion audit trail. Records are created
// and updated, never deleted.
type ConversionRecords interface {
	Create(ctx context.Context, record *models.ConversionRecord) error
	Get(ctx context.Context, id int64) (*models.ConversionRecord, error)
	Update(ctx context.Context, record *models.ConversionRecord) error
	List(ctx context.Context, filter ConversionFilter) ([]models.ConversionRecord, error)
}
