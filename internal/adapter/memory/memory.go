// Package memory provides in-memory implementations of every port. They back
// the test suites and single-process demos; the storage and upstream packages
// provide the durable equivalents.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"veltra-system/internal/database/models"
	"veltra-system/internal/port"
	"veltra-system/internal/service"
)

type recordKey struct {
	productID  int64
	locationID int64
}

// LocationDirectory serves a fixed location list.
type LocationDirectory struct {
	mu        sync.RWMutex
	locations []models.Location
}

var _ port.LocationDirectory = (*LocationDirectory)(nil)

func NewLocationDirectory(locations ...models.Location) *LocationDirectory {
	return &LocationDirectory{locations: locations}
}

func (d *LocationDirectory) SetLocations(locations ...models.Location) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.locations = locations
}

func (d *LocationDirectory) ListActive(ctx context.Context) ([]models.Location, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	active := []models.Location{}
	for _, loc := range d.locations {
		if loc.IsActive {
			active = append(active, loc)
		}
	}
	return active, nil
}

// InventoryStore keeps records in a map keyed by (product, location). All
// mutations run under one mutex, so Deduct is a conditional atomic update.
type InventoryStore struct {
	mu      sync.Mutex
	records map[recordKey]models.InventoryRecord
	nextID  int64
}

var _ port.InventoryStore = (*InventoryStore)(nil)

func NewInventoryStore() *InventoryStore {
	return &InventoryStore{records: make(map[recordKey]models.InventoryRecord)}
}

func (s *InventoryStore) Upsert(ctx context.Context, productID, locationID int64, quantity decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{productID, locationID}
	record, ok := s.records[key]
	if !ok {
		s.nextID++
		record = models.InventoryRecord{
			ID:         s.nextID,
			ProductID:  productID,
			LocationID: locationID,
		}
	}
	record.Quantity = quantity
	s.records[key] = record
	return nil
}

func (s *InventoryStore) Get(ctx context.Context, productID, locationID int64) (*models.InventoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[recordKey{productID, locationID}]
	if !ok {
		return nil, service.ErrRecordNotFound
	}
	out := record
	return &out, nil
}

func (s *InventoryStore) Deduct(ctx context.Context, productID, locationID int64, qty decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{productID, locationID}
	record, ok := s.records[key]
	if !ok {
		return service.ErrRecordNotFound
	}
	if record.Available().LessThan(qty) {
		return service.ErrInsufficientStock
	}
	record.Quantity = record.Quantity.Sub(qty)
	s.records[key] = record
	return nil
}

func (s *InventoryStore) Credit(ctx context.Context, productID, locationID int64, qty decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{productID, locationID}
	record, ok := s.records[key]
	if !ok {
		s.nextID++
		record = models.InventoryRecord{
			ID:         s.nextID,
			ProductID:  productID,
			LocationID: locationID,
		}
	}
	record.Quantity = record.Quantity.Add(qty)
	s.records[key] = record
	return nil
}

// Count reports how many records exist, for test assertions.
func (s *InventoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// RecipeCatalog serves recipes from a map.
type RecipeCatalog struct {
	mu      sync.RWMutex
	recipes map[int64]models.Recipe
}

var _ port.RecipeCatalog = (*RecipeCatalog)(nil)

func NewRecipeCatalog(recipes ...models.Recipe) *RecipeCatalog {
	c := &RecipeCatalog{recipes: make(map[int64]models.Recipe)}
	for _, r := range recipes {
		c.recipes[r.ID] = r
	}
	return c
}

func (c *RecipeCatalog) SetRecipe(recipe models.Recipe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recipes[recipe.ID] = recipe
}

func (c *RecipeCatalog) Get(ctx context.Context, recipeID int64) (*models.Recipe, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	recipe, ok := c.recipes[recipeID]
	if !ok {
		return nil, service.ErrRecipeNotFound
	}
	out := recipe
	return &out, nil
}

// ConversionRecords keeps the audit trail in memory.
type ConversionRecords struct {
	mu      sync.Mutex
	records map[int64]models.ConversionRecord
	nextID  int64
}

var _ port.ConversionRecords = (*ConversionRecords)(nil)

func NewConversionRecords() *ConversionRecords {
	return &ConversionRecords{records: make(map[int64]models.ConversionRecord)}
}

func (r *ConversionRecords) Create(ctx context.Context, record *models.ConversionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	record.ID = r.nextID
	r.records[record.ID] = *record
	return nil
}

func (r *ConversionRecords) Get(ctx context.Context, id int64) (*models.ConversionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return nil, service.ErrRecordNotFound
	}
	out := record
	return &out, nil
}

func (r *ConversionRecords) Update(ctx context.Context, record *models.ConversionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[record.ID]; !ok {
		return service.ErrRecordNotFound
	}
	r.records[record.ID] = *record
	return nil
}

func (r *ConversionRecords) List(ctx context.Context, filter port.ConversionFilter) ([]models.ConversionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matches := []models.ConversionRecord{}
	for _, record := range r.records {
		if filter.InputProductID != 0 && record.InputProductID != filter.InputProductID {
			continue
		}
		if filter.LocationID != 0 && record.LocationID != filter.LocationID {
			continue
		}
		if filter.Status != "" && record.Status != filter.Status {
			continue
		}
		matches = append(matches, record)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}
