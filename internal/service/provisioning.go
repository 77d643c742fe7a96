package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"veltra-system/internal/database/models"
	"veltra-system/internal/events"
	"veltra-system/internal/port"
)

const defaultWorkerLimit = 8

// ProvisioningService ensures a product has an inventory record at every
// active location.
type ProvisioningService struct {
	locations port.LocationDirectory
	store     port.InventoryStore
	bus       *events.Bus
	workers   int
}

func NewProvisioningService(locations port.LocationDirectory, store port.InventoryStore, bus *events.Bus, workers int) *ProvisioningService {
	if workers <= 0 {
		workers = defaultWorkerLimit
	}
	return &ProvisioningService{
		locations: locations,
		store:     store,
		bus:       bus,
		workers:   workers,
	}
}

type ProvisioningResult struct {
	Success              bool     `json:"success"`
	Message              string   `json:"message"`
	InitializedLocations []int64  `json:"initialized_locations"`
	Errors               []string `json:"errors"`
}

type StatusResult struct {
	HasInventory     bool    `json:"has_inventory"`
	MissingLocations []int64 `json:"missing_locations"`
	TotalLocations   int     `json:"total_locations"`
}

type locationOutcome struct {
	location models.Location
	err      error
}

// Initialize upserts an inventory record for productID at every active
// location. Each location is attempted independently: one failure never
// prevents the remaining attempts, and the operation succeeds when at least
// one location succeeds.
func (s *ProvisioningService) Initialize(ctx context.Context, productID int64, initialQuantity decimal.Decimal) (*ProvisioningResult, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("%w: product id must be positive", ErrValidation)
	}
	if initialQuantity.IsNegative() {
		return nil, fmt.Errorf("%w: initial quantity must not be negative", ErrValidation)
	}

	locations, err := s.locations.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active locations: %w", err)
	}
	if len(locations) == 0 {
		return nil, ErrNoActiveLocations
	}

	outcomes := s.fanOut(ctx, locations, func(ctx context.Context, loc models.Location) error {
		return s.store.Upsert(ctx, productID, loc.ID, initialQuantity)
	})

	result := &ProvisioningResult{
		InitializedLocations: []int64{},
		Errors:               []string{},
	}
	for _, outcome := range outcomes {
		if outcome.err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("location %d (%s): %v", outcome.location.ID, outcome.location.Name, outcome.err))
			continue
		}
		result.InitializedLocations = append(result.InitializedLocations, outcome.location.ID)
	}
	sort.Slice(result.InitializedLocations, func(i, j int) bool {
		return result.InitializedLocations[i] < result.InitializedLocations[j]
	})

	result.Success = len(result.InitializedLocations) > 0
	result.Message = fmt.Sprintf("%d/%d locations initialized", len(result.InitializedLocations), len(locations))

	if result.Success && s.bus != nil {
		partial := len(result.Errors) > 0
		s.bus.Publish(events.NewInventoryProvisioned(productID, result.InitializedLocations, partial))
	}

	return result, nil
}

// fanOut runs fn once per location with bounded concurrency and collects
// every outcome. Errors are gathered, never short-circuited.
func (s *ProvisioningService) fanOut(ctx context.Context, locations []models.Location, fn func(context.Context, models.Location) error) []locationOutcome {
	sem := make(chan struct{}, s.workers)
	results := make(chan locationOutcome, len(locations))

	var wg sync.WaitGroup
	for _, loc := range locations {
		wg.Add(1)
		go func(loc models.Location) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- locationOutcome{location: loc, err: fn(ctx, loc)}
		}(loc)
	}
	wg.Wait()
	close(results)

	outcomes := make([]locationOutcome, 0, len(locations))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// CheckStatus reports which active locations are missing an inventory record
// for productID. It never mutates state. An indeterminate location listing is
// downgraded to "no inventory anywhere" so callers treat it as needing
// attention instead of failing.
func (s *ProvisioningService) CheckStatus(ctx context.Context, productID int64) (*StatusResult, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("%w: product id must be positive", ErrValidation)
	}

	locations, err := s.locations.ListActive(ctx)
	if err != nil {
		return &StatusResult{
			HasInventory:     false,
			MissingLocations: []int64{},
			TotalLocations:   0,
		}, nil
	}

	outcomes := s.fanOut(ctx, locations, func(ctx context.Context, loc models.Location) error {
		_, err := s.store.Get(ctx, productID, loc.ID)
		return err
	})

	missing := []int64{}
	for _, outcome := range outcomes {
		if outcome.err != nil {
			missing = append(missing, outcome.location.ID)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })

	return &StatusResult{
		HasInventory:     len(missing) == 0,
		MissingLocations: missing,
		TotalLocations:   len(locations),
	}, nil
}
