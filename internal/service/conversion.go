package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"veltra-system/internal/database/models"
	"veltra-system/internal/events"
	"veltra-system/internal/port"
)

var oneHundred = decimal.NewFromInt(100)

// ConversionWorkflow runs the stateful process that turns stock of an input
// product into stock of an output product. Lifecycle:
// yield_recording -> completed, or yield_recording -> cancelled. Terminal
// records are immutable.
type ConversionWorkflow struct {
	store   port.InventoryStore
	recipes port.RecipeCatalog
	records port.ConversionRecords
	bus     *events.Bus
}

func NewConversionWorkflow(store port.InventoryStore, recipes port.RecipeCatalog, records port.ConversionRecords, bus *events.Bus) *ConversionWorkflow {
	return &ConversionWorkflow{
		store:   store,
		recipes: recipes,
		records: records,
		bus:     bus,
	}
}

type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

type InitiateRequest struct {
	RecipeID        int64
	InputProductID  int64
	LocationID      int64
	InputQuantity   decimal.Decimal
	OutputProductID *int64
	// TargetQuantity replaces the ratio-computed expected output in direct
	// mode (no recipe).
	TargetQuantity *decimal.Decimal
	Notes          *string
}

type CompletionResult struct {
	Record   *models.ConversionRecord `json:"record"`
	Warnings []string                 `json:"warnings"`
}

// Validate checks a prospective conversion without side effects, so it is
// safe to call repeatedly from live form validation.
func (w *ConversionWorkflow) Validate(ctx context.Context, recipeID, inputProductID, locationID int64, inputQuantity decimal.Decimal) (*ValidationResult, error) {
	result := &ValidationResult{Errors: []string{}, Warnings: []string{}}

	if !inputQuantity.IsPositive() {
		result.Errors = append(result.Errors, "input quantity must be greater than zero")
	}

	recipe, err := w.recipes.Get(ctx, recipeID)
	switch {
	case errors.Is(err, ErrRecipeNotFound):
		result.Errors = append(result.Errors, fmt.Sprintf("recipe %d not found", recipeID))
	case err != nil:
		return nil, fmt.Errorf("fetching recipe %d: %w", recipeID, err)
	case !recipe.IsActive():
		result.Errors = append(result.Errors, fmt.Sprintf("recipe %q is not active", recipe.Name))
	case !recipe.BaseRatio.IsPositive():
		result.Warnings = append(result.Warnings, fmt.Sprintf("recipe %q has a non-positive base ratio; expected output will be zero", recipe.Name))
	}

	record, err := w.store.Get(ctx, inputProductID, locationID)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		result.Errors = append(result.Errors, fmt.Sprintf("no inventory record for product %d at location %d", inputProductID, locationID))
	case err != nil:
		return nil, fmt.Errorf("fetching inventory record: %w", err)
	default:
		available := record.Available()
		if available.LessThan(inputQuantity) {
			result.Errors = append(result.Errors, fmt.Sprintf("insufficient stock: available %s, requested %s", available.String(), inputQuantity.String()))
		} else if available.Equal(inputQuantity) {
			result.Warnings = append(result.Warnings, "conversion will exhaust input stock at this location")
		}
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

// Initiate validates the request, deducts the input stock and creates the
// conversion record, returned already awaiting yield. With no recipe the
// workflow runs in direct mode: the caller must name the output product and
// an explicit target quantity, and ratio/variance math is bypassed.
func (w *ConversionWorkflow) Initiate(ctx context.Context, req InitiateRequest) (*models.ConversionRecord, error) {
	if req.RecipeID == 0 {
		return w.initiateDirect(ctx, req)
	}

	validation, err := w.Validate(ctx, req.RecipeID, req.InputProductID, req.LocationID, req.InputQuantity)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, &RejectionError{Reasons: validation.Errors}
	}

	recipe, err := w.recipes.Get(ctx, req.RecipeID)
	if err != nil {
		return nil, fmt.Errorf("fetching recipe %d: %w", req.RecipeID, err)
	}

	expected := req.InputQuantity.Mul(recipe.BaseRatio)
	recipeID := recipe.ID

	return w.createRecord(ctx, req, &recipeID, expected)
}

func (w *ConversionWorkflow) initiateDirect(ctx context.Context, req InitiateRequest) (*models.ConversionRecord, error) {
	reasons := []string{}
	if !req.InputQuantity.IsPositive() {
		reasons = append(reasons, "input quantity must be greater than zero")
	}
	if req.OutputProductID == nil {
		reasons = append(reasons, "direct conversion requires an output product")
	}
	if req.TargetQuantity == nil || !req.TargetQuantity.IsPositive() {
		reasons = append(reasons, "direct conversion requires a positive target quantity")
	}
	if len(reasons) > 0 {
		return nil, &RejectionError{Reasons: reasons}
	}

	return w.createRecord(ctx, req, nil, *req.TargetQuantity)
}

func (w *ConversionWorkflow) createRecord(ctx context.Context, req InitiateRequest, recipeID *int64, expected decimal.Decimal) (*models.ConversionRecord, error) {
	// The deduct re-checks availability atomically; the Validate pass above
	// may be stale by the time we get here.
	if err := w.store.Deduct(ctx, req.InputProductID, req.LocationID, req.InputQuantity); err != nil {
		if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrRecordNotFound) {
			return nil, &RejectionError{Reasons: []string{err.Error()}}
		}
		return nil, fmt.Errorf("deducting input stock: %w", err)
	}

	record := &models.ConversionRecord{
		Reference:       uuid.NewString(),
		RecipeID:        recipeID,
		InputProductID:  req.InputProductID,
		OutputProductID: req.OutputProductID,
		LocationID:      req.LocationID,
		InputQuantity:   req.InputQuantity,
		ExpectedOutput:  expected,
		VarianceReasons: models.StringArray{},
		Status:          models.ConversionStatusYieldRecording,
		Notes:           req.Notes,
		CreatedAt:       time.Now(),
	}

	if err := w.records.Create(ctx, record); err != nil {
		// Put the stock back; the deduction must not outlive a failed create.
		if restoreErr := w.store.Credit(ctx, req.InputProductID, req.LocationID, req.InputQuantity); restoreErr != nil {
			return nil, fmt.Errorf("creating conversion record: %v (stock restore also failed: %w)", err, restoreErr)
		}
		return nil, fmt.Errorf("creating conversion record: %w", err)
	}

	return record, nil
}

// Complete records the measured yield, computes variance against the expected
// output and credits the output product when one was chosen at initiation.
// An out-of-tolerance variance flags the record for reporting but never
// rejects the completion.
func (w *ConversionWorkflow) Complete(ctx context.Context, conversionID int64, actualOutput decimal.Decimal, varianceReasons []string, notes *string) (*CompletionResult, error) {
	if actualOutput.IsNegative() {
		return nil, fmt.Errorf("%w: actual output must not be negative", ErrValidation)
	}

	record, err := w.records.Get(ctx, conversionID)
	if err != nil {
		return nil, err
	}
	if record.Status != models.ConversionStatusYieldRecording {
		return nil, fmt.Errorf("%w: cannot complete a %s conversion", ErrInvalidStateTransition, record.Status)
	}

	result := &CompletionResult{Warnings: []string{}}

	if !record.IsDirect() {
		variance, warning := computeVariance(record.ExpectedOutput, actualOutput)
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		record.VariancePercentage = &variance

		flagged, err := w.flagVariance(ctx, record, variance)
		if err != nil {
			return nil, err
		}
		record.VarianceFlagged = flagged
	}

	if record.OutputProductID != nil {
		if err := w.store.Credit(ctx, *record.OutputProductID, record.LocationID, actualOutput); err != nil {
			return nil, fmt.Errorf("crediting output stock: %w", err)
		}
	}

	now := time.Now()
	record.ActualOutput = &actualOutput
	record.VarianceReasons = append(record.VarianceReasons, varianceReasons...)
	if notes != nil {
		record.Notes = notes
	}
	record.Status = models.ConversionStatusCompleted
	record.CompletedAt = &now

	if err := w.records.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("updating conversion record: %w", err)
	}

	if w.bus != nil {
		w.bus.Publish(events.NewConversionCompleted(record.ID, record.InputProductID, record.LocationID, actualOutput, record.VariancePercentage, record.VarianceFlagged))
	}

	result.Record = record
	return result, nil
}

// computeVariance returns ((actual - expected) / expected) * 100. A zero
// expected output reports zero variance plus a warning instead of dividing
// by zero.
func computeVariance(expected, actual decimal.Decimal) (decimal.Decimal, string) {
	if expected.IsZero() {
		return decimal.Zero, "expected output is zero; variance reported as 0"
	}
	return actual.Sub(expected).Div(expected).Mul(oneHundred), ""
}

func (w *ConversionWorkflow) flagVariance(ctx context.Context, record *models.ConversionRecord, variance decimal.Decimal) (bool, error) {
	recipe, err := w.recipes.Get(ctx, *record.RecipeID)
	if errors.Is(err, ErrRecipeNotFound) {
		// The audit trail outlives recipe configuration.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fetching recipe %d: %w", *record.RecipeID, err)
	}
	if !recipe.TrackVariance {
		return false, nil
	}
	return variance.Abs().Div(oneHundred).GreaterThan(recipe.AcceptableVariance), nil
}

// Cancel reverses the input deduction and closes the record. Cancelling an
// already-cancelled record is a no-op; a completed record cannot be
// cancelled.
func (w *ConversionWorkflow) Cancel(ctx context.Context, conversionID int64, reason string) error {
	record, err := w.records.Get(ctx, conversionID)
	if err != nil {
		return err
	}

	switch record.Status {
	case models.ConversionStatusCancelled:
		return nil
	case models.ConversionStatusCompleted:
		return fmt.Errorf("%w: cannot cancel a completed conversion", ErrInvalidStateTransition)
	}

	if err := w.store.Credit(ctx, record.InputProductID, record.LocationID, record.InputQuantity); err != nil {
		return fmt.Errorf("restoring input stock: %w", err)
	}

	record.Status = models.ConversionStatusCancelled
	if reason != "" {
		note := "cancelled: " + reason
		record.Notes = &note
	}

	if err := w.records.Update(ctx, record); err != nil {
		return fmt.Errorf("updating conversion record: %w", err)
	}

	if w.bus != nil {
		w.bus.Publish(events.NewConversionCancelled(record.ID, record.InputProductID, record.LocationID, reason))
	}

	return nil
}

// Get returns a single conversion record.
func (w *ConversionWorkflow) Get(ctx context.Context, conversionID int64) (*models.ConversionRecord, error) {
	return w.records.Get(ctx, conversionID)
}

// List returns conversion history matching the filter, newest first.
func (w *ConversionWorkflow) List(ctx context.Context, filter port.ConversionFilter) ([]models.ConversionRecord, error) {
	return w.records.List(ctx, filter)
}
