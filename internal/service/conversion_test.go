package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"veltra-system/internal/adapter/memory"
	"veltra-system/internal/database/models"
	"veltra-system/internal/port"
	"veltra-system/internal/service"
)

type workflowFixture struct {
	workflow *service.ConversionWorkflow
	store    *memory.InventoryStore
	recipes  *memory.RecipeCatalog
	records  *memory.ConversionRecords
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()

	store := memory.NewInventoryStore()
	recipes := memory.NewRecipeCatalog(models.Recipe{
		ID:                 1,
		Name:               "Whole to Ground",
		BaseRatio:          decimal.NewFromFloat(0.5),
		RatioUnit:          "kg",
		AcceptableVariance: decimal.NewFromFloat(0.05),
		TrackVariance:      true,
		Status:             models.RecipeStatusActive,
	})
	records := memory.NewConversionRecords()

	if err := store.Upsert(context.Background(), 100, 1, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("seeding stock failed: %v", err)
	}

	return &workflowFixture{
		workflow: service.NewConversionWorkflow(store, recipes, records, nil),
		store:    store,
		recipes:  recipes,
		records:  records,
	}
}

func (f *workflowFixture) quantityAt(t *testing.T, productID, locationID int64) decimal.Decimal {
	t.Helper()
	record, err := f.store.Get(context.Background(), productID, locationID)
	if err != nil {
		t.Fatalf("Get(%d, %d) failed: %v", productID, locationID, err)
	}
	return record.Quantity
}

func TestValidate_OK(t *testing.T) {
	f := newWorkflowFixture(t)

	result, err := f.workflow.Validate(context.Background(), 1, 100, 1, decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected valid, got errors: %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", result.Warnings)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	f := newWorkflowFixture(t)
	f.recipes.SetRecipe(models.Recipe{
		ID:        2,
		Name:      "Retired",
		BaseRatio: decimal.NewFromInt(1),
		Status:    models.RecipeStatusInactive,
	})

	tests := []struct {
		name     string
		recipeID int64
		product  int64
		location int64
		quantity decimal.Decimal
		want     string
	}{
		{"missing recipe", 99, 100, 1, decimal.NewFromInt(1), "recipe 99 not found"},
		{"inactive recipe", 2, 100, 1, decimal.NewFromInt(1), "not active"},
		{"non-positive quantity", 1, 100, 1, decimal.Zero, "greater than zero"},
		{"no inventory record", 1, 200, 1, decimal.NewFromInt(1), "no inventory record"},
		{"insufficient stock", 1, 100, 1, decimal.NewFromInt(500), "insufficient stock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.workflow.Validate(context.Background(), tt.recipeID, tt.product, tt.location, tt.quantity)
			if err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
			if result.Valid {
				t.Fatal("expected invalid")
			}
			found := false
			for _, e := range result.Errors {
				if strings.Contains(e, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("expected an error containing %q, got %v", tt.want, result.Errors)
			}
		})
	}
}

func TestValidate_WarnsOnExhaustingStock(t *testing.T) {
	f := newWorkflowFixture(t)

	result, err := f.workflow.Validate(context.Background(), 1, 100, 1, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid, got errors: %v", result.Errors)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "exhaust") {
		t.Errorf("expected exhaustion warning, got %v", result.Warnings)
	}
}

func TestValidate_HasNoSideEffects(t *testing.T) {
	f := newWorkflowFixture(t)

	for i := 0; i < 3; i++ {
		if _, err := f.workflow.Validate(context.Background(), 1, 100, 1, decimal.NewFromInt(10)); err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
	}

	if got := f.quantityAt(t, 100, 1); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Validate must not mutate stock, quantity now %s", got)
	}
}

func TestInitiate_ComputesExpectedOutput(t *testing.T) {
	f := newWorkflowFixture(t)

	record, err := f.workflow.Initiate(context.Background(), service.InitiateRequest{
		RecipeID:       1,
		InputProductID: 100,
		LocationID:     1,
		InputQuantity:  decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	if !record.ExpectedOutput.Equal(decimal.NewFromFloat(5.0)) {
		t.Errorf("expected output 5.0, got %s", record.ExpectedOutput)
	}
	if record.Status != models.ConversionStatusYieldRecording {
		t.Errorf("expected status yield_recording, got %s", record.Status)
	}
	if record.Reference == "" {
		t.Error("expected a non-empty reference")
	}
	if got := f.quantityAt(t, 100, 1); !got.Equal(decimal.NewFromInt(90)) {
		t.Errorf("expected input stock deducted to 90, got %s", got)
	}
}

func TestInitiate_RejectedLeavesStockUntouched(t *testing.T) {
	f := newWorkflowFixture(t)

	_, err := f.workflow.Initiate(context.Background(), service.InitiateRequest{
		RecipeID:       1,
		InputProductID: 100,
		LocationID:     1,
		InputQuantity:  decimal.NewFromInt(500),
	})
	if !errors.Is(err, service.ErrConversionRejected) {
		t.Fatalf("expected ErrConversionRejected, got %v", err)
	}

	var rejection *service.RejectionError
	if !errors.As(err, &rejection) || len(rejection.Reasons) == 0 {
		t.Fatalf("expected a RejectionError with reasons, got %v", err)
	}

	if got := f.quantityAt(t, 100, 1); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("stock must be untouched after rejection, got %s", got)
	}
}

func TestComplete_ComputesVariance(t *testing.T) {
	f := newWorkflowFixture(t)
	output := int64(200)

	record, err := f.workflow.Initiate(context.Background(), service.InitiateRequest{
		RecipeID:        1,
		InputProductID:  100,
		LocationID:      1,
		InputQuantity:   decimal.NewFromInt(10),
		OutputProductID: &output,
	})
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	result, err := f.workflow.Complete(context.Background(), record.ID, decimal.NewFromFloat(4.5), []string{"moisture loss"}, nil)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	completed := result.Record
	if completed.Status != models.ConversionStatusCompleted {
		t.Errorf("expected status completed, got %s", completed.Status)
	}
	if completed.VariancePercentage == nil || !completed.VariancePercentage.Equal(decimal.NewFromFloat(-10.0)) {
		t.Errorf("expected variance -10.0, got %v", completed.VariancePercentage)
	}
	if completed.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
	if len(completed.VarianceReasons) != 1 || completed.VarianceReasons[0] != "moisture loss" {
		t.Errorf("unexpected variance reasons: %v", completed.VarianceReasons)
	}

	// -10% exceeds the 5% tolerance, so the record is flagged but completion
	// still succeeded.
	if !completed.VarianceFlagged {
		t.Error("expected record flagged for variance reporting")
	}

	if got := f.quantityAt(t, 200, 1); !got.Equal(decimal.NewFromFloat(4.5)) {
		t.Errorf("expected output stock credited with 4.5, got %s", got)
	}
}

func TestComplete_ZeroVarianceWhenExact(t *testing.T) {
	f := newWorkflowFixture(t)

	record, err := f.workflow.Initiate(context.Background(), service.InitiateRequest{
		RecipeID:       1,
		InputProductID: 100,
		LocationID:     1,
		InputQuantity:  decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	result, err := f.workflow.Complete(context.Background(), record.ID, decimal.NewFromFloat(5.0), nil, nil)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if result.Record.VariancePercentage == nil || !result.Record.VariancePercentage.IsZero() {
		t.Errorf("expected variance 0, got %v", result.Record.VariancePercentage)
	}
	if result.Record.VarianceFlagged {
		t.Error("zero variance must not be flagged")
	}
}

func TestComplete_ZeroExpectedOutputGuard(t *testing.T) {
	f := newWorkflowFixture(t)
	f.recipes.SetRecipe(models.Recipe{
		ID:        3,
		Name:      "Misconfigured",
		BaseRatio: decimal.Zero,
		Status:    models.RecipeStatusActive,
	})

	record, err := f.workflow.Initiate(context.Background(), service.InitiateRequest{
		RecipeID:       3,
		InputProductID: 100,
		LocationID:     1,
		InputQuantity:  decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	if !record.ExpectedOutput.IsZero() {
		t.Fatalf("expected zero expected output, got %s", record.ExpectedOutput)
	}

	result, err := f.workflow.Complete(context.Background(), record.ID, decimal.NewFromInt(2), nil, nil)
	if err != nil {
		t.Fatalf("Complete must not fail on zero expected output: %v", err)
	}
	if result.Record.VariancePercentage == nil || !result.Record.VariancePercentage.IsZero() {
		t.Errorf("expected variance 0, got %v", result.Record.VariancePercentage)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("expected a zero-expected-output warning, got %v", result.Warnings)
	}
}

func TestComplete_InvalidStates(t *testing.T) {
	f := newWorkflowFixture(t)

	record, err := f.workflow.Initiate(context.Background(), service.InitiateRequest{
		RecipeID:       1,
		InputProductID: 100,
		LocationID:     1,
		InputQuantity:  decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	if _, err := f.workflow.Complete(context.Background(), record.ID, decimal.NewFromInt(-1), nil, nil); !errors.Is(err, service.ErrValidation) {
		t.Errorf("expected ErrValidation for negative actual output, got %v", err)
	}

	if _, err := f.workflow.Complete(context.Background(), record.ID, decimal.NewFromInt(5), nil, nil); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	// Completing twice violates the state machine.
	if _, err := f.workflow.Complete(context.Background(), record.ID, decimal.NewFromInt(5), nil, nil); !errors.Is(err, service.ErrInvalidStateTransition) {
		t.Errorf("expected ErrInvalidStateTransition, got %v", err)
	}

	if _, err := f.workflow.Complete(context.Background(), 999, decimal.NewFromInt(5), nil, nil); !errors.Is(err, service.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestCancel_RestoresStock(t *testing.T) {
	f := newWorkflowFixture(t)

	record, err := f.workflow.Initiate(context.Background(), service.InitiateRequest{
		RecipeID:       1,
		InputProductID: 100,
		LocationID:     1,
		InputQuantity:  decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	if got := f.quantityAt(t, 100, 1); !got.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected 90 after deduction, got %s", got)
	}

	if err := f.workflow.Cancel(context.Background(), record.ID, "operator error"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if got := f.quantityAt(t, 100, 1); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected stock restored to 100, got %s", got)
	}

	cancelled, err := f.records.Get(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if cancelled.Status != models.ConversionStatusCancelled {
		t.Errorf("expected status cancelled, got %s", cancelled.Status)
	}

	// Cancelling again is a no-op, not an error, and must not credit twice.
	if err := f.workflow.Cancel(context.Background(), record.ID, ""); err != nil {
		t.Errorf("repeat cancel should be a no-op, got %v", err)
	}
	if got := f.quantityAt(t, 100, 1); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("repeat cancel must not credit again, got %s", got)
	}
}

func TestCancel_CompletedRecordRejected(t *testing.T) {
	f := newWorkflowFixture(t)

	record, err := f.workflow.Initiate(context.Background(), service.InitiateRequest{
		RecipeID:       1,
		InputProductID: 100,
		LocationID:     1,
		InputQuantity:  decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	if _, err := f.workflow.Complete(context.Background(), record.ID, decimal.NewFromInt(5), nil, nil); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if err := f.workflow.Cancel(context.Background(), record.ID, ""); !errors.Is(err, service.ErrInvalidStateTransition) {
		t.Errorf("expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestDirectConversion(t *testing.T) {
	f := newWorkflowFixture(t)
	output := int64(200)
	target := decimal.NewFromInt(8)

	// Direct mode requires both the output product and a target quantity.
	_, err := f.workflow.Initiate(context.Background(), service.InitiateRequest{
		InputProductID: 100,
		LocationID:     1,
		InputQuantity:  decimal.NewFromInt(10),
	})
	if !errors.Is(err, service.ErrConversionRejected) {
		t.Fatalf("expected rejection without output/target, got %v", err)
	}

	record, err := f.workflow.Initiate(context.Background(), service.InitiateRequest{
		InputProductID:  100,
		LocationID:      1,
		InputQuantity:   decimal.NewFromInt(10),
		OutputProductID: &output,
		TargetQuantity:  &target,
	})
	if err != nil {
		t.Fatalf("direct Initiate failed: %v", err)
	}
	if !record.IsDirect() {
		t.Error("expected a direct record")
	}
	if !record.ExpectedOutput.Equal(target) {
		t.Errorf("expected output to equal target %s, got %s", target, record.ExpectedOutput)
	}

	result, err := f.workflow.Complete(context.Background(), record.ID, decimal.NewFromInt(7), nil, nil)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	// Direct mode bypasses variance math entirely.
	if result.Record.VariancePercentage != nil {
		t.Errorf("expected no variance in direct mode, got %v", result.Record.VariancePercentage)
	}
	if got := f.quantityAt(t, 200, 1); !got.Equal(decimal.NewFromInt(7)) {
		t.Errorf("expected output credited with 7, got %s", got)
	}
}

func TestInitiate_ConcurrentNeverOverdraws(t *testing.T) {
	f := newWorkflowFixture(t)
	if err := f.store.Upsert(context.Background(), 100, 1, decimal.NewFromInt(20)); err != nil {
		t.Fatalf("seeding stock failed: %v", err)
	}

	totalRequests := 50
	var successCount, rejectCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.workflow.Initiate(context.Background(), service.InitiateRequest{
				RecipeID:       1,
				InputProductID: 100,
				LocationID:     1,
				InputQuantity:  decimal.NewFromInt(1),
			})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrConversionRejected):
				rejectCount.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != 20 {
		t.Errorf("expected 20 successful conversions, got %d", successCount.Load())
	}
	if rejectCount.Load() != 30 {
		t.Errorf("expected 30 rejections, got %d", rejectCount.Load())
	}
	if got := f.quantityAt(t, 100, 1); !got.IsZero() {
		t.Errorf("expected stock exhausted to 0, got %s", got)
	}
}

func TestList_FiltersHistory(t *testing.T) {
	f := newWorkflowFixture(t)

	record, err := f.workflow.Initiate(context.Background(), service.InitiateRequest{
		RecipeID:       1,
		InputProductID: 100,
		LocationID:     1,
		InputQuantity:  decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	if _, err := f.workflow.Initiate(context.Background(), service.InitiateRequest{
		RecipeID:       1,
		InputProductID: 100,
		LocationID:     1,
		InputQuantity:  decimal.NewFromInt(5),
	}); err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	if _, err := f.workflow.Complete(context.Background(), record.ID, decimal.NewFromInt(5), nil, nil); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	completed, err := f.workflow.List(context.Background(), port.ConversionFilter{Status: models.ConversionStatusCompleted})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != record.ID {
		t.Errorf("expected only the completed record, got %v", completed)
	}

	all, err := f.workflow.List(context.Background(), port.ConversionFilter{InputProductID: 100})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 records for product 100, got %d", len(all))
	}
}
