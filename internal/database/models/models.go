package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type StringArray []string

func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = []string{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan StringArray: %v", value)
	}
	return json.Unmarshal(bytes, a)
}

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return json.Marshal(a)
}

type Location struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"size:255" json:"name"`
	Slug      string `gorm:"size:100;uniqueIndex" json:"slug"`
	IsActive  bool   `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InventoryRecord is unique per (product, location).
type InventoryRecord struct {
	ID               int64           `gorm:"primaryKey" json:"id"`
	ProductID        int64           `gorm:"uniqueIndex:idx_product_location" json:"product_id"`
	LocationID       int64           `gorm:"uniqueIndex:idx_product_location" json:"location_id"`
	Quantity         decimal.Decimal `gorm:"type:numeric" json:"quantity"`
	ReservedQuantity decimal.Decimal `gorm:"type:numeric" json:"reserved_quantity"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Available is the quantity callers may act on, clamped at zero when
// reservations exceed stock.
func (r InventoryRecord) Available() decimal.Decimal {
	available := r.Quantity.Sub(r.ReservedQuantity)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

type ConversionType int32

const (
	ConversionTypeSimple ConversionType = iota
	ConversionTypeCompound
)

type RecipeStatus int32

const (
	RecipeStatusActive RecipeStatus = iota
	RecipeStatusInactive
)

type Recipe struct {
	ID                 int64            `gorm:"primaryKey" json:"id"`
	Name               string           `gorm:"size:255" json:"name"`
	ConversionType     ConversionType   `json:"conversion_type"`
	InputCategoryIDs   StringArray      `gorm:"type:text" json:"input_category_ids"`
	OutputCategoryID   *int64           `json:"output_category_id"`
	BaseRatio          decimal.Decimal  `gorm:"type:numeric" json:"base_ratio"`
	RatioUnit          string           `gorm:"size:50" json:"ratio_unit"`
	AllowOverride      bool             `json:"allow_override"`
	ExpectedYieldRatio *decimal.Decimal `gorm:"type:numeric" json:"expected_yield_ratio"`
	TypicalYieldRatio  *decimal.Decimal `gorm:"type:numeric" json:"typical_yield_ratio"`
	AcceptableVariance decimal.Decimal  `gorm:"type:numeric" json:"acceptable_variance"`
	TrackVariance      bool             `json:"track_variance"`
	Status             RecipeStatus     `json:"status"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

func (r Recipe) IsActive() bool {
	return r.Status == RecipeStatusActive
}

type ConversionStatus string

const (
	ConversionStatusPending        ConversionStatus = "pending"
	ConversionStatusYieldRecording ConversionStatus = "yield_recording"
	ConversionStatusCompleted      ConversionStatus = "completed"
	ConversionStatusCancelled      ConversionStatus = "cancelled"
)

// ConversionRecord is the audit trail of a stock conversion. Records are never
// deleted; terminal statuses are immutable.
type ConversionRecord struct {
	ID                 int64            `gorm:"primaryKey" json:"id"`
	Reference          string           `gorm:"size:36;uniqueIndex" json:"reference"`
	RecipeID           *int64           `json:"recipe_id"`
	InputProductID     int64            `json:"input_product_id"`
	OutputProductID    *int64           `json:"output_product_id"`
	LocationID         int64            `json:"location_id"`
	InputQuantity      decimal.Decimal  `gorm:"type:numeric" json:"input_quantity"`
	ExpectedOutput     decimal.Decimal  `gorm:"type:numeric" json:"expected_output"`
	ActualOutput       *decimal.Decimal `gorm:"type:numeric" json:"actual_output"`
	VariancePercentage *decimal.Decimal `gorm:"type:numeric" json:"variance_percentage"`
	VarianceReasons    StringArray      `gorm:"type:text" json:"variance_reasons"`
	VarianceFlagged    bool             `json:"variance_flagged"`
	Status             ConversionStatus `gorm:"size:20" json:"status"`
	Notes              *string          `gorm:"size:1000" json:"notes"`
	CreatedAt          time.Time        `json:"created_at"`
	CompletedAt        *time.Time       `json:"completed_at"`
}

func (r ConversionRecord) IsTerminal() bool {
	return r.Status == ConversionStatusCompleted || r.Status == ConversionStatusCancelled
}

// IsDirect reports whether the record was created without a recipe, from an
// explicit target quantity.
func (r ConversionRecord) IsDirect() bool {
	return r.RecipeID == nil
}
