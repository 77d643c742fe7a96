// Package storage implements the ports against the local postgres database.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"veltra-system/internal/database/models"
	"veltra-system/internal/port"
	"veltra-system/internal/service"
)

type InventoryStore struct {
	db *gorm.DB
}

var _ port.InventoryStore = (*InventoryStore)(nil)

func NewInventoryStore(db *gorm.DB) *InventoryStore {
	return &InventoryStore{db: db}
}

func (s *InventoryStore) Upsert(ctx context.Context, productID, locationID int64, quantity decimal.Decimal) error {
	record := models.InventoryRecord{
		ProductID:  productID,
		LocationID: locationID,
		Quantity:   quantity,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "location_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"quantity": quantity}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("upserting inventory record: %w", err)
	}
	return nil
}

func (s *InventoryStore) Get(ctx context.Context, productID, locationID int64) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	err := s.db.WithContext(ctx).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, service.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching inventory record: %w", err)
	}
	return &record, nil
}

// Deduct is a conditional update: the WHERE clause guards against overdraw so
// concurrent conversions on the same key cannot drive stock negative.
func (s *InventoryStore) Deduct(ctx context.Context, productID, locationID int64, qty decimal.Decimal) error {
	res := s.db.WithContext(ctx).Model(&models.InventoryRecord{}).
		Where("product_id = ? AND location_id = ? AND quantity - reserved_quantity >= ?", productID, locationID, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return fmt.Errorf("deducting stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(ctx, productID, locationID); err != nil {
			return err
		}
		return service.ErrInsufficientStock
	}
	return nil
}

func (s *InventoryStore) Credit(ctx context.Context, productID, locationID int64, qty decimal.Decimal) error {
	res := s.db.WithContext(ctx).Model(&models.InventoryRecord{}).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		Update("quantity", gorm.Expr("quantity + ?", qty))
	if res.Error != nil {
		return fmt.Errorf("crediting stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.Upsert(ctx, productID, locationID, qty)
	}
	return nil
}
