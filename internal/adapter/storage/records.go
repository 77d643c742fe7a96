package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"veltra-system/internal/database/models"
	"veltra-system/internal/port"
	"veltra-system/internal/service"
)

type ConversionRecords struct {
	db *gorm.DB
}

var _ port.ConversionRecords = (*ConversionRecords)(nil)

func NewConversionRecords(db *gorm.DB) *ConversionRecords {
	return &ConversionRecords{db: db}
}

func (r *ConversionRecords) Create(ctx context.Context, record *models.ConversionRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("creating conversion record: %w", err)
	}
	return nil
}

func (r *ConversionRecords) Get(ctx context.Context, id int64) (*models.ConversionRecord, error) {
	var record models.ConversionRecord
	err := r.db.WithContext(ctx).First(&record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, service.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching conversion record %d: %w", id, err)
	}
	return &record, nil
}

func (r *ConversionRecords) Update(ctx context.Context, record *models.ConversionRecord) error {
	res := r.db.WithContext(ctx).Save(record)
	if res.Error != nil {
		return fmt.Errorf("updating conversion record %d: %w", record.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return service.ErrRecordNotFound
	}
	return nil
}

func (r *ConversionRecords) List(ctx context.Context, filter port.ConversionFilter) ([]models.ConversionRecord, error) {
	query := r.db.WithContext(ctx).Model(&models.ConversionRecord{})
	if filter.InputProductID != 0 {
		query = query.Where("input_product_id = ?", filter.InputProductID)
	}
	if filter.LocationID != 0 {
		query = query.Where("location_id = ?", filter.LocationID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var records []models.ConversionRecord
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("listing conversion records: %w", err)
	}
	return records, nil
}
