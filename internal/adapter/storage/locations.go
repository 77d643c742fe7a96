package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"veltra-system/internal/database/models"
	"veltra-system/internal/port"
)

const (
	locationsCacheKey = "locations:active"
	locationsCacheTTL = 5 * time.Minute
)

// LocationDirectory reads active locations from the local database, with a
// redis cache in front when one is configured.
type LocationDirectory struct {
	db    *gorm.DB
	redis *redis.Client
}

var _ port.LocationDirectory = (*LocationDirectory)(nil)

func NewLocationDirectory(db *gorm.DB, redisClient *redis.Client) *LocationDirectory {
	return &LocationDirectory{db: db, redis: redisClient}
}

func (d *LocationDirectory) ListActive(ctx context.Context) ([]models.Location, error) {
	if d.redis != nil {
		if cached, err := d.redis.Get(ctx, locationsCacheKey).Bytes(); err == nil {
			var locations []models.Location
			if json.Unmarshal(cached, &locations) == nil {
				return locations, nil
			}
		}
	}

	var locations []models.Location
	if err := d.db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("listing active locations: %w", err)
	}

	if d.redis != nil {
		if payload, err := json.Marshal(locations); err == nil {
			_ = d.redis.Set(ctx, locationsCacheKey, payload, locationsCacheTTL)
		}
	}

	return locations, nil
}

// InvalidateCache drops the cached location list after location config edits.
func (d *LocationDirectory) InvalidateCache(ctx context.Context) {
	if d.redis != nil {
		_ = d.redis.Del(ctx, locationsCacheKey)
	}
}
