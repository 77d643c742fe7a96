package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"veltra-system/internal/database/models"
	"veltra-system/internal/port"
	"veltra-system/internal/service"
)

const (
	recipeCachePrefix = "recipes:"
	recipeCacheTTL    = 30 * time.Minute
)

type RecipeCatalog struct {
	db    *gorm.DB
	redis *redis.Client
}

var _ port.RecipeCatalog = (*RecipeCatalog)(nil)

func NewRecipeCatalog(db *gorm.DB, redisClient *redis.Client) *RecipeCatalog {
	return &RecipeCatalog{db: db, redis: redisClient}
}

func (c *RecipeCatalog) Get(ctx context.Context, recipeID int64) (*models.Recipe, error) {
	cacheKey := fmt.Sprintf("%s%d", recipeCachePrefix, recipeID)

	if c.redis != nil {
		if cached, err := c.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var recipe models.Recipe
			if json.Unmarshal(cached, &recipe) == nil {
				return &recipe, nil
			}
		}
	}

	var recipe models.Recipe
	err := c.db.WithContext(ctx).First(&recipe, recipeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, service.ErrRecipeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching recipe %d: %w", recipeID, err)
	}

	if c.redis != nil {
		if payload, err := json.Marshal(recipe); err == nil {
			_ = c.redis.Set(ctx, cacheKey, payload, recipeCacheTTL)
		}
	}

	return &recipe, nil
}

// Invalidate drops a cached recipe after configuration edits.
func (c *RecipeCatalog) Invalidate(ctx context.Context, recipeID int64) {
	if c.redis != nil {
		_ = c.redis.Del(ctx, fmt.Sprintf("%s%d", recipeCachePrefix, recipeID))
	}
}
