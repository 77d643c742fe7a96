package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"veltra-system/internal/database/models"
	"veltra-system/internal/port"
	"veltra-system/internal/service"
)

const (
	locationsCacheKey = "locations:active"
	locationsCacheTTL = 5 * time.Minute
)

// LocationDirectory reads active locations from the upstream API with a redis
// cache in front.
type LocationDirectory struct {
	client *Client
	redis  *redis.Client
}

var _ port.LocationDirectory = (*LocationDirectory)(nil)

func NewLocationDirectory(client *Client, redisClient *redis.Client) *LocationDirectory {
	return &LocationDirectory{client: client, redis: redisClient}
}

type listLocationsResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Locations []models.Location `json:"locations"`
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

	var resp listLocationsResponse
	status, err := d.client.do(ctx, http.MethodGet, "/locations?active=true", nil, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || !resp.Success {
		return nil, fmt.Errorf("%w: location listing returned status %d", service.ErrUpstreamUnavailable, status)
	}

	if d.redis != nil {
		if payload, err := json.Marshal(resp.Locations); err == nil {
			_ = d.redis.Set(ctx, locationsCacheKey, payload, locationsCacheTTL)
		}
	}

	return resp.Locations, nil
}

// InvalidateCache drops the cached location list, for callers that change
// location configuration out of band.
func (d *LocationDirectory) InvalidateCache(ctx context.Context) {
	if d.redis != nil {
		_ = d.redis.Del(ctx, locationsCacheKey)
	}
}
