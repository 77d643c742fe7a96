package upstream

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"veltra-system/internal/database/models"
	"veltra-system/internal/port"
	"veltra-system/internal/service"
)

// InventoryStore proxies stock records to the upstream inventory API. The
// upstream performs the conditional "deduct where available covers it" check
// and answers 409 when stock is short.
type InventoryStore struct {
	client *Client
}

var _ port.InventoryStore = (*InventoryStore)(nil)

func NewInventoryStore(client *Client) *InventoryStore {
	return &InventoryStore{client: client}
}

type stockRequest struct {
	ProductID  int64           `json:"product_id"`
	LocationID int64           `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}

type stockResponse struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Record  *models.InventoryRecord `json:"record"`
}

func (s *InventoryStore) Upsert(ctx context.Context, productID, locationID int64, quantity decimal.Decimal) error {
	return s.mutate(ctx, "/stocks/upsert", productID, locationID, quantity)
}

func (s *InventoryStore) Get(ctx context.Context, productID, locationID int64) (*models.InventoryRecord, error) {
	path := fmt.Sprintf("/stocks?product_id=%d&location_id=%d", productID, locationID)

	var resp stockResponse
	status, err := s.client.do(ctx, http.MethodGet, path, nil, &resp)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, service.ErrRecordNotFound
	case status != http.StatusOK || !resp.Success || resp.Record == nil:
		return nil, fmt.Errorf("%w: stock lookup returned status %d", service.ErrUpstreamUnavailable, status)
	}
	return resp.Record, nil
}

func (s *InventoryStore) Deduct(ctx context.Context, productID, locationID int64, qty decimal.Decimal) error {
	return s.mutate(ctx, "/stocks/deduct", productID, locationID, qty)
}

func (s *InventoryStore) Credit(ctx context.Context, productID, locationID int64, qty decimal.Decimal) error {
	return s.mutate(ctx, "/stocks/credit", productID, locationID, qty)
}

func (s *InventoryStore) mutate(ctx context.Context, path string, productID, locationID int64, qty decimal.Decimal) error {
	req := stockRequest{ProductID: productID, LocationID: locationID, Quantity: qty}

	var resp stockResponse
	status, err := s.client.do(ctx, http.MethodPost, path, req, &resp)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusConflict:
		return service.ErrInsufficientStock
	case status == http.StatusNotFound:
		return service.ErrRecordNotFound
	case status != http.StatusOK || !resp.Success:
		return fmt.Errorf("%w: %s returned status %d: %s", service.ErrUpstreamUnavailable, path, status, resp.Message)
	}
	return nil
}
