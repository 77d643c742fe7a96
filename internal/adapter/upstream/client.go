// Package upstream talks to the remote inventory API over HTTP. The API has a
// known quirk: error pages sometimes prepend an HTML fragment to an otherwise
// valid JSON body, so every response goes through decodeEnvelope before use.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"veltra-system/internal/service"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// do performs the request and decodes the body into out. Transport errors map
// to ErrUpstreamUnavailable; undecodable bodies to ErrMalformedResponse.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", service.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%w: reading body: %v", service.ErrUpstreamUnavailable, err)
	}

	if out != nil {
		if err := decodeEnvelope(raw, out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

// decodeEnvelope parses raw as JSON. When the direct parse fails it retries
// from the first occurrence of `{"`, which skips any leading HTML noise the
// upstream is known to emit. Both failing classifies the payload as
// malformed.
func decodeEnvelope(raw []byte, out interface{}) error {
	if err := json.Unmarshal(raw, out); err == nil {
		return nil
	}

	if idx := bytes.Index(raw, []byte(`{"`)); idx >= 0 {
		if err := json.Unmarshal(raw[idx:], out); err == nil {
			return nil
		}
	}

	return fmt.Errorf("%w: %q", service.ErrMalformedResponse, truncate(raw, 120))
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}
