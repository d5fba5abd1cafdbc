// Package samsara implements provider adapters for the Samsara fleet APIs.
package samsara

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/foresyt/fleetsync/internal/config"
	"github.com/foresyt/fleetsync/internal/models"
	"github.com/foresyt/fleetsync/internal/provider"
)

// Client holds the credentials and pagination policy shared by the Samsara
// endpoint adapters. Each adapter is an independent endpoint view over the
// same client, so fetches can run concurrently.
type Client struct {
	baseURL   string
	token     string
	http      *http.Client
	pageLimit int
	pageDelay time.Duration
}

// NewClient constructs a Samsara API client from config.
func NewClient(cfg config.SamsaraConfig) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		token:     cfg.APIToken,
		http:      &http.Client{Timeout: cfg.Timeout},
		pageLimit: cfg.PageLimit,
		pageDelay: cfg.PageDelay,
	}
}

// Adapters returns one adapter per Samsara location endpoint, in category
// priority order.
func (c *Client) Adapters() []provider.Adapter {
	return []provider.Adapter{
		&endpointAdapter{client: c, path: "/fleet/vehicles/locations", category: provider.CategoryVehiclesV2},
		&endpointAdapter{client: c, path: "/fleet/equipment/locations", category: provider.CategoryEquipmentV2},
		&endpointAdapter{client: c, path: "/v1/fleet/assets/locations", category: provider.CategoryAssetsV1},
	}
}

type endpointAdapter struct {
	client   *Client
	path     string
	category string
}

func (a *endpointAdapter) Source() string   { return provider.SourceSamsara }
func (a *endpointAdapter) Category() string { return a.category }

// Fetch walks the endpoint's cursor pagination and returns all items tagged
// with this adapter's category.
func (a *endpointAdapter) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	items, err := a.client.fetchAllPages(ctx, a.path)
	if err != nil {
		return nil, fmt.Errorf("samsara %s: %w", a.category, err)
	}

	records := make([]models.RawRecord, 0, len(items))
	for _, item := range items {
		records = append(records, models.RawRecord{
			Source:   provider.SourceSamsara,
			Category: a.category,
			Payload:  item,
		})
	}
	return records, nil
}

type pageResponse struct {
	Data       []map[string]any `json:"data"`
	Pagination struct {
		After     string `json:"after"`
		EndCursor string `json:"endCursor"`
	} `json:"pagination"`
}

// fetchAllPages follows the pagination cursor until exhausted. Request
// parameters are rebuilt per page so no mutable state is shared between
// calls, and a small delay between pages keeps us under the API's polling
// limits.
func (c *Client) fetchAllPages(ctx context.Context, path string) ([]map[string]any, error) {
	if c.token == "" {
		return nil, fmt.Errorf("api token is not configured")
	}

	var all []map[string]any
	cursor := ""

	for {
		page, err := c.fetchPage(ctx, path, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Data...)

		next := page.Pagination.After
		if next == "" {
			next = page.Pagination.EndCursor
		}
		if next == "" {
			break
		}
		cursor = next

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pageDelay):
		}
	}

	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, path, cursor string) (*pageResponse, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", c.pageLimit))
	if cursor != "" {
		params.Set("after", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("auth failed for %s: status %d", path, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d for %s: %s", resp.StatusCode, path, body)
	}

	var page pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode response for %s: %w", path, err)
	}
	return &page, nil
}
