// Package cat implements the provider adapter for the CAT ISO 15143
// telematics fleet API.
package cat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/foresyt/fleetsync/internal/config"
	"github.com/foresyt/fleetsync/internal/models"
	"github.com/foresyt/fleetsync/internal/provider"
)

// Client fetches CAT fleet pages using OAuth2 client-credentials tokens.
type Client struct {
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	http         *http.Client
	maxPages     int
	pageDelay    time.Duration
}

// NewClient constructs a CAT API client from config.
func NewClient(cfg config.CATConfig) *Client {
	return &Client{
		baseURL:      cfg.BaseURL,
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		http:         &http.Client{Timeout: cfg.Timeout},
		maxPages:     cfg.MaxPages,
		pageDelay:    cfg.PageDelay,
	}
}

func (c *Client) Source() string   { return provider.SourceCAT }
func (c *Client) Category() string { return provider.CategoryCATFleet }

// Fetch walks the fleet pages following Next links, bounded by maxPages.
func (c *Client) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("cat fleet: %w", err)
	}

	var records []models.RawRecord
	page := 1

	for i := 0; i < c.maxPages; i++ {
		data, err := c.fetchFleetPage(ctx, token, page)
		if err != nil {
			return nil, fmt.Errorf("cat fleet page %d: %w", page, err)
		}

		for _, item := range extractEquipment(data) {
			records = append(records, models.RawRecord{
				Source:   provider.SourceCAT,
				Category: provider.CategoryCATFleet,
				Payload:  item,
			})
		}

		next, ok := nextPageNumber(data)
		if !ok {
			break
		}
		page = next

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pageDelay):
		}
	}

	return records, nil
}

// accessToken obtains a bearer token via the client-credentials grant.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", fmt.Errorf("client credentials are not configured")
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", c.clientID+"/.default")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	creds := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+creds)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("auth failed: status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}
	return payload.AccessToken, nil
}

func (c *Client) fetchFleetPage(ctx context.Context, token string, page int) (map[string]any, error) {
	u := fmt.Sprintf("%s/telematics/iso15143/fleet/%d", c.baseURL, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	// The tracking id makes each request traceable in CAT's logs.
	req.Header.Set("X-Cat-API-Tracking-Id", uuid.New().String())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return data, nil
}

// extractEquipment pulls the equipment list out of a fleet page. The list
// normally sits under "Equipment"; the fallbacks cover shape drift seen in
// other ISO 15143 deployments.
func extractEquipment(data map[string]any) []map[string]any {
	keys := []string{"Equipment", "assets", "items", "fleet", "machines", "data"}
	for _, key := range keys {
		list, ok := data[key].([]any)
		if !ok {
			continue
		}
		items := make([]map[string]any, 0, len(list))
		for _, entry := range list {
			if m, ok := entry.(map[string]any); ok {
				items = append(items, m)
			}
		}
		return items
	}
	return nil
}

// nextPageNumber parses the page number out of the "Next" link, e.g.
// {"Rel": "Next", "Href": ".../telematics/iso15143/fleet/5"}.
func nextPageNumber(data map[string]any) (int, bool) {
	links, ok := data["Links"].([]any)
	if !ok {
		return 0, false
	}

	for _, entry := range links {
		link, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		rel, _ := link["Rel"].(string)
		href, _ := link["Href"].(string)
		if !strings.EqualFold(rel, "next") || href == "" {
			continue
		}

		parsed, err := url.Parse(href)
		if err != nil {
			return 0, false
		}
		parts := strings.Split(strings.TrimRight(parsed.Path, "/"), "/")
		page, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			return 0, false
		}
		return page, true
	}
	return 0, false
}
