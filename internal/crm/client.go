// Package crm pushes member snapshots to the external CRM. Sync is
// best-effort: callers run it from the outbox worker and only log
// failures.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/punchcard/backend/internal/model"
)

// FieldCache maps our field names to CRM custom-field ids. It is an
// explicit dependency with explicit invalidation, injected into the
// client instead of living as a package global.
type FieldCache struct {
	mu  sync.Mutex
	ids map[string]string
}

func NewFieldCache() *FieldCache {
	return &FieldCache{}
}

func (c *FieldCache) get() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ids
}

func (c *FieldCache) set(ids map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = ids
}

// Invalidate drops the cached mapping; the next sync re-fetches it.
func (c *FieldCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = nil
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      *FieldCache
}

func NewClient(baseURL, apiKey string, cache *FieldCache) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache,
	}
}

func (c *Client) fieldIDs(ctx context.Context) (map[string]string, error) {
	if ids := c.cache.get(); ids != nil {
		return ids, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/custom-fields", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch custom fields: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("custom fields request returned %d", resp.StatusCode)
	}

	var fields []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		return nil, fmt.Errorf("failed to decode custom fields: %w", err)
	}

	ids := make(map[string]string, len(fields))
	for _, f := range fields {
		ids[f.Name] = f.ID
	}
	c.cache.set(ids)
	return ids, nil
}

// SyncMember upserts the member's loyalty snapshot into the CRM.
func (c *Client) SyncMember(ctx context.Context, member *model.Member) error {
	ids, err := c.fieldIDs(ctx)
	if err != nil {
		return err
	}

	customFields := map[string]interface{}{}
	if id, ok := ids["loyalty_points"]; ok {
		customFields[id] = member.Points
	}
	if id, ok := ids["loyalty_tier"]; ok {
		customFields[id] = member.Tier
	}
	if id, ok := ids["total_visits"]; ok {
		customFields[id] = member.TotalVisits
	}

	body, err := json.Marshal(map[string]interface{}{
		"external_id":   member.ID.String(),
		"name":          member.FullName,
		"email":         member.Email,
		"custom_fields": customFields,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/contacts/upsert", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to sync member: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		// A stale field-id map is the usual cause; drop it for next time.
		c.cache.Invalidate()
		return fmt.Errorf("crm sync returned %d", resp.StatusCode)
	}
	return nil
}
