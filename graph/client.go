// Package graph is the remote list gateway: it authenticates against the
// Microsoft identity platform and performs CRUD on SharePoint lists through
// the Graph API. It is stateless except for the cached token and the site
// ids resolved by ResolveContainers.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"fleettrack/config"
)

// Collection names one logical remote list.
type Collection string

const (
	CollectionLoads          Collection = "loads"
	CollectionUsers          Collection = "users"
	CollectionPlants         Collection = "plants"
	CollectionTrucks         Collection = "trucks"
	CollectionDrivers        Collection = "drivers"
	CollectionJustifications Collection = "justifications"
)

// Item is one raw list record: the server-assigned id plus the field bag.
// Field-name reconciliation is entirely the normalizer's concern.
type Item struct {
	ID     string
	Fields map[string]any
}

// RetryPolicy decides whether a failed request should be attempted again.
// The default is no retries, a deliberate simplicity choice; implementers
// can swap in backoff without touching the client.
type RetryPolicy interface {
	ShouldRetry(attempt int, err error) bool
}

// NoRetry never retries.
type NoRetry struct{}

func (NoRetry) ShouldRetry(int, error) bool { return false }

type listRef struct {
	sitePath string
	listID   string
	required bool
}

// Client wraps an authenticated Graph HTTP session.
type Client struct {
	cfg    config.GraphConfig
	http   *http.Client
	tokens TokenProvider
	retry  RetryPolicy

	lists   map[Collection]listRef
	siteIDs map[string]string // site path -> resolved site id
}

// NewClient builds a gateway from configuration. Pass nil for tokens to use
// the device-code provider, nil for retry to disable retries.
func NewClient(cfg config.GraphConfig, tokens TokenProvider, retry RetryPolicy) *Client {
	if tokens == nil {
		tokens = NewDeviceCodeTokenProvider(cfg)
	}
	if retry == nil {
		retry = NoRetry{}
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		tokens: tokens,
		retry:  retry,
		lists: map[Collection]listRef{
			CollectionLoads:          {sitePath: cfg.SharedSite, listID: cfg.LoadsListID, required: true},
			CollectionUsers:          {sitePath: cfg.SharedSite, listID: cfg.UsersListID, required: true},
			CollectionPlants:         {sitePath: cfg.PersonalSite, listID: cfg.PlantsListID, required: true},
			CollectionTrucks:         {sitePath: cfg.PersonalSite, listID: cfg.TrucksListID, required: true},
			CollectionDrivers:        {sitePath: cfg.PersonalSite, listID: cfg.DriversListID, required: true},
			CollectionJustifications: {sitePath: cfg.SharedSite, listID: cfg.JustificationsListID, required: false},
		},
		siteIDs: make(map[string]string),
	}
}

// Authenticate obtains a bearer credential, silently when possible.
func (c *Client) Authenticate(ctx context.Context) error {
	_, err := c.tokens.Token(ctx)
	return err
}

// ResolveContainers maps the configured site paths to physical site ids.
// Must complete before any list operation. A missing required container is
// fatal for the whole sync.
func (c *Client) ResolveContainers(ctx context.Context) error {
	for coll, ref := range c.lists {
		if ref.listID == "" {
			if ref.required {
				return &ContainerResolutionError{Container: string(coll), Err: fmt.Errorf("no list id configured")}
			}
			continue
		}
		if _, ok := c.siteIDs[ref.sitePath]; ok {
			continue
		}
		id, err := c.resolveSite(ctx, ref.sitePath)
		if err != nil {
			if !ref.required {
				log.Printf("⚠️  Optional container %s unavailable: %v", coll, err)
				continue
			}
			return &ContainerResolutionError{Container: ref.sitePath, Err: err}
		}
		c.siteIDs[ref.sitePath] = id
	}
	return nil
}

func (c *Client) resolveSite(ctx context.Context, sitePath string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	url := fmt.Sprintf("%s/sites/%s?$select=id", c.cfg.BaseURL, sitePath)
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("site lookup returned no id")
	}
	return out.ID, nil
}

type listItemsResponse struct {
	Value []struct {
		ID     string         `json:"id"`
		Fields map[string]any `json:"fields"`
	} `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// List fetches all records of a collection, following pagination up to the
// configured item ceiling. Hitting the ceiling with more pages remaining
// logs an explicit truncation warning instead of failing.
func (c *Client) List(ctx context.Context, collection Collection) ([]Item, error) {
	ref, siteID, err := c.ref(collection)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/sites/%s/lists/%s/items?expand=fields&$top=%d",
		c.cfg.BaseURL, siteID, ref.listID, c.cfg.PageSize)

	var items []Item
	for url != "" {
		var page listItemsResponse
		if err := c.doJSON(ctx, http.MethodGet, url, nil, &page); err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		for _, raw := range page.Value {
			items = append(items, Item{ID: raw.ID, Fields: raw.Fields})
		}
		if len(items) >= c.cfg.ItemCeiling && page.NextLink != "" {
			log.Printf("⚠️  Listing of %s truncated at %d items; remote holds more", collection, len(items))
			break
		}
		url = page.NextLink
	}
	return items, nil
}

// Create adds a record and returns the server-assigned identifier.
func (c *Client) Create(ctx context.Context, collection Collection, fields map[string]any) (string, error) {
	ref, siteID, err := c.ref(collection)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/sites/%s/lists/%s/items", c.cfg.BaseURL, siteID, ref.listID)
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, url, map[string]any{"fields": fields}, &out); err != nil {
		return "", c.asWriteError(collection, "", err)
	}
	return out.ID, nil
}

// Update patches the field bag of an existing record.
func (c *Client) Update(ctx context.Context, collection Collection, itemID string, fields map[string]any) error {
	ref, siteID, err := c.ref(collection)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/sites/%s/lists/%s/items/%s/fields", c.cfg.BaseURL, siteID, ref.listID, itemID)
	if err := c.doJSON(ctx, http.MethodPatch, url, fields, nil); err != nil {
		return c.asWriteError(collection, itemID, err)
	}
	return nil
}

// Delete removes a record. Irreversible.
func (c *Client) Delete(ctx context.Context, collection Collection, itemID string) error {
	ref, siteID, err := c.ref(collection)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/sites/%s/lists/%s/items/%s", c.cfg.BaseURL, siteID, ref.listID, itemID)
	if err := c.doJSON(ctx, http.MethodDelete, url, nil, nil); err != nil {
		return c.asWriteError(collection, itemID, err)
	}
	return nil
}

func (c *Client) ref(collection Collection) (listRef, string, error) {
	ref, ok := c.lists[collection]
	if !ok || ref.listID == "" {
		return listRef{}, "", &ContainerResolutionError{Container: string(collection), Err: fmt.Errorf("unknown collection")}
	}
	siteID, ok := c.siteIDs[ref.sitePath]
	if !ok {
		return listRef{}, "", &ContainerResolutionError{Container: ref.sitePath, Err: fmt.Errorf("containers not resolved")}
	}
	return ref, siteID, nil
}

// statusError carries a non-2xx response until it is classified by the
// calling operation.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

func (c *Client) asWriteError(collection Collection, itemID string, err error) error {
	if se, ok := err.(*statusError); ok {
		return &RemoteWriteError{Collection: collection, ItemID: itemID, StatusCode: se.code, Body: se.body}
	}
	return &RemoteWriteError{Collection: collection, ItemID: itemID, Body: err.Error()}
}

func (c *Client) doJSON(ctx context.Context, method, url string, body any, out any) error {
	attempt := 0
	for {
		err := c.doOnce(ctx, method, url, body, out)
		if err == nil {
			return nil
		}
		attempt++
		if !c.retry.ShouldRetry(attempt, err) {
			return err
		}
	}
}

func (c *Client) doOnce(ctx context.Context, method, url string, body any, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{code: resp.StatusCode, body: truncate(string(respBody), 300)}
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
