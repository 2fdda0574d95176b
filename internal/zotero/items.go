package zotero

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// FetchAllItems returns every top-level item of the library, following
// pagination. Child notes and attachments are not included.
func (c *Client) FetchAllItems(ctx context.Context) ([]Item, error) {
	query := url.Values{"format": {"json"}}
	items, err := getAll[Item](ctx, c, c.libraryPath()+"/items/top", query)
	if err != nil {
		return nil, fmt.Errorf("fetching items: %w", err)
	}
	return items, nil
}

// ExportItem returns the server-side BibTeX rendering of one item.
func (c *Client) ExportItem(ctx context.Context, key string) (string, error) {
	query := url.Values{"format": {"bibtex"}}
	data, _, err := c.do(ctx, http.MethodGet, c.libraryPath()+"/items/"+url.PathEscape(key), query, nil)
	if err != nil {
		return "", fmt.Errorf("exporting item %s: %w", key, err)
	}
	return string(data), nil
}

// Item returns a single item with all its data fields.
func (c *Client) Item(ctx context.Context, key string) (*Item, error) {
	var item Item
	query := url.Values{"format": {"json"}}
	if _, err := c.getJSON(ctx, c.libraryPath()+"/items/"+url.PathEscape(key), query, &item); err != nil {
		return nil, fmt.Errorf("getting item %s: %w", key, err)
	}
	return &item, nil
}

// Items returns up to limit top-level items, optionally filtered by a quick
// search over titles, creators and years.
func (c *Client) Items(ctx context.Context, q string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := url.Values{
		"format": {"json"},
		"limit":  {strconv.Itoa(limit)},
	}
	if q != "" {
		query.Set("q", q)
	}

	var items []Item
	if _, err := c.getJSON(ctx, c.libraryPath()+"/items/top", query, &items); err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// ListCollections returns every collection of the library.
func (c *Client) ListCollections(ctx context.Context) ([]Collection, error) {
	collections, err := getAll[Collection](ctx, c, c.libraryPath()+"/collections", nil)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	return collections, nil
}

// CollectionItems returns up to limit top-level items of a collection.
func (c *Client) CollectionItems(ctx context.Context, collectionKey string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := url.Values{
		"format": {"json"},
		"limit":  {strconv.Itoa(limit)},
	}

	var items []Item
	path := c.libraryPath() + "/collections/" + url.PathEscape(collectionKey) + "/items/top"
	if _, err := c.getJSON(ctx, path, query, &items); err != nil {
		return nil, fmt.Errorf("listing collection %s: %w", collectionKey, err)
	}
	return items, nil
}

// ItemTemplate returns an empty item of the given type with every field the
// type supports.
func (c *Client) ItemTemplate(ctx context.Context, itemType string) (map[string]any, error) {
	var template map[string]any
	query := url.Values{"itemType": {itemType}}
	if _, err := c.getJSON(ctx, "/items/new", query, &template); err != nil {
		return nil, fmt.Errorf("getting %s template: %w", itemType, err)
	}
	return template, nil
}

// CreateItems writes new items to the library in a single request.
func (c *Client) CreateItems(ctx context.Context, items []map[string]any) (*CreateResponse, error) {
	body, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshaling items: %w", err)
	}

	data, _, err := c.do(ctx, http.MethodPost, c.libraryPath()+"/items", nil, body)
	if err != nil {
		return nil, fmt.Errorf("creating items: %w", err)
	}

	var resp CreateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: parsing write response: %v", ErrInvalidResponse, err)
	}
	return &resp, nil
}

// CreateItem writes one item and returns its new key. A per-object rejection
// is returned as an *APIError carrying the server's detail.
func (c *Client) CreateItem(ctx context.Context, item map[string]any) (string, error) {
	resp, err := c.CreateItems(ctx, []map[string]any{item})
	if err != nil {
		return "", err
	}

	if failed, ok := resp.Failed["0"]; ok {
		return "", &APIError{StatusCode: failed.Code, Message: failed.Message, ItemKey: failed.Key}
	}
	if key, ok := resp.Success["0"]; ok {
		return key, nil
	}
	if created, ok := resp.Successful["0"]; ok && created.Key != "" {
		return created.Key, nil
	}
	return "", fmt.Errorf("%w: write response has no result for the item", ErrInvalidResponse)
}
