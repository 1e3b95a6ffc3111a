package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
)

// Client issues typed Graph calls over a Transport.
type Client struct {
	transport driven.Transport
	pageSize  int
}

// NewClient creates a client. pageSize <= 0 uses the Graph default page size.
func NewClient(transport driven.Transport, pageSize int) *Client {
	return &Client{transport: transport, pageSize: pageSize}
}

// Transport returns the underlying transport.
func (c *Client) Transport() driven.Transport {
	return c.transport
}

// Get decodes a single object.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.transport.Call(ctx, driven.Request{Path: path, Query: query})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("msgraph: decode %s: %w", path, err)
	}
	return nil
}

// GetRaw returns the raw body of a call (file content, page HTML).
func (c *Client) GetRaw(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.transport.Call(ctx, driven.Request{Path: path})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// listRequest builds a list request with $top applied.
func (c *Client) listRequest(path string, query url.Values) driven.Request {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	if c.pageSize > 0 && q.Get("$top") == "" {
		q.Set("$top", strconv.Itoa(c.pageSize))
	}
	return driven.Request{Path: path, Query: q}
}

// each pages through a collection, calling fn per item.
func each[T any](ctx context.Context, c *Client, path string, query url.Values, fn func(T) error) error {
	return NewPaginator[T](c.transport).Each(ctx, c.listRequest(path, query), fn)
}

// all collects a whole collection.
func all[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	return NewPaginator[T](c.transport).All(ctx, c.listRequest(path, query))
}

func selectQuery(fields string) url.Values {
	return url.Values{"$select": []string{fields}}
}
