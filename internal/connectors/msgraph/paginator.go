package msgraph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
)

// listResponse is the OData collection envelope.
type listResponse[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// Paginator walks one Graph list call using @odata.nextLink as the cursor.
// It never retries: transport errors are returned unchanged so the caller
// decides what a throttled page means.
type Paginator[T any] struct {
	transport driven.Transport
}

// NewPaginator creates a paginator for items of type T.
func NewPaginator[T any](transport driven.Transport) *Paginator[T] {
	return &Paginator[T]{transport: transport}
}

// Fetch returns the first page of a list call.
func (p *Paginator[T]) Fetch(ctx context.Context, req driven.Request) (domain.Page[T], error) {
	return p.call(ctx, req)
}

// FetchNext returns the page behind a cursor. An empty cursor yields an
// empty final page without calling upstream.
func (p *Paginator[T]) FetchNext(ctx context.Context, cursor string) (domain.Page[T], error) {
	if cursor == "" {
		return domain.Page[T]{}, nil
	}
	return p.call(ctx, driven.Request{Link: cursor})
}

// Each calls fn for every item of every page, in page order, and stops after
// the first page without a cursor. Errors from the transport or fn are
// returned unchanged.
func (p *Paginator[T]) Each(ctx context.Context, req driven.Request, fn func(T) error) error {
	page, err := p.Fetch(ctx, req)
	for {
		if err != nil {
			return err
		}
		for _, item := range page.Items {
			if err := fn(item); err != nil {
				return err
			}
		}
		if !page.HasMore() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err = p.FetchNext(ctx, page.Cursor)
	}
}

// All collects every item of a list call.
func (p *Paginator[T]) All(ctx context.Context, req driven.Request) ([]T, error) {
	var out []T
	err := p.Each(ctx, req, func(item T) error {
		out = append(out, item)
		return nil
	})
	return out, err
}

func (p *Paginator[T]) call(ctx context.Context, req driven.Request) (domain.Page[T], error) {
	resp, err := p.transport.Call(ctx, req)
	if err != nil {
		return domain.Page[T]{}, err
	}

	var body listResponse[T]
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return domain.Page[T]{}, fmt.Errorf("msgraph: decode page of %s: %w", requestTarget(req), err)
	}
	return domain.Page[T]{Items: body.Value, Cursor: body.NextLink}, nil
}

func requestTarget(req driven.Request) string {
	if req.Link != "" {
		return req.Link
	}
	return req.Path
}
