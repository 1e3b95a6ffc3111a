package msgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
)

// fakeTransport answers requests by path (or continuation link) and counts calls.
type fakeTransport struct {
	mu     sync.Mutex
	routes map[string]func(driven.Request) (*driven.Response, error)
	calls  map[string]int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		routes: make(map[string]func(driven.Request) (*driven.Response, error)),
		calls:  make(map[string]int),
	}
}

func (f *fakeTransport) on(key string, fn func(driven.Request) (*driven.Response, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[key] = fn
}

func (f *fakeTransport) json(key string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	f.on(key, func(driven.Request) (*driven.Response, error) {
		return &driven.Response{StatusCode: http.StatusOK, Body: body}, nil
	})
}

func (f *fakeTransport) raw(key, body string) {
	f.on(key, func(driven.Request) (*driven.Response, error) {
		return &driven.Response{StatusCode: http.StatusOK, Body: []byte(body)}, nil
	})
}

func (f *fakeTransport) status(key string, code int) {
	f.on(key, func(req driven.Request) (*driven.Response, error) {
		return nil, &APIError{StatusCode: code, URL: req.Path}
	})
}

func (f *fakeTransport) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeTransport) Call(_ context.Context, req driven.Request) (*driven.Response, error) {
	key := req.Path
	if req.Link != "" {
		key = req.Link
	}

	f.mu.Lock()
	f.calls[key]++
	fn, ok := f.routes[key]
	f.mu.Unlock()

	if !ok {
		return nil, &APIError{StatusCode: http.StatusNotFound, URL: key}
	}
	return fn(req)
}

// page builds a collection envelope.
func page(next string, items ...any) map[string]any {
	body := map[string]any{"value": items}
	if next != "" {
		body["@odata.nextLink"] = next
	}
	return body
}
