package driven

import (
	"context"
	"net/url"
)

// Request describes one Graph call.
// Exactly one of Path or Link is set: Path is relative to the API base,
// Link is an absolute continuation URL returned by a previous page.
type Request struct {
	// Path is the resource path, e.g. "/users/{id}/drive/root/children".
	Path string

	// Query holds OData query options ($select, $top, $filter...).
	Query url.Values

	// Link is an absolute @odata.nextLink.
	Link string

	// Headers are added to the request (e.g. ConsistencyLevel).
	Headers map[string]string
}

// Response is a completed Graph call.
type Response struct {
	// StatusCode is the HTTP status.
	StatusCode int

	// Body is the full response body.
	Body []byte

	// ContentType is the response media type.
	ContentType string
}

// Transport executes authenticated Graph requests.
// Non-2xx responses are returned as errors that the connector classifies
// (not found, rate limited, unavailable, access denied).
type Transport interface {
	// Call executes a request and buffers the body.
	Call(ctx context.Context, req Request) (*Response, error)
}
