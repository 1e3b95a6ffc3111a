package graphhttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/custodia-labs/sercha-graph/internal/connectors/msgraph"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-graph/internal/logger"
)

// Ensure Transport implements the interface.
var _ driven.Transport = (*Transport)(nil)

// DefaultTimeout bounds a single HTTP exchange.
const DefaultTimeout = 2 * time.Minute

// ErrForeignLink indicates a continuation link pointing away from the API host.
var ErrForeignLink = errors.New("graphhttp: continuation link outside the API host")

// Transport executes Graph calls over HTTP.
type Transport struct {
	baseURL *url.URL
	client  *http.Client
	limiter *RateLimiter
}

// New creates a transport authenticated with the client credentials of cfg.
// The token source lives as long as ctx.
func New(ctx context.Context, cfg *msgraph.Config) (*Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ep := cfg.Endpoints()

	base, err := url.Parse(ep.GraphBaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: graph_base_url: %v", msgraph.ErrInvalidConfig, err)
	}

	client := clientFor(ctx, cfg, ep.LoginBaseURL)
	return NewWithClient(base, client, NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst)), nil
}

// clientFor returns an HTTP client that fetches and caches app-only tokens.
func clientFor(ctx context.Context, cfg *msgraph.Config, loginBase string) *http.Client {
	base, err := url.Parse(cfg.Endpoints().GraphBaseURL)
	scope := "https://graph.microsoft.com/.default"
	if err == nil {
		scope = Scope(base)
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     TokenURL(loginBase, cfg.TenantID),
		Scopes:       []string{scope},
	}
	client := cc.Client(ctx)
	client.Timeout = DefaultTimeout
	return client
}

// NewWithClient creates a transport over an already authenticated client.
func NewWithClient(baseURL *url.URL, client *http.Client, limiter *RateLimiter) *Transport {
	if limiter == nil {
		limiter = NewRateLimiter(0, 1)
	}
	return &Transport{baseURL: baseURL, client: client, limiter: limiter}
}

// TokenURL returns the v2 token endpoint of a tenant.
func TokenURL(loginBase, tenant string) string {
	return strings.TrimRight(loginBase, "/") + "/" + url.PathEscape(tenant) + "/oauth2/v2.0/token"
}

// Scope returns the application permission scope of a Graph host.
func Scope(base *url.URL) string {
	return base.Scheme + "://" + base.Host + "/.default"
}

// Call executes req and buffers the response body.
func (t *Transport) Call(ctx context.Context, req driven.Request) (*driven.Response, error) {
	target, err := t.resolve(req)
	if err != nil {
		return nil, err
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("graphhttp: %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("graphhttp: read %s: %w", target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := msgraph.NewAPIError(resp.StatusCode, body, target, resp.Header.Get("Retry-After"))
		if msgraph.IsTransient(apiErr) {
			t.limiter.RecordRateLimitError(apiErr.RetryAfter)
		}
		logger.With(zap.Int("status", resp.StatusCode), zap.String("url", target)).Debug("graph call failed")
		return nil, apiErr
	}

	return &driven.Response{
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// resolve builds the absolute request URL. Continuation links must stay on
// the API host so the bearer token never leaves it.
func (t *Transport) resolve(req driven.Request) (string, error) {
	if req.Link != "" {
		link, err := url.Parse(req.Link)
		if err != nil {
			return "", fmt.Errorf("graphhttp: parse link: %w", err)
		}
		if !strings.EqualFold(link.Host, t.baseURL.Host) {
			return "", fmt.Errorf("%w: %s", ErrForeignLink, link.Host)
		}
		return req.Link, nil
	}

	// Paths arrive already escaped.
	target := strings.TrimRight(t.baseURL.String(), "/") + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}
	return target, nil
}
