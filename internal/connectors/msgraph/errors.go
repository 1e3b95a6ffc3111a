package msgraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
)

// ErrInvalidConfig indicates a configuration value could not be parsed.
var ErrInvalidConfig = errors.New("msgraph: invalid configuration")

// APIError represents a non-2xx Graph response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	URL        string

	// RetryAfter is the server hint from the Retry-After header, zero when absent.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("msgraph: API error %d %s: %s (URL: %s)", e.StatusCode, e.Code, e.Message, e.URL)
	}
	return fmt.Sprintf("msgraph: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Unwrap maps the status onto the domain sentinel so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		return domain.ErrNotFound
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return domain.ErrUnavailable
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusLocked:
		return domain.ErrAccessDenied
	default:
		return nil
	}
}

// graphErrorBody is the OData error envelope.
type graphErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAPIError builds an APIError from a response status, body and Retry-After header.
func NewAPIError(status int, body []byte, url, retryAfter string) *APIError {
	apiErr := &APIError{StatusCode: status, URL: url, RetryAfter: ParseRetryAfter(retryAfter)}

	var env graphErrorBody
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Code != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
	}
	return apiErr
}

// ParseRetryAfter parses a Retry-After header given in seconds or as an HTTP date.
func ParseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// IsNotFound checks if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

// IsRateLimited checks if the error indicates throttling (429).
func IsRateLimited(err error) bool {
	return errors.Is(err, domain.ErrRateLimited)
}

// IsUnavailable checks if the error indicates a busy or unavailable service.
func IsUnavailable(err error) bool {
	return errors.Is(err, domain.ErrUnavailable)
}

// IsTransient checks if the error is worth one retry.
func IsTransient(err error) bool {
	return IsRateLimited(err) || IsUnavailable(err)
}

// IsAccessDenied checks if the error indicates missing rights (401, 403, 423).
func IsAccessDenied(err error) bool {
	return errors.Is(err, domain.ErrAccessDenied)
}

// RetryAfter returns the server retry hint carried by err, if any.
func RetryAfter(err error) (time.Duration, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter, true
	}
	return 0, false
}
