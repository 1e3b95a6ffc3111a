package domain

import "errors"

// Domain errors represent crawl failures the core reasons about.
// Transport specific errors are mapped onto these by the connectors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown resource family or kind.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrCrawlInProgress indicates a crawl is already running.
	ErrCrawlInProgress = errors.New("crawl in progress")

	// ErrRateLimited indicates the upstream API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates the upstream service is temporarily unavailable.
	ErrUnavailable = errors.New("service unavailable")

	// ErrAccessDenied indicates the crawler lacks rights to a resource.
	ErrAccessDenied = errors.New("access denied")

	// ErrContentTooLarge indicates content exceeded the configured maximum length.
	// The item is rejected before extraction, never truncated.
	ErrContentTooLarge = errors.New("content too large")

	// ErrExtractionFailed indicates binary to text conversion failed.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrInterrupted indicates the crawl run was cancelled while work was in flight.
	ErrInterrupted = errors.New("crawl interrupted")

	// ErrDispatcherClosed indicates work was submitted after shutdown began.
	ErrDispatcherClosed = errors.New("dispatcher closed")
)

// ErrorKind classifies a per-item failure for the failure log.
type ErrorKind string

const (
	// ErrorKindNotFound is a vanished branch root or leaf.
	ErrorKindNotFound ErrorKind = "not-found"

	// ErrorKindTransient is a rate-limited or temporarily unavailable upstream.
	ErrorKindTransient ErrorKind = "transient"

	// ErrorKindAccess is a permission or availability problem.
	ErrorKindAccess ErrorKind = "access"

	// ErrorKindContentTooLarge is a size policy violation.
	ErrorKindContentTooLarge ErrorKind = "content-too-large"

	// ErrorKindProcessing is any other failure while building a record.
	ErrorKindProcessing ErrorKind = "processing"
)

// ClassifyError maps an error onto its ErrorKind.
func ClassifyError(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrorKindNotFound
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrUnavailable):
		return ErrorKindTransient
	case errors.Is(err, ErrAccessDenied):
		return ErrorKindAccess
	case errors.Is(err, ErrContentTooLarge):
		return ErrorKindContentTooLarge
	default:
		return ErrorKindProcessing
	}
}
