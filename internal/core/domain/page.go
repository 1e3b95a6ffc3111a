package domain

// Page is one batch of a cursor-paginated collection.
// An empty Cursor means end-of-collection.
type Page[T any] struct {
	// Items preserve the upstream order.
	Items []T

	// Cursor is the opaque continuation token for the next page.
	Cursor string
}

// HasMore reports whether another page can be fetched.
func (p Page[T]) HasMore() bool {
	return p.Cursor != ""
}
