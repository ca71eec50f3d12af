package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAFeed means the document matched neither RSS nor Atom's
	// minimal shape (no channel/feed title). Raised only by validation,
	// never by best-effort batch parsing.
	ErrNotAFeed = errors.New("document is not a valid RSS or Atom feed")

	// ErrDuplicateFeed means the tenant already registered this URL.
	ErrDuplicateFeed = errors.New("feed already registered for this tenant")

	// ErrFeedNotFound means the referenced feed row does not exist.
	ErrFeedNotFound = errors.New("feed not found")

	// ErrMissingLink means an item without a link reached storage. The
	// link is the upsert key, so such rows are never writable.
	ErrMissingLink = errors.New("article link is required")
)

// FetchError reports a failed feed document retrieval. StatusCode is 0
// when the failure happened below HTTP (DNS, TLS, timeout).
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
