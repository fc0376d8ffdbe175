package crawler

import (
	"context"
	"time"
)

// Session is a single browser tab driven by the crawler. All calls happen on
// one goroutine; implementations need not be safe for concurrent use.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// Frames lists the nested documents currently attached to the page.
	Frames(ctx context.Context) ([]Frame, error)
}

// Frame is a nested document (iframe) inside the session's page.
type Frame interface {
	Name() string
	URL() string
	// Query returns the first match or nil when nothing matches.
	Query(ctx context.Context, selector string) (Element, error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)
}

// Element is a live handle to a DOM node. Handles may go stale once the page
// mutates; operations on a stale handle return an error wrapping ErrStaleElement.
type Element interface {
	Text(ctx context.Context) (string, error)
	Click(ctx context.Context) error
	// Query returns the first descendant match or nil.
	Query(ctx context.Context, selector string) (Element, error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	// Closest returns the nearest strict ancestor matching selector, or nil.
	Closest(ctx context.Context, selector string) (Element, error)
}

// Clock returns the current time and pauses between browser steps.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// IDGenerator produces record IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// RecordSink persists the final record set.
type RecordSink interface {
	Save(ctx context.Context, records []StoreRecord) error
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
}
