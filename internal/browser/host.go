// Package browser drives pages in a real or scripted browser host.
//
// The rest of the system only depends on the Host interface: query the active
// tab, open a background page, wait for it to finish loading, run a script in it
// and close it.
package browser

import (
	"context"
	"errors"
	"fmt"
)

// PageID identifies an open page (tab) in the host.
type PageID string

// SnapshotScript returns the serialized document of the page, or null when the page has none.
const SnapshotScript = `document.documentElement ? document.documentElement.outerHTML : null`

// Host is the tab and navigation capability the scraper needs from a browser.
type Host interface {
	// ActiveTab returns the page the user is looking at (the listing page).
	ActiveTab(ctx context.Context) (PageID, error)
	// CreateBackgroundPage opens url in a new, non-focused page without waiting for it to load.
	CreateBackgroundPage(ctx context.Context, url string) (PageID, error)
	// ClosePage closes a page opened with CreateBackgroundPage.
	ClosePage(ctx context.Context, id PageID) error
	// WaitLoaded blocks until the page reports load completion or ctx is done.
	WaitLoaded(ctx context.Context, id PageID) error
	// Evaluate runs script in the page, awaiting a returned promise, and decodes the result into res.
	Evaluate(ctx context.Context, id PageID, script string, res any) error
}

// ErrNoDocument is returned when a page has no accessible document to read.
var ErrNoDocument = errors.New("no accessible document")

// Error represents a failure talking to the browser host.
type Error struct {
	Op      string
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	target := e.Op
	if e.URL != "" {
		target = fmt.Sprintf("%s %s", e.Op, e.URL)
	}
	if e.Cause != nil {
		return fmt.Sprintf("browser error (%s): %s: %v", target, e.Message, e.Cause)
	}
	return fmt.Sprintf("browser error (%s): %s", target, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Snapshot returns the current serialized HTML of a page.
func Snapshot(ctx context.Context, host Host, id PageID) (string, error) {
	var html *string
	if err := host.Evaluate(ctx, id, SnapshotScript, &html); err != nil {
		return "", &Error{Op: "snapshot", Message: "failed to read document", Cause: err}
	}
	if html == nil {
		return "", &Error{Op: "snapshot", Message: "page has no document", Cause: ErrNoDocument}
	}
	return *html, nil
}
