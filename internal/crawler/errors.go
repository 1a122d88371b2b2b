// Package crawler drives the listing page: it waits for the list, scrolls it,
// enriches every lead and follows the next-page control until the last page.
package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned when a crawl is started while one is active,
	// in this process or in another one holding the run lock.
	ErrAlreadyRunning = errors.New("a crawl is already running")
	// ErrNotRunning is returned when stopping while no crawl is active.
	ErrNotRunning = errors.New("no crawl is running")
)

// CrawlError represents a crawl-level failure that halts the run.
type CrawlError struct {
	Page    int
	Message string
	Cause   error
}

func (e *CrawlError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("crawl error on page %d: %s: %v", e.Page, e.Message, e.Cause)
	}
	return fmt.Sprintf("crawl error on page %d: %s", e.Page, e.Message)
}

func (e *CrawlError) Unwrap() error {
	return e.Cause
}
