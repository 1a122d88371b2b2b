package browser

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/time/rate"
)

// DefaultLoadTimeout bounds how long OpenAndWait waits for a page to report load completion.
const DefaultLoadTimeout = 15 * time.Second

// Page is a handle to a page opened by the Navigator. It must be disposed.
type Page struct {
	ID  PageID
	URL string
}

// NavigatorOptions configures page opening.
type NavigatorOptions struct {
	LoadTimeout time.Duration
	// RatePerSec limits how often new pages are opened. Zero disables pacing.
	RatePerSec float64
	Burst      int
	Verbose    bool
}

// DefaultNavigatorOptions returns the load timeout and a gentle pacing of one page every two seconds.
func DefaultNavigatorOptions() *NavigatorOptions {
	return &NavigatorOptions{
		LoadTimeout: DefaultLoadTimeout,
		RatePerSec:  0.5,
		Burst:       2,
	}
}

// Navigator opens background pages, waits for them to load and guarantees disposal.
type Navigator struct {
	host        Host
	limiter     *rate.Limiter
	loadTimeout time.Duration
	verbose     bool
}

// NewNavigator creates a Navigator over host.
func NewNavigator(host Host, opts *NavigatorOptions) *Navigator {
	if opts == nil {
		opts = DefaultNavigatorOptions()
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = DefaultLoadTimeout
	}

	n := &Navigator{
		host:        host,
		loadTimeout: opts.LoadTimeout,
		verbose:     opts.Verbose,
	}
	if opts.RatePerSec > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		n.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}
	return n
}

// OpenAndWait opens url in a background page and waits until it loads or the
// load timeout elapses. A load timeout is not an error: the page is returned and
// extraction proceeds best-effort.
func (n *Navigator) OpenAndWait(ctx context.Context, url string) (*Page, error) {
	if n.limiter != nil {
		if err := n.limiter.Wait(ctx); err != nil {
			return nil, &Error{Op: "open", URL: url, Message: "navigation pacing interrupted", Cause: err}
		}
	}

	id, err := n.host.CreateBackgroundPage(ctx, url)
	if err != nil {
		return nil, &Error{Op: "open", URL: url, Message: "failed to open page", Cause: err}
	}
	page := &Page{ID: id, URL: url}

	waitCtx, cancel := context.WithTimeout(ctx, n.loadTimeout)
	defer cancel()

	if err := n.host.WaitLoaded(waitCtx, id); err != nil {
		if ctx.Err() != nil {
			n.Dispose(page)
			return nil, &Error{Op: "open", URL: url, Message: "navigation cancelled", Cause: ctx.Err()}
		}
		if errors.Is(err, context.DeadlineExceeded) {
			log.Printf("[BROWSER] Load timeout after %v for %s, continuing", n.loadTimeout, url)
		} else {
			log.Printf("[BROWSER] Load wait failed for %s, continuing: %v", url, err)
		}
	} else if n.verbose {
		log.Printf("[BROWSER] Loaded %s", url)
	}

	return page, nil
}

// Dispose closes the page. It is safe to call with a nil page.
func (n *Navigator) Dispose(page *Page) {
	if page == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.host.ClosePage(ctx, page.ID); err != nil {
		log.Printf("[BROWSER] Failed to close page %s: %v", page.URL, err)
	}
}
