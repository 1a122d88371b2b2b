// Package browsertest provides a scripted in-memory browser.Host for tests.
package browsertest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jonathan/lead-scraper/internal/browser"
)

// ScriptHandler answers a script evaluated in a page. The returned value is
// JSON round-tripped into the caller's result.
type ScriptHandler func(h *FakeHost, id browser.PageID) (any, error)

// FakeHost is a browser.Host whose pages are canned HTML documents.
//
// Background pages serve the snapshots registered for their URL in order,
// repeating the last one. The active tab serves Listing[ListingIndex].
type FakeHost struct {
	mu sync.Mutex

	// Pages maps a URL to the successive HTML snapshots returned for it.
	Pages map[string][]string
	// Listing holds the HTML of each listing page shown in the active tab.
	Listing      []string
	ListingIndex int

	// OpenErrors makes CreateBackgroundPage fail for a URL.
	OpenErrors map[string]error
	// SnapshotErrors makes document reads fail for a URL.
	SnapshotErrors map[string]error
	// NeverLoads makes WaitLoaded block until its context ends for a URL.
	NeverLoads map[string]bool

	// OnOpen is called after a background page is created.
	OnOpen func(url string)

	handlers map[string]ScriptHandler
	pages    map[browser.PageID]*fakePage
	seq      int

	opened []string
	closed []string
}

type fakePage struct {
	url   string
	reads int
}

// NewFakeHost returns an empty fake host.
func NewFakeHost() *FakeHost {
	return &FakeHost{
		Pages:          make(map[string][]string),
		OpenErrors:     make(map[string]error),
		SnapshotErrors: make(map[string]error),
		NeverLoads:     make(map[string]bool),
		handlers:       make(map[string]ScriptHandler),
		pages:          make(map[browser.PageID]*fakePage),
	}
}

// Handle registers the answer for a script.
func (h *FakeHost) Handle(script string, handler ScriptHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[script] = handler
}

// NextListing advances the active tab to the next listing page if there is one.
func (h *FakeHost) NextListing() bool {
	if h.ListingIndex+1 >= len(h.Listing) {
		return false
	}
	h.ListingIndex++
	return true
}

// Opened returns the URLs opened as background pages, in order.
func (h *FakeHost) Opened() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.opened...)
}

// Closed returns the URLs of closed background pages, in order.
func (h *FakeHost) Closed() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.closed...)
}

// OpenCount returns the number of background pages currently open.
func (h *FakeHost) OpenCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pages)
}

// ActiveTab implements browser.Host.
func (h *FakeHost) ActiveTab(_ context.Context) (browser.PageID, error) {
	return browser.ActivePageID, nil
}

// CreateBackgroundPage implements browser.Host.
func (h *FakeHost) CreateBackgroundPage(_ context.Context, url string) (browser.PageID, error) {
	h.mu.Lock()
	if err := h.OpenErrors[url]; err != nil {
		h.mu.Unlock()
		return "", err
	}
	h.seq++
	id := browser.PageID(fmt.Sprintf("fake-%d", h.seq))
	h.pages[id] = &fakePage{url: url}
	h.opened = append(h.opened, url)
	onOpen := h.OnOpen
	h.mu.Unlock()

	if onOpen != nil {
		onOpen(url)
	}
	return id, nil
}

// ClosePage implements browser.Host.
func (h *FakeHost) ClosePage(_ context.Context, id browser.PageID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.pages[id]
	if !ok {
		return fmt.Errorf("unknown page %s", id)
	}
	delete(h.pages, id)
	h.closed = append(h.closed, p.url)
	return nil
}

// WaitLoaded implements browser.Host.
func (h *FakeHost) WaitLoaded(ctx context.Context, id browser.PageID) error {
	h.mu.Lock()
	p, ok := h.pages[id]
	never := ok && h.NeverLoads[p.url]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown page %s", id)
	}
	if never {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

// Evaluate implements browser.Host.
func (h *FakeHost) Evaluate(_ context.Context, id browser.PageID, script string, res any) error {
	h.mu.Lock()
	handler, ok := h.handlers[script]
	h.mu.Unlock()

	var value any
	switch {
	case ok:
		v, err := handler(h, id)
		if err != nil {
			return err
		}
		value = v
	case script == browser.SnapshotScript:
		v, err := h.snapshot(id)
		if err != nil {
			return err
		}
		value = v
	default:
		return fmt.Errorf("no handler for script in page %s", id)
	}

	if res == nil {
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, res)
}

func (h *FakeHost) snapshot(id browser.PageID) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if id == browser.ActivePageID {
		if h.ListingIndex >= len(h.Listing) {
			return nil, nil
		}
		return h.Listing[h.ListingIndex], nil
	}

	p, ok := h.pages[id]
	if !ok {
		return nil, fmt.Errorf("unknown page %s", id)
	}
	if err := h.SnapshotErrors[p.url]; err != nil {
		return nil, err
	}
	snaps := h.Pages[p.url]
	if len(snaps) == 0 {
		return "<html><body></body></html>", nil
	}
	i := p.reads
	if i >= len(snaps) {
		i = len(snaps) - 1
	}
	p.reads++
	return snaps[i], nil
}
