// Package browser - chrome.go implements Host on top of a chromedp-controlled Chrome instance.
package browser

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/jonathan/lead-scraper/internal/poll"
)

// ActivePageID is the id of the tab the browser starts with; it holds the listing page.
const ActivePageID PageID = "active"

const readyStateInterval = 250 * time.Millisecond

const readyStateScript = `document.readyState === "complete" && location.href !== "about:blank"`

// Cookie is a session cookie injected into the browser before any navigation.
type Cookie struct {
	Name   string
	Value  string
	Domain string
}

// ChromeOptions configures the Chrome process.
type ChromeOptions struct {
	Headless    bool
	ExecPath    string
	UserDataDir string
	UserAgent   string
	Cookies     []Cookie
	Verbose     bool
}

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
	url    string
}

// ChromeHost is a Host backed by a local Chrome instance driven through the DevTools protocol.
type ChromeHost struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	verbose       bool

	mu   sync.Mutex
	tabs map[PageID]*tab
	seq  int
}

// NewChromeHost launches Chrome and returns a host whose active tab is blank.
// Requires Chrome/Chromium to be installed on the system.
func NewChromeHost(ctx context.Context, opts ChromeOptions) (*ChromeHost, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if opts.Verbose {
		log.Printf("[BROWSER] Starting Chrome (headless=%v)", opts.Headless)
	}

	actions := []chromedp.Action{chromedp.Navigate("about:blank")}
	for _, c := range opts.Cookies {
		actions = append(actions, setCookie(c))
	}
	if err := chromedp.Run(browserCtx, actions...); err != nil {
		browserCancel()
		allocCancel()
		return nil, &Error{Op: "start", Message: "failed to start browser", Cause: err}
	}

	h := &ChromeHost{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		verbose:       opts.Verbose,
		tabs:          make(map[PageID]*tab),
	}
	h.tabs[ActivePageID] = &tab{ctx: browserCtx, cancel: browserCancel, url: "about:blank"}
	return h, nil
}

func setCookie(c Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		domain := c.Domain
		if domain == "" {
			domain = ".linkedin.com"
		}
		return network.SetCookie(c.Name, c.Value).
			WithDomain(domain).
			WithPath("/").
			WithSecure(true).
			WithHTTPOnly(true).
			Do(ctx)
	})
}

// OpenListing navigates the active tab to url and waits for it to load.
func (h *ChromeHost) OpenListing(ctx context.Context, url string) error {
	if err := h.run(ctx, ActivePageID, chromedp.Navigate(url)); err != nil {
		return &Error{Op: "navigate", URL: url, Message: "failed to open listing", Cause: err}
	}
	h.mu.Lock()
	h.tabs[ActivePageID].url = url
	h.mu.Unlock()
	return nil
}

// ActiveTab returns the tab holding the listing page.
func (h *ChromeHost) ActiveTab(_ context.Context) (PageID, error) {
	return ActivePageID, nil
}

// CreateBackgroundPage opens a new tab and starts navigating it to url.
func (h *ChromeHost) CreateBackgroundPage(ctx context.Context, url string) (PageID, error) {
	tabCtx, cancel := chromedp.NewContext(h.browserCtx)

	h.mu.Lock()
	h.seq++
	id := PageID(fmt.Sprintf("tab-%d", h.seq))
	h.tabs[id] = &tab{ctx: tabCtx, cancel: cancel, url: url}
	h.mu.Unlock()

	// The first Run on a tab context attaches the target and starts its event
	// loop on the context it is given, so it must be the tab context itself.
	if err := chromedp.Run(tabCtx); err != nil {
		_ = h.ClosePage(ctx, id)
		return "", &Error{Op: "open", URL: url, Message: "failed to create tab", Cause: err}
	}

	navigate := chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errorText, _, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("page load error %s", errorText)
		}
		return nil
	})
	if err := h.run(ctx, id, navigate); err != nil {
		_ = h.ClosePage(ctx, id)
		return "", err
	}

	if h.verbose {
		log.Printf("[BROWSER] Opened %s as %s", url, id)
	}
	return id, nil
}

// ClosePage closes a background tab. The active tab cannot be closed.
func (h *ChromeHost) ClosePage(_ context.Context, id PageID) error {
	if id == ActivePageID {
		return &Error{Op: "close", Message: "refusing to close the active tab"}
	}

	h.mu.Lock()
	t, ok := h.tabs[id]
	delete(h.tabs, id)
	h.mu.Unlock()
	if !ok {
		return nil
	}

	err := chromedp.Cancel(t.ctx)
	t.cancel()
	return err
}

// WaitLoaded polls the document ready state until the page has completed loading.
func (h *ChromeHost) WaitLoaded(ctx context.Context, id PageID) error {
	_, done, err := poll.Until(ctx, readyStateInterval, math.MaxInt32, func(ctx context.Context) (bool, bool, error) {
		var ready bool
		if err := h.Evaluate(ctx, id, readyStateScript, &ready); err != nil {
			if ctx.Err() != nil {
				return false, false, ctx.Err()
			}
			// The execution context is replaced while navigating; keep polling.
			return false, false, nil
		}
		return ready, ready, nil
	})
	if err != nil {
		return err
	}
	if !done {
		return context.DeadlineExceeded
	}
	return nil
}

// Evaluate runs script in the page and decodes its (awaited) result into res.
func (h *ChromeHost) Evaluate(ctx context.Context, id PageID, script string, res any) error {
	return h.run(ctx, id, chromedp.Evaluate(script, res, awaitPromise))
}

// Close shuts down the browser and every open tab.
func (h *ChromeHost) Close() {
	h.browserCancel()
	h.allocCancel()
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// run executes actions on the tab, stopping them (but not the tab) if ctx ends first.
// The tab's target must already be attached; see CreateBackgroundPage.
func (h *ChromeHost) run(ctx context.Context, id PageID, actions ...chromedp.Action) error {
	h.mu.Lock()
	t, ok := h.tabs[id]
	h.mu.Unlock()
	if !ok {
		return &Error{Op: "run", Message: fmt.Sprintf("unknown page %s", id)}
	}

	runCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}
