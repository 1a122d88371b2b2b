package crawler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/jonathan/lead-scraper/internal/browser"
	"github.com/jonathan/lead-scraper/internal/cancel"
	"github.com/jonathan/lead-scraper/internal/enrich"
	"github.com/jonathan/lead-scraper/internal/events"
	"github.com/jonathan/lead-scraper/internal/extract"
	"github.com/jonathan/lead-scraper/internal/poll"
	"github.com/jonathan/lead-scraper/internal/types"
)

// State is the crawl state machine position.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateErrored State = "errored"
)

// Status messages.
const (
	MsgStarting    = "Starting scrape"
	MsgCompleted   = "Scraping completed"
	MsgPageLimit   = "Scraping completed (page limit reached)"
	MsgStoppedUser = "Scraping stopped by user"
	MsgCancelled   = "Scraping cancelled"
	msgErrorPrefix = "Error during scraping"
)

const defaultSettle = 2 * time.Second

// ListingDriver operates the listing page and reads details from opened pages.
// *extract.Inspector implements it.
type ListingDriver interface {
	enrich.DetailExtractor
	WaitForList(ctx context.Context, page browser.PageID) (bool, error)
	ScrollToBottom(ctx context.Context, page browser.PageID) error
	ExtractListRows(ctx context.Context, page browser.PageID) ([]types.ListRow, extract.ListingKind, error)
	ClickNext(ctx context.Context, page browser.PageID) (bool, error)
}

// RowSink receives rows as soon as they are produced. *store.Store implements it.
type RowSink interface {
	AppendLead(ctx context.Context, row types.LeadRow) error
	Count(ctx context.Context) (int, error)
}

// ListingOpener navigates the active tab to a listing URL. *browser.ChromeHost implements it.
type ListingOpener interface {
	OpenListing(ctx context.Context, url string) error
}

// Deps are the collaborators of a Crawler. Hub and Opener are optional.
type Deps struct {
	Host      browser.Host
	Navigator enrich.PageOpener
	Driver    ListingDriver
	Sink      RowSink
	Hub       *events.Hub
	Opener    ListingOpener
}

// Options configures a Crawler.
type Options struct {
	// ListSettle is waited after scrolling, before the list is read.
	ListSettle time.Duration
	// PageSettle is waited after clicking to the next page.
	PageSettle time.Duration
	Enrich     enrich.Options
	// MaxPages caps the pages crawled per run. Zero means no cap.
	MaxPages int
	// LockPath, when set, names a file locked for the duration of a run so
	// that only one process crawls at a time.
	LockPath string
	Verbose  bool
}

// DefaultOptions returns the production pacing.
func DefaultOptions() *Options {
	return &Options{
		ListSettle: defaultSettle,
		PageSettle: defaultSettle,
		Enrich:     enrich.Options{Delays: enrich.DefaultDelays()},
	}
}

// RunOptions are the per-run parameters.
type RunOptions struct {
	// SearchURL is opened in the active tab before crawling when non-empty.
	SearchURL string
	// MaxPages overrides Options.MaxPages when positive.
	MaxPages int
}

// Status is a snapshot of the current or last run.
type Status struct {
	RunID      string     `json:"run_id,omitempty"`
	State      State      `json:"state"`
	Message    string     `json:"message,omitempty"`
	Page       int        `json:"page"`
	Rows       int        `json:"rows"`
	SearchURL  string     `json:"search_url,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Crawler runs at most one crawl at a time.
type Crawler struct {
	deps     Deps
	opts     Options
	token    *cancel.Token
	pipeline *enrich.Pipeline

	mu     sync.Mutex
	status Status
	done   chan struct{}
	lock   *flock.Flock
}

// New creates an idle Crawler.
func New(deps Deps, opts *Options) *Crawler {
	if opts == nil {
		opts = DefaultOptions()
	}
	c := &Crawler{
		deps:   deps,
		opts:   *opts,
		token:  cancel.NewToken(),
		status: Status{State: StateIdle},
	}
	enrichOpts := opts.Enrich
	enrichOpts.OnProgress = c.leadProgress
	enrichOpts.Verbose = enrichOpts.Verbose || opts.Verbose
	c.pipeline = enrich.NewPipeline(deps.Navigator, deps.Driver, c.token, &enrichOpts)
	return c
}

// State returns the current state.
func (c *Crawler) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.State
}

// Status returns a snapshot of the current or last run.
func (c *Crawler) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Running reports whether a crawl is active.
func (c *Crawler) Running() bool {
	return c.State() == StateRunning
}

// Start begins a crawl in the background and returns its run id. ctx bounds
// the whole run, so it must outlive the caller's request.
func (c *Crawler) Start(ctx context.Context, opts RunOptions) (string, error) {
	runID, err := c.begin(ctx, opts)
	if err != nil {
		return "", err
	}
	go func() {
		c.finish(c.loop(ctx, opts))
	}()
	return runID, nil
}

// Run crawls synchronously and returns the final status. The returned error is
// the crawl-level failure, if any; a user stop is not an error.
func (c *Crawler) Run(ctx context.Context, opts RunOptions) (Status, error) {
	if _, err := c.begin(ctx, opts); err != nil {
		return c.Status(), err
	}
	err := c.loop(ctx, opts)
	c.finish(err)
	status := c.Status()
	if status.State != StateErrored {
		return status, nil
	}
	return status, err
}

// Stop requests the active crawl to stop at its next checkpoint.
func (c *Crawler) Stop() error {
	if !c.Running() {
		return ErrNotRunning
	}
	c.token.Stop()
	log.Printf("[CRAWL] Stop requested")
	return nil
}

// Wait blocks until the active run, if any, has finished and returns the final status.
func (c *Crawler) Wait() Status {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
	return c.Status()
}

var (
	errStopped   = errors.New("stopped by user")
	errPageLimit = errors.New("page limit reached")
)

func (c *Crawler) begin(ctx context.Context, opts RunOptions) (string, error) {
	rows, err := c.deps.Sink.Count(ctx)
	if err != nil {
		return "", &CrawlError{Message: "failed to read stored rows", Cause: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.State == StateRunning {
		return "", ErrAlreadyRunning
	}
	if c.opts.LockPath != "" {
		lock := flock.New(c.opts.LockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return "", &CrawlError{Message: "failed to acquire run lock", Cause: err}
		}
		if !locked {
			return "", ErrAlreadyRunning
		}
		c.lock = lock
	}

	c.token.Reset()
	now := time.Now().UTC()
	c.status = Status{
		RunID:     uuid.NewString(),
		State:     StateRunning,
		Message:   MsgStarting,
		Page:      1,
		Rows:      rows,
		SearchURL: opts.SearchURL,
		StartedAt: &now,
	}
	c.done = make(chan struct{})
	log.Printf("[CRAWL] Run %s started", c.status.RunID)
	c.publishLocked(events.TypeState, "", 0, 0)
	return c.status.RunID, nil
}

func (c *Crawler) finish(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	c.status.FinishedAt = &now
	switch {
	case err == nil:
		c.status.State = StateIdle
		c.status.Message = MsgCompleted
	case errors.Is(err, errPageLimit):
		c.status.State = StateIdle
		c.status.Message = MsgPageLimit
	case errors.Is(err, errStopped):
		c.status.State = StateStopped
		c.status.Message = MsgStoppedUser
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		c.status.State = StateStopped
		c.status.Message = MsgCancelled
	default:
		c.status.State = StateErrored
		c.status.Message = fmt.Sprintf("%s: %v", msgErrorPrefix, err)
		c.status.Error = err.Error()
	}
	log.Printf("[CRAWL] Run %s finished: %s (%d rows)", c.status.RunID, c.status.Message, c.status.Rows)

	if c.lock != nil {
		if err := c.lock.Unlock(); err != nil {
			log.Printf("[CRAWL] Failed to release run lock: %v", err)
		}
		c.lock = nil
	}
	c.publishLocked(events.TypeState, "", 0, 0)
	if c.done != nil {
		close(c.done)
	}
}

func (c *Crawler) loop(ctx context.Context, opts RunOptions) error {
	maxPages := c.opts.MaxPages
	if opts.MaxPages > 0 {
		maxPages = opts.MaxPages
	}

	page, err := c.deps.Host.ActiveTab(ctx)
	if err != nil {
		return &CrawlError{Page: 1, Message: "no active tab", Cause: err}
	}
	if opts.SearchURL != "" && c.deps.Opener != nil {
		if err := c.deps.Opener.OpenListing(ctx, opts.SearchURL); err != nil {
			return &CrawlError{Page: 1, Message: "failed to open listing", Cause: err}
		}
	}

	for pageNum := 1; ; pageNum++ {
		if c.token.Stopped() {
			return errStopped
		}
		c.setPage(pageNum)
		c.progress(fmt.Sprintf("Scraping page %d", pageNum))

		if err := c.scrapePage(ctx, page, pageNum); err != nil {
			return err
		}

		if c.token.Stopped() {
			return errStopped
		}
		if maxPages > 0 && pageNum >= maxPages {
			return errPageLimit
		}

		clicked, err := c.deps.Driver.ClickNext(ctx, page)
		if err != nil {
			return &CrawlError{Page: pageNum, Message: "failed to advance to next page", Cause: err}
		}
		if !clicked {
			return nil
		}
		if err := poll.Sleep(ctx, c.opts.PageSettle); err != nil {
			return err
		}
	}
}

// scrapePage prepares the current listing page and enriches every lead on it.
func (c *Crawler) scrapePage(ctx context.Context, page browser.PageID, pageNum int) error {
	if _, err := c.deps.Driver.WaitForList(ctx, page); err != nil {
		return &CrawlError{Page: pageNum, Message: "failed waiting for list", Cause: err}
	}
	if err := c.deps.Driver.ScrollToBottom(ctx, page); err != nil {
		return &CrawlError{Page: pageNum, Message: "failed to scroll results", Cause: err}
	}
	if err := poll.Sleep(ctx, c.opts.ListSettle); err != nil {
		return err
	}

	leads, kind, err := c.deps.Driver.ExtractListRows(ctx, page)
	if err != nil {
		return &CrawlError{Page: pageNum, Message: "failed to read list", Cause: err}
	}
	if kind == extract.ListingNone {
		log.Printf("[CRAWL] No list found on page %d", pageNum)
		return nil
	}
	if c.opts.Verbose {
		log.Printf("[CRAWL] Page %d: %d leads (%s)", pageNum, len(leads), kind)
	}

	emit := func(row types.LeadRow) error {
		if err := c.deps.Sink.AppendLead(ctx, row); err != nil {
			return err
		}
		c.rowAppended()
		return nil
	}

	for i, lead := range leads {
		if c.token.Stopped() {
			return errStopped
		}
		c.progress(fmt.Sprintf("Scraping page %d, lead %d of %d: %s", pageNum, i+1, len(leads), lead.Name))
		if _, err := c.pipeline.Enrich(ctx, lead, emit); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &CrawlError{Page: pageNum, Message: fmt.Sprintf("failed to store rows of %s", lead.Name), Cause: err}
		}
	}
	return nil
}

func (c *Crawler) setPage(page int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Page = page
}

func (c *Crawler) rowAppended() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Rows++
	c.publishLocked(events.TypeRow, "", 0, 0)
}

func (c *Crawler) progress(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Message = msg
	if c.opts.Verbose {
		log.Printf("[CRAWL] %s", msg)
	}
	c.publishLocked(events.TypeProgress, "", 0, 0)
}

func (c *Crawler) leadProgress(p enrich.Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Message = p.Message
	c.publishLocked(events.TypeProgress, p.Lead, p.Role, p.Roles)
}

func (c *Crawler) publishLocked(typ, lead string, role, roles int) {
	if c.deps.Hub == nil {
		return
	}
	c.deps.Hub.Publish(events.Event{
		Type:    typ,
		RunID:   c.status.RunID,
		State:   string(c.status.State),
		Page:    c.status.Page,
		Lead:    lead,
		Role:    role,
		Roles:   roles,
		Rows:    c.status.Rows,
		Message: c.status.Message,
		At:      time.Now().UTC(),
	})
}
