package crawler_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/lead-scraper/internal/browser"
	"github.com/jonathan/lead-scraper/internal/browser/browsertest"
	"github.com/jonathan/lead-scraper/internal/crawler"
	"github.com/jonathan/lead-scraper/internal/events"
	"github.com/jonathan/lead-scraper/internal/extract"
	"github.com/jonathan/lead-scraper/internal/store"
	"github.com/jonathan/lead-scraper/internal/types"
)

// listingPage renders a search result list whose leads link to /sales/lead/<id>.
func listingPage(ids ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="search-results-container"><ol class="artdeco-list">`)
	for _, id := range ids {
		fmt.Fprintf(&b, `<li class="artdeco-list__item"><a href="/sales/lead/%s"><span data-anonymize="person-name">Lead %s</span></a><div><span data-anonymize="location">City %s</span></div></li>`, id, id, id)
	}
	b.WriteString(`</ol></div></body></html>`)
	return b.String()
}

// profilePage renders a profile with a name and no current role.
func profilePage(id string) string {
	return fmt.Sprintf(`<html><body><h1 data-anonymize="person-name">Lead %s</h1><h2><span data-anonymize="person-name">Lead</span></h2></body></html>`, id)
}

type harness struct {
	host  *browsertest.FakeHost
	store *store.Store
	hub   *events.Hub
	deps  crawler.Deps
	opts  *crawler.Options
}

func newHarness(pages ...[]string) *harness {
	host := browsertest.NewFakeHost()
	for _, ids := range pages {
		host.Listing = append(host.Listing, listingPage(ids...))
		for _, id := range ids {
			host.Pages[extract.DefaultBaseURL+"/sales/lead/"+id] = []string{profilePage(id)}
		}
	}
	host.Handle(extract.ScrollScript, func(*browsertest.FakeHost, browser.PageID) (any, error) {
		return true, nil
	})
	host.Handle(extract.NextPageScript, func(h *browsertest.FakeHost, _ browser.PageID) (any, error) {
		return h.NextListing(), nil
	})

	st := store.New(store.NewMemoryKV(), nil)
	hub := events.NewHub()
	return &harness{
		host:  host,
		store: st,
		hub:   hub,
		deps: crawler.Deps{
			Host:      host,
			Navigator: browser.NewNavigator(host, &browser.NavigatorOptions{LoadTimeout: time.Second}),
			Driver: extract.NewInspector(host, &extract.InspectorOptions{
				Interval:         time.Millisecond,
				MaxAttempts:      2,
				ListWaitInterval: time.Millisecond,
			}),
			Sink: st,
			Hub:  hub,
		},
		opts: &crawler.Options{},
	}
}

func (h *harness) crawler() *crawler.Crawler {
	return crawler.New(h.deps, h.opts)
}

func TestRun_TwoPagesThreeLeadsNoRoles(t *testing.T) {
	h := newHarness([]string{"1", "2", "3"}, []string{"4", "5", "6"})
	c := h.crawler()

	status, err := c.Run(context.Background(), crawler.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, crawler.StateIdle, status.State)
	assert.Equal(t, crawler.MsgCompleted, status.Message)
	assert.Equal(t, 2, status.Page)
	assert.Equal(t, 6, status.Rows)
	assert.NotEmpty(t, status.RunID)

	rows, err := h.store.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, types.Header, rows[0])

	for i, row := range rows[1:] {
		id := fmt.Sprint(i + 1)
		assert.Equal(t, []string{
			"Lead",
			id,
			"City " + id,
			types.CompanyNameNotFound,
			types.NoCurrentRole,
			types.WebsiteNotFound,
			types.IndustryNotFound,
			types.LocationNotFound,
		}, row, "row %d", i+1)
	}
	assert.Equal(t, 0, h.host.OpenCount())
}

func TestRun_StopFinishesInFlightLead(t *testing.T) {
	h := newHarness([]string{"1", "2", "3"}, []string{"4"})
	var c *crawler.Crawler
	h.deps.Sink = &stopAfter{Store: h.store, n: 2, stop: func() { _ = c.Stop() }}
	c = h.crawler()

	status, err := c.Run(context.Background(), crawler.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, crawler.StateStopped, status.State)
	assert.Equal(t, crawler.MsgStoppedUser, status.Message)

	n, err := h.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, h.host.ListingIndex, "next page must not be clicked after a stop")
	assert.Len(t, h.host.Opened(), 2)
}

// stopAfter stops the crawler once n rows have been stored.
type stopAfter struct {
	*store.Store
	n    int
	stop func()
}

func (s *stopAfter) AppendLead(ctx context.Context, row types.LeadRow) error {
	if err := s.Store.AppendLead(ctx, row); err != nil {
		return err
	}
	if n, _ := s.Store.Count(ctx); n >= s.n {
		s.stop()
	}
	return nil
}

func TestRun_PageLimit(t *testing.T) {
	h := newHarness([]string{"1", "2"}, []string{"3"})
	h.opts.MaxPages = 1
	status, err := h.crawler().Run(context.Background(), crawler.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, crawler.StateIdle, status.State)
	assert.Equal(t, crawler.MsgPageLimit, status.Message)
	assert.Equal(t, 2, status.Rows)
}

func TestRun_RunOptionsOverrideMaxPages(t *testing.T) {
	h := newHarness([]string{"1"}, []string{"2"}, []string{"3"})
	h.opts.MaxPages = 1
	status, err := h.crawler().Run(context.Background(), crawler.RunOptions{MaxPages: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, status.Rows)
}

func TestRun_NoListCompletes(t *testing.T) {
	h := newHarness()
	h.host.Listing = []string{`<html><body><p>No results</p></body></html>`}
	status, err := h.crawler().Run(context.Background(), crawler.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, crawler.StateIdle, status.State)
	assert.Zero(t, status.Rows)
}

type failingSink struct {
	*store.Store
	failAfter int
	calls     int
}

func (f *failingSink) AppendLead(ctx context.Context, row types.LeadRow) error {
	f.calls++
	if f.calls > f.failAfter {
		return errors.New("disk full")
	}
	return f.Store.AppendLead(ctx, row)
}

func TestRun_StoreFailureErrorsRun(t *testing.T) {
	h := newHarness([]string{"1", "2", "3"})
	h.deps.Sink = &failingSink{Store: h.store, failAfter: 1}

	status, err := h.crawler().Run(context.Background(), crawler.RunOptions{})
	require.Error(t, err)
	var crawlErr *crawler.CrawlError
	require.ErrorAs(t, err, &crawlErr)
	assert.Equal(t, 1, crawlErr.Page)

	assert.Equal(t, crawler.StateErrored, status.State)
	assert.Contains(t, status.Message, "disk full")

	n, err := h.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "rows written before the failure are kept")
}

type blockingSink struct {
	*store.Store
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSink) AppendLead(ctx context.Context, row types.LeadRow) error {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return b.Store.AppendLead(ctx, row)
}

func TestStart_RejectsConcurrentRun(t *testing.T) {
	h := newHarness([]string{"1", "2"})
	sink := &blockingSink{Store: h.store, entered: make(chan struct{}, 1), release: make(chan struct{})}
	h.deps.Sink = sink
	c := h.crawler()

	assert.ErrorIs(t, c.Stop(), crawler.ErrNotRunning)

	runID, err := c.Start(context.Background(), crawler.RunOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	<-sink.entered

	_, err = c.Start(context.Background(), crawler.RunOptions{})
	assert.ErrorIs(t, err, crawler.ErrAlreadyRunning)
	assert.True(t, c.Running())

	require.NoError(t, c.Stop())
	close(sink.release)

	status := c.Wait()
	assert.Equal(t, crawler.StateStopped, status.State)
	assert.Equal(t, runID, status.RunID)
	assert.Equal(t, 1, status.Rows)

	// A fresh start resets the stop flag.
	h.deps.Sink = h.store
	status, err = crawler.New(h.deps, h.opts).Run(context.Background(), crawler.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, crawler.StateIdle, status.State)
}

func TestStart_LockFileExcludesSecondCrawler(t *testing.T) {
	h := newHarness([]string{"1"})
	sink := &blockingSink{Store: h.store, entered: make(chan struct{}, 1), release: make(chan struct{})}
	h.deps.Sink = sink
	h.opts.LockPath = filepath.Join(t.TempDir(), "crawl.lock")

	first := h.crawler()
	_, err := first.Start(context.Background(), crawler.RunOptions{})
	require.NoError(t, err)
	<-sink.entered

	second := h.crawler()
	_, err = second.Start(context.Background(), crawler.RunOptions{})
	assert.ErrorIs(t, err, crawler.ErrAlreadyRunning)

	close(sink.release)
	first.Wait()

	_, err = second.Run(context.Background(), crawler.RunOptions{})
	require.NoError(t, err)
}

func TestRun_ContextCancelled(t *testing.T) {
	h := newHarness([]string{"1", "2"})
	ctx, cancel := context.WithCancel(context.Background())
	h.host.OnOpen = func(string) { cancel() }

	status, err := h.crawler().Run(ctx, crawler.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, crawler.StateStopped, status.State)
	assert.Equal(t, crawler.MsgCancelled, status.Message)
	assert.Equal(t, 0, h.host.OpenCount())
}

func TestRun_PublishesEvents(t *testing.T) {
	h := newHarness([]string{"1"})
	sub := h.hub.Subscribe()

	status, err := h.crawler().Run(context.Background(), crawler.RunOptions{})
	require.NoError(t, err)

	var got []events.Event
	for len(sub) > 0 {
		got = append(got, <-sub)
	}
	require.NotEmpty(t, got)
	assert.Equal(t, events.TypeState, got[0].Type)
	assert.Equal(t, string(crawler.StateRunning), got[0].State)
	last := got[len(got)-1]
	assert.Equal(t, events.TypeState, last.Type)
	assert.Equal(t, string(crawler.StateIdle), last.State)
	assert.Equal(t, 1, last.Rows)

	var sawRow bool
	for _, e := range got {
		assert.Equal(t, status.RunID, e.RunID)
		sawRow = sawRow || e.Type == events.TypeRow
	}
	assert.True(t, sawRow)
}

func TestCrawlError_Format(t *testing.T) {
	err := &crawler.CrawlError{Page: 3, Message: "failed to read list", Cause: errors.New("boom")}
	assert.Equal(t, "crawl error on page 3: failed to read list: boom", err.Error())
}
