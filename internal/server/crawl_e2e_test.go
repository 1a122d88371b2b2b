package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/lead-scraper/internal/browser"
	"github.com/jonathan/lead-scraper/internal/browser/browsertest"
	"github.com/jonathan/lead-scraper/internal/crawler"
	"github.com/jonathan/lead-scraper/internal/events"
	"github.com/jonathan/lead-scraper/internal/extract"
	"github.com/jonathan/lead-scraper/internal/server/ratelimit"
	"github.com/jonathan/lead-scraper/internal/store"
)

// Leads without a profile link are enriched from the list alone, so the
// crawl needs no background pages.
const unlinkedListing = `<html><body><div id="search-results-container"><ol class="artdeco-list">
<li class="artdeco-list__item"><a><span data-anonymize="person-name">Ada Lovelace</span></a><div><span data-anonymize="location">London</span></div></li>
<li class="artdeco-list__item"><a><span data-anonymize="person-name">Alan Turing</span></a></li>
</ol></div></body></html>`

func TestCrawlThroughAPI(t *testing.T) {
	host := browsertest.NewFakeHost()
	host.Listing = []string{unlinkedListing}
	host.Handle(extract.ScrollScript, func(*browsertest.FakeHost, browser.PageID) (any, error) { return true, nil })
	host.Handle(extract.NextPageScript, func(h *browsertest.FakeHost, _ browser.PageID) (any, error) { return h.NextListing(), nil })

	rows := store.New(store.NewMemoryKV(), nil)
	hub := events.NewHub()
	c := crawler.New(crawler.Deps{
		Host:      host,
		Navigator: browser.NewNavigator(host, &browser.NavigatorOptions{LoadTimeout: time.Second}),
		Driver:    extract.NewInspector(host, &extract.InspectorOptions{Interval: time.Millisecond, MaxAttempts: 2, ListWaitInterval: time.Millisecond}),
		Sink:      rows,
		Hub:       hub,
	}, &crawler.Options{})

	srv, err := New(Config{Crawler: c, Rows: rows, Hub: hub, RateLimit: &ratelimit.Config{Enabled: false}})
	require.NoError(t, err)
	t.Cleanup(srv.close)

	call := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	rec := call(http.MethodPost, "/crawl/start")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	final := c.Wait()
	assert.Equal(t, crawler.StateIdle, final.State)
	assert.Equal(t, crawler.MsgCompleted, final.Message)

	rec = call(http.MethodGet, "/rows/count")
	assert.JSONEq(t, `{"count":2}`, rec.Body.String())

	rec = call(http.MethodGet, "/rows")
	var got [][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Ada", "Lovelace", "London"}, got[1][:3])
	assert.Equal(t, []string{"Alan", "Turing"}, got[2][:2])

	assert.Equal(t, http.StatusConflict, call(http.MethodPost, "/crawl/stop").Code)
	assert.Equal(t, http.StatusOK, call(http.MethodGet, "/export.csv").Code)
}
