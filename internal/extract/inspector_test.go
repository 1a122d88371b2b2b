package extract_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/lead-scraper/internal/browser"
	"github.com/jonathan/lead-scraper/internal/browser/browsertest"
	"github.com/jonathan/lead-scraper/internal/extract"
	"github.com/jonathan/lead-scraper/internal/types"
)

const (
	profileURL = "https://www.linkedin.com/sales/lead/1"
	companyURL = "https://www.linkedin.com/sales/company/1"
)

func fastInspector(host browser.Host) *extract.Inspector {
	return extract.NewInspector(host, &extract.InspectorOptions{
		Interval:    time.Millisecond,
		MaxAttempts: 3,
	})
}

func openPage(t *testing.T, host *browsertest.FakeHost, url string) browser.PageID {
	t.Helper()
	id, err := host.CreateBackgroundPage(context.Background(), url)
	require.NoError(t, err)
	return id
}

func TestExtractProfile_RetriesUntilNameRenders(t *testing.T) {
	host := browsertest.NewFakeHost()
	host.Pages[profileURL] = []string{
		`<html><body><div class="skeleton"></div></body></html>`,
		`<html><body><h1 data-anonymize="person-name">Jane Doe</h1><h2><span data-anonymize="person-name">Jane</span></h2></body></html>`,
	}
	id := openPage(t, host, profileURL)

	p, err := fastInspector(host).ExtractProfile(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Jane", p.FirstName)
	assert.Equal(t, "Jane Doe", p.FullName)
	assert.Equal(t, []types.Role{types.NoRole()}, p.Roles)
}

func TestExtractProfile_ExhaustionResolvesWithoutError(t *testing.T) {
	host := browsertest.NewFakeHost()
	host.Pages[profileURL] = []string{`<html><body></body></html>`}
	id := openPage(t, host, profileURL)

	p, err := fastInspector(host).ExtractProfile(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, p.FullName)
	assert.Equal(t, []types.Role{types.NoRole()}, p.Roles)
}

func TestExtractProfile_DocumentFailureIsError(t *testing.T) {
	host := browsertest.NewFakeHost()
	host.SnapshotErrors[profileURL] = errors.New("frame detached")
	id := openPage(t, host, profileURL)

	_, err := fastInspector(host).ExtractProfile(context.Background(), id)
	require.Error(t, err)
}

func TestExtractCompany(t *testing.T) {
	host := browsertest.NewFakeHost()
	host.Pages[companyURL] = []string{
		`<html><body></body></html>`,
		`<html><body><div data-anonymize="company-name">Acme</div><span data-anonymize="industry">Software</span></body></html>`,
	}
	id := openPage(t, host, companyURL)

	c, err := fastInspector(host).ExtractCompany(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Acme", c.CompanyName)
	assert.Equal(t, "Software", c.CompanyIndustry)
	assert.Equal(t, types.LocationNotFound, c.CompanyLocation)
	assert.Equal(t, types.WebsiteNotFound, c.CompanyWebsite)
}

func TestExtractCompany_ExhaustionYieldsNotFound(t *testing.T) {
	host := browsertest.NewFakeHost()
	host.Pages[companyURL] = []string{`<html><body><span data-anonymize="industry">Software</span></body></html>`}
	id := openPage(t, host, companyURL)

	c, err := fastInspector(host).ExtractCompany(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.CompanyNotFound(), c)
}

func TestExtractListRows(t *testing.T) {
	host := browsertest.NewFakeHost()
	host.Listing = []string{`<ol class="artdeco-list"><li class="artdeco-list__item"><a href="/in/a"><span data-anonymize="person-name">A B</span></a></li></ol>`}

	rows, kind, err := fastInspector(host).ExtractListRows(context.Background(), browser.ActivePageID)
	require.NoError(t, err)
	assert.Equal(t, extract.ListingSearch, kind)
	require.Len(t, rows, 1)
	assert.Equal(t, "https://www.linkedin.com/in/a", rows[0].ProfileHref)
}

func TestExtractListRows_NoDocument(t *testing.T) {
	host := browsertest.NewFakeHost()
	_, _, err := fastInspector(host).ExtractListRows(context.Background(), browser.ActivePageID)
	assert.ErrorIs(t, err, browser.ErrNoDocument)
}

func TestWaitForList_Found(t *testing.T) {
	host := browsertest.NewFakeHost()
	host.Listing = []string{`<ol class="artdeco-list"><li class="artdeco-list__item"><a><span data-anonymize="person-name">A</span></a></li></ol>`}

	found, err := fastInspector(host).WaitForList(context.Background(), browser.ActivePageID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestWaitForList_CancelledContext(t *testing.T) {
	host := browsertest.NewFakeHost()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	found, err := fastInspector(host).WaitForList(ctx, browser.ActivePageID)
	assert.False(t, found)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScrollToBottom_MissingContainerTolerated(t *testing.T) {
	host := browsertest.NewFakeHost()
	host.Handle(extract.ScrollScript, func(*browsertest.FakeHost, browser.PageID) (any, error) {
		return false, nil
	})
	assert.NoError(t, fastInspector(host).ScrollToBottom(context.Background(), browser.ActivePageID))
}

func TestScrollToBottom_EvaluateFailure(t *testing.T) {
	host := browsertest.NewFakeHost()
	host.Handle(extract.ScrollScript, func(*browsertest.FakeHost, browser.PageID) (any, error) {
		return nil, errors.New("target closed")
	})
	err := fastInspector(host).ScrollToBottom(context.Background(), browser.ActivePageID)
	var browserErr *browser.Error
	assert.ErrorAs(t, err, &browserErr)
}

func TestClickNext(t *testing.T) {
	host := browsertest.NewFakeHost()
	host.Listing = []string{"<p>1</p>", "<p>2</p>"}
	host.Handle(extract.NextPageScript, func(h *browsertest.FakeHost, _ browser.PageID) (any, error) {
		return h.NextListing(), nil
	})
	in := fastInspector(host)

	clicked, err := in.ClickNext(context.Background(), browser.ActivePageID)
	require.NoError(t, err)
	assert.True(t, clicked)

	clicked, err = in.ClickNext(context.Background(), browser.ActivePageID)
	require.NoError(t, err)
	assert.False(t, clicked)
}
