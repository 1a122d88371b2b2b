package extract

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jonathan/lead-scraper/internal/browser"
	"github.com/jonathan/lead-scraper/internal/poll"
	"github.com/jonathan/lead-scraper/internal/types"
)

// Listing wait bounds: the first name is polled every 500ms for at most 5s.
const (
	ListWaitInterval    = 500 * time.Millisecond
	ListWaitMaxAttempts = 10
)

// InspectorOptions configures polling of live pages.
type InspectorOptions struct {
	Interval    time.Duration
	MaxAttempts int
	// ListWaitInterval and ListWaitAttempts bound WaitForList.
	ListWaitInterval time.Duration
	ListWaitAttempts int
	BaseURL          string
	Verbose          bool
}

// DefaultInspectorOptions polls every 500ms for up to 10 attempts.
func DefaultInspectorOptions() *InspectorOptions {
	return &InspectorOptions{
		Interval:         poll.DefaultInterval,
		MaxAttempts:      poll.DefaultMaxAttempts,
		ListWaitInterval: ListWaitInterval,
		ListWaitAttempts: ListWaitMaxAttempts,
		BaseURL:          DefaultBaseURL,
	}
}

// Inspector reads fields from pages of a browser.Host. Detail extractions are
// polling resolvers: they retry until the primary field appears and resolve
// with "not found" values on exhaustion. Only an inaccessible document is an error.
type Inspector struct {
	host         browser.Host
	interval     time.Duration
	maxAttempts  int
	listInterval time.Duration
	listAttempts int
	baseURL      string
	verbose      bool
}

// NewInspector creates an Inspector over host.
func NewInspector(host browser.Host, opts *InspectorOptions) *Inspector {
	if opts == nil {
		opts = DefaultInspectorOptions()
	}
	in := &Inspector{
		host:         host,
		interval:     opts.Interval,
		maxAttempts:  opts.MaxAttempts,
		listInterval: opts.ListWaitInterval,
		listAttempts: opts.ListWaitAttempts,
		baseURL:      opts.BaseURL,
		verbose:      opts.Verbose,
	}
	if in.interval <= 0 {
		in.interval = poll.DefaultInterval
	}
	if in.maxAttempts < 1 {
		in.maxAttempts = poll.DefaultMaxAttempts
	}
	if in.listInterval <= 0 {
		in.listInterval = ListWaitInterval
	}
	if in.listAttempts < 1 {
		in.listAttempts = ListWaitMaxAttempts
	}
	if in.baseURL == "" {
		in.baseURL = DefaultBaseURL
	}
	return in
}

// ExtractProfile resolves the profile of the lead shown in page.
func (in *Inspector) ExtractProfile(ctx context.Context, page browser.PageID) (types.RawProfile, error) {
	profile, done, err := poll.Until(ctx, in.interval, in.maxAttempts, func(ctx context.Context) (types.RawProfile, bool, error) {
		html, err := browser.Snapshot(ctx, in.host, page)
		if err != nil {
			return types.RawProfile{}, false, err
		}
		p, err := ParseProfile(html, in.baseURL)
		if err != nil {
			return types.RawProfile{}, false, err
		}
		return p, profileReady(p), nil
	})
	if err != nil {
		return types.RawProfile{}, err
	}
	if !done && in.verbose {
		log.Printf("[ENRICH] Profile name did not render after %d attempts", in.maxAttempts)
	}
	if len(profile.Roles) == 0 {
		profile.Roles = []types.Role{types.NoRole()}
	}
	return profile, nil
}

// profileReady is true once a real name or any role has rendered.
func profileReady(p types.RawProfile) bool {
	named := p.FullName != "" && p.FullName != types.ProfileNameNotFound && p.FullName != types.PlaceholderMemberName
	if named {
		return true
	}
	for _, r := range p.Roles {
		if r.JobTitle != types.NoCurrentRole || r.CompanyHref != "" {
			return true
		}
	}
	return false
}

// ExtractCompany resolves the company shown in page.
func (in *Inspector) ExtractCompany(ctx context.Context, page browser.PageID) (types.RawCompany, error) {
	company, done, err := poll.Until(ctx, in.interval, in.maxAttempts, func(ctx context.Context) (types.RawCompany, bool, error) {
		html, err := browser.Snapshot(ctx, in.host, page)
		if err != nil {
			return types.RawCompany{}, false, err
		}
		c, err := ParseCompany(html)
		if err != nil {
			return types.RawCompany{}, false, err
		}
		return c, c.CompanyName != types.CompanyNameNotFound, nil
	})
	if err != nil {
		return types.RawCompany{}, err
	}
	if !done {
		if in.verbose {
			log.Printf("[ENRICH] Company name did not render after %d attempts", in.maxAttempts)
		}
		return types.CompanyNotFound(), nil
	}
	return company, nil
}

// ExtractListRows snapshots the listing shown in page. The kind is ListingNone
// when no list is present.
func (in *Inspector) ExtractListRows(ctx context.Context, page browser.PageID) ([]types.ListRow, ListingKind, error) {
	html, err := browser.Snapshot(ctx, in.host, page)
	if err != nil {
		return nil, ListingNone, err
	}
	return ParseListing(html, in.baseURL)
}

// WaitForList waits until the first lead name in page is non-empty. Absence is
// tolerated: it returns false once the wait is exhausted.
func (in *Inspector) WaitForList(ctx context.Context, page browser.PageID) (bool, error) {
	_, found, err := poll.Until(ctx, in.listInterval, in.listAttempts, func(ctx context.Context) (bool, bool, error) {
		html, err := browser.Snapshot(ctx, in.host, page)
		if err != nil {
			if ctx.Err() != nil {
				return false, false, ctx.Err()
			}
			// The document may not exist yet while the listing is loading.
			return false, false, nil
		}
		present := ListPresent(html)
		return present, present, nil
	})
	if err != nil {
		return false, err
	}
	if !found {
		log.Printf("[CRAWL] List content did not appear after %d attempts, continuing", in.listAttempts)
	}
	return found, nil
}

// ScrollToBottom scrolls the results container to force lazy rows to render.
// A missing container is skipped without error.
func (in *Inspector) ScrollToBottom(ctx context.Context, page browser.PageID) error {
	var scrolled bool
	if err := in.host.Evaluate(ctx, page, ScrollScript, &scrolled); err != nil {
		return &browser.Error{Op: "scroll", Message: "failed to scroll results", Cause: err}
	}
	if !scrolled {
		log.Printf("[CRAWL] Scroll container #%s not found, skipping scroll", ScrollContainerID)
	}
	return nil
}

// ClickNext activates the next-page control, reporting false when it is absent or disabled.
func (in *Inspector) ClickNext(ctx context.Context, page browser.PageID) (bool, error) {
	var clicked bool
	if err := in.host.Evaluate(ctx, page, NextPageScript, &clicked); err != nil {
		if errors.Is(err, context.Canceled) {
			return false, err
		}
		return false, &browser.Error{Op: "next", Message: "failed to activate next page", Cause: err}
	}
	return clicked, nil
}
