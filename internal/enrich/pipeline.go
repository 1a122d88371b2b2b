// Package enrich turns one lead summary into output rows by visiting its profile
// and the company page of every current role.
package enrich

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jonathan/lead-scraper/internal/browser"
	"github.com/jonathan/lead-scraper/internal/cancel"
	"github.com/jonathan/lead-scraper/internal/names"
	"github.com/jonathan/lead-scraper/internal/poll"
	"github.com/jonathan/lead-scraper/internal/types"
)

// PageOpener opens background pages and disposes them. *browser.Navigator implements it.
type PageOpener interface {
	OpenAndWait(ctx context.Context, url string) (*browser.Page, error)
	Dispose(page *browser.Page)
}

// DetailExtractor reads profile and company fields from an open page.
// *extract.Inspector implements it.
type DetailExtractor interface {
	ExtractProfile(ctx context.Context, page browser.PageID) (types.RawProfile, error)
	ExtractCompany(ctx context.Context, page browser.PageID) (types.RawCompany, error)
}

// Delays are the pauses taken around navigations.
type Delays struct {
	// ProfileSettle is waited after a profile page loads.
	ProfileSettle time.Duration
	// CompanySettleMin and CompanySettleMax bound the random wait after a company page loads.
	CompanySettleMin time.Duration
	CompanySettleMax time.Duration
	// RoleGapMin and RoleGapMax bound the random wait between role iterations.
	RoleGapMin time.Duration
	RoleGapMax time.Duration
}

// DefaultDelays returns the production pacing.
func DefaultDelays() Delays {
	return Delays{
		ProfileSettle:    3 * time.Second,
		CompanySettleMin: 2 * time.Second,
		CompanySettleMax: 4 * time.Second,
		RoleGapMin:       1 * time.Second,
		RoleGapMax:       3 * time.Second,
	}
}

// Progress describes where the pipeline is within a lead.
type Progress struct {
	Lead    string
	Role    int
	Roles   int
	Message string
}

// Options configures a Pipeline.
type Options struct {
	Delays Delays
	// Jitter picks a duration in [lo, hi]. Defaults to a uniform random pick.
	Jitter     func(lo, hi time.Duration) time.Duration
	OnProgress func(Progress)
	Verbose    bool
}

// Pipeline enriches leads strictly sequentially.
type Pipeline struct {
	nav        PageOpener
	inspector  DetailExtractor
	token      *cancel.Token
	delays     Delays
	jitter     func(lo, hi time.Duration) time.Duration
	onProgress func(Progress)
	verbose    bool
}

// NewPipeline creates a Pipeline. A nil opts uses DefaultDelays.
func NewPipeline(nav PageOpener, inspector DetailExtractor, token *cancel.Token, opts *Options) *Pipeline {
	if opts == nil {
		opts = &Options{Delays: DefaultDelays()}
	}
	p := &Pipeline{
		nav:        nav,
		inspector:  inspector,
		token:      token,
		delays:     opts.Delays,
		jitter:     opts.Jitter,
		onProgress: opts.OnProgress,
		verbose:    opts.Verbose,
	}
	if p.jitter == nil {
		p.jitter = uniformJitter
	}
	if p.token == nil {
		p.token = cancel.NewToken()
	}
	return p
}

func uniformJitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

// Enrich visits the lead's profile and company pages and emits one row per
// current role, in role order. It returns the number of rows emitted.
//
// Profile and company failures are replaced with error sentinels so the lead
// still yields its rows. A stop request aborts the remaining roles without an
// error. Errors returned are emit failures or context cancellation.
func (p *Pipeline) Enrich(ctx context.Context, lead types.ListRow, emit func(types.LeadRow) error) (int, error) {
	location := strings.TrimSpace(lead.Location)
	if location == "" {
		location = types.LocationNotFound
	}

	if p.token.Stopped() {
		return 0, nil
	}
	p.report(lead, 0, 0, fmt.Sprintf("Opening profile of %s", lead.Name))

	profile, err := p.profile(ctx, lead)
	if err != nil {
		return 0, err
	}
	if p.token.Stopped() {
		return 0, nil
	}

	name := leadName(profile)
	roles := profile.Roles
	if len(roles) == 0 {
		roles = []types.Role{types.NoRole()}
	}

	emitted := 0
	for i, role := range roles {
		if i > 0 && !p.token.Sleep(ctx, p.jitter(p.delays.RoleGapMin, p.delays.RoleGapMax)) {
			return emitted, ctx.Err()
		}
		if p.token.Stopped() {
			return emitted, nil
		}
		p.report(lead, i+1, len(roles), fmt.Sprintf("Processing role %d of %d for %s", i+1, len(roles), lead.Name))

		company, err := p.company(ctx, profile, role)
		if err != nil {
			return emitted, err
		}

		row := types.LeadRow{
			FirstName:       name.FirstName,
			LastName:        name.LastName,
			LeadLocation:    location,
			CompanyName:     company.CompanyName,
			JobTitle:        role.JobTitle,
			CompanyWebsite:  company.CompanyWebsite,
			CompanyIndustry: company.CompanyIndustry,
			CompanyLocation: company.CompanyLocation,
		}
		if err := emit(row); err != nil {
			return emitted, err
		}
		emitted++
	}
	return emitted, nil
}

// profile returns the lead's profile, the failure sentinel when it could not be
// read, or a profile built from the list name when the lead has no profile link.
func (p *Pipeline) profile(ctx context.Context, lead types.ListRow) (types.RawProfile, error) {
	if lead.ProfileHref == "" {
		if p.verbose {
			log.Printf("[ENRICH] No profile link for %s", lead.Name)
		}
		return profileFromListName(lead.Name), nil
	}

	var profile types.RawProfile
	err := p.visit(ctx, lead.ProfileHref, p.delays.ProfileSettle, func(page *browser.Page) error {
		var err error
		profile, err = p.inspector.ExtractProfile(ctx, page.ID)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return types.RawProfile{}, ctx.Err()
		}
		log.Printf("[ENRICH] Failed to parse profile %s: %v", lead.ProfileHref, err)
		return types.ProfileFailed(), nil
	}
	if profile.FullName == "" && lead.Name != types.ProfileNameNotFound {
		profile.FullName = lead.Name
	}
	return profile, nil
}

// company returns the company of role. Roles of a failed profile carry the
// profile sentinel, and roles without a company link get "not found" values.
func (p *Pipeline) company(ctx context.Context, profile types.RawProfile, role types.Role) (types.RawCompany, error) {
	if profile.IsProfileFailure() {
		return types.RawCompany{
			CompanyName:     types.ProfileError,
			CompanyLocation: types.ProfileError,
			CompanyIndustry: types.ProfileError,
			CompanyWebsite:  types.ProfileError,
		}, nil
	}
	if role.CompanyHref == "" {
		return types.CompanyNotFound(), nil
	}

	settle := p.jitter(p.delays.CompanySettleMin, p.delays.CompanySettleMax)
	var company types.RawCompany
	err := p.visit(ctx, role.CompanyHref, settle, func(page *browser.Page) error {
		var err error
		company, err = p.inspector.ExtractCompany(ctx, page.ID)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return types.RawCompany{}, ctx.Err()
		}
		log.Printf("[ENRICH] Failed to parse company %s: %v", role.CompanyHref, err)
		return types.CompanyFailed(), nil
	}
	return company, nil
}

// visit opens url, waits settle for client-side rendering, runs fn and disposes the page.
func (p *Pipeline) visit(ctx context.Context, url string, settle time.Duration, fn func(*browser.Page) error) error {
	page, err := p.nav.OpenAndWait(ctx, url)
	if err != nil {
		return err
	}
	defer p.nav.Dispose(page)

	if err := poll.Sleep(ctx, settle); err != nil {
		return err
	}
	return fn(page)
}

func (p *Pipeline) report(lead types.ListRow, role, roles int, msg string) {
	if p.verbose {
		log.Printf("[ENRICH] %s", msg)
	}
	if p.onProgress != nil {
		p.onProgress(Progress{Lead: lead.Name, Role: role, Roles: roles, Message: msg})
	}
}

// leadName normalizes the profile names. The failure sentinel is kept as is.
func leadName(profile types.RawProfile) names.Name {
	if profile.IsProfileFailure() {
		return names.Name{FirstName: types.ProfileError, LastName: types.ProfileError}
	}
	return names.Clean(profile.FirstName, profile.FullName)
}

func profileFromListName(name string) types.RawProfile {
	p := types.RawProfile{Roles: []types.Role{types.NoRole()}}
	if name == "" || name == types.ProfileNameNotFound {
		return p
	}
	p.FullName = name
	if fields := strings.Fields(name); len(fields) > 0 {
		p.FirstName = fields[0]
	}
	return p
}
