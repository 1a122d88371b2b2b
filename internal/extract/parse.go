// Package extract pulls lead, profile and company fields out of rendered LinkedIn documents.
// Parsing is pure and works on HTML snapshots; Inspector adds bounded polling against live pages.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/lead-scraper/internal/types"
)

// DefaultBaseURL resolves relative hrefs found in LinkedIn documents.
const DefaultBaseURL = "https://www.linkedin.com"

// Error represents a document that could not be parsed at all.
type Error struct {
	Kind    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extract error (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("extract error (%s): %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func parseDocument(kind, html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &Error{Kind: kind, Message: "failed to parse HTML", Cause: err}
	}
	return doc, nil
}

func detectListing(doc *goquery.Document) ListingKind {
	if doc.Find(searchListSelector).Length() > 0 {
		return ListingSearch
	}
	if doc.Find(leadTableSelector).Find(leadTableRowSelector).Length() > 0 {
		return ListingLeadTable
	}
	return ListingNone
}

// ParseListing extracts the lead summaries from whichever listing layout is present.
// The returned kind is ListingNone when the document holds no list.
func ParseListing(html, baseURL string) ([]types.ListRow, ListingKind, error) {
	doc, err := parseDocument("listing", html)
	if err != nil {
		return nil, ListingNone, err
	}
	switch kind := detectListing(doc); kind {
	case ListingSearch:
		return listRows(doc, baseURL), kind, nil
	case ListingLeadTable:
		return leadTableRows(doc, baseURL), kind, nil
	default:
		return nil, ListingNone, nil
	}
}

func listRows(doc *goquery.Document, baseURL string) []types.ListRow {
	var rows []types.ListRow
	doc.Find(searchListSelector).First().Find(searchRowSelector).Each(func(_ int, item *goquery.Selection) {
		name := item.Find(searchNameSelector).First()
		if name.Length() == 0 {
			name = item.Find(searchBareNameSelector).First()
		}
		row := types.ListRow{
			Name:     textOr(name, types.ProfileNameNotFound),
			Location: textOr(item.Find(searchLocationSelector).First(), types.LocationNotFound),
		}

		href, ok := name.Closest("a").Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			href = firstAttr(item, "href", ProfileLinkSelectors()...)
		}
		row.ProfileHref = resolveHref(baseURL, href)
		rows = append(rows, row)
	})
	return rows
}

func leadTableRows(doc *goquery.Document, baseURL string) []types.ListRow {
	var rows []types.ListRow
	doc.Find(leadTableSelector).First().Find(leadTableRowSelector).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return
		}
		first := cells.First()
		row := types.ListRow{
			Name:     textOr(first.Find(leadTableNameSel).First(), types.ProfileNameNotFound),
			Location: textOr(tr.Find(leadTableLocationSel).First(), types.LocationNotFound),
		}
		href, _ := first.Find(leadTableLinkSel).First().Attr("href")
		row.ProfileHref = resolveHref(baseURL, href)
		rows = append(rows, row)
	})
	return rows
}

// ListPresent reports whether the first lead name of a search list has rendered.
func ListPresent(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	if cleanText(doc.Find(FirstNameSelector).First().Text()) != "" {
		return true
	}
	return detectListing(doc) == ListingLeadTable
}

// ParseProfile extracts the lead's names and current roles from a profile page.
// Missing names are returned empty; a profile without roles gets one placeholder role.
func ParseProfile(html, baseURL string) (types.RawProfile, error) {
	doc, err := parseDocument("profile", html)
	if err != nil {
		return types.RawProfile{}, err
	}

	p := types.RawProfile{
		FirstName: cleanText(doc.Find(profileFirstNameSelector).First().Text()),
		FullName:  cleanText(doc.Find(profileFullNameSelector).First().Text()),
	}
	if p.FullName == "" || p.FullName == types.PlaceholderMemberName {
		if name := firstText(doc.Selection, ProfileNameFallbackSelectors()...); name != "" {
			p.FullName = name
		}
	}

	p.Roles = parseRoles(doc, baseURL)
	if len(p.Roles) == 0 {
		p.Roles = []types.Role{types.NoRole()}
	}
	return p, nil
}

// parseRoles distinguishes a single current role from a list of current roles.
func parseRoles(doc *goquery.Document, baseURL string) []types.Role {
	container := doc.Find(currentRoleSelector).First()
	if container.Length() == 0 {
		return nil
	}

	list := container.Find("ul").First()
	if list.Length() == 0 {
		return []types.Role{parseRole(container, baseURL)}
	}

	// Only direct items are roles; an empty list means no current role.
	items := list.ChildrenFiltered("li")
	var roles []types.Role
	items.Each(func(_ int, li *goquery.Selection) {
		roles = append(roles, parseRole(li, baseURL))
	})
	return roles
}

func parseRole(s *goquery.Selection, baseURL string) types.Role {
	href, _ := s.Find(roleCompanyLinkSelector).First().Attr("href")
	return types.Role{
		JobTitle:    textOr(s.Find(roleJobTitleSelector).First(), types.NoCurrentRole),
		CompanyHref: resolveHref(baseURL, href),
	}
}

// ParseCompany extracts the company fields; each missing field becomes its sentinel.
func ParseCompany(html string) (types.RawCompany, error) {
	doc, err := parseDocument("company", html)
	if err != nil {
		return types.RawCompany{}, err
	}

	website, _ := doc.Find(companyWebsiteSelector).First().Attr("href")
	website = strings.TrimSpace(website)
	if website == "" {
		website = types.WebsiteNotFound
	}

	return types.RawCompany{
		CompanyName:     textOr(doc.Find(companyNameSelector).First(), types.CompanyNameNotFound),
		CompanyLocation: textOr(doc.Find(companyLocationSelector).First(), types.LocationNotFound),
		CompanyIndustry: textOr(doc.Find(companyIndustrySelector).First(), types.IndustryNotFound),
		CompanyWebsite:  website,
	}, nil
}

// firstText returns the text of the first selector with non-empty text.
func firstText(s *goquery.Selection, selectors ...string) string {
	for _, selector := range selectors {
		if text := cleanText(s.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// firstAttr returns the attribute of the first selector where it is non-empty.
func firstAttr(s *goquery.Selection, attr string, selectors ...string) string {
	for _, selector := range selectors {
		if v, ok := s.Find(selector).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func textOr(s *goquery.Selection, fallback string) string {
	if text := cleanText(s.Text()); text != "" {
		return text
	}
	return fallback
}

// cleanText collapses runs of whitespace into single spaces.
func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// resolveHref makes href absolute against baseURL. Empty or unparseable hrefs resolve to "".
func resolveHref(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") || href == "#" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
