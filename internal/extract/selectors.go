// Package extract - selectors.go holds the selector tables for the listing, profile and company pages.
package extract

// ListingKind identifies the layout of a listing page.
type ListingKind string

const (
	// ListingSearch is the paginated people search result list.
	ListingSearch ListingKind = "search"
	// ListingLeadTable is a saved lead list rendered as a table.
	ListingLeadTable ListingKind = "lead_table"
	// ListingNone means no known listing was found in the document.
	ListingNone ListingKind = "none"
)

// Search list selectors.
const (
	searchListSelector     = "ol.artdeco-list"
	searchRowSelector      = "li.artdeco-list__item"
	searchNameSelector     = `a span[data-anonymize="person-name"]`
	searchBareNameSelector = `span[data-anonymize="person-name"]`
	searchLocationSelector = `div span[data-anonymize="location"]`

	// FirstNameSelector matches the first lead name once the list has rendered.
	FirstNameSelector = `li.artdeco-list__item a span[data-anonymize="person-name"]`

	// ScrollContainerID is the id of the scrollable results element.
	ScrollContainerID = "search-results-container"
)

// Lead table selectors.
const (
	leadTableSelector    = "table"
	leadTableRowSelector = "tbody tr"
	leadTableNameSel     = "a span"
	leadTableLinkSel     = "a[href]"
	leadTableLocationSel = `[data-anonymize="location"]`
)

// Profile page selectors.
const (
	profileFirstNameSelector = `h2 span[data-anonymize="person-name"]`
	profileFullNameSelector  = `h1[data-anonymize="person-name"]`
	currentRoleSelector      = `div[data-sn-view-name="lead-current-role"]`
	roleJobTitleSelector     = `span[data-anonymize="job-title"]`
	roleCompanyLinkSelector  = `a[data-anonymize="company-name"]`
)

// Company page selectors.
const (
	companyNameSelector     = `div[data-anonymize="company-name"]`
	companyWebsiteSelector  = `a[data-control-name="visit_company_website"]`
	companyLocationSelector = `div[data-anonymize="location"]`
	companyIndustrySelector = `span[data-anonymize="industry"]`
)

// ProfileNameFallbackSelectors are tried in order when the primary full-name
// element is missing, empty or shows the placeholder member name.
func ProfileNameFallbackSelectors() []string {
	return []string{
		"h1.text-heading-xlarge",
		"h1.break-words",
		`[data-test-id="profile-headline"] h1`,
		".pv-text-details__left-panel h1",
	}
}

// ProfileLinkSelectors locate the lead profile link inside a search row when
// the name element is not wrapped by an anchor.
func ProfileLinkSelectors() []string {
	return []string{
		`a[data-control-name*="lead_name"]`,
		`a[href*="/sales/lead/"]`,
		`a[href*="/sales/people/"]`,
		`a[href*="/in/"]`,
	}
}
