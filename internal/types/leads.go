// Package types provides type definitions for structured data shared across the lead scraper.
package types

// Sentinel values substituted when a genuine value cannot be determined.
const (
	FirstNameNotFound   = "First name not found"
	LastNameNotFound    = "Last name not found"
	LocationNotFound    = "Location not found"
	CompanyNameNotFound = "Company name not found"
	WebsiteNotFound     = "Website not found"
	IndustryNotFound    = "Industry not found"
	NoCurrentRole       = "No current role"
	ProfileNameNotFound = "Profile name not found"
	ProfileError        = "Error parsing profile"
	CompanyError        = "Error parsing company"

	// PlaceholderMemberName is shown instead of a real name for out-of-network leads.
	PlaceholderMemberName = "LinkedIn Member"
)

// Header is the first row of every non-empty store, naming each LeadRow column in order.
var Header = []string{
	"First Name",
	"Last Name",
	"Lead Location",
	"Company Name",
	"Job Title",
	"Company Website",
	"Company Industry",
	"Company Location",
}

// HeaderRow returns a fresh copy of Header.
func HeaderRow() []string {
	row := make([]string, len(Header))
	copy(row, Header)
	return row
}

// LeadRow is one output record, produced once per (lead, role) pair.
type LeadRow struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	LeadLocation    string `json:"lead_location"`
	CompanyName     string `json:"company_name"`
	JobTitle        string `json:"job_title"`
	CompanyWebsite  string `json:"company_website"`
	CompanyIndustry string `json:"company_industry"`
	CompanyLocation string `json:"company_location"`
}

// Values returns the row as an ordered tuple matching Header.
func (r LeadRow) Values() []string {
	return []string{
		r.FirstName,
		r.LastName,
		r.LeadLocation,
		r.CompanyName,
		r.JobTitle,
		r.CompanyWebsite,
		r.CompanyIndustry,
		r.CompanyLocation,
	}
}

// ListRow is the lead summary read from the listing view.
type ListRow struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	ProfileHref string `json:"profile_href,omitempty"`
}

// Role is one current position of a lead. An empty CompanyHref means no company link.
type Role struct {
	JobTitle    string `json:"job_title"`
	CompanyHref string `json:"company_href,omitempty"`
}

// RawProfile is the transient result of profile extraction. Empty names mean "not present".
type RawProfile struct {
	FirstName string `json:"first_name"`
	FullName  string `json:"full_name"`
	Roles     []Role `json:"roles"`
}

// RawCompany is the transient result of company extraction.
type RawCompany struct {
	CompanyName     string `json:"company_name"`
	CompanyLocation string `json:"company_location"`
	CompanyIndustry string `json:"company_industry"`
	CompanyWebsite  string `json:"company_website"`
}

// NoRole is the placeholder role used when a profile lists no current position.
func NoRole() Role {
	return Role{JobTitle: NoCurrentRole}
}

// CompanyNotFound returns a company record populated with "not found" sentinels.
func CompanyNotFound() RawCompany {
	return RawCompany{
		CompanyName:     CompanyNameNotFound,
		CompanyLocation: LocationNotFound,
		CompanyIndustry: IndustryNotFound,
		CompanyWebsite:  WebsiteNotFound,
	}
}

// CompanyFailed returns a company record populated with the company error sentinel.
func CompanyFailed() RawCompany {
	return RawCompany{
		CompanyName:     CompanyError,
		CompanyLocation: CompanyError,
		CompanyIndustry: CompanyError,
		CompanyWebsite:  CompanyError,
	}
}

// ProfileFailed returns the sentinel profile substituted when profile enrichment fails.
func ProfileFailed() RawProfile {
	return RawProfile{
		FirstName: ProfileError,
		FullName:  ProfileError,
		Roles:     []Role{{JobTitle: ProfileError}},
	}
}

// IsProfileFailure reports whether p is the profile error sentinel record.
func (p RawProfile) IsProfileFailure() bool {
	return p.FirstName == ProfileError && p.FullName == ProfileError
}
