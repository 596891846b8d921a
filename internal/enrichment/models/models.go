// Package models holds the enrichment bundle: everything the external
// sources know about one company, merged into one value.
//
// Every part is optional. A nil part means the source was not asked, was
// skipped, or failed; rules treat it as unknown, never as "false".
package models

import (
	"encoding/json"
	"time"

	"salgsmotor/pkg/email"
)

// Source names one enrichment collaborator.
type Source string

const (
	SourceRegistry     Source = "registry"
	SourceFinancial    Source = "financial"
	SourceDomainHealth Source = "domain_health"
	SourceSocial       Source = "social"

	// SourceWebsiteDiscovery finds a website in a business directory when
	// the registry has none.
	SourceWebsiteDiscovery Source = "website_discovery"
	SourceRegistration     Source = "registration"
	SourceWebsiteAnalysis  Source = "website_analysis"
)

// Financial rating categories derived from key figures.
const (
	RatingStable  = "Stabil"
	RatingRisk    = "Risiko"
	RatingUnknown = "Ukjent"
)

// Bundle is the merged profile of one company. It is built by the
// aggregator and must not be mutated once returned; use Clone for a copy.
type Bundle struct {
	OrgNumber    string            `json:"orgnr"`
	Registry     *RegistryData     `json:"registry,omitempty"`
	Financial    *FinancialData    `json:"financial,omitempty"`
	DomainHealth *DomainHealthData `json:"domain_health,omitempty"`
	Social       *SocialData       `json:"social,omitempty"`
	Contact      *ContactData      `json:"contact,omitempty"`

	// DiscoveredWebsite is set only when the registry has no website.
	DiscoveredWebsite string            `json:"discovered_website,omitempty"`
	Registration      *RegistrationData `json:"registration,omitempty"`
	WebsiteAnalysis   *WebsiteAnalysis  `json:"website_analysis,omitempty"`

	SourceErrors map[Source]string `json:"source_errors,omitempty"`
	CollectedAt  time.Time         `json:"collected_at"`
}

// RegistryData is the company as registered in Enhetsregisteret.
type RegistryData struct {
	OrgNumber        string     `json:"orgnr"`
	Name             string     `json:"name"`
	OrganizationForm string     `json:"organization_form,omitempty"`
	IndustryCode     string     `json:"industry_code,omitempty"`
	Industry         string     `json:"industry,omitempty"`
	Employees        *int       `json:"employees,omitempty"`
	FoundedOn        *time.Time `json:"founded_on,omitempty"`
	Website          string     `json:"website,omitempty"`
	Email            string     `json:"email,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	Municipality     string     `json:"municipality,omitempty"`
}

// Candidate is one registry name-search hit.
type Candidate struct {
	OrgNumber string `json:"orgnr"`
	Name      string `json:"name"`
}

// KeyFigures are the latest published accounts, in NOK.
type KeyFigures struct {
	Year            int    `json:"year,omitempty"`
	Revenue         *int64 `json:"revenue,omitempty"`
	ProfitBeforeTax *int64 `json:"profit_before_tax,omitempty"`
}

// FinancialData is what the financial-data source publishes about a company.
type FinancialData struct {
	Rating      string      `json:"rating"`
	Figures     *KeyFigures `json:"figures,omitempty"`
	Concerns    []string    `json:"concerns,omitempty"`
	Description string      `json:"description,omitempty"`
	Email       string      `json:"email,omitempty"`
}

// HasKeyFigures reports whether any figure was published.
func (f *FinancialData) HasKeyFigures() bool {
	return f != nil && f.Figures != nil && (f.Figures.Revenue != nil || f.Figures.ProfitBeforeTax != nil)
}

// DomainHealthData is the result of probing the company website.
type DomainHealthData struct {
	Website   string `json:"website"`
	Reachable bool   `json:"reachable"`
	// TLSValid is nil when no TLS handshake could be attempted.
	TLSValid         *bool      `json:"tls_valid,omitempty"`
	TLSExpiresAt     *time.Time `json:"tls_expires_at,omitempty"`
	HasMX            bool       `json:"has_mx"`
	Technologies     []string   `json:"technologies,omitempty"`
	BookkeepingTools []string   `json:"bookkeeping_tools,omitempty"`
	BookingTools     []string   `json:"booking_tools,omitempty"`
	NewsletterTools  []string   `json:"newsletter_tools,omitempty"`
}

// TLSInvalid reports a known-bad certificate or a site without HTTPS.
func (d *DomainHealthData) TLSInvalid() bool {
	return d != nil && d.TLSValid != nil && !*d.TLSValid
}

// RegistrationData is the domain registration behind the website.
type RegistrationData struct {
	Domain       string     `json:"domain"`
	Registrar    string     `json:"registrar,omitempty"`
	RegisteredAt *time.Time `json:"registered_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// WebsiteAnalysis is a model-written assessment of the homepage text:
// tone of voice, clarity of purpose and call to action. It is not
// deterministic and no rule reads it.
type WebsiteAnalysis struct {
	Summary string `json:"summary"`
}

// SocialData lists social network profiles linked from the website,
// keyed by network name.
type SocialData struct {
	Profiles map[string]string `json:"profiles"`
}

func (s *SocialData) HasProfiles() bool {
	return s != nil && len(s.Profiles) > 0
}

// ContactData is the company-level contact point.
type ContactData struct {
	Email         string              `json:"email,omitempty"`
	EmailDomain   string              `json:"email_domain,omitempty"`
	ProviderClass email.ProviderClass `json:"provider_class"`
	Phone         string              `json:"phone,omitempty"`
}

// Website returns the registered website, else the discovered one, or "".
func (b *Bundle) Website() string {
	if b == nil {
		return ""
	}
	if b.Registry != nil && b.Registry.Website != "" {
		return b.Registry.Website
	}
	return b.DiscoveredWebsite
}

// CompanyName returns the registered name, or "".
func (b *Bundle) CompanyName() string {
	if b == nil || b.Registry == nil {
		return ""
	}
	return b.Registry.Name
}

// Clone returns a deep copy.
func (b *Bundle) Clone() *Bundle {
	if b == nil {
		return nil
	}
	raw, err := json.Marshal(b)
	if err != nil {
		// every field is JSON-safe
		panic(err)
	}
	var out Bundle
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}
