package rules

import (
	"fmt"
	"strings"
	"time"

	"salgsmotor/internal/enrichment/models"
	"salgsmotor/pkg/email"
)

// Service categories, in rank order.
const (
	CategoryStartup       Category = "Startup-pakke"
	CategoryWebdesign     Category = "Webdesign / Nettprofil"
	CategorySecurity      Category = "Sikkerhetsoppgradering"
	CategoryEmail         Category = "Profesjonell e-post / branding"
	CategoryAutomation    Category = "Automatisering / første løsning"
	CategoryRebranding    Category = "Omprofilering / nye markeder"
	CategoryAccounting    Category = "Regnskapsintegrasjon / Fiken"
	CategoryBooking       Category = "Bestilling / kalender / tilstedeværelse"
	CategoryHosting       Category = "Hosting / vedlikehold"
	CategorySEO           Category = "SEO + reviews + nettpakke"
	CategoryModernization Category = "Modernisering"
	CategoryFeedback      Category = "Kundetilbakemeldingssystem"
	CategoryVisibility    Category = "Synlighetspakke (AI, SEO, bilder)"
	CategoryCustomCRM     Category = "Skreddersydd CRM / integrasjon"
	CategoryNewsletter    Category = "E-postmarkedsføring / nyhetsbrev"
)

// Revenue below this (NOK) counts as weak financials.
const lowRevenueNOK = 1_000_000

// A certificate or domain expiring within this window counts as a finding.
const renewalWindow = 30 * 24 * time.Hour

var serviceIndustries = []string{"frisør", "tannlege", "klinikk", "behandling", "terapi", "helse"}

var competitiveIndustries = []string{
	"butikkhandel", "restaurant", "eiendomsmegling", "regnskap",
	"programvare", "konsulent", "håndverker", "rådgivning",
}

// Catalog returns the fixed rule list in evaluation order.
func Catalog() []Rule {
	return []Rule{
		{
			ID: "startup", Category: CategoryStartup, Priority: 1,
			Applies: func(in Input) bool {
				founded, ok := foundedOn(in)
				return ok && founded.AddDate(2, 0, 0).After(in.AsOf)
			},
			Rationale: func(in Input) string {
				founded, _ := foundedOn(in)
				return fmt.Sprintf("Stiftet %s, under to år siden. Nytt selskap uten etablerte systemer.", founded.Format(time.DateOnly))
			},
		},
		{
			ID: "no_website", Category: CategoryWebdesign, Priority: 2,
			Applies: func(in Input) bool {
				r := registry(in)
				return r != nil && strings.TrimSpace(r.Website) == ""
			},
			Rationale: constant("Ingen nettside registrert i Brønnøysundregistrene."),
		},
		{
			ID: "tls_invalid", Category: CategorySecurity, Priority: 3,
			Applies: func(in Input) bool {
				return hasWebsite(in) && (domainHealth(in).TLSInvalid() || tlsExpiringSoon(in))
			},
			Rationale: func(in Input) string {
				d := domainHealth(in)
				if d.TLSInvalid() {
					return fmt.Sprintf("Nettsiden %s mangler gyldig SSL-sertifikat.", d.Website)
				}
				return fmt.Sprintf("SSL-sertifikatet for %s utløper %s.", d.Website, d.TLSExpiresAt.Format(time.DateOnly))
			},
		},
		{
			ID: "free_webmail", Category: CategoryEmail, Priority: 4,
			Applies: func(in Input) bool {
				return usesFreeWebmail(in) || mailServerMissing(in)
			},
			Rationale: func(in Input) string {
				if usesFreeWebmail(in) {
					return fmt.Sprintf("Bruker gratis e-posttjeneste (%s) i stedet for eget domene.", contact(in).EmailDomain)
				}
				return fmt.Sprintf("Domenet til %s har ingen e-postserver (MX).", domainHealth(in).Website)
			},
		},
		{
			ID: "no_employees", Category: CategoryAutomation, Priority: 5,
			Applies: func(in Input) bool {
				r := registry(in)
				return r != nil && r.Employees != nil && *r.Employees == 0
			},
			Rationale: constant("Ingen registrerte ansatte. Eieren gjør alt selv og sparer mest på automatisering."),
		},
		{
			ID: "weak_financials", Category: CategoryRebranding, Priority: 6,
			Applies: func(in Input) bool {
				return len(financialConcerns(in)) > 0
			},
			Rationale: func(in Input) string {
				return "Svake nøkkeltall: " + strings.Join(financialConcerns(in), ", ") + "."
			},
		},
		{
			ID: "bookkeeping_tool", Category: CategoryAccounting, Priority: 7,
			Applies: func(in Input) bool {
				d := domainHealth(in)
				return d != nil && len(d.BookkeepingTools) > 0
			},
			Rationale: func(in Input) string {
				return "Bruker regnskapssystem: " + strings.Join(domainHealth(in).BookkeepingTools, ", ") + "."
			},
		},
		{
			ID: "service_without_booking", Category: CategoryBooking, Priority: 8,
			Applies: func(in Input) bool {
				if _, ok := industryMatch(in, serviceIndustries); !ok {
					return false
				}
				if !hasWebsite(in) {
					return true
				}
				d := domainHealth(in)
				return d != nil && d.Reachable && len(d.BookingTools) == 0
			},
			Rationale: func(in Input) string {
				kw, _ := industryMatch(in, serviceIndustries)
				return fmt.Sprintf("Tjenestebransje (%s) uten nettbasert timebestilling.", kw)
			},
		},
		{
			ID: "website_unreachable", Category: CategoryHosting, Priority: 9,
			Applies: func(in Input) bool {
				d := domainHealth(in)
				return hasWebsite(in) && (d != nil && !d.Reachable || domainExpiringSoon(in))
			},
			Rationale: func(in Input) string {
				if d := domainHealth(in); d != nil && !d.Reachable {
					return fmt.Sprintf("Nettsiden %s svarer ikke.", d.Website)
				}
				r := in.Bundle.Registration
				return fmt.Sprintf("Domenet %s utløper %s.", r.Domain, r.ExpiresAt.Format(time.DateOnly))
			},
		},
		{
			ID: "competitive_industry", Category: CategorySEO, Priority: 10,
			Applies: func(in Input) bool {
				_, ok := industryMatch(in, competitiveIndustries)
				return ok
			},
			Rationale: func(in Input) string {
				kw, _ := industryMatch(in, competitiveIndustries)
				return fmt.Sprintf("Konkurranseutsatt bransje (%s). Synlighet i søk og anmeldelser avgjør.", kw)
			},
		},
		{
			ID: "outdated_presence", Category: CategoryModernization, Priority: 11,
			Applies: func(in Input) bool {
				founded, ok := foundedOn(in)
				if !ok || !founded.AddDate(10, 0, 0).Before(in.AsOf) {
					return false
				}
				r := registry(in)
				noWebsite := r != nil && strings.TrimSpace(r.Website) == ""
				return noWebsite || domainHealth(in).TLSInvalid() || usesFreeWebmail(in)
			},
			Rationale: func(in Input) string {
				founded, _ := foundedOn(in)
				return fmt.Sprintf("Etablert %d med utdatert digital profil.", founded.Year())
			},
		},
		{
			ID: "missing_financial_profile", Category: CategoryFeedback, Priority: 12,
			Applies: func(in Input) bool {
				f := financial(in)
				return f != nil && !f.HasKeyFigures() && (f.Rating == "" || f.Rating == models.RatingUnknown)
			},
			Rationale: constant("Ingen nøkkeltall eller vurdering publisert. Kundetilbakemeldinger bygger tillit."),
		},
		{
			ID: "no_social_profiles", Category: CategoryVisibility, Priority: 13,
			Applies: func(in Input) bool {
				s := social(in)
				return s != nil && !s.HasProfiles()
			},
			Rationale: constant("Fant ingen profiler i sosiale medier."),
		},
		{
			ID: "crm_missing_contact", Category: CategoryCustomCRM, Priority: 14,
			Applies: func(in Input) bool {
				return !in.CRM.HasContactPoint()
			},
			Rationale: constant("CRM-kortet mangler både e-post og telefon."),
		},
		{
			ID: "no_newsletter", Category: CategoryNewsletter, Priority: 15,
			Applies: func(in Input) bool {
				d := domainHealth(in)
				return hasWebsite(in) && d != nil && d.Reachable && len(d.NewsletterTools) == 0
			},
			Rationale: constant("Ingen verktøy for nyhetsbrev funnet på nettsiden."),
		},
	}
}

func constant(s string) func(Input) string {
	return func(Input) string { return s }
}

func registry(in Input) *models.RegistryData {
	if in.Bundle == nil {
		return nil
	}
	return in.Bundle.Registry
}

func financial(in Input) *models.FinancialData {
	if in.Bundle == nil {
		return nil
	}
	return in.Bundle.Financial
}

func domainHealth(in Input) *models.DomainHealthData {
	if in.Bundle == nil {
		return nil
	}
	return in.Bundle.DomainHealth
}

func social(in Input) *models.SocialData {
	if in.Bundle == nil {
		return nil
	}
	return in.Bundle.Social
}

func contact(in Input) *models.ContactData {
	if in.Bundle == nil {
		return nil
	}
	return in.Bundle.Contact
}

// hasWebsite also counts a website found outside the registry.
func hasWebsite(in Input) bool {
	return in.Bundle != nil && in.Bundle.Website() != ""
}

func usesFreeWebmail(in Input) bool {
	c := contact(in)
	return c != nil && c.ProviderClass == email.ProviderFree
}

// mailServerMissing needs a reachable site; an unreachable one says
// nothing reliable about its domain.
func mailServerMissing(in Input) bool {
	d := domainHealth(in)
	return hasWebsite(in) && d != nil && d.Reachable && !d.HasMX
}

// tlsExpiringSoon compares against AsOf, never the wall clock.
func tlsExpiringSoon(in Input) bool {
	d := domainHealth(in)
	if d == nil || d.TLSExpiresAt == nil {
		return false
	}
	return d.TLSExpiresAt.Sub(in.AsOf) < renewalWindow
}

func domainExpiringSoon(in Input) bool {
	if in.Bundle == nil || in.Bundle.Registration == nil || in.Bundle.Registration.ExpiresAt == nil {
		return false
	}
	return in.Bundle.Registration.ExpiresAt.Sub(in.AsOf) < renewalWindow
}

func foundedOn(in Input) (time.Time, bool) {
	r := registry(in)
	if r == nil || r.FoundedOn == nil || r.FoundedOn.IsZero() {
		return time.Time{}, false
	}
	return *r.FoundedOn, true
}

// industryMatch returns the first keyword contained in the industry description.
func industryMatch(in Input, keywords []string) (string, bool) {
	r := registry(in)
	if r == nil || r.Industry == "" {
		return "", false
	}
	industry := strings.ToLower(r.Industry)
	for _, kw := range keywords {
		if strings.Contains(industry, kw) {
			return kw, true
		}
	}
	return "", false
}

// financialConcerns lists weak key figures in a fixed order.
func financialConcerns(in Input) []string {
	f := financial(in)
	if !f.HasKeyFigures() {
		return nil
	}
	var concerns []string
	if rev := f.Figures.Revenue; rev != nil && *rev < lowRevenueNOK {
		concerns = append(concerns, fmt.Sprintf("omsetning %d NOK under 1 MNOK", *rev))
	}
	if res := f.Figures.ProfitBeforeTax; res != nil && *res < 0 {
		concerns = append(concerns, fmt.Sprintf("negativt resultat før skatt (%d NOK)", *res))
	}
	return concerns
}
