// Package providers declares the external data sources the enrichment
// engine consumes. Concrete clients live in the sub-packages; the engine
// only sees these interfaces.
package providers

import (
	"context"

	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/rules"
	"salgsmotor/pkg/domain"
)

// Provider IDs used in errors, logs and metrics.
const (
	IDBrreg        = "brreg"
	IDProff        = "proff"
	IDDomainHealth = "domainhealth"
	IDSocial       = "social"
	IDOpenAI       = "openai"
	IDGulesider    = "gulesider"
	IDRDAP         = "rdap"
)

// RegistryClient looks companies up in the national business registry.
type RegistryClient interface {
	// LookupByOrgNumber returns an ErrorNotFound ProviderError for unknown numbers.
	LookupByOrgNumber(ctx context.Context, orgnr domain.OrgNumber) (*models.RegistryData, error)
	SearchByName(ctx context.Context, name string) ([]models.Candidate, error)
}

// FinancialClient fetches published key figures.
type FinancialClient interface {
	Fetch(ctx context.Context, orgnr domain.OrgNumber) (*models.FinancialData, error)
}

// DomainHealthClient probes a company website.
type DomainHealthClient interface {
	Fetch(ctx context.Context, website string) (*models.DomainHealthData, error)
}

// SocialClient finds social network profiles linked from a website.
type SocialClient interface {
	Fetch(ctx context.Context, website string) (*models.SocialData, error)
}

// WebsiteFinder looks a company's website up in a business directory.
// An unlisted company yields "" and no error.
type WebsiteFinder interface {
	FindWebsite(ctx context.Context, orgnr domain.OrgNumber) (string, error)
}

// RegistrationClient looks up who the domain behind a website is
// registered through and when the registration runs out.
type RegistrationClient interface {
	Lookup(ctx context.Context, website string) (*models.RegistrationData, error)
}

// WebsiteAnalyzer has a language model assess a homepage.
type WebsiteAnalyzer interface {
	AnalyzeWebsite(ctx context.Context, website string) (*models.WebsiteAnalysis, error)
}

// AiTextClient writes a free-text sales note. Its output is not
// deterministic and callers must tolerate failure.
type AiTextClient interface {
	GenerateNote(ctx context.Context, bundle *models.Bundle, recs []rules.Recommendation) (string, error)
}
