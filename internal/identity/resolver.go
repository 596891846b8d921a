// Package identity decides which organization number a CRM record stands for.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"salgsmotor/internal/crm"
	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/enrichment/providers"
	"salgsmotor/internal/platform/logger"
	"salgsmotor/pkg/domain"
	pstrings "salgsmotor/pkg/platform/strings"
)

// Status is the outcome of resolving one record.
type Status string

const (
	StatusResolved   Status = "resolved"
	StatusUnresolved Status = "unresolved"
)

// Unresolved reasons.
const (
	ReasonMissing         = "missing organization number"
	ReasonInvalid         = "invalid organization number"
	ReasonNoName          = "record has no company name"
	ReasonNoMatch         = "no registry match"
	ReasonNotInRegistry   = "organization number not found in registry"
	ReasonSearchFailed    = "registry search failed"
	reasonAmbiguousPrefix = "ambiguous"
)

// Resolution is the result for one record. Identity is set only when
// Status is StatusResolved; Discovered marks numbers found by name search,
// which the sync writes back to the CRM.
type Resolution struct {
	Status     Status
	Identity   domain.CompanyIdentity
	Reason     string
	Discovered bool
	Err        error
}

func (r Resolution) Resolved() bool {
	return r.Status == StatusResolved
}

// Resolver looks up identities. It has no side effects.
type Resolver struct {
	registry   providers.RegistryClient
	orgField   crm.FieldID
	nameSearch bool
	revalidate bool
	logger     *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithOrgNumberField names the custom field that holds the organization number.
func WithOrgNumberField(id crm.FieldID) Option {
	return func(r *Resolver) { r.orgField = id }
}

// WithNameSearch enables registry name search for records without a number.
func WithNameSearch(enabled bool) Option {
	return func(r *Resolver) { r.nameSearch = enabled }
}

// WithRevalidation confirms existing numbers against the registry.
func WithRevalidation(enabled bool) Option {
	return func(r *Resolver) { r.revalidate = enabled }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

func New(registry providers.RegistryClient, opts ...Option) (*Resolver, error) {
	if registry == nil {
		return nil, errors.New("registry client is required")
	}
	r := &Resolver{registry: registry, logger: logger.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve determines the organization number for rec.
func (r *Resolver) Resolve(ctx context.Context, rec crm.Record) Resolution {
	existing := r.existing(rec)
	if existing != "" {
		orgnr, err := domain.ParseOrgNumber(existing)
		if err == nil {
			return r.confirm(ctx, rec, orgnr)
		}
		r.logger.WarnContext(ctx, "invalid organization number in crm",
			"record_id", rec.ID,
			"value", existing,
		)
		if !r.nameSearch {
			return unresolved(ReasonInvalid, err)
		}
	}
	if !r.nameSearch {
		return unresolved(ReasonMissing, nil)
	}
	return r.search(ctx, rec)
}

// SearchingByName returns a copy of r with name search switched on or off,
// for batch runs that decide per run whether to look up missing numbers.
func (r *Resolver) SearchingByName(enabled bool) *Resolver {
	c := *r
	c.nameSearch = enabled
	return &c
}

// Existing returns the organization number stored on rec, unvalidated.
func (r *Resolver) Existing(rec crm.Record) string {
	return r.existing(rec)
}

func (r *Resolver) existing(rec crm.Record) string {
	if r.orgField == "" {
		return ""
	}
	return strings.TrimSpace(rec.Fields[r.orgField])
}

func (r *Resolver) confirm(ctx context.Context, rec crm.Record, orgnr domain.OrgNumber) Resolution {
	res := Resolution{
		Status:   StatusResolved,
		Identity: domain.CompanyIdentity{OrgNumber: orgnr, RecordID: rec.ID},
	}
	if !r.revalidate {
		return res
	}
	_, err := r.registry.LookupByOrgNumber(ctx, orgnr)
	switch {
	case err == nil:
		return res
	case providers.IsNotFound(err):
		return unresolved(ReasonNotInRegistry, err)
	default:
		// the registry being down is no reason to distrust a stored number
		r.logger.WarnContext(ctx, "revalidation failed, keeping organization number",
			"record_id", rec.ID,
			"orgnr", orgnr.String(),
			"error", err,
		)
		return res
	}
}

func (r *Resolver) search(ctx context.Context, rec crm.Record) Resolution {
	name := rec.CompanyDisplayName()
	if name == "" {
		return unresolved(ReasonNoName, nil)
	}
	candidates, err := r.registry.SearchByName(ctx, name)
	if err != nil {
		return unresolved(ReasonSearchFailed, err)
	}

	match, reason := pick(name, candidates)
	if reason != "" {
		r.logger.InfoContext(ctx, "name search unresolved",
			"record_id", rec.ID,
			"name", name,
			"candidates", len(candidates),
			"reason", reason,
		)
		return unresolved(reason, nil)
	}
	orgnr, err := domain.ParseOrgNumber(match.OrgNumber)
	if err != nil {
		return unresolved(ReasonInvalid, err)
	}
	return Resolution{
		Status:     StatusResolved,
		Identity:   domain.CompanyIdentity{OrgNumber: orgnr, RecordID: rec.ID},
		Discovered: true,
	}
}

// pick returns the single acceptable candidate: the only one whose
// normalised name equals the record's, else the only candidate at all.
func pick(name string, candidates []models.Candidate) (models.Candidate, string) {
	if len(candidates) == 0 {
		return models.Candidate{}, ReasonNoMatch
	}
	want := pstrings.NormalizeCompanyName(name)
	var exact []models.Candidate
	for _, c := range candidates {
		if pstrings.NormalizeCompanyName(c.Name) == want {
			exact = append(exact, c)
		}
	}
	switch {
	case len(exact) == 1:
		return exact[0], ""
	case len(exact) > 1:
		return models.Candidate{}, fmt.Sprintf("%s: %d exact candidates", reasonAmbiguousPrefix, len(exact))
	case len(candidates) == 1:
		return candidates[0], ""
	default:
		return models.Candidate{}, fmt.Sprintf("%s: %d candidates", reasonAmbiguousPrefix, len(candidates))
	}
}

func unresolved(reason string, err error) Resolution {
	return Resolution{Status: StatusUnresolved, Reason: reason, Err: err}
}
