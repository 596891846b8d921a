// Package aggregator merges the external sources into one enrichment
// bundle per company and writes the free-text sales note.
//
// The registry is asked first because its website drives the website
// probes. When the registry knows no website, the directory listing is
// searched for one. Financial, domain-health, social, domain registration
// and website analysis sources then run concurrently. A failing source leaves its part of the bundle empty and is
// recorded in Bundle.SourceErrors; only when every attempted source fails
// is the whole enrichment a failure.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/enrichment/providers"
	"salgsmotor/internal/platform/logger"
	"salgsmotor/internal/rules"
	"salgsmotor/pkg/domain"
	"salgsmotor/pkg/email"
	"salgsmotor/pkg/platform/circuit"
	"salgsmotor/pkg/platform/sentinel"
	"salgsmotor/pkg/requestcontext"
)

const (
	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 5 * time.Minute
	sourceAI                = models.Source("ai")
)

// Aggregator implements enrichment over the configured sources. Only the
// registry is required; other sources are skipped when unset.
type Aggregator struct {
	registry     providers.RegistryClient
	financial    providers.FinancialClient
	domainHealth providers.DomainHealthClient
	social       providers.SocialClient
	ai           providers.AiTextClient
	finder       providers.WebsiteFinder
	registration providers.RegistrationClient
	analyzer     providers.WebsiteAnalyzer

	breakerThreshold int
	breakerCooldown  time.Duration
	breakers         map[models.Source]*circuit.Breaker

	metrics *Metrics
	logger  *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

func WithFinancial(c providers.FinancialClient) Option {
	return func(a *Aggregator) { a.financial = c }
}

func WithDomainHealth(c providers.DomainHealthClient) Option {
	return func(a *Aggregator) { a.domainHealth = c }
}

func WithSocial(c providers.SocialClient) Option {
	return func(a *Aggregator) { a.social = c }
}

func WithAI(c providers.AiTextClient) Option {
	return func(a *Aggregator) { a.ai = c }
}

// WithWebsiteFinder sets the source asked for a website when the registry
// has none.
func WithWebsiteFinder(c providers.WebsiteFinder) Option {
	return func(a *Aggregator) { a.finder = c }
}

func WithRegistration(c providers.RegistrationClient) Option {
	return func(a *Aggregator) { a.registration = c }
}

func WithWebsiteAnalyzer(c providers.WebsiteAnalyzer) Option {
	return func(a *Aggregator) { a.analyzer = c }
}

// WithBreaker sets how many consecutive outages open a source's breaker and
// how often an open breaker lets a trial call through.
func WithBreaker(threshold int, cooldown time.Duration) Option {
	return func(a *Aggregator) {
		if threshold > 0 {
			a.breakerThreshold = threshold
		}
		if cooldown > 0 {
			a.breakerCooldown = cooldown
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

func New(registry providers.RegistryClient, opts ...Option) (*Aggregator, error) {
	if registry == nil {
		return nil, errors.New("registry client is required")
	}
	a := &Aggregator{
		registry:         registry,
		breakerThreshold: defaultBreakerThreshold,
		breakerCooldown:  defaultBreakerCooldown,
		logger:           logger.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.breakers = make(map[models.Source]*circuit.Breaker)
	for _, src := range []models.Source{
		models.SourceRegistry, models.SourceFinancial, models.SourceDomainHealth, models.SourceSocial, sourceAI,
		models.SourceWebsiteDiscovery, models.SourceRegistration, models.SourceWebsiteAnalysis,
	} {
		a.breakers[src] = circuit.New(string(src),
			circuit.WithFailureThreshold(a.breakerThreshold),
			circuit.WithSuccessThreshold(1),
			circuit.WithCooldown(a.breakerCooldown),
		)
	}
	return a, nil
}

// enrichment collects one company's results. Sources write through set
// under the mutex.
type enrichment struct {
	mu        sync.Mutex
	bundle    *models.Bundle
	attempted int
	failed    []models.Source
}

func (e *enrichment) set(src models.Source, err error, apply func(b *models.Bundle)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attempted++
	if err != nil {
		e.failed = append(e.failed, src)
		if e.bundle.SourceErrors == nil {
			e.bundle.SourceErrors = make(map[models.Source]string)
		}
		e.bundle.SourceErrors[src] = err.Error()
		return
	}
	apply(e.bundle)
}

// Enrich builds the bundle for orgnr. It returns ErrAllSourcesFailed when
// no attempted source produced data.
func (a *Aggregator) Enrich(ctx context.Context, orgnr domain.OrgNumber) (*models.Bundle, error) {
	e := &enrichment{bundle: &models.Bundle{
		OrgNumber:   orgnr.String(),
		CollectedAt: requestcontext.Now(ctx),
	}}

	var registry *models.RegistryData
	err := a.call(ctx, models.SourceRegistry, orgnr.String(), func(ctx context.Context) (err error) {
		registry, err = a.registry.LookupByOrgNumber(ctx, orgnr)
		return err
	})
	e.set(models.SourceRegistry, err, func(b *models.Bundle) { b.Registry = registry })
	website := e.bundle.Website()

	// Only searched after a registry answer, so a dead registry still fails
	// the enrichment.
	if registry != nil && website == "" && a.finder != nil {
		var found string
		err := a.call(ctx, models.SourceWebsiteDiscovery, orgnr.String(), func(ctx context.Context) (err error) {
			found, err = a.finder.FindWebsite(ctx, orgnr)
			return err
		})
		e.set(models.SourceWebsiteDiscovery, err, func(b *models.Bundle) { b.DiscoveredWebsite = found })
		website = e.bundle.Website()
	}

	var g errgroup.Group
	if a.financial != nil {
		g.Go(func() error {
			var data *models.FinancialData
			err := a.call(ctx, models.SourceFinancial, orgnr.String(), func(ctx context.Context) (err error) {
				data, err = a.financial.Fetch(ctx, orgnr)
				return err
			})
			e.set(models.SourceFinancial, err, func(b *models.Bundle) { b.Financial = data })
			return nil
		})
	}
	if website != "" && a.domainHealth != nil {
		g.Go(func() error {
			var data *models.DomainHealthData
			err := a.call(ctx, models.SourceDomainHealth, orgnr.String(), func(ctx context.Context) (err error) {
				data, err = a.domainHealth.Fetch(ctx, website)
				return err
			})
			e.set(models.SourceDomainHealth, err, func(b *models.Bundle) { b.DomainHealth = data })
			return nil
		})
	}
	if website != "" && a.social != nil {
		g.Go(func() error {
			var data *models.SocialData
			err := a.call(ctx, models.SourceSocial, orgnr.String(), func(ctx context.Context) (err error) {
				data, err = a.social.Fetch(ctx, website)
				return err
			})
			e.set(models.SourceSocial, err, func(b *models.Bundle) { b.Social = data })
			return nil
		})
	}
	if website != "" && a.registration != nil {
		g.Go(func() error {
			var data *models.RegistrationData
			err := a.call(ctx, models.SourceRegistration, orgnr.String(), func(ctx context.Context) (err error) {
				data, err = a.registration.Lookup(ctx, website)
				return err
			})
			e.set(models.SourceRegistration, err, func(b *models.Bundle) { b.Registration = data })
			return nil
		})
	}
	if website != "" && a.analyzer != nil {
		g.Go(func() error {
			var data *models.WebsiteAnalysis
			err := a.call(ctx, models.SourceWebsiteAnalysis, orgnr.String(), func(ctx context.Context) (err error) {
				data, err = a.analyzer.AnalyzeWebsite(ctx, website)
				return err
			})
			e.set(models.SourceWebsiteAnalysis, err, func(b *models.Bundle) { b.WebsiteAnalysis = data })
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(e.failed) == e.attempted {
		a.metrics.IncEnrichment("failed")
		return nil, fmt.Errorf("%w for %s: %s", providers.ErrAllSourcesFailed, orgnr, failureSummary(e.bundle))
	}

	e.bundle.Contact = contact(e.bundle)
	if len(e.failed) > 0 {
		a.metrics.IncEnrichment("partial")
		a.logger.InfoContext(ctx, "partial enrichment",
			"orgnr", orgnr.String(),
			"failed_sources", e.failed,
		)
	} else {
		a.metrics.IncEnrichment("complete")
	}
	return e.bundle, nil
}

// call runs fn behind the source's breaker. Only outage-like failures count
// against the breaker; a source answering "not found" is healthy.
func (a *Aggregator) call(ctx context.Context, src models.Source, orgnr string, fn func(context.Context) error) error {
	b := a.breakers[src]
	if !b.Allow(requestcontext.Now(ctx)) {
		a.metrics.ObserveSource(src, "skipped", 0)
		return providers.NewProviderError(providers.ErrorCircuitOpen, string(src), "skipped after repeated failures", nil)
	}

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if err == nil {
		a.metrics.ObserveSource(src, "ok", elapsed)
		if _, change := b.RecordSuccess(); change.Closed {
			a.logger.InfoContext(ctx, "source recovered", "source", string(src))
		}
		return nil
	}

	a.metrics.ObserveSource(src, "error", elapsed)
	a.logger.WarnContext(ctx, "source failed",
		"source", string(src),
		"orgnr", orgnr,
		"category", string(providers.GetCategory(err)),
		"error", err,
	)
	if errors.Is(err, sentinel.ErrUnavailable) {
		if _, change := b.RecordFailure(); change.Opened {
			a.logger.WarnContext(ctx, "source circuit opened", "source", string(src))
		}
	} else {
		b.RecordSuccess()
	}
	return err
}

// contact picks the company email from the registry, else from the
// financial profile, and classifies its provider.
func contact(b *models.Bundle) *models.ContactData {
	if b.Registry == nil && b.Financial == nil {
		return nil
	}
	c := &models.ContactData{ProviderClass: email.ProviderUnknown}
	if b.Registry != nil {
		c.Email = strings.TrimSpace(b.Registry.Email)
		c.Phone = strings.TrimSpace(b.Registry.Phone)
	}
	if c.Email == "" && b.Financial != nil {
		c.Email = strings.TrimSpace(b.Financial.Email)
	}
	if c.Email != "" {
		c.EmailDomain = email.Domain(c.Email)
		c.ProviderClass = email.Classify(c.Email)
	}
	return c
}

func failureSummary(b *models.Bundle) string {
	parts := make([]string, 0, len(b.SourceErrors))
	for src, msg := range b.SourceErrors {
		parts = append(parts, fmt.Sprintf("%s: %s", src, msg))
	}
	slices.Sort(parts)
	return strings.Join(parts, "; ")
}

// Note writes the sales note for a company. The AI client is asked last;
// without it, or when it fails or returns nothing, a templated note naming
// the primary recommendation is used. No recommendations means no note.
func (a *Aggregator) Note(ctx context.Context, bundle *models.Bundle, recs []rules.Recommendation) string {
	primary, ok := rules.Primary(recs)
	if !ok {
		return ""
	}
	fallback := FallbackNote(primary)
	if a.ai == nil {
		a.metrics.IncNote("template")
		return fallback
	}

	var (
		text  string
		orgnr string
	)
	if bundle != nil {
		orgnr = bundle.OrgNumber
	}
	err := a.call(ctx, sourceAI, orgnr, func(ctx context.Context) (err error) {
		text, err = a.ai.GenerateNote(ctx, bundle, recs)
		return err
	})
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		a.metrics.IncNote("fallback")
		return fallback
	}
	a.metrics.IncNote("ai")
	return text
}

// FallbackNote is the templated note for a primary recommendation.
func FallbackNote(primary rules.Recommendation) string {
	return fmt.Sprintf("Anbefalt tjeneste: %s basert på automatisk analyse.", primary.Category)
}
